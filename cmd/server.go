/*
Copyright 2025 Openalms Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/openalms/fundpool/api"
	"github.com/openalms/fundpool/config"
	"github.com/spf13/cobra"
)

func initializeRouter(f *fundpoolInstance) *gin.Engine {
	return api.NewAPI(f.fundpool).Router()
}

func startServer(router *gin.Engine, cfg config.ServerConfig) error {
	log.Printf("Starting server on http://localhost:%s", cfg.Port)
	return router.Run(":" + cfg.Port)
}

// serverCommands returns the Cobra command responsible for starting the
// fundpool server. The ledger row is bootstrapped before the API accepts
// traffic.
func serverCommands(f *fundpoolInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start fundpool server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			if err := f.fundpool.BootstrapLedger(ctx); err != nil {
				log.Fatal(err)
			}

			router := initializeRouter(f)

			cfg, err := config.Fetch()
			if err != nil {
				log.Fatal(err)
			}

			if err := startServer(router, cfg.Server); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
