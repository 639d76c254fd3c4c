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
	"fmt"
	"log"
	"os"

	"github.com/openalms/fundpool"
	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/database"
	"github.com/openalms/fundpool/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLI encapsulates the root Cobra command of the fundpool application.
type CLI struct {
	cmd *cobra.Command
}

// fundpoolInstance holds the service instance and its configuration, shared
// across subcommands once preRun has initialized them.
type fundpoolInstance struct {
	fundpool *fundpool.Fundpool
	cnf      *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the service before running
// any command.
func preRun(app *fundpoolInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newFundpool, err := setupFundpool(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.fundpool = newFundpool
		app.cnf = cnf

		return nil
	}
}

// setupFundpool creates the service instance from the provided configuration,
// connecting the data source first.
func setupFundpool(cfg *config.Configuration) (*fundpool.Fundpool, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newFundpool, err := fundpool.NewFundpool(db)
	if err != nil {
		return nil, fmt.Errorf("error creating fundpool: %v", err)
	}
	return newFundpool, nil
}

// NewCLI creates the command-line interface for the fundpool application.
func NewCLI() *CLI {
	var configFile string
	f := &fundpoolInstance{}

	var rootCmd = &cobra.Command{
		Use:   "fundpool",
		Short: "Donation fund ledger and allocation workflow",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./fundpool.json", "Configuration file for the fundpool server")

	rootCmd.PersistentPreRunE = preRun(f, &configFile)

	rootCmd.AddCommand(serverCommands(f))
	rootCmd.AddCommand(ledgerCommands(f))

	return &CLI{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
