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
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/openalms/fundpool"
	"github.com/openalms/fundpool/api/middleware"
	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/internal/apierror"
)

type Api struct {
	fundpool *fundpool.Fundpool
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.GET("/ledger", a.GetLedgerStatus)
	router.POST("/ledger/deposits", a.Deposit)
	router.POST("/ledger/withdrawals", a.Withdraw)
	router.PUT("/ledger/warning-line", a.SetWarningLine)

	router.POST("/allocations", a.CreateAllocation)
	router.GET("/allocations", a.ListAllocations)
	router.GET("/allocations/summary", a.AllocationSummary)
	router.GET("/allocations/:id", a.GetAllocation)
	router.POST("/allocations/:id/approve", a.ApproveAllocation)
	router.POST("/allocations/:id/reject", a.RejectAllocation)
	router.POST("/allocations/:id/cancel", a.CancelAllocation)
	router.POST("/allocations/:id/complete", a.CompleteAllocation)
	router.PUT("/allocations/:id", a.UpdateAllocation)

	router.POST("/projects", a.CreateProject)
	router.GET("/projects", a.ListProjects)
	router.GET("/projects/:id", a.GetProject)
	router.GET("/projects/:id/allocated-total", a.GetProjectAllocatedTotal)
	return a.router
}

func NewAPI(f *fundpool.Fundpool) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{fundpool: f, router: r}
}

// handleError translates a service error into the matching HTTP status and a
// JSON error body.
func handleError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
}
