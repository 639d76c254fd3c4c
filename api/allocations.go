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
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	model2 "github.com/openalms/fundpool/api/model"
	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/model"

	"github.com/gin-gonic/gin"
)

// CreateAllocation handles opening a new funding request.
// It binds the incoming JSON request, validates it, and reserves the amount
// against the pool. The request lands in PENDING on success.
//
// Parameters:
// - c: The Gin context containing the request and response.
//
// Responses:
// - 400 Bad Request: If there's an error in binding JSON or validating the request.
// - 422 Unprocessable Entity: If the available balance cannot cover the amount.
// - 201 Created: If the allocation request is successfully created.
func (a Api) CreateAllocation(c *gin.Context) {
	var newAllocation model2.CreateAllocation
	if err := c.ShouldBindJSON(&newAllocation); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := newAllocation.ValidateCreateAllocation(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		handleError(c, err)
		return
	}

	resp, err := a.fundpool.CreateAllocation(c.Request.Context(), newAllocation.ToAllocationRequest(conf.Ledger.Precision))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ApproveAllocation commits a pending request to its project.
func (a Api) ApproveAllocation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var decision model2.AllocationDecision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := decision.ValidateAllocationDecision(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.fundpool.ApproveAllocation(c.Request.Context(), id, decision.DecidedBy, decision.Comment)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RejectAllocation declines a pending request and frees its reservation.
func (a Api) RejectAllocation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var decision model2.AllocationDecision
	if err := c.ShouldBindJSON(&decision); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := decision.ValidateAllocationDecision(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.fundpool.RejectAllocation(c.Request.Context(), id, decision.DecidedBy, decision.Comment)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelAllocation withdraws a pending request on behalf of its requester.
func (a Api) CancelAllocation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var cancel model2.CancelAllocation
	if err := c.ShouldBindJSON(&cancel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := cancel.ValidateCancelAllocation(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.fundpool.CancelAllocation(c.Request.Context(), id, cancel.RequestedBy)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CompleteAllocation settles an approved request as spent.
func (a Api) CompleteAllocation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fundpool.CompleteAllocation(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateAllocation amends the description or amount of a pending request.
func (a Api) UpdateAllocation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var update model2.UpdateAllocation
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := update.ValidateUpdateAllocation(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.fundpool.UpdateAllocation(c.Request.Context(), id, update.Description, update.Amount)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAllocation retrieves an allocation request by ID.
func (a Api) GetAllocation(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	resp, err := a.fundpool.GetAllocation(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListAllocations retrieves allocation requests filtered by project, status and
// creation-date range, newest first.
func (a Api) ListAllocations(c *gin.Context) {
	filter := model.AllocationFilter{
		ProjectID: c.Query("project_id"),
		Status:    c.Query("status"),
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "please format 'from' as RFC3339 (e.g., 2026-04-22T15:28:03Z)"})
			return
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "please format 'to' as RFC3339 (e.g., 2026-04-22T15:28:03Z)"})
			return
		}
		filter.To = t
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := a.fundpool.ListAllocations(c.Request.Context(), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AllocationSummary aggregates request count and amount per workflow status.
func (a Api) AllocationSummary(c *gin.Context) {
	resp, err := a.fundpool.AllocationSummary(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
