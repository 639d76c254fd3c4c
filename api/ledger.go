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

	model2 "github.com/openalms/fundpool/api/model"
	"github.com/openalms/fundpool/config"

	"github.com/gin-gonic/gin"
)

// GetLedgerStatus returns the four bucket balances, the warning flag and the
// available-to-total percentage.
func (a Api) GetLedgerStatus(c *gin.Context) {
	resp, err := a.fundpool.LedgerStatus(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Deposit records an incoming donation into the pool.
func (a Api) Deposit(c *gin.Context) {
	var movement model2.LedgerMovement
	if err := c.ShouldBindJSON(&movement); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := movement.ValidateLedgerMovement(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		handleError(c, err)
		return
	}

	resp, err := a.fundpool.Deposit(c.Request.Context(), model2.ToMinorUnits(movement.Amount, conf.Ledger.Precision))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Withdraw removes unallocated funds from the pool.
func (a Api) Withdraw(c *gin.Context) {
	var movement model2.LedgerMovement
	if err := c.ShouldBindJSON(&movement); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := movement.ValidateLedgerMovement(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		handleError(c, err)
		return
	}

	resp, err := a.fundpool.Withdraw(c.Request.Context(), model2.ToMinorUnits(movement.Amount, conf.Ledger.Precision))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SetWarningLine replaces the low-balance alert threshold.
func (a Api) SetWarningLine(c *gin.Context) {
	var line model2.WarningLine
	if err := c.ShouldBindJSON(&line); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := line.ValidateWarningLine(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		handleError(c, err)
		return
	}

	resp, err := a.fundpool.SetWarningLine(c.Request.Context(), model2.ToMinorUnits(line.Amount, conf.Ledger.Precision))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
