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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openalms/fundpool"
	model2 "github.com/openalms/fundpool/api/model"
	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/database"
	"github.com/openalms/fundpool/internal/request"
	"github.com/openalms/fundpool/model"
)

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	err := json.NewDecoder(resp.Body).Decode(&s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

var ledgerColumns = []string{"ledger_id", "total_balance", "available_balance", "allocated_amount", "pending_amount", "warning_line", "currency", "version", "last_updated", "created_at", "meta_data"}

func setupRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()

	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		DataSource: config.DataSourceConfig{Dns: "postgres://postgres:@localhost:5432/fundpool?sslmode=disable"},
		Ledger:     config.LedgerConfig{Currency: "USD", Precision: 100, LockWaitMS: 200},
	})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fp, err := fundpool.NewFundpool(&database.Datasource{Conn: db})
	require.NoError(t, err)

	return NewAPI(fp).Router(), mock
}

func expectLedgerRow(mock sqlmock.Sqlmock, total, available, allocated, pending, warning int64) {
	rows := sqlmock.NewRows(ledgerColumns).
		AddRow(model.PoolLedgerID, total, available, allocated, pending, warning, "USD", 1, time.Now(), time.Now(), nil)
	mock.ExpectQuery("SELECT ledger_id").WithArgs(model.PoolLedgerID).WillReturnRows(rows)
}

func TestGetLedgerStatus(t *testing.T) {
	router, mock := setupRouter(t)

	expectLedgerRow(mock, 100000, 25000, 45000, 30000, 30000)

	var response model.LedgerStatus
	resp, err := SetUpTestRequest(TestRequest{
		Response: &response,
		Method:   "GET",
		Route:    "/ledger",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.PoolLedgerID, response.LedgerID)
	assert.True(t, response.IsUnderWarningLine)
	assert.InDelta(t, 25.0, response.BalancePercentage, 0.001)
}

func TestDepositEndpoint(t *testing.T) {
	router, mock := setupRouter(t)

	tests := []struct {
		name         string
		payload      model2.LedgerMovement
		prepare      func()
		expectedCode int
	}{
		{
			name:    "Valid deposit",
			payload: model2.LedgerMovement{Amount: 1000},
			prepare: func() {
				expectLedgerRow(mock, 0, 0, 0, 0, 0)
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("UPDATE fund_ledger")).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Zero amount",
			payload:      model2.LedgerMovement{Amount: 0},
			prepare:      func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Negative amount",
			payload:      model2.LedgerMovement{Amount: -50},
			prepare:      func() {},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepare()
			payloadBytes, _ := request.ToJsonReq(&tt.payload)
			var response map[string]interface{}
			resp, err := SetUpTestRequest(TestRequest{
				Payload:  payloadBytes,
				Response: &response,
				Method:   "POST",
				Route:    "/ledger/deposits",
				Router:   router,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, resp.Code)
		})
	}
}

func TestWithdrawEndpointInsufficientFunds(t *testing.T) {
	router, mock := setupRouter(t)

	// 700.00 available cannot cover an 800.00 withdrawal.
	expectLedgerRow(mock, 100000, 70000, 0, 30000, 0)

	payloadBytes, _ := request.ToJsonReq(&model2.LedgerMovement{Amount: 800})
	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  payloadBytes,
		Response: &response,
		Method:   "POST",
		Route:    "/ledger/withdrawals",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestSetWarningLineEndpoint(t *testing.T) {
	router, mock := setupRouter(t)

	expectLedgerRow(mock, 100000, 100000, 0, 0, 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fund_ledger")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payloadBytes, _ := request.ToJsonReq(&model2.WarningLine{Amount: 500})
	var response model.FundLedger
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  payloadBytes,
		Response: &response,
		Method:   "PUT",
		Route:    "/ledger/warning-line",
		Router:   router,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
}
