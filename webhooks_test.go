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
package fundpool

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/model"
)

func TestSendWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	mockConfig := &config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/fundpool"},
		Redis:      config.RedisConfig{Dns: "localhost:6379"},
	}
	mockConfig.Notification.Webhook.Url = "http://example.com/webhook"
	mockConfig.Notification.Webhook.Headers = map[string]string{"X-Api-Key": "secret"}
	config.MockConfig(mockConfig)

	var receivedKey string
	httpmock.RegisterResponder("POST", "http://example.com/webhook",
		func(req *http.Request) (*http.Response, error) {
			receivedKey = req.Header.Get("X-Api-Key")
			return httpmock.NewJsonResponse(200, map[string]interface{}{"received": true})
		})

	err := SendWebhook(NewWebhook{
		Event:   "allocation.approved",
		Payload: map[string]interface{}{"allocation_id": "alc_123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "secret", receivedKey)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestSendWebhookNoEndpointConfigured(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/fundpool"},
		Redis:      config.RedisConfig{Dns: "localhost:6379"},
	})

	err := SendWebhook(NewWebhook{Event: "ledger.low_balance"})
	require.NoError(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestCreateAllocationDispatchesWebhook(t *testing.T) {
	fp, mock, mr := newTestFundpool(t)

	cnf := &config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/fundpool"},
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		Ledger:     config.LedgerConfig{Currency: "USD", Precision: 100, LockWaitMS: 200},
	}
	cnf.Notification.Webhook.Url = "http://example.com/webhook"
	config.MockConfig(cnf)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var mu sync.Mutex
	var event string
	httpmock.RegisterResponder("POST", "http://example.com/webhook",
		func(req *http.Request) (*http.Response, error) {
			var payload NewWebhook
			if err := json.NewDecoder(req.Body).Decode(&payload); err == nil {
				mu.Lock()
				event = payload.Event
				mu.Unlock()
			}
			return httpmock.NewJsonResponse(200, map[string]interface{}{"received": true})
		})

	expectProjectFetch(mock, "prj_water", model.FundingModelDirect)
	expectLedgerFetch(mock, 100000, 100000, 0, 0, 1)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocation_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fund_ledger")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := fp.CreateAllocation(context.Background(), &model.AllocationRequest{
		ProjectID:   "prj_water",
		Amount:      300,
		Precision:   100,
		RequestedBy: "usr_alice",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return httpmock.GetTotalCallCount() == 1 }, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "allocation.requested", event)
}

func TestEventFromStatus(t *testing.T) {
	assert.Equal(t, "allocation.requested", getEventFromStatus(model.StatusPending))
	assert.Equal(t, "allocation.approved", getEventFromStatus(model.StatusApproved))
	assert.Equal(t, "allocation.rejected", getEventFromStatus(model.StatusRejected))
	assert.Equal(t, "allocation.completed", getEventFromStatus(model.StatusCompleted))
	assert.Equal(t, "allocation.unknown", getEventFromStatus("ARCHIVED"))
}
