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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/database"
	"github.com/openalms/fundpool/model"
)

// newTestFundpool wires the service against a sqlmock-backed datasource and a
// miniredis instance carrying the ledger lock.
func newTestFundpool(t *testing.T) (*Fundpool, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/fundpool"},
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		Ledger:     config.LedgerConfig{Currency: "USD", Precision: 100, LockWaitMS: 200},
	})

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fp, err := NewFundpool(&database.Datasource{Conn: db})
	require.NoError(t, err)
	return fp, mock, mr
}

// ledgerColumns matches the SELECT in database.GetFundLedger.
var ledgerColumns = []string{"ledger_id", "total_balance", "available_balance", "allocated_amount", "pending_amount", "warning_line", "currency", "version", "last_updated", "created_at", "meta_data"}

var allocationColumnNames = []string{"allocation_id", "project_id", "amount", "precision", "precise_amount", "currency", "description", "status", "requested_by", "decided_by", "decision_comment", "decided_at", "created_at", "meta_data"}

func TestMockFundpoolOverridesGetAllocation(t *testing.T) {
	fp, _, _ := newTestFundpool(t)

	mocked := &MockFundpool{
		Fundpool: *fp,
		mockGetAllocation: func(id string) (*model.AllocationRequest, error) {
			return &model.AllocationRequest{AllocationID: id, Status: model.StatusPending}, nil
		},
	}

	request, err := mocked.GetAllocation("alc_stub")
	require.NoError(t, err)
	assert.Equal(t, "alc_stub", request.AllocationID)
	assert.Equal(t, model.StatusPending, request.Status)
}
