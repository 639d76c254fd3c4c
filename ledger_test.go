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
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openalms/fundpool/internal/apierror"
	"github.com/openalms/fundpool/model"
)

func TestBootstrapLedger(t *testing.T) {
	fp, mock, _ := newTestFundpool(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fund_ledger")).
		WithArgs(model.PoolLedgerID, "0", "0", "0", "0", "0", "USD", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, fp.BootstrapLedger(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeposit(t *testing.T) {
	fp, mock, _ := newTestFundpool(t)

	rows := sqlmock.NewRows(ledgerColumns).
		AddRow(model.PoolLedgerID, 0, 0, 0, 0, 0, "USD", 0, time.Now(), time.Now(), nil)
	mock.ExpectQuery("SELECT ledger_id").WithArgs(model.PoolLedgerID).WillReturnRows(rows)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fund_ledger")).
		WithArgs(model.PoolLedgerID, "100000", "100000", "0", "0", "0", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ledger, err := fp.Deposit(context.Background(), big.NewInt(100000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100000), ledger.TotalBalance)
	assert.Equal(t, big.NewInt(100000), ledger.AvailableBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	fp, mock, _ := newTestFundpool(t)

	rows := sqlmock.NewRows(ledgerColumns).
		AddRow(model.PoolLedgerID, 0, 0, 0, 0, 0, "USD", 0, time.Now(), time.Now(), nil)
	mock.ExpectQuery("SELECT ledger_id").WithArgs(model.PoolLedgerID).WillReturnRows(rows)

	_, err := fp.Deposit(context.Background(), big.NewInt(0))
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	fp, mock, _ := newTestFundpool(t)

	// 700 available, 300 reserved. Reserved funds cannot leave the pool.
	rows := sqlmock.NewRows(ledgerColumns).
		AddRow(model.PoolLedgerID, 1000, 700, 0, 300, 0, "USD", 2, time.Now(), time.Now(), nil)
	mock.ExpectQuery("SELECT ledger_id").WithArgs(model.PoolLedgerID).WillReturnRows(rows)

	_, err := fp.Withdraw(context.Background(), big.NewInt(800))
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInsufficientFunds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerBusyTimesOut(t *testing.T) {
	fp, _, mr := newTestFundpool(t)

	// Another holder owns the ledger lock for longer than the configured wait.
	require.NoError(t, mr.Set(ledgerLockKey(), "other-holder"))

	_, err := fp.Deposit(context.Background(), big.NewInt(1000))
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrTimeout))
}

func TestSetWarningLine(t *testing.T) {
	fp, mock, _ := newTestFundpool(t)

	rows := sqlmock.NewRows(ledgerColumns).
		AddRow(model.PoolLedgerID, 1000, 1000, 0, 0, 0, "USD", 1, time.Now(), time.Now(), nil)
	mock.ExpectQuery("SELECT ledger_id").WithArgs(model.PoolLedgerID).WillReturnRows(rows)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fund_ledger")).
		WithArgs(model.PoolLedgerID, "1000", "1000", "0", "0", "500", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ledger, err := fp.SetWarningLine(context.Background(), big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), ledger.WarningLine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStatus(t *testing.T) {
	fp, mock, _ := newTestFundpool(t)

	rows := sqlmock.NewRows(ledgerColumns).
		AddRow(model.PoolLedgerID, 100000, 25000, 45000, 30000, 30000, "USD", 9, time.Now(), time.Now(), nil)
	mock.ExpectQuery("SELECT ledger_id").WithArgs(model.PoolLedgerID).WillReturnRows(rows)

	status, err := fp.LedgerStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100000), status.TotalBalance)
	assert.True(t, status.IsUnderWarningLine)
	assert.InDelta(t, 25.0, status.BalancePercentage, 0.001)
}
