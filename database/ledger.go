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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/lib/pq"

	"github.com/openalms/fundpool/internal/apierror"
	"github.com/openalms/fundpool/model"
)

// CreateFundLedger inserts the pooled-fund ledger row if it does not exist yet.
// Bootstrap calls this on every start; ON CONFLICT DO NOTHING keeps the call
// idempotent so the singleton row is never duplicated or reset.
//
// Parameters:
// - ledger: A model.FundLedger object carrying the fixed ledger ID, currency and zeroed buckets.
//
// Returns:
// - model.FundLedger: The ledger as persisted (buckets initialized, timestamp populated).
// - error: Returns an APIError in case of database failures.
func (d Datasource) CreateFundLedger(ledger model.FundLedger) (model.FundLedger, error) {
	metaDataJSON, err := json.Marshal(ledger.MetaData)
	if err != nil {
		return model.FundLedger{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	ledger.InitializeLedgerFields()
	ledger.CreatedAt = time.Now()
	ledger.LastUpdated = ledger.CreatedAt

	_, err = d.Conn.Exec(`
		INSERT INTO fund_ledger (ledger_id, total_balance, available_balance, allocated_amount, pending_amount, warning_line, currency, last_updated, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ledger_id) DO NOTHING
	`, ledger.LedgerID, ledger.TotalBalance.String(), ledger.AvailableBalance.String(), ledger.AllocatedAmount.String(), ledger.PendingAmount.String(), ledger.WarningLine.String(), ledger.Currency, ledger.LastUpdated, ledger.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.FundLedger{}, apierror.NewAPIError(apierror.ErrConflict, "Fund ledger already exists", err)
			default:
				return model.FundLedger{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.FundLedger{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create fund ledger", err)
	}

	return ledger, nil
}

// GetFundLedger retrieves the pooled-fund ledger by its fixed ID, including the
// version used for optimistic locking.
//
// Parameters:
// - id: The fixed ledger ID.
//
// Returns:
// - *model.FundLedger: A pointer to the retrieved ledger.
// - error: Returns an APIError if the ledger is missing or the query fails.
func (d Datasource) GetFundLedger(id string) (*model.FundLedger, error) {
	var ledger model.FundLedger
	var totalValue, availableValue, allocatedValue, pendingValue, warningValue int64
	var metaDataJSON []byte

	row := d.Conn.QueryRow(`
	   SELECT ledger_id, total_balance, available_balance, allocated_amount, pending_amount, warning_line, currency, version, last_updated, created_at, meta_data
	   FROM fund_ledger
	   WHERE ledger_id = $1
	`, id)

	err := row.Scan(
		&ledger.LedgerID,
		&totalValue,
		&availableValue,
		&allocatedValue,
		&pendingValue,
		&warningValue,
		&ledger.Currency,
		&ledger.Version,
		&ledger.LastUpdated,
		&ledger.CreatedAt,
		&metaDataJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Fund ledger with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan fund ledger data", err)
	}

	ledger.TotalBalance = big.NewInt(totalValue)
	ledger.AvailableBalance = big.NewInt(availableValue)
	ledger.AllocatedAmount = big.NewInt(allocatedValue)
	ledger.PendingAmount = big.NewInt(pendingValue)
	ledger.WarningLine = big.NewInt(warningValue)

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &ledger.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return &ledger, nil
}

// UpdateFundLedger writes the mutated ledger buckets back to the database in a
// single transaction guarded by the optimistic version column.
//
// Parameters:
// - ctx: The context to manage the lifecycle of the transaction.
// - ledger: A pointer to the mutated ledger carrying the version it was read at.
//
// Returns:
// - error: Returns an APIError on transaction failure or an optimistic-lock conflict.
func (d Datasource) UpdateFundLedger(ctx context.Context, ledger *model.FundLedger) error {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err := updateFundLedgerTx(ctx, tx, ledger); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	return nil
}

// updateFundLedgerTx updates the ledger row inside an existing transaction.
// The version predicate detects concurrent modifications; the version is
// incremented after a successful update.
func updateFundLedgerTx(ctx context.Context, tx *sql.Tx, ledger *model.FundLedger) error {
	metaDataJSON, err := json.Marshal(ledger.MetaData)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	query := `
        UPDATE fund_ledger
        SET total_balance = $2, available_balance = $3, allocated_amount = $4, pending_amount = $5, warning_line = $6, last_updated = $7, meta_data = $8, version = version + 1
        WHERE ledger_id = $1 AND version = $9
    `

	result, err := tx.ExecContext(ctx, query, ledger.LedgerID, ledger.TotalBalance.String(), ledger.AvailableBalance.String(), ledger.AllocatedAmount.String(), ledger.PendingAmount.String(), ledger.WarningLine.String(), ledger.LastUpdated, metaDataJSON, ledger.Version)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update fund ledger", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Optimistic locking failure: fund ledger '%s' was updated by another transaction", ledger.LedgerID), nil)
	}

	ledger.Version++

	return nil
}
