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
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/openalms/fundpool/internal/apierror"
	"github.com/openalms/fundpool/model"
)

// CreateAllocationWithLedger inserts a new allocation request and applies the
// ledger reservation in one database transaction. If either write fails the
// transaction rolls back, leaving no trace of the request and the ledger
// untouched.
//
// Parameters:
// - ctx: The context to manage the lifecycle of the transaction.
// - request: The allocation request to persist; ID and timestamp are populated here.
// - ledger: The mutated ledger carrying the version it was read at.
//
// Returns:
// - *model.AllocationRequest: The persisted request.
// - error: Returns an APIError on constraint violations, optimistic-lock conflicts or other failures.
func (d Datasource) CreateAllocationWithLedger(ctx context.Context, request *model.AllocationRequest, ledger *model.FundLedger) (*model.AllocationRequest, error) {
	metaDataJSON, err := json.Marshal(request.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	request.AllocationID = model.GenerateUUIDWithSuffix("alc")
	request.CreatedAt = time.Now()

	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO allocation_requests (allocation_id, project_id, amount, precision, precise_amount, currency, description, status, requested_by, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, request.AllocationID, request.ProjectID, request.Amount, request.Precision, request.PreciseAmount.String(), request.Currency, request.Description, request.Status, request.RequestedBy, request.CreatedAt, metaDataJSON)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrConflict, "Allocation request with this ID already exists", err)
			case "foreign_key_violation":
				return nil, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid project ID", err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create allocation request", err)
	}

	if err := updateFundLedgerTx(ctx, tx, ledger); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	return request, nil
}

// UpdateAllocationWithLedger persists a workflow transition: the request's
// status fields and the corresponding ledger mutation commit in the same
// transaction or not at all.
func (d Datasource) UpdateAllocationWithLedger(ctx context.Context, request *model.AllocationRequest, ledger *model.FundLedger) error {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err := updateAllocationTx(ctx, tx, request); err != nil {
		return err
	}

	if err := updateFundLedgerTx(ctx, tx, ledger); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	return nil
}

// UpdateAllocation persists request fields that do not touch the ledger
// (a description edit on a pending request).
func (d Datasource) UpdateAllocation(ctx context.Context, request *model.AllocationRequest) error {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err := updateAllocationTx(ctx, tx, request); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	return nil
}

func updateAllocationTx(ctx context.Context, tx *sql.Tx, request *model.AllocationRequest) error {
	metaDataJSON, err := json.Marshal(request.MetaData)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	var decidedBy, decisionComment interface{}
	if request.DecidedBy != "" {
		decidedBy = request.DecidedBy
	}
	if request.DecisionComment != "" {
		decisionComment = request.DecisionComment
	}
	var decidedAt interface{}
	if request.DecidedAt != nil {
		decidedAt = *request.DecidedAt
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE allocation_requests
		SET amount = $2, precision = $3, precise_amount = $4, description = $5, status = $6, decided_by = $7, decision_comment = $8, decided_at = $9, meta_data = $10
		WHERE allocation_id = $1
	`, request.AllocationID, request.Amount, request.Precision, request.PreciseAmount.String(), request.Description, request.Status, decidedBy, decisionComment, decidedAt, metaDataJSON)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update allocation request", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Allocation request with ID '%s' not found", request.AllocationID), nil)
	}

	return nil
}

func scanAllocationRow(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.AllocationRequest, error) {
	request := &model.AllocationRequest{}
	var preciseAmount int64
	var decidedBy, decisionComment sql.NullString
	var decidedAt sql.NullTime
	var metaDataJSON []byte

	err := scanner.Scan(
		&request.AllocationID,
		&request.ProjectID,
		&request.Amount,
		&request.Precision,
		&preciseAmount,
		&request.Currency,
		&request.Description,
		&request.Status,
		&request.RequestedBy,
		&decidedBy,
		&decisionComment,
		&decidedAt,
		&request.CreatedAt,
		&metaDataJSON,
	)
	if err != nil {
		return nil, err
	}

	request.PreciseAmount = big.NewInt(preciseAmount)
	if decidedBy.Valid {
		request.DecidedBy = decidedBy.String
	}
	if decisionComment.Valid {
		request.DecisionComment = decisionComment.String
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		request.DecidedAt = &t
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &request.MetaData); err != nil {
			return nil, err
		}
	}

	return request, nil
}

const allocationColumns = "allocation_id, project_id, amount, precision, precise_amount, currency, description, status, requested_by, decided_by, decision_comment, decided_at, created_at, meta_data"

// GetAllocation retrieves an allocation request by its unique ID.
func (d Datasource) GetAllocation(id string) (*model.AllocationRequest, error) {
	row := d.Conn.QueryRow(`
		SELECT `+allocationColumns+`
		FROM allocation_requests
		WHERE allocation_id = $1
	`, id)

	request, err := scanAllocationRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Allocation request with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan allocation request data", err)
	}

	return request, nil
}

// ListAllocations retrieves allocation requests matching the filter, newest
// first, paginated with limit and offset. Empty filter fields are skipped.
//
// Parameters:
// - ctx: The context for the query.
// - filter: Project, status and date-range constraints plus pagination bounds.
//
// Returns:
// - []model.AllocationRequest: The matching requests.
// - error: Returns an APIError if the query or scanning fails.
func (d Datasource) ListAllocations(ctx context.Context, filter model.AllocationFilter) ([]model.AllocationRequest, error) {
	var conditions []string
	var args []interface{}

	appendCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.ProjectID != "" {
		appendCondition("project_id = $%d", filter.ProjectID)
	}
	if filter.Status != "" {
		appendCondition("status = $%d", filter.Status)
	}
	if !filter.From.IsZero() {
		appendCondition("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		appendCondition("created_at <= $%d", filter.To)
	}

	query := "SELECT " + allocationColumns + " FROM allocation_requests"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve allocation requests", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(rows)

	var requests []model.AllocationRequest
	for rows.Next() {
		request, err := scanAllocationRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan allocation request data", err)
		}
		requests = append(requests, *request)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over allocation requests", err)
	}

	return requests, nil
}

// AllocationSummary aggregates request count and precise amount per status.
func (d Datasource) AllocationSummary(ctx context.Context) ([]model.StatusAggregate, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(precise_amount), 0)
		FROM allocation_requests
		GROUP BY status
	`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve allocation summary", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(rows)

	var aggregates []model.StatusAggregate
	for rows.Next() {
		var aggregate model.StatusAggregate
		var sum int64
		if err := rows.Scan(&aggregate.Status, &aggregate.Count, &sum); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan allocation summary data", err)
		}
		aggregate.PreciseAmount = big.NewInt(sum)
		aggregates = append(aggregates, aggregate)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over allocation summary", err)
	}

	return aggregates, nil
}

// ProjectAllocatedTotal sums the committed-or-settled amounts (APPROVED plus
// COMPLETED requests) for one project.
func (d Datasource) ProjectAllocatedTotal(ctx context.Context, projectID string) (*big.Int, error) {
	var total int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(precise_amount), 0)
		FROM allocation_requests
		WHERE project_id = $1 AND status IN ($2, $3)
	`, projectID, model.StatusApproved, model.StatusCompleted).Scan(&total)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve project allocated total", err)
	}

	return big.NewInt(total), nil
}
