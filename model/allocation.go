package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/openalms/fundpool/internal/apierror"
)

const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCompleted = "COMPLETED"
)

// CancelComment is the system-generated decision comment attached when a
// pending request is cancelled instead of decided.
const CancelComment = "request cancelled"

// allocationTransitions is the single source of truth for legal state changes.
// REJECTED and COMPLETED are terminal.
var allocationTransitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// CanTransition reports whether an allocation request may move from one status
// to another.
func CanTransition(from, to string) bool {
	for _, next := range allocationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllocationRequest is a project-funding request flowing through the approval
// workflow. The amount is reserved against the fund ledger at creation and is
// carried as a precise minor-unit value alongside the float representation.
type AllocationRequest struct {
	ID              int64                  `json:"-"`
	AllocationID    string                 `json:"allocation_id"`
	ProjectID       string                 `json:"project_id"`
	Amount          float64                `json:"amount"`
	Precision       float64                `json:"precision"`
	PreciseAmount   *big.Int               `json:"precise_amount"`
	Currency        string                 `json:"currency"`
	Description     string                 `json:"description"`
	Status          string                 `json:"status"`
	RequestedBy     string                 `json:"requested_by"`
	DecidedBy       string                 `json:"decided_by,omitempty"`
	DecisionComment string                 `json:"decision_comment,omitempty"`
	DecidedAt       *time.Time             `json:"decided_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	MetaData        map[string]interface{} `json:"meta_data"`
}

// AllocationFilter narrows read queries over allocation requests.
type AllocationFilter struct {
	ProjectID string
	Status    string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// StatusAggregate is one row of the per-status summary report.
type StatusAggregate struct {
	Status        string   `json:"status"`
	Count         int64    `json:"count"`
	PreciseAmount *big.Int `json:"precise_amount"`
}

// Validate checks the request fields that are fixed at creation.
func (request *AllocationRequest) Validate() error {
	if request.ProjectID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "project_id is required", nil)
	}
	if request.Amount <= 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "allocation amount must be greater than zero", nil)
	}
	if request.RequestedBy == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "requested_by is required", nil)
	}
	return nil
}

// Transition moves the request to the target status, enforcing the legal
// transition table. It records the approver metadata and the decision time.
func (request *AllocationRequest) Transition(to, decidedBy, comment string) error {
	if !CanTransition(request.Status, to) {
		return apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("allocation request cannot move from %s to %s", request.Status, to), nil)
	}
	// Approver metadata is written once, when the request leaves PENDING.
	if request.Status == StatusPending {
		now := time.Now()
		request.DecidedBy = decidedBy
		request.DecisionComment = comment
		request.DecidedAt = &now
	}
	request.Status = to
	return nil
}
