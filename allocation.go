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
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openalms/fundpool/internal/apierror"
	"github.com/openalms/fundpool/internal/notification"
	"github.com/openalms/fundpool/model"
)

var allocationTracer = otel.Tracer("fundpool.allocations")

// postAllocationActions fires the status webhook for a request that just moved
// through the workflow. The span covers the dispatch only; delivery runs in
// the background and reports failures through the notification path.
func (f *Fundpool) postAllocationActions(ctx context.Context, request *model.AllocationRequest) {
	_, span := allocationTracer.Start(ctx, "PostAllocationActions")
	defer span.End()

	span.AddEvent("Dispatching allocation webhook", trace.WithAttributes(attribute.String("allocation.id", request.AllocationID)))
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   getEventFromStatus(request.Status),
			Payload: request,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

// CreateAllocation validates a funding request, reserves its amount against the
// available pool and persists it in PENDING. The project must exist and accept
// direct allocations; the reservation fails when the available balance cannot
// cover the amount.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - request *model.AllocationRequest: The request to create.
//
// Returns:
// - *model.AllocationRequest: The created request in PENDING status.
// - error: An error if validation, the reservation or persistence fails.
func (f *Fundpool) CreateAllocation(ctx context.Context, request *model.AllocationRequest) (*model.AllocationRequest, error) {
	ctx, span := allocationTracer.Start(ctx, "CreateAllocation")
	defer span.End()

	if err := request.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	project, err := f.datasource.GetProject(request.ProjectID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !project.AcceptsDirectAllocation() {
		err := apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("project '%s' is funded from the general pool and does not accept direct allocations", project.ProjectID), nil)
		span.RecordError(err)
		return nil, err
	}

	request.PreciseAmount = model.Int64ToBigInt(model.ApplyPrecision(request))
	request.Status = model.StatusPending

	err = f.withLedgerLock(ctx, func(ctx context.Context, ledger *model.FundLedger) error {
		if err := ledger.Reserve(request.PreciseAmount); err != nil {
			return err
		}
		if err := ledger.CheckInvariant(); err != nil {
			return err
		}
		if request.Currency == "" {
			request.Currency = ledger.Currency
		}
		ledger.LastUpdated = time.Now()
		_, err := f.datasource.CreateAllocationWithLedger(ctx, request, ledger)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	f.postAllocationActions(ctx, request)
	span.AddEvent("Allocation created", trace.WithAttributes(attribute.String("allocation.id", request.AllocationID)))
	return request, nil
}

// transitionAllocation moves a request to the target status under the ledger
// lock, applying the matching ledger movement, and persists both atomically.
func (f *Fundpool) transitionAllocation(ctx context.Context, id, to, decidedBy, comment string, move func(ledger *model.FundLedger, amount *big.Int) error) (*model.AllocationRequest, error) {
	var request *model.AllocationRequest
	err := f.withLedgerLock(ctx, func(ctx context.Context, ledger *model.FundLedger) error {
		var err error
		request, err = f.datasource.GetAllocation(id)
		if err != nil {
			return err
		}
		if err := request.Transition(to, decidedBy, comment); err != nil {
			return err
		}
		if err := move(ledger, request.PreciseAmount); err != nil {
			return err
		}
		if err := ledger.CheckInvariant(); err != nil {
			return err
		}
		ledger.LastUpdated = time.Now()
		return f.datasource.UpdateAllocationWithLedger(ctx, request, ledger)
	})
	if err != nil {
		return nil, err
	}
	f.postAllocationActions(ctx, request)
	return request, nil
}

// ApproveAllocation commits a pending request: the reservation is released and
// the amount moves into the allocated bucket in one step.
func (f *Fundpool) ApproveAllocation(ctx context.Context, id, decidedBy, comment string) (*model.AllocationRequest, error) {
	ctx, span := allocationTracer.Start(ctx, "ApproveAllocation")
	defer span.End()

	request, err := f.transitionAllocation(ctx, id, model.StatusApproved, decidedBy, comment,
		func(ledger *model.FundLedger, amount *big.Int) error {
			if err := ledger.Release(amount); err != nil {
				return err
			}
			return ledger.Commit(amount)
		})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Allocation approved", trace.WithAttributes(attribute.String("allocation.id", id)))
	return request, nil
}

// RejectAllocation declines a pending request and returns its reservation to
// the available pool.
func (f *Fundpool) RejectAllocation(ctx context.Context, id, decidedBy, comment string) (*model.AllocationRequest, error) {
	ctx, span := allocationTracer.Start(ctx, "RejectAllocation")
	defer span.End()

	request, err := f.transitionAllocation(ctx, id, model.StatusRejected, decidedBy, comment,
		func(ledger *model.FundLedger, amount *big.Int) error {
			return ledger.Release(amount)
		})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Allocation rejected", trace.WithAttributes(attribute.String("allocation.id", id)))
	return request, nil
}

// CancelAllocation withdraws a pending request on behalf of its requester. The
// reservation returns to the pool and the request lands in REJECTED with a
// system-generated comment.
func (f *Fundpool) CancelAllocation(ctx context.Context, id, requestedBy string) (*model.AllocationRequest, error) {
	ctx, span := allocationTracer.Start(ctx, "CancelAllocation")
	defer span.End()

	request, err := f.transitionAllocation(ctx, id, model.StatusRejected, requestedBy, model.CancelComment,
		func(ledger *model.FundLedger, amount *big.Int) error {
			return ledger.Release(amount)
		})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Allocation cancelled", trace.WithAttributes(attribute.String("allocation.id", id)))
	return request, nil
}

// CompleteAllocation settles an approved request: the funds are recorded as
// spent and leave both the allocated bucket and the total balance.
func (f *Fundpool) CompleteAllocation(ctx context.Context, id string) (*model.AllocationRequest, error) {
	ctx, span := allocationTracer.Start(ctx, "CompleteAllocation")
	defer span.End()

	request, err := f.transitionAllocation(ctx, id, model.StatusCompleted, "", "",
		func(ledger *model.FundLedger, amount *big.Int) error {
			return ledger.Settle(amount)
		})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Allocation completed", trace.WithAttributes(attribute.String("allocation.id", id)))
	return request, nil
}

// UpdateAllocation amends a pending request. A description change only touches
// the request row. An amount change re-runs the reservation: the old amount is
// released and the new one reserved in one atomic step, so the ledger never
// double-counts and the update fails cleanly when the larger amount does not
// fit the available balance.
func (f *Fundpool) UpdateAllocation(ctx context.Context, id string, description *string, amount *float64) (*model.AllocationRequest, error) {
	ctx, span := allocationTracer.Start(ctx, "UpdateAllocation")
	defer span.End()

	if description == nil && amount == nil {
		err := apierror.NewAPIError(apierror.ErrInvalidInput, "nothing to update", nil)
		span.RecordError(err)
		return nil, err
	}
	if amount != nil && *amount <= 0 {
		err := apierror.NewAPIError(apierror.ErrInvalidInput, "allocation amount must be greater than zero", nil)
		span.RecordError(err)
		return nil, err
	}

	if amount == nil {
		request, err := f.updateAllocationDescription(ctx, id, *description)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		return request, nil
	}

	var request *model.AllocationRequest
	err := f.withLedgerLock(ctx, func(ctx context.Context, ledger *model.FundLedger) error {
		var err error
		request, err = f.datasource.GetAllocation(id)
		if err != nil {
			return err
		}
		if request.Status != model.StatusPending {
			return apierror.NewAPIError(apierror.ErrInvalidState,
				fmt.Sprintf("allocation request in status %s cannot be amended", request.Status), nil)
		}
		if err := ledger.Release(request.PreciseAmount); err != nil {
			return err
		}
		request.Amount = *amount
		request.PreciseAmount = model.Int64ToBigInt(model.ApplyPrecision(request))
		if description != nil {
			request.Description = *description
		}
		if err := ledger.Reserve(request.PreciseAmount); err != nil {
			return err
		}
		if err := ledger.CheckInvariant(); err != nil {
			return err
		}
		ledger.LastUpdated = time.Now()
		return f.datasource.UpdateAllocationWithLedger(ctx, request, ledger)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Allocation updated", trace.WithAttributes(attribute.String("allocation.id", id)))
	return request, nil
}

// updateAllocationDescription rewrites the description of a pending request
// without going through the ledger lock.
func (f *Fundpool) updateAllocationDescription(ctx context.Context, id, description string) (*model.AllocationRequest, error) {
	request, err := f.datasource.GetAllocation(id)
	if err != nil {
		return nil, err
	}
	if request.Status != model.StatusPending {
		return nil, apierror.NewAPIError(apierror.ErrInvalidState,
			fmt.Sprintf("allocation request in status %s cannot be amended", request.Status), nil)
	}
	request.Description = description
	if err := f.datasource.UpdateAllocation(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// GetAllocation retrieves an allocation request by ID.
func (f *Fundpool) GetAllocation(ctx context.Context, id string) (*model.AllocationRequest, error) {
	_, span := allocationTracer.Start(ctx, "GetAllocation")
	defer span.End()

	request, err := f.datasource.GetAllocation(id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return request, nil
}

// ListAllocations retrieves allocation requests matching the filter.
func (f *Fundpool) ListAllocations(ctx context.Context, filter model.AllocationFilter) ([]model.AllocationRequest, error) {
	ctx, span := allocationTracer.Start(ctx, "ListAllocations")
	defer span.End()

	requests, err := f.datasource.ListAllocations(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Allocations retrieved", trace.WithAttributes(attribute.Int("allocation.count", len(requests))))
	return requests, nil
}

// AllocationSummary aggregates request count and amount per workflow status.
func (f *Fundpool) AllocationSummary(ctx context.Context) ([]model.StatusAggregate, error) {
	ctx, span := allocationTracer.Start(ctx, "AllocationSummary")
	defer span.End()

	return f.datasource.AllocationSummary(ctx)
}

// ProjectAllocatedTotal reports how much has been committed or spent on one
// project.
func (f *Fundpool) ProjectAllocatedTotal(ctx context.Context, projectID string) (*big.Int, error) {
	ctx, span := allocationTracer.Start(ctx, "ProjectAllocatedTotal")
	defer span.End()

	return f.datasource.ProjectAllocatedTotal(ctx, projectID)
}
