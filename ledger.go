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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openalms/fundpool/config"
	"github.com/openalms/fundpool/internal/notification"
	"github.com/openalms/fundpool/model"
)

var ledgerTracer = otel.Tracer("fundpool.ledger")

// BootstrapLedger ensures the pooled-fund ledger row exists. It is called on
// every server start and is a no-op when the row is already there.
func (f *Fundpool) BootstrapLedger(ctx context.Context) error {
	_, span := ledgerTracer.Start(ctx, "BootstrapLedger")
	defer span.End()

	configuration, err := config.Fetch()
	if err != nil {
		span.RecordError(err)
		return err
	}
	_, err = f.datasource.CreateFundLedger(model.FundLedger{
		LedgerID: model.PoolLedgerID,
		Currency: configuration.Ledger.Currency,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.AddEvent("Fund ledger ready", trace.WithAttributes(attribute.String("ledger.id", model.PoolLedgerID)))
	return nil
}

// postLedgerActions fires the low-balance webhook when a mutation left the
// available balance under the warning line.
func (f *Fundpool) postLedgerActions(ctx context.Context, ledger *model.FundLedger) {
	_, span := ledgerTracer.Start(ctx, "PostLedgerActions")
	defer span.End()

	if !ledger.IsUnderWarningLine() {
		return
	}
	span.AddEvent("Available balance under warning line")
	status := ledger.Status()
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   "ledger.low_balance",
			Payload: status,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

// mutateLedger runs a single-bucket ledger mutation under the distributed lock
// and persists the result.
func (f *Fundpool) mutateLedger(ctx context.Context, mutate func(ledger *model.FundLedger) error) (*model.FundLedger, error) {
	var updated *model.FundLedger
	err := f.withLedgerLock(ctx, func(ctx context.Context, ledger *model.FundLedger) error {
		if err := mutate(ledger); err != nil {
			return err
		}
		if err := ledger.CheckInvariant(); err != nil {
			return err
		}
		ledger.LastUpdated = time.Now()
		if err := f.datasource.UpdateFundLedger(ctx, ledger); err != nil {
			return err
		}
		updated = ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	f.postLedgerActions(ctx, updated)
	return updated, nil
}

// Deposit records an incoming donation: total and available balances grow by
// the amount.
func (f *Fundpool) Deposit(ctx context.Context, amount *big.Int) (*model.FundLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "Deposit")
	defer span.End()

	ledger, err := f.mutateLedger(ctx, func(ledger *model.FundLedger) error {
		return ledger.Deposit(amount)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Deposit applied", trace.WithAttributes(attribute.String("ledger.amount", amount.String())))
	return ledger, nil
}

// Withdraw removes unallocated funds from the pool, for refunds or transfers
// out. Reserved and allocated funds cannot be withdrawn.
func (f *Fundpool) Withdraw(ctx context.Context, amount *big.Int) (*model.FundLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "Withdraw")
	defer span.End()

	ledger, err := f.mutateLedger(ctx, func(ledger *model.FundLedger) error {
		return ledger.Withdraw(amount)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Withdrawal applied", trace.WithAttributes(attribute.String("ledger.amount", amount.String())))
	return ledger, nil
}

// SetWarningLine replaces the low-balance alert threshold. Zero disables the
// alert.
func (f *Fundpool) SetWarningLine(ctx context.Context, amount *big.Int) (*model.FundLedger, error) {
	ctx, span := ledgerTracer.Start(ctx, "SetWarningLine")
	defer span.End()

	ledger, err := f.mutateLedger(ctx, func(ledger *model.FundLedger) error {
		return ledger.SetWarningLine(amount)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ledger, nil
}

// LedgerStatus returns the read-only view of the ledger: all four buckets, the
// warning flag and the available-to-total percentage.
func (f *Fundpool) LedgerStatus(ctx context.Context) (*model.LedgerStatus, error) {
	_, span := ledgerTracer.Start(ctx, "LedgerStatus")
	defer span.End()

	ledger, err := f.datasource.GetFundLedger(model.PoolLedgerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	status := ledger.Status()
	return &status, nil
}
