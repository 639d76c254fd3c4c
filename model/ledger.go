package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/openalms/fundpool/internal/apierror"
)

// PoolLedgerID is the fixed identifier of the organization's pooled fund ledger.
// There is exactly one live ledger row; every deposit, withdrawal and allocation
// contends on it.
const PoolLedgerID = "ldg_pool_default"

// FundLedger tracks the organization's pooled funds across four buckets.
// Invariant: TotalBalance == AvailableBalance + AllocatedAmount + PendingAmount,
// and every bucket is non-negative. Each mutation moves a compensating pair of
// buckets in one step so the invariant holds at all times.
type FundLedger struct {
	ID               int64                  `json:"-"`
	LedgerID         string                 `json:"ledger_id"`
	TotalBalance     *big.Int               `json:"total_balance"`
	AvailableBalance *big.Int               `json:"available_balance"`
	AllocatedAmount  *big.Int               `json:"allocated_amount"`
	PendingAmount    *big.Int               `json:"pending_amount"`
	WarningLine      *big.Int               `json:"warning_line"`
	Currency         string                 `json:"currency"`
	Version          int64                  `json:"-"`
	LastUpdated      time.Time              `json:"last_updated"`
	CreatedAt        time.Time              `json:"created_at"`
	MetaData         map[string]interface{} `json:"meta_data"`
}

// LedgerStatus is the read-only view of the ledger returned to callers.
type LedgerStatus struct {
	LedgerID           string    `json:"ledger_id"`
	TotalBalance       *big.Int  `json:"total_balance"`
	AvailableBalance   *big.Int  `json:"available_balance"`
	AllocatedAmount    *big.Int  `json:"allocated_amount"`
	PendingAmount      *big.Int  `json:"pending_amount"`
	WarningLine        *big.Int  `json:"warning_line"`
	Currency           string    `json:"currency"`
	IsUnderWarningLine bool      `json:"is_under_warning_line"`
	BalancePercentage  float64   `json:"balance_percentage"`
	LastUpdated        time.Time `json:"last_updated"`
}

// InitializeLedgerFields initializes all the bucket fields that might be nil.
// This ensures every field holds a valid *big.Int before any arithmetic.
func (ledger *FundLedger) InitializeLedgerFields() {
	if ledger.TotalBalance == nil {
		ledger.TotalBalance = big.NewInt(0)
	}
	if ledger.AvailableBalance == nil {
		ledger.AvailableBalance = big.NewInt(0)
	}
	if ledger.AllocatedAmount == nil {
		ledger.AllocatedAmount = big.NewInt(0)
	}
	if ledger.PendingAmount == nil {
		ledger.PendingAmount = big.NewInt(0)
	}
	if ledger.WarningLine == nil {
		ledger.WarningLine = big.NewInt(0)
	}
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "amount must be greater than zero", nil)
	}
	return nil
}

// Deposit adds funds to the pool: total and available grow together.
func (ledger *FundLedger) Deposit(amount *big.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	ledger.InitializeLedgerFields()
	ledger.TotalBalance.Add(ledger.TotalBalance, amount)
	ledger.AvailableBalance.Add(ledger.AvailableBalance, amount)
	return nil
}

// Withdraw removes unallocated funds from the pool.
func (ledger *FundLedger) Withdraw(amount *big.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	ledger.InitializeLedgerFields()
	if ledger.AvailableBalance.Cmp(amount) < 0 {
		return apierror.NewAPIError(apierror.ErrInsufficientFunds, "available balance is lower than the withdrawal amount", nil)
	}
	ledger.TotalBalance.Sub(ledger.TotalBalance, amount)
	ledger.AvailableBalance.Sub(ledger.AvailableBalance, amount)
	return nil
}

// Reserve earmarks available funds for an allocation request awaiting a decision.
func (ledger *FundLedger) Reserve(amount *big.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	ledger.InitializeLedgerFields()
	if ledger.AvailableBalance.Cmp(amount) < 0 {
		return apierror.NewAPIError(apierror.ErrInsufficientFunds, "available balance is lower than the reservation amount", nil)
	}
	ledger.AvailableBalance.Sub(ledger.AvailableBalance, amount)
	ledger.PendingAmount.Add(ledger.PendingAmount, amount)
	return nil
}

// Release returns a reservation to the available pool.
func (ledger *FundLedger) Release(amount *big.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	ledger.InitializeLedgerFields()
	if ledger.PendingAmount.Cmp(amount) < 0 {
		return apierror.NewAPIError(apierror.ErrInvalidState, "pending amount is lower than the release amount", nil)
	}
	ledger.PendingAmount.Sub(ledger.PendingAmount, amount)
	ledger.AvailableBalance.Add(ledger.AvailableBalance, amount)
	return nil
}

// Commit moves available funds into the allocated bucket upon approval.
func (ledger *FundLedger) Commit(amount *big.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	ledger.InitializeLedgerFields()
	if ledger.AvailableBalance.Cmp(amount) < 0 {
		return apierror.NewAPIError(apierror.ErrInsufficientFunds, "available balance is lower than the commit amount", nil)
	}
	ledger.AvailableBalance.Sub(ledger.AvailableBalance, amount)
	ledger.AllocatedAmount.Add(ledger.AllocatedAmount, amount)
	return nil
}

// Settle marks allocated funds as permanently spent. The amount leaves both the
// allocated bucket and the total balance; it does not return to the available
// pool.
func (ledger *FundLedger) Settle(amount *big.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	ledger.InitializeLedgerFields()
	if ledger.AllocatedAmount.Cmp(amount) < 0 {
		return apierror.NewAPIError(apierror.ErrInvalidState, "allocated amount is lower than the settlement amount", nil)
	}
	ledger.AllocatedAmount.Sub(ledger.AllocatedAmount, amount)
	ledger.TotalBalance.Sub(ledger.TotalBalance, amount)
	return nil
}

// SetWarningLine replaces the low-balance alert threshold. Zero disables it.
func (ledger *FundLedger) SetWarningLine(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "warning line must be zero or greater", nil)
	}
	ledger.InitializeLedgerFields()
	ledger.WarningLine = new(big.Int).Set(amount)
	return nil
}

// IsUnderWarningLine reports whether the available balance has dropped below the
// configured warning line. A zero warning line never triggers.
func (ledger *FundLedger) IsUnderWarningLine() bool {
	ledger.InitializeLedgerFields()
	if ledger.WarningLine.Sign() == 0 {
		return false
	}
	return ledger.AvailableBalance.Cmp(ledger.WarningLine) < 0
}

// Status derives the caller-facing view of the ledger, including the warning
// flag and the available-to-total percentage (0 when the pool is empty).
func (ledger *FundLedger) Status() LedgerStatus {
	ledger.InitializeLedgerFields()
	percentage := 0.0
	if ledger.TotalBalance.Sign() > 0 {
		ratio := new(big.Float).Quo(new(big.Float).SetInt(ledger.AvailableBalance), new(big.Float).SetInt(ledger.TotalBalance))
		percentage, _ = new(big.Float).Mul(ratio, big.NewFloat(100)).Float64()
	}
	return LedgerStatus{
		LedgerID:           ledger.LedgerID,
		TotalBalance:       new(big.Int).Set(ledger.TotalBalance),
		AvailableBalance:   new(big.Int).Set(ledger.AvailableBalance),
		AllocatedAmount:    new(big.Int).Set(ledger.AllocatedAmount),
		PendingAmount:      new(big.Int).Set(ledger.PendingAmount),
		WarningLine:        new(big.Int).Set(ledger.WarningLine),
		Currency:           ledger.Currency,
		IsUnderWarningLine: ledger.IsUnderWarningLine(),
		BalancePercentage:  percentage,
		LastUpdated:        ledger.LastUpdated,
	}
}

// CheckInvariant verifies the bucket sum and non-negativity after a mutation.
func (ledger *FundLedger) CheckInvariant() error {
	ledger.InitializeLedgerFields()
	for name, bucket := range map[string]*big.Int{
		"total_balance":     ledger.TotalBalance,
		"available_balance": ledger.AvailableBalance,
		"allocated_amount":  ledger.AllocatedAmount,
		"pending_amount":    ledger.PendingAmount,
	} {
		if bucket.Sign() < 0 {
			return apierror.NewAPIError(apierror.ErrInternalServer, fmt.Sprintf("ledger bucket %s is negative", name), nil)
		}
	}
	sum := new(big.Int).Add(ledger.AvailableBalance, ledger.AllocatedAmount)
	sum.Add(sum, ledger.PendingAmount)
	if ledger.TotalBalance.Cmp(sum) != 0 {
		return apierror.NewAPIError(apierror.ErrInternalServer, "ledger buckets do not sum to the total balance", nil)
	}
	return nil
}
