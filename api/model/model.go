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
package model

import (
	"math/big"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/openalms/fundpool/model"
)

// ToMinorUnits converts a major-unit amount to a precise minor-unit integer.
// The multiplication goes through decimal arithmetic so amounts like 0.1 with
// precision 100 land on exactly 10 rather than a float approximation.
func ToMinorUnits(amount, precision float64) *big.Int {
	result := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(precision)).Round(0)
	return big.NewInt(result.IntPart())
}

func (l *LedgerMovement) ValidateLedgerMovement() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Amount, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

func (w *WarningLine) ValidateWarningLine() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Amount, validation.Min(0.0)),
	)
}

func (a *CreateAllocation) ValidateCreateAllocation() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.ProjectID, validation.Required),
		validation.Field(&a.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&a.RequestedBy, validation.Required),
	)
}

func (d *AllocationDecision) ValidateAllocationDecision() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.DecidedBy, validation.Required),
	)
}

func (c *CancelAllocation) ValidateCancelAllocation() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RequestedBy, validation.Required),
	)
}

func (u *UpdateAllocation) ValidateUpdateAllocation() error {
	if u.Amount == nil && u.Description == nil {
		return validation.NewError("validation_update_empty", "at least one of amount or description is required")
	}
	if u.Amount != nil && *u.Amount <= 0 {
		return validation.NewError("validation_amount_invalid", "amount must be greater than zero")
	}
	return nil
}

func (p *CreateProject) ValidateCreateProject() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.FundingModel, validation.Required, validation.In(model.FundingModelDirect, model.FundingModelGeneralPool)),
	)
}

func (a *CreateAllocation) ToAllocationRequest(precision float64) *model.AllocationRequest {
	return &model.AllocationRequest{
		ProjectID:   a.ProjectID,
		Amount:      a.Amount,
		Precision:   precision,
		Description: a.Description,
		RequestedBy: a.RequestedBy,
		MetaData:    a.MetaData,
	}
}

func (p *CreateProject) ToProject() model.Project {
	return model.Project{Name: p.Name, FundingModel: p.FundingModel, MetaData: p.MetaData}
}
