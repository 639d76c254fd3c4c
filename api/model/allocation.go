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

// CreateAllocation is the request body for opening a funding request against
// the pool.
type CreateAllocation struct {
	ProjectID   string                 `json:"project_id"`
	Amount      float64                `json:"amount"`
	Description string                 `json:"description"`
	RequestedBy string                 `json:"requested_by"`
	MetaData    map[string]interface{} `json:"meta_data"`
}

// AllocationDecision is the request body for approving or rejecting a pending
// request.
type AllocationDecision struct {
	DecidedBy string `json:"decided_by"`
	Comment   string `json:"comment"`
}

// CancelAllocation is the request body for withdrawing a pending request.
type CancelAllocation struct {
	RequestedBy string `json:"requested_by"`
}

// UpdateAllocation is the request body for amending a pending request.
// Fields left out of the payload are not changed.
type UpdateAllocation struct {
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
}
