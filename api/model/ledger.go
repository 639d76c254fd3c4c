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

// LedgerMovement is the request body for deposits and withdrawals. Amounts are
// major units; the server converts them to precise minor units using the
// configured ledger precision.
type LedgerMovement struct {
	Amount float64 `json:"amount"`
}

// WarningLine is the request body for replacing the low-balance alert
// threshold. Zero disables the alert.
type WarningLine struct {
	Amount float64 `json:"amount"`
}
