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
	"math/big"

	"github.com/openalms/fundpool/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	fundLedger // Interface for fund-ledger operations
	allocation // Interface for allocation-request operations
	project    // Interface for project-registry operations
}

// fundLedger defines methods for handling the singleton pooled-fund ledger.
type fundLedger interface {
	CreateFundLedger(ledger model.FundLedger) (model.FundLedger, error)    // Creates the ledger row if it does not exist yet (idempotent bootstrap)
	GetFundLedger(id string) (*model.FundLedger, error)                    // Retrieves the ledger with its optimistic-lock version
	UpdateFundLedger(ctx context.Context, ledger *model.FundLedger) error  // Updates the ledger guarded by the version column
}

// allocation defines methods for handling allocation requests. The WithLedger
// variants persist the allocation row and the ledger mutation in one database
// transaction so workflow transitions are all-or-nothing.
type allocation interface {
	CreateAllocationWithLedger(ctx context.Context, request *model.AllocationRequest, ledger *model.FundLedger) (*model.AllocationRequest, error) // Inserts a request and updates the ledger atomically
	UpdateAllocationWithLedger(ctx context.Context, request *model.AllocationRequest, ledger *model.FundLedger) error                             // Updates a request and the ledger atomically
	UpdateAllocation(ctx context.Context, request *model.AllocationRequest) error                                                                 // Updates request fields that do not touch the ledger
	GetAllocation(id string) (*model.AllocationRequest, error)                                                                                    // Retrieves a request by ID
	ListAllocations(ctx context.Context, filter model.AllocationFilter) ([]model.AllocationRequest, error)                                        // Retrieves requests filtered and paginated
	AllocationSummary(ctx context.Context) ([]model.StatusAggregate, error)                                                                       // Aggregates request count and amount per status
	ProjectAllocatedTotal(ctx context.Context, projectID string) (*big.Int, error)                                                                // Sums APPROVED and COMPLETED amounts for a project
}

// project defines methods for handling the project registry.
type project interface {
	CreateProject(project model.Project) (model.Project, error) // Creates a new project
	GetProject(id string) (*model.Project, error)               // Retrieves a project by ID
	ListProjects(limit, offset int) ([]model.Project, error)    // Retrieves projects paginated
}
