package model

import "time"

const (
	// FundingModelDirect marks projects funded through directed allocations.
	FundingModelDirect = "direct"
	// FundingModelGeneralPool marks projects funded from the undirected pool;
	// they never accept direct allocations.
	FundingModelGeneralPool = "general_pool"
)

type Project struct {
	ID           int64                  `json:"-"`
	ProjectID    string                 `json:"project_id"`
	Name         string                 `json:"name"`
	FundingModel string                 `json:"funding_model"`
	CreatedAt    time.Time              `json:"created_at"`
	MetaData     map[string]interface{} `json:"meta_data"`
}

// AcceptsDirectAllocation reports whether the project's funding model allows
// money to be allocated to it from the pool.
func (p *Project) AcceptsDirectAllocation() bool {
	return p.FundingModel == FundingModelDirect
}
