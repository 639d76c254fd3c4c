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

	"github.com/openalms/fundpool/model"
)

type MockFundpool struct {
	Fundpool
	mockGetAllocation func(string) (*model.AllocationRequest, error)
}

func (m *MockFundpool) GetAllocation(id string) (*model.AllocationRequest, error) {
	if m.mockGetAllocation != nil {
		return m.mockGetAllocation(id)
	}
	return m.Fundpool.GetAllocation(context.Background(), id)
}
