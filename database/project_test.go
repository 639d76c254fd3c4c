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
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openalms/fundpool/internal/apierror"
	"github.com/openalms/fundpool/model"
)

func TestCreateProject(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO projects")).
		WithArgs(sqlmock.AnyArg(), "Clean Water Initiative", model.FundingModelDirect, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	project, err := ds.CreateProject(model.Project{
		Name:         "Clean Water Initiative",
		FundingModel: model.FundingModelDirect,
	})
	require.NoError(t, err)
	assert.Contains(t, project.ProjectID, "prj_")
	assert.False(t, project.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProjectDuplicate(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO projects")).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := ds.CreateProject(model.Project{Name: "dup", FundingModel: model.FundingModelDirect})
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
}

func TestGetProject(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"project_id", "name", "funding_model", "created_at", "meta_data"}).
		AddRow("prj_water", "Clean Water Initiative", model.FundingModelDirect, time.Now(), []byte(`{"region":"east"}`))

	mock.ExpectQuery("SELECT project_id, name, funding_model").
		WithArgs("prj_water").
		WillReturnRows(rows)

	project, err := ds.GetProject("prj_water")
	require.NoError(t, err)
	assert.True(t, project.AcceptsDirectAllocation())
	assert.Equal(t, "east", project.MetaData["region"])
}

func TestGetProjectNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)

	mock.ExpectQuery("SELECT project_id, name, funding_model").
		WithArgs("prj_missing").
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}))

	_, err := ds.GetProject("prj_missing")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestListProjects(t *testing.T) {
	ds, mock := newTestDatasource(t)

	rows := sqlmock.NewRows([]string{"project_id", "name", "funding_model", "created_at", "meta_data"}).
		AddRow("prj_water", "Clean Water Initiative", model.FundingModelDirect, time.Now(), nil).
		AddRow("prj_pool", "General Relief", model.FundingModelGeneralPool, time.Now(), nil)

	mock.ExpectQuery("SELECT project_id, name, funding_model").
		WithArgs(20, 0).
		WillReturnRows(rows)

	projects, err := ds.ListProjects(0, 0)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.False(t, projects[1].AcceptsDirectAllocation())
}
