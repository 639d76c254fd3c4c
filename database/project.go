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
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/openalms/fundpool/internal/apierror"
	"github.com/openalms/fundpool/model"
)

// CreateProject registers a new project in the registry.
//
// Parameters:
// - project: A model.Project with name and funding model set; ID and timestamp are populated here.
//
// Returns:
// - model.Project: The persisted project.
// - error: Returns an APIError on duplicate IDs or other database failures.
func (d Datasource) CreateProject(project model.Project) (model.Project, error) {
	metaDataJSON, err := json.Marshal(project.MetaData)
	if err != nil {
		return model.Project{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	project.ProjectID = model.GenerateUUIDWithSuffix("prj")
	project.CreatedAt = time.Now()

	_, err = d.Conn.Exec(`
		INSERT INTO projects (project_id, name, funding_model, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5)
	`, project.ProjectID, project.Name, project.FundingModel, project.CreatedAt, metaDataJSON)
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Project{}, apierror.NewAPIError(apierror.ErrConflict, "Project with this ID already exists", err)
			case "check_violation":
				return model.Project{}, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid funding model", err)
			default:
				return model.Project{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Project{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create project", err)
	}

	return project, nil
}

// GetProject retrieves a project by its unique ID.
func (d Datasource) GetProject(id string) (*model.Project, error) {
	var project model.Project
	var metaDataJSON []byte

	row := d.Conn.QueryRow(`
		SELECT project_id, name, funding_model, created_at, meta_data
		FROM projects
		WHERE project_id = $1
	`, id)

	err := row.Scan(&project.ProjectID, &project.Name, &project.FundingModel, &project.CreatedAt, &metaDataJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Project with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan project data", err)
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &project.MetaData); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
		}
	}

	return &project, nil
}

// ListProjects retrieves projects paginated, newest first.
func (d Datasource) ListProjects(limit, offset int) ([]model.Project, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.Conn.Query(`
		SELECT project_id, name, funding_model, created_at, meta_data
		FROM projects
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve projects", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logrus.Error(err)
		}
	}(rows)

	var projects []model.Project
	for rows.Next() {
		var project model.Project
		var metaDataJSON []byte
		if err := rows.Scan(&project.ProjectID, &project.Name, &project.FundingModel, &project.CreatedAt, &metaDataJSON); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan project data", err)
		}
		if len(metaDataJSON) > 0 {
			if err := json.Unmarshal(metaDataJSON, &project.MetaData); err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
			}
		}
		projects = append(projects, project)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over projects", err)
	}

	return projects, nil
}
