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
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openalms/fundpool/internal/apierror"
	"github.com/openalms/fundpool/model"
)

var projectTracer = otel.Tracer("fundpool.projects")

// CreateProject registers a new project in the registry.
func (f *Fundpool) CreateProject(ctx context.Context, project model.Project) (model.Project, error) {
	_, span := projectTracer.Start(ctx, "CreateProject")
	defer span.End()

	if project.Name == "" {
		err := apierror.NewAPIError(apierror.ErrInvalidInput, "project name is required", nil)
		span.RecordError(err)
		return model.Project{}, err
	}
	if project.FundingModel != model.FundingModelDirect && project.FundingModel != model.FundingModelGeneralPool {
		err := apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("funding model must be '%s' or '%s'", model.FundingModelDirect, model.FundingModelGeneralPool), nil)
		span.RecordError(err)
		return model.Project{}, err
	}

	project, err := f.datasource.CreateProject(project)
	if err != nil {
		span.RecordError(err)
		return model.Project{}, err
	}
	span.AddEvent("Project created", trace.WithAttributes(attribute.String("project.id", project.ProjectID)))
	return project, nil
}

// GetProject retrieves a project by ID.
func (f *Fundpool) GetProject(ctx context.Context, id string) (*model.Project, error) {
	_, span := projectTracer.Start(ctx, "GetProject")
	defer span.End()

	project, err := f.datasource.GetProject(id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return project, nil
}

// ListProjects retrieves projects paginated.
func (f *Fundpool) ListProjects(ctx context.Context, limit, offset int) ([]model.Project, error) {
	_, span := projectTracer.Start(ctx, "ListProjects")
	defer span.End()

	projects, err := f.datasource.ListProjects(limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("Projects retrieved", trace.WithAttributes(attribute.Int("project.count", len(projects))))
	return projects, nil
}
