package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rpirtspd/internal/api/models"
	"github.com/smazurov/rpirtspd/internal/mounts"
	"github.com/smazurov/rpirtspd/internal/params"
	"github.com/smazurov/rpirtspd/internal/pipeline"
)

// inspectable is implemented by pipeline instances.
type inspectable interface {
	Elements() []*pipeline.Element
	Closed() bool
}

func (s *Server) registerMountRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-mounts",
		Method:      http.MethodGet,
		Path:        "/api/mounts",
		Summary:     "List Mounts",
		Description: "List the RTSP mount points with their launch descriptions and live state",
		Tags:        []string{"mounts"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.MountsResponse, error) {
		list := []mounts.Status{}
		if s.mounts != nil {
			list = s.mounts.Status()
		}
		return &models.MountsResponse{
			Body: models.MountsData{Mounts: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-mount-stages",
		Method:      http.MethodGet,
		Path:        "/api/mounts/{name}/stages",
		Summary:     "Get Mount Stages",
		Description: "Get the elements and current property values of the instance most recently " +
			"registered for a mount point. The instance may already be torn down.",
		Tags:     []string{"mounts"},
		Security: withAuth(),
		Errors:   []int{401, 404},
	}, func(_ context.Context, input *models.StagesRequest) (*models.StagesResponse, error) {
		if s.controller == nil {
			return nil, huma.Error404NotFound("No instance registered for " + input.Name)
		}
		inst, ok := s.controller.Instance(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("No instance registered for " + input.Name)
		}
		view, ok := inst.(inspectable)
		if !ok {
			return nil, huma.Error404NotFound("Instance of " + input.Name + " cannot be inspected")
		}

		body := models.StagesData{
			Stream: input.Name,
			Closed: view.Closed(),
			Stages: []models.StageData{},
		}
		for _, el := range view.Elements() {
			stage := models.StageData{
				Name:       el.Name(),
				Factory:    el.Factory(),
				Properties: el.Properties(),
			}
			if role, ok := params.RoleForStage(el.Name()); ok {
				stage.Role = role.String()
			}
			body.Stages = append(body.Stages, stage)
		}
		return &models.StagesResponse{Body: body}, nil
	})
}
