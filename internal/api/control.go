package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rpirtspd/internal/api/models"
	"github.com/smazurov/rpirtspd/internal/control"
	"github.com/smazurov/rpirtspd/internal/metrics"
	"github.com/smazurov/rpirtspd/internal/params"
)

// registerControlRoutes registers the command endpoint and the parameter
// registry listing.
func (s *Server) registerControlRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "apply-command",
		Method:      http.MethodPost,
		Path:        "/api/control",
		Summary:     "Apply Command",
		Description: "Apply a configuration command to the live pipeline instances. " +
			"Directive failures do not fail the request; each one is reported in the results.",
		Tags:     []string{"control"},
		Security: withAuth(),
		Errors:   []int{400, 401, 503},
	}, func(_ context.Context, input *models.ControlRequest) (*models.ControlResponse, error) {
		if s.controller == nil {
			return nil, huma.Error503ServiceUnavailable("Controller not available")
		}

		source := input.Source
		if source == "" {
			source = "http"
		}
		metrics.IncCommand(source)

		outcomes := control.Outcomes(s.controller.Apply(input.Body.Command))
		body := models.ControlData{Results: outcomes}
		for _, o := range outcomes {
			if o.Error != "" {
				body.Rejected++
			} else if o.Applied {
				body.Applied++
			}
		}
		return &models.ControlResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-params",
		Method:      http.MethodGet,
		Path:        "/api/params",
		Summary:     "List Parameters",
		Description: "List the parameter names each stage role accepts, in lookup priority order",
		Tags:        []string{"control"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ParamsResponse, error) {
		registry := params.DefaultRegistry()
		if s.controller != nil {
			registry = s.controller.Registry()
		}

		roles := params.Roles()
		body := models.ParamsData{Roles: make([]models.RoleParams, 0, len(roles))}
		for _, role := range roles {
			body.Roles = append(body.Roles, models.RoleParams{
				Role:  role.String(),
				Stage: role.StageName(),
				Keys:  registry.Whitelist(role),
			})
		}
		return &models.ParamsResponse{Body: body}, nil
	})
}
