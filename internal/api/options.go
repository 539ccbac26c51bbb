package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rpirtspd/internal/api/models"
	"github.com/smazurov/rpirtspd/internal/control"
)

// registerOptionsRoutes registers the stored option listing.
func (s *Server) registerOptionsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-stored-options",
		Method:      http.MethodGet,
		Path:        "/api/options",
		Summary:     "Get Stored Options",
		Description: "Get the options replayed onto newly built pipeline instances. " +
			"Empty unless control.persist is enabled; a reset directive clears it.",
		Tags:     []string{"control"},
		Security: withAuth(),
		Errors:   []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.OptionsResponse, error) {
		body := models.OptionsData{Options: []control.StoredOption{}}
		if s.controller != nil {
			body.Persist = s.controller.PersistEnabled()
			if opts := s.controller.StoredOptions(); opts != nil {
				body.Options = opts
			}
		}
		body.Count = len(body.Options)
		return &models.OptionsResponse{Body: body}, nil
	})
}
