package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/logd/internal/api/models"
	"github.com/smazurov/logd/internal/nats"
)

func (s *Server) registerEntryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "submit-entries",
		Method:        http.MethodPost,
		Path:          "/api/entries",
		Summary:       "Submit Entries",
		Description:   "Queue log entries for routing. Entries are written on the next write cycle.",
		Tags:          []string{"entries"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 422},
	}, func(_ context.Context, input *models.SubmitEntriesRequest) (*models.SubmitEntriesResponse, error) {
		for _, e := range input.Body.Entries {
			severity := e.Severity
			if severity == "" {
				severity = nats.DefaultSeverity
			}
			s.options.Engine.Submit(e.Service, severity, e.Message)
		}
		return &models.SubmitEntriesResponse{
			Body: models.SubmitEntriesData{Accepted: len(input.Body.Entries)},
		}, nil
	})
}
