package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/logd/internal/api/models"
	"github.com/smazurov/logd/internal/lifecycle"
	"github.com/smazurov/logd/internal/metrics"
	"github.com/smazurov/logd/internal/routing"
)

func (s *Server) registerDaemonRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Daemon Status",
		Description: "Lifecycle state, uptime, queue depth and entry counters",
		Tags:        []string{"daemon"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		reg := s.options.Engine.Registry()
		totals := metrics.GetTotals()
		return &models.StatusResponse{
			Body: models.StatusData{
				State:         string(s.options.Lifecycle.State()),
				UptimeSeconds: s.options.Lifecycle.Uptime().Seconds(),
				Routes:        reg.Len(),
				Fallbacks:     len(reg.Fallbacks()),
				Pending:       s.options.Engine.Pending(),
				Backlog:       s.options.Engine.Backlog(),
				Totals: models.CounterTotals{
					Submitted:   totals.Submitted,
					Filtered:    totals.Filtered,
					Written:     totals.Written,
					Discarded:   totals.Discarded,
					WriteErrors: totals.WriteErrors,
					Malformed:   totals.Malformed,
				},
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-routes",
		Method:      http.MethodGet,
		Path:        "/api/routes",
		Summary:     "List Routes",
		Description: "The active routing table, including the default route",
		Tags:        []string{"daemon"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.RouteListResponse, error) {
		routes := s.options.Engine.Registry().Routes()
		data := make([]models.RouteData, 0, len(routes))
		for _, r := range routes {
			data = append(data, routeToAPI(r))
		}
		return &models.RouteListResponse{
			Body: models.RouteListData{Routes: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "reload",
		Method:        http.MethodPost,
		Path:          "/api/reload",
		Summary:       "Reload",
		Description:   "Queue a reload, the same transition the reload signal triggers",
		Tags:          []string{"daemon"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ReloadResponse, error) {
		accepted := s.options.Lifecycle.Request(lifecycle.Reload)
		s.logger.Info("Reload requested over API", "accepted", accepted)
		return &models.ReloadResponse{
			Body: models.ReloadData{
				Accepted: accepted,
				State:    string(s.options.Lifecycle.State()),
			},
		}, nil
	})
}

func routeToAPI(r *routing.Route) models.RouteData {
	data := models.RouteData{
		Service:  r.Service,
		Levels:   r.Levels.Levels(),
		Type:     r.Type,
		Options:  r.Options,
		Cull:     r.Cull,
		Fallback: r.Fallback,
	}
	if r.Target != nil {
		data.Target = fmt.Sprint(r.Target)
	}
	if r.Destination != nil {
		data.Destination = r.Destination.Name()
	}
	return data
}
