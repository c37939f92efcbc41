package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/logd/internal/api/models"
	"github.com/smazurov/logd/internal/events"
	"github.com/smazurov/logd/internal/logging"
)

func (s *Server) registerDiagnosticsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-diagnostics",
		Method:      http.MethodGet,
		Path:        "/api/diagnostics",
		Summary:     "Diagnostics",
		Description: "Most recent records of the daemon's own log, oldest first",
		Tags:        []string{"diagnostics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.DiagnosticsRequest) (*models.DiagnosticsResponse, error) {
		var entries []logging.LogEntry
		if input.After > 0 {
			entries = logging.GetBuffer().Since(input.After)
			if len(entries) > input.Limit {
				entries = entries[:input.Limit]
			}
		} else {
			entries = logging.GetBuffer().Tail(input.Limit)
		}

		data := models.DiagnosticsData{Lines: make([]string, 0, len(entries)), Last: input.After}
		for _, entry := range entries {
			data.Lines = append(data.Lines, logging.FormatLogLine(entry))
			data.Last = entry.Seq
		}
		data.Count = len(data.Lines)
		return &models.DiagnosticsResponse{Body: data}, nil
	})
}

// registerEventRoutes registers the daemon event stream.
func (s *Server) registerEventRoutes() {
	if s.options.EventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Lifecycle transitions, reload results, destination errors and diagnostics",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"state-changed": events.StateChangedEvent{},
		"reloaded":      events.ReloadedEvent{},
		"write-error":   events.WriteErrorEvent{},
		"diagnostic":    events.DiagnosticEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 100)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StateChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.ReloadedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.WriteErrorEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.DiagnosticEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state first so clients need no separate status call
		if err := send.Data(events.StateChangedEvent{
			To: string(s.options.Lifecycle.State()),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
