package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"inspectline/internal/domain"
	"inspectline/internal/engine"
	"inspectline/internal/events"
	"inspectline/internal/inspection"
	"inspectline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Log      zerolog.Logger
	// WebhookInterval overrides how often the event log is polled for
	// webhook deliveries.
	WebhookInterval time.Duration
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"mission INSP-1001: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope every endpoint returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// Server is the API handler plus the background webhook dispatcher.
type Server struct {
	handler  http.Handler
	webhooks *inspection.Poller
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops webhook delivery. The handler keeps serving.
func (s *Server) Close() {
	if s.webhooks != nil {
		s.webhooks.Stop()
	}
}

// New returns an HTTP handler exposing the Inspectline API.
func New(cfg Config) (*Server, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer, requestLogger(cfg.Log))
	hcfg := huma.DefaultConfig("Inspectline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerInspections(group, cfg.Engine)
	registerOrders(group, cfg.Engine)
	registerUnits(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return &Server{
		handler:  router,
		webhooks: startWebhookDispatcher(cfg.Engine, cfg.Log, cfg.WebhookInterval),
	}, nil
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalid):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	if oas.Components != nil && oas.Components.Schemas != nil {
		oas.Components.Schemas.Map()["ApiError"] = &huma.Schema{
			Type: huma.TypeObject,
			Properties: map[string]*huma.Schema{
				"error": {
					Type: huma.TypeObject,
					Properties: map[string]*huma.Schema{
						"code":    {Type: huma.TypeString},
						"message": {Type: huma.TypeString},
						"details": {Type: huma.TypeObject},
					},
					Required: []string{"code", "message"},
				},
			},
			Required: []string{"error"},
		}
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="he">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Inspectline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string
	}, error) {
		return &struct {
			Body map[string]string
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerInspections(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-inspections",
		Method:      http.MethodGet,
		Path:        "/inspections",
		Summary:     "List missions of one kind",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Kind string `query:"kind" required:"true" enum:"exit,cleaning,monthly"`
	}) (*struct {
		Body []MissionResponse
	}, error) {
		items, err := e.ListMissions(ctx, domain.Kind(input.Kind))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []MissionResponse
		}{Body: mapMissions(items, e.Resolver())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-inspection",
		Method:      http.MethodGet,
		Path:        "/inspections/{id}",
		Summary:     "Get mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body MissionResponse
	}, error) {
		m, err := e.GetMission(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MissionResponse
		}{Body: missionResponse(m, e.Resolver())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sync-inspections",
		Method:      http.MethodPost,
		Path:        "/inspections/sync",
		Summary:     "Create missing missions from orders or units",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Kind string `query:"kind" required:"true" enum:"exit,cleaning,monthly"`
	}) (*struct {
		Body domain.SyncResult
	}, error) {
		res, err := e.SyncMissions(ctx, domain.Kind(input.Kind))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SyncResult
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-inspection",
		Method:      http.MethodPost,
		Path:        "/inspections",
		Summary:     "Save a mission and its tasks",
		Description: "Tasks are stored one by one. The counts report how many were stored; stale tasks are removed only when all of them were.",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body SaveMissionRequest
	}) (*struct {
		Body SaveMissionResponse
	}, error) {
		res, err := e.SaveMission(ctx, input.Body.mission())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SaveMissionResponse
		}{Body: saveResponse(res, e.Resolver())}, nil
	})
}

func registerOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      http.MethodGet,
		Path:        "/orders",
		Summary:     "List orders",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Order
	}, error) {
		orders, err := e.ListOrders(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Order
		}{Body: orders}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-order",
		Method:      http.MethodPut,
		Path:        "/orders/{id}",
		Summary:     "Create or replace an order",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body OrderRequest
	}) (*struct {
		Body domain.Order
	}, error) {
		o, err := e.UpsertOrder(ctx, input.Body.order(input.ID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Order
		}{Body: o}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-order",
		Method:        http.MethodDelete,
		Path:          "/orders/{id}",
		Summary:       "Delete an order",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteOrder(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerUnits(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-units",
		Method:      http.MethodGet,
		Path:        "/units",
		Summary:     "List the unit catalog",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Unit
	}, error) {
		units := e.Units()
		if units == nil {
			units = []domain.Unit{}
		}
		return &struct {
			Body []domain.Unit
		}{Body: units}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events after a cursor",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type   string `query:"type"`
		Limit  int    `query:"limit" default:"50"`
		After  string `query:"after" doc:"Return events with ids greater than this cursor"`
	}) (*struct {
		Body paginatedEvents
	}, error) {
		if input.Type != "" && !isEventType(input.Type) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "unknown event type", map[string]any{"type": input.Type})
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.After != "" {
			parsed, err := strconv.ParseInt(input.After, 10, 64)
			if err != nil || parsed < 0 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"after": input.After})
			}
			cursorID = parsed
		}
		items, err := e.ListEvents(ctx, cursorID, limit+1, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents
		}{Body: resp}, nil
	})
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func isEventType(t string) bool {
	for _, known := range events.Types {
		if known == t {
			return true
		}
	}
	return false
}
