package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sjournalfx-cmyk/teamhub/internal/copilot"
	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
	"github.com/sjournalfx-cmyk/teamhub/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Store      *store.Store
	Reconciler *copilot.Reconciler
	Workspace  string
	BasePath   string
	Auth       AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"evidence_required"`
	Message string         `json:"message" example:"deliverables required before completion"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the TeamHub API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
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
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("TeamHub API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerSession(group, cfg)
	registerState(group, cfg.Store)
	registerTasks(group, cfg.Store)
	registerBoard(group, cfg.Store)
	registerGoals(group, cfg.Store)
	registerUsers(group, cfg.Store)
	registerActivity(group, cfg.Store)
	registerFriction(group, cfg.Store)
	registerReport(group, cfg.Store, cfg.Reconciler)
	registerCopilot(group, cfg.Store, cfg.Reconciler)
	registerOpenAPI(router, api, basePath)

	return router, nil
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
	case errors.Is(err, store.ErrEvidenceRequired):
		return newAPIError(http.StatusUnprocessableEntity, "evidence_required", err.Error(), nil)
	case errors.Is(err, store.ErrNotAccepted):
		return newAPIError(http.StatusConflict, "directive_not_accepted", err.Error(), nil)
	case errors.Is(err, copilot.ErrUnavailable):
		return newAPIError(http.StatusServiceUnavailable, "assistant_unavailable", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "not found"):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
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
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

// actorFromContext resolves the request principal against the roster so
// activity entries carry a display name.
func actorFromContext(ctx context.Context, st *store.Store) (store.Actor, huma.StatusError) {
	p, ok := principalFromContext(ctx)
	if !ok || p.UserID == "" {
		return store.Actor{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
	actor := store.Actor{UserID: p.UserID, Name: p.UserID, Role: p.Role}
	if u, found := st.State().UserByID(p.UserID); found {
		actor.Name = u.Name
	}
	return actor, nil
}

func findTask(st *store.Store, id string) (domain.Task, huma.StatusError) {
	task, ok := st.State().TaskByID(id)
	if !ok {
		return domain.Task{}, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("directive %q not found", id), nil)
	}
	return task, nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	open := map[string]bool{
		path.Join("/", basePath, "health"):        true,
		path.Join("/", basePath, "session/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>TeamHub API Docs</title>
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
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerSession(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "session-login",
		Method:      http.MethodPost,
		Path:        "/session/login",
		Summary:     "Open a session",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body LoginResponse `json:"body"`
	}, error) {
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "userId is required", nil)
		}
		user, ok := cfg.Store.State().UserByID(input.Body.UserID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("user %q not found", input.Body.UserID), nil)
		}
		role := domain.Role(input.Body.Role)
		if role != domain.RoleAdmin {
			role = domain.RolePerformer
		}
		token, err := IssueToken(cfg.Auth.JWTSecret, user.ID, role, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, handleError(err)
		}
		actor := store.Actor{UserID: user.ID, Name: user.Name, Role: role}
		if err := cfg.Store.RecordSession(ctx, actor, true, cfg.Workspace); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LoginResponse `json:"body"`
		}{Body: LoginResponse{Token: token, UserID: user.ID, Role: role}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-logout",
		Method:      http.MethodPost,
		Path:        "/session/logout",
		Summary:     "Close the session",
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx, cfg.Store)
		if authErr != nil {
			return nil, authErr
		}
		if err := cfg.Store.RecordSession(ctx, actor, false, cfg.Workspace); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerState(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/state",
		Summary:     "Full workspace state",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.AppState `json:"body"`
	}, error) {
		return &struct {
			Body domain.AppState `json:"body"`
		}{Body: st.State()}, nil
	})
}

func registerTasks(api huma.API, st *store.Store) {
	type taskPath struct {
		TaskID string `path:"task_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List directives",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: st.State().Tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create directive",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		priority := domain.Priority(input.Body.Priority)
		if priority == "" {
			priority = domain.PriorityMedium
		}
		if !domain.ValidPriority(priority) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid priority %q", input.Body.Priority), nil)
		}
		day := domain.Day(input.Body.Day)
		if day == "" {
			day = domain.DayBacklog
		}
		if !domain.ValidDay(day) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid day %q", input.Body.Day), nil)
		}
		estimate := 1.0
		if input.Body.EstimateHours != nil {
			estimate = *input.Body.EstimateHours
		}
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		task := domain.Task{
			Title:         input.Body.Title,
			Description:   input.Body.Description,
			Priority:      priority,
			Status:        domain.StatusNotStarted,
			Day:           day,
			EstimateHours: estimate,
			AssigneeID:    input.Body.AssigneeID,
			GoalID:        input.Body.GoalID,
			MilestoneID:   input.Body.MilestoneID,
			DependencyID:  input.Body.DependencyID,
			Tags:          input.Body.Tags,
		}
		if err := st.AddTask(ctx, actor, task); err != nil {
			return nil, handleError(err)
		}
		tasks := st.State().Tasks
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: tasks[len(tasks)-1]}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Fetch directive",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		task, notFound := findTask(st, input.TaskID)
		if notFound != nil {
			return nil, notFound
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}",
		Summary:     "Replace directive",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body domain.Task `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		task := input.Body
		task.ID = input.TaskID
		if err := st.UpdateTask(ctx, actor, task); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}",
		Summary:     "Delete directive",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.DeleteTask(ctx, actor, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Set directive status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body StatusRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		status := domain.TaskStatus(input.Body.Status)
		if !domain.ValidStatus(status) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid status %q", input.Body.Status), nil)
		}
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.UpdateTaskStatus(ctx, actor, input.TaskID, status); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/move",
		Summary:     "Move directive to a day",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body MoveRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		day := domain.Day(input.Body.Day)
		if !domain.ValidDay(day) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid day %q", input.Body.Day), nil)
		}
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.MoveTask(ctx, actor, input.TaskID, day); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/accept",
		Summary:     "Accept directive",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.AcceptTask(ctx, actor, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/submit",
		Summary:     "Submit directive for review",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body SubmitRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.SubmitForReview(ctx, actor, input.TaskID, input.Body.Deliverables, input.Body.Comment); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/approve",
		Summary:     "Approve submitted directive",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.ApproveTask(ctx, actor, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "request-revision",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/revise",
		Summary:     "Send directive back for revision",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body RevisionRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.RequestRevision(ctx, actor, input.TaskID, input.Body.Comment); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task-blocker",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/blocker",
		Summary:     "Report or resolve friction on a directive",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body BlockerRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.ToggleTaskBlocker(ctx, actor, input.TaskID, input.Body.Message, input.Body.Suggestion); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-focus",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/focus",
		Summary:     "Enter or leave deep focus",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.AppState `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.ToggleFocus(ctx, actor, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AppState `json:"body"`
		}{Body: st.State()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-breakdown-step",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/breakdown/{index}",
		Summary:     "Toggle an execution step",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Index int `path:"index"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		if err := st.ToggleBreakdownStep(ctx, actor, input.TaskID, input.Index); err != nil {
			return nil, handleError(err)
		}
		task, _ := st.State().TaskByID(input.TaskID)
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})
}

func registerBoard(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "dispatch-week",
		Method:      http.MethodPost,
		Path:        "/board/dispatch",
		Summary:     "Dispatch all draft directives",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.AppState `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if err := st.DispatchWeek(ctx, actor); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AppState `json:"body"`
		}{Body: st.State()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-draft-mode",
		Method:      http.MethodPut,
		Path:        "/board/draft-mode",
		Summary:     "Toggle planning sandbox",
	}, func(ctx context.Context, input *struct {
		Body DraftModeRequest `json:"body"`
	}) (*struct {
		Body domain.AppState `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if err := st.SetDraftMode(ctx, actor, input.Body.Enabled); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AppState `json:"body"`
		}{Body: st.State()}, nil
	})
}

func registerGoals(api huma.API, st *store.Store) {
	type goalPath struct {
		GoalID string `path:"goal_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-goals",
		Method:      http.MethodGet,
		Path:        "/goals",
		Summary:     "List strategic objectives",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Goal `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Goal `json:"body"`
		}{Body: st.State().Goals}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-goal",
		Method:        http.MethodPost,
		Path:          "/goals",
		Summary:       "Create strategic objective",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateGoalRequest `json:"body"`
	}) (*struct {
		Body domain.Goal `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		milestones := make([]domain.Milestone, 0, len(input.Body.Milestones))
		for _, m := range input.Body.Milestones {
			milestones = append(milestones, domain.Milestone{ID: "m-" + uuid.NewString(), Title: m.Title})
		}
		goal := domain.Goal{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Progress:    input.Body.Progress,
			Milestones:  milestones,
			Color:       input.Body.Color,
		}
		if err := st.AddGoal(ctx, actor, goal); err != nil {
			return nil, handleError(err)
		}
		goals := st.State().Goals
		return &struct {
			Body domain.Goal `json:"body"`
		}{Body: goals[len(goals)-1]}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-goal",
		Method:      http.MethodPut,
		Path:        "/goals/{goal_id}",
		Summary:     "Replace strategic objective",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		GoalID string `path:"goal_id"`
		Body domain.Goal `json:"body"`
	}) (*struct {
		Body domain.Goal `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, ok := st.State().GoalByID(input.GoalID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("objective %q not found", input.GoalID), nil)
		}
		goal := input.Body
		goal.ID = input.GoalID
		if err := st.UpdateGoal(ctx, actor, goal); err != nil {
			return nil, handleError(err)
		}
		updated, _ := st.State().GoalByID(input.GoalID)
		return &struct {
			Body domain.Goal `json:"body"`
		}{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-goal",
		Method:      http.MethodDelete,
		Path:        "/goals/{goal_id}",
		Summary:     "Delete strategic objective",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *goalPath) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, ok := st.State().GoalByID(input.GoalID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("objective %q not found", input.GoalID), nil)
		}
		if err := st.DeleteGoal(ctx, actor, input.GoalID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-milestone",
		Method:      http.MethodPost,
		Path:        "/goals/{goal_id}/milestones/{milestone_id}/toggle",
		Summary:     "Toggle milestone completion",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		GoalID string `path:"goal_id"`
		MilestoneID string `path:"milestone_id"`
	}) (*struct {
		Body domain.Goal `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, ok := st.State().GoalByID(input.GoalID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("objective %q not found", input.GoalID), nil)
		}
		if err := st.ToggleMilestone(ctx, actor, input.GoalID, input.MilestoneID); err != nil {
			return nil, handleError(err)
		}
		goal, _ := st.State().GoalByID(input.GoalID)
		return &struct {
			Body domain.Goal `json:"body"`
		}{Body: goal}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "promote-draft-goal",
		Method:      http.MethodPost,
		Path:        "/goals/drafts/{goal_id}/promote",
		Summary:     "Promote a sandbox objective",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *goalPath) (*struct {
		Body domain.AppState `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		found := false
		for _, g := range st.State().DraftGoals {
			if g.ID == input.GoalID {
				found = true
				break
			}
		}
		if !found {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("draft objective %q not found", input.GoalID), nil)
		}
		if err := st.PromoteDraftGoal(ctx, actor, input.GoalID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AppState `json:"body"`
		}{Body: st.State()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "discard-draft-goal",
		Method:      http.MethodDelete,
		Path:        "/goals/drafts/{goal_id}",
		Summary:     "Discard a sandbox objective",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *goalPath) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if err := st.RemoveDraftGoal(ctx, actor, input.GoalID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerUsers(api huma.API, st *store.Store) {
	type userPath struct {
		UserID string `path:"user_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List roster",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: st.State().Users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Authorize a new node",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		user := domain.User{
			Name:       input.Body.Name,
			CustomID:   input.Body.CustomID,
			AccessCode: input.Body.AccessCode,
			Avatar:     input.Body.Avatar,
			Timezone:   input.Body.Timezone,
			Role:       input.Body.Role,
			Bio:        input.Body.Bio,
		}
		if err := st.AddUser(ctx, actor, user); err != nil {
			return nil, handleError(err)
		}
		users := st.State().Users
		return &struct {
			Body domain.User `json:"body"`
		}{Body: users[len(users)-1]}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPut,
		Path:        "/users/{user_id}",
		Summary:     "Replace user record",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Body domain.User `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, ok := st.State().UserByID(input.UserID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("user %q not found", input.UserID), nil)
		}
		user := input.Body
		user.ID = input.UserID
		if err := st.UpdateUser(ctx, actor, user); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/users/{user_id}",
		Summary:     "Remove user from roster",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *userPath) (*struct{}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, ok := st.State().UserByID(input.UserID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("user %q not found", input.UserID), nil)
		}
		if err := st.DeleteUser(ctx, actor, input.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-user-status",
		Method:      http.MethodPut,
		Path:        "/users/status",
		Summary:     "Set the current user's status line",
	}, func(ctx context.Context, input *struct {
		Body UserStatusRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if err := st.UpdateUserStatus(ctx, actor, input.Body.Emoji, input.Body.Text); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: st.State().CurrentUser}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-current-user",
		Method:      http.MethodPut,
		Path:        "/users/current/{user_id}",
		Summary:     "Switch the active user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *userPath) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, ok := st.State().UserByID(input.UserID); !ok {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("user %q not found", input.UserID), nil)
		}
		if err := st.SetCurrentUser(ctx, actor, input.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: st.State().CurrentUser}, nil
	})
}

func registerActivity(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activity",
		Method:      http.MethodGet,
		Path:        "/activity",
		Summary:     "Recent activity feed",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.ActivityEvent `json:"body"`
	}, error) {
		return &struct {
			Body []domain.ActivityEvent `json:"body"`
		}{Body: st.State().ActivityLog}, nil
	})
}

func registerFriction(api huma.API, st *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "detect-friction",
		Method:      http.MethodGet,
		Path:        "/friction",
		Summary:     "Dependency friction scan",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body FrictionResponse `json:"body"`
	}, error) {
		warnings := domain.DetectFriction(st.State().Tasks)
		if warnings == nil {
			warnings = []domain.FrictionWarning{}
		}
		return &struct {
			Body FrictionResponse `json:"body"`
		}{Body: FrictionResponse{Warnings: warnings}}, nil
	})
}

func registerReport(api huma.API, st *store.Store, rec *copilot.Reconciler) {
	huma.Register(api, huma.Operation{
		OperationID: "report-stats",
		Method:      http.MethodGet,
		Path:        "/report/stats",
		Summary:     "Weekly report inputs",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.WeekStats `json:"body"`
	}, error) {
		return &struct {
			Body domain.WeekStats `json:"body"`
		}{Body: domain.CollectWeekStats(st.State())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-summary",
		Method:      http.MethodPost,
		Path:        "/report/summary",
		Summary:     "Generate executive summary",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SummaryResponse `json:"body"`
	}, error) {
		summary, err := rec.SummarizeWeek(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SummaryResponse `json:"body"`
		}{Body: SummaryResponse{Summary: summary}}, nil
	})
}

func registerCopilot(api huma.API, st *store.Store, rec *copilot.Reconciler) {
	huma.Register(api, huma.Operation{
		OperationID: "copilot-converse",
		Method:      http.MethodPost,
		Path:        "/copilot/converse",
		Summary:     "Send a message to the adviser",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ConverseRequest `json:"body"`
	}) (*struct {
		Body copilot.Turn `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Input) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "input is required", nil)
		}
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		turn, err := rec.Converse(ctx, actor, input.Body.Input)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body copilot.Turn `json:"body"`
		}{Body: turn}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-proposals",
		Method:      http.MethodGet,
		Path:        "/copilot/proposals",
		Summary:     "Staged directive proposals",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProposalListResponse `json:"body"`
	}, error) {
		return &struct {
			Body ProposalListResponse `json:"body"`
		}{Body: ProposalListResponse{Proposals: rec.Proposals()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-proposal",
		Method:      http.MethodPost,
		Path:        "/copilot/proposals/{proposal_id}/approve",
		Summary:     "Approve a staged directive",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProposalID string `path:"proposal_id"`
	}) (*struct {
		Body domain.AppState `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if err := rec.ApproveProposal(ctx, actor, input.ProposalID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AppState `json:"body"`
		}{Body: st.State()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-proposal",
		Method:      http.MethodPost,
		Path:        "/copilot/proposals/{proposal_id}/reject",
		Summary:     "Reject a staged directive",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProposalID string `path:"proposal_id"`
	}) (*struct{}, error) {
		if _, authErr := actorFromContext(ctx, st); authErr != nil {
			return nil, authErr
		}
		if err := rec.RejectProposal(input.ProposalID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "analyze-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/analyze",
		Summary:     "Request tactical analysis",
		Errors:      []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body copilot.Breakdown `json:"body"`
	}, error) {
		actor, authErr := actorFromContext(ctx, st)
		if authErr != nil {
			return nil, authErr
		}
		if _, notFound := findTask(st, input.TaskID); notFound != nil {
			return nil, notFound
		}
		analysis, err := rec.AnalyzeTask(ctx, actor, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body copilot.Breakdown `json:"body"`
		}{Body: analysis}, nil
	})
}
