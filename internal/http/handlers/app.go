package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"podstudio/internal/domain"
	"podstudio/internal/infra"
	"podstudio/internal/middleware"
	"podstudio/internal/pipeline"
	"podstudio/internal/session"
)

// DefaultStepTimeout bounds one pipeline step started by a request.
const DefaultStepTimeout = 5 * time.Minute

type App struct {
	Sessions    *session.Store
	Flow        *pipeline.Flow
	Gateway     *pipeline.Gateway
	Catalog     pipeline.Catalog
	Logger      *infra.Logger
	StepTimeout time.Duration
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func (a *App) logger() *infra.Logger {
	return infra.LoggerOrDiscard(a.Logger)
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// stepContext detaches a pipeline step from the request so a client that
// navigates away does not abort an upload or a render halfway.
func (a *App) stepContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := a.StepTimeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	return context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
}

var errorStatuses = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrSessionBusy, http.StatusConflict, "session_busy"},
	{domain.ErrStageNotReady, http.StatusConflict, "stage_not_ready"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrPrimaryRequired, http.StatusUnprocessableEntity, "invalid_input"},
	{domain.ErrVariantMismatch, http.StatusUnprocessableEntity, "invalid_input"},
	{domain.ErrInvalidPlacement, http.StatusUnprocessableEntity, "invalid_input"},
	{domain.ErrInvalidImageRef, http.StatusUnprocessableEntity, "invalid_input"},
	{domain.ErrJobSubmissionRejected, http.StatusUnprocessableEntity, "rejected"},
	{domain.ErrPublishRejected, http.StatusUnprocessableEntity, "rejected"},
	{domain.ErrJobTimedOut, http.StatusGatewayTimeout, "timed_out"},
	{domain.ErrGenerationFailed, http.StatusBadGateway, "upstream_failed"},
	{domain.ErrRemixFailed, http.StatusBadGateway, "upstream_failed"},
	{domain.ErrJobFailed, http.StatusBadGateway, "upstream_failed"},
	{domain.ErrNoMockupsProduced, http.StatusBadGateway, "upstream_failed"},
	{domain.ErrArtifactNotAccessible, http.StatusBadGateway, "upstream_failed"},
	{domain.ErrTransientIO, http.StatusServiceUnavailable, "unavailable"},
}

// fail maps a pipeline error onto a status and the user-facing message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	for _, e := range errorStatuses {
		if errors.Is(err, e.kind) {
			status, code = e.status, e.code
			break
		}
	}
	ev := a.logger().Warn()
	if status >= http.StatusInternalServerError {
		ev = a.logger().Error()
	}
	ev.Err(err).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")
	a.error(w, status, code, domain.UserMessage(err))
}

// maxBodyBytes leaves room for two inline source images.
const maxBodyBytes = 48 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
