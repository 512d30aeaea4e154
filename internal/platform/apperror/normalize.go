package apperror

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// pgUniqueViolation is the PostgreSQL error code for a unique constraint
// violation, the persistence-layer shape of a duplicate key.
const pgUniqueViolation = "23505"

// Envelope is the uniform JSON body for every failed request. Error is either
// a single string or an ordered array of per-field messages.
type Envelope struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
	Stack   string      `json:"stack,omitempty"`
}

// ErrorHandler returns the terminal echo.HTTPErrorHandler. Every error
// escaping a handler or middleware lands here exactly once and is classified
// into the envelope. exposeStack should be false in production-like
// environments.
func ErrorHandler(logger zerolog.Logger, exposeStack bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, kind, env := Classify(err, c.Request().URL.Path)

		evt := logger.Debug()
		if status >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Err(err).
			Int("status", status).
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Msg("request failed")

		// Only unclassified failures carry a trace, and never in production.
		if exposeStack && kind == KindGeneric {
			env.Stack = string(debug.Stack())
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, env)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

// Classify maps any failure onto exactly one envelope row. The mapping is
// total: unrecognized errors fall through to Generic with status 500.
func Classify(err error, path string) (int, Kind, *Envelope) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return classifyApp(appErr)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		// An unmatched route surfaces as echo's bare 404; translate it into
		// the RouteNotFound shape so clients see the requested path.
		if httpErr.Code == http.StatusNotFound {
			return classifyApp(RouteNotFound(path))
		}
		return httpErr.Code, KindGeneric, &Envelope{Error: httpMessage(httpErr)}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return classifyApp(Duplicate(err))
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return classifyApp(BadID(err))
	}

	return http.StatusInternalServerError, KindGeneric, &Envelope{Error: err.Error()}
}

func classifyApp(e *Error) (int, Kind, *Envelope) {
	status := e.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if e.Kind == KindValidation {
		return status, e.Kind, &Envelope{Error: e.Fields}
	}
	return status, e.Kind, &Envelope{Error: e.Message}
}

func httpMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return http.StatusText(he.Code)
}
