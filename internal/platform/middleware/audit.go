package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/labadmin/labadmin/internal/platform/auth"
)

// AuditEntry captures who mutated what: payments, samples, result
// transitions and invoice issuance are all traceable to an actor.
type AuditEntry struct {
	ActorID    string
	ActorRole  string
	Action     string // create, update, delete
	Path       string
	Method     string
	IPAddress  string
	StatusCode int
	RequestID  string
	Timestamp  time.Time
}

// AuditRecorder persists audit entries. Tests supply a mock; the default
// falls back to structured logging.
type AuditRecorder interface {
	Record(entry AuditEntry) error
}

// AuditRecorderFunc adapts a function to AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) Record(entry AuditEntry) error { return f(entry) }

// Audit logs every mutating request under /api/v1 with the acting user.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method == "GET" || req.Method == "HEAD" || !strings.HasPrefix(req.URL.Path, "/api/v1") {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Action:     actionForMethod(req.Method),
				Path:       req.URL.Path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if actor := auth.ActorFromContext(req.Context()); actor != nil {
				entry.ActorID = actor.ID.String()
				entry.ActorRole = string(actor.Role)
			}

			recorded := false
			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.Record(entry); recErr != nil {
					logger.Error().Err(recErr).Msg("audit recorder failed")
				} else {
					recorded = true
				}
			}
			if !recorded {
				logger.Info().
					Str("request_id", entry.RequestID).
					Str("actor_id", entry.ActorID).
					Str("actor_role", entry.ActorRole).
					Str("action", entry.Action).
					Str("path", entry.Path).
					Int("status", entry.StatusCode).
					Msg("audit")
			}

			return err
		}
	}
}

func actionForMethod(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	}
	return strings.ToLower(method)
}
