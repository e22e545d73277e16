package middleware

import (
	"log/slog"
	"sync"

	"github.com/labstack/echo/v4"

	"account-service/app/domain"
	"account-service/app/metrics"
	apperrors "account-service/app/utils/errors"
)

// SubmitGuard lets one submission per form run at a time. A second submission
// of the same form is rejected while the first is still in flight.
type SubmitGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	logger   *slog.Logger
}

// NewSubmitGuard creates a guard with no submissions in flight
func NewSubmitGuard(logger *slog.Logger) *SubmitGuard {
	return &SubmitGuard{
		inFlight: make(map[string]struct{}),
		logger:   logger.With("component", "submit_guard"),
	}
}

// Guard wraps the handler of one form
func (g *SubmitGuard) Guard(form string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.acquire(form) {
				metrics.RecordSubmitRejected(form)
				g.logger.Warn("submission rejected, form already submitting", "form", form)
				appErr := apperrors.FromDomain(domain.ErrSubmitInProgress)
				return c.JSON(appErr.StatusCode, apperrors.NewErrorResponse(appErr))
			}
			defer g.release(form)

			return next(c)
		}
	}
}

func (g *SubmitGuard) submitting(form string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[form]
	return busy
}

func (g *SubmitGuard) acquire(form string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[form]; busy {
		return false
	}
	g.inFlight[form] = struct{}{}
	return true
}

func (g *SubmitGuard) release(form string) {
	g.mu.Lock()
	delete(g.inFlight, form)
	g.mu.Unlock()
}
