package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"application-tracker/internal/common/errors"
	"application-tracker/internal/common/logger"
	"application-tracker/internal/common/observability"
)

// requestLogger logs every request and records it in the request metrics.
// Handler errors are resolved here so the logged status is the one sent.
func requestLogger(log logger.Logger, obs *observability.Observability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			latency := time.Since(start)

			req := c.Request()
			res := c.Response()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			obs.RecordRequest(req.Context(), route, res.Status, latency)

			fields := map[string]interface{}{
				"requestId": res.Header().Get(echo.HeaderXRequestID),
				"method":    req.Method,
				"path":      req.URL.Path,
				"route":     route,
				"status":    res.Status,
				"bytes":     res.Size,
				"latency":   latency.String(),
				"remoteIp":  c.RealIP(),
			}
			switch {
			case res.Status >= http.StatusInternalServerError:
				log.Error("Request completed", fields)
			case res.Status >= http.StatusBadRequest:
				log.Warn("Request completed", fields)
			default:
				log.Debug("Request completed", fields)
			}
			return nil
		}
	}
}

// searchRateLimiter bounds how often one client address may search. It
// returns nil when limiting is disabled.
func searchRateLimiter(cfg *Config) echo.MiddlewareFunc {
	if cfg.RateLimit <= 0 {
		return nil
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RateLimit),
		Burst:     cfg.RateBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "client could not be identified").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return &errors.StandardError{
				Code:      errors.ErrCodeRateLimited,
				Message:   "Too many searches, please wait a moment and try again",
				Retryable: true,
				Timestamp: time.Now().UTC(),
			}
		},
	})
}
