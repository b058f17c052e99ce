package web

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"application-tracker/internal/tracker/lookup"
	"application-tracker/internal/tracker/progress"
	"application-tracker/internal/tracker/session"
)

// statusResponse is the JSON form of a lookup.
type statusResponse struct {
	SearchID string            `json:"searchId"`
	Outcome  lookup.Outcome    `json:"outcome"`
	Message  string            `json:"message,omitempty"`
	Record   map[string]string `json:"record,omitempty"`
	Tracker  *progress.Tracker `json:"tracker,omitempty"`
}

const notFoundMessage = "Application not found. Please check your file number and surname, or contact our office for help."

// view resolves the visitor's session from its cookie, issuing a new cookie
// when the visitor has none or it has expired.
func (s *Server) view(c echo.Context) *session.View {
	var id string
	if cookie, err := c.Cookie(s.config.CookieName); err == nil {
		id = cookie.Value
	}

	newID, view := s.sessions.Acquire(id)
	if newID != id {
		c.SetCookie(&http.Cookie{
			Name:     s.config.CookieName,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return view
}

func (s *Server) handleIndex(c echo.Context) error {
	state := s.view(c).Snapshot()
	return c.Render(http.StatusOK, pageTemplate, newPageData(state, s.now()))
}

func (s *Server) handleSearch(c echo.Context) error {
	view := s.view(c)

	var q lookup.Query
	if err := c.Bind(&q); err != nil {
		return err
	}

	if err := lookup.ValidateQuery(q); err != nil {
		data := newPageData(view.Snapshot(), s.now())
		data.FileNumber = q.FileNumber
		data.Surname = q.Surname
		data.Validation = "Please enter both your file number and surname."
		return c.Render(http.StatusBadRequest, pageTemplate, data)
	}

	state, applied := view.Run(c.Request().Context(), q, s.searcher.Search)
	if !applied {
		s.logger.Debug("Search superseded by a newer submission", map[string]interface{}{
			"fileNumber": q.FileNumber,
			"seq":        state.Seq,
		})
	}
	return c.Render(http.StatusOK, pageTemplate, newPageData(state, s.now()))
}

func (s *Server) handleStatus(c echo.Context) error {
	var q lookup.Query
	if err := c.Bind(&q); err != nil {
		return err
	}

	result, err := s.searcher.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}

	resp := statusResponse{
		SearchID: result.SearchID,
		Outcome:  result.Outcome,
	}
	if result.Found() {
		tracker := result.Tracker()
		resp.Record = result.Record.Fields()
		resp.Tracker = &tracker
	} else {
		resp.Message = notFoundMessage
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		s.logger.Warn("Readiness check failed", map[string]interface{}{
			"failures": failures,
		})
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "not_ready",
			"failures": failures,
			"time":     s.now().UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDataset(c echo.Context) error {
	if _, err := os.Stat(s.config.DataFile); err != nil {
		return echo.ErrNotFound
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.File(s.config.DataFile)
}
