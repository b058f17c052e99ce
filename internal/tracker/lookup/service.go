// Package lookup matches a file number and surname against the application
// dataset.
package lookup

import (
	"context"
	"time"

	"github.com/google/uuid"

	"application-tracker/internal/common/errors"
	"application-tracker/internal/common/logger"
	"application-tracker/internal/common/metrics"
	"application-tracker/internal/tracker/progress"
)

type Service struct {
	logger logger.Logger
	source RecordSource
}

func NewService(deps ServiceDependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		logger: log,
		source: deps.Source,
	}
}

// Search validates q, loads the dataset and looks the query up. Invalid
// queries are rejected before anything is fetched. A search whose context is
// cancelled while loading returns SEARCH_SUPERSEDED rather than a fetch
// failure.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	searchID := uuid.NewString()
	start := time.Now()
	log := s.logger.With(map[string]interface{}{
		"searchId":   searchID,
		"fileNumber": q.FileNumber,
	})

	if err := ValidateQuery(q); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		log.WithError(err).Warn("Search rejected", nil)
		return nil, err
	}

	metrics.SearchesInFlight.Inc()
	defer metrics.SearchesInFlight.Dec()

	records, err := s.source.Records(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		s.observe("superseded", start)
		log.Debug("Search abandoned", map[string]interface{}{
			"reason":   ctx.Err().Error(),
			"duration": time.Since(start).String(),
		})
		return nil, errors.NewSearchSupersededError(ctx.Err())
	case errors.HasCode(err, errors.ErrCodeDataUnavailable):
		// The dataset arrived but is unusable; that is an outcome, not a failure.
		result := Result{SearchID: searchID, Outcome: OutcomeDataUnavailable}
		s.observe(result.Outcome.String(), start)
		log.WithError(err).Warn("Search completed against an unusable dataset", map[string]interface{}{
			"outcome":  result.Outcome.String(),
			"duration": time.Since(start).String(),
		})
		return &result, nil
	default:
		s.observe("error", start)
		log.WithError(err).Error("Search failed", map[string]interface{}{
			"code":     errors.Normalize(err).Code,
			"duration": time.Since(start).String(),
		})
		return nil, err
	}

	result := Find(records, q)
	result.SearchID = searchID

	if result.Found() && !progress.Known(result.Record.Status()) {
		metrics.UnknownStatusTotal.Inc()
		log.Warn("Matched record has an unknown status", map[string]interface{}{
			"status": result.Record.Status(),
		})
	}

	s.observe(result.Outcome.String(), start)
	log.Info("Search completed", map[string]interface{}{
		"outcome":  result.Outcome.String(),
		"records":  len(records),
		"duration": time.Since(start).String(),
	})
	return &result, nil
}

func (s *Service) observe(outcome string, start time.Time) {
	metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	metrics.SearchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
