// Package loader retrieves the application dataset and decodes it into
// records.
package loader

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/singleflight"

	"application-tracker/internal/common/cache"
	"application-tracker/internal/common/errors"
	httpclient "application-tracker/internal/common/http"
	"application-tracker/internal/common/logger"
	"application-tracker/internal/common/metrics"
)

type Service struct {
	config *Config
	logger logger.Logger
	client *httpclient.Client
	cache  *cache.DatasetCache
	group  singleflight.Group
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	client := deps.HTTPClient
	if client == nil {
		client = httpclient.NewClient(config.Timeout,
			httpclient.WithMaxBytes(config.MaxBytes),
			httpclient.WithMaxRetries(config.MaxRetries),
		)
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Service{
		config: config,
		logger: log,
		client: client,
		cache:  deps.Cache,
	}
}

// URL is the configured dataset location.
func (s *Service) URL() string {
	return s.config.URL
}

// Records loads the dataset from the configured URL.
func (s *Service) Records(ctx context.Context) ([]ApplicationRecord, error) {
	return s.Load(ctx, s.config.URL)
}

// Load fetches url and parses it. A failed fetch is reported as a
// DATA_FETCH_FAILED error and a body whose header lacks a required column as
// DATA_UNAVAILABLE. A well-formed dataset with no rows is not an error.
func (s *Service) Load(ctx context.Context, url string) ([]ApplicationRecord, error) {
	body, err := s.body(ctx, url)
	if err != nil {
		return nil, err
	}

	text := string(body)
	if missing := MissingColumns(text); len(missing) > 0 {
		metrics.DatasetRecords.Set(0)
		s.logger.Warn("Dataset header is missing required columns", map[string]interface{}{
			"url":     url,
			"missing": missing,
			"bytes":   len(body),
		})
		return nil, errors.NewDataUnavailableError(url, missing)
	}

	records := Parse(text)
	metrics.DatasetRecords.Set(float64(len(records)))
	return records, nil
}

// Invalidate drops the cached copy of url so the next Load goes to origin.
func (s *Service) Invalidate(ctx context.Context, url string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, url); err != nil {
		return errors.NewCacheUnavailableError(err)
	}
	return nil
}

func (s *Service) body(ctx context.Context, url string) ([]byte, error) {
	if s.cache != nil {
		entry, err := s.cache.Get(ctx, url)
		switch {
		case err == nil:
			metrics.DatasetFetchTotal.WithLabelValues("cache", "hit").Inc()
			return entry.Body, nil
		case stderrors.Is(err, cache.ErrMiss):
			metrics.DatasetFetchTotal.WithLabelValues("cache", "miss").Inc()
		default:
			metrics.DatasetFetchTotal.WithLabelValues("cache", "error").Inc()
			s.logger.WithError(err).Warn("Dataset cache read failed, fetching from origin", map[string]interface{}{
				"url": url,
			})
		}
	}

	// Concurrent searches share one origin fetch. The shared fetch is detached
	// from any single caller so a superseded search does not fail the others.
	ch := s.group.DoChan(url, func() (interface{}, error) {
		return s.fetchOrigin(context.WithoutCancel(ctx), url)
	})

	select {
	case <-ctx.Done():
		return nil, errors.NewDataFetchFailedError(url, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (s *Service) fetchOrigin(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	body, err := s.client.Fetch(ctx, url)
	metrics.DatasetFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DatasetFetchTotal.WithLabelValues("origin", "failure").Inc()
		s.logger.WithError(err).Error("Dataset fetch failed", map[string]interface{}{
			"url":      url,
			"duration": time.Since(start).String(),
		})
		return nil, errors.NewDataFetchFailedError(url, err)
	}

	metrics.DatasetFetchTotal.WithLabelValues("origin", "success").Inc()
	s.logger.Debug("Dataset fetched", map[string]interface{}{
		"url":      url,
		"bytes":    len(body),
		"duration": time.Since(start).String(),
	})

	if s.cache != nil {
		if err := s.cache.Put(ctx, url, body); err != nil {
			s.logger.WithError(err).Warn("Dataset cache write failed", map[string]interface{}{
				"url": url,
			})
		}
	}
	return body, nil
}
