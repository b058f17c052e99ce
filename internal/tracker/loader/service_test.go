package loader

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"application-tracker/internal/common/cache"
	"application-tracker/internal/common/config"
	"application-tracker/internal/common/errors"
	httpclient "application-tracker/internal/common/http"
	"application-tracker/internal/common/logger"
)

const sampleDataset = "file_number,surname,status\nI12345,Smith,Submitted\nI22222,Jones,Drafting Application\n"

func newTestService(t *testing.T, url string, dc *cache.DatasetCache) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.Timeout = 2 * time.Second
	client := httpclient.NewClient(cfg.Timeout,
		httpclient.WithMaxRetries(2),
		httpclient.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	return NewService(ServiceDependencies{
		Logger:     logger.NewTestLogger(t),
		HTTPClient: client,
		Cache:      dc,
	}, cfg)
}

func csvServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestService_Load(t *testing.T) {
	srv := csvServer(t, sampleDataset, nil)
	svc := newTestService(t, srv.URL, nil)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "I12345", records[0].FileNumber())
	assert.Equal(t, "Drafting Application", records[1].Status())
	assert.Equal(t, srv.URL, svc.URL())
}

func TestService_Load_HeaderOnly(t *testing.T) {
	srv := csvServer(t, "file_number,surname,status\n", nil)
	svc := newTestService(t, srv.URL, nil)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_Load_MalformedBody(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMissing []string
	}{
		{name: "html fallback page", body: "<!doctype html>\n<html><body>Moved</body></html>\n", wantMissing: RequiredFields},
		{name: "status column absent", body: "file_number,surname\nI12345,Smith\n", wantMissing: []string{FieldStatus}},
		{name: "empty body", body: "", wantMissing: RequiredFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := csvServer(t, tt.body, nil)
			svc := newTestService(t, srv.URL, nil)

			records, err := svc.Records(context.Background())
			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, errors.HasCode(err, errors.ErrCodeDataUnavailable))
			assert.Equal(t, tt.wantMissing, errors.Normalize(err).Metadata["missing"])
		})
	}
}

func TestService_Load_ByteOrderMark(t *testing.T) {
	srv := csvServer(t, "\ufeff"+sampleDataset, nil)
	svc := newTestService(t, srv.URL, nil)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "I12345", records[0].FileNumber())
}

func TestService_Load_FetchFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantHits int32
	}{
		{name: "server error is retried", status: http.StatusInternalServerError, wantHits: 3},
		{name: "not found is not retried", status: http.StatusNotFound, wantHits: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			svc := newTestService(t, srv.URL, nil)
			records, err := svc.Records(context.Background())

			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, errors.HasCode(err, errors.ErrCodeDataFetchFailed))
			assert.True(t, stderrors.Is(err, httpclient.ErrStatus))
			assert.True(t, errors.Normalize(err).Retryable)
			assert.Equal(t, tt.wantHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestService_Load_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := newTestService(t, url, nil)
	_, err := svc.Records(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDataFetchFailed))
}

func TestService_Load_CallerCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		fmt.Fprint(w, sampleDataset)
	}))
	defer srv.Close()
	defer close(release)

	// The shared fetch outlives this caller, so it must not log through t.
	svc := newTestService(t, srv.URL, nil)
	svc.logger = logger.NewNoOpLogger()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Records(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not return after its context was cancelled")
	}
}

func TestService_Load_CoalescesConcurrentFetches(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		fmt.Fprint(w, sampleDataset)
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]ApplicationRecord, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Records(context.Background())
		}(i)
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 2)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestService_Load_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	dc := cache.NewDatasetCache(cache.NewRedis(config.CacheConfig{Address: mr.Addr()}), time.Minute)

	var hits int32
	srv := csvServer(t, sampleDataset, &hits)
	svc := newTestService(t, srv.URL, dc)
	ctx := context.Background()

	first, err := svc.Records(ctx)
	require.NoError(t, err)
	second, err := svc.Records(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.True(t, mr.Exists(cache.DatasetKey(srv.URL)))

	require.NoError(t, svc.Invalidate(ctx, srv.URL))
	_, err = svc.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestService_Load_CacheDownFallsBackToOrigin(t *testing.T) {
	mr := miniredis.RunT(t)
	dc := cache.NewDatasetCache(cache.NewRedis(config.CacheConfig{Address: mr.Addr()}), time.Minute)
	mr.Close()

	var hits int32
	srv := csvServer(t, sampleDataset, &hits)
	svc := newTestService(t, srv.URL, dc)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	err = svc.Invalidate(context.Background(), srv.URL)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCacheUnavailable))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.URL = "/applications.csv" }, wantErr: true},
		{name: "ftp url", mutate: func(c *Config) { c.URL = "ftp://host/a.csv" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: true},
		{name: "zero max bytes", mutate: func(c *Config) { c.MaxBytes = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if tt.wantErr {
				assert.Error(t, c.Validate())
			} else {
				assert.NoError(t, c.Validate())
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		Data: config.DataConfig{
			URL:        "https://records.example.com/applications.csv",
			Timeout:    2500,
			MaxRetries: 0,
			MaxBytes:   1024,
		},
		Cache: config.CacheConfig{TTL: 30000},
	}

	c := FromAppConfig(cfg)
	assert.Equal(t, "https://records.example.com/applications.csv", c.URL)
	assert.Equal(t, 2500*time.Millisecond, c.Timeout)
	assert.Equal(t, 0, c.MaxRetries)
	assert.Equal(t, int64(1024), c.MaxBytes)
	assert.Equal(t, 30*time.Second, c.CacheTTL)
	require.NoError(t, c.Validate())
}
