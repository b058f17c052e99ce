// test/e2e/e2e_test.go
package e2e

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"application-tracker/internal/common/cache"
	"application-tracker/internal/common/config"
	httpclient "application-tracker/internal/common/http"
	"application-tracker/internal/common/logger"
	"application-tracker/internal/tracker/loader"
	"application-tracker/internal/tracker/lookup"
	"application-tracker/internal/tracker/session"
	"application-tracker/internal/web"
)

const dataset = `file_number,surname,status,notes
I12345,Smith,Submitted,
I10003,Botha,Drafting Application,
I10004,van Wyk,Editing Application,
I20000,Khumalo,Approved,legacy status
`

// origin serves the dataset and can be switched into failure mode.
type origin struct {
	hits    int32
	failing atomic.Bool
	body    atomic.Value
	server  *httptest.Server
}

func newOrigin(t *testing.T, body string) *origin {
	t.Helper()
	o := &origin{}
	o.body.Store(body)
	o.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&o.hits, 1)
		if o.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, o.body.Load().(string))
	}))
	t.Cleanup(o.server.Close)
	return o
}

type stack struct {
	url    string
	client *http.Client
	redis  *miniredis.Miniredis
}

// newStack wires the tracker the same way cmd/tracker-server does, against
// dataURL, with a Redis cache when withCache is set.
func newStack(t *testing.T, dataURL string, withCache bool, mutate func(*web.Config)) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	st := &stack{}
	var dc *cache.DatasetCache
	if withCache {
		st.redis = miniredis.RunT(t)
		rc := cache.NewRedis(config.CacheConfig{Address: st.redis.Addr()})
		t.Cleanup(func() { rc.Close() })
		dc = cache.NewDatasetCache(rc, time.Minute)
	}

	loaderCfg := loader.DefaultConfig()
	loaderCfg.URL = dataURL
	loaderCfg.Timeout = 2 * time.Second
	records := loader.NewService(loader.ServiceDependencies{
		Logger: log,
		HTTPClient: httpclient.NewClient(loaderCfg.Timeout,
			httpclient.WithMaxRetries(1),
			httpclient.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		),
		Cache: dc,
	}, loaderCfg)

	searcher := lookup.NewService(lookup.ServiceDependencies{Logger: log, Source: records})

	webCfg := web.DefaultConfig()
	webCfg.RateLimit = 0
	if mutate != nil {
		mutate(webCfg)
	}
	server := web.NewServer(web.ServerDependencies{
		Logger:   log,
		Searcher: searcher,
		Sessions: session.NewStore(time.Hour, log),
	}, webCfg)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	st.url = srv.URL
	st.client = &http.Client{Jar: jar, Timeout: 5 * time.Second}
	return st
}

func (s *stack) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := s.client.Get(s.url + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (s *stack) search(t *testing.T, fileNumber, surname string) (int, string) {
	t.Helper()
	resp, err := s.client.PostForm(s.url+"/search", url.Values{
		"file_number": {fileNumber},
		"surname":     {surname},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestTrackerPageFlow(t *testing.T) {
	o := newOrigin(t, dataset)
	st := newStack(t, o.server.URL, false, nil)

	code, body := st.get(t, "/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Immigration Application Tracker")
	assert.Contains(t, body, "Track Application")
	assert.NotContains(t, body, "Current stage:")

	code, body = st.search(t, "i12345", " smith ")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Status for File I12345 (Smith)")
	assert.Contains(t, body, "Current stage: <b>Submitted</b>")
	assert.Equal(t, 6, strings.Count(body, `class="stage reached`))

	// Reloading the page shows the same result for this visitor.
	_, body = st.get(t, "/")
	assert.Contains(t, body, "Status for File I12345 (Smith)")

	code, body = st.search(t, "I12345", "Jones")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Application not found.")
	assert.NotContains(t, body, "Status for File")

	code, body = st.search(t, "I10003", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "Please enter both your file number and surname.")

	assert.Equal(t, int32(2), atomic.LoadInt32(&o.hits), "rejected submissions never fetch")
}

func TestStatusAPI(t *testing.T) {
	o := newOrigin(t, dataset)
	st := newStack(t, o.server.URL, false, nil)

	code, body := st.get(t, "/api/v1/status?file_number=I10003&surname=BOTHA")
	require.Equal(t, http.StatusOK, code)

	var resp struct {
		Outcome string            `json:"outcome"`
		Record  map[string]string `json:"record"`
		Tracker struct {
			CurrentIndex int `json:"currentIndex"`
			Stages       []struct {
				Label   string `json:"label"`
				Reached bool   `json:"reached"`
				Active  bool   `json:"active"`
			} `json:"stages"`
		} `json:"tracker"`
	}
	require.NoError(t, jsoniter.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "found", resp.Outcome)
	assert.Equal(t, "Drafting Application", resp.Record["status"])
	assert.Equal(t, 2, resp.Tracker.CurrentIndex)
	for i, stage := range resp.Tracker.Stages {
		assert.Equal(t, i <= 2, stage.Reached, stage.Label)
		assert.Equal(t, i == 2, stage.Active, stage.Label)
	}

	code, body = st.get(t, "/api/v1/status?file_number=I20000&surname=khumalo")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"currentIndex":-1`)

	code, body = st.get(t, "/api/v1/status?file_number=I10003")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "VALIDATION_FAILED")
}

func TestEmptyDataset(t *testing.T) {
	o := newOrigin(t, "file_number,surname,status\n")
	st := newStack(t, o.server.URL, false, nil)

	_, body := st.search(t, "I12345", "Smith")
	assert.Contains(t, body, "Application not found.")

	_, body = st.get(t, "/api/v1/status?file_number=I12345&surname=Smith")
	assert.Contains(t, body, `"outcome":"data_unavailable"`)
}

func TestUnusableDataset(t *testing.T) {
	o := newOrigin(t, "<!doctype html>\n<html><body>I12345 Smith Submitted</body></html>\n")
	st := newStack(t, o.server.URL, false, nil)

	code, body := st.search(t, "I12345", "Smith")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Application not found.")
	assert.NotContains(t, body, "We could not reach the application records right now.")

	_, body = st.get(t, "/api/v1/status?file_number=I12345&surname=Smith")
	assert.Contains(t, body, `"outcome":"data_unavailable"`)

	// An Excel export with a byte order mark is searchable.
	o.body.Store("\ufeff" + dataset)
	_, body = st.search(t, "I12345", "Smith")
	assert.Contains(t, body, "Status for File I12345 (Smith)")
}

func TestOriginFailure(t *testing.T) {
	o := newOrigin(t, dataset)
	o.failing.Store(true)
	st := newStack(t, o.server.URL, false, nil)

	code, body := st.search(t, "I12345", "Smith")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "We could not reach the application records right now.")
	assert.NotContains(t, body, "Application not found.")
	assert.Contains(t, body, "Track Application", "the form is usable again after a failure")

	code, body = st.get(t, "/api/v1/status?file_number=I12345&surname=Smith")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body, "DATA_FETCH_FAILED")

	o.failing.Store(false)
	_, body = st.search(t, "I12345", "Smith")
	assert.Contains(t, body, "Status for File I12345 (Smith)")
}

func TestCachedDataset(t *testing.T) {
	o := newOrigin(t, dataset)
	st := newStack(t, o.server.URL, true, nil)

	_, body := st.search(t, "I12345", "Smith")
	assert.Contains(t, body, "Current stage: <b>Submitted</b>")
	_, body = st.search(t, "I10004", "VAN WYK")
	assert.Contains(t, body, "Current stage: <b>Editing Application</b>")
	assert.Equal(t, int32(1), atomic.LoadInt32(&o.hits))

	// The origin's outage is hidden until the cached copy expires.
	o.failing.Store(true)
	_, body = st.search(t, "I12345", "Smith")
	assert.Contains(t, body, "Status for File I12345 (Smith)")

	st.redis.FastForward(2 * time.Minute)
	_, body = st.search(t, "I12345", "Smith")
	assert.Contains(t, body, "We could not reach the application records right now.")
}

func TestSelfServedDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "applications.csv")
	require.NoError(t, os.WriteFile(path, []byte(dataset), 0o644))

	// The tracker reads its dataset from its own /applications.csv route.
	var st *stack
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := http.Get(st.url + r.URL.Path)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
	}))
	defer front.Close()

	st = newStack(t, front.URL+"/applications.csv", false, func(c *web.Config) {
		c.DataFile = path
	})

	code, body := st.get(t, "/applications.csv")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, dataset, body)

	_, body = st.search(t, "i10004", "van wyk")
	assert.Contains(t, body, "Status for File I10004 (van Wyk)")
}

func TestConcurrentVisitors(t *testing.T) {
	o := newOrigin(t, dataset)
	st := newStack(t, o.server.URL, false, nil)

	queries := [][2]string{
		{"I12345", "Smith"},
		{"I10003", "Botha"},
		{"I10004", "van Wyk"},
		{"I99999", "Nobody"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := queries[i%len(queries)]
			jar, _ := cookiejar.New(nil)
			visitor := &stack{url: st.url, client: &http.Client{Jar: jar, Timeout: 5 * time.Second}}

			resp, err := visitor.client.PostForm(visitor.url+"/search", url.Values{
				"file_number": {q[0]},
				"surname":     {q[1]},
			})
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if q[0] == "I99999" {
				assert.Contains(t, string(body), "Application not found.")
			} else {
				assert.Contains(t, string(body), fmt.Sprintf("Status for File %s (%s)", q[0], q[1]))
			}
		}(i)
	}
	wg.Wait()
}
