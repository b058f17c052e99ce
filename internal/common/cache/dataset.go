package cache

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const datasetKeyPrefix = "tracker:dataset:"

// DatasetEntry is the cached copy of one raw dataset body.
type DatasetEntry struct {
	URL       string    `json:"url"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// DatasetCache stores raw dataset bodies keyed by their source URL. Parsed
// records are never cached so every search still parses a fresh copy.
type DatasetCache struct {
	client *RedisClient
	ttl    time.Duration
}

func NewDatasetCache(client *RedisClient, ttl time.Duration) *DatasetCache {
	return &DatasetCache{client: client, ttl: ttl}
}

func DatasetKey(url string) string {
	return datasetKeyPrefix + url
}

// Get returns ErrMiss when nothing usable is cached for url.
func (d *DatasetCache) Get(ctx context.Context, url string) (*DatasetEntry, error) {
	raw, err := d.client.Get(ctx, DatasetKey(url))
	if err != nil {
		return nil, err
	}
	var entry DatasetEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry behaves like a miss; the next Put overwrites it.
		return nil, ErrMiss
	}
	return &entry, nil
}

func (d *DatasetCache) Put(ctx context.Context, url string, body []byte) error {
	raw, err := json.Marshal(DatasetEntry{
		URL:       url,
		Body:      body,
		FetchedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return d.client.Set(ctx, DatasetKey(url), raw, d.ttl)
}

func (d *DatasetCache) Invalidate(ctx context.Context, url string) error {
	return d.client.Del(ctx, DatasetKey(url))
}
