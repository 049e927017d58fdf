// Package audio holds synthesized turn audio just long enough for the
// telephony provider to fetch it.
package audio

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store is a process-local blob store with fixed-delay eviction. Entries
// expire a TTL after storage regardless of whether they were ever fetched;
// an evicted id is permanently invalid. There is no capacity bound: the
// TTL is the only thing reclaiming memory, which is acceptable for a
// demonstration system.
type Store struct {
	blobs   *cache.Cache
	ttl     time.Duration
	counter atomic.Int64

	log *slog.Logger
	now func() time.Time
}

// NewStore builds a blob store that evicts entries ttl after Store.
// A non-positive ttl falls back to 5 minutes.
func NewStore(ttl time.Duration, log *slog.Logger, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	cleanup := ttl
	if cleanup > time.Minute {
		cleanup = time.Minute
	}
	return &Store{
		blobs: cache.New(ttl, cleanup),
		ttl:   ttl,
		log:   log,
		now:   now,
	}
}

// Store saves one base64 audio payload and returns its generated id.
func (s *Store) Store(data string) string {
	id := fmt.Sprintf("audio_%d_%d", s.now().UnixMilli(), s.counter.Add(1)-1)
	s.blobs.SetDefault(id, data)
	s.log.Debug("audio stored", "audio_id", id, "bytes", len(data), "ttl", s.ttl.String())
	return id
}

// Get returns the payload for id, or false when the id is unknown or the
// entry has been evicted.
func (s *Store) Get(id string) (string, bool) {
	v, ok := s.blobs.Get(id)
	if !ok {
		return "", false
	}
	data, ok := v.(string)
	return data, ok
}
