package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/hopdex/internal/db"
)

// Retention defaults: daily counters outlive their window by a day so the
// tracker can reload after a restart near midnight; monthly counters get
// two months for the same reason.
const (
	DefaultDailyTTL = 48 * time.Hour
	DefaultMonthTTL = 62 * 24 * time.Hour
)

// store is the slice of db.Store the budget counters need.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists token budget counters as plain integer keys, one per
// provider and window. It backs the tracker's write-behind path.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Non-positive TTLs fall back to the defaults.
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthTTL <= 0 {
		monthTTL = DefaultMonthTTL
	}
	return &Store{store: s, dailyTTL: dailyTTL, monthTTL: monthTTL}
}

// IncrBy adds val to the counter and pins its retention. The EXPIRE runs
// with NX so repeated increments never push the expiry out.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget counter %s: %w", key, err)
	}
	if err := s.store.Expire(ctx, key, s.windowTTL(key), true); err != nil {
		return fmt.Errorf("budget counter %s retention: %w", key, err)
	}
	return nil
}

// Get reads a counter. A key that never received tokens reads as zero.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget counter %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget counter %s holds %q: %w", key, data, err)
	}
	return val, nil
}

// windowTTL picks the retention from the key layout
// "<prefix>budget:<provider>:<window>:<stamp>". Unrecognized windows get
// the longer monthly retention rather than expiring early.
func (s *Store) windowTTL(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 && parts[len(parts)-2] == "daily" {
		return s.dailyTTL
	}
	return s.monthTTL
}
