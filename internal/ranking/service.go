package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/medalfm/medalfm/internal/cache"
)

// resultTTL is how long a computed leaderboard stays cached.
const resultTTL = 24 * time.Hour

// HistoryProvider is the external listening-history service (last.fm in
// production). All calls may fail or be rate limited; the pipeline decides
// which failures are fatal.
type HistoryProvider interface {
	// GetUser returns ErrUserNotFound (possibly wrapped) when the user does
	// not exist.
	GetUser(ctx context.Context, user string) error

	// RecentTracks returns the user's scrobbles in [from, to], inclusive.
	RecentTracks(ctx context.Context, user string, from, to time.Time) ([]PlayEvent, error)

	ArtistURL(ctx context.Context, artist string) (string, error)
	AlbumURL(ctx context.Context, artist, album string) (string, error)
	TrackURL(ctx context.Context, artist, track string) (string, error)
}

// Service computes medal tables and caches them per (type, user).
type Service struct {
	provider HistoryProvider
	store    cache.Store
	log      *slog.Logger
	flight   singleflight.Group

	// now is swapped out in tests.
	now func() time.Time
}

func NewService(provider HistoryProvider, store cache.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		provider: provider,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// MedalTable returns the trailing-12-month medal table for user, serving it
// from the cache when a computation from the past 24 hours exists.
// Concurrent misses for the same key share a single computation.
func (s *Service) MedalTable(ctx context.Context, user string, typ RankingType) (*Payload, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidRequest)
	}
	switch typ {
	case TypeArtists, TypeAlbums, TypeTracks:
	default:
		return nil, fmt.Errorf("%w: unknown ranking type %q", ErrInvalidRequest, string(typ))
	}

	key := cacheKey(typ, user)
	var cached Payload
	err := s.store.Get(ctx, key, &cached)
	if err == nil {
		s.log.Debug("cache hit", "key", key)
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		// The cache is advisory: a broken store degrades to recomputation.
		s.log.Warn("cache read failed", "key", key, "err", err)
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.compute(ctx, user, typ, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Payload), nil
}

func (s *Service) compute(ctx context.Context, user string, typ RankingType, key string) (*Payload, error) {
	if err := s.provider.GetUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("looking up user %q: %w", user, err)
	}

	s.log.Info("computing medal table", "user", user, "type", typ)
	months := s.computeAllMonths(ctx, user, typ, s.now().UTC())
	entries := s.aggregate(ctx, months)
	payload := &Payload{User: user, Type: typ, Ranking: rank(entries)}

	if err := s.store.Set(ctx, key, payload, resultTTL); err != nil {
		s.log.Warn("cache write failed", "key", key, "err", err)
	}
	return payload, nil
}

func cacheKey(typ RankingType, user string) string {
	return fmt.Sprintf("ranking_%s_%s", typ, strings.ToLower(user))
}
