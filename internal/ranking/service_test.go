package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/medalfm/medalfm/internal/cache"
)

// testNow is the fixed "now" used across ranking tests: mid-June 2025, so
// the trailing months run 2025-06 back through 2024-07.
var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu           sync.Mutex
	getUserErr   error
	getUserGate  chan struct{}
	getUserCalls int
	recent       func(user string, from, to time.Time) ([]PlayEvent, error)
	recentCalls  int
	urls         map[string]string
	urlErr       error
	urlCalls     map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		urls:     make(map[string]string),
		urlCalls: make(map[string]int),
	}
}

func (f *fakeProvider) GetUser(ctx context.Context, user string) error {
	f.mu.Lock()
	f.getUserCalls++
	gate := f.getUserGate
	err := f.getUserErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeProvider) RecentTracks(ctx context.Context, user string, from, to time.Time) ([]PlayEvent, error) {
	f.mu.Lock()
	f.recentCalls++
	f.mu.Unlock()
	if f.recent == nil {
		return nil, nil
	}
	return f.recent(user, from, to)
}

func (f *fakeProvider) ArtistURL(ctx context.Context, artist string) (string, error) {
	return f.lookup("artist:" + artist)
}

func (f *fakeProvider) AlbumURL(ctx context.Context, artist, album string) (string, error) {
	return f.lookup("album:" + artist + "|" + album)
}

func (f *fakeProvider) TrackURL(ctx context.Context, artist, track string) (string, error) {
	return f.lookup("track:" + artist + "|" + track)
}

func (f *fakeProvider) lookup(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urlCalls[key]++
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return f.urls[key], nil
}

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	gets   int
	sets   int
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return m.getErr
	}
	data, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = data
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestService(p HistoryProvider, store cache.Store) *Service {
	s := NewService(p, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return testNow }
	return s
}

func TestMedalTableInvalidRequest(t *testing.T) {
	cases := []struct {
		name string
		user string
		typ  RankingType
	}{
		{"empty user", "", TypeArtists},
		{"whitespace user", "   ", TypeArtists},
		{"unknown type", "alice", RankingType("songs")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := newFakeProvider()
			s := newTestService(provider, newMemStore())

			_, err := s.MedalTable(context.Background(), tc.user, tc.typ)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
			if provider.getUserCalls != 0 || provider.recentCalls != 0 {
				t.Errorf("expected no provider calls, got getUser=%d recent=%d",
					provider.getUserCalls, provider.recentCalls)
			}
		})
	}
}

func TestMedalTableUserNotFound(t *testing.T) {
	provider := newFakeProvider()
	provider.getUserErr = fmt.Errorf("%w: %q", ErrUserNotFound, "nobody")
	s := newTestService(provider, newMemStore())

	_, err := s.MedalTable(context.Background(), "nobody", TypeArtists)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if provider.recentCalls != 0 {
		t.Errorf("expected no history fetches after unknown user, got %d", provider.recentCalls)
	}
}

func TestMedalTableUnexpectedProviderError(t *testing.T) {
	provider := newFakeProvider()
	provider.getUserErr = errors.New("last.fm is down")
	s := newTestService(provider, newMemStore())

	_, err := s.MedalTable(context.Background(), "alice", TypeArtists)
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected a generic error, got %v", err)
	}
}

func TestMedalTableCachesResult(t *testing.T) {
	provider := newFakeProvider()
	provider.recent = func(user string, from, to time.Time) ([]PlayEvent, error) {
		return []PlayEvent{
			{Artist: "Bowie", Album: "Low", Track: "Sound and Vision"},
			{Artist: "Bowie", Album: "Low", Track: "Sound and Vision"},
			{Artist: "Queen", Album: "Jazz", Track: "Don't Stop Me Now"},
		}, nil
	}
	store := newMemStore()
	s := newTestService(provider, store)

	first, err := s.MedalTable(context.Background(), "alice", TypeArtists)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if provider.recentCalls != monthsBack {
		t.Errorf("expected %d month fetches, got %d", monthsBack, provider.recentCalls)
	}
	if store.sets != 1 {
		t.Errorf("expected 1 cache write, got %d", store.sets)
	}

	second, err := s.MedalTable(context.Background(), "alice", TypeArtists)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if provider.recentCalls != monthsBack || provider.getUserCalls != 1 {
		t.Errorf("expected the second call to be served from cache, got recent=%d getUser=%d",
			provider.recentCalls, provider.getUserCalls)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("cached payload differs:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestMedalTableCacheKeyIgnoresUserCase(t *testing.T) {
	provider := newFakeProvider()
	provider.recent = func(user string, from, to time.Time) ([]PlayEvent, error) {
		return []PlayEvent{{Artist: "Bowie", Track: "Heroes"}}, nil
	}
	s := newTestService(provider, newMemStore())

	if _, err := s.MedalTable(context.Background(), "Alice", TypeArtists); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := s.MedalTable(context.Background(), "ALICE", TypeArtists); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if provider.getUserCalls != 1 {
		t.Errorf("expected one computation across user spellings, got %d", provider.getUserCalls)
	}
}

func TestMedalTableConcurrentMissesShareComputation(t *testing.T) {
	const callers = 5

	release := make(chan struct{})
	provider := newFakeProvider()
	provider.getUserGate = release
	provider.recent = func(user string, from, to time.Time) ([]PlayEvent, error) {
		return []PlayEvent{{Artist: "Bowie", Track: "Heroes"}}, nil
	}
	store := newMemStore()
	s := newTestService(provider, store)

	var wg sync.WaitGroup
	results := make([]*Payload, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.MedalTable(context.Background(), "alice", TypeArtists)
		}(i)
	}

	// Hold the winning call inside the provider until every caller has
	// missed the cache and lined up behind the in-flight computation.
	for store.getCalls() < callers {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if provider.getUserCalls != 1 {
		t.Errorf("expected one shared computation, got %d user lookups", provider.getUserCalls)
	}
	if provider.recentCalls != monthsBack {
		t.Errorf("expected %d month fetches total, got %d", monthsBack, provider.recentCalls)
	}
	if store.sets != 1 {
		t.Errorf("expected 1 cache write, got %d", store.sets)
	}
	want, _ := json.Marshal(results[0])
	for i := 1; i < callers; i++ {
		got, _ := json.Marshal(results[i])
		if string(got) != string(want) {
			t.Errorf("caller %d payload differs from caller 0:\n%s\n%s", i, got, want)
		}
	}
}

func TestMedalTableMonthFailureDegrades(t *testing.T) {
	failing := monthWindow(testNow, 3)
	provider := newFakeProvider()
	provider.recent = func(user string, from, to time.Time) ([]PlayEvent, error) {
		if from.Equal(failing.Start) {
			return nil, errors.New("last.fm 500")
		}
		return []PlayEvent{{Artist: "Bowie", Track: "Heroes"}}, nil
	}
	s := newTestService(provider, newMemStore())

	payload, err := s.MedalTable(context.Background(), "alice", TypeArtists)
	if err != nil {
		t.Fatalf("expected the pipeline to absorb a single month failure, got %v", err)
	}
	if len(payload.Ranking) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(payload.Ranking))
	}
	if got := payload.Ranking[0].Pos[0]; got != monthsBack-1 {
		t.Errorf("expected %d first places after one bad month, got %d", monthsBack-1, got)
	}
}

func TestMedalTableCacheFailuresTolerated(t *testing.T) {
	provider := newFakeProvider()
	provider.recent = func(user string, from, to time.Time) ([]PlayEvent, error) {
		return []PlayEvent{{Artist: "Bowie", Track: "Heroes"}}, nil
	}
	store := newMemStore()
	store.getErr = errors.New("redis: connection refused")
	store.setErr = errors.New("redis: connection refused")
	s := newTestService(provider, store)

	payload, err := s.MedalTable(context.Background(), "alice", TypeArtists)
	if err != nil {
		t.Fatalf("expected a broken cache to degrade to recomputation, got %v", err)
	}
	if len(payload.Ranking) != 1 {
		t.Errorf("expected 1 entry, got %d", len(payload.Ranking))
	}
}

func TestMedalTablePlacementInvariants(t *testing.T) {
	provider := newFakeProvider()
	provider.recent = func(user string, from, to time.Time) ([]PlayEvent, error) {
		// Vary the top-5 by month so items move between positions.
		events := []PlayEvent{
			{Artist: "Bowie", Track: "Heroes"},
			{Artist: "Queen", Track: "Don't Stop Me Now"},
			{Artist: "Queen", Track: "Don't Stop Me Now"},
		}
		if from.Month()%2 == 0 {
			events = append(events, PlayEvent{Artist: "Bowie", Track: "Heroes"},
				PlayEvent{Artist: "Bowie", Track: "Heroes"})
		}
		return events, nil
	}
	s := newTestService(provider, newMemStore())

	payload, err := s.MedalTable(context.Background(), "alice", TypeArtists)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, entry := range payload.Ranking {
		if seen[entry.Name] {
			t.Errorf("duplicate leaderboard entry %q", entry.Name)
		}
		seen[entry.Name] = true

		sum := 0
		for _, c := range entry.Pos {
			sum += c
		}
		if sum < 1 || sum > monthsBack {
			t.Errorf("%s: placement sum %d outside [1, %d]", entry.Name, sum, monthsBack)
		}
	}
}
