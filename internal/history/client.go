// Package history wraps the last.fm API as the listening-history provider
// consumed by the ranking pipeline.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/avast/retry-go"
	"golang.org/x/time/rate"

	"github.com/medalfm/medalfm/internal/ranking"
)

const (
	pageSize      = 200
	retryAttempts = 3
)

// last.fm API error codes.
const (
	errCodeInvalidParameters = 6 // also reported for unknown users
	errCodeRateLimited       = 29
)

// Client talks to last.fm. A single rate limiter spans all calls so the
// 12-way monthly fan-out stays inside the API's request budget.
type Client struct {
	api     *lastfm.Api
	limiter *rate.Limiter
}

func New(apiKey, secret string) *Client {
	api := lastfm.New(apiKey, secret)
	api.SetUserAgent("medalfm/1.0")
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
	}
}

// GetUser verifies that the user exists on last.fm. Returns
// ranking.ErrUserNotFound when last.fm rejects the username.
func (c *Client) GetUser(ctx context.Context, user string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	err := retry.Do(
		func() error {
			_, err := c.api.User.GetInfo(lastfm.P{"user": user})
			return err
		},
		retry.Attempts(retryAttempts),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if lerr, ok := err.(*lastfm.LastfmError); ok && lerr.Code == errCodeInvalidParameters {
			return fmt.Errorf("%w: %q", ranking.ErrUserNotFound, user)
		}
		return fmt.Errorf("user.getInfo for %q: %w", user, err)
	}
	return nil
}

// RecentTracks pages through user.getRecentTracks for [from, to] and maps
// each scrobble to a PlayEvent. Now-playing rows carry no date and are
// skipped.
func (c *Client) RecentTracks(ctx context.Context, user string, from, to time.Time) ([]ranking.PlayEvent, error) {
	var events []ranking.PlayEvent
	page := 1 // First page is 1
	pages := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var recentTracks lastfm.UserGetRecentTracks
		err := retry.Do(
			func() error {
				var err error
				recentTracks, err = c.api.User.GetRecentTracks(lastfm.P{
					"user":  user,
					"limit": pageSize,
					"page":  page,
					"from":  from.Unix(),
					"to":    to.Unix(),
				})
				return err
			},
			retry.Attempts(retryAttempts),
			retry.RetryIf(isRetryable),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("user.getRecentTracks page %d for %q: %w", page, user, err)
		}

		if pages == 0 {
			pages = recentTracks.TotalPages
		}

		for _, t := range recentTracks.Tracks {
			if t.NowPlaying == "true" {
				continue
			}
			events = append(events, ranking.PlayEvent{
				Artist: t.Artist.Name,
				Album:  t.Album.Name,
				Track:  t.Name,
			})
		}

		page += 1
		if page > pages {
			break
		}
	}
	return events, nil
}

// ArtistURL resolves an artist's last.fm page. URL lookups are single-shot:
// the aggregator treats a failure as best-effort and keeps its placeholder.
func (c *Client) ArtistURL(ctx context.Context, artist string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	info, err := c.api.Artist.GetInfo(lastfm.P{"artist": artist})
	if err != nil {
		return "", fmt.Errorf("artist.getInfo for %q: %w", artist, err)
	}
	return info.Url, nil
}

func (c *Client) AlbumURL(ctx context.Context, artist, album string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	info, err := c.api.Album.GetInfo(lastfm.P{"artist": artist, "album": album})
	if err != nil {
		return "", fmt.Errorf("album.getInfo for %q - %q: %w", artist, album, err)
	}
	return info.Url, nil
}

func (c *Client) TrackURL(ctx context.Context, artist, track string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	info, err := c.api.Track.GetInfo(lastfm.P{"artist": artist, "track": track})
	if err != nil {
		return "", fmt.Errorf("track.getInfo for %q - %q: %w", artist, track, err)
	}
	return info.Url, nil
}

// isRetryable reports whether a last.fm error is transient: server-side
// failures and rate limiting. Client errors (bad user, bad params) are not
// retried.
func isRetryable(err error) bool {
	if lerr, ok := err.(*lastfm.LastfmError); ok {
		return lerr.Code/100 == 5 || lerr.Code == errCodeRateLimited
	}
	return false
}
