// Package ranking computes 12-month medal tables from a user's listening
// history: for each trailing calendar month, the top-5 most played items,
// aggregated into per-item placement counts and sorted deterministically.
package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RankingType is the dimension being ranked.
type RankingType string

const (
	TypeArtists RankingType = "artists"
	TypeAlbums  RankingType = "albums"
	TypeTracks  RankingType = "tracks"
)

var (
	// ErrInvalidRequest is returned for a missing user or unknown ranking
	// type, before any external call is made.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUserNotFound is returned when last.fm reports the user does not
	// exist.
	ErrUserNotFound = errors.New("user not found")
)

// ParseRankingType parses the user-supplied type string. An empty string
// defaults to artists.
func ParseRankingType(s string) (RankingType, error) {
	switch s {
	case "", string(TypeArtists):
		return TypeArtists, nil
	case string(TypeAlbums):
		return TypeAlbums, nil
	case string(TypeTracks):
		return TypeTracks, nil
	}
	return "", fmt.Errorf("%w: unknown ranking type %q", ErrInvalidRequest, s)
}

// PlayEvent is a single scrobble as reported by the history provider.
// Album may be empty; scrobbles without album data exist.
type PlayEvent struct {
	Artist string
	Album  string
	Track  string
}

// ItemKey identifies one ranked item. For artists the Artist field alone
// carries the identity; for albums and tracks, Title holds the album name or
// track title. Two events with equal derived fields collapse to one key.
type ItemKey struct {
	Type   RankingType
	Artist string
	Title  string
}

// eventKey derives the key for ev under typ. ok is false when the event
// lacks a field the type requires, in which case the event is dropped.
func eventKey(typ RankingType, ev PlayEvent) (key ItemKey, ok bool) {
	if ev.Artist == "" {
		return ItemKey{}, false
	}
	switch typ {
	case TypeArtists:
		return ItemKey{Type: typ, Artist: ev.Artist}, true
	case TypeAlbums:
		if ev.Album == "" {
			return ItemKey{}, false
		}
		return ItemKey{Type: typ, Artist: ev.Artist, Title: ev.Album}, true
	case TypeTracks:
		if ev.Track == "" {
			return ItemKey{}, false
		}
		return ItemKey{Type: typ, Artist: ev.Artist, Title: ev.Track}, true
	}
	return ItemKey{}, false
}

func (k ItemKey) String() string {
	if k.Title == "" {
		return k.Artist
	}
	return k.Artist + " - " + k.Title
}

// positions is the number of medal slots tracked per month.
const positions = 5

// MedalEntry is one leaderboard row. Pos[i] counts the months in which the
// item ranked at position i+1. Artist is only set for albums and tracks.
type MedalEntry struct {
	Name   string
	Artist string
	URL    string
	Pos    [positions]int
}

// medalEntryJSON is the wire form consumed by the frontend and stored in
// the cache.
type medalEntryJSON struct {
	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"`
	URL    string `json:"url"`
	Pos1   int    `json:"pos_1"`
	Pos2   int    `json:"pos_2"`
	Pos3   int    `json:"pos_3"`
	Pos4   int    `json:"pos_4"`
	Pos5   int    `json:"pos_5"`
}

func (e MedalEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(medalEntryJSON{
		Name:   e.Name,
		Artist: e.Artist,
		URL:    e.URL,
		Pos1:   e.Pos[0],
		Pos2:   e.Pos[1],
		Pos3:   e.Pos[2],
		Pos4:   e.Pos[3],
		Pos5:   e.Pos[4],
	})
}

func (e *MedalEntry) UnmarshalJSON(data []byte) error {
	var w medalEntryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Name = w.Name
	e.Artist = w.Artist
	e.URL = w.URL
	e.Pos = [positions]int{w.Pos1, w.Pos2, w.Pos3, w.Pos4, w.Pos5}
	return nil
}

// Payload is the JSON-serializable result of one medal-table computation.
type Payload struct {
	User    string       `json:"user"`
	Type    RankingType  `json:"type"`
	Ranking []MedalEntry `json:"ranking"`
}
