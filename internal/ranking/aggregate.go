package ranking

import "context"

// urlPlaceholder stands in when the best-effort URL lookup fails.
const urlPlaceholder = "#"

// aggregate folds the monthly top-5 lists into one medal entry per distinct
// item, incrementing the placement slot each item occupied that month.
// Months are folded in offset order so the first-encounter enrichment (name,
// artist, URL) happens exactly once per item and deterministically. Returned
// entries keep first-encounter order; the ranker imposes the final order.
func (s *Service) aggregate(ctx context.Context, months [][]itemCount) []*MedalEntry {
	medals := make(map[ItemKey]*MedalEntry)
	var entries []*MedalEntry
	for _, month := range months {
		for i, item := range month {
			entry, ok := medals[item.Key]
			if !ok {
				entry = s.newEntry(ctx, item.Key)
				medals[item.Key] = entry
				entries = append(entries, entry)
			}
			entry.Pos[i]++
		}
	}
	return entries
}

// newEntry builds the entry for a first-seen item. The URL lookup is best
// effort: on failure the entry keeps the placeholder and aggregation
// carries on.
func (s *Service) newEntry(ctx context.Context, key ItemKey) *MedalEntry {
	entry := &MedalEntry{URL: urlPlaceholder}
	if key.Type == TypeArtists {
		entry.Name = key.Artist
	} else {
		entry.Name = key.Title
		entry.Artist = key.Artist
	}

	url, err := s.lookupURL(ctx, key)
	if err != nil {
		s.log.Warn("url lookup failed", "item", key.String(), "err", err)
		return entry
	}
	if url != "" {
		entry.URL = url
	}
	return entry
}

func (s *Service) lookupURL(ctx context.Context, key ItemKey) (string, error) {
	switch key.Type {
	case TypeAlbums:
		return s.provider.AlbumURL(ctx, key.Artist, key.Title)
	case TypeTracks:
		return s.provider.TrackURL(ctx, key.Artist, key.Title)
	default:
		return s.provider.ArtistURL(ctx, key.Artist)
	}
}
