package show

import "time"

// NextUnwatched resolves the single next episode to watch: the unwatched
// episode with the earliest air date that is on or before now, ties broken
// by season then episode number. Episodes without an air date are treated as
// unaired. Returns nil when the viewer is caught up with aired content, even
// if future episodes exist.
func NextUnwatched(episodes []Episode, now time.Time) *NextEpisode {
	var best *Episode
	for i := range episodes {
		e := &episodes[i]
		if e.Watched || !e.Aired(now) {
			continue
		}
		if best == nil || airsBefore(e, best) {
			best = e
		}
	}

	if best == nil {
		return nil
	}

	return &NextEpisode{
		Season:  best.Season,
		Number:  best.Number,
		Title:   best.Title,
		AirDate: best.AirDate,
		Runtime: best.Runtime,
	}
}

func airsBefore(a, b *Episode) bool {
	if !a.AirDate.Equal(b.AirDate) {
		return a.AirDate.Before(b.AirDate)
	}
	if a.SeasonNumber() != b.SeasonNumber() {
		return a.SeasonNumber() < b.SeasonNumber()
	}
	return a.Number < b.Number
}
