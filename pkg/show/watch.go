package show

import (
	"errors"
	"time"
)

var (
	ErrEpisodeNotFound = errors.New("episode not found")
	ErrSeasonNotFound  = errors.New("season not found")
)

// ToggleEpisode flips the watched flag of a single episode. Newly watched
// episodes get WatchedAt stamped to now; unwatching clears it.
func (s *Show) ToggleEpisode(id int64, now time.Time) error {
	for i := range s.Episodes {
		e := &s.Episodes[i]
		if e.ID != id {
			continue
		}

		if e.Watched {
			e.Watched = false
			e.WatchedAt = nil
		} else {
			e.Watched = true
			watchedAt := now
			e.WatchedAt = &watchedAt
		}

		s.Recompute(now)
		return nil
	}

	return ErrEpisodeNotFound
}

// SetSeasonWatched marks or unmarks every episode of a season. Marking only
// applies to episodes that have already aired; unmarking clears
// unconditionally.
func (s *Show) SetSeasonWatched(season int, watched bool, now time.Time) error {
	found := false
	for i := range s.Episodes {
		e := &s.Episodes[i]
		if e.SeasonNumber() != season {
			continue
		}
		found = true
		e.setWatched(watched, now)
	}

	if !found {
		return ErrSeasonNotFound
	}

	s.Recompute(now)
	return nil
}

// SetWatched marks or unmarks every episode of the show, with the same
// aired-only rule as SetSeasonWatched.
func (s *Show) SetWatched(watched bool, now time.Time) {
	for i := range s.Episodes {
		s.Episodes[i].setWatched(watched, now)
	}

	s.Recompute(now)
}

func (e *Episode) setWatched(watched bool, now time.Time) {
	if !watched {
		e.Watched = false
		e.WatchedAt = nil
		return
	}

	// an episode that has not aired cannot have been watched
	if !e.Aired(now) {
		return
	}

	if !e.Watched {
		e.Watched = true
		watchedAt := now
		e.WatchedAt = &watchedAt
	}
}
