package show

import (
	"time"
)

// UnknownSeason is the reserved bucket for episodes whose season number is
// missing or invalid. Such episodes are still tracked so watch state is
// never silently dropped.
const UnknownSeason = 0

// Episode is a single episode of a tracked show. ID is the source's native
// episode id and is the join key that carries watch state across refreshes.
type Episode struct {
	ID        int64      `json:"id"`
	Season    int        `json:"season"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	AirDate   time.Time  `json:"airDate"`
	Runtime   int        `json:"runtime,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Watched   bool       `json:"watched"`
	WatchedAt *time.Time `json:"watchedDate,omitempty"`
}

// Aired reports whether the episode has aired as of now. An episode without
// a published air date counts as unaired.
func (e Episode) Aired(now time.Time) bool {
	return !e.AirDate.IsZero() && !e.AirDate.After(now)
}

// SeasonNumber returns the season bucket the episode belongs to.
func (e Episode) SeasonNumber() int {
	if e.Season < 1 {
		return UnknownSeason
	}
	return e.Season
}

// Season is a derived grouping of episodes. It is never persisted; it is
// rebuilt in full from the episode collection on every recompute.
type Season struct {
	Number          int       `json:"number"`
	Episodes        []Episode `json:"episodes"`
	TotalEpisodes   int       `json:"totalEpisodes"`
	WatchedEpisodes int       `json:"watchedEpisodes"`
}

// NextEpisode is a denormalized snapshot of the next episode to watch, taken
// at recompute time. It is not a reference into the episode collection.
type NextEpisode struct {
	Season  int       `json:"season"`
	Number  int       `json:"number"`
	Title   string    `json:"title"`
	AirDate time.Time `json:"airDate"`
	Runtime int       `json:"runtime,omitempty"`
}

// Details is the descriptive metadata of a show as published by the source.
// The tracker passes it through without interpreting it.
type Details struct {
	Title        string    `json:"title"`
	Network      string    `json:"network,omitempty"`
	Genres       []string  `json:"genres,omitempty"`
	Status       string    `json:"status,omitempty"`
	Rating       float64   `json:"rating,omitempty"`
	Poster       string    `json:"poster,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Language     string    `json:"language,omitempty"`
	Runtime      int       `json:"runtime,omitempty"`
	Premiered    time.Time `json:"premiered,omitempty"`
	OfficialSite string    `json:"officialSite,omitempty"`
	URL          string    `json:"url,omitempty"`
}

// Show is a tracked show. Seasons, TotalEpisodes, WatchedEpisodes,
// NextEpisode and Watched are pure functions of the episode collection and
// are only ever written by Recompute.
type Show struct {
	ID              string       `json:"id"`
	Details         Details      `json:"details"`
	Episodes        []Episode    `json:"episodes"`
	Seasons         []Season     `json:"seasons"`
	TotalEpisodes   int          `json:"totalEpisodes"`
	WatchedEpisodes int          `json:"watchedEpisodesCount"`
	NextEpisode     *NextEpisode `json:"nextEpisode,omitempty"`
	Watched         bool         `json:"watched"`
	LastUpdated     time.Time    `json:"lastUpdated"`
}

// Derive rebuilds all state derived from the episode collection: seasons,
// totals, the next episode and the overall watched flag. LastUpdated is left
// alone so loading from storage does not look like a refresh.
func (s *Show) Derive(now time.Time) {
	s.Seasons = GroupSeasons(s.Episodes)

	total, watched := 0, 0
	for _, season := range s.Seasons {
		total += season.TotalEpisodes
		watched += season.WatchedEpisodes
	}

	s.TotalEpisodes = total
	s.WatchedEpisodes = watched
	s.NextEpisode = NextUnwatched(s.Episodes, now)
	// a show with zero known episodes is never watched
	s.Watched = total > 0 && watched == total
}

// Recompute derives all aggregate state and stamps LastUpdated. Every
// mutation of the episode collection must end here.
func (s *Show) Recompute(now time.Time) {
	s.Derive(now)
	s.LastUpdated = now
}

// Clone returns a copy that shares no mutable state with the original, so a
// published snapshot can never be changed behind a reader's back.
func (s *Show) Clone() *Show {
	c := *s

	c.Episodes = make([]Episode, len(s.Episodes))
	for i, e := range s.Episodes {
		if e.WatchedAt != nil {
			watchedAt := *e.WatchedAt
			e.WatchedAt = &watchedAt
		}
		c.Episodes[i] = e
	}

	// derived state is rebuilt wholesale on recompute; regrouping here keeps
	// the clone consistent even if it is read before the next recompute
	c.Seasons = GroupSeasons(c.Episodes)
	if s.NextEpisode != nil {
		next := *s.NextEpisode
		c.NextEpisode = &next
	}

	if s.Details.Genres != nil {
		c.Details.Genres = append([]string(nil), s.Details.Genres...)
	}

	return &c
}
