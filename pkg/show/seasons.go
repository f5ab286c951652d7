package show

import (
	"cmp"
	"maps"
	"slices"
)

// GroupSeasons groups a flat episode list into seasons ordered by season
// number ascending, each with its episodes ordered by episode number
// ascending. Episodes with a missing or invalid season number are grouped
// under UnknownSeason rather than dropped. The grouping is deterministic for
// a given input, including across persistence round-trips.
func GroupSeasons(episodes []Episode) []Season {
	buckets := make(map[int][]Episode)
	for _, e := range episodes {
		num := e.SeasonNumber()
		buckets[num] = append(buckets[num], e)
	}

	numbers := slices.Sorted(maps.Keys(buckets))

	seasons := make([]Season, 0, len(numbers))
	for _, num := range numbers {
		eps := buckets[num]
		slices.SortFunc(eps, func(a, b Episode) int {
			if c := cmp.Compare(a.Number, b.Number); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})

		watched := 0
		for _, e := range eps {
			if e.Watched {
				watched++
			}
		}

		seasons = append(seasons, Season{
			Number:          num,
			Episodes:        eps,
			TotalEpisodes:   len(eps),
			WatchedEpisodes: watched,
		})
	}

	return seasons
}
