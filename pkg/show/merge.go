package show

// MergeEpisodes reconciles a freshly fetched episode list with the
// previously stored one. The fresh list is authoritative for set membership
// and every metadata field; the previous list is authoritative for Watched
// and WatchedAt, joined by episode ID only. Episodes matched by ID keep
// their watch state through renumbering and metadata corrections; episodes
// present only in the previous list were un-published upstream and are
// dropped. Merging the same fresh list twice yields an identical result.
func MergeEpisodes(prev, fresh []Episode) []Episode {
	prior := make(map[int64]Episode, len(prev))
	for _, e := range prev {
		prior[e.ID] = e
	}

	merged := make([]Episode, 0, len(fresh))
	for _, e := range fresh {
		if old, ok := prior[e.ID]; ok {
			e.Watched = old.Watched
			e.WatchedAt = old.WatchedAt
		} else {
			e.Watched = false
			e.WatchedAt = nil
		}
		merged = append(merged, e)
	}

	return merged
}
