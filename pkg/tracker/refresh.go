package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/episodarr/episodarr/pkg/logger"
	"github.com/episodarr/episodarr/pkg/machine"
	"github.com/episodarr/episodarr/pkg/show"
	"github.com/episodarr/episodarr/pkg/tvmaze"
	"go.uber.org/zap"
)

// RefreshState tracks where a show is in its refresh lifecycle.
type RefreshState string

const (
	StateFresh      RefreshState = "fresh"
	StateStale      RefreshState = "stale"
	StateRefreshing RefreshState = "refreshing"
)

func refreshMachine(current RefreshState) *machine.StateMachine[RefreshState] {
	return machine.New(current,
		machine.From(StateFresh).To(StateStale),
		machine.From(StateStale).To(StateRefreshing),
		machine.From(StateRefreshing).To(StateFresh, StateStale),
	)
}

// RefreshResult summarizes one bulk refresh pass. A failed show never fails
// the pass; it lands in Errors and the rest proceed.
type RefreshResult struct {
	Updated []string
	Errors  map[string]error
}

// stateFor classifies a show by the age of its last successful refresh.
func (t *Tracker) stateFor(s *show.Show) RefreshState {
	if s.LastUpdated.IsZero() || t.now().Sub(s.LastUpdated) >= t.cfg.Window {
		return StateStale
	}
	return StateFresh
}

// beginRefresh claims the show for refreshing. It fails when the show is
// untracked or a refresh is already in flight.
func (t *Tracker) beginRefresh(ctx context.Context, id string) error {
	var opErr error
	err := t.apply(ctx, func() {
		if _, ok := t.shows.Get(id); !ok {
			opErr = ErrShowNotTracked
			return
		}

		state, ok := t.states.Get(id)
		if !ok {
			state = StateStale
		}
		if state == StateFresh {
			// a fresh show may always be forced stale
			state = StateStale
		}

		if err := refreshMachine(state).ToState(StateRefreshing); err != nil {
			opErr = fmt.Errorf("show %q: %w", id, err)
			return
		}
		t.states.Set(id, StateRefreshing)
	})
	if err != nil {
		return err
	}
	return opErr
}

// RefreshShow fetches the show's metadata and episode list and merges them
// into the tracked state. Watch state of surviving episodes is carried over
// by episode id.
func (t *Tracker) RefreshShow(ctx context.Context, id string) error {
	log := logger.FromCtx(ctx).With(zap.String("show_id", id))

	if err := t.beginRefresh(ctx, id); err != nil {
		return err
	}

	native, err := tvmaze.ParseShowID(id)
	if err != nil {
		t.endRefresh(ctx, id, StateStale)
		return err
	}

	// network fetches happen outside the update queue so a slow source
	// never blocks watch-state mutations
	info, err := t.source.GetShow(ctx, native)
	if err != nil {
		t.endRefresh(ctx, id, StateStale)
		return fmt.Errorf("fetching show %q: %w", id, err)
	}

	episodes, err := t.source.GetEpisodes(ctx, native)
	if err != nil {
		t.endRefresh(ctx, id, StateStale)
		return fmt.Errorf("fetching episodes for %q: %w", id, err)
	}

	// once the show is claimed the state update must land even if the
	// caller has gone away, or the show would be wedged in refreshing
	opCtx := context.WithoutCancel(ctx)
	var opErr error
	err = t.apply(opCtx, func() {
		cur, ok := t.shows.Get(id)
		if !ok {
			// removed while the fetch was in flight; drop the result
			t.states.Delete(id)
			opErr = ErrShowNotTracked
			return
		}

		next := cur.Clone()
		next.Details = info.Details
		next.Episodes = show.MergeEpisodes(next.Episodes, episodes)
		next.Recompute(t.now())

		for _, e := range droppedEpisodes(cur.Episodes, next.Episodes) {
			log.Debug("episode removed at source, dropping watch state",
				zap.Int64("episode_id", e.ID),
				zap.Int("season", e.Season),
				zap.Int("number", e.Number))
		}

		t.commit(opCtx, next)
		t.states.Set(id, StateFresh)
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}

	log.Info("refreshed show", zap.Int("episodes", len(episodes)))
	return nil
}

// droppedEpisodes lists prior episodes missing from the merged collection.
func droppedEpisodes(prev, merged []show.Episode) []show.Episode {
	kept := make(map[int64]struct{}, len(merged))
	for _, e := range merged {
		kept[e.ID] = struct{}{}
	}

	var dropped []show.Episode
	for _, e := range prev {
		if _, ok := kept[e.ID]; !ok {
			dropped = append(dropped, e)
		}
	}
	return dropped
}

// endRefresh returns a claimed show to the given state. It ignores the
// caller's cancellation: a failed or abandoned refresh must still release
// the claim or the show could never be refreshed again. On a closed tracker
// the state caches die with it.
func (t *Tracker) endRefresh(ctx context.Context, id string, to RefreshState) {
	_ = t.apply(context.WithoutCancel(ctx), func() {
		if _, ok := t.states.Get(id); ok {
			t.states.Set(id, to)
		}
	})
}

// StaleShows returns the ids of tracked shows whose last refresh is older
// than the refresh window, sorted for deterministic batch order.
func (t *Tracker) StaleShows() []string {
	var stale []string
	for _, s := range t.shows.Values() {
		switch state, _ := t.states.Get(s.ID); state {
		case StateRefreshing:
			continue
		case StateStale:
			// newly added shows are stale regardless of LastUpdated
			stale = append(stale, s.ID)
		default:
			if t.stateFor(s) == StateStale {
				stale = append(stale, s.ID)
			}
		}
	}
	sort.Strings(stale)
	return stale
}

// RefreshStale refreshes every stale show in batches. Shows within a batch
// are fetched concurrently; batches run in sequence with a delay between
// them to stay polite to the source.
func (t *Tracker) RefreshStale(ctx context.Context) (RefreshResult, error) {
	log := logger.FromCtx(ctx)

	result := RefreshResult{Errors: map[string]error{}}
	stale := t.StaleShows()
	if len(stale) == 0 {
		return result, nil
	}

	log.Info("refreshing stale shows", zap.Int("count", len(stale)), zap.Int("batch_size", t.cfg.BatchSize))

	var mu sync.Mutex
	for start := 0; start < len(stale); start += t.cfg.BatchSize {
		if start > 0 {
			select {
			case <-time.After(t.cfg.BatchDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		end := min(start+t.cfg.BatchSize, len(stale))

		var wg sync.WaitGroup
		for _, id := range stale[start:end] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := t.RefreshShow(ctx, id)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Errors[id] = err
					return
				}
				result.Updated = append(result.Updated, id)
			}()
		}
		wg.Wait()
	}

	sort.Strings(result.Updated)
	log.Info("refresh pass complete",
		zap.Int("updated", len(result.Updated)),
		zap.Int("failed", len(result.Errors)))
	return result, nil
}
