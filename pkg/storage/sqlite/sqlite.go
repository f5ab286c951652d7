package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/episodarr/episodarr/pkg/show"
	"github.com/episodarr/episodarr/pkg/storage"
	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

// New opens (or creates) the sqlite database at filePath and applies pending
// migrations. Use ":memory:" for an ephemeral database in tests.
func New(ctx context.Context, filePath string) (storage.Store, error) {
	dsn := fmt.Sprintf("file:%s?_fk=on&_loc=UTC", filePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers anyway; a single pooled connection also keeps
	// :memory: databases stable across the pool
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

const selectShowColumns = `id, title, network, genres, status, rating, poster, summary, language, runtime, premiered, official_site, url, last_updated`

// LoadShows returns every tracked show with its episodes attached. Derived
// fields are left for the caller to rebuild.
func (s *SQLite) LoadShows(ctx context.Context) ([]*show.Show, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectShowColumns+` FROM shows ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shows := make([]*show.Show, 0)
	byID := make(map[string]*show.Show)
	for rows.Next() {
		sh, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, sh)
		byID[sh.ID] = sh
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	episodeRows, err := s.db.QueryContext(ctx, `SELECT show_id, id, season, number, title, air_date, runtime, summary, watched, watched_at FROM episodes ORDER BY show_id, season, number, id`)
	if err != nil {
		return nil, err
	}
	defer episodeRows.Close()

	for episodeRows.Next() {
		var showID string
		episode, err := scanEpisode(episodeRows, &showID)
		if err != nil {
			return nil, err
		}
		if sh, ok := byID[showID]; ok {
			sh.Episodes = append(sh.Episodes, episode)
		}
	}
	if err := episodeRows.Err(); err != nil {
		return nil, err
	}

	return shows, nil
}

// GetShow returns one show by identifier.
func (s *SQLite) GetShow(ctx context.Context, id string) (*show.Show, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectShowColumns+` FROM shows WHERE id = ?`, id)

	sh, err := scanShow(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT show_id, id, season, number, title, air_date, runtime, summary, watched, watched_at FROM episodes WHERE show_id = ? ORDER BY season, number, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var showID string
		episode, err := scanEpisode(rows, &showID)
		if err != nil {
			return nil, err
		}
		sh.Episodes = append(sh.Episodes, episode)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sh, nil
}

// UpsertShow writes the show row and reconciles the episodes table with the
// show's episode collection in one transaction.
func (s *SQLite) UpsertShow(ctx context.Context, sh *show.Show) error {
	genres, err := json.Marshal(sh.Details.Genres)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shows (id, title, network, genres, status, rating, poster, summary, language, runtime, premiered, official_site, url, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			network = excluded.network,
			genres = excluded.genres,
			status = excluded.status,
			rating = excluded.rating,
			poster = excluded.poster,
			summary = excluded.summary,
			language = excluded.language,
			runtime = excluded.runtime,
			premiered = excluded.premiered,
			official_site = excluded.official_site,
			url = excluded.url,
			last_updated = excluded.last_updated`,
		sh.ID, sh.Details.Title, sh.Details.Network, string(genres), sh.Details.Status,
		sh.Details.Rating, sh.Details.Poster, sh.Details.Summary, sh.Details.Language,
		sh.Details.Runtime, nullTime(sh.Details.Premiered), sh.Details.OfficialSite,
		sh.Details.URL, sh.LastUpdated.UTC())
	if err != nil {
		return err
	}

	// the episode collection is authoritative: rows absent from it go away
	if len(sh.Episodes) == 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM episodes WHERE show_id = ?`, sh.ID)
		if err != nil {
			return err
		}
	} else {
		placeholders := make([]string, 0, len(sh.Episodes))
		args := make([]any, 0, len(sh.Episodes)+1)
		args = append(args, sh.ID)
		for _, e := range sh.Episodes {
			placeholders = append(placeholders, "?")
			args = append(args, e.ID)
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM episodes WHERE show_id = ? AND id NOT IN (`+strings.Join(placeholders, ", ")+`)`,
			args...)
		if err != nil {
			return err
		}
	}

	for _, e := range sh.Episodes {
		var watchedAt sql.NullTime
		if e.WatchedAt != nil {
			watchedAt = sql.NullTime{Time: e.WatchedAt.UTC(), Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO episodes (show_id, id, season, number, title, air_date, runtime, summary, watched, watched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (show_id, id) DO UPDATE SET
				season = excluded.season,
				number = excluded.number,
				title = excluded.title,
				air_date = excluded.air_date,
				runtime = excluded.runtime,
				summary = excluded.summary,
				watched = excluded.watched,
				watched_at = excluded.watched_at`,
			sh.ID, e.ID, e.Season, e.Number, e.Title, nullTime(e.AirDate),
			e.Runtime, e.Summary, e.Watched, watchedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteShow removes a show and its episodes.
func (s *SQLite) DeleteShow(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE show_id = ?`, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM shows WHERE id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShow(row scanner) (*show.Show, error) {
	var sh show.Show
	var genres string
	var premiered sql.NullTime

	err := row.Scan(&sh.ID, &sh.Details.Title, &sh.Details.Network, &genres,
		&sh.Details.Status, &sh.Details.Rating, &sh.Details.Poster,
		&sh.Details.Summary, &sh.Details.Language, &sh.Details.Runtime,
		&premiered, &sh.Details.OfficialSite, &sh.Details.URL, &sh.LastUpdated)
	if err != nil {
		return nil, err
	}

	if genres != "" {
		if err := json.Unmarshal([]byte(genres), &sh.Details.Genres); err != nil {
			return nil, err
		}
	}

	if premiered.Valid {
		sh.Details.Premiered = premiered.Time
	}

	return &sh, nil
}

func scanEpisode(row scanner, showID *string) (show.Episode, error) {
	var e show.Episode
	var airDate, watchedAt sql.NullTime

	err := row.Scan(showID, &e.ID, &e.Season, &e.Number, &e.Title, &airDate,
		&e.Runtime, &e.Summary, &e.Watched, &watchedAt)
	if err != nil {
		return show.Episode{}, err
	}

	if airDate.Valid {
		e.AirDate = airDate.Time
	}
	if watchedAt.Valid {
		t := watchedAt.Time
		e.WatchedAt = &t
	}

	return e, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
