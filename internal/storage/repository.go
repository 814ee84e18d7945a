package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"matchday/internal/core"
	"matchday/internal/matches"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	version uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		version: version,
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version applied when the repository opened.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.version
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// UpsertMatch implements matches.MatchWriter
func (r *SQLiteRepository) UpsertMatch(ctx context.Context, m core.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertMatch(ctx, toRow(m)); err != nil {
		return fmt.Errorf("upsert match %d: %w", m.ID, err)
	}

	slog.InfoContext(ctx, "Match saved to SQLite",
		"match_id", m.ID,
		"start_time", m.StartTime,
		"has_results", m.HasResults())

	return nil
}

// GetMatch implements matches.MatchGetter
func (r *SQLiteRepository) GetMatch(ctx context.Context, id int64) (core.Match, error) {
	row, err := r.queries.GetMatch(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Match{}, fmt.Errorf("match %d: %w", id, matches.ErrNotFound)
	}
	if err != nil {
		return core.Match{}, fmt.Errorf("get match %d: %w", id, err)
	}
	return fromRow(row), nil
}

// ListMatchHistory implements matches.HistoryReader
func (r *SQLiteRepository) ListMatchHistory(ctx context.Context) ([]core.Match, error) {
	rows, err := r.queries.ListMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	out := make([]core.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// CountMatches returns the number of stored matches.
func (r *SQLiteRepository) CountMatches(ctx context.Context) (int64, error) {
	n, err := r.queries.CountMatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return n, nil
}

func toRow(m core.Match) MatchRow {
	row := MatchRow{
		ID:        m.ID,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
	}
	if v := m.Venue; v != nil {
		row.VenueName = sql.NullString{String: v.Name, Valid: true}
		row.VenueAddress = sql.NullString{String: v.Address, Valid: true}
		row.VenueImageUrl = sql.NullString{String: v.ImageURL, Valid: v.ImageURL != ""}
	}
	if res := m.Results; res != nil {
		row.HasResults = true
		row.WinningTeam = string(res.WinningTeam)
		row.RedTeamScore = int64(res.RedTeamScore)
		row.GreenTeamScore = int64(res.GreenTeamScore)
		row.BlueTeamScore = int64(res.BlueTeamScore)
		row.BestPlayerID = nullInt(res.BestPlayerID)
		row.BestGoalPlayerID = nullInt(res.BestGoalPlayerID)
		row.BestSavePlayerID = nullInt(res.BestSavePlayerID)
	}
	return row
}

func fromRow(row MatchRow) core.Match {
	m := core.Match{
		ID:        row.ID,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
	}
	if row.VenueName.Valid {
		m.Venue = &core.Venue{
			Name:     row.VenueName.String,
			Address:  row.VenueAddress.String,
			ImageURL: row.VenueImageUrl.String,
		}
	}
	if row.HasResults {
		m.Results = &core.Results{
			WinningTeam:      core.Team(row.WinningTeam),
			RedTeamScore:     int(row.RedTeamScore),
			GreenTeamScore:   int(row.GreenTeamScore),
			BlueTeamScore:    int(row.BlueTeamScore),
			BestPlayerID:     ptrInt(row.BestPlayerID),
			BestGoalPlayerID: ptrInt(row.BestGoalPlayerID),
			BestSavePlayerID: ptrInt(row.BestSavePlayerID),
		}
	}
	return m
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func ptrInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
