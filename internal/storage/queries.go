package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// MatchRow is one row of the matches table.
type MatchRow struct {
	ID               int64
	StartTime        string
	EndTime          string
	VenueName        sql.NullString
	VenueAddress     sql.NullString
	VenueImageUrl    sql.NullString
	HasResults       bool
	WinningTeam      string
	RedTeamScore     int64
	GreenTeamScore   int64
	BlueTeamScore    int64
	BestPlayerID     sql.NullInt64
	BestGoalPlayerID sql.NullInt64
	BestSavePlayerID sql.NullInt64
}

const matchColumns = `id, start_time, end_time, venue_name, venue_address, venue_image_url,
       has_results, winning_team, red_team_score, green_team_score, blue_team_score,
       best_player_id, best_goal_player_id, best_save_player_id`

const upsertMatch = `INSERT INTO matches (` + matchColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    start_time          = excluded.start_time,
    end_time            = excluded.end_time,
    venue_name          = excluded.venue_name,
    venue_address       = excluded.venue_address,
    venue_image_url     = excluded.venue_image_url,
    has_results         = excluded.has_results,
    winning_team        = excluded.winning_team,
    red_team_score      = excluded.red_team_score,
    green_team_score    = excluded.green_team_score,
    blue_team_score     = excluded.blue_team_score,
    best_player_id      = excluded.best_player_id,
    best_goal_player_id = excluded.best_goal_player_id,
    best_save_player_id = excluded.best_save_player_id,
    updated_at          = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertMatch(ctx context.Context, arg MatchRow) error {
	_, err := q.db.ExecContext(ctx, upsertMatch,
		arg.ID,
		arg.StartTime,
		arg.EndTime,
		arg.VenueName,
		arg.VenueAddress,
		arg.VenueImageUrl,
		arg.HasResults,
		arg.WinningTeam,
		arg.RedTeamScore,
		arg.GreenTeamScore,
		arg.BlueTeamScore,
		arg.BestPlayerID,
		arg.BestGoalPlayerID,
		arg.BestSavePlayerID,
	)
	return err
}

const getMatch = `SELECT ` + matchColumns + ` FROM matches WHERE id = ?`

func (q *Queries) GetMatch(ctx context.Context, id int64) (MatchRow, error) {
	row := q.db.QueryRowContext(ctx, getMatch, id)
	var i MatchRow
	err := scanMatch(row, &i)
	return i, err
}

const listMatches = `SELECT ` + matchColumns + ` FROM matches ORDER BY id`

func (q *Queries) ListMatches(ctx context.Context) ([]MatchRow, error) {
	rows, err := q.db.QueryContext(ctx, listMatches)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchRow
	for rows.Next() {
		var i MatchRow
		if err := scanMatch(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countMatches = `SELECT COUNT(*) FROM matches`

func (q *Queries) CountMatches(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMatches)
	var count int64
	err := row.Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(s scanner, i *MatchRow) error {
	return s.Scan(
		&i.ID,
		&i.StartTime,
		&i.EndTime,
		&i.VenueName,
		&i.VenueAddress,
		&i.VenueImageUrl,
		&i.HasResults,
		&i.WinningTeam,
		&i.RedTeamScore,
		&i.GreenTeamScore,
		&i.BlueTeamScore,
		&i.BestPlayerID,
		&i.BestGoalPlayerID,
		&i.BestSavePlayerID,
	)
}
