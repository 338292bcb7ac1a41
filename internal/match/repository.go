package match

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/SWWS97/Gomoku-Game/internal/rating"
)

// Recorder is the persistence surface the manager needs at termination.
// *Repository implements it; tests substitute an in-memory fake.
type Recorder interface {
	SaveHistory(ctx context.Context, h *HistoryRecord) error
	Rating(ctx context.Context, userID string) (int, error)
	ApplyResult(ctx context.Context, winnerID string, winnerRP int, loserID string, loserRP int) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveHistory inserts the immutable record of a finished game.
func (r *Repository) SaveHistory(ctx context.Context, h *HistoryRecord) error {
	if r == nil || r.db == nil || h == nil {
		return nil
	}
	q := `INSERT INTO omok_history (
	    game_id, black_id, black_name, white_id, white_name,
	    winner, total_moves, created_at, finished_at
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	  ON CONFLICT (game_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q,
		h.GameID,
		h.BlackID, h.BlackName,
		h.WhiteID, h.WhiteName,
		string(h.Winner), h.TotalMoves,
		h.CreatedAt, h.FinishedAt,
	)
	return err
}

// Rating returns the player's current RP, defaulting for unknown players.
func (r *Repository) Rating(ctx context.Context, userID string) (int, error) {
	if r == nil || r.db == nil {
		return rating.Initial, nil
	}
	var rp int
	err := r.db.QueryRowContext(ctx,
		`SELECT rating FROM omok_ratings WHERE user_id = $1`, userID,
	).Scan(&rp)
	if err == sql.ErrNoRows {
		return rating.Initial, nil
	}
	if err != nil {
		return 0, err
	}
	return rp, nil
}

// ApplyResult upserts both players' post-game ratings and tallies.
func (r *Repository) ApplyResult(ctx context.Context, winnerID string, winnerRP int, loserID string, loserRP int) error {
	if r == nil || r.db == nil {
		return nil
	}
	q := `INSERT INTO omok_ratings (user_id, rating, wins, losses)
	  VALUES ($1, $2, $3, $4)
	  ON CONFLICT (user_id) DO UPDATE SET
	    rating=EXCLUDED.rating,
	    wins=omok_ratings.wins + $3,
	    losses=omok_ratings.losses + $4`
	if _, err := r.db.ExecContext(ctx, q, winnerID, winnerRP, 1, 0); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, q, loserID, loserRP, 0, 1)
	return err
}

// HistoryEntry is one row of a player's record for the history API.
type HistoryEntry struct {
	GameID     string    `json:"game_id"`
	BlackName  string    `json:"black_name"`
	WhiteName  string    `json:"white_name"`
	Winner     string    `json:"winner"`
	TotalMoves int       `json:"total_moves"`
	FinishedAt time.Time `json:"finished_at"`
}

// HistoryFor lists a player's finished games, newest first.
func (r *Repository) HistoryFor(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, black_name, white_name, winner, total_moves, finished_at
		 FROM omok_history
		 WHERE black_id = $1 OR white_id = $1
		 ORDER BY finished_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.GameID, &e.BlackName, &e.WhiteName, &e.Winner, &e.TotalMoves, &e.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats returns a player's win/loss tallies and current rating.
func (r *Repository) Stats(ctx context.Context, userID string) (rp, wins, losses int, err error) {
	if r == nil || r.db == nil {
		return rating.Initial, 0, 0, nil
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT rating, wins, losses FROM omok_ratings WHERE user_id = $1`, userID,
	).Scan(&rp, &wins, &losses)
	if err == sql.ErrNoRows {
		return rating.Initial, 0, 0, nil
	}
	return rp, wins, losses, err
}
