// internal/journal/journal.go
//
// SQLite-backed journal of played rounds.
// Responsibilities:
//   - Opening the database with safe defaults (busy timeout, foreign keys).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Recording rounds and resets per session.
//   - Reading back history (newest first) and per-choice tallies.
//
// The default DSN points at a shared-cache in-memory database, so the
// journal lives exactly as long as the process.

package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rps/internal/game"
)

// DefaultDSN keeps the journal in memory for the lifetime of the process.
const DefaultDSN = "file:rps_journal?mode=memory&cache=shared"

//go:embed sql/*.sql
var migrations embed.FS

// ErrNoRound is returned by RecordRound for a state with no played round.
var ErrNoRound = errors.New("state has no round to record")

// Entry is one recorded round.
type Entry struct {
	Round         int              `json:"round"`
	Player        game.Choice      `json:"player"`
	Computer      game.Choice      `json:"computer"`
	Result        game.RoundResult `json:"result"`
	PlayerScore   int              `json:"playerScore"`
	ComputerScore int              `json:"computerScore"`
	PlayedAt      time.Time        `json:"playedAt"`
}

// ChoiceTally counts outcomes of rounds in which the player chose Choice.
type ChoiceTally struct {
	Choice game.Choice `json:"choice"`
	Wins   int         `json:"wins"`
	Losses int         `json:"losses"`
	Draws  int         `json:"draws"`
}

// Journal records rounds into a SQLite database.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if missing) the journal database.
// File DSNs get their parent directory created.
func Open(dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	if !strings.Contains(dsn, "mode=memory") && !strings.Contains(dsn, ":memory:") {
		path := strings.TrimPrefix(dsn, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dsn+sep+"_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// An in-memory database disappears with its last connection.
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error { return j.db.Close() }

// Migrate applies embedded migrations in lexical order, skipping ones
// already recorded in _migrations.
func (j *Journal) Migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(migrations, "sql/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := j.db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := j.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// RecordRound stores the latest round of st for a session.
// Recording a round number the session already holds is an error.
func (j *Journal) RecordRound(ctx context.Context, sessionID string, st game.State) error {
	if st.Last == nil {
		return ErrNoRound
	}
	_, err := j.db.ExecContext(ctx, `
        INSERT INTO rounds
            (session_id, round, player, computer, result, player_score, computer_score, played_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, st.Rounds, st.Last.Player.String(), st.Last.Computer.String(), st.Last.Result.String(),
		st.PlayerScore, st.ComputerScore, j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record round: %w", err)
	}
	return nil
}

// RecordReset clears a session's rounds and notes how many were discarded.
func (j *Journal) RecordReset(ctx context.Context, sessionID string) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM rounds WHERE session_id=?`, sessionID).Scan(&n); err != nil {
		return fmt.Errorf("count rounds: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rounds WHERE session_id=?`, sessionID); err != nil {
		return fmt.Errorf("clear rounds: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO resets (session_id, rounds, reset_at) VALUES (?, ?, ?)`,
		sessionID, n, j.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record reset: %w", err)
	}
	return tx.Commit()
}

// Resets reports how many times a session has been reset.
func (j *Journal) Resets(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM resets WHERE session_id=?`, sessionID).Scan(&n)
	return n, err
}

// History returns up to limit rounds for a session, newest first.
// A non-positive limit defaults to 20.
func (j *Journal) History(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
        SELECT round, player, computer, result, player_score, computer_score, played_at
        FROM rounds
        WHERE session_id=?
        ORDER BY round DESC
        LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e                        Entry
			player, computer, result string
			playedAt                 string
		)
		if err := rows.Scan(&e.Round, &player, &computer, &result, &e.PlayerScore, &e.ComputerScore, &playedAt); err != nil {
			return nil, err
		}
		if e.Player, err = game.ParseChoice(player); err != nil {
			return nil, err
		}
		if e.Computer, err = game.ParseChoice(computer); err != nil {
			return nil, err
		}
		if e.Result, err = game.ParseRoundResult(result); err != nil {
			return nil, err
		}
		if e.PlayedAt, err = time.Parse(time.RFC3339Nano, playedAt); err != nil {
			return nil, fmt.Errorf("round %d played_at: %w", e.Round, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Tally groups a session's rounds by the player's choice.
// Every choice is present in the result, in rock/paper/scissors order.
func (j *Journal) Tally(ctx context.Context, sessionID string) ([]ChoiceTally, error) {
	rows, err := j.db.QueryContext(ctx, `
        SELECT player,
               SUM(result = 'player_win'),
               SUM(result = 'computer_win'),
               SUM(result = 'draw')
        FROM rounds
        WHERE session_id=?
        GROUP BY player`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byChoice := make(map[game.Choice]ChoiceTally, len(game.Choices))
	for rows.Next() {
		var (
			player string
			t      ChoiceTally
		)
		if err := rows.Scan(&player, &t.Wins, &t.Losses, &t.Draws); err != nil {
			return nil, err
		}
		if t.Choice, err = game.ParseChoice(player); err != nil {
			return nil, err
		}
		byChoice[t.Choice] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ChoiceTally, 0, len(game.Choices))
	for _, c := range game.Choices {
		t := byChoice[c]
		t.Choice = c
		out = append(out, t)
	}
	return out, nil
}
