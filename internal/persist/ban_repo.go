package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erinngo/server/internal/violation"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
)

var ErrAccountNotFound = errors.New("account not found")

// BanRepo stores account bans and the security incident log.
type BanRepo struct {
	db *DB
}

func NewBanRepo(db *DB) *BanRepo {
	return &BanRepo{db: db}
}

func (r *BanRepo) RecordIncident(ctx context.Context, inc violation.Incident) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO security_incidents (id, account, level, message, score, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inc.ID.String(), inc.Account, int16(inc.Level), inc.Message, inc.Score, inc.Outcome.String(), inc.At,
	)
	if err != nil {
		return fmt.Errorf("record incident %s: %w", inc.ID, err)
	}
	return nil
}

// SaveBan bans the account until the given time and counts the ban.
func (r *BanRepo) SaveBan(ctx context.Context, account string, until time.Time, reason string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts
		 SET ban_expiration = $2, ban_reason = $3, ban_count = ban_count + 1
		 WHERE name = $1`,
		account, until, reason,
	)
	if err != nil {
		return fmt.Errorf("save ban %s: %w", account, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save ban %s: %w", account, ErrAccountNotFound)
	}
	return nil
}

// BanCount returns how often the account was banned before.
func (r *BanRepo) BanCount(ctx context.Context, account string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT ban_count FROM accounts WHERE name = $1`, account).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Incidents returns the newest incidents of an account, newest first.
func (r *BanRepo) Incidents(ctx context.Context, account string, limit int) ([]violation.Incident, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, account, level, message, score, outcome, created_at
		 FROM security_incidents WHERE account = $1
		 ORDER BY id DESC LIMIT $2`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []violation.Incident
	for rows.Next() {
		var (
			inc     violation.Incident
			id      string
			level   int16
			outcome string
		)
		if err := rows.Scan(&id, &inc.Account, &level, &inc.Message, &inc.Score, &outcome, &inc.At); err != nil {
			return nil, err
		}
		if inc.ID, err = ulid.Parse(id); err != nil {
			return nil, fmt.Errorf("incident id %q: %w", id, err)
		}
		inc.Level = violation.Level(level)
		inc.Outcome = violation.ParseOutcome(outcome)
		out = append(out, inc)
	}
	return out, rows.Err()
}
