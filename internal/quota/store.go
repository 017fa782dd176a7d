package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the externally-owned daily counter. The allowed/denied decision
// and the increment must be one atomic unit; implementations may not
// read-then-write.
type Store interface {
	// TryConsume attempts to consume one analysis for the scope's current
	// UTC day. It succeeds only if the pre-increment count is below limit;
	// otherwise state is unchanged and Allowed is false.
	TryConsume(ctx context.Context, scopeKey string, limit int) (Decision, error)

	// Refund returns one previously consumed unit for the scope's current
	// UTC day. Refunding below zero is a no-op.
	Refund(ctx context.Context, scopeKey string) error
}

// PGStore implements Store on PostgreSQL. A single conditional upsert makes
// the check-and-increment atomic under concurrent callers.
type PGStore struct {
	pool  *pgxpool.Pool
	table string
	now   func() time.Time

	consumeSQL string
	refundSQL  string
	sweepSQL   string
}

// NewPGStore creates a store over the given table. The table name comes from
// configuration, so it is sanitized as an identifier before being embedded.
//
// TryConsume's atomicity rests entirely on consumeSQL being one statement:
// the ON CONFLICT ... DO UPDATE ... WHERE count < limit arm re-evaluates the
// guard under the row lock, so concurrent callers serialize on the row and
// the guarded increment can never overshoot. Splitting it into a read plus a
// write would reintroduce the race.
func NewPGStore(pool *pgxpool.Pool, table string) *PGStore {
	ident := pgx.Identifier{table}.Sanitize()
	return &PGStore{
		pool:  pool,
		table: table,
		now:   time.Now,
		consumeSQL: fmt.Sprintf(
			`INSERT INTO %s (scope_key, day_key, count, expires_at)
			 VALUES ($1, $2, 1, $3)
			 ON CONFLICT (scope_key, day_key)
			 DO UPDATE SET count = %s.count + 1
			 WHERE %s.count < $4
			 RETURNING count`, ident, ident, ident),
		refundSQL: fmt.Sprintf(
			`UPDATE %s SET count = count - 1
			 WHERE scope_key = $1 AND day_key = $2 AND count > 0`, ident),
		sweepSQL: fmt.Sprintf(
			`DELETE FROM %s WHERE expires_at <= $1`, ident),
	}
}

// WithClock overrides the time source. Test hook.
func (s *PGStore) WithClock(now func() time.Time) *PGStore {
	s.now = now
	return s
}

func (s *PGStore) TryConsume(ctx context.Context, scopeKey string, limit int) (Decision, error) {
	t := s.now()
	day := DayKey(t)
	expires := NextMidnight(t)

	var count int
	err := s.pool.QueryRow(ctx, s.consumeSQL, scopeKey, day, expires, limit).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conditional upsert matched nothing: the counter is at the limit.
		return Decision{Allowed: false, Remaining: 0}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("%w: consuming quota: %v", ErrUnavailable, err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

func (s *PGStore) Refund(ctx context.Context, scopeKey string) error {
	_, err := s.pool.Exec(ctx, s.refundSQL, scopeKey, DayKey(s.now()))
	if err != nil {
		return fmt.Errorf("%w: refunding quota: %v", ErrUnavailable, err)
	}
	return nil
}

// Sweep deletes expired records. Called by the janitor.
func (s *PGStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, s.sweepSQL, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: sweeping expired quota records: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
