package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface shared by repositories, the history store
// and the credentials store.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// SlowQuery is the elapsed time above which a statement is logged at warn.
const SlowQuery = 250 * time.Millisecond

// ErrUntaggedQuery rejects statements without a "--sql <uuid>" first line.
var ErrUntaggedQuery = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// SQLRunner executes marker-tagged statements from the sqlinline package.
// Every call is logged with its marker and timing.
type SQLRunner struct {
	db     SQLExecutor
	logger zerolog.Logger
	now    func() time.Time
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return newSQLRunner(pool, logger, time.Now)
}

func newSQLRunner(db SQLExecutor, logger zerolog.Logger, now func() time.Time) *SQLRunner {
	return &SQLRunner{db: db, logger: logger, now: now}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	started := r.now()
	tag, err := r.db.Exec(ctx, body, args...)
	r.observe("exec", marker, started, err).Int64("rows", tag.RowsAffected()).Msg("sql")
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, body, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return &observedRow{
		row:     r.db.QueryRow(ctx, body, args...),
		runner:  r,
		marker:  marker,
		started: r.now(),
	}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, body, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	started := r.now()
	rows, err := r.db.Query(ctx, body, args...)
	r.observe("query", marker, started, err).Msg("sql")
	return rows, err
}

// observe picks the log level from the outcome: errors at error, slow
// statements at warn, the rest at debug.
func (r *SQLRunner) observe(op, marker string, started time.Time, err error) *zerolog.Event {
	elapsed := r.now().Sub(started)
	var ev *zerolog.Event
	switch {
	case err != nil && !IsNoRows(err):
		ev = r.logger.Error().Err(err)
	case elapsed > SlowQuery:
		ev = r.logger.Warn()
	default:
		ev = r.logger.Debug()
	}
	return ev.Str("op", op).Str("marker", marker).Dur("elapsed", elapsed)
}

// IsNoRows reports whether err signals an empty single-row result.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

type observedRow struct {
	row     pgx.Row
	runner  *SQLRunner
	marker  string
	started time.Time
}

func (o *observedRow) Scan(dest ...any) error {
	err := o.row.Scan(dest...)
	o.runner.observe("query_row", o.marker, o.started, err).Msg("sql")
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// extractMarker splits a tagged statement into its marker and the SQL sent
// to the server.
func extractMarker(query string) (string, string, error) {
	head, body, _ := strings.Cut(strings.TrimSpace(query), "\n")
	m := markerRegexp.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return "", "", ErrUntaggedQuery
	}
	return m[1], strings.TrimSpace(body), nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
