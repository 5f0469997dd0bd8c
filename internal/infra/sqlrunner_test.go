package infra

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func TestExtractMarker(t *testing.T) {
	query := `--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db
select 1;
`
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker error: %v", err)
	}
	if marker != "4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractMarkerRejectsUntaggedQuery(t *testing.T) {
	for _, query := range []string{"", "select 1;", "--sql not-a-uuid\nselect 1;"} {
		if _, _, err := extractMarker(query); !errors.Is(err, ErrUntaggedQuery) {
			t.Fatalf("expected ErrUntaggedQuery for %q, got %v", query, err)
		}
	}
}

type recordingDB struct {
	queries []string
	execErr error
}

func (d *recordingDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	d.queries = append(d.queries, query)
	return pgconn.NewCommandTag("UPDATE 2"), d.execErr
}

func (d *recordingDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	d.queries = append(d.queries, query)
	return errorRow{err: pgx.ErrNoRows}
}

func (d *recordingDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	d.queries = append(d.queries, query)
	return nil, errors.New("connection reset")
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

const taggedUpdate = "--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db\nupdate scenes set status = 'pending';"

func TestSQLRunnerStripsMarkerAndLogs(t *testing.T) {
	var buf bytes.Buffer
	db := &recordingDB{}
	r := newSQLRunner(db, zerolog.New(&buf).Level(zerolog.DebugLevel), steppingClock(time.Millisecond))

	tag, err := r.Exec(context.Background(), taggedUpdate)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if tag.RowsAffected() != 2 {
		t.Fatalf("rows affected = %d", tag.RowsAffected())
	}
	if db.queries[0] != "update scenes set status = 'pending';" {
		t.Fatalf("marker not stripped: %q", db.queries[0])
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"debug"`) || !strings.Contains(out, `"marker":"4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db"`) {
		t.Fatalf("unexpected log %s", out)
	}
}

func TestSQLRunnerLevels(t *testing.T) {
	var buf bytes.Buffer
	db := &recordingDB{}
	r := newSQLRunner(db, zerolog.New(&buf), steppingClock(time.Second))

	if _, err := r.Exec(context.Background(), taggedUpdate); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("expected slow statement warning, got %s", buf.String())
	}

	buf.Reset()
	var id string
	err := r.QueryRow(context.Background(), taggedUpdate).Scan(&id)
	if !IsNoRows(err) {
		t.Fatalf("expected no rows, got %v", err)
	}
	if strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("no rows must not log an error: %s", buf.String())
	}

	buf.Reset()
	if _, err := r.Query(context.Background(), taggedUpdate); err == nil {
		t.Fatal("expected query error")
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got %s", buf.String())
	}

	if _, err := r.Exec(context.Background(), "select 1;"); !errors.Is(err, ErrUntaggedQuery) {
		t.Fatalf("expected untagged error, got %v", err)
	}
}
