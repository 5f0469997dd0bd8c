// Package sqltest provides in-memory stand-ins for infra.SQLExecutor so that
// repositories and stores can be tested without PostgreSQL.
package sqltest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call captures one statement issued against the Executor.
type Call struct {
	Query string
	Args  []any
}

// Executor records Exec calls and answers queries through the configured hooks.
// OnExec, when set, decides the command tag of each Exec.
type Executor struct {
	mu         sync.Mutex
	Execs      []Call
	ExecErr    error
	OnExec     func(query string, args []any) (pgconn.CommandTag, error)
	OnQueryRow func(query string, args []any) pgx.Row
	OnQuery    func(query string, args []any) (pgx.Rows, error)
}

func (e *Executor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Execs = append(e.Execs, Call{Query: query, Args: args})
	if e.OnExec != nil {
		return e.OnExec(query, args)
	}
	return pgconn.NewCommandTag("UPDATE 1"), e.ExecErr
}

func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if e.OnQueryRow == nil {
		return Row{}
	}
	return e.OnQueryRow(query, args)
}

func (e *Executor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if e.OnQuery == nil {
		return nil, fmt.Errorf("sqltest: unexpected query: %s", firstLine(query))
	}
	return e.OnQuery(query, args)
}

// ExecsMatching returns recorded Exec calls whose query contains fragment.
func (e *Executor) ExecsMatching(fragment string) []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Call
	for _, call := range e.Execs {
		if strings.Contains(call.Query, fragment) {
			out = append(out, call)
		}
	}
	return out
}

// Row is a single-row result. A zero Row scans as pgx.ErrNoRows.
type Row struct {
	Values []any
	Err    error
}

func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	if r.Values == nil {
		return pgx.ErrNoRows
	}
	return assign(dest, r.Values)
}

// Rows iterates over fixed values.
type Rows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

// NewRows builds a result set; each inner slice is one row.
func NewRows(data [][]any) *Rows {
	return &Rows{data: data}
}

func (r *Rows) Close() { r.closed = true }

func (r *Rows) Err() error { return r.err }

func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *Rows) Next() bool {
	if r.closed || r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return fmt.Errorf("sqltest: scan without row")
	}
	return assign(dest, r.data[r.idx-1])
}

func (r *Rows) Values() ([]any, error) {
	if r.idx == 0 || r.idx > len(r.data) {
		return nil, fmt.Errorf("sqltest: values without row")
	}
	return r.data[r.idx-1], nil
}

func (r *Rows) RawValues() [][]byte { return nil }

func (r *Rows) Conn() *pgx.Conn { return nil }

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("sqltest: scan %d columns into %d targets", len(values), len(dest))
	}
	for i, target := range dest {
		ptr := reflect.ValueOf(target)
		if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			return fmt.Errorf("sqltest: target %d is not a pointer", i)
		}
		elem := ptr.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().ConvertibleTo(elem.Type()) {
			return fmt.Errorf("sqltest: column %d: cannot assign %s to %s", i, v.Type(), elem.Type())
		}
		elem.Set(v.Convert(elem.Type()))
	}
	return nil
}

func firstLine(query string) string {
	query = strings.TrimSpace(query)
	if idx := strings.IndexByte(query, '\n'); idx >= 0 {
		return query[:idx]
	}
	return query
}

var _ pgx.Rows = (*Rows)(nil)
