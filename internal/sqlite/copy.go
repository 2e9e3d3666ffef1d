// This file implements the line-oriented bulk copy stream used by the
// ingestion pipeline. A stream carries one batch of rows and their cells on
// one pinned connection inside a single transaction; SQLite permits one
// writer at a time, so sibling batches queue on the write lock rather than
// interleaving. Writers feed CSV-style lines through a bounded buffer:
// WriteRow and WriteCell block when the buffer is full, which is the
// stream's backpressure signal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/petrel-data/gridbase/pkg/types"
)

// CopyNull is the line-format token for NULL. Real values that collide with
// it are quoted by EncodeCopyLine, so the token is unambiguous on the wire.
const CopyNull = `\N`

// copyBufferLines bounds the stream's in-flight line buffer.
const copyBufferLines = 1024

// errCopyFinished is returned by writes after Commit or Rollback.
var errCopyFinished = errors.New("copy stream is finished")

// copySpec binds one line format to its destination table.
type copySpec struct {
	insertSQL string
	arity     int
}

var (
	rowCopySpec = copySpec{
		insertSQL: "INSERT INTO rows (row_id, table_id, cache, search, created_ns) VALUES (?, ?, ?, ?, ?)",
		arity:     5,
	}
	cellCopySpec = copySpec{
		insertSQL: "INSERT INTO cells (cell_id, row_id, column_id, text_value, number_value, created_ns, updated_ns) VALUES (?, ?, ?, ?, ?, ?, ?)",
		arity:     7,
	}
)

// BeginBatchCopy opens a bulk copy stream for one batch into an owned
// table. The whole batch, rows and cells both, rides one transaction on one
// pinned connection, so a batch commits or rolls back as a unit and sibling
// batches serialize on the write lock. The transaction commits with
// synchronous = OFF; a crash mid-batch loses that batch only, which the
// pipeline's per-batch isolation already tolerates.
func (b *Backend) BeginBatchCopy(ctx context.Context, owner, tableID string) (types.BatchCopy, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}
	return beginCopy(ctx, db)
}

// beginCopy pins a connection, opens the relaxed-durability transaction, and
// starts the consumer goroutine that drains lines into prepared inserts.
func beginCopy(ctx context.Context, db *sql.DB) (*copyStream, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinning copy connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA synchronous = OFF;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("relaxing durability: %w", err)
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("beginning copy transaction: %w", err)
	}
	rowStmt, err := tx.PrepareContext(ctx, rowCopySpec.insertSQL)
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, fmt.Errorf("preparing row insert: %w", err)
	}
	cellStmt, err := tx.PrepareContext(ctx, cellCopySpec.insertSQL)
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, fmt.Errorf("preparing cell insert: %w", err)
	}

	s := &copyStream{
		lines:    make(chan copyLine, copyBufferLines),
		done:     make(chan struct{}),
		conn:     conn,
		tx:       tx,
		rowStmt:  rowStmt,
		cellStmt: cellStmt,
	}
	go s.consume()
	return s, nil
}

// copyLine tags one encoded record with its destination table.
type copyLine struct {
	cell bool
	text string
}

// copyStream implements types.BatchCopy. A stream has a single writer: the
// goroutine that called BeginBatchCopy also calls WriteRow and WriteCell
// and exactly one of Commit or Rollback.
type copyStream struct {
	lines    chan copyLine
	done     chan struct{}
	conn     *sql.Conn
	tx       *sql.Tx
	rowStmt  *sql.Stmt
	cellStmt *sql.Stmt

	err error // first consumer error; read after done is closed

	mu       sync.Mutex
	finished bool
}

// consume drains lines into the prepared inserts until the channel closes
// or the first error. Inserts execute in write order, so a row written
// before its cells satisfies the foreign key. Closing done releases any
// writer blocked on a full buffer.
func (s *copyStream) consume() {
	defer close(s.done)
	for l := range s.lines {
		spec, stmt := rowCopySpec, s.rowStmt
		if l.cell {
			spec, stmt = cellCopySpec, s.cellStmt
		}
		args, err := parseCopyLine(l.text, spec.arity)
		if err != nil {
			s.err = err
			return
		}
		if _, err := stmt.Exec(args...); err != nil {
			s.err = fmt.Errorf("copy insert: %w", err)
			return
		}
	}
}

// WriteRow streams one encoded row record.
func (s *copyStream) WriteRow(line string) error {
	return s.write(copyLine{text: line})
}

// WriteCell streams one encoded cell record.
func (s *copyStream) WriteCell(line string) error {
	return s.write(copyLine{cell: true, text: line})
}

// write blocks while the internal buffer is full (the drain-await) and
// fails fast once the consumer has stopped.
func (s *copyStream) write(l copyLine) error {
	select {
	case <-s.done:
		if s.err != nil {
			return s.err
		}
		return errCopyFinished
	default:
	}
	select {
	case s.lines <- l:
		return nil
	case <-s.done:
		if s.err != nil {
			return s.err
		}
		return errCopyFinished
	}
}

// Commit waits for the buffer to drain and commits the transaction. If the
// consumer failed, the transaction is rolled back and the consumer's error
// returned.
func (s *copyStream) Commit() error {
	if err := s.finish(); err != nil {
		return err
	}
	if s.err != nil {
		s.tx.Rollback()
		s.conn.Close()
		return s.err
	}
	if err := s.tx.Commit(); err != nil {
		s.conn.Close()
		return fmt.Errorf("committing copy: %w", err)
	}
	return s.conn.Close()
}

// Rollback discards the whole batch. Safe to call after a failed Commit.
func (s *copyStream) Rollback() error {
	if err := s.finish(); err != nil {
		return nil // already finished
	}
	s.tx.Rollback()
	return s.conn.Close()
}

// finish closes the line channel once and waits for the consumer to exit.
func (s *copyStream) finish() error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return errCopyFinished
	}
	s.finished = true
	s.mu.Unlock()

	close(s.lines)
	<-s.done
	return nil
}

// EncodeCopyLine renders one record in the copy line format: fields joined
// by commas, nil encoded as the NULL token, strings quoted when they contain
// separators, quotes, newlines, or collide with the NULL token. Quote
// characters are doubled inside quoted fields.
func EncodeCopyLine(fields ...any) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		switch v := f.(type) {
		case nil:
			sb.WriteString(CopyNull)
		case string:
			sb.WriteString(escapeCopyField(v))
		case int64:
			fmt.Fprintf(&sb, "%d", v)
		case int:
			fmt.Fprintf(&sb, "%d", v)
		case float64:
			fmt.Fprintf(&sb, "%g", v)
		default:
			sb.WriteString(escapeCopyField(fmt.Sprint(v)))
		}
	}
	return sb.String()
}

// escapeCopyField quotes a field when needed and doubles embedded quotes.
func escapeCopyField(s string) string {
	if s != CopyNull && !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// parseCopyLine splits one encoded line into insert arguments. The NULL
// token (unquoted) becomes a nil argument. Returns an error when the field
// count does not match the destination arity or quoting is unbalanced.
func parseCopyLine(line string, arity int) ([]any, error) {
	args := make([]any, 0, arity)
	i := 0
	for {
		if i >= len(line) {
			// Trailing empty field (line ends with a separator) or empty line.
			args = append(args, "")
			break
		}
		if line[i] == '"' {
			var sb strings.Builder
			i++
			closed := false
			for i < len(line) {
				c := line[i]
				if c == '"' {
					if i+1 < len(line) && line[i+1] == '"' {
						sb.WriteByte('"')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				sb.WriteByte(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quote in copy line")
			}
			args = append(args, sb.String())
		} else {
			end := strings.IndexByte(line[i:], ',')
			var raw string
			if end < 0 {
				raw = line[i:]
				i = len(line)
			} else {
				raw = line[i : i+end]
				i += end
			}
			if raw == CopyNull {
				args = append(args, nil)
			} else {
				args = append(args, raw)
			}
		}
		if i >= len(line) {
			break
		}
		if line[i] != ',' {
			return nil, fmt.Errorf("malformed copy line near byte %d", i)
		}
		i++
	}
	if len(args) != arity {
		return nil, fmt.Errorf("copy line has %d fields, want %d", len(args), arity)
	}
	return args, nil
}
