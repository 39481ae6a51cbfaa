package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status is the recorded outcome of one archive.
type Status string

const (
	StatusCompressed Status = "compressed"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// Entry is one ledger row.
type Entry struct {
	ID            int64
	RunID         string
	ArchivePath   string
	Status        Status
	ErrorKind     string
	ErrorMessage  string
	OriginalBytes int64
	KeptBytes     int64
	Pages         int
	Duration      time.Duration
	RecordedAt    time.Time
}

// Record appends e to the ledger. A zero RecordedAt is stamped with the
// current time.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.RunID == "" || e.ArchivePath == "" {
		return 0, errors.New("history entry requires run id and archive path")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	res, err := s.exec(ctx,
		`INSERT INTO outcomes (
            run_id, archive_path, status, error_kind, error_message,
            original_bytes, kept_bytes, pages, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID,
		e.ArchivePath,
		string(e.Status),
		nullableString(e.ErrorKind),
		nullableString(e.ErrorMessage),
		e.OriginalBytes,
		e.KeptBytes,
		e.Pages,
		e.Duration.Milliseconds(),
		e.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert outcome: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, archive_path, status, error_kind, error_message,
        original_bytes, kept_bytes, pages, duration_ms, recorded_at
        FROM outcomes ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			status     string
			kind, msg  sql.NullString
			durationMS int64
			recorded   string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.ArchivePath, &status, &kind, &msg,
			&e.OriginalBytes, &e.KeptBytes, &e.Pages, &durationMS, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Status = Status(status)
		e.ErrorKind = kind.String
		e.ErrorMessage = msg.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			e.RecordedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM outcomes`)
	if err != nil {
		return 0, fmt.Errorf("clear outcomes: %w", err)
	}
	return res.RowsAffected()
}

// Counts returns the number of entries per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM outcomes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
