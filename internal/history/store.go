// Package history keeps a local SQLite record of analysis runs, their raw
// model output and the resulting ledgers.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/varunidealabs/cash-flow-analyzer/internal/domain"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
	"github.com/varunidealabs/cash-flow-analyzer/internal/pipeline"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrRunNotFound is returned when a run ID is not in the history.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of the run history.
type Run struct {
	ID               string     `json:"run_id"`
	DocumentName     string     `json:"document_name"`
	ContentType      string     `json:"content_type,omitempty"`
	SourceURI        string     `json:"source_uri,omitempty"`
	SizeBytes        int        `json:"size_bytes"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	TransactionCount int        `json:"transaction_count"`
}

// Store is a pipeline.RunRecorder backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ pipeline.RunRecorder = (*Store)(nil)

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("Open: creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("Open: opening history db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("Open: creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// StartRun inserts a RUNNING row and returns its ID.
func (s *Store) StartRun(ctx context.Context, info pipeline.RunInfo) (string, error) {
	runID := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(run_id, document_name, content_type, source_uri, size_bytes, parser_version, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, info.DocumentName, info.ContentType, info.SourceURI, info.SizeBytes,
		pipeline.ParserVersion, pipeline.RunStatusRunning, now(),
	)
	if err != nil {
		return "", fmt.Errorf("StartRun: inserting run: %w", err)
	}
	return runID, nil
}

// RecordModelOutput stores the unmodified model response for a run.
func (s *Store) RecordModelOutput(ctx context.Context, runID string, out *pipeline.ExtractionResult) error {
	if out == nil {
		return nil
	}

	repaired := 0
	if out.Repaired {
		repaired = 1
	}

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO model_outputs
		(run_id, model, finish_reason, repaired, prompt_tokens, completion_tokens, raw_content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, out.Model, out.FinishReason, repaired, out.PromptTokens, out.CompletionTokens, out.RawContent, now(),
	)
	if err != nil {
		return fmt.Errorf("RecordModelOutput: %w", err)
	}
	return nil
}

// SaveLedger replaces the stored ledger of a run.
func (s *Store) SaveLedger(ctx context.Context, runID string, ledger domain.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveLedger: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("SaveLedger: clearing ledger: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(run_id, position, date, description, amount, type, category, year_month)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("SaveLedger: preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range ledger {
		var date, amount, ym sql.NullString
		if t.HasDate() {
			date = sql.NullString{String: t.Date.String(), Valid: true}
			ym = sql.NullString{String: t.YearMonth, Valid: true}
		}
		if t.HasAmount() {
			amount = sql.NullString{String: t.Amount.Decimal.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, i, date, t.Description, amount, string(t.Type), t.Category, ym); err != nil {
			return fmt.Errorf("SaveLedger: inserting row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveLedger: commit: %w", err)
	}
	return nil
}

// MarkRunSucceeded sets status=SUCCESS, finished_at and the transaction count.
func (s *Store) MarkRunSucceeded(ctx context.Context, runID string, txCount int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs
		SET status = ?, finished_at = ?, error_message = '', transaction_count = ?
		WHERE run_id = ?`,
		pipeline.RunStatusSuccess, now(), txCount, runID,
	)
	if err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// MarkRunFailed sets status=FAILED with a truncated error message. Failures
// are logged, not returned.
func (s *Store) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	_, err := s.db.ExecContext(ctx, `UPDATE runs
		SET status = ?, finished_at = ?, error_message = ?
		WHERE run_id = ?`,
		pipeline.RunStatusFailed, now(), pipeline.ErrorMessage(runErr), runID,
	)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("run_id", runID).Msg("MarkRunFailed: update failed")
	}
}

const runColumns = `run_id, document_name, content_type, source_uri, size_bytes, status,
	started_at, finished_at, error_message, transaction_count`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRuns: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetRun: %w", err)
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                        Run
		contentType, uri, errMsg sql.NullString
		startedAt                string
		finishedAt               sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.DocumentName, &contentType, &uri, &r.SizeBytes, &r.Status,
		&startedAt, &finishedAt, &errMsg, &r.TransactionCount); err != nil {
		return Run{}, err
	}
	r.ContentType = contentType.String
	r.SourceURI = uri.String
	r.ErrorMessage = errMsg.String

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing started_at: %w", err)
	}
	r.StartedAt = t
	if finishedAt.Valid && finishedAt.String != "" {
		f, err := time.Parse(timeLayout, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("parsing finished_at: %w", err)
		}
		r.FinishedAt = &f
	}
	return r, nil
}

// LoadLedger rebuilds the ledger stored for a run, in its original order.
func (s *Store) LoadLedger(ctx context.Context, runID string) (domain.Ledger, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT date, description, amount, type, category
		FROM transactions WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("LoadLedger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ledger domain.Ledger
	for rows.Next() {
		var (
			date, amount sql.NullString
			t            domain.Transaction
			txType       string
		)
		if err := rows.Scan(&date, &t.Description, &amount, &txType, &t.Category); err != nil {
			return nil, fmt.Errorf("LoadLedger: scanning row: %w", err)
		}
		t.Type = domain.TxType(txType)

		if date.Valid {
			d, err := civil.ParseDate(date.String)
			if err != nil {
				return nil, fmt.Errorf("LoadLedger: parsing date %q: %w", date.String, err)
			}
			t.Date = d
			t.Year = d.Year
			t.Month = int(d.Month)
			t.YearMonth = domain.YearMonthOf(d)
		}
		if amount.Valid {
			a, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("LoadLedger: parsing amount %q: %w", amount.String, err)
			}
			t.Amount = decimal.NewNullDecimal(a)
		}
		ledger = append(ledger, t)
	}
	return ledger, rows.Err()
}
