// Package requestlog writes one append-only row per proxied request, via an
// async buffered writer so Stage 5 (Respond) never blocks on the database.
package requestlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a single request-log row awaiting persistence.
type Entry struct {
	UserID           string
	CredentialID     *int64 // nullable: admin paths have no credential
	Endpoint         string
	Method           string
	Status           int
	DurationMS       int64
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            *string
	ErrorSnippet     *string // nullable, only set on non-200, truncated to 500 bytes
	Timestamp        time.Time
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
	maxErrorLen   = 500
)

// TruncateError clamps an error message to the 500-byte error-snippet limit.
func TruncateError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	return msg[:maxErrorLen]
}

// Writer is an async, buffered request-log writer. Log never blocks the
// caller; the response is authoritative for the client whether or not the
// log write succeeds.
type Writer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

// NewWriter creates a request-log Writer. Call Start to begin processing entries.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:    pool,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start begins the background goroutine that flushes entries to the database.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close drains and flushes any pending entries, then waits for the
// background goroutine to exit.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues a request-log entry for async writing. If the buffer is full
// the entry is dropped and a warning is logged — the client response is
// never held up by log persistence.
func (w *Writer) Log(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("request log buffer full, dropping entry",
			"endpoint", entry.Endpoint, "status", entry.Status)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *Writer) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, e := range entries {
		query := `INSERT INTO request_logs
			(user_id, api_key_id, endpoint, method, status_code, duration_ms,
			 prompt_tokens, completion_tokens, total_tokens, model, error_message, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

		if _, err := w.pool.Exec(ctx, query,
			e.UserID, e.CredentialID, e.Endpoint, e.Method, e.Status, e.DurationMS,
			e.PromptTokens, e.CompletionTokens, e.TotalTokens, e.Model, e.ErrorSnippet, e.Timestamp,
		); err != nil {
			w.logger.Error("writing request log entry", "error", err,
				"endpoint", e.Endpoint, "status", e.Status)
		}
	}
}
