package requestlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DailyUsage is one row of the usage_stats aggregation: a calendar date and
// its request/token totals.
type DailyUsage struct {
	Date             string
	Requests         int
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
}

// Stats provides read-only aggregation queries over the request log.
type Stats struct {
	pool *pgxpool.Pool
}

// NewStats creates a Stats reader backed by the given connection pool.
func NewStats(pool *pgxpool.Pool) *Stats {
	return &Stats{pool: pool}
}

// UsageStats returns per-day request/token totals over the last `days` days,
// optionally filtered to a single user.
func (s *Stats) UsageStats(ctx context.Context, userID string, days int) ([]DailyUsage, error) {
	query := `SELECT
		to_char(date(timestamp), 'YYYY-MM-DD') AS day,
		count(*) AS requests,
		coalesce(sum(total_tokens), 0) AS total_tokens,
		coalesce(sum(prompt_tokens), 0) AS prompt_tokens,
		coalesce(sum(completion_tokens), 0) AS completion_tokens
	FROM request_logs
	WHERE timestamp >= now() - ($1 || ' days')::interval
	AND ($2 = '' OR user_id = $2)
	GROUP BY day
	ORDER BY day DESC`

	rows, err := s.pool.Query(ctx, query, days, userID)
	if err != nil {
		return nil, fmt.Errorf("querying usage stats: %w", err)
	}
	defer rows.Close()

	var out []DailyUsage
	for rows.Next() {
		var d DailyUsage
		if err := rows.Scan(&d.Date, &d.Requests, &d.TotalTokens, &d.PromptTokens, &d.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scanning usage stats row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage stats rows: %w", err)
	}
	return out, nil
}
