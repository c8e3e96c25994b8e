package ledger

import (
	"database/sql"
	"fmt"
	"strings"
)

// HistoricalQuote is one row of the quote history used for pricing
// consistency checks.
type HistoricalQuote struct {
	OriginalRequest  string  `json:"original_request"`
	TotalAmount      float64 `json:"total_amount"`
	QuoteExplanation string  `json:"quote_explanation"`
	OrderSize        int     `json:"order_size"`
	OrderDate        string  `json:"order_date"`
}

// RecordQuote stores a quote against the request text that produced it and
// returns the quote row id.
func (s *Store) RecordQuote(request string, total float64, explanation string, orderSize int, date string) (int64, error) {
	var quoteID int64
	err := s.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO quote_requests (response, request_date) VALUES (?, ?)
		`, request, date)
		if err != nil {
			return fmt.Errorf("insert quote request: %w", err)
		}
		requestID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get quote request id: %w", err)
		}

		res, err = tx.Exec(`
			INSERT INTO quotes (request_id, total_amount, quote_explanation, order_size, order_date)
			VALUES (?, ?, ?, ?, ?)
		`, requestID, total, explanation, orderSize, date)
		if err != nil {
			return fmt.Errorf("insert quote: %w", err)
		}
		quoteID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get quote id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return quoteID, nil
}

// SearchQuoteHistory returns historical quotes whose request or explanation
// matches every search term, case-insensitively, newest first.
func (s *Store) SearchQuoteHistory(terms []string, limit int) ([]HistoricalQuote, error) {
	if limit <= 0 {
		limit = 5
	}

	var conditions []string
	var args []any
	for _, term := range terms {
		conditions = append(conditions,
			"(LOWER(qr.response) LIKE ? OR LOWER(q.quote_explanation) LIKE ?)")
		pattern := "%" + strings.ToLower(term) + "%"
		args = append(args, pattern, pattern)
	}

	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT qr.response, q.total_amount, COALESCE(q.quote_explanation, ''),
			q.order_size, q.order_date
		FROM quotes q
		JOIN quote_requests qr ON q.request_id = qr.id
		WHERE %s
		ORDER BY q.order_date DESC
		LIMIT ?
	`, where)
	args = append(args, limit)

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search quote history: %w", err)
	}
	defer rows.Close()

	var quotes []HistoricalQuote
	for rows.Next() {
		var hq HistoricalQuote
		if err := rows.Scan(&hq.OriginalRequest, &hq.TotalAmount, &hq.QuoteExplanation, &hq.OrderSize, &hq.OrderDate); err != nil {
			return nil, fmt.Errorf("scan quote history row: %w", err)
		}
		quotes = append(quotes, hq)
	}
	return quotes, rows.Err()
}
