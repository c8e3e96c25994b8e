package ledger

import (
	"errors"
	"fmt"
)

// TransactionType distinguishes customer sales from supplier stock orders.
type TransactionType string

const (
	// TypeSales records a customer sale: stock out, cash in.
	TypeSales TransactionType = "sales"
	// TypeStockOrders records a supplier purchase: stock in, cash out.
	TypeStockOrders TransactionType = "stock_orders"
)

// Valid returns true if the transaction type is a known value.
func (t TransactionType) Valid() bool {
	return t == TypeSales || t == TypeStockOrders
}

// ErrBadTransactionType indicates an unknown transaction type was rejected
// before any write was attempted.
var ErrBadTransactionType = errors.New("transaction type must be 'sales' or 'stock_orders'")

// Transaction is one append-only ledger entry. Entries are never updated
// or deleted; stock and cash are recomputed from the log on every read.
type Transaction struct {
	ID       int64           `json:"id"`
	ItemName string          `json:"item_name"`
	Type     TransactionType `json:"transaction_type"`
	Units    int             `json:"units"`
	Price    float64         `json:"price"`
	Date     string          `json:"transaction_date"`
}

// Append records a transaction and returns its row id.
func (s *Store) Append(itemName string, txType TransactionType, units int, price float64, date string) (int64, error) {
	if !txType.Valid() {
		return 0, ErrBadTransactionType
	}
	if units <= 0 {
		return 0, fmt.Errorf("transaction units must be positive, got %d", units)
	}
	if price < 0 {
		return 0, fmt.Errorf("transaction price must be non-negative, got %.2f", price)
	}

	res, err := s.Exec(`
		INSERT INTO transactions (item_name, transaction_type, units, price, transaction_date)
		VALUES (?, ?, ?, ?, ?)
	`, itemName, string(txType), units, price, date)
	if err != nil {
		return 0, fmt.Errorf("append %s transaction for %q: %w", txType, itemName, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get transaction id: %w", err)
	}
	return id, nil
}

// StockLevel computes the stock of an item as of the given date: stock
// orders add units, sales subtract them. Items absent from the log have
// zero stock.
func (s *Store) StockLevel(itemName, asOf string) (int, error) {
	var stock int
	err := s.QueryRow(`
		SELECT COALESCE(SUM(CASE
			WHEN transaction_type = 'stock_orders' THEN units
			WHEN transaction_type = 'sales' THEN -units
			ELSE 0
		END), 0)
		FROM transactions
		WHERE item_name = ? AND transaction_date <= ?
	`, itemName, normalizeAsOf(asOf)).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("compute stock for %q: %w", itemName, err)
	}
	return stock, nil
}

// AllStock returns a snapshot of every item with positive stock as of the
// given date.
func (s *Store) AllStock(asOf string) (map[string]int, error) {
	rows, err := s.Query(`
		SELECT item_name,
			SUM(CASE
				WHEN transaction_type = 'stock_orders' THEN units
				WHEN transaction_type = 'sales' THEN -units
				ELSE 0
			END) AS stock
		FROM transactions
		WHERE transaction_date <= ?
		GROUP BY item_name
		HAVING stock > 0
	`, normalizeAsOf(asOf))
	if err != nil {
		return nil, fmt.Errorf("compute stock snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]int)
	for rows.Next() {
		var name string
		var stock int
		if err := rows.Scan(&name, &stock); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		snapshot[name] = stock
	}
	return snapshot, rows.Err()
}

// CashBalance computes total sales revenue minus total stock-order spend as
// of the given date.
func (s *Store) CashBalance(asOf string) (float64, error) {
	var balance float64
	err := s.QueryRow(`
		SELECT COALESCE(SUM(CASE
			WHEN transaction_type = 'sales' THEN price
			WHEN transaction_type = 'stock_orders' THEN -price
			ELSE 0
		END), 0)
		FROM transactions
		WHERE transaction_date <= ?
	`, normalizeAsOf(asOf)).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("compute cash balance: %w", err)
	}
	return balance, nil
}

// ItemSales summarizes sold units and revenue for one item.
type ItemSales struct {
	ItemName   string  `json:"item_name"`
	TotalUnits int     `json:"total_units"`
	Revenue    float64 `json:"total_revenue"`
}

// TopSellers returns the highest-revenue items as of the given date.
func (s *Store) TopSellers(asOf string, limit int) ([]ItemSales, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.Query(`
		SELECT item_name, SUM(units) AS total_units, SUM(price) AS total_revenue
		FROM transactions
		WHERE transaction_type = 'sales' AND transaction_date <= ?
			AND item_name IN (SELECT item_name FROM inventory)
		GROUP BY item_name
		ORDER BY total_revenue DESC
		LIMIT ?
	`, normalizeAsOf(asOf), limit)
	if err != nil {
		return nil, fmt.Errorf("query top sellers: %w", err)
	}
	defer rows.Close()

	var sellers []ItemSales
	for rows.Next() {
		var is ItemSales
		if err := rows.Scan(&is.ItemName, &is.TotalUnits, &is.Revenue); err != nil {
			return nil, fmt.Errorf("scan top seller row: %w", err)
		}
		sellers = append(sellers, is)
	}
	return sellers, rows.Err()
}
