package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Category is the catalog grouping for an inventory item.
type Category string

const (
	CategoryPaper       Category = "paper"
	CategoryProduct     Category = "product"
	CategoryLargeFormat Category = "large_format"
	CategorySpecialty   Category = "specialty"
)

// Valid returns true if the category is a known value.
func (c Category) Valid() bool {
	switch c {
	case CategoryPaper, CategoryProduct, CategoryLargeFormat, CategorySpecialty:
		return true
	default:
		return false
	}
}

// ErrItemNotFound indicates the requested item is not in the catalog.
var ErrItemNotFound = errors.New("item not found in catalog")

// InventoryItem is a catalog entry. The catalog is read-mostly reference
// data; stock levels are derived from the transaction log, not stored here.
type InventoryItem struct {
	// ItemName is the unique catalog key.
	ItemName string `json:"item_name" yaml:"item_name"`
	// Category groups the item for catalog searches.
	Category Category `json:"category" yaml:"category"`
	// UnitPrice is the selling price per unit in dollars.
	UnitPrice float64 `json:"unit_price" yaml:"unit_price"`
	// MinStockLevel is the reorder threshold in units.
	MinStockLevel int `json:"min_stock_level" yaml:"min_stock_level"`
}

// AddItem inserts a catalog entry, replacing any existing entry with the
// same name.
func (s *Store) AddItem(item InventoryItem) error {
	if !item.Category.Valid() {
		return fmt.Errorf("invalid category %q for item %q", item.Category, item.ItemName)
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("negative unit price for item %q", item.ItemName)
	}

	_, err := s.Exec(`
		INSERT INTO inventory (item_name, category, unit_price, min_stock_level)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(item_name) DO UPDATE SET
			category = excluded.category,
			unit_price = excluded.unit_price,
			min_stock_level = excluded.min_stock_level
	`, item.ItemName, string(item.Category), item.UnitPrice, item.MinStockLevel)
	if err != nil {
		return fmt.Errorf("insert catalog item %q: %w", item.ItemName, err)
	}
	return nil
}

// Item looks up a single catalog entry by exact name.
func (s *Store) Item(name string) (*InventoryItem, error) {
	row := s.QueryRow(`
		SELECT item_name, category, unit_price, min_stock_level
		FROM inventory WHERE item_name = ?
	`, name)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query item %q: %w", name, err)
	}
	return item, nil
}

// Items returns the full catalog ordered by item name.
func (s *Store) Items() ([]InventoryItem, error) {
	rows, err := s.Query(`
		SELECT item_name, category, unit_price, min_stock_level
		FROM inventory ORDER BY item_name
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ItemsByCategory returns all catalog entries in the given category.
func (s *Store) ItemsByCategory(category Category) ([]InventoryItem, error) {
	rows, err := s.Query(`
		SELECT item_name, category, unit_price, min_stock_level
		FROM inventory WHERE category = ? ORDER BY item_name
	`, string(category))
	if err != nil {
		return nil, fmt.Errorf("query category %q: %w", category, err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// FindSimilarItems returns catalog entries whose name contains the search
// term, case-insensitively. Used to map free-text customer mentions to
// exact catalog names.
func (s *Store) FindSimilarItems(term string) ([]InventoryItem, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	rows, err := s.Query(`
		SELECT item_name, category, unit_price, min_stock_level
		FROM inventory WHERE LOWER(item_name) LIKE ? ORDER BY item_name
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search catalog for %q: %w", term, err)
	}
	defer rows.Close()
	return collectItems(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (*InventoryItem, error) {
	var item InventoryItem
	var category string
	if err := r.Scan(&item.ItemName, &category, &item.UnitPrice, &item.MinStockLevel); err != nil {
		return nil, err
	}
	item.Category = Category(category)
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]InventoryItem, error) {
	var items []InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
