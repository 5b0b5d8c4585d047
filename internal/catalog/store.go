package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/ad-checkout/internal/pricing"
)

// DB is the subset of *pgxpool.Pool the store queries through.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	sqlProductByCode = `SELECT code, name, description, price::float8
FROM products WHERE code = $1`

	sqlCustomerByID = `SELECT id, name FROM customers WHERE id = $1`

	sqlPriceDeals = `SELECT customer_id, product_code, price::float8, trigger_size
FROM price_override_deals WHERE customer_id = $1 ORDER BY id`

	sqlBulkDeals = `SELECT customer_id, product_code, purchase_size, cost_size
FROM bulk_deals WHERE customer_id = $1 ORDER BY id`
)

// Store reads master data from Postgres.
type Store struct {
	db DB
}

// NewStore constructs a Store over db.
func NewStore(db DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("catalog: db is required")
	}
	return &Store{db: db}, nil
}

func (s *Store) Product(ctx context.Context, code string) (Product, error) {
	var p Product
	err := s.db.QueryRow(ctx, sqlProductByCode, code).Scan(&p.Code, &p.Name, &p.Description, &p.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("product %q: %w", code, ErrNotFound)
		}
		return Product{}, fmt.Errorf("query product %q: %w", code, err)
	}
	return p, nil
}

func (s *Store) Customer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	if err := s.db.QueryRow(ctx, sqlCustomerByID, id).Scan(&c.ID, &c.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer %d: %w", id, ErrNotFound)
		}
		return Customer{}, fmt.Errorf("query customer %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) PriceDeals(ctx context.Context, customerID int64) ([]pricing.PriceOverrideDeal, error) {
	rows, err := s.db.Query(ctx, sqlPriceDeals, customerID)
	if err != nil {
		return nil, fmt.Errorf("query price deals: %w", err)
	}
	deals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.PriceOverrideDeal, error) {
		var d pricing.PriceOverrideDeal
		err := row.Scan(&d.CustomerID, &d.ProductCode, &d.Price, &d.TriggerSize)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan price deals: %w", err)
	}
	return deals, nil
}

func (s *Store) BulkDeals(ctx context.Context, customerID int64) ([]pricing.BulkDeal, error) {
	rows, err := s.db.Query(ctx, sqlBulkDeals, customerID)
	if err != nil {
		return nil, fmt.Errorf("query bulk deals: %w", err)
	}
	deals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.BulkDeal, error) {
		var d pricing.BulkDeal
		err := row.Scan(&d.CustomerID, &d.ProductCode, &d.PurchaseSize, &d.CostSize)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan bulk deals: %w", err)
	}
	return deals, nil
}
