package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/noah-isme/ad-checkout/internal/catalog"
)

func main() {
	migrateFirst := flag.Bool("migrate", false, "apply schema migrations before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if *migrateFirst {
		if err := catalog.Migrate(dbURL); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	if err := seed(db, catalog.DefaultSeed()); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	fmt.Println("Seeding completed successfully!")
}

func seed(db *sql.DB, data catalog.Seed) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	fmt.Println("Seeding Customers...")
	for _, c := range data.Customers {
		if _, err = tx.Exec(`
			INSERT INTO customers (id, name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name;
		`, c.ID, c.Name); err != nil {
			return fmt.Errorf("upsert customer %d: %w", c.ID, err)
		}
	}

	fmt.Println("Seeding Products...")
	for _, p := range data.Products {
		if _, err = tx.Exec(`
			INSERT INTO products (code, name, description, price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				price = EXCLUDED.price;
		`, p.Code, p.Name, p.Description, p.Price); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Code, err)
		}
	}

	// Deals have no natural key, so the seeded customers' deals are replaced wholesale.
	fmt.Println("Seeding Deals...")
	for _, c := range data.Customers {
		if _, err = tx.Exec(`DELETE FROM price_override_deals WHERE customer_id = $1`, c.ID); err != nil {
			return fmt.Errorf("clear price deals for %d: %w", c.ID, err)
		}
		if _, err = tx.Exec(`DELETE FROM bulk_deals WHERE customer_id = $1`, c.ID); err != nil {
			return fmt.Errorf("clear bulk deals for %d: %w", c.ID, err)
		}
	}
	for _, d := range data.PriceDeals {
		if _, err = tx.Exec(`
			INSERT INTO price_override_deals (customer_id, product_code, price, trigger_size)
			VALUES ($1, $2, $3, $4);
		`, d.CustomerID, d.ProductCode, d.Price, d.TriggerSize); err != nil {
			return fmt.Errorf("insert price deal %s for %d: %w", d.ProductCode, d.CustomerID, err)
		}
	}
	for _, d := range data.BulkDeals {
		if _, err = tx.Exec(`
			INSERT INTO bulk_deals (customer_id, product_code, purchase_size, cost_size)
			VALUES ($1, $2, $3, $4);
		`, d.CustomerID, d.ProductCode, d.PurchaseSize, d.CostSize); err != nil {
			return fmt.Errorf("insert bulk deal %s for %d: %w", d.ProductCode, d.CustomerID, err)
		}
	}

	return tx.Commit()
}
