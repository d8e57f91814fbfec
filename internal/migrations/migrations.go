package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Run creates the report schema. The table is a projection of the sales
// ledger and is rebuilt from it at startup.
func Run(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS sale_lines (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            invoice_id TEXT NOT NULL,
            sold_on TEXT NOT NULL,
            sold_at TEXT NOT NULL,
            customer_name TEXT NOT NULL,
            medicine_code INTEGER NOT NULL,
            medicine_name TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            price_per_item TEXT NOT NULL,
            total_cost TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sale_lines_sold_on ON sale_lines (sold_on);`,
		`CREATE INDEX IF NOT EXISTS idx_sale_lines_invoice ON sale_lines (invoice_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
