package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// dialect carries the statements that differ between back-ends. Queries are
// written with ? placeholders and rebound for drivers that number them.
type dialect struct {
	name       string
	sqlDriver  string
	numbered   bool
	amountType string
	upsertItem string
}

var dialects = map[string]dialect{
	DriverMySQL: {
		name:       DriverMySQL,
		sqlDriver:  "mysql",
		amountType: "DECIMAL(19,2)",
		upsertItem: `
		INSERT INTO order_items (order_id, product_id, quantity, unit_amount, currency, line_no)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			quantity = VALUES(quantity), unit_amount = VALUES(unit_amount),
			currency = VALUES(currency), line_no = VALUES(line_no)`,
	},
	DriverPostgres: {
		name:       DriverPostgres,
		sqlDriver:  "pgx",
		numbered:   true,
		amountType: "NUMERIC(19,2)",
		upsertItem: upsertItemOnConflict,
	},
	DriverSQLite: {
		name:       DriverSQLite,
		sqlDriver:  "sqlite",
		amountType: "TEXT",
		upsertItem: upsertItemOnConflict,
	},
}

const upsertItemOnConflict = `
		INSERT INTO order_items (order_id, product_id, quantity, unit_amount, currency, line_no)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_id, product_id) DO UPDATE SET
			quantity = excluded.quantity, unit_amount = excluded.unit_amount,
			currency = excluded.currency, line_no = excluded.line_no`

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(driver))]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}

// rebind rewrites ? placeholders to $1, $2, ... when the driver needs it.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}
