package db

import (
	"fmt"

	"investlab/internal/engine"
)

// UpsertPrices bulk-writes one ticker's adjusted-close series.
func (d *DB) UpsertPrices(ticker string, points []engine.PricePoint) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO prices (ticker, date, adj_close) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(ticker, p.Date, p.AdjClose); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadPrices reads the daily series for one ticker, optionally bounded by
// inclusive start/end dates (empty string = unbounded). Dates ascending.
func (d *DB) LoadPrices(ticker, start, end string) ([]engine.PricePoint, error) {
	query := "SELECT date, adj_close FROM prices WHERE ticker = ?"
	args := []interface{}{ticker}
	if start != "" {
		query += " AND date >= ?"
		args = append(args, start)
	}
	if end != "" {
		query += " AND date <= ?"
		args = append(args, end)
	}
	query += " ORDER BY date"

	rows, err := d.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("load prices %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []engine.PricePoint
	for rows.Next() {
		var p engine.PricePoint
		if err := rows.Scan(&p.Date, &p.AdjClose); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PriceTickers lists every ticker with stored prices, sorted.
func (d *DB) PriceTickers() ([]string, error) {
	rows, err := d.sql.Query("SELECT DISTINCT ticker FROM prices ORDER BY ticker")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PriceCount returns the number of stored price rows.
func (d *DB) PriceCount() (int, error) {
	var n int
	err := d.sql.QueryRow("SELECT COUNT(*) FROM prices").Scan(&n)
	return n, err
}
