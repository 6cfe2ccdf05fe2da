package db

import (
	"database/sql"
	"fmt"
)

// FactorRow is one month of Fama-French factor data in decimal terms.
// RMW and CMA are only set for the five-factor model.
type FactorRow struct {
	Date  string
	MktRF float64
	SMB   float64
	HML   float64
	RMW   float64
	CMA   float64
	RF    float64
}

// UpsertFactors bulk-writes factor rows for a model ("FF3" or "FF5").
func (d *DB) UpsertFactors(model string, rows []FactorRow) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO ff_factors
		(model, date, mkt_rf, smb, hml, rmw, cma, rf) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var rmw, cma interface{}
		if model == "FF5" {
			rmw, cma = r.RMW, r.CMA
		}
		if _, err := stmt.Exec(model, r.Date, r.MktRF, r.SMB, r.HML, rmw, cma, r.RF); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadFactors reads a model's factor rows, optionally bounded by inclusive
// start/end dates. Dates ascending.
func (d *DB) LoadFactors(model, start, end string) ([]FactorRow, error) {
	query := "SELECT date, mkt_rf, smb, hml, rmw, cma, rf FROM ff_factors WHERE model = ?"
	args := []interface{}{model}
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
		return nil, fmt.Errorf("load %s factors: %w", model, err)
	}
	defer rows.Close()

	var out []FactorRow
	for rows.Next() {
		var r FactorRow
		var rmw, cma sql.NullFloat64
		if err := rows.Scan(&r.Date, &r.MktRF, &r.SMB, &r.HML, &rmw, &cma, &r.RF); err != nil {
			return nil, err
		}
		r.RMW = rmw.Float64
		r.CMA = cma.Float64
		out = append(out, r)
	}
	return out, rows.Err()
}
