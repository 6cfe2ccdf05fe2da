package db

import "investlab/internal/engine"

// ListBonds reads the seeded bond reference table and attaches the
// duration-convexity price responses to ±100bp rate shocks.
func (d *DB) ListBonds() ([]engine.BondSensitivity, error) {
	rows, err := d.sql.Query(
		"SELECT name, maturity, coupon, yield, duration, convexity FROM bonds ORDER BY maturity, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.BondSensitivity
	for rows.Next() {
		var b engine.BondSensitivity
		if err := rows.Scan(&b.Bond, &b.Maturity, &b.Coupon, &b.Yield, &b.Duration, &b.Convexity); err != nil {
			return nil, err
		}
		b.PriceChangeNeg100 = engine.RateShock(b.Duration, b.Convexity, -0.01)
		b.PriceChangePos100 = engine.RateShock(b.Duration, b.Convexity, 0.01)
		out = append(out, b)
	}
	return out, rows.Err()
}
