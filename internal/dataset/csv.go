package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"investlab/internal/db"
	"investlab/internal/engine"
)

// ParsePricesCSV reads a wide price panel: first column the YYYY-MM-DD
// date, one column per ticker, adjusted closes. Blank cells are skipped so
// tickers with shorter histories stay usable.
func ParsePricesCSV(path string) (map[string][]engine.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: header has no ticker columns", path)
	}
	tickers := header[1:]

	out := make(map[string][]engine.PricePoint, len(tickers))
	for _, row := range records[1:] {
		if len(row) != len(header) {
			continue
		}
		date := row[0]
		for j, t := range tickers {
			cell := row[j+1]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			out[t] = append(out[t], engine.PricePoint{Date: date, AdjClose: v})
		}
	}
	return out, nil
}

var frenchDateRe = regexp.MustCompile(`^\d{6}$`)

// ParseFrenchCSV reads a raw Ken French monthly factor file. The format
// carries preamble lines and trailing annual-factor sections; only rows
// whose first field is a YYYYMM date are factor months. Values are in
// percent and converted to decimals. model selects the column layout:
// FF3 is Mkt-RF,SMB,HML,RF and FF5 adds RMW,CMA before RF.
func ParseFrenchCSV(path, model string) ([]db.FactorRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	wantCols := 5 // date + Mkt-RF,SMB,HML,RF
	if model == "FF5" {
		wantCols = 7
	}

	var out []db.FactorRow
	for _, row := range records {
		if len(row) < wantCols || !frenchDateRe.MatchString(row[0]) {
			continue
		}
		vals := make([]float64, wantCols-1)
		ok := true
		for i := range vals {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v / 100
		}
		if !ok {
			continue
		}

		fr := db.FactorRow{
			// YYYYMM keyed to the first of the month.
			Date:  fmt.Sprintf("%s-%s-01", row[0][:4], row[0][4:6]),
			MktRF: vals[0],
			SMB:   vals[1],
			HML:   vals[2],
		}
		if model == "FF5" {
			fr.RMW = vals[3]
			fr.CMA = vals[4]
			fr.RF = vals[5]
		} else {
			fr.RF = vals[3]
		}
		out = append(out, fr)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no factor rows found", path)
	}
	return out, nil
}
