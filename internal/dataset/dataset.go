// Package dataset loads the static reference datasets (daily price panel,
// Fama-French factor files, bond table) from CSV into SQLite and serves
// them from memory. Loaded once at startup; never mutated afterwards.
package dataset

import (
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"investlab/internal/db"
	"investlab/internal/engine"
	"investlab/internal/logger"
)

// AvailableTickers is the fixed universe of the static price dataset
// (includes the S&P 500 index as a CAPM market proxy).
var AvailableTickers = []string{"SPY", "QQQ", "IWM", "XLF", "TLT", "HYG", "GLD", "SLV", "UUP", "VIXY", "^GSPC"}

// Data is the in-memory view of the reference datasets.
type Data struct {
	Tickers []string
	Prices  map[string][]engine.PricePoint
	FF3     []db.FactorRow
	FF5     []db.FactorRow
}

// ValidateTickers splits a request's tickers into known and unknown.
func (d *Data) ValidateTickers(tickers []string) (valid, invalid []string) {
	for _, t := range tickers {
		if _, ok := d.Prices[t]; ok {
			valid = append(valid, t)
		} else {
			invalid = append(invalid, t)
		}
	}
	return valid, invalid
}

// PricesFor returns the stored daily series for a ticker.
func (d *Data) PricesFor(ticker string) []engine.PricePoint {
	return d.Prices[ticker]
}

// Load ingests the CSV files under dir into SQLite (in parallel), then
// reads the datasets back into memory. Missing CSVs are tolerated when
// SQLite already holds the data from a previous run.
func Load(dir string, store *db.DB) (*Data, error) {
	var g errgroup.Group

	g.Go(func() error {
		prices, err := ParsePricesCSV(filepath.Join(dir, "prices_10y.csv"))
		if err != nil {
			logger.Warn("Dataset", fmt.Sprintf("price CSV not ingested: %v", err))
			return nil
		}
		for ticker, points := range prices {
			if err := store.UpsertPrices(ticker, points); err != nil {
				return fmt.Errorf("store prices %s: %w", ticker, err)
			}
		}
		logger.Info("Dataset", fmt.Sprintf("Ingested price CSV (%d tickers)", len(prices)))
		return nil
	})

	for _, model := range []string{"FF3", "FF5"} {
		model := model
		g.Go(func() error {
			name := "ff3_factors.csv"
			if model == "FF5" {
				name = "ff5_factors.csv"
			}
			rows, err := ParseFrenchCSV(filepath.Join(dir, "factors", name), model)
			if err != nil {
				logger.Warn("Dataset", fmt.Sprintf("%s CSV not ingested: %v", model, err))
				return nil
			}
			if err := store.UpsertFactors(model, rows); err != nil {
				return fmt.Errorf("store %s factors: %w", model, err)
			}
			logger.Info("Dataset", fmt.Sprintf("Ingested %s CSV (%d months)", model, len(rows)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return loadFromStore(store)
}

func loadFromStore(store *db.DB) (*Data, error) {
	tickers, err := store.PriceTickers()
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}

	data := &Data{
		Tickers: tickers,
		Prices:  make(map[string][]engine.PricePoint, len(tickers)),
	}
	for _, t := range tickers {
		points, err := store.LoadPrices(t, "", "")
		if err != nil {
			return nil, err
		}
		data.Prices[t] = points
	}
	sort.Strings(data.Tickers)

	if data.FF3, err = store.LoadFactors("FF3", "", ""); err != nil {
		return nil, err
	}
	if data.FF5, err = store.LoadFactors("FF5", "", ""); err != nil {
		return nil, err
	}

	logger.Success("Dataset", fmt.Sprintf(
		"Loaded %d tickers, %d FF3 months, %d FF5 months", len(data.Tickers), len(data.FF3), len(data.FF5)))
	return data, nil
}
