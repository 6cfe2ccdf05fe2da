package db

import (
	"math"
	"path/filepath"
	"testing"

	"investlab/internal/config"
	"investlab/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestConfigRoundTrip(t *testing.T) {
	d := openTestDB(t)

	// Empty table yields defaults.
	got := d.LoadConfig()
	if got.FrontierPoints != config.Default().FrontierPoints {
		t.Errorf("empty config frontier points = %d, want default", got.FrontierPoints)
	}

	cfg := config.Default()
	cfg.FrontierPoints = 60
	cfg.CapMode = config.CapModeAbsolute
	cfg.RidgeEpsilon = 1e-6
	cfg.DefaultRF = 0.031
	if err := d.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got = d.LoadConfig()
	if got.FrontierPoints != 60 {
		t.Errorf("frontier points = %d, want 60", got.FrontierPoints)
	}
	if got.CapMode != config.CapModeAbsolute {
		t.Errorf("cap mode = %q, want absolute", got.CapMode)
	}
	if got.RidgeEpsilon != 1e-6 {
		t.Errorf("ridge epsilon = %v, want 1e-6", got.RidgeEpsilon)
	}
	if got.DefaultRF != 0.031 {
		t.Errorf("default rf = %v, want 0.031", got.DefaultRF)
	}
}

func TestConfig_IgnoresInvalidCapMode(t *testing.T) {
	d := openTestDB(t)
	if _, err := d.sql.Exec("INSERT INTO config (key, value) VALUES ('cap_mode', 'sideways')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := d.LoadConfig(); got.CapMode != config.CapModeLong {
		t.Errorf("cap mode = %q, want default %q", got.CapMode, config.CapModeLong)
	}
}

func TestPricesRoundTrip(t *testing.T) {
	d := openTestDB(t)

	points := []engine.PricePoint{
		{Date: "2024-01-02", AdjClose: 100.5},
		{Date: "2024-01-03", AdjClose: 101.25},
		{Date: "2024-01-04", AdjClose: 99.75},
	}
	if err := d.UpsertPrices("SPY", points); err != nil {
		t.Fatalf("UpsertPrices: %v", err)
	}

	got, err := d.LoadPrices("SPY", "", "")
	if err != nil {
		t.Fatalf("LoadPrices: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d points, want 3", len(got))
	}
	if got[0].Date != "2024-01-02" || math.Abs(got[0].AdjClose-100.5) > 1e-12 {
		t.Errorf("first point = %+v", got[0])
	}

	// Date-bounded load.
	got, err = d.LoadPrices("SPY", "2024-01-03", "2024-01-03")
	if err != nil {
		t.Fatalf("LoadPrices bounded: %v", err)
	}
	if len(got) != 1 || got[0].AdjClose != 101.25 {
		t.Errorf("bounded load = %+v, want single 101.25", got)
	}

	// Upsert replaces rather than duplicates.
	if err := d.UpsertPrices("SPY", []engine.PricePoint{{Date: "2024-01-02", AdjClose: 200}}); err != nil {
		t.Fatalf("UpsertPrices replace: %v", err)
	}
	n, err := d.PriceCount()
	if err != nil {
		t.Fatalf("PriceCount: %v", err)
	}
	if n != 3 {
		t.Errorf("count after replace = %d, want 3", n)
	}

	tickers, err := d.PriceTickers()
	if err != nil {
		t.Fatalf("PriceTickers: %v", err)
	}
	if len(tickers) != 1 || tickers[0] != "SPY" {
		t.Errorf("tickers = %v, want [SPY]", tickers)
	}
}

func TestFactorsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	ff3 := []FactorRow{
		{Date: "2024-01-01", MktRF: 0.012, SMB: -0.003, HML: 0.005, RF: 0.004},
		{Date: "2024-02-01", MktRF: -0.008, SMB: 0.001, HML: -0.002, RF: 0.004},
	}
	if err := d.UpsertFactors("FF3", ff3); err != nil {
		t.Fatalf("UpsertFactors FF3: %v", err)
	}

	ff5 := []FactorRow{
		{Date: "2024-01-01", MktRF: 0.012, SMB: -0.003, HML: 0.005, RMW: 0.002, CMA: -0.001, RF: 0.004},
	}
	if err := d.UpsertFactors("FF5", ff5); err != nil {
		t.Fatalf("UpsertFactors FF5: %v", err)
	}

	got, err := d.LoadFactors("FF3", "", "")
	if err != nil {
		t.Fatalf("LoadFactors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d FF3 rows, want 2", len(got))
	}
	if got[0].MktRF != 0.012 || got[0].RMW != 0 {
		t.Errorf("FF3 row = %+v, want mkt 0.012 and zero RMW", got[0])
	}

	got, err = d.LoadFactors("FF5", "", "")
	if err != nil {
		t.Fatalf("LoadFactors FF5: %v", err)
	}
	if len(got) != 1 || got[0].RMW != 0.002 || got[0].CMA != -0.001 {
		t.Errorf("FF5 row = %+v", got)
	}

	// Date filter.
	got, err = d.LoadFactors("FF3", "2024-02-01", "")
	if err != nil {
		t.Fatalf("LoadFactors filtered: %v", err)
	}
	if len(got) != 1 || got[0].Date != "2024-02-01" {
		t.Errorf("filtered rows = %+v", got)
	}
}

func TestListBonds_Seeded(t *testing.T) {
	d := openTestDB(t)

	bonds, err := d.ListBonds()
	if err != nil {
		t.Fatalf("ListBonds: %v", err)
	}
	if len(bonds) != 6 {
		t.Fatalf("seeded bonds = %d, want 6", len(bonds))
	}
	for _, b := range bonds {
		if b.Duration <= 0 || b.Convexity <= 0 {
			t.Errorf("%s: non-positive duration/convexity %v/%v", b.Bond, b.Duration, b.Convexity)
		}
		// Duration dominates at ±100bp, so falling rates help and rising
		// rates hurt; convexity makes the gain larger than the loss.
		if b.PriceChangeNeg100 <= 0 || b.PriceChangePos100 >= 0 {
			t.Errorf("%s: shock signs = %v / %v", b.Bond, b.PriceChangeNeg100, b.PriceChangePos100)
		}
		if b.PriceChangeNeg100 <= -b.PriceChangePos100-1e-9 {
			t.Errorf("%s: convexity should favor the down-shock: %v vs %v", b.Bond, b.PriceChangeNeg100, b.PriceChangePos100)
		}
	}
}

func TestMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "re.db")
	d, err := OpenPath(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	d.Close()

	d, err = OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	bonds, err := d.ListBonds()
	if err != nil {
		t.Fatalf("ListBonds after reopen: %v", err)
	}
	if len(bonds) != 6 {
		t.Errorf("bonds after reopen = %d, want 6 (seed must not duplicate)", len(bonds))
	}
}
