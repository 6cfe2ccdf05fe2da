package config

// Config holds engine settings (in-memory representation).
// Persistence is handled by the internal/db package.
type Config struct {
	// FrontierPoints is the number of target-return grid points swept when
	// building an efficient frontier (mean-variance and LPM).
	FrontierPoints int `json:"frontier_points"`
	// CMLPoints is the number of (risk, return) samples along the capital
	// market line.
	CMLPoints int `json:"cml_points"`
	// SMLPoints is the number of beta samples along the security market line.
	SMLPoints int `json:"sml_points"`

	// RequestTimeoutSec bounds every request; on expiry the partial result is
	// discarded and a timeout error is returned.
	RequestTimeoutSec int `json:"request_timeout_sec"`

	// CapMode selects how a max-weight cap is interpreted when short selling
	// is allowed: "long" caps only long exposure (0..cap), "absolute" caps
	// magnitude (-cap..cap).
	CapMode string `json:"cap_mode"`

	// RidgeEpsilon is the identity multiple added to a rank-deficient
	// covariance matrix before the stabilized solve path.
	RidgeEpsilon float64 `json:"ridge_epsilon"`

	// DefaultRF is the annual risk-free rate assumed when a request omits it.
	DefaultRF float64 `json:"default_rf"`

	// DataDir is where the static price and factor CSVs live.
	DataDir string `json:"data_dir"`
}

// CapMode values.
const (
	CapModeLong     = "long"
	CapModeAbsolute = "absolute"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		FrontierPoints:    30,
		CMLPoints:         50,
		SMLPoints:         50,
		RequestTimeoutSec: 30,
		CapMode:           CapModeLong,
		RidgeEpsilon:      1e-8,
		DefaultRF:         0.025,
		DataDir:           "data",
	}
}
