package db

import (
	"fmt"
	"strconv"

	"investlab/internal/config"
)

// LoadConfig reads engine settings from SQLite. If empty, returns defaults.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	rows, err := d.sql.Query("SELECT key, value FROM config")
	if err != nil {
		return cfg
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		m[k] = v
	}

	if len(m) == 0 {
		return cfg
	}

	if v, ok := m["frontier_points"]; ok {
		cfg.FrontierPoints, _ = strconv.Atoi(v)
	}
	if v, ok := m["cml_points"]; ok {
		cfg.CMLPoints, _ = strconv.Atoi(v)
	}
	if v, ok := m["sml_points"]; ok {
		cfg.SMLPoints, _ = strconv.Atoi(v)
	}
	if v, ok := m["request_timeout_sec"]; ok {
		cfg.RequestTimeoutSec, _ = strconv.Atoi(v)
	}
	if v, ok := m["cap_mode"]; ok {
		if v == config.CapModeLong || v == config.CapModeAbsolute {
			cfg.CapMode = v
		}
	}
	if v, ok := m["ridge_epsilon"]; ok {
		cfg.RidgeEpsilon, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["default_rf"]; ok {
		cfg.DefaultRF, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["data_dir"]; ok {
		cfg.DataDir = v
	}

	return cfg
}

// SaveConfig writes engine settings to SQLite (upsert all fields).
func (d *DB) SaveConfig(cfg *config.Config) error {
	pairs := map[string]string{
		"frontier_points":     strconv.Itoa(cfg.FrontierPoints),
		"cml_points":          strconv.Itoa(cfg.CMLPoints),
		"sml_points":          strconv.Itoa(cfg.SMLPoints),
		"request_timeout_sec": strconv.Itoa(cfg.RequestTimeoutSec),
		"cap_mode":            cfg.CapMode,
		"ridge_epsilon":       fmt.Sprintf("%g", cfg.RidgeEpsilon),
		"default_rf":          fmt.Sprintf("%g", cfg.DefaultRF),
		"data_dir":            cfg.DataDir,
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
