package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"investlab/internal/api"
	"investlab/internal/dataset"
	"investlab/internal/db"
	"investlab/internal/logger"
)

var version = "dev"

func main() {
	port := flag.Int("port", 8000, "HTTP server port")
	dataDir := flag.String("data", "", "directory holding the price and factor CSVs")
	flag.Parse()

	logger.Banner(version)

	// Open SQLite reference store
	database, err := db.Open()
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	// Load config from SQLite
	cfg := database.LoadConfig()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	dir := cfg.DataDir
	if !filepath.IsAbs(dir) {
		wd, _ := os.Getwd()
		dir = filepath.Join(wd, dir)
	}

	srv := api.NewServer(cfg, database)

	// Ingest datasets in background; the server answers 503 on
	// data-backed routes until this finishes.
	go func() {
		logger.Section("Datasets")
		data, err := dataset.Load(dir, database)
		if err != nil {
			logger.Error("Dataset", fmt.Sprintf("Load failed: %v", err))
			return
		}
		srv.SetData(data)
		logger.Stats("Tickers", len(data.Tickers))
		logger.Stats("FF3 months", len(data.FF3))
		logger.Stats("FF5 months", len(data.FF5))
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	logger.Server(addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
}
