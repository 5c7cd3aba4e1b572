package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"sdfplay/internal/config"
	"sdfplay/internal/game"
)

func main() {
	// Change working directory to executable location for deployed builds.
	// Skip this for "go run" which puts the binary in a temp directory.
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		if !strings.Contains(execDir, "go-build") {
			os.Chdir(execDir)
		}
	}

	path := config.DefaultPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if err := game.New(cfg).Run(); err != nil {
		log.Fatal(err)
	}
}
