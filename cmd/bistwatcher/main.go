package main

import (
	"os"

	"github.com/joho/godotenv"

	"bist-returns/internal/cli"
)

func main() {
	// Populate the environment from .env when present; real env vars win.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cli.Execute()
}
