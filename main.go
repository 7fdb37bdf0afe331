package main

import (
	"github.com/joho/godotenv"

	"thinkpad-price-tracker/internal/cli"
)

func main() {
	// Credentials (eBay client id/secret, database DSN) commonly live in a
	// local .env during development; absence is not an error.
	_ = godotenv.Load()

	cli.Execute()
}
