// Command ragindex indexes company documents and answers questions from them.
package main

import (
	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/cli"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cli.SetBootstrap(bootstrap)
	cli.Execute()
}
