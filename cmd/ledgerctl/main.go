// Command ledgerctl inspects and clears the persisted dedup ledger.
// Use it while the observer is stopped; a running observer is reset
// through DELETE /api/v1/ledger instead.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
