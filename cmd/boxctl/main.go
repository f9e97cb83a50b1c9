// Command boxctl is the maintenance CLI for the suggestion box datastore.
//
//	boxctl migrate                  apply the schema and seed CATEGORIES
//	boxctl seed NAME...             add categories
//	boxctl categories               list categories
//	boxctl hash-passphrase [PASS]   print a bcrypt hash for ADMIN_PASSPHRASE_HASH
//	boxctl purge-idempotency        delete expired idempotency records
//
// Configuration comes from the same environment variables (and .env file) as
// the server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
