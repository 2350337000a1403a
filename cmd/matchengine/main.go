// cmd/matchengine is the command line for the semantic match engine: score
// one profile against one job, rank a catalog in either direction, warm the
// embedding cache, inspect or purge it, and bootstrap profiles from PDF
// resumes.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A local .env supplies provider API keys in development; absence is fine.
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
