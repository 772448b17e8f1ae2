/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the schedule coverage server, and exposes the
  calendar helpers as one-shot commands.

COMMANDS:
  serve      Run the HTTP API and the background coverage monitor
  holidays   Print a year's observed US federal holidays as JSON
  weeks      Print a quarter's week starts with holiday names as JSON

STARTUP SEQUENCE (serve):
  1. Load configuration (defaults, config.yaml, COVERAGE_* env, flags)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wrap it in the Redis snapshot cache when redis.addr is set
  5. Create metrics, coverage monitor and API handler
  6. Optionally load a demo scenario
  7. Start the monitor and the HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the monitor
  4. Close Redis and database connections

EXAMPLES:
  # Run with file database
  ./server serve --db ./data/coverage.db

  # Run in memory with demo data
  ./server serve --db :memory: --scenario platform-rota

  # Cache directory reads in Redis
  COVERAGE_REDIS_ADDR=localhost:6379 ./server serve

  # Calendar helpers
  ./server holidays --year 2026
  ./server weeks --year 2026 --quarter 1 --first-weekday sunday

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
  - api/monitor.go: Background coverage checks
*/
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
