// Command quakes polls the GeoNet quake feed into an event store and serves
// the dashboard API.
//
// Usage:
//
//	quakes serve                 # HTTP API plus scheduled ingestion
//	quakes ingest                # one ingestion run, prints the report
//	quakes summary --hours 48    # filtered counters from the store
//	quakes validate feed.json    # audit a captured feed response
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
