// Command web serves the dashboard API: run launches over the job queue,
// run history from the catalog, cleaned artifact downloads, health and
// metrics, and live progress over WebSocket.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"nbacli/internal/app"
)

func main() {
	_ = godotenv.Load()

	port := flag.Int("port", 0, "listen port (overrides NBA_SERVER_PORT)")
	flag.Parse()

	if *port != 0 {
		os.Setenv("NBA_SERVER_PORT", strconv.Itoa(*port))
	}

	application, err := app.NewApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "web: %v\n", err)
		os.Exit(1)
	}
}
