// Command listener subscribes to a server-sent event stream, keeps a bounded
// window of recent records and serves it over HTTP.
//
// Usage:
//
//	listener serve                  # HTTP API on HTTP_ADDR
//	listener tail --location Sylhet # print records as JSON lines
package main

import (
	"os"

	"github.com/spf13/cobra"
	_ "time/tzdata" // DISPLAY_TIMEZONE must resolve in minimal images
)

var rootCmd = &cobra.Command{
	Use:          "listener",
	Short:        "Live event stream listener",
	SilenceUsage: true,
}

var targetFlags struct {
	location string
	endpoint string
}

func init() {
	rootCmd.PersistentFlags().StringVar(&targetFlags.location, "location", "",
		"location to subscribe to (overrides STREAM_LOCATION)")
	rootCmd.PersistentFlags().StringVar(&targetFlags.endpoint, "endpoint", "",
		"raw stream endpoint to subscribe to (overrides the location)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
