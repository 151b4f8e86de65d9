// Command subsheet exports the top posts of a subreddit and their full
// comment forests into an Excel workbook. Behavior is driven entirely by the
// config file and environment; there are no flags.
package main

import (
	"context"
	"fmt"
	"os"

	"subsheet/internal/config"
	"subsheet/internal/logging"
	"subsheet/internal/pipeline"
)

func main() {
	logger := logging.New("subsheet")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := pipeline.Run(context.Background(), cfg, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
