// README: Entry point; runs the rideshare CLI.
package main

import (
	"os"

	"rideshare/internal/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.New("main").Errorf("%v", err)
		os.Exit(1)
	}
}
