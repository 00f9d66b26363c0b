package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Credentials and region usually live in a local .env during benchmarks.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "modelmeter",
		Short:   "Modelmeter — benchmark LLMs on AWS Bedrock for latency, cost, and JSON reliability",
		Version: version,
	}

	root.AddCommand(
		newRunCmd(),
		newReportCmd(),
		newModelsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
