package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pagegate/pagegate/pkg/cli"
)

func main() {
	// Optional .env for local development; a missing file is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env")
	}

	// Create root command
	rootCmd := cli.NewRootCommand()

	// Parse flags
	flag.Parse()

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		logrus.Fatal(err)
	}
}
