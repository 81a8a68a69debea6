package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/hwlog/internal/cli"
	"github.com/JonMunkholm/hwlog/internal/config"
	"github.com/JonMunkholm/hwlog/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Keep stdout for command output.
	logging.SetupWriter(os.Stderr, "warn", cfg.Logging.Format)

	if err := cli.NewRootCmd(cli.Load(cfg)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
