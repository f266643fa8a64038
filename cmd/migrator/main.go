package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/SoftwareFuze/ScrapBook/internal/common/config"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/migrations"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrator [up|down|status|version|redo|reset] [args]\n")
	}
	flag.Parse()

	command := "up"
	var args []string
	if flag.NArg() > 0 {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogDir, "migrator", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := migrations.Run(context.Background(), cfg.DatabaseURL, command, args...); err != nil {
		log.Fatalf("migration %s failed: %v", command, err)
	}
	log.Infof("migration %s completed", command)
}
