// Command couplecache loads the couples of the given users through a couple.Service
// configured from a YAML file, and prints them with the cache statistics.
//
//	couplecache [-config couplecache.yaml] [user-id ...]
//
// Without user IDs, every seeded user is loaded.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
	"github.com/gabrielnfc/eivoucasar-sub001/config"
	"github.com/gabrielnfc/eivoucasar-sub001/couple"
	"github.com/gabrielnfc/eivoucasar-sub001/fetch"
)

const defaultConfigPath = "couplecache.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "couplecache: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("couplecache", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", defaultConfigPath, "path to the configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}

	userIDs := make([]couple.UserID, 0, flags.NArg())
	for _, arg := range flags.Args() {
		userIDs = append(userIDs, couple.UserID(arg))
	}
	if len(userIDs) == 0 {
		for _, c := range cfg.Seed {
			userIDs = append(userIDs, c.UserID)
		}
	}

	counters := &fetchcache.Counters{}
	service := couple.NewService(cfg.Repository(), cfg.ServiceOptions(
		logger,
		fetch.WithMetrics[couple.UserID, *couple.Couple](counters),
	)...)

	if err := service.Prefetch(ctx, userIDs...); err != nil {
		return fmt.Errorf("prefetch: %w", err)
	}
	for _, userID := range userIDs {
		c, err := service.Get(ctx, userID)
		switch {
		case errors.Is(err, fetchcache.ErrNotFound):
			fmt.Fprintf(stdout, "%s: no couple\n", userID)
		case err != nil:
			return err
		default:
			fmt.Fprintf(stdout, "%s: %s (%s) guests=%d\n", userID, c.Names(), c.ID, len(c.Guests))
		}
	}

	stats := counters.Snapshot()
	fmt.Fprintf(stdout, "hits=%d misses=%d joins=%d loads=%d failures=%d\n",
		stats.Hits, stats.Misses, stats.Joins, stats.Loads, stats.LoadFailures)
	return nil
}
