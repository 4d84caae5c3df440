// Command chatdb manages the chat database schema.
//
// USAGE:
//
//	chatdb [-dir path] migrate|seed|status|wait
//
// Every command first waits for the database (WAIT_MAX_RETRIES tries,
// WAIT_RETRY_DELAY apart). The SQL files are compiled into the binary; -dir
// points at an on-disk directory with schema/ and seeds/ instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/chatapp/db"
	"github.com/sakif/chatapp/internal/config"
	"github.com/sakif/chatapp/internal/migrate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "chatdb:", err)
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", "", "directory containing schema/ and seeds/ (default: embedded files)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-dir path] migrate|seed|status|wait\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected exactly one command")
	}
	command := flag.Arg(0)
	switch command {
	case "migrate", "seed", "status", "wait":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schema, seeds := db.Schema(), db.Seeds()
	if *dir != "" {
		root := os.DirFS(*dir)
		if schema, err = fs.Sub(root, "schema"); err != nil {
			return err
		}
		if seeds, err = fs.Sub(root, "seeds"); err != nil {
			return err
		}
	}

	conn, err := migrate.Open(cfg.DB.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	runner := migrate.NewRunner(conn, schema, seeds, logger)

	if err := runner.Wait(ctx, cfg.DB.WaitMaxRetries, cfg.DB.WaitRetryDelay); err != nil {
		return err
	}

	switch command {
	case "wait":
		return nil

	case "migrate":
		applied, err := runner.Migrate(ctx)
		if err != nil {
			return err
		}
		logger.Info("migrations complete", slog.Int("applied", len(applied)))

	case "seed":
		applied, err := runner.Seed(ctx)
		if err != nil {
			return err
		}
		logger.Info("seeding complete", slog.Int("applied", len(applied)))

	case "status":
		rep, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		rep.Print(os.Stdout)
	}
	return nil
}
