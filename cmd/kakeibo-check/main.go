// Command kakeibo-check verifies that the configured service account can
// reach the live sheet and the archive, and prints what it found. Run it
// after sharing the sheet with the service account address.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"kakeibo/internal/archive/drive"
	"kakeibo/internal/backend"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	create := flag.Bool("create-archive", false, "create the Drive archive file if none exists yet")
	flag.Parse()

	if err := run(*timeout, *create); err != nil {
		fmt.Fprintln(os.Stderr, "check failed:", err)
		os.Exit(1)
	}
}

func run(timeout time.Duration, create bool) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg := config.Load()
	// The check only needs the storage side; LINE credentials may be absent.
	if cfg.LineChannelSecret == "" {
		cfg.LineChannelSecret = "unused"
	}
	if cfg.LineChannelAccessToken == "" {
		cfg.LineChannelAccessToken = "unused"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if cfg.NeedsGoogle() {
		email, err := bcfg.Credentials.ClientEmail(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("service account: %s\n", email)
	}

	b, err := backend.NewFactory(logger.Logger).Create(ctx, bcfg)
	if err != nil {
		return err
	}
	defer b.Cleanup()

	live, err := b.Live.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("live table (%s): %w", cfg.LiveBackend, err)
	}
	fmt.Printf("live table: %d data rows\n", len(core.DataRows(live)))

	if a, ok := b.Archive.(*drive.Archive); ok {
		id, err := a.FileID(ctx)
		if err != nil {
			return err
		}
		if id == "" && create {
			if id, err = a.EnsureFile(ctx); err != nil {
				return fmt.Errorf("create archive file: %w", err)
			}
		}
		if id == "" {
			fmt.Println("archive file: not created yet (created on first save, or pass -create-archive)")
			return nil
		}
		fmt.Printf("archive file id: %s\n", id)
	}

	archived, err := b.Archive.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("archive (%s): %w", cfg.ArchiveBackend, err)
	}
	fmt.Printf("archive: %d rows\n", len(core.DataRows(archived)))
	return nil
}
