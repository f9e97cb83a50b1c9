package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/config"
	"github.com/tbourn/suggestion-box/internal/repo"
	"github.com/tbourn/suggestion-box/internal/services"
	"github.com/tbourn/suggestion-box/internal/sysutil"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "boxctl",
		Short:         "Suggestion box maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			sysutil.InitLogger(cmd.ErrOrStderr(), logLevel, true)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	root.AddCommand(
		migrateCmd(),
		seedCmd(),
		categoriesCmd(),
		hashPassphraseCmd(),
		purgeIdempotencyCmd(),
	)
	return root
}

// withStore loads the configuration, opens the datastore, and runs fn.
func withStore(cmd *cobra.Command, migrate bool, fn func(cfg config.Config, db *gorm.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := sysutil.OpenStore(cmd.Context(), cfg.DB, cfg.Categories, migrate)
	if err != nil {
		return err
	}
	defer func() { _ = sysutil.CloseStore(db) }()
	return fn(cfg, db)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the configured categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, true, func(cfg config.Config, _ *gorm.DB) error {
				driver, _ := sysutil.DataSource(cfg.DB)
				log.Info().Str("driver", driver).Int("categories", len(cfg.Categories)).Msg("schema up to date")
				fmt.Fprintln(cmd.OutOrStdout(), "migrated")
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed NAME...",
		Short: "Add categories; existing names are left untouched",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, false, func(_ config.Config, db *gorm.DB) error {
				if err := repo.SeedCategories(cmd.Context(), db, args); err != nil {
					return err
				}
				return printCategories(cmd.OutOrStdout(), cmd, db)
			})
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, false, func(_ config.Config, db *gorm.DB) error {
				return printCategories(cmd.OutOrStdout(), cmd, db)
			})
		},
	}
}

func printCategories(w io.Writer, cmd *cobra.Command, db *gorm.DB) error {
	cats, err := repo.ListCategories(cmd.Context(), db)
	if err != nil {
		return err
	}
	for _, c := range cats {
		fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
	}
	return nil
}

func hashPassphraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passphrase [PASSPHRASE]",
		Short: "Print a bcrypt hash for ADMIN_PASSPHRASE_HASH (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pass string
			if len(args) == 1 {
				pass = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				pass = strings.TrimRight(line, "\r\n")
			}
			hash, err := services.HashPassphrase(pass)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func purgeIdempotencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-idempotency",
		Short: "Delete expired idempotency records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, false, func(_ config.Config, db *gorm.DB) error {
				n, err := repo.PurgeExpiredIdempotency(cmd.Context(), db, time.Now().UTC())
				if err != nil {
					return err
				}
				log.Info().Int64("deleted", n).Msg("idempotency purge")
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d\n", n)
				return nil
			})
		},
	}
}
