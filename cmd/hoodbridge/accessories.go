package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hood-bridge/internal/infrastructure/database"
)

func newAccessoriesCmd(configPath func() string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "accessories",
		Short: "List the persisted accessory cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			db, err := database.Open(database.Config{
				Path:        cfg.Database.Path,
				WALMode:     cfg.Database.WALMode,
				BusyTimeout: cfg.Database.BusyTimeout,
			})
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close() //nolint:errcheck // read-only command

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			entries, err := accessory.NewSQLiteStore(db.DB).List(cmd.Context())
			if err != nil {
				return err
			}
			return printAccessories(cmd.OutOrStdout(), entries, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printAccessories(w io.Writer, entries []*accessory.Entry, asJSON bool) error {
	if asJSON {
		if entries == nil {
			entries = []*accessory.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTITY\tNAME\tSERIAL\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Identity, e.DisplayName, e.UniqueID(), e.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
