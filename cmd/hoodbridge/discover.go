package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/hood-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hood-bridge/internal/miele"
)

func newDiscoverCmd(configPath func() string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Fetch the device directory once and print the hoods it contains",
		Long: "discover performs a single directory request and prints every hood " +
			"found. It does not read or change the accessory cache.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			client, err := miele.NewClient(miele.Config{
				BaseURL: cfg.Miele.BaseURL,
				Token:   cfg.Miele.Token,
				Timeout: cfg.GetRequestTimeout(),
			})
			if err != nil {
				return err
			}

			records, err := client.FetchDevices(cmd.Context())
			if err != nil {
				return err
			}
			hoods, malformed := miele.FilterHoods(records)
			for _, m := range malformed {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", m)
			}
			return printHoods(cmd.OutOrStdout(), hoods, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printHoods(w io.Writer, hoods []miele.HoodDevice, asJSON bool) error {
	if asJSON {
		if hoods == nil {
			hoods = []miele.HoodDevice{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(hoods)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tNAME\tMODEL")
	for _, h := range hoods {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.UniqueID, h.DisplayName, h.ModelNumber)
	}
	return tw.Flush()
}
