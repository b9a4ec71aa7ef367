package cmd

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/perarneng/getstatements/pkg/query"
)

var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "List bank profiles and the search query each one uses",
	RunE:  runBanks,
}

func init() {
	rootCmd.AddCommand(banksCmd)
}

func runBanks(cmd *cobra.Command, args []string) error {
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	now := time.Now()

	for _, name := range cfg.BankNames() {
		p, _ := cfg.Profile(name)
		state := dim("disabled")
		if slices.Contains(cfg.EnabledBanks, name) {
			state = color.GreenString("enabled")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", bold(name), state)
		fmt.Fprintf(cmd.OutOrStdout(), "  query:  %s\n", query.Build(p.Sender, p.Subject, cfg.YearsBack, now))
		fmt.Fprintf(cmd.OutOrStdout(), "  folder: %s\n", filepath.Join(cfg.BaseDir, p.SaveDir))
	}
	return nil
}
