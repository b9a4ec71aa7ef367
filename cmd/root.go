package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/perarneng/getstatements/pkg/config"
	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/logger"
)

var (
	configPath string
	verbose    bool

	cfg config.Config
	log interfaces.Logger
)

var rootCmd = &cobra.Command{
	Use:   "getstatements",
	Short: "A CLI tool for downloading and unlocking credit card statements from email",
	Long: `getstatements searches your mailbox for credit card statement emails,
downloads the PDF attachments and removes their password protection. Each bank
gets its own folder with a download_log.txt recording every run.

Running without a subcommand is the same as "getstatements download".`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runDownload,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./getstatements.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func setup(cmd *cobra.Command, args []string) error {
	// .env is optional
	_ = godotenv.Load()

	log = logger.NewLogger(verbose)

	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
