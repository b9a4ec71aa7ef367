package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/perarneng/getstatements/pkg/config"
	"github.com/perarneng/getstatements/pkg/credential"
	"github.com/perarneng/getstatements/pkg/gmail"
	"github.com/perarneng/getstatements/pkg/imapmail"
	"github.com/perarneng/getstatements/pkg/interfaces"
	"github.com/perarneng/getstatements/pkg/password"
	"github.com/perarneng/getstatements/pkg/pdf"
	"github.com/perarneng/getstatements/pkg/statements"
)

const imapPasswordEnv = "IMAP_PASSWORD"

var (
	banks        []string
	passwordMode string
	backend      string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and unlock statements for the enabled banks",
	Long: `Search the mailbox for each enabled bank's statement emails, save every
valid attachment into the bank's folder and remove its password. Files that
cannot be opened are kept with a _FAILED suffix.`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringSliceVarP(&banks, "bank", "b", nil, "Banks to process (overrides enabled_banks)")
	downloadCmd.Flags().StringVar(&passwordMode, "password-mode", "", "ask, shared or per-file (overrides password_mode)")
	downloadCmd.Flags().StringVar(&backend, "backend", "", "Mail backend: gmail or imap (overrides backend)")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	if len(banks) > 0 {
		cfg.EnabledBanks = banks
	}
	if passwordMode != "" {
		cfg.PasswordMode = passwordMode
	}
	if backend != "" {
		cfg.Backend = backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, err := password.FromConfig(cfg.PasswordMode, cfg.Passwords)
	if err != nil {
		return err
	}

	mail, err := newMailClient(cfg)
	if err != nil {
		return err
	}

	log.Info(fmt.Sprintf("Connecting to %s...", cfg.Backend))
	if err := mail.Connect(ctx); err != nil {
		log.Error(fmt.Sprintf("Failed to connect: %v", err))
		return err
	}
	defer mail.Close()

	runner := statements.NewRunner(cfg, mail, pdf.NewCodec(), sources.PerFile, sources.Mode, log).
		WithSharedPasswords(sources.Shared)
	summaries, err := runner.Run(ctx)
	for _, s := range summaries {
		log.Info(fmt.Sprintf("%s: %d messages, %d decrypted, %d failed, %d without attachment",
			s.Bank, s.Messages, s.Decrypted, s.Failed, s.NoAttachment))
		if s.Aborted {
			log.Warn(fmt.Sprintf("%s: batch aborted after password validation failed", s.Bank))
		}
	}
	if errors.Is(err, interfaces.ErrOperatorAbort) || errors.Is(err, context.Canceled) {
		log.Warn("Stopped before all banks were processed")
	}
	return err
}

func newMailClient(cfg config.Config) (interfaces.MailClient, error) {
	switch cfg.Backend {
	case config.BackendIMAP:
		secret, err := imapPassword(cfg.IMAP.Username)
		if err != nil {
			return nil, err
		}
		return imapmail.NewClient(imapmail.Options{
			Host:     cfg.IMAP.Host,
			Port:     cfg.IMAP.Port,
			Username: cfg.IMAP.Username,
			Password: secret,
			Mailbox:  cfg.IMAP.Mailbox,
			TLS:      cfg.IMAP.TLS,
		}, log), nil
	default:
		return gmail.NewClient(cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile, log), nil
	}
}

// imapPassword prefers the environment over the system keyring.
func imapPassword(username string) (string, error) {
	if v := os.Getenv(imapPasswordEnv); v != "" {
		return v, nil
	}
	secret, err := credential.NewStore().Get(credential.IMAPKey(username))
	if errors.Is(err, credential.ErrNotFound) {
		return "", fmt.Errorf("no IMAP password for %s: set %s or run 'getstatements credential set'", username, imapPasswordEnv)
	}
	return secret, err
}
