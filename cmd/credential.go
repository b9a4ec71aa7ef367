package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/perarneng/getstatements/pkg/credential"
)

var credentialUser string

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage the IMAP password stored in the system keyring",
}

var credentialSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the IMAP password for the configured account",
	RunE:  runCredentialSet,
}

var credentialDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored IMAP password",
	RunE:  runCredentialDelete,
}

func init() {
	credentialCmd.PersistentFlags().StringVarP(&credentialUser, "user", "u", "", "IMAP username (default imap.username)")
	credentialCmd.AddCommand(credentialSetCmd, credentialDeleteCmd)
	rootCmd.AddCommand(credentialCmd)
}

func credentialKey() (string, error) {
	user := credentialUser
	if user == "" {
		user = cfg.IMAP.Username
	}
	if user == "" {
		return "", errors.New("no IMAP username: pass --user or set imap.username")
	}
	return credential.IMAPKey(user), nil
}

func runCredentialSet(cmd *cobra.Command, args []string) error {
	key, err := credentialKey()
	if err != nil {
		return err
	}

	var secret string
	input := huh.NewInput().
		Title("Password for " + key).
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("password must not be empty")
			}
			return nil
		}).
		Value(&secret)
	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(cmd.Context()); err != nil {
		return err
	}

	if err := credential.NewStore().Set(key, secret); err != nil {
		return err
	}
	log.Success(fmt.Sprintf("Stored %s in the keyring", key))
	return nil
}

func runCredentialDelete(cmd *cobra.Command, args []string) error {
	key, err := credentialKey()
	if err != nil {
		return err
	}
	if err := credential.NewStore().Delete(key); err != nil {
		return err
	}
	log.Success(fmt.Sprintf("Removed %s from the keyring", key))
	return nil
}
