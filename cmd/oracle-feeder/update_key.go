package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jacksteroo/oracle-feeder/pkg/feeder/keystore"
)

const mnemonicWords = 24

func updateKeyCmd() *cobra.Command {
	var ksPath string

	cmd := &cobra.Command{
		Use:   "update-key",
		Short: "Create or replace the encrypted keystore from a mnemonic",
		RunE: func(_ *cobra.Command, _ []string) error {
			passphrase, err := promptPassword("New passphrase (min 8 chars): ")
			if err != nil {
				return err
			}
			if len(passphrase) < 8 {
				return keystore.ErrPassphraseTooShort
			}

			confirm, err := promptPassword("Repeat passphrase: ")
			if err != nil {
				return err
			}
			if passphrase != confirm {
				return errors.New("passphrases do not match")
			}

			mnemonic, err := promptMnemonic()
			if err != nil {
				return err
			}

			addr, err := keystore.Create(ksPath, passphrase, mnemonic)
			if err != nil {
				return err
			}

			fmt.Printf("Keystore written to %s\n", ksPath)
			fmt.Printf("Feeder address: %s\n", addr.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&ksPath, "keystore", "keystore.json", "Path to the keystore file")

	return cmd
}

// promptPassword reads a passphrase without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(raw), nil
}

// promptMnemonic reads and normalizes a 24-word mnemonic from stdin.
func promptMnemonic() (string, error) {
	fmt.Fprint(os.Stderr, "Mnemonic (24 words): ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read mnemonic: %w", err)
	}

	words := strings.Fields(line)
	if len(words) != mnemonicWords {
		return "", fmt.Errorf("expected %d words, got %d", mnemonicWords, len(words))
	}

	return strings.ToLower(strings.Join(words, " ")), nil
}
