package cmd

import (
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/payload"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair for signing and one for receiving encrypted data",
	RunE:  generateRun,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func generateRun(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(getPrivateKeyPath()); err == nil {
		return fmt.Errorf("key file %s already exists", getPrivateKeyPath())
	}

	if err := os.MkdirAll(accountPath, 0755); err != nil {
		return err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}

	if err := crypto.SaveECDSA(getPrivateKeyPath(), privateKey); err != nil {
		return err
	}

	kp, err := payload.GenerateKey()
	if err != nil {
		return err
	}

	if err := os.WriteFile(getPayloadKeyPath(), []byte(kp.PrivateHex()), 0600); err != nil {
		return err
	}

	fmt.Println("account:", database.PublicKeyToAccountID(privateKey.PublicKey))
	fmt.Println("payload key:", kp.PublicHex())

	return nil
}
