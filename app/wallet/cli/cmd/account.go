package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/payload"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print account for the specific wallet",
	RunE:  accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return err
	}

	fmt.Println("account:", database.PublicKeyToAccountID(privateKey.PublicKey))

	kp, err := loadPayloadKey()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	fmt.Println("payload key:", kp.PublicHex())

	return nil
}

// loadPayloadKey reads the key used to open data sealed for this wallet.
func loadPayloadKey() (payload.KeyPair, error) {
	data, err := os.ReadFile(getPayloadKeyPath())
	if err != nil {
		return payload.KeyPair{}, err
	}

	return payload.KeyPairFromHex(strings.TrimSpace(string(data)))
}
