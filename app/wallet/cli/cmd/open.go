package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/payload"
	"github.com/spf13/cobra"
)

var txID string

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the sealed data of a transaction sent to your account",
	RunE:  openRun,
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().StringVarP(&txID, "tx", "x", "", "Id of the transaction to open.")
}

func openRun(cmd *cobra.Command, args []string) error {
	if txID == "" {
		return errors.New("a transaction id is required")
	}

	accountID, err := walletAccount()
	if err != nil {
		return err
	}

	kp, err := loadPayloadKey()
	if err != nil {
		return fmt.Errorf("loading payload key: %w", err)
	}

	var records []database.TxRecord
	if err := call(http.MethodGet, "/v1/accounts/"+string(accountID)+"/history", nil, &records); err != nil {
		return err
	}

	for _, rec := range records {
		if rec.Tx.ID != txID {
			continue
		}

		if rec.Tx.EncryptedData == "" {
			fmt.Println(rec.Tx.Data)
			return nil
		}

		data, err := payload.OpenString(kp, rec.Tx.EncryptedData, rec.Tx.KEMCiphertext)
		if err != nil {
			return err
		}
		fmt.Println(data)

		return nil
	}

	return fmt.Errorf("transaction %s not found for account %s", txID, accountID)
}
