package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the transactions sent and received by your account",
	RunE:  historyRun,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func historyRun(cmd *cobra.Command, args []string) error {
	accountID, err := walletAccount()
	if err != nil {
		return err
	}

	var records []database.TxRecord
	if err := call(http.MethodGet, "/v1/accounts/"+string(accountID)+"/history", nil, &records); err != nil {
		return err
	}

	for _, rec := range records {
		peer := rec.Tx.ToID
		if rec.Direction == database.DirectionIn {
			peer = rec.Tx.FromID
		}
		if peer == "" {
			peer = "coinbase"
		}

		fmt.Printf("block[%d] %-3s %-42s amount[%d] id[%s]\n", rec.BlockIndex, rec.Direction, peer, rec.Tx.Amount, rec.Tx.ID)
		if rec.Tx.EncryptedData != "" {
			fmt.Println("          sealed data, use the open command to read it")
		}
	}

	return nil
}
