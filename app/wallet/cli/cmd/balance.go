package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	accountID, err := walletAccount()
	if err != nil {
		return err
	}

	var resp struct {
		Account string `json:"account"`
		Name    string `json:"name"`
		Balance uint64 `json:"balance"`
	}
	if err := call(http.MethodGet, "/v1/accounts/"+string(accountID)+"/balance", nil, &resp); err != nil {
		return err
	}

	fmt.Println("account:", resp.Account)
	if resp.Name != "" {
		fmt.Println("name   :", resp.Name)
	}
	fmt.Println("balance:", resp.Balance)

	return nil
}

// walletAccount returns the account for the selected private key.
func walletAccount() (database.AccountID, error) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return "", err
	}

	return database.PublicKeyToAccountID(privateKey.PublicKey), nil
}
