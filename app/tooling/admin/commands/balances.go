package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Balances prints the balance of every account, or only the specified one.
func Balances(w io.Writer, cfg Config, account string) error {
	db, _, err := load(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", db.LatestBlock().Hash())

	if account != "" {
		accountID, err := database.ToAccountID(account)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Account: %s  Balance: %d\n", accountID, db.BalanceOf(accountID))
		return nil
	}

	balances := db.Balances()
	accounts := make([]database.Account, 0, len(balances))
	for _, acct := range balances {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountID < accounts[j].AccountID
	})

	for _, acct := range accounts {
		fmt.Fprintf(w, "Account: %s  Balance: %d\n", acct.AccountID, acct.Balance)
	}

	return nil
}

// Transactions prints the history of the specified account.
func Transactions(w io.Writer, cfg Config, account string) error {
	accountID, err := database.ToAccountID(account)
	if err != nil {
		return err
	}

	db, _, err := load(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	history, err := db.TransactionHistory(accountID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Account: %s  Balance: %d\n\n", accountID, db.BalanceOf(accountID))

	for _, rec := range history {
		fmt.Fprintf(w, "Block: %d  Dir: %-3s  ID: %s  From: %s  To: %s  Amount: %d  Data: %s\n",
			rec.BlockIndex, rec.Direction, rec.Tx.ID, rec.Tx.FromID, rec.Tx.ToID, rec.Tx.Amount, rec.Tx.Data)
	}

	return nil
}
