package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/payload"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to         string
	amount     uint64
	data       string
	encryptFor string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account or name receiving the amount.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.Flags().StringVarP(&data, "data", "d", "", "Data to send.")
	sendCmd.Flags().StringVarP(&encryptFor, "encrypt-for", "e", "", "Payload key of the recipient, seals the data for them.")
}

func sendRun(cmd *cobra.Command, args []string) error {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return err
	}

	toID, err := resolve(to)
	if err != nil {
		return err
	}

	signedTx, err := buildTx(privateKey, toID)
	if err != nil {
		return err
	}

	var resp struct {
		Status  string `json:"status"`
		ID      string `json:"id"`
		Mempool int    `json:"mempool"`
	}
	if err := call(http.MethodPost, "/v1/tx/submit", signedTx, &resp); err != nil {
		return err
	}

	fmt.Printf("%s: id[%s] mempool[%d]\n", resp.Status, resp.ID, resp.Mempool)

	return nil
}

// resolve accepts an account or a name from the accounts folder.
func resolve(nameOrAccount string) (database.AccountID, error) {
	if accountID, err := database.ToAccountID(nameOrAccount); err == nil {
		return accountID, nil
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return "", err
	}

	return ns.Resolve(nameOrAccount)
}

// =============================================================================

// buildTx constructs and signs the transaction, sealing the data when a
// recipient payload key is provided.
func buildTx(privateKey *ecdsa.PrivateKey, toID database.AccountID) (database.SignedTx, error) {
	tx := database.Tx{
		FromID:    database.PublicKeyToAccountID(privateKey.PublicKey),
		ToID:      toID,
		Amount:    amount,
		TimeStamp: uint64(time.Now().UnixMilli()),
		Data:      data,
	}

	if encryptFor != "" {
		encrypted, kem, err := payload.SealString(encryptFor, data)
		if err != nil {
			return database.SignedTx{}, fmt.Errorf("sealing data: %w", err)
		}
		tx.Data = ""
		tx.EncryptedData = encrypted
		tx.KEMCiphertext = kem
	}

	return tx.Sign(privateKey)
}
