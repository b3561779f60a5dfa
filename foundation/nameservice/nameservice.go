// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the ledger accounts.
package nameservice

import (
	"crypto/ecdsa"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	root     string
	accounts map[string]string
	names    map[string]database.AccountID
}

// New constructs a name service with accounts from the zblock/accounts
// folder. Every file with the .ecdsa extension holds a private key and the
// file name is the account name.
func New(root string) (*NameService, error) {
	ns := NameService{
		root:     root,
		accounts: make(map[string]string),
		names:    make(map[string]database.AccountID),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		accountID := database.PublicKeyToAccountID(privateKey.PublicKey)
		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		ns.accounts[strings.ToLower(string(accountID))] = name
		ns.names[name] = accountID

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account. The account is
// returned as is when it has no name.
func (ns *NameService) Lookup(accountID database.AccountID) string {
	name, exists := ns.accounts[strings.ToLower(string(accountID))]
	if !exists {
		return string(accountID)
	}
	return name
}

// Resolve returns the account for the name. A value that already is an
// account is returned unchanged.
func (ns *NameService) Resolve(nameOrAccount string) (database.AccountID, error) {
	if accountID, exists := ns.names[nameOrAccount]; exists {
		return accountID, nil
	}

	accountID, err := database.ToAccountID(nameOrAccount)
	if err != nil {
		return "", fmt.Errorf("unknown name or account %q", nameOrAccount)
	}

	return accountID, nil
}

// PrivateKey loads the private key for the named account.
func (ns *NameService) PrivateKey(name string) (*ecdsa.PrivateKey, error) {
	if _, exists := ns.names[name]; !exists {
		return nil, fmt.Errorf("unknown name %q", name)
	}

	return crypto.LoadECDSA(filepath.Join(ns.root, name+".ecdsa"))
}

// Copy returns a copy of the map of accounts and names.
func (ns *NameService) Copy() map[database.AccountID]string {
	cpy := make(map[database.AccountID]string, len(ns.names))
	for name, accountID := range ns.names {
		cpy[accountID] = name
	}
	return cpy
}
