// This program is a wallet for the ledger node.
package main

import (
	"github.com/ardanlabs/ledger/app/wallet/cli/cmd"
)

func main() {
	cmd.Execute()
}
