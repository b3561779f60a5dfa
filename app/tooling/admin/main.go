// This program performs administrative tasks over ledger snapshot files.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const usage = `usage: admin <command> <snapshot> [args]

commands:
  validate <snapshot>                       replay the chain and report its tip
  bals     <snapshot> [account]             print the account balances
  trans    <snapshot> <account>             print the history for an account
  frag     <snapshot> <index>               fragment a block and reconstruct it
  import   <snapshot> <storage> <path>      write the chain to disk, bolt or leveldb storage

set ADMIN_SIGNATURE=legacy for chains signed with content hashes`

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	log.Infow("startup", "status", "admin tool", "version", build)

	if len(os.Args) < 3 {
		fmt.Println(usage)
		return errors.New("missing command or snapshot")
	}

	cfg := commands.Config{
		SnapshotPath: os.Args[2],
		Legacy:       os.Getenv("ADMIN_SIGNATURE") == "legacy",
		EvHandler: func(v string, args ...any) {
			log.Debugf(v, args...)
		},
	}

	return processCommands(os.Args, cfg)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, cfg commands.Config) error {
	switch args[1] {
	case "validate":
		if err := commands.Validate(os.Stdout, cfg); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}

	case "bals":
		var account string
		if len(args) > 3 {
			account = args[3]
		}
		if err := commands.Balances(os.Stdout, cfg, account); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "trans":
		if len(args) < 4 {
			return errors.New("missing account")
		}
		if err := commands.Transactions(os.Stdout, cfg, args[3]); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

	case "frag":
		if len(args) < 4 {
			return errors.New("missing block index")
		}
		if err := commands.Fragment(os.Stdout, cfg, args[3]); err != nil {
			return fmt.Errorf("fragmenting block: %w", err)
		}

	case "import":
		if len(args) < 5 {
			return errors.New("missing storage kind or path")
		}
		if err := commands.Import(os.Stdout, cfg, args[3], args[4]); err != nil {
			return fmt.Errorf("importing snapshot: %w", err)
		}

	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
