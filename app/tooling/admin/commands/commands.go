// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Config represents the settings shared by every command.
type Config struct {
	SnapshotPath string
	Legacy       bool
	EvHandler    func(v string, args ...any)
}

func (cfg Config) verifier() signature.Verifier {
	if cfg.Legacy {
		return signature.Legacy{}
	}
	return signature.ECDSA{}
}

// load reads the snapshot and replays its chain into a memory database.
func load(cfg Config) (*database.Database, state.Snapshot, error) {
	snap, err := state.ReadSnapshotFile(cfg.SnapshotPath)
	if err != nil {
		return nil, state.Snapshot{}, err
	}

	db, err := database.New(database.Config{
		Genesis:    genesis.Default(),
		Serializer: memory.New(),
		Verifier:   cfg.verifier(),
		EvHandler:  cfg.EvHandler,
	})
	if err != nil {
		return nil, state.Snapshot{}, err
	}

	if err := db.Replace(snap.Chain, snap.Difficulty); err != nil {
		db.Close()
		return nil, state.Snapshot{}, fmt.Errorf("snapshot rejected: %w", err)
	}

	return db, snap, nil
}
