package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/bolt"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/leveldb"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// Import writes the snapshot chain into persistent storage so a node can be
// started from it.
func Import(w io.Writer, cfg Config, engine string, path string) error {
	snap, err := state.ReadSnapshotFile(cfg.SnapshotPath)
	if err != nil {
		return err
	}

	serializer, err := openStorage(engine, path)
	if err != nil {
		return err
	}

	db, err := database.New(database.Config{
		Genesis:    genesis.Default(),
		Serializer: serializer,
		Verifier:   cfg.verifier(),
		EvHandler:  cfg.EvHandler,
	})
	if err != nil {
		serializer.Close()
		return err
	}
	defer db.Close()

	if err := db.Replace(snap.Chain, snap.Difficulty); err != nil {
		return fmt.Errorf("snapshot rejected: %w", err)
	}

	fmt.Fprintf(w, "Imported: %d blocks into %s storage at %s\n", db.Len(), engine, path)
	fmt.Fprintf(w, "LatestHash: %s\n", db.LatestBlock().Hash())

	return nil
}

func openStorage(engine string, path string) (database.Serializer, error) {
	switch engine {
	case "disk":
		return disk.New(path)
	case "bolt":
		return bolt.New(path)
	case "leveldb":
		return leveldb.New(path)
	}

	return nil, fmt.Errorf("unknown storage engine %q", engine)
}
