package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/fragment"
)

// Fragment splits the specified block into fragments, reports them and
// checks they reconstruct the original block.
func Fragment(w io.Writer, cfg Config, index string) error {
	num, err := strconv.ParseUint(index, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid block index %q: %w", index, err)
	}

	db, _, err := load(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	block, err := db.GetBlock(num)
	if err != nil {
		return err
	}

	data, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		return err
	}

	frags, err := fragment.Split(data, fragment.DefaultSize)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Block: %d  Hash: %s  Size: %d  Needed: %t\n\n",
		num, block.Hash(), len(data), fragment.Needed(data, fragment.BlockThreshold))

	for _, frag := range frags {
		fmt.Fprintf(w, "Fragment: %d/%d  Hash: %s  Bytes: %d  Compressed: %t\n",
			frag.Index+1, frag.Total, frag.Hash, len(frag.Data), frag.Compressed)
	}

	rebuilt, err := fragment.Reconstruct(frags)
	if err != nil {
		return err
	}

	if !bytes.Equal(rebuilt, data) {
		return errors.New("reconstructed block does not match")
	}

	fmt.Fprintln(w, "\nReconstructed: ok")

	return nil
}
