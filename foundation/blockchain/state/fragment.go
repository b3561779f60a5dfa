package state

import (
	"encoding/json"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/fragment"
)

// FragmentBlock returns the fragments for the serialized block. The boolean
// is false and no fragments are returned when the block is small enough to
// be sent whole.
func (s *State) FragmentBlock(num uint64) ([]fragment.Fragment, bool, error) {
	block, err := s.QueryBlockByNumber(num)
	if err != nil {
		return nil, false, err
	}

	data, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		return nil, false, err
	}

	if !fragment.Needed(data, fragment.BlockThreshold) {
		return nil, false, nil
	}

	frags, err := fragment.Split(data, fragment.DefaultSize)
	if err != nil {
		return nil, false, err
	}

	s.evHandler("state: FragmentBlock: blk[%d]: bytes[%d]: fragments[%d]", block.Header.Index, len(data), len(frags))

	return frags, true, nil
}
