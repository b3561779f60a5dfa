package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// GenesisPrevHash is the previous hash recorded by the genesis block.
const GenesisPrevHash = "0"

// Set of errors returned when a block can't be accepted.
var (
	ErrLinkage  = errors.New("block does not link to the chain")
	ErrNotFound = errors.New("block not found")
)

// =============================================================================

// BlockHeader represents common information required for each block. The
// block hash is computed over these fields only.
type BlockHeader struct {
	Index         uint64 `json:"index"`        // Position of the block in the chain, genesis is 0.
	TimeStamp     uint64 `json:"timestamp"`    // Unix milliseconds when the block was assembled.
	PrevBlockHash string `json:"previousHash"` // Hash of the previous block in the chain.
	MerkleRoot    string `json:"merkleRoot"`   // Merkle tree root hash for the transactions in this block.
	Nonce         uint64 `json:"nonce"`        // Value identified to solve the hash solution.
	Difficulty    uint16 `json:"difficulty"`   // Number of leading hex 0's needed to solve the hash solution.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[SignedTx]
}

// NewGenesisBlock constructs block 0 for the chain.
func NewGenesisBlock(timeStamp uint64, difficulty uint16) (Block, error) {
	tree, err := merkle.NewTree[SignedTx](nil)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: BlockHeader{
			Index:         0,
			TimeStamp:     timeStamp,
			PrevBlockHash: GenesisPrevHash,
			MerkleRoot:    tree.RootHex(),
			Difficulty:    difficulty,
		},
		Trans: tree,
	}

	return b, nil
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock  Block
	Difficulty uint16
	TimeStamp  uint64
	Trans      []SignedTx
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The nonce search starts at zero and
// stops with the context error if the context is cancelled.
func POW(ctx context.Context, args POWArgs) (Block, error) {

	// Construct a merkle tree from the transactions for this block. The root
	// of this tree will be part of the block to be mined.
	tree, err := merkle.NewTree(args.Trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: BlockHeader{
			Index:         args.PrevBlock.Header.Index + 1,
			TimeStamp:     args.TimeStamp,
			PrevBlockHash: args.PrevBlock.Hash(),
			MerkleRoot:    tree.RootHex(),
			Nonce:         0,
			Difficulty:    args.Difficulty,
		},
		Trans: tree,
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Header.Index, b.Header.Difficulty)
	defer ev("database: PerformPOW: MINING: completed")

	for _, tx := range b.Trans.Values() {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {

	// Hashing the block header and not the whole block so the blockchain can
	// be checked with headers only. The merkle root binds the transactions.

	return signature.Hash(b.Header)
}

// Values returns the transactions in inclusion order.
func (b Block) Values() []SignedTx {
	if b.Trans == nil {
		return nil
	}
	return b.Trans.Values()
}

// ValidateBlock takes a block and validates it in isolation: the merkle
// root, the proof of work and the transactions themselves. Linkage with the
// previous block is checked by ValidateNext.
func (b Block) ValidateBlock(verifier signature.Verifier, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.Header.Index)

	if b.Header.MerkleRoot != b.Trans.RootHex() {
		return fmt.Errorf("blk[%d]: merkle root does not match transactions, got %s, exp %s", b.Header.Index, b.Trans.RootHex(), b.Header.MerkleRoot)
	}

	if b.Header.Difficulty == 0 {
		return fmt.Errorf("blk[%d]: difficulty must be at least 1", b.Header.Index)
	}

	trans := b.Trans.Values()

	if b.Header.Index == 0 {
		if b.Header.PrevBlockHash != GenesisPrevHash {
			return fmt.Errorf("genesis previous hash must be %q, got %q", GenesisPrevHash, b.Header.PrevBlockHash)
		}

		for _, tx := range trans {
			if !tx.IsCoinbase() {
				return errors.New("genesis can only hold coinbase transactions")
			}
		}
	} else {
		evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Index)

		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			return fmt.Errorf("blk[%d]: %s invalid block hash for difficulty %d", b.Header.Index, hash, b.Header.Difficulty)
		}

		evHandler("database: ValidateBlock: validate: blk[%d]: check: single coinbase at the end", b.Header.Index)

		if len(trans) == 0 || !trans[len(trans)-1].IsCoinbase() {
			return fmt.Errorf("blk[%d]: last transaction must be the coinbase", b.Header.Index)
		}

		for _, tx := range trans[:len(trans)-1] {
			if tx.IsCoinbase() {
				return fmt.Errorf("blk[%d]: only one coinbase transaction allowed", b.Header.Index)
			}
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions are valid", b.Header.Index)

	seen := make(map[string]struct{}, len(trans))
	for _, tx := range trans {
		if err := tx.Validate(verifier); err != nil {
			return fmt.Errorf("blk[%d]: tx[%s]: %w", b.Header.Index, tx.ID, err)
		}

		if _, exists := seen[tx.ID]; exists {
			return fmt.Errorf("blk[%d]: tx[%s]: duplicate transaction", b.Header.Index, tx.ID)
		}
		seen[tx.ID] = struct{}{}
	}

	return nil
}

// ValidateNext checks the block links to the previous block.
func (b Block) ValidateNext(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateNext: validate: blk[%d]: check: block number is the next number", b.Header.Index)

	nextNumber := previousBlock.Header.Index + 1
	if b.Header.Index != nextNumber {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrLinkage, b.Header.Index, nextNumber)
	}

	evHandler("database: ValidateNext: validate: blk[%d]: check: parent hash does match parent block", b.Header.Index)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrLinkage, b.Header.PrevBlockHash, previousBlock.Hash())
	}

	evHandler("database: ValidateNext: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", b.Header.Index)

	if b.Header.TimeStamp < previousBlock.Header.TimeStamp {
		return fmt.Errorf("block timestamp is before parent block, parent %d, block %d", previousBlock.Header.TimeStamp, b.Header.TimeStamp)
	}

	evHandler("database: ValidateNext: validate: blk[%d]: check: difficulty moved by at most one", b.Header.Index)

	prev, cur := int(previousBlock.Header.Difficulty), int(b.Header.Difficulty)
	if cur > prev+1 || cur < prev-1 {
		return fmt.Errorf("block difficulty moved by more than one, parent %d, block %d", prev, cur)
	}

	return nil
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint16, hash string) bool {
	if len(hash) != 64 || int(difficulty) > len(hash) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}

// =============================================================================

// BlockData represents what is written to storage and returned to clients.
// The header fields are flattened next to the hash and the transactions.
type BlockData struct {
	BlockHeader
	Hash  string     `json:"hash"`
	Trans []SignedTx `json:"transactions"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	trans := block.Values()
	if trans == nil {
		trans = []SignedTx{}
	}

	return BlockData{
		BlockHeader: block.Header,
		Hash:        block.Hash(),
		Trans:       trans,
	}
}

// ToBlock converts a BlockData into a Block. The stored hash must match the
// hash of the stored header.
func ToBlock(blockData BlockData) (Block, error) {
	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: blockData.BlockHeader,
		Trans:  tree,
	}

	if hash := nb.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("blk[%d]: stored hash %s does not match computed hash %s", nb.Header.Index, blockData.Hash, hash)
	}

	return nb, nil
}

// Copy returns a deep copy of the block data.
func (bd BlockData) Copy() BlockData {
	trans := make([]SignedTx, len(bd.Trans))
	copy(trans, bd.Trans)
	bd.Trans = trans
	return bd
}
