package database_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	bobID    = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	minerID  = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
)

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to start a new chain.")
	{
		t.Logf("\tTest 0:\tWhen using empty storage.")
		{
			db := newDB(t, genesis.Default(), memory.New())

			if db.Len() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have a single block: got %d", failed, db.Len())
			}
			t.Logf("\t%s\tTest 0:\tShould have a single block.", success)

			block, err := db.GetBlock(0)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to get the genesis block: %v", failed, err)
			}

			if block.Header.Index != 0 || block.Header.PrevBlockHash != "0" {
				t.Fatalf("\t%s\tTest 0:\tShould have index 0 and previous hash \"0\": got %d %q", failed, block.Header.Index, block.Header.PrevBlockHash)
			}
			t.Logf("\t%s\tTest 0:\tShould have index 0 and previous hash \"0\".", success)

			if !db.IsValid() {
				t.Fatalf("\t%s\tTest 0:\tShould be a valid chain: %v", failed, db.Validate())
			}
			t.Logf("\t%s\tTest 0:\tShould be a valid chain.", success)

			if _, err := db.GetBlock(1); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould not find block 1: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not find block 1.", success)
		}
	}
}

func Test_Append(t *testing.T) {
	t.Log("Given the need to append blocks to the chain.")
	{
		t.Logf("\tTest 0:\tWhen mining a coinbase and a transfer.")
		{
			gen := genesis.Default()
			db := newDB(t, gen, memory.New())

			pk := privateKey(t)
			aliceID := database.PublicKeyToAccountID(pk.PublicKey)

			mine(t, db, 1, database.NewCoinbaseTx(aliceID, gen.MiningReward, blockTime(1)))

			if bal := db.BalanceOf(aliceID); bal != 100 {
				t.Fatalf("\t%s\tTest 0:\tShould give alice the reward: got %d", failed, bal)
			}
			t.Logf("\t%s\tTest 0:\tShould give alice the reward.", success)

			tx := signTx(t, pk, aliceID, bobID, 30, blockTime(2))
			mine(t, db, 2, tx, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(2)))

			exp := map[database.AccountID]uint64{aliceID: 70, bobID: 30, minerID: 100}
			for account, bal := range exp {
				if got := db.BalanceOf(account); got != bal {
					t.Errorf("\t%s\tTest 0:\tShould have balance %d for %s: got %d", failed, bal, account, got)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould move the value between the accounts.", success)

			var total uint64
			for _, account := range db.Balances() {
				total += account.Balance
			}
			if total != 2*gen.MiningReward {
				t.Fatalf("\t%s\tTest 0:\tShould conserve value: got %d, exp %d", failed, total, 2*gen.MiningReward)
			}
			t.Logf("\t%s\tTest 0:\tShould conserve value.", success)

			if db.TotalTransactions() != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould count 3 transactions: got %d", failed, db.TotalTransactions())
			}
			t.Logf("\t%s\tTest 0:\tShould count 3 transactions.", success)

			if !db.IsValid() {
				t.Fatalf("\t%s\tTest 0:\tShould be a valid chain: %v", failed, db.Validate())
			}
			t.Logf("\t%s\tTest 0:\tShould be a valid chain.", success)

			blocks, err := db.Export()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to export: %v", failed, err)
			}
			for i := 1; i < len(blocks); i++ {
				if blocks[i].PrevBlockHash != blocks[i-1].Hash {
					t.Fatalf("\t%s\tTest 0:\tShould link block %d to its parent.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould link every block to its parent.", success)
		}

		t.Logf("\tTest 1:\tWhen a block does not link to the latest block.")
		{
			gen := genesis.Default()
			db := newDB(t, gen, memory.New())

			block, err := database.POW(context.Background(), database.POWArgs{
				PrevBlock:  db.LatestBlock(),
				Difficulty: db.Difficulty(),
				TimeStamp:  blockTime(1),
				Trans:      []database.SignedTx{database.NewCoinbaseTx(minerID, 100, blockTime(1))},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine: %v", failed, err)
			}

			block.Header.PrevBlockHash = "bad"
			err = db.Append(block)
			if !errors.Is(err, database.ErrLinkage) {
				t.Fatalf("\t%s\tTest 1:\tShould reject with a linkage error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject with a linkage error.", success)

			if db.Len() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould leave the height unchanged: got %d", failed, db.Len())
			}
			t.Logf("\t%s\tTest 1:\tShould leave the height unchanged.", success)
		}

		t.Logf("\tTest 2:\tWhen a block overdraws an account.")
		{
			gen := genesis.Default()
			db := newDB(t, gen, memory.New())

			pk := privateKey(t)
			aliceID := database.PublicKeyToAccountID(pk.PublicKey)

			tx := signTx(t, pk, aliceID, bobID, 50, blockTime(1))
			block, err := database.POW(context.Background(), database.POWArgs{
				PrevBlock:  db.LatestBlock(),
				Difficulty: db.Difficulty(),
				TimeStamp:  blockTime(1),
				Trans:      []database.SignedTx{tx, database.NewCoinbaseTx(minerID, 100, blockTime(1))},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to mine: %v", failed, err)
			}

			if err := db.Append(block); !errors.Is(err, database.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest 2:\tShould reject with insufficient funds: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject with insufficient funds.", success)

			if db.BalanceOf(minerID) != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould leave the balances untouched.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould leave the balances untouched.", success)
		}
	}
}

func Test_Tamper(t *testing.T) {
	t.Log("Given the need to detect a tampered chain.")
	{
		t.Logf("\tTest 0:\tWhen a transaction amount is changed after mining.")
		{
			gen := genesis.Default()
			gen.MiningReward = 10

			store := &tamperStore{}
			db := newDB(t, gen, store)

			mine(t, db, 1, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(1)))

			if !db.IsValid() {
				t.Fatalf("\t%s\tTest 0:\tShould start with a valid chain: %v", failed, db.Validate())
			}
			t.Logf("\t%s\tTest 0:\tShould start with a valid chain.", success)

			store.blocks[1].Trans[0].Amount = 999999
			if db.IsValid() {
				t.Fatalf("\t%s\tTest 0:\tShould detect the tampered amount.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould detect the tampered amount.", success)

			store.blocks[1].Trans[0].Amount = 10
			if !db.IsValid() {
				t.Fatalf("\t%s\tTest 0:\tShould be valid again once restored: %v", failed, db.Validate())
			}
			t.Logf("\t%s\tTest 0:\tShould be valid again once restored.", success)

			store.blocks[1].Nonce++
			if db.IsValid() {
				t.Fatalf("\t%s\tTest 0:\tShould detect a tampered header.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould detect a tampered header.", success)
		}
	}
}

func Test_History(t *testing.T) {
	t.Log("Given the need to list the transactions of an account.")
	{
		t.Logf("\tTest 0:\tWhen the account received and sent value.")
		{
			gen := genesis.Default()
			db := newDB(t, gen, memory.New())

			pk := privateKey(t)
			aliceID := database.PublicKeyToAccountID(pk.PublicKey)

			mine(t, db, 1, database.NewCoinbaseTx(aliceID, gen.MiningReward, blockTime(1)))
			mine(t, db, 2,
				signTx(t, pk, aliceID, bobID, 10, blockTime(2)),
				signTx(t, pk, aliceID, bobID, 20, blockTime(2)+1),
				database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(2)),
			)

			history, err := db.TransactionHistory(aliceID)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to get the history: %v", failed, err)
			}

			if len(history) != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould have 3 records: got %d", failed, len(history))
			}
			t.Logf("\t%s\tTest 0:\tShould have 3 records.", success)

			exp := []struct {
				block     uint64
				amount    uint64
				direction string
			}{
				{2, 10, database.DirectionOut},
				{2, 20, database.DirectionOut},
				{1, 100, database.DirectionIn},
			}
			for i, e := range exp {
				got := history[i]
				if got.BlockIndex != e.block || got.Tx.Amount != e.amount || got.Direction != e.direction {
					t.Fatalf("\t%s\tTest 0:\tShould order record %d: got %+v", failed, i, got)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould order the records most recent block first.", success)

			history, err = db.TransactionHistory("0x0000000000000000000000000000000000000001")
			if err != nil || len(history) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould return an empty history for an unknown account: %v %d", failed, err, len(history))
			}
			t.Logf("\t%s\tTest 0:\tShould return an empty history for an unknown account.", success)
		}
	}
}

func Test_Replace(t *testing.T) {
	t.Log("Given the need to replace the chain with an exported one.")
	{
		t.Logf("\tTest 0:\tWhen the exported chain is valid.")
		{
			gen := genesis.Default()
			src := newDB(t, gen, memory.New())
			mine(t, src, 1, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(1)))
			mine(t, src, 2, database.NewCoinbaseTx(bobID, gen.MiningReward, blockTime(2)))

			blocks, err := src.Export()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to export: %v", failed, err)
			}

			dst := newDB(t, gen, memory.New())
			if err := dst.Replace(blocks, 2); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to replace the chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to replace the chain.", success)

			if dst.Len() != 3 || dst.BalanceOf(bobID) != 100 || dst.Difficulty() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould take over the chain state: len %d bal %d diff %d", failed, dst.Len(), dst.BalanceOf(bobID), dst.Difficulty())
			}
			t.Logf("\t%s\tTest 0:\tShould take over the chain state.", success)

			if dst.LatestBlock().Hash() != src.LatestBlock().Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould have the same latest block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have the same latest block.", success)
		}

		t.Logf("\tTest 1:\tWhen the exported chain was tampered with.")
		{
			gen := genesis.Default()
			src := newDB(t, gen, memory.New())
			mine(t, src, 1, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(1)))

			blocks, err := src.Export()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to export: %v", failed, err)
			}
			blocks[1].Trans[0].Amount = 5000

			dst := newDB(t, gen, memory.New())
			if err := dst.Replace(blocks, 0); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject the chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the chain.", success)

			if dst.Len() != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould keep the existing chain: got %d", failed, dst.Len())
			}
			t.Logf("\t%s\tTest 1:\tShould keep the existing chain.", success)
		}
	}
}

func Test_ReplaceDifficulty(t *testing.T) {
	t.Log("Given the need to keep an imported chain mineable.")
	{
		gen := genesis.Default()
		src := newDB(t, gen, memory.New())
		mine(t, src, 1, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(1)))

		blocks, err := src.Export()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to export: %v", failed, err)
		}

		tests := []struct {
			name       string
			difficulty uint16
			accept     bool
		}{
			{"same", 1, true},
			{"one up", 2, true},
			{"jump", 4, false},
			{"over max", gen.MaxDifficulty + 1, false},
		}

		for testID, tst := range tests {
			t.Logf("\tTest %d:\tWhen importing with difficulty %d (%s).", testID, tst.difficulty, tst.name)
			{
				dst := newDB(t, gen, memory.New())
				err := dst.Replace(blocks, tst.difficulty)

				switch tst.accept {
				case true:
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould accept the difficulty: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould accept the difficulty.", success, testID)

				default:
					if err == nil {
						t.Fatalf("\t%s\tTest %d:\tShould reject the difficulty.", failed, testID)
					}
					if dst.Len() != 1 || dst.Difficulty() != gen.Difficulty {
						t.Fatalf("\t%s\tTest %d:\tShould keep the existing chain: len %d diff %d", failed, testID, dst.Len(), dst.Difficulty())
					}
					t.Logf("\t%s\tTest %d:\tShould reject the difficulty and keep the chain.", success, testID)
				}
			}
		}
	}
}

func Test_TxReplay(t *testing.T) {
	t.Log("Given the need to apply a signed transaction only once.")
	{
		t.Logf("\tTest 0:\tWhen a mined transaction is placed in a later block.")
		{
			gen := genesis.Default()
			db := newDB(t, gen, memory.New())

			pk := privateKey(t)
			aliceID := database.PublicKeyToAccountID(pk.PublicKey)

			tx := signTx(t, pk, aliceID, bobID, 10, blockTime(2))

			mine(t, db, 1, database.NewCoinbaseTx(aliceID, gen.MiningReward, blockTime(1)))
			mine(t, db, 2, tx, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(2)))

			if !db.HasTransaction(tx.ID) {
				t.Fatalf("\t%s\tTest 0:\tShould record the mined transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould record the mined transaction.", success)

			block, err := database.POW(context.Background(), database.POWArgs{
				PrevBlock:  db.LatestBlock(),
				Difficulty: db.Difficulty(),
				TimeStamp:  blockTime(3),
				Trans:      []database.SignedTx{tx, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(3))},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine: %v", failed, err)
			}

			if err := db.Append(block); !errors.Is(err, database.ErrTxExists) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the repeated transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the repeated transaction.", success)

			if db.Len() != 3 || db.BalanceOf(bobID) != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the chain unchanged: len %d bal %d", failed, db.Len(), db.BalanceOf(bobID))
			}
			t.Logf("\t%s\tTest 0:\tShould leave the chain unchanged.", success)

			blocks, err := db.Export()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to export: %v", failed, err)
			}
			blocks = append(blocks, database.NewBlockData(block))

			if _, err := database.ValidateChain(blocks, nil, nil); !errors.Is(err, database.ErrTxExists) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a chain holding the transaction twice: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a chain holding the transaction twice.", success)
		}
	}
}

func Test_IterateDuringReplace(t *testing.T) {
	t.Log("Given the need to read the chain while it can be replaced.")
	{
		t.Logf("\tTest 0:\tWhen the chain is replaced during a walk.")
		{
			gen := genesis.Default()
			db := newDB(t, gen, memory.New())
			mine(t, db, 1, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(1)))

			blocks, err := db.Export()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to export: %v", failed, err)
			}

			iter := db.ForEach()
			if _, err := iter.Next(); err != nil || iter.Done() {
				t.Fatalf("\t%s\tTest 0:\tShould read the genesis block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould read the genesis block.", success)

			if err := db.Replace(blocks, 0); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to replace the chain: %v", failed, err)
			}

			if _, err := iter.Next(); !errors.Is(err, database.ErrChainReplaced) {
				t.Fatalf("\t%s\tTest 0:\tShould stop the walk: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould stop the walk.", success)

			n := 0
			iter = db.ForEach()
			for _, err := iter.Next(); !iter.Done(); _, err = iter.Next() {
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould walk the new chain: %v", failed, err)
				}
				n++
			}
			if n != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould walk 2 blocks: got %d", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould walk the new chain.", success)
		}
	}
}

func Test_Retarget(t *testing.T) {
	const target = 10 * time.Second

	type table struct {
		name     string
		current  uint16
		max      uint16
		timeDiff time.Duration
		exp      uint16
	}

	tt := []table{
		{"fast", 1, 6, 4 * time.Second, 2},
		{"fast-at-ceiling", 6, 6, time.Second, 6},
		{"on-target", 3, 6, 10 * time.Second, 3},
		{"half-target", 3, 6, 5 * time.Second, 3},
		{"slow", 3, 6, 21 * time.Second, 2},
		{"slow-at-floor", 1, 6, time.Minute, 1},
		{"double-target", 3, 6, 20 * time.Second, 3},
	}

	t.Log("Given the need to retarget the difficulty.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s case.", testID, tst.name)
			{
				f := func(t *testing.T) {
					prev := uint64(1_000_000)
					latest := prev + uint64(tst.timeDiff.Milliseconds())

					got := database.Retarget(tst.current, tst.max, prev, latest, target)
					if got != tst.exp {
						t.Fatalf("\t%s\tTest %d:\tShould get difficulty %d: got %d", failed, testID, tst.exp, got)
					}
					t.Logf("\t%s\tTest %d:\tShould get difficulty %d.", success, testID, tst.exp)

					if got < 1 || int(got)-int(tst.current) > 1 || int(tst.current)-int(got) > 1 {
						t.Fatalf("\t%s\tTest %d:\tShould stay within the difficulty bounds.", failed, testID)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_RetargetAfterAppend(t *testing.T) {
	t.Log("Given the need to adjust the difficulty as blocks are mined.")
	{
		t.Logf("\tTest 0:\tWhen two blocks are mined less than 5 seconds apart.")
		{
			gen := genesis.Default()
			db := newDB(t, gen, memory.New())

			mine(t, db, 1, database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(1)))
			if db.Difficulty() != gen.Difficulty {
				t.Fatalf("\t%s\tTest 0:\tShould not retarget after the first block: got %d", failed, db.Difficulty())
			}
			t.Logf("\t%s\tTest 0:\tShould not retarget after the first block.", success)

			ts := blockTime(1) + 2_000
			block, err := database.POW(context.Background(), database.POWArgs{
				PrevBlock:  db.LatestBlock(),
				Difficulty: db.Difficulty(),
				TimeStamp:  ts,
				Trans:      []database.SignedTx{database.NewCoinbaseTx(minerID, gen.MiningReward, ts)},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine: %v", failed, err)
			}
			if err := db.Append(block); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to append: %v", failed, err)
			}

			if db.Difficulty() != gen.Difficulty+1 {
				t.Fatalf("\t%s\tTest 0:\tShould raise the difficulty by one: got %d", failed, db.Difficulty())
			}
			t.Logf("\t%s\tTest 0:\tShould raise the difficulty by one.", success)
		}
	}
}

func Test_POWCancel(t *testing.T) {
	t.Log("Given the need to stop mining.")
	{
		t.Logf("\tTest 0:\tWhen the context is cancelled.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			gen := genesis.Default()
			db := newDB(t, gen, memory.New())

			_, err := database.POW(ctx, database.POWArgs{
				PrevBlock:  db.LatestBlock(),
				Difficulty: 64,
				TimeStamp:  blockTime(1),
				Trans:      []database.SignedTx{database.NewCoinbaseTx(minerID, gen.MiningReward, blockTime(1))},
			})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 0:\tShould stop with the context error: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould stop with the context error.", success)
		}
	}
}

// =============================================================================

func newDB(t *testing.T, gen genesis.Genesis, store database.Serializer) *database.Database {
	t.Helper()

	db, err := database.New(database.Config{
		Genesis:    gen,
		Serializer: store,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open database: %v", failed, err)
	}

	return db
}

func privateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %v", failed, err)
	}

	return pk
}

func signTx(t *testing.T, pk *ecdsa.PrivateKey, from database.AccountID, to database.AccountID, amount uint64, ts uint64) database.SignedTx {
	t.Helper()

	tx, err := database.NewTx(from, to, amount, ts, "")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	return signedTx
}

// blockTime returns a timestamp n target periods after the genesis date.
func blockTime(n uint64) uint64 {
	return uint64(genesis.Default().Date.UnixMilli()) + n*10_000
}

func mine(t *testing.T, db *database.Database, n uint64, trans ...database.SignedTx) {
	t.Helper()

	block, err := database.POW(context.Background(), database.POWArgs{
		PrevBlock:  db.LatestBlock(),
		Difficulty: db.Difficulty(),
		TimeStamp:  blockTime(n),
		Trans:      trans,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine block %d: %v", failed, n, err)
	}

	if err := db.Append(block); err != nil {
		t.Fatalf("\t%s\tShould be able to append block %d: %v", failed, n, err)
	}
}

// =============================================================================

// tamperStore keeps the blocks where the test can reach them.
type tamperStore struct {
	blocks []database.BlockData
}

func (s *tamperStore) Write(blockData database.BlockData) error {
	s.blocks = append(s.blocks, blockData.Copy())
	return nil
}

func (s *tamperStore) GetBlock(num uint64) (database.BlockData, error) {
	if num >= uint64(len(s.blocks)) {
		return database.BlockData{}, database.ErrNotFound
	}
	return s.blocks[num].Copy(), nil
}

func (s *tamperStore) ForEach() database.Iterator {
	return &tamperIterator{store: s}
}

func (s *tamperStore) Close() error { return nil }
func (s *tamperStore) Reset() error { s.blocks = nil; return nil }

type tamperIterator struct {
	store   *tamperStore
	current uint64
	eoc     bool
}

func (ti *tamperIterator) Next() (database.BlockData, error) {
	blockData, err := ti.store.GetBlock(ti.current)
	if err != nil {
		ti.eoc = true
	}
	ti.current++
	return blockData, err
}

func (ti *tamperIterator) Done() bool {
	return ti.eoc
}
