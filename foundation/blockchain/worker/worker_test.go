package worker_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
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

func Test_AutoMine(t *testing.T) {
	t.Log("Given the need to mine transactions in the background.")
	{
		t.Logf("\tTest 0:\tWhen a transaction is submitted.")
		{
			pk, err := crypto.HexToECDSA(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load the private key: %v", failed, err)
			}
			aliceID := database.PublicKeyToAccountID(pk.PublicKey)

			st, err := state.New(state.Config{
				MinerAccountID: minerID,
				Genesis:        genesis.Default(),
				Serializer:     memory.New(),
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the state: %v", failed, err)
			}

			if _, err := st.MineNewBlock(context.Background(), aliceID); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to fund alice: %v", failed, err)
			}

			path := filepath.Join(t.TempDir(), "snapshot.json")
			worker.Run(st, worker.Config{AutoMine: true, SnapshotPath: path, SnapshotInterval: time.Hour}, nil)

			tx, err := database.NewTx(aliceID, bobID, 10, uint64(time.Now().UnixMilli()), "")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the transaction: %v", failed, err)
			}
			signedTx, err := tx.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign the transaction: %v", failed, err)
			}

			if err := st.SubmitTransaction(signedTx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the transaction: %v", failed, err)
			}

			deadline := time.Now().Add(10 * time.Second)
			for st.QueryBlockNumber() < 2 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}

			if st.QueryBlockNumber() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould mine the transaction: height %d", failed, st.QueryBlockNumber())
			}
			t.Logf("\t%s\tTest 0:\tShould mine the transaction.", success)

			bal, _ := st.QueryBalance(bobID)
			if bal != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould credit bob: got %d", failed, bal)
			}
			t.Logf("\t%s\tTest 0:\tShould credit bob.", success)

			st.Shutdown()

			if _, err := os.Stat(path); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould write the snapshot on shutdown: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould write the snapshot on shutdown.", success)

			snap, err := state.ReadSnapshotFile(path)
			if err != nil || len(snap.Chain) != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould hold the mined chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould hold the mined chain.", success)
		}
	}
}

func Test_CancelDuringSearch(t *testing.T) {
	t.Log("Given the need to stop a search that is already running.")
	{
		t.Logf("\tTest 0:\tWhen the worker is shut down in the middle of a search.")
		{
			st, w, p := startPaused(t)

			done := make(chan struct{})
			go func() {
				w.Shutdown()
				close(done)
			}()

			select {
			case <-p.cancelled:
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest 0:\tShould cancel the search.", failed)
			}
			close(p.resume)

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest 0:\tShould finish the shutdown while a search is running.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould finish the shutdown while a search is running.", success)

			if n := st.QueryMempoolLength(); n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould return the transaction to the mempool: got %d", failed, n)
			}
			if h := st.QueryBlockNumber(); h != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould not append a block: height %d", failed, h)
			}
			t.Logf("\t%s\tTest 0:\tShould return the transaction to the mempool.", success)
		}

		t.Logf("\tTest 1:\tWhen a snapshot is imported in the middle of a search.")
		{
			st, w, p := startPaused(t)
			defer w.Shutdown()

			snap, err := st.ExportSnapshot()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to export: %v", failed, err)
			}
			if len(snap.Mempool) != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould export the transaction being mined: got %d", failed, len(snap.Mempool))
			}
			t.Logf("\t%s\tTest 1:\tShould export the transaction being mined.", success)

			imported := make(chan error, 1)
			go func() {
				imported <- st.ImportSnapshot(snap)
			}()

			select {
			case err := <-imported:
				if err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould be able to import: %v", failed, err)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest 1:\tShould import without waiting on the search.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould import without waiting on the search.", success)

			select {
			case <-p.cancelled:
			case <-time.After(5 * time.Second):
				t.Fatalf("\t%s\tTest 1:\tShould cancel the search.", failed)
			}
			close(p.resume)

			deadline := time.Now().Add(10 * time.Second)
			for st.QueryBlockNumber() < 2 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}

			if h := st.QueryBlockNumber(); h != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould mine the transaction on the imported chain: height %d", failed, h)
			}
			t.Logf("\t%s\tTest 1:\tShould mine the transaction on the imported chain.", success)

			bal, _ := st.QueryBalance(bobID)
			if bal != 10 || st.QueryMempoolLength() != 0 || !st.QueryChainInfo().IsValid {
				t.Fatalf("\t%s\tTest 1:\tShould credit bob once: got %d", failed, bal)
			}
			t.Logf("\t%s\tTest 1:\tShould credit bob once.", success)
		}
	}
}

// =============================================================================

// pause holds the first POW search it sees at its start until resume is
// closed.
type pause struct {
	armed      atomic.Bool
	reached    chan struct{}
	resume     chan struct{}
	cancelled  chan struct{}
	cancelOnce sync.Once
}

func (p *pause) stateEvents(v string, args ...any) {
	if strings.HasPrefix(v, "database: PerformPOW: MINING: started") && p.armed.CompareAndSwap(true, false) {
		close(p.reached)
		<-p.resume
	}
}

func (p *pause) workerEvents(v string, args ...any) {
	switch v {
	case "worker: runMiningOperation: MINING: CANCEL: requested",
		"worker: runMiningOperation: MINING: CANCEL: shutdown":
		p.cancelOnce.Do(func() { close(p.cancelled) })
	}
}

// startPaused funds alice, starts an auto mining worker and submits a
// transfer to bob. It returns once the worker is holding at the start of
// the search for that block.
func startPaused(t *testing.T) (*state.State, *worker.Worker, *pause) {
	t.Helper()

	p := pause{
		reached:   make(chan struct{}),
		resume:    make(chan struct{}),
		cancelled: make(chan struct{}),
	}

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %v", failed, err)
	}
	aliceID := database.PublicKeyToAccountID(pk.PublicKey)

	st, err := state.New(state.Config{
		MinerAccountID: minerID,
		Genesis:        genesis.Default(),
		Serializer:     memory.New(),
		EvHandler:      p.stateEvents,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	if _, err := st.MineNewBlock(context.Background(), aliceID); err != nil {
		t.Fatalf("\t%s\tShould be able to fund alice: %v", failed, err)
	}

	p.armed.Store(true)
	w := worker.Run(st, worker.Config{AutoMine: true}, p.workerEvents)

	tx, err := database.NewTx(aliceID, bobID, 10, uint64(time.Now().UnixMilli()), "")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the transaction: %v", failed, err)
	}
	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	if err := st.SubmitTransaction(signedTx); err != nil {
		t.Fatalf("\t%s\tShould accept the transaction: %v", failed, err)
	}

	select {
	case <-p.reached:
	case <-time.After(5 * time.Second):
		t.Fatalf("\t%s\tShould start the search.", failed)
	}

	if n := st.QueryMempoolLength(); n != 0 {
		t.Fatalf("\t%s\tShould drain the mempool into the search: got %d", failed, n)
	}

	return st, w, &p
}
