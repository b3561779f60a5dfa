package worker

import (
	"context"
	"errors"
	"time"
)

// miningOperations waits for a start signal and mines one block per signal
// until the worker is shut down.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if w.isShutdown() {
				continue
			}
			w.runMiningOperation()

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines the next block from the mempool. A cancel request
// aborts the search, and the goroutine holds until the requester releases it
// so the chain can be changed underneath.
func (w *Worker) runMiningOperation() {
	if n := w.state.QueryMempoolLength(); n == 0 {
		w.evHandler("worker: runMiningOperation: MINING: nothing to mine")
		return
	}

	// A cancel request left over from the previous block must not abort
	// this one.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: discarded stale cancel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan chan struct{}, 1)
	go func() {
		select {
		case wait := <-w.cancelMining:
			cancel()
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			release <- wait
		case <-w.shut:
			cancel()
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
			release <- nil
		case <-ctx.Done():
			release <- nil
		}
	}()

	start := time.Now()
	block, err := w.state.MineNewBlock(ctx, w.state.MinerAccountID())
	cancel()

	wait := <-release

	switch {
	case err == nil:
		w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%d]: duration[%v]", block.Header.Index, time.Since(start))
	case errors.Is(err, context.Canceled):
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete: duration[%v]", time.Since(start))
	default:
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
	}

	if wait != nil {
		w.evHandler("worker: runMiningOperation: MINING: waiting for release")
		<-wait
	}

	if n := w.state.QueryMempoolLength(); n > 0 && !w.isShutdown() {
		w.evHandler("worker: runMiningOperation: MINING: signal next block: Txs[%d]", n)
		w.SignalStartMining()
	}
}
