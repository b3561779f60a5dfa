package worker

// snapshotOperations writes the node state to the snapshot file on every
// tick.
func (w *Worker) snapshotOperations() {
	w.evHandler("worker: snapshotOperations: G started")
	defer w.evHandler("worker: snapshotOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runSnapshotOperation()
			}
		case <-w.shut:
			w.evHandler("worker: snapshotOperations: received shut signal")
			return
		}
	}
}

// runSnapshotOperation persists the current snapshot.
func (w *Worker) runSnapshotOperation() {
	w.evHandler("worker: runSnapshotOperation: started")
	defer w.evHandler("worker: runSnapshotOperation: completed")

	if err := w.state.PersistSnapshot(w.cfg.SnapshotPath); err != nil {
		w.evHandler("worker: runSnapshotOperation: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runSnapshotOperation: path[%s]: blocks[%d]", w.cfg.SnapshotPath, w.state.QueryBlockNumber()+1)
}
