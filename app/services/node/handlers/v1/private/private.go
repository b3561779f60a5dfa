// Package private maintains the group of handlers for node administration.
package private

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of admin endpoints.
type Handlers struct {
	Log          *zap.SugaredLogger
	State        *state.State
	SnapshotPath string
}

// ExportSnapshot returns the chain, the mempool and the mining parameters.
func (h Handlers) ExportSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	snap, err := h.State.ExportSnapshot()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, snap, http.StatusOK)
}

// ImportSnapshot replaces the state of the node with the snapshot in the
// body. A snapshot whose chain does not validate is rejected and nothing
// changes.
func (h Handlers) ImportSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var snap state.Snapshot
	if err := web.Decode(r, &snap); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("import snapshot", "traceid", web.GetTraceID(ctx), "blocks", len(snap.Chain), "mempool", len(snap.Mempool))
	if err := h.State.ImportSnapshot(snap); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.State.QueryChainInfo(), http.StatusOK)
}

// PersistSnapshot writes the snapshot to the configured file.
func (h Handlers) PersistSnapshot(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.SnapshotPath == "" {
		return v1.NewRequestError(errors.New("no snapshot file configured"), http.StatusConflict)
	}

	if err := h.State.PersistSnapshot(h.SnapshotPath); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
		Path   string `json:"path"`
	}{
		Status: "snapshot written",
		Path:   h.SnapshotPath,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// TruncateMempool clears the mempool.
func (h Handlers) TruncateMempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.TruncateMempool()
	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Validate performs a full scan of the chain and reports the result.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	}{
		Valid: true,
	}

	if err := h.State.ValidateChain(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseNumber(web.Param(r, "from"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	to, err := parseNumber(web.Param(r, "to"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	if from > to {
		return v1.NewRequestError(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		if state.IsNotFound(err) {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	blockData := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		blockData[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, blockData, http.StatusOK)
}

func parseNumber(s string) (uint64, error) {
	if s == "latest" || s == "" {
		return state.QueryLatest, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
