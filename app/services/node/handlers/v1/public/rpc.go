package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/web"
)

// rpcRequest is a call to one of the public operations by name.
type rpcRequest struct {
	Method string          `json:"method" validate:"required"`
	Params json.RawMessage `json:"params"`
}

// rpcParams holds the parameters for every method. Each method reads the
// fields it needs.
type rpcParams struct {
	Index         blockIndex `json:"index"`
	Hash          string     `json:"hash"`
	Account       string     `json:"account"`
	RewardAddress string     `json:"rewardAddress"`
	Transaction   *submitTx  `json:"transaction"`
}

// rpcResponse carries the result of the call.
type rpcResponse struct {
	Method string `json:"method"`
	Result any    `json:"result"`
}

// RPC dispatches a named call to the same operations the routes serve.
func (h Handlers) RPC(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req rpcRequest
	if err := web.Decode(r, &req); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	var params rpcParams
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return v1.NewRequestError(fmt.Errorf("unable to decode params: %w", err), http.StatusBadRequest)
		}
	}

	result, err := h.dispatch(ctx, req.Method, params)
	if err != nil {
		return err
	}

	resp := rpcResponse{
		Method: req.Method,
		Result: result,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

func (h Handlers) dispatch(ctx context.Context, method string, params rpcParams) (any, error) {
	switch method {
	case "getChainInfo":
		return h.State.QueryChainInfo(), nil

	case "getBlockNumber":
		return h.blockNumber(), nil

	case "getBlock":
		return h.blockByIndex(params.Index)

	case "getBlockByHash":
		return h.blockByHash(params.Hash)

	case "getBlockFragments":
		return h.blockFragments(params.Index)

	case "getMempool":
		return h.State.QueryMempool(), nil

	case "sendTransaction":
		if params.Transaction == nil {
			return nil, v1.NewRequestError(fmt.Errorf("params.transaction is required"), http.StatusBadRequest)
		}
		return h.submitTransaction(ctx, *params.Transaction)

	case "mine":
		return h.mine(ctx, mineRequest{RewardAddress: params.RewardAddress})

	case "getBalance":
		return h.balance(params.Account)

	case "getTransactionHistory":
		return h.history(params.Account)
	}

	return nil, v1.NewRequestError(fmt.Errorf("unknown method %q", method), http.StatusBadRequest)
}
