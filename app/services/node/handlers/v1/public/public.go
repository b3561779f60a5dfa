// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/business/sys/validate"
	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Subscribe()
	defer h.Evts.Unsubscribe(id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// ChainInfo returns the summary of the chain.
func (h Handlers) ChainInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryChainInfo(), http.StatusOK)
}

// BlockNumber returns the number of the latest block.
func (h Handlers) BlockNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.blockNumber(), http.StatusOK)
}

// BlockByIndex returns the block for the index in the route.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.blockByIndex(blockIndex(web.Param(r, "index")))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// BlockByHash returns the block for the hash in the route.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.blockByHash(web.Param(r, "hash"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// BlockFragments returns the block for the index in the route split into
// fragments when it is too large to send whole.
func (h Handlers) BlockFragments(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	frags, err := h.blockFragments(blockIndex(web.Param(r, "index")))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, frags, http.StatusOK)
}

// Mempool returns the set of transactions waiting to be mined.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryMempool(), http.StatusOK)
}

// SubmitTransaction adds a new wallet transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var tx submitTx
	if err := web.Decode(r, &tx); err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp, err := h.submitTransaction(ctx, tx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine mines a block with the request's context. A request that is
// cancelled stops the search and leaves the mempool as it was.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if r.ContentLength != 0 {
		if err := web.Decode(r, &req); err != nil {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
	}

	block, err := h.mine(ctx, req)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Balance returns the balance for the account in the route.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	bal, err := h.balance(web.Param(r, "account"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// History returns the transactions for the account in the route, most recent
// block first.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	history, err := h.history(web.Param(r, "account"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, history, http.StatusOK)
}

// Accounts returns the balances for every account known to the chain.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	balances := h.State.QueryBalances()

	acts := make([]balance, 0, len(balances))
	for _, account := range balances {
		acts = append(acts, balance{
			Account: account.AccountID,
			Name:    h.lookup(account.AccountID),
			Balance: account.Balance,
		})
	}

	latest, _ := h.State.QueryBlockByNumber(state.QueryLatest)

	resp := accounts{
		LatestBlock: latest.Hash(),
		Mempool:     h.State.QueryMempoolLength(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================
// These functions are shared by the routes and the rpc dispatch.

func (h Handlers) blockNumber() any {
	return struct {
		Number uint64 `json:"number"`
	}{
		Number: h.State.QueryBlockNumber(),
	}
}

func (h Handlers) blockByIndex(index blockIndex) (database.BlockData, error) {
	num, err := index.parse()
	if err != nil {
		return database.BlockData{}, v1.NewRequestError(err, http.StatusBadRequest)
	}

	block, err := h.State.QueryBlockByNumber(num)
	if err != nil {
		return database.BlockData{}, notFound(err)
	}

	return database.NewBlockData(block), nil
}

func (h Handlers) blockByHash(hash string) (database.BlockData, error) {
	block, err := h.State.QueryBlockByHash(hash)
	if err != nil {
		return database.BlockData{}, notFound(err)
	}

	return database.NewBlockData(block), nil
}

func (h Handlers) blockFragments(index blockIndex) (fragments, error) {
	num, err := index.parse()
	if err != nil {
		return fragments{}, v1.NewRequestError(err, http.StatusBadRequest)
	}

	if num == state.QueryLatest {
		num = h.State.QueryBlockNumber()
	}

	frags, needed, err := h.State.FragmentBlock(num)
	if err != nil {
		return fragments{}, notFound(err)
	}

	resp := fragments{
		Index:      num,
		Fragmented: needed,
		Fragments:  frags,
	}

	return resp, nil
}

func (h Handlers) submitTransaction(ctx context.Context, tx submitTx) (submitted, error) {
	if err := validate.Check(tx); err != nil {
		return submitted{}, err
	}

	signedTx := toSignedTx(tx)

	h.Log.Infow("submit tran", "traceid", web.GetTraceID(ctx), "tx", signedTx, "id", signedTx.ID)
	if err := h.State.SubmitTransaction(signedTx); err != nil {
		return submitted{}, v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := submitted{
		Status:  "transaction added to mempool",
		ID:      signedTx.ID,
		Mempool: h.State.QueryMempoolLength(),
	}

	return resp, nil
}

func (h Handlers) mine(ctx context.Context, req mineRequest) (database.BlockData, error) {
	if err := validate.Check(req); err != nil {
		return database.BlockData{}, err
	}

	rewardID := h.State.MinerAccountID()
	if req.RewardAddress != "" {
		rewardID = database.AccountID(req.RewardAddress)
	}

	block, err := h.State.MineNewBlock(ctx, rewardID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return database.BlockData{}, v1.NewRequestError(err, http.StatusRequestTimeout)
		}
		return database.BlockData{}, fmt.Errorf("mining block: %w", err)
	}

	return database.NewBlockData(block), nil
}

func (h Handlers) balance(account string) (balance, error) {
	accountID, err := h.resolve(account)
	if err != nil {
		return balance{}, err
	}

	bal, err := h.State.QueryBalance(accountID)
	if err != nil {
		return balance{}, v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := balance{
		Account: accountID,
		Name:    h.lookup(accountID),
		Balance: bal,
	}

	return resp, nil
}

func (h Handlers) history(account string) ([]database.TxRecord, error) {
	accountID, err := h.resolve(account)
	if err != nil {
		return nil, err
	}

	history, err := h.State.QueryTransactionHistory(accountID)
	if err != nil {
		return nil, v1.NewRequestError(err, http.StatusBadRequest)
	}

	return history, nil
}

// resolve accepts an account or a name known to the name service.
func (h Handlers) resolve(account string) (database.AccountID, error) {
	if h.NS != nil {
		accountID, err := h.NS.Resolve(account)
		if err != nil {
			return "", v1.NewRequestError(err, http.StatusBadRequest)
		}
		return accountID, nil
	}

	accountID, err := database.ToAccountID(account)
	if err != nil {
		return "", v1.NewRequestError(err, http.StatusBadRequest)
	}

	return accountID, nil
}

func (h Handlers) lookup(accountID database.AccountID) string {
	if h.NS == nil {
		return ""
	}

	name := h.NS.Lookup(accountID)
	if name == string(accountID) {
		return ""
	}

	return name
}

// notFound converts a missing block into a 404.
func notFound(err error) error {
	if state.IsNotFound(err) {
		return v1.NewRequestError(err, http.StatusNotFound)
	}
	return err
}
