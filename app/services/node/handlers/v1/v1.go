// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log          *zap.SugaredLogger
	State        *state.State
	NS           *nameservice.NameService
	Evts         *events.Events
	SnapshotPath string
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/chain/info", pbl.ChainInfo)
	app.Handle(http.MethodGet, version, "/blocks/number", pbl.BlockNumber)
	app.Handle(http.MethodGet, version, "/blocks/index/:index", pbl.BlockByIndex)
	app.Handle(http.MethodGet, version, "/blocks/index/:index/fragments", pbl.BlockFragments)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/tx/mempool", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodGet, version, "/accounts", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/accounts/:account/balance", pbl.Balance)
	app.Handle(http.MethodGet, version, "/accounts/:account/history", pbl.History)
	app.Handle(http.MethodPost, version, "/rpc", pbl.RPC)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:          cfg.Log,
		State:        cfg.State,
		SnapshotPath: cfg.SnapshotPath,
	}

	app.Handle(http.MethodGet, version, "/admin/snapshot", prv.ExportSnapshot)
	app.Handle(http.MethodPost, version, "/admin/snapshot", prv.ImportSnapshot)
	app.Handle(http.MethodPost, version, "/admin/snapshot/persist", prv.PersistSnapshot)
	app.Handle(http.MethodDelete, version, "/admin/mempool", prv.TruncateMempool)
	app.Handle(http.MethodGet, version, "/admin/validate", prv.Validate)
	app.Handle(http.MethodGet, version, "/admin/blocks/:from/:to", prv.BlocksByNumber)
}
