// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/veralabs/ledger/app/services/ledgerd/handlers/v1/ledgergrp"
	"github.com/veralabs/ledger/foundation/events"
	"github.com/veralabs/ledger/foundation/ledger/state"
	"github.com/veralabs/ledger/foundation/nameservice"
	"github.com/veralabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	lgh := ledgergrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/genesis", lgh.Genesis)
	app.Handle(http.MethodGet, version, "/chain", lgh.Chain)
	app.Handle(http.MethodGet, version, "/reward", lgh.Reward)
	app.Handle(http.MethodGet, version, "/blocks/:number", lgh.BlockByNumber)
	app.Handle(http.MethodGet, version, "/blocks/:number/:hash", lgh.BlockByHash)
	app.Handle(http.MethodGet, version, "/accounts", lgh.Accounts)
	app.Handle(http.MethodGet, version, "/balances", lgh.Balances)
	app.Handle(http.MethodGet, version, "/balances/through/:number", lgh.BalancesThrough)
	app.Handle(http.MethodGet, version, "/balances/:address", lgh.Balance)
	app.Handle(http.MethodGet, version, "/export", lgh.Export)
	app.Handle(http.MethodGet, version, "/events", lgh.Events)

	app.Handle(http.MethodPost, version, "/content", lgh.SubmitContent)
	app.Handle(http.MethodPost, version, "/blocks", lgh.AddMinedBlock)
	app.Handle(http.MethodPost, version, "/import", lgh.Import)
	app.Handle(http.MethodPost, version, "/ignore", lgh.Ignore)
	app.Handle(http.MethodPost, version, "/unignore", lgh.Unignore)
	app.Handle(http.MethodPost, version, "/recalculate", lgh.Recalculate)
}
