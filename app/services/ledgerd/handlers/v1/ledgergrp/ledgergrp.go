// Package ledgergrp maintains the group of handlers exposing the ledger.
package ledgergrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/veralabs/ledger/business/sys/validate"
	"github.com/veralabs/ledger/business/web/errs"
	"github.com/veralabs/ledger/foundation/events"
	"github.com/veralabs/ledger/foundation/ledger/state"
	"github.com/veralabs/ledger/foundation/nameservice"
	"github.com/veralabs/ledger/foundation/web"
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

// Genesis returns the ledger configuration.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Chain summarizes the chain: its length, the hash of the tip and the
// outcome of a full range validation.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info := chainInfo{
		Length: h.State.ChainLength(),
		Valid:  h.State.ValidateChain() == nil,
	}

	if info.Length > 0 {
		block, err := h.State.RetrieveBlock(info.Length - 1)
		if err != nil {
			return err
		}
		info.Tip = block.Hash()
	}

	for _, key := range h.State.Ignored() {
		info.Ignored = append(info.Ignored, fmt.Sprintf("%d:%s", key.Number, key.Hash))
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Reward returns the amount the next mined block will mint.
func (h Handlers) Reward(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Reward string `json:"reward"`
	}{
		Reward: h.State.CurrentReward().String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlockByNumber returns the block stored at the specified index.
func (h Handlers) BlockByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "invalid block number: %s", err)
	}

	block, err := h.State.RetrieveBlock(number)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// BlockByHash returns the block stored at the specified index when its
// hash matches.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "invalid block number: %s", err)
	}

	block, err := h.State.RetrieveBlockByHash(number, web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Accounts returns the names known for addresses derived from the wallet
// keys the service was pointed at.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accounts := make(map[string]string)
	if h.NS != nil {
		accounts = h.NS.Copy()
	}

	return web.Respond(ctx, w, accounts, http.StatusOK)
}

// Balances returns the current balance of every known address, annotated
// with the name the address resolves to when one is known.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	balances := make([]actBalance, 0)
	for address, value := range h.State.Balances() {
		bal := actBalance{
			Address: address,
			Balance: value.String(),
		}
		if h.NS != nil {
			if name := h.NS.Lookup(address); name != address {
				bal.Name = name
			}
		}
		balances = append(balances, bal)
	}

	sort.Slice(balances, func(i, j int) bool { return balances[i].Address < balances[j].Address })

	return web.Respond(ctx, w, balances, http.StatusOK)
}

// Balance returns the current balance of one address, zero for an
// address the chain has never seen.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	resp := struct {
		Address string `json:"address"`
		Balance string `json:"balance"`
	}{
		Address: address,
		Balance: h.State.Balance(address).String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BalancesThrough replays history and returns the balances as they stood
// right after the specified block.
func (h Handlers) BalancesThrough(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	number, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "invalid block number: %s", err)
	}

	historical, err := h.State.BalancesThrough(number)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	balances := make(map[string]string)
	for address, value := range historical {
		balances[address] = value.String()
	}

	return web.Respond(ctx, w, balances, http.StatusOK)
}

// Export returns one opaque blob per non-ignored block.
func (h Handlers) Export(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blobs, err := h.State.Export()
	if err != nil {
		return err
	}

	resp := struct {
		Blocks []string `json:"blocks"`
	}{
		Blocks: blobs,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitContent takes signed content entries, assembles the next block
// around them, mines it and appends it to the chain.
func (h Handlers) SubmitContent(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var sc submitContent
	if err := web.Decode(r, &sc); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(sc); err != nil {
		return err
	}

	h.Log.Infow("submit content", "traceid", v.TraceID, "entries", len(sc.Content), "beneficiary", sc.BeneficiaryID)

	block, err := h.State.AssembleBlock(ctx, sc.Content, sc.BeneficiaryID)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	mined, err := h.State.MineAndAppend(ctx, block)
	if err != nil {
		return errs.NewTrusted(err, http.StatusConflict)
	}

	resp := minedBlock{
		Number: mined.Number,
		Hash:   mined.Hash(),
		Nonce:  mined.Nonce,
		Reward: mined.Reward.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// AddMinedBlock accepts a block that was mined elsewhere.
func (h Handlers) AddMinedBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var block struct {
		Block string `json:"block" validate:"required"`
	}
	if err := web.Decode(r, &block); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(block); err != nil {
		return err
	}

	decoded, err := h.State.DecodeBlock(block.Block)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := h.State.AddMinedBlock(ctx, decoded); err != nil {
		return errs.NewTrusted(err, http.StatusConflict)
	}

	resp := minedBlock{
		Number: decoded.Number,
		Hash:   decoded.Hash(),
		Nonce:  decoded.Nonce,
		Reward: decoded.Reward.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Import replaces the whole chain from a previous export.
func (h Handlers) Import(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ic importChain
	if err := web.Decode(r, &ic); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(ic); err != nil {
		return err
	}

	if err := h.State.Import(ctx, ic.Blocks); err != nil {
		switch {
		case errors.Is(err, state.ErrImportEmpty):
			return errs.NewTrusted(err, http.StatusBadRequest)
		case errors.Is(err, state.ErrImportInvalid):
			return errs.NewTrusted(err, http.StatusUnprocessableEntity)
		default:
			return err
		}
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Ignore tombstones a block so it disappears from validation and balance
// folding without leaving the stored sequence.
func (h Handlers) Ignore(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.tombstone(ctx, w, r, h.State.Ignore)
}

// Unignore removes a tombstone.
func (h Handlers) Unignore(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return h.tombstone(ctx, w, r, h.State.Unignore)
}

func (h Handlers) tombstone(ctx context.Context, w http.ResponseWriter, r *http.Request, op func(context.Context, uint64, string) error) error {
	var ts tombstone
	if err := web.Decode(r, &ts); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	if err := validate.Check(ts); err != nil {
		return err
	}

	if err := op(ctx, ts.Number, ts.Hash); err != nil {
		return errs.NewTrusted(err, http.StatusConflict)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Recalculate rebuilds the balances from scratch by re-folding the chain.
func (h Handlers) Recalculate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.Recalculate(ctx); err != nil {
		return errs.NewTrusted(err, http.StatusConflict)
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
