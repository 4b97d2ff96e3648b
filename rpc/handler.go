package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/indexer"
	"github.com/tolelom/purgeledger/vm"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	bc      *core.Blockchain
	mempool *core.Mempool
	state   core.State
	indexer *indexer.Indexer
	chainID string // expected chain_id; used to reject cross-chain replay transactions
}

// NewHandler creates an RPC Handler.
func NewHandler(bc *core.Blockchain, mempool *core.Mempool, state core.State, idx *indexer.Indexer, chainID string) *Handler {
	return &Handler{bc: bc, mempool: mempool, state: state, indexer: idx, chainID: chainID}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getBlockHeight":
		return okResponse(req.ID, h.bc.Height())
	case "getBlock":
		return h.getBlock(req)
	case "getBlocks":
		return h.getBlocks(req)
	case "getBalance":
		return h.getBalance(req)
	case "sendTx":
		return h.sendTx(req)
	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())

	// EconomyLedger
	case "getEconomyState":
		return result(req, h.state.GetEconomyState)
	case "getBet":
		return h.getBet(req)
	case "getAffiliate":
		return byString(req, "code_seed", h.state.GetAffiliate)
	case "getStake":
		return byString(req, "player", h.state.GetStake)
	case "getBetsByPlayer":
		return byString(req, "player", h.indexer.GetBetsByPlayer)

	// GameLedger
	case "getGameState":
		return result(req, h.state.GetGameState)
	case "getRngRequest":
		return result(req, h.state.GetRngRequest)
	case "getMapMintQueue":
		return result(req, h.state.GetMapMintQueue)
	case "getPlayer":
		return byString(req, "owner", h.state.GetPlayer)

	// RewardsLedger
	case "getRewardsState":
		return result(req, h.state.GetRewardsState)
	case "getTrophyVault":
		return result(req, h.state.GetTrophyVault)
	case "getMapRewardQueue":
		return result(req, h.state.GetMapRewardQueue)
	case "getTicketPage":
		return h.getTicketPage(req)
	case "getTicketsByPlayer":
		return byString(req, "player", h.indexer.GetTicketsByPlayer)

	case "getEvents":
		return h.getEvents(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// result answers a parameterless query.
func result[T any](req Request, get func() (T, error)) Response {
	v, err := get()
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	return okResponse(req.ID, v)
}

// byString answers a query keyed by one required string parameter.
func byString[T any](req Request, name string, get func(string) (T, error)) Response {
	var params map[string]string
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	key := params[name]
	if key == "" {
		return errResponse(req.ID, CodeInvalidParams, name+" is required")
	}
	v, err := get(key)
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	return okResponse(req.ID, v)
}

func (h *Handler) getBlock(req Request) Response {
	var params struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}

	var block *core.Block
	var err error
	if params.Hash != "" {
		block, err = h.bc.GetBlock(params.Hash)
	} else if params.Height != nil {
		block, err = h.bc.GetBlockByHeight(*params.Height)
	} else {
		block = h.bc.Tip()
	}
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	if block == nil {
		return errResponse(req.ID, CodeNotFound, "no block found")
	}
	return okResponse(req.ID, block)
}

func (h *Handler) getBlocks(req Request) Response {
	var params struct {
		From  int64 `json:"from"`
		Limit int   `json:"limit"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	blocks, err := h.bc.Range(params.From, params.Limit)
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	return okResponse(req.ID, blocks)
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	acc, err := h.state.GetAccount(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "balance": acc.Balance, "nonce": acc.Nonce})
}

func (h *Handler) getBet(req Request) Response {
	var params struct {
		Player string `json:"player"`
		BetID  uint64 `json:"bet_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Player == "" {
		return errResponse(req.ID, CodeInvalidParams, "player is required")
	}
	bet, err := h.state.GetBet(params.Player, params.BetID)
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	return okResponse(req.ID, bet)
}

func (h *Handler) getTicketPage(req Request) Response {
	var key core.TicketKey
	if err := json.Unmarshal(req.Params, &key); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	page, err := h.state.GetTicketPage(key)
	if err != nil {
		return errResponse(req.ID, codeFor(err), err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"level":      page.Level,
		"trait_id":   page.TraitID,
		"page_index": page.PageIndex,
		"count":      page.Count,
		"players":    page.Players(),
	})
}

func (h *Handler) getEvents(req Request) Response {
	var params struct {
		From  uint64 `json:"from"`
		Limit int    `json:"limit"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, CodeInvalidParams, err.Error())
		}
	}
	evs, err := h.indexer.Events(params.From, params.Limit)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, evs)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	// Reject transactions destined for a different network to prevent
	// cross-chain replay attacks.
	if tx.ChainID != h.chainID {
		return errResponse(req.ID, CodeInvalidParams,
			fmt.Sprintf("chain ID mismatch: got %q want %q", tx.ChainID, h.chainID))
	}
	if !vm.Known(tx.Type) {
		return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("unknown tx type %q", tx.Type))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := h.mempool.Add(&tx); err != nil {
		code := CodeInvalidParams
		if errors.Is(err, core.ErrMempoolFull) {
			code = CodeCapacity
		}
		return errResponse(req.ID, code, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}
