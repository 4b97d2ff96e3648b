package rpc_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/purgeledger/core"
	"github.com/tolelom/purgeledger/indexer"
	"github.com/tolelom/purgeledger/internal/testutil"
	"github.com/tolelom/purgeledger/rpc"
	_ "github.com/tolelom/purgeledger/vm/modules/economy"
	_ "github.com/tolelom/purgeledger/vm/modules/game"
)

func newTestHandler(t *testing.T) (*rpc.Handler, *testutil.Harness, *core.Mempool) {
	t.Helper()
	h := testutil.NewHarness(t)
	bc := core.NewBlockchain(testutil.NewMemBlockStore())
	mp := core.NewMempool(testutil.ChainID)
	idx := indexer.New(testutil.NewMemDB(), h.Emitter)
	return rpc.NewHandler(bc, mp, h.State, idx, testutil.ChainID), h, mp
}

func dispatch(handler *rpc.Handler, method string, params any) rpc.Response {
	raw, _ := json.Marshal(params)
	return handler.Dispatch(rpc.Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  raw,
	})
}

// TestRPCGetBlockHeight verifies a fresh chain reports height 0.
func TestRPCGetBlockHeight(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	resp := dispatch(handler, "getBlockHeight", struct{}{})
	require.Nil(t, resp.Error)
	require.Equal(t, int64(0), resp.Result)

	resp = dispatch(handler, "getBlocks", map[string]int{"from": 0, "limit": 10})
	require.Nil(t, resp.Error)
	require.Empty(t, resp.Result)

	resp = dispatch(handler, "getBlocks", map[string]int{"from": -1})
	require.NotNil(t, resp.Error)
	require.Equal(t, rpc.CodePrecondition, resp.Error.Code)
}

// TestRPCLedgerQueries verifies singleton and keyed ledger reads, including
// the not-found code before initialization.
func TestRPCLedgerQueries(t *testing.T) {
	handler, h, _ := newTestHandler(t)

	resp := dispatch(handler, "getGameState", struct{}{})
	require.NotNil(t, resp.Error)
	require.Equal(t, rpc.CodeNotFound, resp.Error.Code)

	authority := h.NewWallet()
	h.MustExec(authority, core.TxInitGame, core.InitGamePayload{Config: core.GameConfig{MaxLevel: 2}})
	h.MustExec(authority, core.TxInitRewards, core.InitRewardsPayload{})
	h.MustExec(authority, core.TxAddTraitTicket, core.TraitTicketPayload{Level: 1, TraitID: 3, Player: "alice"})

	resp = dispatch(handler, "getGameState", struct{}{})
	require.Nil(t, resp.Error)
	gs, ok := resp.Result.(*core.GameState)
	require.True(t, ok)
	assert.Equal(t, uint32(1), gs.Level)

	resp = dispatch(handler, "getPlayer", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	resp = dispatch(handler, "getPlayer", map[string]string{"owner": "bob"})
	require.Nil(t, resp.Error)
	assert.Equal(t, "bob", resp.Result.(*core.PlayerState).Owner)

	resp = dispatch(handler, "getTicketPage", core.TicketKey{Level: 1, TraitID: 3})
	require.Nil(t, resp.Error)
	page := resp.Result.(map[string]any)
	assert.Equal(t, []string{"alice"}, page["players"])

	resp = dispatch(handler, "getTicketsByPlayer", map[string]string{"player": "alice"})
	require.Nil(t, resp.Error)
	assert.Equal(t, []string{"1:3:0"}, resp.Result)

	resp = dispatch(handler, "getEvents", map[string]int{"limit": 2})
	require.Nil(t, resp.Error)
	assert.Len(t, resp.Result.([]indexer.LoggedEvent), 2)
}

// TestRPCSendTx verifies chain filtering and mempool admission.
func TestRPCSendTx(t *testing.T) {
	handler, h, mp := newTestHandler(t)
	w := h.NewWallet()

	foreign, err := w.Transfer("elsewhere", "aa", 1, 0, 0)
	require.NoError(t, err)
	resp := dispatch(handler, "sendTx", foreign)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	tx, err := w.Transfer(testutil.ChainID, "aa", 1, 0, 0)
	require.NoError(t, err)
	resp = dispatch(handler, "sendTx", tx)
	require.Nil(t, resp.Error)
	assert.Equal(t, tx.ID, resp.Result.(map[string]string)["tx_id"])
	assert.Equal(t, 1, mp.Size())

	resp = dispatch(handler, "sendTx", tx)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeInvalidParams, resp.Error.Code)

	unknown, err := w.NewTx(testutil.ChainID, "asset_mint", 1, 0, struct{}{})
	require.NoError(t, err)
	resp = dispatch(handler, "sendTx", unknown)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "unknown tx type")
	assert.Equal(t, 1, mp.Size())
}

// TestRPCMethodNotFound verifies unknown methods return -32601.
func TestRPCMethodNotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	resp := dispatch(handler, "getAsset", struct{}{})
	require.NotNil(t, resp.Error)
	require.Equal(t, rpc.CodeMethodNotFound, resp.Error.Code)
}

// TestServerAuthAndMetrics verifies bearer auth on RPC and the open metrics
// endpoint.
func TestServerAuthAndMetrics(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	srv := rpc.NewServer("127.0.0.1:0", handler, "secret")

	body := `{"jsonrpc":"2.0","id":1,"method":"getBlockHeight"}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	var resp rpc.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, rpc.CodeUnauthorized, resp.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	resp = rpc.Response{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.Equal(t, float64(0), resp.Result)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

// TestServerRateLimitAndRequestID verifies per-client limiting, the
// request id header and the health check.
func TestServerRateLimitAndRequestID(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	srv := rpc.NewServer("127.0.0.1:0", handler, "", rpc.WithRateLimit(1, 2))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"getMempoolSize"}`))
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}
	require.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	rec := call("10.0.0.1:1001")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
