package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/quillchain/quill/pkg/api"
	"github.com/quillchain/quill/pkg/asset"
	"github.com/quillchain/quill/pkg/chain"
	"github.com/quillchain/quill/pkg/ledger"
	"github.com/quillchain/quill/pkg/storage"
	"github.com/quillchain/quill/pkg/util"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestServer(t *testing.T) (*api.Server, *chain.Processor) {
	t.Helper()

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := zap.NewNop().Sugar()
	registry := asset.NewRegistry(store, nil)
	lgr, err := ledger.New(store, log)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	engine := asset.NewEngine(lgr, registry, store, store, log)

	clock := util.FixedClock{T: time.UnixMilli(1700000000000)}
	proc, err := chain.NewProcessor(engine, registry, lgr, store, clock, log)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}

	// Two divisible assets and funded accounts to trade them.
	if err := proc.ApplyBlock(&chain.Block{
		Height:    1,
		Timestamp: 1700000000000,
		Txs: []chain.Tx{
			{Type: chain.TxIssueAsset, IssueAsset: &chain.IssueAssetTx{
				AssetID: 0, Name: "QUILL", Owner: alice, Supply: 1000 * asset.Multiplier, Divisible: true}},
			{Type: chain.TxIssueAsset, IssueAsset: &chain.IssueAssetTx{
				AssetID: 1, Name: "TOKEN", Owner: bob, Supply: 1000 * asset.Multiplier, Divisible: true}},
		},
	}); err != nil {
		t.Fatalf("seeding assets: %v", err)
	}

	return api.NewServer(registry, lgr, store, proc, clock, nil), proc
}

func doJSON(t *testing.T, srv *api.Server, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshalling %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func TestGetAssets(t *testing.T) {
	srv, _ := newTestServer(t)

	var assets []api.AssetInfo
	rec := doJSON(t, srv, "GET", "/api/v1/assets", nil, &assets)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(assets) != 2 || assets[0].Name != "QUILL" || assets[1].Name != "TOKEN" {
		t.Errorf("assets = %+v, want QUILL and TOKEN", assets)
	}

	var one api.AssetInfo
	rec = doJSON(t, srv, "GET", "/api/v1/assets/1", nil, &one)
	if rec.Code != http.StatusOK || one.Name != "TOKEN" {
		t.Errorf("asset 1 = %+v (status %d), want TOKEN", one, rec.Code)
	}

	rec = doJSON(t, srv, "GET", "/api/v1/assets/99", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown asset status = %d, want 404", rec.Code)
	}
}

func TestSubmitAndReadOrder(t *testing.T) {
	srv, proc := newTestServer(t)

	var placed api.OrderInfo
	rec := doJSON(t, srv, "POST", "/api/v1/orders", api.PlaceOrderRequest{
		Creator: bob, HaveAssetID: 1, WantAssetID: 0,
		Amount: 10 * asset.Multiplier, Price: 2 * asset.Multiplier,
	}, &placed)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	if placed.Creator != bob || placed.AmountLeft != 10*asset.Multiplier || placed.Closed {
		t.Errorf("placed order = %+v, want open 10 TOKEN for bob", placed)
	}
	if placed.PricePair != "QUILL/TOKEN" {
		t.Errorf("price pair = %q, want QUILL/TOKEN", placed.PricePair)
	}
	if proc.Height() != 2 {
		t.Errorf("height = %d, want 2 after one order block", proc.Height())
	}

	var read api.OrderInfo
	rec = doJSON(t, srv, "GET", "/api/v1/orders/"+placed.ID.Hex(), nil, &read)
	if rec.Code != http.StatusOK || read.ID != placed.ID {
		t.Errorf("read back order %+v (status %d)", read, rec.Code)
	}

	// The sell rests in the book a buyer of TOKEN would scan.
	var book []api.OrderInfo
	rec = doJSON(t, srv, "GET", "/api/v1/orderbook?have=0&want=1", nil, &book)
	if rec.Code != http.StatusOK {
		t.Fatalf("orderbook status = %d", rec.Code)
	}
	if len(book) != 1 || book[0].ID != placed.ID {
		t.Errorf("orderbook = %+v, want the resting sell", book)
	}

	// Underfunded order is rejected whole.
	rec = doJSON(t, srv, "POST", "/api/v1/orders", api.PlaceOrderRequest{
		Creator: bob, HaveAssetID: 1, WantAssetID: 0,
		Amount: 100000 * asset.Multiplier, Price: 2 * asset.Multiplier,
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("underfunded submit status = %d, want 422", rec.Code)
	}
}

func TestCancelOrder(t *testing.T) {
	srv, _ := newTestServer(t)

	var placed api.OrderInfo
	rec := doJSON(t, srv, "POST", "/api/v1/orders", api.PlaceOrderRequest{
		Creator: bob, HaveAssetID: 1, WantAssetID: 0,
		Amount: 10 * asset.Multiplier, Price: 2 * asset.Multiplier,
	}, &placed)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/v1/orders/cancel", api.CancelOrderRequest{
		Creator: alice, OrderID: placed.ID,
	}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("foreign cancel status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/v1/orders/cancel", api.CancelOrderRequest{
		Creator: bob, OrderID: placed.ID,
	}, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("cancel status = %d, want 204", rec.Code)
	}

	var read api.OrderInfo
	doJSON(t, srv, "GET", "/api/v1/orders/"+placed.ID.Hex(), nil, &read)
	if !read.Closed {
		t.Error("cancelled order still open")
	}
}

func TestGetBalancesAndStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	var balances []api.BalanceInfo
	rec := doJSON(t, srv, "GET", "/api/v1/accounts/"+alice.Hex()+"/balances", nil, &balances)
	if rec.Code != http.StatusOK {
		t.Fatalf("balances status = %d", rec.Code)
	}
	if len(balances) != 1 || balances[0].AssetName != "QUILL" || balances[0].Pretty != "1000.00000000" {
		t.Errorf("balances = %+v, want 1000 QUILL", balances)
	}

	rec = doJSON(t, srv, "GET", "/api/v1/accounts/not-an-address/balances", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad address status = %d, want 400", rec.Code)
	}

	var status api.StatusResponse
	rec = doJSON(t, srv, "GET", "/api/v1/status", nil, &status)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	if status.Height != 1 || status.Assets != 2 {
		t.Errorf("status = %+v, want height 1 and 2 assets", status)
	}
}

func TestRecentTradesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, "POST", "/api/v1/orders", api.PlaceOrderRequest{
		Creator: bob, HaveAssetID: 1, WantAssetID: 0,
		Amount: 10 * asset.Multiplier, Price: 2 * asset.Multiplier,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit sell status = %d", rec.Code)
	}
	rec = doJSON(t, srv, "POST", "/api/v1/orders", api.PlaceOrderRequest{
		Creator: alice, HaveAssetID: 0, WantAssetID: 1,
		Amount: 10 * asset.Multiplier, Price: 2 * asset.Multiplier,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit buy status = %d: %s", rec.Code, rec.Body.String())
	}

	var trades []api.TradeInfo
	rec = doJSON(t, srv, "GET", "/api/v1/trades", nil, &trades)
	if rec.Code != http.StatusOK {
		t.Fatalf("trades status = %d", rec.Code)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if trades[0].TargetAmount != 10*asset.Multiplier || trades[0].InitiatorAmount != 20*asset.Multiplier {
		t.Errorf("trade = %+v, want 10 TOKEN for 20 QUILL", trades[0])
	}
}
