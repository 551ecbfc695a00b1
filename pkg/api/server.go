package api

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/quillchain/quill/pkg/asset"
	"github.com/quillchain/quill/pkg/chain"
	"github.com/quillchain/quill/pkg/ledger"
	"github.com/quillchain/quill/pkg/storage"
	"github.com/quillchain/quill/pkg/util"
)

// Server exposes the node's read API, order submission and the trade feed.
type Server struct {
	registry *asset.Registry
	ledger   *ledger.Ledger
	store    *storage.Store
	proc     *chain.Processor
	clock    util.Clock

	router  *mux.Router
	hub     *Hub
	origins []string
	started int64
}

// NewServer wires the API against the node's state.
func NewServer(registry *asset.Registry, lgr *ledger.Ledger, store *storage.Store, proc *chain.Processor, clock util.Clock, allowedOrigins []string) *Server {
	s := &Server{
		registry: registry,
		ledger:   lgr,
		store:    store,
		proc:     proc,
		clock:    clock,
		router:   mux.NewRouter(),
		hub:      NewHub(),
		origins:  allowedOrigins,
		started:  clock.Now().Unix(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/assets", s.handleGetAssets).Methods("GET")
	api.HandleFunc("/assets/{id}", s.handleGetAsset).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orderbook", s.handleGetOrderBook).Methods("GET")
	api.HandleFunc("/accounts/{address}/balances", s.handleGetBalances).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the websocket hub and serves HTTP until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// BroadcastTrade publishes one settled trade on the "trades" channel.
// Wired as the engine's trade listener.
func (s *Server) BroadcastTrade(t *asset.Trade) {
	s.hub.BroadcastToChannel("trades", TradeInfo{
		Initiator:       t.Initiator,
		Target:          t.Target,
		TargetAmount:    t.TargetAmount,
		InitiatorAmount: t.InitiatorAmount,
		InitiatorSaving: t.InitiatorSaving,
		Timestamp:       t.Timestamp,
	})
}

func (s *Server) handleGetAssets(w http.ResponseWriter, r *http.Request) {
	assets := s.registry.List()
	response := make([]AssetInfo, len(assets))
	for i, a := range assets {
		response[i] = assetInfo(a)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid asset id", err.Error())
		return
	}

	a, err := s.registry.Asset(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "asset not found", err.Error())
		return
	}
	respondJSON(w, assetInfo(a))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := common.HexToHash(mux.Vars(r)["id"])
	o, err := s.store.Order(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "order not found", err.Error())
		return
	}
	respondJSON(w, s.orderInfo(o))
}

// handleGetOrderBook returns the open counter-orders a prospective order
// with the given have/want pair (and optional limit price) would match
// against, best price first.
func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	have, err1 := strconv.ParseUint(r.URL.Query().Get("have"), 10, 64)
	want, err2 := strconv.ParseUint(r.URL.Query().Get("want"), 10, 64)
	if err1 != nil || err2 != nil || have == want {
		respondError(w, http.StatusBadRequest, "invalid asset pair", "")
		return
	}

	// Default bound admits the whole book.
	limitPrice := asset.Amount(math.MaxInt64 - 1)
	if have > want {
		limitPrice = 1
	}
	if raw := r.URL.Query().Get("price"); raw != "" {
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || p <= 0 {
			respondError(w, http.StatusBadRequest, "invalid price", "")
			return
		}
		limitPrice = p
	}

	orders, err := s.store.OpenOrdersCrossing(want, have, limitPrice)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "orderbook query failed", err.Error())
		return
	}

	response := make([]OrderInfo, len(orders))
	for i, o := range orders {
		response[i] = s.orderInfo(o)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "invalid address", raw)
		return
	}
	addr := common.HexToAddress(raw)

	rows := s.ledger.Balances(addr)
	response := make([]BalanceInfo, len(rows))
	for i, row := range rows {
		info := BalanceInfo{
			AssetID: row.AssetID,
			Balance: row.Balance,
			Pretty:  asset.Pretty(row.Balance),
		}
		if a, err := s.registry.Asset(row.AssetID); err == nil {
			info.AssetName = a.Name
		}
		response[i] = info
	}
	respondJSON(w, response)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	trades, err := s.store.RecentTrades(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "trade query failed", err.Error())
		return
	}

	response := make([]TradeInfo, len(trades))
	for i, t := range trades {
		response[i] = TradeInfo{
			Initiator:       t.Initiator,
			Target:          t.Target,
			TargetAmount:    t.TargetAmount,
			InitiatorAmount: t.InitiatorAmount,
			InitiatorSaving: t.InitiatorSaving,
			Timestamp:       t.Timestamp,
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	uptime := s.clock.Now().Unix() - s.started
	respondJSON(w, StatusResponse{
		Height: s.proc.Height(),
		Assets: s.registry.Count(),
		Uptime: fmt.Sprintf("%ds", uptime),
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	tx := chain.Tx{
		Type: chain.TxPlaceOrder,
		PlaceOrder: &chain.PlaceOrderTx{
			OrderID:     newOrderID(&req, s.clock.Now().UnixNano()),
			Creator:     req.Creator,
			HaveAssetID: req.HaveAssetID,
			WantAssetID: req.WantAssetID,
			Amount:      req.Amount,
			Price:       req.Price,
		},
	}
	if err := s.proc.SubmitTx(tx); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "order rejected", err.Error())
		return
	}

	o, err := s.store.Order(tx.PlaceOrder.OrderID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "order lookup failed", err.Error())
		return
	}
	respondJSON(w, s.orderInfo(o))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	tx := chain.Tx{
		Type:        chain.TxCancelOrder,
		CancelOrder: &chain.CancelOrderTx{OrderID: req.OrderID, Creator: req.Creator},
	}
	if err := s.proc.SubmitTx(tx); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "cancel rejected", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		id:            r.RemoteAddr,
		subscriptions: make(map[string]bool),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) orderInfo(o *asset.Order) OrderInfo {
	info := OrderInfo{
		ID:          o.ID,
		Creator:     o.Creator,
		HaveAssetID: o.HaveAssetID,
		WantAssetID: o.WantAssetID,
		Amount:      o.Amount,
		Price:       o.Price,
		Fulfilled:   o.Fulfilled,
		AmountLeft:  o.AmountLeft(),
		Closed:      o.Closed,
		Timestamp:   o.Timestamp,
	}
	if pair, err := o.PricePair(s.registry); err == nil {
		info.PricePair = pair
	}
	return info
}

func assetInfo(a *asset.Asset) AssetInfo {
	return AssetInfo{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Owner:       a.Owner,
		Divisible:   a.Divisible,
		Unspendable: a.Unspendable,
	}
}

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Detail: detail})
}
