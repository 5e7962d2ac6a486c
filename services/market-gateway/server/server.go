package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	nativecommon "otcmarket/native/common"
	"otcmarket/native/market"
	"otcmarket/observability/metrics"
	"otcmarket/services/market-gateway/auth"
	"otcmarket/services/market-gateway/models"
	"otcmarket/storage/journal"
)

// Config carries the collaborators the gateway fronts.
type Config struct {
	Engine    *market.Engine
	Admin     *market.Admin
	Allowlist *market.Allowlist
	DB        *gorm.DB
	Journal   *journal.Journal
	Log       *slog.Logger
	JWTSecret []byte
	Quota     nativecommon.Quota
}

// Server exposes the market engine over HTTP.
type Server struct {
	cfg     Config
	metrics *metrics.MarketMetrics

	quotaMu sync.Mutex
	quotas  map[[20]byte]nativecommon.QuotaNow
}

// New constructs a gateway server.
func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		metrics: metrics.Market(),
		quotas:  make(map[[20]byte]nativecommon.QuotaNow),
	}
}

// Handler assembles the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(s.cfg.JWTSecret))
		r.Use(s.rateLimit)

		r.Post("/sales", s.handleCreate)
		r.Post("/offers/{index}/conclude", s.handleConclude)
		r.Post("/sales/{index}/abort", s.handleAbort)

		r.Get("/sellers/{addr}/sales/count", s.handleSaleCount)
		r.Get("/sellers/{addr}/sales/{index}", s.handleGetSale)
		r.Get("/buyers/{addr}/offers/count", s.handleOfferCount)
		r.Get("/buyers/{addr}/offers/{index}", s.handleGetOffer)
		r.Get("/events", s.handleEvents)

		r.Post("/admin/allowlist", s.handleAllowlistSet)
		r.Post("/admin/allowlist/disabled", s.handleAllowlistDisable)
		r.Post("/admin/transfer", s.handleAdminTransfer)
		r.Post("/admin/rescue", s.handleRescue)
	})
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.Caller(r.Context())
		if !ok {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}
		if s.cfg.Quota.MaxRequestsPerEpoch > 0 {
			window := int64(s.cfg.Quota.EpochSeconds)
			if window == 0 {
				window = 60
			}
			epoch := uint64(time.Now().Unix() / window)
			s.quotaMu.Lock()
			next2, err := nativecommon.CheckQuota(s.cfg.Quota, epoch, s.quotas[caller], 1)
			if err == nil {
				s.quotas[caller] = next2
			}
			s.quotaMu.Unlock()
			if err != nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type createSaleRequest struct {
	AssetClasses    []uint8  `json:"assetClasses"`
	AssetRegistries []string `json:"assetRegistries"`
	AssetIDs        []string `json:"assetIds"`
	AssetQuantities []string `json:"assetQuantities"`
	PriceClasses    []uint8  `json:"priceClasses"`
	PriceRegistries []string `json:"priceRegistries"`
	PriceIDs        []string `json:"priceIds"`
	PriceQuantities []string `json:"priceQuantities"`
	Buyer           string   `json:"buyer"`
}

type assetResult struct {
	Class    string `json:"class"`
	Registry string `json:"registry"`
	TokenID  string `json:"tokenId"`
	Quantity string `json:"quantity"`
}

type saleResult struct {
	SaleID string        `json:"saleId"`
	Seller string        `json:"seller"`
	Buyer  string        `json:"buyer"`
	Assets []assetResult `json:"assets"`
	Prices []assetResult `json:"prices"`
}

type offerResult struct {
	Seller string `json:"seller"`
	SaleID string `json:"saleId"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	assets, err := buildBundle(req.AssetClasses, req.AssetRegistries, req.AssetIDs, req.AssetQuantities)
	if err != nil {
		s.record(caller, "create", "", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prices, err := buildBundle(req.PriceClasses, req.PriceRegistries, req.PriceIDs, req.PriceQuantities)
	if err != nil {
		s.record(caller, "create", "", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	buyer, err := auth.ParsePrincipal(req.Buyer)
	if err != nil {
		s.record(caller, "create", "", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saleID, err := s.cfg.Engine.Create(caller, assets, prices, buyer)
	if err != nil {
		s.metrics.ObserveOperationError("create")
		s.record(caller, "create", "", err)
		s.cfg.Log.Warn("create rejected", "caller", auth.FormatPrincipal(caller), "error", err.Error())
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.record(caller, "create", saleID.String(), nil)
	s.cfg.Log.Info("sale created", "caller", auth.FormatPrincipal(caller), "saleId", saleID.String())
	writeJSON(w, http.StatusCreated, map[string]string{"saleId": saleID.String()})
}

func (s *Server) handleConclude(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cfg.Engine.Conclude(caller, index); err != nil {
		s.metrics.ObserveOperationError("conclude")
		s.record(caller, "conclude", "", err)
		s.cfg.Log.Warn("conclude rejected", "caller", auth.FormatPrincipal(caller), "index", index, "error", err.Error())
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.record(caller, "conclude", strconv.Itoa(index), nil)
	s.cfg.Log.Info("sale concluded", "caller", auth.FormatPrincipal(caller), "index", index)
	writeJSON(w, http.StatusOK, map[string]string{"status": "concluded"})
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cfg.Engine.Abort(caller, index); err != nil {
		s.metrics.ObserveOperationError("abort")
		s.record(caller, "abort", "", err)
		s.cfg.Log.Warn("abort rejected", "caller", auth.FormatPrincipal(caller), "index", index, "error", err.Error())
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.record(caller, "abort", strconv.Itoa(index), nil)
	s.cfg.Log.Info("sale aborted", "caller", auth.FormatPrincipal(caller), "index", index)
	writeJSON(w, http.StatusOK, map[string]string{"status": "aborted"})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	seller, err := auth.ParsePrincipal(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sale, err := s.cfg.Engine.GetSale(seller, index)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, renderSale(sale))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	buyer, err := auth.ParsePrincipal(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offer, err := s.cfg.Engine.GetOffer(buyer, index)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, offerResult{Seller: auth.FormatPrincipal(offer.Seller), SaleID: offer.SaleID.String()})
}

func (s *Server) handleSaleCount(w http.ResponseWriter, r *http.Request) {
	seller, err := auth.ParsePrincipal(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": s.cfg.Engine.SellerSaleCount(seller)})
}

func (s *Server) handleOfferCount(w http.ResponseWriter, r *http.Request) {
	buyer, err := auth.ParsePrincipal(chi.URLParam(r, "addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": s.cfg.Engine.BuyerOfferCount(buyer)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Journal == nil {
		writeError(w, http.StatusNotFound, "event journal not configured")
		return
	}
	after := uint64(0)
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after cursor")
			return
		}
		after = parsed
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	stored, err := s.cfg.Journal.List(after, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": stored})
}

type allowlistRequest struct {
	Registry string `json:"registry"`
	Allowed  bool   `json:"allowed"`
}

func (s *Server) handleAllowlistSet(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	if s.cfg.Allowlist == nil {
		writeError(w, http.StatusNotFound, "allowlist not configured")
		return
	}
	var req allowlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	registry, err := auth.ParsePrincipal(req.Registry)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cfg.Allowlist.SetAllowed(caller, registry, req.Allowed); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAllowlistDisable(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	if s.cfg.Allowlist == nil {
		writeError(w, http.StatusNotFound, "allowlist not configured")
		return
	}
	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.cfg.Allowlist.SetDisabled(caller, req.Disabled); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdminTransfer(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	if s.cfg.Admin == nil {
		writeError(w, http.StatusNotFound, "admin surface not configured")
		return
	}
	var req struct {
		Next string `json:"next"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var next [20]byte
	if req.Next != "" {
		parsed, err := auth.ParsePrincipal(req.Next)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next = parsed
	}
	if err := s.cfg.Admin.Transfer(caller, next); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rescueRequest struct {
	Class    uint8  `json:"class"`
	Registry string `json:"registry"`
	TokenID  string `json:"tokenId"`
	Quantity string `json:"quantity"`
	To       string `json:"to"`
}

func (s *Server) handleRescue(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.Caller(r.Context())
	var req rescueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	asset, err := buildAsset(req.Class, req.Registry, req.TokenID, req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := auth.ParsePrincipal(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cfg.Engine.Rescue(caller, asset, to); err != nil {
		s.record(caller, "rescue", "", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.record(caller, "rescue", "", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func buildBundle(classes []uint8, registries, ids, quantities []string) (market.Bundle, error) {
	if len(classes) != len(registries) || len(classes) != len(ids) || len(classes) != len(quantities) {
		return nil, market.ErrMalformedBundle
	}
	bundle := make(market.Bundle, 0, len(classes))
	for i := range classes {
		asset, err := buildAsset(classes[i], registries[i], ids[i], quantities[i])
		if err != nil {
			return nil, err
		}
		bundle = append(bundle, asset)
	}
	return bundle, nil
}

func buildAsset(class uint8, registry, tokenID, quantity string) (market.Asset, error) {
	reg, err := auth.ParsePrincipal(registry)
	if err != nil {
		return market.Asset{}, err
	}
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 {
		return market.Asset{}, errors.New("invalid token id")
	}
	qty, ok := new(big.Int).SetString(quantity, 10)
	if !ok || qty.Sign() < 0 {
		return market.Asset{}, errors.New("invalid quantity")
	}
	return market.Asset{Class: market.AssetClass(class), Registry: reg, TokenID: id, Quantity: qty}, nil
}

func renderSale(sale *market.Sale) saleResult {
	result := saleResult{
		SaleID: sale.ID.String(),
		Seller: auth.FormatPrincipal(sale.Seller),
		Buyer:  auth.FormatPrincipal(sale.Buyer),
	}
	for _, asset := range sale.Assets {
		result.Assets = append(result.Assets, renderAsset(asset))
	}
	for _, asset := range sale.Prices {
		result.Prices = append(result.Prices, renderAsset(asset))
	}
	return result
}

func renderAsset(asset market.Asset) assetResult {
	return assetResult{
		Class:    asset.Class.String(),
		Registry: auth.FormatPrincipal(asset.Registry),
		TokenID:  asset.TokenID.String(),
		Quantity: asset.Quantity.String(),
	}
}

func parseIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, errors.New("invalid index")
	}
	return index, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrMalformedBundle),
		errors.Is(err, market.ErrInvalidAssetShape),
		errors.Is(err, market.ErrZeroBuyer),
		errors.Is(err, market.ErrZeroRegistry):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrNoSalesForSeller),
		errors.Is(err, market.ErrNoOffersForBuyer),
		errors.Is(err, market.ErrIndexOutOfBounds),
		errors.Is(err, market.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrRegistryNotAllowed),
		errors.Is(err, market.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable
	default:
		// Registry transfer rejections surface from the external registries.
		return http.StatusBadGateway
	}
}

func (s *Server) record(caller [20]byte, kind, saleID string, opErr error) {
	if s.cfg.DB == nil {
		return
	}
	record := models.OperationRecord{
		ID:      uuid.New(),
		Caller:  auth.FormatPrincipal(caller),
		Kind:    kind,
		SaleID:  saleID,
		Outcome: "ok",
	}
	if opErr != nil {
		record.Outcome = "error"
		record.Detail = opErr.Error()
	}
	if err := s.cfg.DB.Create(&record).Error; err != nil {
		s.cfg.Log.Error("audit record failed", "error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
