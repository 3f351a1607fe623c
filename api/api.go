// Package api exposes FundMe campaigns over HTTP. Routes are read-only unless
// WithWrites is set.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/types"
)

// Handler serves the campaign API.
type Handler struct {
	engine  *fundme.Engine
	logger  *slog.Logger
	metrics http.Handler
	limiter *rate.Limiter
	writes  bool
	router  chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithMetricsHandler mounts h at GET /metrics, typically promhttp.Handler().
func WithMetricsHandler(metrics http.Handler) Option {
	return func(h *Handler) { h.metrics = metrics }
}

// WithRateLimit caps the request rate across all clients. Requests over the
// limit get 429.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(h *Handler) { h.limiter = rate.NewLimiter(limit, burst) }
}

// WithWrites enables POST /campaigns/{id}/contributions and
// POST /campaigns/{id}/sweep. The caller address is taken from the request
// body; authenticate it upstream.
func WithWrites() Option {
	return func(h *Handler) { h.writes = true }
}

// New builds the router for engine.
func New(engine *fundme.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if h.limiter != nil {
		r.Use(h.rateLimit)
	}

	r.Get("/health", h.health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	r.Get("/quote", h.quote)

	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", h.listCampaigns)
		r.Route("/{campaignID}", func(r chi.Router) {
			r.Get("/", h.getCampaign)
			r.Get("/balances/{address}", h.balanceOf)
			r.Get("/events", h.events)
			r.Get("/contributions", h.contributions)
			r.Get("/sweeps", h.sweeps)
			if h.writes {
				r.Post("/contributions", h.contribute)
				r.Post("/sweep", h.sweep)
			}
		})
	})

	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ──────────────────────────────────────────────────
// Responses
// ──────────────────────────────────────────────────

// CampaignResponse describes a campaign and its live totals.
type CampaignResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Owner            string            `json:"owner"`
	Network          string            `json:"network,omitempty"`
	DeployedAt       time.Time         `json:"deployed_at"`
	WindowSeconds    int64             `json:"window_seconds"`
	Deadline         time.Time         `json:"deadline"`
	State            campaign.State    `json:"state"`
	MinimumUSD       string            `json:"minimum_usd,omitempty"`
	TotalContributed string            `json:"total_contributed_wei"`
	TotalSwept       string            `json:"total_swept_wei"`
	Held             string            `json:"held_wei"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// BalanceResponse is a contributor balance.
type BalanceResponse struct {
	CampaignID string `json:"campaign_id"`
	Address    string `json:"address"`
	Wei        string `json:"wei"`
	Ether      string `json:"ether"`
}

// QuoteResponse is the USD value of an amount at the current feed price.
type QuoteResponse struct {
	AmountWei string    `json:"amount_wei"`
	USD       string    `json:"usd"`
	Price     string    `json:"price"`
	Round     string    `json:"round,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContributeRequest is the body of POST /campaigns/{id}/contributions.
type ContributeRequest struct {
	Caller    string `json:"caller"`
	AmountWei string `json:"amount_wei"`
}

// SweepRequest is the body of POST /campaigns/{id}/sweep.
type SweepRequest struct {
	Caller string `json:"caller"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ──────────────────────────────────────────────────
// Handlers
// ──────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Store().Ping(r.Context()); err != nil {
		h.writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	amount, err := types.ParseWei(r.URL.Query().Get("amount_wei"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if amount.IsNegative() {
		h.writeError(w, r, http.StatusBadRequest, errors.New("amount_wei must not be negative"))
		return
	}

	usd, q, err := h.engine.QuoteUSD(r.Context(), amount)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}

	resp := QuoteResponse{
		AmountWei: amount.String(),
		USD:       usd.StringFixed(2),
		Price:     q.Price().String(),
		UpdatedAt: q.UpdatedAt,
	}
	if q.RoundID != nil {
		resp.Round = q.RoundID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	opts := campaign.ListOpts{}
	q := r.URL.Query()
	if s := q.Get("owner"); s != "" {
		owner, err := types.ParseAddress(s)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		opts.Owner = owner
	}
	var err error
	if opts.Limit, opts.Offset, err = paging(r); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	campaigns, err := h.engine.ListCampaigns(r.Context(), opts)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}

	out := make([]CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		l, err := h.engine.Open(r.Context(), c.ID)
		if err != nil {
			h.writeError(w, r, statusFor(err), err)
			return
		}
		out = append(out, campaignResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, campaignResponse(l))
}

func (h *Handler) balanceOf(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	addr, err := types.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	bal := l.BalanceOf(addr)
	writeJSON(w, http.StatusOK, BalanceResponse{
		CampaignID: l.ID().String(),
		Address:    addr.Hex(),
		Wei:        bal.String(),
		Ether:      bal.FormatEther(),
	})
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	var since uint64
	if s := r.URL.Query().Get("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, errors.New("since must be a non-negative integer"))
			return
		}
		since = v
	}

	writeJSON(w, http.StatusOK, l.EventsSince(since))
}

func (h *Handler) contributions(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignID(w, r)
	if !ok {
		return
	}

	opts := contribution.ListOpts{}
	if s := r.URL.Query().Get("contributor"); s != "" {
		addr, err := types.ParseAddress(s)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		opts.Contributor = addr
	}
	var err error
	if opts.Limit, opts.Offset, err = paging(r); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if _, err := h.engine.GetCampaign(r.Context(), campaignID); err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	cs, err := h.engine.Contributions(r.Context(), campaignID, opts)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) sweeps(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	if _, err := h.engine.GetCampaign(r.Context(), campaignID); err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	ss, err := h.engine.Sweeps(r.Context(), campaignID)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ss)
}

func (h *Handler) contribute(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	var req ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	caller, err := types.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := types.ParseWei(req.AmountWei)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	c, err := l.Contribute(r.Context(), caller, amount)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	caller, err := types.ParseAddress(req.Caller)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	s, err := l.Sweep(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (h *Handler) campaignID(w http.ResponseWriter, r *http.Request) (id.CampaignID, bool) {
	cid, err := id.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return id.Nil, false
	}
	return cid, true
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) (*fundme.Ledger, bool) {
	cid, ok := h.campaignID(w, r)
	if !ok {
		return nil, false
	}
	l, err := h.engine.Open(r.Context(), cid)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return nil, false
	}
	return l, true
}

func campaignResponse(l *fundme.Ledger) CampaignResponse {
	c := l.Campaign()
	resp := CampaignResponse{
		ID:               c.ID.String(),
		Name:             c.Name,
		Owner:            c.Owner.Hex(),
		Network:          c.Network,
		DeployedAt:       c.DeployedAt,
		WindowSeconds:    c.WindowSeconds(),
		Deadline:         c.Deadline(),
		State:            l.State(),
		TotalContributed: l.TotalContributed().String(),
		TotalSwept:       l.TotalSwept().String(),
		Held:             l.HeldBalance().String(),
		Metadata:         c.Metadata,
	}
	if c.HasMinimum() {
		resp.MinimumUSD = c.MinimumUSD.StringFixed(2)
	}
	return resp
}

func paging(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			return 0, 0, errors.New("limit must be a non-negative integer")
		}
	}
	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}

func statusFor(err error) int {
	var verr fundme.ValidationError
	switch {
	case fundme.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, fundme.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, fundme.ErrWindowClosed), errors.Is(err, fundme.ErrWindowOpen):
		return http.StatusConflict
	case errors.Is(err, fundme.ErrBelowMinimum), errors.Is(err, fundme.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case fundme.IsRetryable(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &verr), errors.Is(err, fundme.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("api request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
