package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fbms.app/internal/auth"
	"fbms.app/internal/inventory"
	"fbms.app/internal/obs"
	"fbms.app/internal/project"
	"fbms.app/internal/stream"
)

const serviceName = "fbms-api"

type readinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API to its services.
type Options struct {
	Version         string
	Ready           readinessChecker
	Auth            *auth.Service
	Evaluator       *auth.Evaluator
	Inventory       inventory.Service
	Projects        project.Service
	Stream          *stream.Stream
	RateBurst       int
	RatePerSecond   int
	MaxBodyBytes    int64
	AllowedOrigins  []string
	// TrustedProxies are the addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies  []string
	StreamHeartbeat time.Duration
}

// API is the HTTP layer.
type API struct {
	router     *mux.Router
	readyProbe readinessChecker
	version    string

	auth      *auth.Service
	evaluator *auth.Evaluator
	inventory inventory.Service
	projects  project.Service
	stream    *stream.Stream

	rateBurst  int
	ratePerSec int
	maxBody    int64
	origins    []string
	proxies    TrustedProxies
	heartbeat  time.Duration
}

func New(opts Options) *API {
	a := &API{
		router:     mux.NewRouter(),
		readyProbe: opts.Ready,
		version:    opts.Version,
		auth:       opts.Auth,
		evaluator:  opts.Evaluator,
		inventory:  opts.Inventory,
		projects:   opts.Projects,
		stream:     opts.Stream,
		rateBurst:  opts.RateBurst,
		ratePerSec: opts.RatePerSecond,
		maxBody:    opts.MaxBodyBytes,
		origins:    opts.AllowedOrigins,
		heartbeat:  opts.StreamHeartbeat,
	}
	proxies, err := ParseTrustedProxies(opts.TrustedProxies)
	if err != nil {
		obs.Logger().Warn().Err(err).Msg("ignoring trusted proxies")
	}
	a.proxies = proxies
	if a.readyProbe == nil {
		a.readyProbe = ReadyProbe{}
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 40
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 20
	}
	if a.maxBody <= 0 {
		a.maxBody = 1 << 20
	}
	if a.heartbeat <= 0 {
		a.heartbeat = defaultStreamHeartbeat
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// public
	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", a.Info).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/verify-token", a.handleVerifyToken).Methods(http.MethodGet)

	// behind the auth gateway
	p := r.NewRoute().Subrouter()
	p.Use(a.guard)

	p.HandleFunc("/register", a.handleRegister).Methods(http.MethodPost)
	p.HandleFunc("/employees", a.handleListEmployees).Methods(http.MethodGet)
	p.HandleFunc("/employees/remove/{id}", a.handleSetPermission).Methods(http.MethodPut)

	p.HandleFunc("/inventory", a.handleListInventory).Methods(http.MethodGet)
	p.HandleFunc("/inventory", a.handleAddInventory).Methods(http.MethodPost)
	p.HandleFunc("/inventory/events", a.Stream).Methods(http.MethodGet)
	p.HandleFunc("/inventory/assign/{code}", a.handleAssign).Methods(http.MethodPut)
	p.HandleFunc("/inventory/{code}", a.handleGetInventory).Methods(http.MethodGet)

	p.HandleFunc("/projects", a.handleListProjects).Methods(http.MethodGet)
	p.HandleFunc("/projects", a.handleCreateProject).Methods(http.MethodPost)
	p.HandleFunc("/projects/status/{id}", a.handleSetProjectStatus).Methods(http.MethodPut)
	p.HandleFunc("/projects/{id}", a.handleGetProject).Methods(http.MethodGet)
	p.HandleFunc("/projects/{id}", a.handleUpdateProject).Methods(http.MethodPut)
	p.HandleFunc("/projects/{id}", a.handleDeleteProject).Methods(http.MethodDelete)
	p.HandleFunc("/projectbreakdown/{id}", a.handleProjectBreakdown).Methods(http.MethodGet)
	p.HandleFunc("/costbreakdown/{id}", a.handleCostBreakdown).Methods(http.MethodGet)

	p.HandleFunc("/clients", a.handleListClients).Methods(http.MethodGet)
	p.HandleFunc("/clients", a.handleCreateClient).Methods(http.MethodPost)
	p.HandleFunc("/clients/suggestions", a.handleSuggestClients).Methods(http.MethodGet)
}

// Handler returns the router wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec, a.proxies)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
