// Package httpapi implements the daemon's HTTP surface: namespace, cargo,
// vm, resource, and secret CRUD plus lifecycle verbs, state apply/revert,
// and the streamed events endpoint.
package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nanocl-project/nanocld/internal/eventbus"
	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/metrics"
	"github.com/nanocl-project/nanocld/internal/objstatus"
	"github.com/nanocl-project/nanocld/internal/process"
	"github.com/nanocl-project/nanocld/internal/secretcrypto"
	"github.com/nanocl-project/nanocld/internal/specs"
	"github.com/nanocl-project/nanocld/internal/store"
)

// API bundles every dependency the HTTP handlers need.
type API struct {
	store   *store.Store
	specs   *specs.Registry
	status  *objstatus.Engine
	recon   *process.Reconciler
	bus     *eventbus.Bus
	log     *logging.Logger
	node    process.NodeIdentity
	secrets *secretcrypto.Box
	access  zerolog.Logger

	jwtSecret []byte
	limiter   *rateLimiter
}

// New builds an API bundle. node identifies the daemon's own node for
// replication targeting; the access log always goes to stdout, separate
// from the daemon's general-purpose logger.
func New(s *store.Store, sp *specs.Registry, status *objstatus.Engine, recon *process.Reconciler, bus *eventbus.Bus, log *logging.Logger, node process.NodeIdentity, secrets *secretcrypto.Box) *API {
	return &API{
		store: s, specs: sp, status: status, recon: recon, bus: bus, log: log, node: node, secrets: secrets,
		access: zerolog.New(os.Stdout).With().Timestamp().Str("component", "httpapi").Logger(),
	}
}

// Router builds the full chi router. Unix-socket and TCP listeners both
// serve this.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.accessLog)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", a.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Use(a.rateLimit)

		r.Route("/namespaces", func(r chi.Router) {
			r.Get("/", a.listNamespaces)
			r.Post("/", a.createNamespace)
			r.Get("/{name}", a.getNamespace)
			r.Delete("/{name}", a.deleteNamespace)
		})

		r.Route("/cargoes", func(r chi.Router) {
			r.Get("/", a.listCargoes)
			r.Post("/", a.createCargo)
			r.Get("/{key}", a.getCargo)
			r.Patch("/{key}", a.patchCargo)
			r.Delete("/{key}", a.deleteCargo)
			r.Post("/{key}/start", a.startCargo)
			r.Post("/{key}/stop", a.stopCargo)
			r.Post("/{key}/restart", a.restartCargo)
			r.Post("/{key}/kill", a.killCargo)
			r.Get("/{key}/histories", a.listCargoHistories)
			r.Post("/{key}/histories/{id}/reset", a.resetCargoHistory)
			r.Get("/{key}/inspect", a.cargoInspect)
			r.Get("/{key}/logs", a.cargoLogs)
			r.Post("/{key}/exec", a.cargoExec)
		})

		r.Route("/vms", func(r chi.Router) {
			r.Get("/", a.listVms)
			r.Post("/", a.createVm)
			r.Get("/{key}", a.getVm)
			r.Put("/{key}", a.putVm)
			r.Delete("/{key}", a.deleteVm)
			r.Post("/{key}/start", a.startVm)
			r.Post("/{key}/stop", a.stopVm)
		})

		r.Route("/secrets", func(r chi.Router) {
			r.Get("/", a.listSecrets)
			r.Post("/", a.createSecret)
			r.Get("/{key}", a.getSecret)
			r.Put("/{key}", a.updateSecret)
			r.Delete("/{key}", a.deleteSecret)
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", a.listResources)
			r.Post("/", a.createResource)
			r.Get("/{key}", a.getResource)
			r.Put("/{key}", a.putResource)
			r.Delete("/{key}", a.deleteResource)
		})

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", a.listNodes)
			r.Get("/{name}", a.getNode)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", a.listJobs)
			r.Post("/", a.createJob)
			r.Get("/{key}", a.getJob)
			r.Delete("/{key}", a.deleteJob)
		})

		r.Route("/state", func(r chi.Router) {
			r.Put("/apply", a.applyState)
			r.Put("/revert", a.revertState)
		})

		r.Route("/processes", func(r chi.Router) {
			r.Get("/", a.listProcesses)
			r.Get("/{name}/inspect", a.inspectProcesses)
			r.Post("/{kind}/{name}/start", a.processStart)
			r.Post("/{kind}/{name}/stop", a.processStop)
			r.Post("/{kind}/{name}/restart", a.processRestart)
			r.Post("/{kind}/{name}/kill", a.processKill)
		})

		r.Get("/events", a.streamEvents)
		r.Get("/version", a.version)
	})

	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// accessLog logs one structured line per request on the dedicated zerolog
// sink, separate from the daemon's general-purpose logrus logger.
func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.access.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}
