package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/newsapi-backend/api/controllers"
	"github.com/angelmondragon/newsapi-backend/api/controllers/subscribe"
	"github.com/angelmondragon/newsapi-backend/api/middleware"
	"github.com/angelmondragon/newsapi-backend/internal/pins"
	"github.com/angelmondragon/newsapi-backend/pkg/config"
	"github.com/angelmondragon/newsapi-backend/pkg/enums"
	"github.com/angelmondragon/newsapi-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/newsapi-backend/pkg/redis"
)

// Params carries everything the HTTP surface depends on. Redis and
// Idempotency are nil when redis is not configured.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Plans   subscribe.PlanCatalog
	Ledger  subscribe.Ledger
	History subscribe.HistoryLister
	Gate    subscribe.FeatureGate
	Pins    pins.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/subscribe", func(r chi.Router) {
		r.Get("/plans", subscribe.ListPlans(p.Plans, logg))
		r.Get("/plans/{id}", subscribe.GetPlan(p.Plans, logg))
		r.Get("/pinned-posts", subscribe.ListPinnedPosts(p.Pins, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(p.Idempotency, logg))

			r.Get("/status", subscribe.Status(p.Ledger, p.Gate, logg))
			r.Get("/my-subscription", subscribe.MySubscription(p.Ledger, logg))
			r.Get("/history", subscribe.History(p.History, logg))
			r.Post("/subscribe", subscribe.Subscribe(p.Ledger, logg))
			r.Post("/cancel", subscribe.Cancel(p.Ledger, logg))

			r.Post("/pin-post", subscribe.PinPost(p.Pins, logg))
			r.Get("/pinned-post", subscribe.GetPinnedPost(p.Pins, logg))
			r.Delete("/pinned-post", subscribe.DeletePinnedPost(p.Pins, logg))
			r.Post("/unpin-post", subscribe.UnpinPost(p.Pins, logg))
			r.Get("/can-pin/{post_id}", subscribe.CanPin(p.Pins, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleAdmin, logg))
		r.Post("/subscriptions/{id}/activate", subscribe.AdminActivateSubscription(p.Ledger, logg))
		r.Post("/plans/{id}/deactivate", subscribe.AdminDeactivatePlan(p.Plans, logg))
	})

	return r
}
