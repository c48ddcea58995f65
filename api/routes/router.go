package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adityamehra-dev/orderbook-backend/api/controllers"
	ordercontrollers "github.com/adityamehra-dev/orderbook-backend/api/controllers/orders"
	reportcontrollers "github.com/adityamehra-dev/orderbook-backend/api/controllers/reports"
	"github.com/adityamehra-dev/orderbook-backend/api/middleware"
	"github.com/adityamehra-dev/orderbook-backend/internal/account"
	"github.com/adityamehra-dev/orderbook-backend/internal/auth"
	"github.com/adityamehra-dev/orderbook-backend/internal/ewaybills"
	"github.com/adityamehra-dev/orderbook-backend/internal/fulfillment"
	"github.com/adityamehra-dev/orderbook-backend/internal/reports"
	"github.com/adityamehra-dev/orderbook-backend/pkg/auth/session"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
	"github.com/adityamehra-dev/orderbook-backend/pkg/metrics"
	"github.com/adityamehra-dev/orderbook-backend/pkg/redis"
	"github.com/adityamehra-dev/orderbook-backend/pkg/storage/gcs"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	blobClient gcs.Pinger,
	promRegistry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	sessionManager sessionManager,
	authService auth.Service,
	registerService auth.RegisterService,
	fulfillmentService fulfillment.Service,
	billsService ewaybills.Service,
	reportsService reports.Service,
	accountService account.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, blobClient))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
			r.Post("/change-password", controllers.AuthChangePassword(authService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(fulfillmentService, logg))
			r.Post("/", ordercontrollers.Create(fulfillmentService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(fulfillmentService, logg))
			r.Put("/{orderId}", ordercontrollers.Edit(fulfillmentService, logg))
			r.Patch("/{orderId}/status", ordercontrollers.UpdateStatus(fulfillmentService, logg))
			r.Delete("/{orderId}", ordercontrollers.Delete(fulfillmentService, logg))

			r.Get("/{orderId}/deliveries", ordercontrollers.ListDeliveries(fulfillmentService, logg))
			r.Post("/{orderId}/deliveries", ordercontrollers.AddDelivery(fulfillmentService, logg))
			r.Delete("/{orderId}/deliveries/{deliveryId}", ordercontrollers.DeleteDelivery(fulfillmentService, logg))

			r.Route("/{orderId}/ewaybills", func(r chi.Router) {
				r.Get("/", ordercontrollers.ListBills(billsService, logg))
				r.Post("/", ordercontrollers.UploadBill(billsService, cfg.Bills, logg))
				r.Put("/{billId}", ordercontrollers.ReplaceBill(billsService, cfg.Bills, logg))
				r.Delete("/{billId}", ordercontrollers.DeleteBill(billsService, logg))
			})
		})

		r.Get("/ewaybills/{billId}/download", ordercontrollers.DownloadBill(billsService, logg))

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", reportcontrollers.Summary(reportsService, logg))
			r.Get("/monthly-revenue", reportcontrollers.MonthlyRevenue(reportsService, logg))
			r.Get("/rfm", reportcontrollers.RFM(reportsService, logg))
			r.Get("/forecast", reportcontrollers.Forecast(reportsService, logg))
			r.Get("/order-sizes", reportcontrollers.OrderSizes(reportsService, logg))
			r.Get("/export/orders", reportcontrollers.ExportOrders(reportsService, logg))
			r.Get("/export/revenue", reportcontrollers.ExportRevenue(reportsService, logg))
		})

		r.Delete("/account", controllers.AccountDelete(accountService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Get("/users", controllers.AdminListUsers(accountService, logg))
		r.Delete("/users/{userId}", controllers.AdminDeleteUser(accountService, logg))
	})

	return r
}
