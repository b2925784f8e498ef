package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Temutjin2k/delivery-dispatch/docs"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	setupSwaggerRoutes(a.mux)
	setupMetricsRoute(a.mux)

	setupAdminRoutes(a.mux, a.routes)
	setupOrderRoutes(a.mux, a.routes)
	setupDriverRoutes(a.mux, a.routes)
}

func setupAdminRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("POST /admin/dispatch/run", routes.dispatch.RunDispatch)                 // Run the pipeline now
	mux.HandleFunc("GET /admin/offers", routes.dispatch.ListOffers)                         // Active offers
	mux.HandleFunc("GET /admin/drivers/{driver_id}/offers", routes.dispatch.ListDriverOffers) // Active offers of one driver
}

func setupOrderRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("POST /orders/{order_id}/ready", routes.dispatch.MarkOrderReady) // Order ready for pickup
}

func setupDriverRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("GET /ws/drivers/{driver_id}", routes.driverWS.HandleWS) // WebSocket connection for drivers
}

// setupSwaggerRoutes serves the swagger UI of the dispatch docs
func setupSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(httpSwagger.InstanceName(docs.SwaggerInfo.InstanceName())))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
