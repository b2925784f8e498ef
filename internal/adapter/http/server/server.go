package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/config"
	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/delivery-dispatch/internal/adapter/http/ws"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/delivery-dispatch/pkg/wsHub"
)

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health   *handler.Health
	dispatch *handler.Dispatch
	driverWS *wshandler.DriverWS
}

// Services groups what the HTTP surface talks to.
type Services struct {
	Dispatcher   handler.Dispatcher
	Offers       Offers
	Orders       handler.OrderService
	Drivers      wshandler.DriverService
	DriverAction wshandler.Dispatcher
	Hub          *ws.ConnectionHub
	HealthChecks []handler.HealthCheck
}

type Offers interface {
	handler.OfferReader
	wshandler.OfferReader
}

func New(cfg config.Config, svc Services, logger logger.Logger) (*API, error) {
	if cfg.Mode != types.DispatchService {
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}
	if svc.Dispatcher == nil || svc.Offers == nil || svc.Orders == nil || svc.Drivers == nil || svc.DriverAction == nil || svc.Hub == nil {
		return nil, errors.New("http server: missing service dependency")
	}

	routes := &handlers{
		health:   handler.NewHealth(string(cfg.Mode), logger, svc.HealthChecks...),
		dispatch: handler.NewDispatch(svc.Dispatcher, svc.Offers, svc.Orders, logger),
		driverWS: wshandler.NewDriverWS(svc.Hub, svc.Drivers, svc.DriverAction, svc.Offers, logger),
	}

	api := &API{
		mode:   cfg.Mode,
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(logger),
		addr:   net.JoinHostPort("0.0.0.0", strconv.Itoa(cfg.Server.Port)),
		log:    logger,
	}

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	api.setupRoutes()

	return api, nil
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// Handler exposes the full middleware chain, for tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Metrics(string(a.mode))(a.mux))))
}
