package microservices

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/delivery-dispatch/config"
	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/distance"
	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/geocoder"
	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/http/handler"
	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/http/server"
	repo "github.com/Temutjin2k/delivery-dispatch/internal/adapter/postgres"
	broker "github.com/Temutjin2k/delivery-dispatch/internal/adapter/rabbit"
	cache "github.com/Temutjin2k/delivery-dispatch/internal/adapter/redis"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/clustering"
	drivergo "github.com/Temutjin2k/delivery-dispatch/internal/service/driver"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/location"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/offer"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/orchestrator"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/persistence"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/routing"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/selection"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/postgres"
	"github.com/Temutjin2k/delivery-dispatch/pkg/rabbit"
	redisclient "github.com/Temutjin2k/delivery-dispatch/pkg/redis"
	"github.com/Temutjin2k/delivery-dispatch/pkg/trm"
	ws "github.com/Temutjin2k/delivery-dispatch/pkg/wsHub"
)

var errBreakerOpen = errors.New("circuit breaker open")

type DispatchService struct {
	postgresDB *postgres.PostgreDB
	redis      *goredis.Client
	rabbit     *rabbit.RabbitMQ

	hub        *ws.ConnectionHub
	offers     *offer.Lifecycle
	dispatcher *orchestrator.Orchestrator
	presence   *drivergo.Service
	consumer   *broker.OrderConsumer
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewDispatch(ctx context.Context, cfg config.Config, log logger.Logger) (*DispatchService, error) {
	s := &DispatchService{cfg: cfg, log: log}

	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}
	s.postgresDB = postgresDB

	redisCfg := redisclient.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	}
	s.redis, err = redisclient.New(ctx, redisCfg)
	if err != nil {
		// positions fall back to the database until redis answers
		log.Warn(wrap.WithAction(ctx, types.ActionCacheDegraded), "redis unavailable, starting degraded", "error", err.Error())
		s.redis = redisclient.NewClient(redisCfg)
	}

	s.rabbit, err = rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "Failed to setup rabbitMQ", err)
		s.close(ctx)
		return nil, err
	}

	producer := broker.NewProducer(s.rabbit, log)
	if err := producer.Setup(ctx); err != nil {
		log.Error(ctx, "Failed to declare dispatch exchange", err)
		s.close(ctx)
		return nil, err
	}

	restaurant := cfg.Restaurant.Restaurant()
	a := cfg.Assignment

	// repositories
	orderRepo := repo.NewOrderRepo(postgresDB.Pool)
	driverRepo := repo.NewDriverRepo(postgresDB.Pool)
	batchRepo := repo.NewBatchRepo(postgresDB.Pool)
	txManager := trm.New(postgresDB.Pool, log)

	locations := location.New(cache.NewLocationStore(s.redis), driverRepo, cfg.Redis.LocationTTL, log)

	matrix, breaker := newMatrixProvider(cfg, log)

	var eta selection.ETAProvider = selection.NewHaversineETA(a.AvgSpeedKmh)
	if types.ETAProviderKind(a.ETAProvider) == types.ETAMatrix {
		eta = selection.NewMatrixETA(matrix)
	}

	clusterer := clustering.New(orderRepo, clustering.Config{
		ClusterRadiusKm:   a.ClusterRadiusKm,
		MaxOrdersPerBatch: a.MaxOrdersPerBatch,
		MinOrdersPerBatch: a.MinOrdersPerBatch,
		OrderMaxAge:       a.OrderMaxAge,
	}, log)

	selector := selection.New(locations, eta, restaurant, selection.Config{
		MaxDriverRadiusKm: a.MaxDriverRadiusKm,
		WeightEta:         a.WeightEta,
		WeightIdleTime:    a.WeightIdleTime,
		BaseFee:           a.BaseFee,
		PerOrderFee:       a.PerOrderFee,
	}, log)

	router := routing.New(matrix, restaurant, log)

	s.hub = ws.NewConnHub(log)

	var reverse offer.ReverseGeocoder
	if cfg.Geocoder.LocationIQAPIKey != "" {
		reverse = geocoder.NewLocationIQ(cfg.Geocoder.LocationIQAPIKey, cfg.Geocoder.BaseURL, cfg.Geocoder.Timeout)
	}
	s.offers = offer.New(a.OfferExpiration(), restaurant, s.hub, offer.NewZoner(reverse, log), log)

	persister := persistence.New(txManager, batchRepo, driverRepo, log)

	s.dispatcher = orchestrator.New(orchestrator.Config{
		ProcessingDelay:    a.ProcessingDelay(),
		RoutingConcurrency: a.RoutingConcurrency,
		SweepSchedule:      a.SweepSchedule,
		PersistTimeout:     a.PersistTimeout,
	}, clusterer, selector, router, s.offers, persister, producer, log)
	s.offers.OnExpire(s.dispatcher.OfferExpired)

	s.presence = drivergo.New(driverRepo, locations, s.offers, producer, log)
	s.consumer = broker.NewOrderConsumer(s.rabbit, log)

	checks := []handler.HealthCheck{
		{Name: "postgres", Critical: true, Probe: postgresDB.Pool.Ping},
		{Name: "redis", Probe: func(ctx context.Context) error { return s.redis.Ping(ctx).Err() }},
		{Name: "rabbitmq", Probe: func(context.Context) error {
			if s.rabbit.IsConnectionClosed() {
				return rabbit.ErrNotConnected
			}
			return nil
		}},
	}
	if breaker != nil {
		checks = append(checks, handler.HealthCheck{Name: "distance_matrix", Probe: func(context.Context) error {
			if breaker.State() == "open" {
				return errBreakerOpen
			}
			return nil
		}})
	}

	s.httpServer, err = server.New(cfg, server.Services{
		Dispatcher:   s.dispatcher,
		Offers:       s.offers,
		Orders:       orderRepo,
		Drivers:      s.presence,
		DriverAction: s.dispatcher,
		Hub:          s.hub,
		HealthChecks: checks,
	}, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(ctx)
		return nil, err
	}

	return s, nil
}

// newMatrixProvider builds Google behind rate limit and breaker, with haversine as fallback.
// The second result is nil when Google is not configured.
func newMatrixProvider(cfg config.Config, log logger.Logger) (distance.Provider, *distance.Resilient) {
	ctx := wrap.WithAction(context.Background(), "setup_distance_provider")
	haversine := distance.NewHaversine(cfg.Assignment.AvgSpeedKmh)

	if cfg.Maps.APIKey == "" {
		log.Info(ctx, "maps api key not set, using haversine distances")
		return haversine, nil
	}

	google, err := distance.NewGoogle(cfg.Maps.APIKey, cfg.Maps.BaseURL, cfg.Maps.Timeout)
	if err != nil {
		log.Error(ctx, "failed to create google maps client, using haversine distances", err)
		return haversine, nil
	}

	resilient := distance.NewResilient(google, distance.ResilienceConfig{
		RequestsPerSecond: cfg.Maps.RequestsPerSecond,
		Burst:             cfg.Maps.Burst,
		BreakerFailures:   cfg.Maps.BreakerFailures,
		BreakerTimeout:    cfg.Maps.BreakerTimeout,
	}, log)

	if cfg.Maps.FallbackToHaversine {
		return distance.NewFallback(resilient, haversine, log), resilient
	}
	return resilient, resilient
}

func (s *DispatchService) onOrderReady(ctx context.Context, msg models.OrderReadyMessage) error {
	return s.dispatcher.OrderReady(ctx, msg.OrderID)
}

func (s *DispatchService) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.dispatcher.Run(runCtx); err != nil {
			errCh <- err
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.consumer.ConsumeOrderReady(runCtx, s.onOrderReady); err != nil {
			errCh <- err
		}
	}()

	s.httpServer.Run(runCtx, errCh)

	defer func() {
		s.stopIntake(ctx)
		cancel()
		wg.Wait()
		s.close(ctx)
		s.log.Info(ctx, "dispatch service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "Dispatch service has been started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	}
}

// stopIntake closes the HTTP surface and every driver socket, then marks those drivers offline.
func (s *DispatchService) stopIntake(ctx context.Context) {
	if err := s.httpServer.Stop(ctx); err != nil {
		s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
	}

	connected := s.hub.Clients()
	s.hub.Close()
	for driverID := range connected {
		if err := s.presence.Disconnect(ctx, driverID); err != nil {
			s.log.Warn(ctx, "Failed to mark driver offline", "driver_id", driverID, "error", err.Error())
		}
	}
}

func (s *DispatchService) close(ctx context.Context) {
	if s.offers != nil {
		s.offers.Close()
	}

	if s.rabbit != nil {
		if err := s.rabbit.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitMQ", "error", err.Error())
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis", "error", err.Error())
		}
	}

	if s.postgresDB != nil && s.postgresDB.Pool != nil {
		s.postgresDB.Pool.Close()
	}
}
