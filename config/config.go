package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/configparser"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	"github.com/Temutjin2k/delivery-dispatch/pkg/validator"
)

// Flags
var (
	modeFlag = flag.String("mode", string(types.DispatchService), "application mode")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode types.ServiceMode

		Assignment AssignmentConfig
		Restaurant RestaurantConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		RabbitMQ   RabbitMQConfig
		Maps       MapsConfig
		Geocoder   GeocoderConfig
		Server     ServerConfig
		Log        LogConfig
	}

	AssignmentConfig struct {
		MaxDriverRadiusKm      float64       `env:"ASSIGNMENT_MAX_DRIVER_RADIUS_KM" default:"3" validate:"gt=0"`
		ClusterRadiusKm        float64       `env:"ASSIGNMENT_CLUSTER_RADIUS_KM" default:"1.5" validate:"gt=0"`
		MaxOrdersPerBatch      int           `env:"ASSIGNMENT_MAX_ORDERS_PER_BATCH" default:"3" validate:"min=1,max=8"`
		MinOrdersPerBatch      int           `env:"ASSIGNMENT_MIN_ORDERS_PER_BATCH" default:"1" validate:"min=1"`
		WeightEta              float64       `env:"ASSIGNMENT_WEIGHT_ETA" default:"1.0" validate:"gte=0"`
		WeightIdleTime         float64       `env:"ASSIGNMENT_WEIGHT_IDLE_TIME" default:"0.5" validate:"gte=0"`
		AvgSpeedKmh            float64       `env:"ASSIGNMENT_AVG_SPEED_KMH" default:"25" validate:"gt=0"`
		OfferExpirationSeconds int           `env:"ASSIGNMENT_OFFER_EXPIRATION_SECONDS" default:"60" validate:"min=1"`
		ProcessingDelaySeconds int           `env:"ASSIGNMENT_PROCESSING_DELAY_SECONDS" default:"120" validate:"min=0"`
		OrderMaxAge            time.Duration `env:"ASSIGNMENT_ORDER_MAX_AGE" default:"24h" validate:"gt=0"`
		ETAProvider            string        `env:"ASSIGNMENT_ETA_PROVIDER" default:"haversine" validate:"oneof=haversine matrix"`
		RoutingConcurrency     int           `env:"ASSIGNMENT_ROUTING_CONCURRENCY" default:"4" validate:"min=1"`
		BaseFee                float64       `env:"ASSIGNMENT_BASE_FEE" default:"10" validate:"gte=0"`
		PerOrderFee            float64       `env:"ASSIGNMENT_PER_ORDER_FEE" default:"5" validate:"gte=0"`
		SweepSchedule          string        `env:"ASSIGNMENT_SWEEP_SCHEDULE" default:"@every 1m"`
		PersistTimeout         time.Duration `env:"ASSIGNMENT_PERSIST_TIMEOUT" default:"10s" validate:"gt=0"`
	}

	RestaurantConfig struct {
		Name      string  `env:"RESTAURANT_NAME" default:"Restaurante Plaza 24"`
		Address   string  `env:"RESTAURANT_ADDRESS" default:"Plaza 24 de Septiembre, Santa Cruz"`
		Latitude  float64 `env:"RESTAURANT_LATITUDE" default:"-17.7833" validate:"latitude"`
		Longitude float64 `env:"RESTAURANT_LONGITUDE" default:"-63.1821" validate:"longitude"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"dispatch_user"`
		Password string `env:"DATABASE_PASSWORD" default:"dispatch_pass"`
		Database string `env:"DATABASE_DATABASE" default:"dispatch_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RedisConfig struct {
		Addr        string        `env:"REDIS_ADDR" default:"localhost:6379"`
		Password    string        `env:"REDIS_PASSWORD"`
		DB          int           `env:"REDIS_DB" default:"0"`
		LocationTTL time.Duration `env:"REDIS_LOCATION_TTL" default:"10m" validate:"gt=0"`
		DialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" default:"3s"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
	}

	MapsConfig struct {
		APIKey              string        `env:"MAPS_API_KEY"`
		BaseURL             string        `env:"MAPS_BASE_URL"`
		Timeout             time.Duration `env:"MAPS_TIMEOUT" default:"5s"`
		RequestsPerSecond   float64       `env:"MAPS_REQUESTS_PER_SECOND" default:"10" validate:"gt=0"`
		Burst               int           `env:"MAPS_BURST" default:"5" validate:"min=1"`
		BreakerFailures     uint32        `env:"MAPS_BREAKER_FAILURES" default:"5" validate:"min=1"`
		BreakerTimeout      time.Duration `env:"MAPS_BREAKER_TIMEOUT" default:"30s"`
		FallbackToHaversine bool          `env:"MAPS_FALLBACK_TO_HAVERSINE" default:"true"`
	}

	GeocoderConfig struct {
		LocationIQAPIKey string        `env:"GEOCODER_LOCATIONIQ_API_KEY"`
		BaseURL          string        `env:"GEOCODER_BASE_URL" default:"https://us1.locationiq.com"`
		Timeout          time.Duration `env:"GEOCODER_TIMEOUT" default:"3s"`
	}

	ServerConfig struct {
		Port int `env:"SERVER_PORT" default:"3010" validate:"min=1,max=65535"`
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"INFO"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) GetMaxConns() int32                { return c.MaxConns }
func (c DatabaseConfig) GetMinConns() int32                { return c.MinConns }
func (c DatabaseConfig) GetMaxConnLifetime() time.Duration { return c.MaxConnLifetime }
func (c DatabaseConfig) GetMaxConnIdleTime() time.Duration { return c.MaxConnIdleTime }

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func (c RestaurantConfig) Restaurant() models.Restaurant {
	return models.Restaurant{
		Name:        c.Name,
		Address:     c.Address,
		Coordinates: models.Coordinates{Lat: c.Latitude, Lng: c.Longitude},
	}
}

func (c AssignmentConfig) OfferExpiration() time.Duration {
	return time.Duration(c.OfferExpirationSeconds) * time.Second
}

func (c AssignmentConfig) ProcessingDelay() time.Duration {
	return time.Duration(c.ProcessingDelaySeconds) * time.Second
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	// Parsing flags
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct tags and the cross-field rules.
func (c *Config) Validate() error {
	v := validator.New()
	v.Struct(c)

	v.Check(c.Assignment.MinOrdersPerBatch <= c.Assignment.MaxOrdersPerBatch,
		"min_orders_per_batch", "must not exceed max_orders_per_batch")
	v.Check(logger.ValidateLogLevel(c.Log.Level), "log_level", "must be one of DEBUG, INFO, WARN, ERROR")
	v.Check(c.Mode == types.DispatchService, "mode", fmt.Sprintf("must be %s", types.DispatchService))

	if !v.Valid() {
		return fmt.Errorf("%w: %v", types.ErrInvalidConfig, v.Errors)
	}
	return nil
}

func parseFlags(cfg *Config) error {
	if modeFlag == nil || *modeFlag == "" {
		return ErrModeNotProvided
	}

	cfg.Mode = types.ServiceMode(*modeFlag)

	return nil
}
