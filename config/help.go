package config

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
)

const HelpMessage = `
Delivery dispatch service

Usage:
  dispatch [--config-path <path>] [--mode dispatch-service]
  dispatch --help

Options:
  --config-path   Path to a yaml config file (default: config.yaml)
  --mode          Service mode (default: dispatch-service)
  --help          Show this message

Every setting can be overridden with an environment variable,
e.g. ASSIGNMENT_MAX_ORDERS_PER_BATCH=4 or REDIS_ADDR=redis:6379.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

func mask(s string) string {
	if s == "" {
		return "<empty>"
	}
	return "****"
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	a := cfg.Assignment
	fmt.Fprintf(w, "mode\t%s\n", cfg.Mode)
	fmt.Fprintf(w, "assignment.max_driver_radius_km\t%.2f\n", a.MaxDriverRadiusKm)
	fmt.Fprintf(w, "assignment.cluster_radius_km\t%.2f\n", a.ClusterRadiusKm)
	fmt.Fprintf(w, "assignment.orders_per_batch\t%d..%d\n", a.MinOrdersPerBatch, a.MaxOrdersPerBatch)
	fmt.Fprintf(w, "assignment.weights\teta=%.2f idle=%.2f\n", a.WeightEta, a.WeightIdleTime)
	fmt.Fprintf(w, "assignment.avg_speed_kmh\t%.1f\n", a.AvgSpeedKmh)
	fmt.Fprintf(w, "assignment.offer_expiration\t%s\n", a.OfferExpiration())
	fmt.Fprintf(w, "assignment.processing_delay\t%s\n", a.ProcessingDelay())
	fmt.Fprintf(w, "assignment.eta_provider\t%s\n", a.ETAProvider)
	fmt.Fprintf(w, "assignment.sweep_schedule\t%q\n", a.SweepSchedule)
	fmt.Fprintf(w, "assignment.persist_timeout\t%s\n", a.PersistTimeout)
	fmt.Fprintf(w, "restaurant\t%s (%.4f, %.4f)\n", cfg.Restaurant.Name, cfg.Restaurant.Latitude, cfg.Restaurant.Longitude)
	fmt.Fprintf(w, "database\t%s@%s:%s/%s password=%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, mask(cfg.Database.Password))
	fmt.Fprintf(w, "redis\t%s db=%d ttl=%s\n", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.LocationTTL)
	fmt.Fprintf(w, "rabbitmq\t%s:%s user=%s\n", cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.User)
	fmt.Fprintf(w, "maps.api_key\t%s\n", mask(cfg.Maps.APIKey))
	fmt.Fprintf(w, "geocoder.locationiq_api_key\t%s\n", mask(cfg.Geocoder.LocationIQAPIKey))
	fmt.Fprintf(w, "server.port\t%d\n", cfg.Server.Port)
	fmt.Fprintf(w, "log.level\t%s\n", cfg.Log.Level)
}
