package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/config"
	repo "github.com/Temutjin2k/delivery-dispatch/internal/adapter/postgres"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/postgres"
	"github.com/Temutjin2k/delivery-dispatch/pkg/trm"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	drivers    = flag.Int("drivers", 8, "number of available drivers to create")
	seed       = flag.Uint64("seed", 42, "random seed")
)

const kmPerDegree = 111.32

func main() {
	flag.Parse()

	ctx := wrap.WithAction(context.Background(), "seed")
	log := logger.InitLogger("dispatch-seed", logger.LevelInfo)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure seeder", err)
		os.Exit(1)
	}

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Pool.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s := seeder{
		rnd:        rand.New(rand.NewPCG(*seed, *seed)),
		restaurant: cfg.Restaurant.Restaurant().Coordinates,
		radiusKm:   cfg.Assignment.MaxDriverRadiusKm,
		drivers:    repo.NewDriverRepo(db.Pool),
		orders:     repo.NewOrderRepo(db.Pool),
	}

	err = trm.New(db.Pool, log).Do(ctx, func(ctx context.Context) error {
		if err := s.seedDrivers(ctx, *drivers); err != nil {
			return err
		}
		return s.seedOrders(ctx)
	})
	if err != nil {
		log.Error(ctx, "seeding failed", err)
		os.Exit(1)
	}

	log.Info(ctx, "seed data created", "drivers", *drivers, "orders", s.ordersCreated)
}

type seeder struct {
	rnd        *rand.Rand
	restaurant models.Coordinates
	radiusKm   float64

	drivers *repo.DriverRepo
	orders  *repo.OrderRepo

	ordersCreated int
}

// seedDrivers places most drivers inside the assignment radius and every fourth one outside it.
func (s *seeder) seedDrivers(ctx context.Context, n int) error {
	for i := range n {
		dist := s.rnd.Float64() * s.radiusKm * 0.9
		if i%4 == 3 {
			dist = s.radiusKm * (1.2 + s.rnd.Float64())
		}
		pos := s.around(s.restaurant, dist)

		_, err := s.drivers.Create(ctx, &models.Driver{
			Name:     fmt.Sprintf("Driver %02d", i+1),
			Phone:    fmt.Sprintf("+591 7%07d", s.rnd.IntN(10_000_000)),
			Plate:    fmt.Sprintf("%04d-%c%c%c", s.rnd.IntN(10_000), 'A'+rune(s.rnd.IntN(26)), 'A'+rune(s.rnd.IntN(26)), 'A'+rune(s.rnd.IntN(26))),
			Status:   types.DriverAvailable,
			Position: &pos,
		})
		if err != nil {
			return fmt.Errorf("create driver %d: %w", i+1, err)
		}
	}
	return nil
}

// seedOrders creates two dense groups of ready orders plus a few isolated ones.
func (s *seeder) seedOrders(ctx context.Context) error {
	groups := []struct {
		name   string
		center models.Coordinates
		count  int
		spread float64
	}{
		{name: "Equipetrol", center: s.around(s.restaurant, 2.5), count: 4, spread: 0.6},
		{name: "Plan 3000", center: s.around(s.restaurant, 5), count: 3, spread: 0.5},
	}

	for _, g := range groups {
		for range g.count {
			if err := s.createOrder(ctx, s.around(g.center, s.rnd.Float64()*g.spread), g.name); err != nil {
				return err
			}
		}
	}

	for range 2 {
		if err := s.createOrder(ctx, s.around(s.restaurant, 6+s.rnd.Float64()*4), "Zona Norte"); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) createOrder(ctx context.Context, pos models.Coordinates, zone string) error {
	_, err := s.orders.Create(ctx, models.EligibleOrder{
		CustomerID:  int64(s.rnd.IntN(1000) + 1),
		Coordinates: pos,
		Address:     fmt.Sprintf("Calle %d, %s", s.rnd.IntN(200)+1, zone),
		Total:       math.Round((20+s.rnd.Float64()*130)*100) / 100,
	}, types.OrderReadyForPickup)
	if err != nil {
		return fmt.Errorf("create order in %s: %w", zone, err)
	}
	s.ordersCreated++
	return nil
}

// around returns a point distKm away from c in a random direction.
func (s *seeder) around(c models.Coordinates, distKm float64) models.Coordinates {
	bearing := s.rnd.Float64() * 2 * math.Pi
	dLat := distKm * math.Cos(bearing) / kmPerDegree
	dLng := distKm * math.Sin(bearing) / (kmPerDegree * math.Cos(c.Lat*math.Pi/180))
	return models.Coordinates{Lat: c.Lat + dLat, Lng: c.Lng + dLng}
}
