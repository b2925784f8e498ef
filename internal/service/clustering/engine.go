package clustering

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/geo"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

// minPoints is fixed at 1 so every order lands in some cluster.
const minPoints = 1

type Config struct {
	ClusterRadiusKm   float64
	MaxOrdersPerBatch int
	MinOrdersPerBatch int
	OrderMaxAge       time.Duration
}

// Engine groups eligible orders into batch proposals by geographic density.
type Engine struct {
	orders OrderSource
	cfg    Config
	log    logger.Logger

	now    func() time.Time
	newID  func() string
	minPts int
}

func New(orders OrderSource, cfg Config, log logger.Logger) *Engine {
	return &Engine{
		orders: orders,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		newID:  func() string { return "batch_" + uuid.NewString() },
		minPts: minPoints,
	}
}

// CreateBatches loads eligible orders, drops the ones in exclude and clusters the rest.
// Only a failing order query is an error.
func (e *Engine) CreateBatches(ctx context.Context, exclude map[int64]struct{}) ([]models.BatchProposal, error) {
	const op = "Engine.CreateBatches"
	ctx = wrap.WithAction(ctx, types.ActionClustering)

	orders, err := e.orders.EligibleOrders(ctx, e.now().Add(-e.cfg.OrderMaxAge))
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	if len(exclude) > 0 {
		kept := orders[:0:0]
		for _, o := range orders {
			if _, held := exclude[o.ID]; !held {
				kept = append(kept, o)
			}
		}
		if skipped := len(orders) - len(kept); skipped > 0 {
			e.log.Debug(ctx, "orders held by live offers skipped", "count", skipped)
		}
		orders = kept
	}

	e.log.Info(ctx, "eligible orders loaded", "count", len(orders))

	batches := e.Cluster(ctx, orders)
	for _, b := range batches {
		e.log.Debug(ctx, "batch proposed",
			"temp_id", b.TempID,
			"orders", len(b.OrderIDs),
			"estimated_distance_km", b.EstimatedDistanceKm,
		)
	}

	return batches, nil
}

// Cluster groups orders into proposals of at most MaxOrdersPerBatch orders. Oversized clusters are
// split into fixed-size chunks in input order. Chunks and noise points smaller than
// MinOrdersPerBatch are dropped and left for the next run.
func (e *Engine) Cluster(ctx context.Context, orders []models.EligibleOrder) []models.BatchProposal {
	if len(orders) == 0 {
		e.log.Debug(ctx, "no eligible orders to cluster")
		return nil
	}

	if len(orders) == 1 {
		return []models.BatchProposal{e.proposal(orders)}
	}

	eps := geo.KmToDegrees(e.cfg.ClusterRadiusKm)
	clusters, noise := DBSCAN(orders, eps, e.minPts, func(a, b models.EligibleOrder) float64 {
		return geo.EuclideanDegrees(a.Coordinates, b.Coordinates)
	})

	e.log.Debug(ctx, "dbscan finished", "clusters", len(clusters), "noise", len(noise), "orders", len(orders))

	var (
		batches []models.BatchProposal
		dropped int
	)

	for _, idx := range clusters {
		// chunk in input order, which is oldest-first from the source
		slices.Sort(idx)
		members := make([]models.EligibleOrder, 0, len(idx))
		for _, i := range idx {
			members = append(members, orders[i])
		}

		for _, chunk := range split(members, e.cfg.MaxOrdersPerBatch) {
			if len(chunk) < e.cfg.MinOrdersPerBatch {
				dropped += len(chunk)
				continue
			}
			batches = append(batches, e.proposal(chunk))
		}
	}

	if e.cfg.MinOrdersPerBatch <= 1 {
		for _, i := range noise {
			batches = append(batches, e.proposal([]models.EligibleOrder{orders[i]}))
		}
	} else {
		dropped += len(noise)
	}

	if dropped > 0 {
		e.log.Warn(ctx, "orders could not be batched this run",
			"count", dropped,
			"min_orders_per_batch", e.cfg.MinOrdersPerBatch,
		)
	}

	e.log.Info(ctx, "clustering completed", "batches", len(batches))

	return batches
}

// split cuts orders into consecutive chunks of at most size elements.
func split(orders []models.EligibleOrder, size int) [][]models.EligibleOrder {
	if size < 1 || len(orders) <= size {
		return [][]models.EligibleOrder{orders}
	}

	chunks := make([][]models.EligibleOrder, 0, (len(orders)+size-1)/size)
	for start := 0; start < len(orders); start += size {
		end := min(start+size, len(orders))
		chunks = append(chunks, orders[start:end])
	}
	return chunks
}

func (e *Engine) proposal(orders []models.EligibleOrder) models.BatchProposal {
	points := make([]models.Coordinates, len(orders))
	ids := make([]int64, len(orders))
	oldest := orders[0].ReadyAt
	for i, o := range orders {
		points[i] = o.Coordinates
		ids[i] = o.ID
		if o.ReadyAt.Before(oldest) {
			oldest = o.ReadyAt
		}
	}

	centroid := geo.Centroid(points)

	// centroid to first stop, then consecutive stops in input order
	estimated := geo.HaversineKm(centroid, points[0])
	for i := 1; i < len(points); i++ {
		estimated += geo.HaversineKm(points[i-1], points[i])
	}

	return models.BatchProposal{
		TempID:              e.newID(),
		OrderIDs:            ids,
		Orders:              append([]models.EligibleOrder(nil), orders...),
		Centroid:            centroid,
		OldestOrderTime:     oldest,
		EstimatedDistanceKm: estimated,
	}
}
