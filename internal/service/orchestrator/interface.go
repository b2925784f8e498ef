package orchestrator

import (
	"context"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
)

/*====Pipeline phases====*/

type Clusterer interface {
	CreateBatches(ctx context.Context, exclude map[int64]struct{}) ([]models.BatchProposal, error)
}

type Selector interface {
	LoadDrivers(ctx context.Context, exclude map[int64]struct{}) ([]models.AvailableDriver, error)
	Assign(ctx context.Context, batches []models.BatchProposal, drivers []models.AvailableDriver) ([]models.TentativeAssignment, []models.BatchProposal, error)
}

type Router interface {
	Optimize(ctx context.Context, batch models.BatchProposal) ([]models.OptimizedStop, error)
}

/*====Offers====*/

type Offers interface {
	Create(ctx context.Context, a models.TentativeAssignment) (*models.TripOffer, error)
	Send(ctx context.Context, offer *models.TripOffer) error
	Accept(offerID string) (*models.TripOffer, error)
	Reject(offerID string) (*models.TripOffer, error)
	Remove(offerID string) bool
	HeldOrderIDs() map[int64]struct{}
	HeldDriverIDs() map[int64]struct{}
}

type Persister interface {
	Persist(ctx context.Context, offer *models.TripOffer) (models.PersistedBatch, error)
	HandleRejection(ctx context.Context, offerID string)
	HandleExpiration(ctx context.Context, offerID string)
}

/*====Publisher====*/

type Publisher interface {
	PublishBatchAssigned(ctx context.Context, msg models.BatchAssignedMessage) error
	PublishOfferOutcome(ctx context.Context, msg models.OfferOutcomeMessage) error
}
