package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/internal/service/orchestrator"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
)

type (
	Dispatcher interface {
		Trigger(ctx context.Context) (orchestrator.RunSummary, error)
		OrderReady(ctx context.Context, orderID int64) error
	}

	OfferReader interface {
		ListActive() []*models.TripOffer
		ListByDriver(driverID int64) []*models.TripOffer
	}

	OrderService interface {
		MarkReady(ctx context.Context, orderID int64) error
	}
)

type Dispatch struct {
	dispatcher Dispatcher
	offers     OfferReader
	orders     OrderService
	l          logger.Logger
}

func NewDispatch(dispatcher Dispatcher, offers OfferReader, orders OrderService, l logger.Logger) *Dispatch {
	return &Dispatch{
		dispatcher: dispatcher,
		offers:     offers,
		orders:     orders,
		l:          l,
	}
}

// RunDispatch godoc
// @Summary      Run the assignment pipeline now
// @Description  Runs one synchronous dispatch pass and returns its summary. Fails with 409 while a run is scheduled or executing.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  dto.RunResponse
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /admin/dispatch/run [post]
func (h *Dispatch) RunDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "manual_dispatch_run")

	summary, err := h.dispatcher.Trigger(ctx)
	if err != nil {
		if GetCode(err) == http.StatusInternalServerError {
			h.l.Error(wrap.ErrorCtx(ctx, err), "manual dispatch run failed", err)
		} else {
			h.l.Warn(ctx, "manual dispatch run refused", "reason", err.Error())
		}
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"run": dto.NewRunResponse(summary)}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// ListOffers godoc
// @Summary      List active offers
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  dto.OffersResponse
// @Router       /admin/offers [get]
func (h *Dispatch) ListOffers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_active_offers")
	h.writeOffers(ctx, w, h.offers.ListActive())
}

// ListDriverOffers godoc
// @Summary      List active offers of a driver
// @Tags         Admin
// @Produce      json
// @Param        driver_id  path  int  true  "Driver ID"
// @Success      200  {object}  dto.OffersResponse
// @Failure      400  {object}  map[string]string
// @Router       /admin/drivers/{driver_id}/offers [get]
func (h *Dispatch) ListDriverOffers(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_driver_offers")

	driverID, err := pathID(r, "driver_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	h.writeOffers(wrap.WithDriverID(ctx, driverID), w, h.offers.ListByDriver(driverID))
}

func (h *Dispatch) writeOffers(ctx context.Context, w http.ResponseWriter, offers []*models.TripOffer) {
	response := envelope{
		"count":  len(offers),
		"offers": dto.NewAdminOffers(offers),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
	}
}

// MarkOrderReady godoc
// @Summary      Mark an order ready for pickup
// @Description  Sets the order status to READY_FOR_PICKUP and schedules a dispatch run, the same as the broker event.
// @Tags         Orders
// @Produce      json
// @Param        order_id  path  int  true  "Order ID"
// @Success      202  {object}  dto.OrderReadyResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /orders/{order_id}/ready [post]
func (h *Dispatch) MarkOrderReady(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionOrderReady)

	orderID, err := pathID(r, "order_id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	if err := h.orders.MarkReady(ctx, orderID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to mark order ready", err, "order_id", orderID)
		serviceErrorResponse(w, err)
		return
	}

	if err := h.dispatcher.OrderReady(ctx, orderID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to signal dispatcher", err, "order_id", orderID)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{"order_id": orderID, "status": types.OrderReadyForPickup}
	if err := writeJSON(w, http.StatusAccepted, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "order marked ready", "order_id", orderID)
}
