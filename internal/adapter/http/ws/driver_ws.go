package wshandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temutjin2k/delivery-dispatch/internal/adapter/http/ws/dto"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	"github.com/Temutjin2k/delivery-dispatch/pkg/validator"
	ws "github.com/Temutjin2k/delivery-dispatch/pkg/wsHub"
)

const (
	heartbeatInterval = 30 * time.Second
	maxFrameBytes     = 4096
)

var errForeignOffer = errors.New("offer belongs to another driver")

type (
	DriverService interface {
		Connect(ctx context.Context, driverID int64) (*models.Driver, []*models.TripOffer, error)
		Disconnect(ctx context.Context, driverID int64) error
		UpdateLocation(ctx context.Context, driverID int64, coords models.Coordinates) error
	}

	Dispatcher interface {
		Accept(ctx context.Context, offerID string) (models.PersistedBatch, error)
		Reject(ctx context.Context, offerID string) error
	}

	OfferReader interface {
		Get(offerID string) (*models.TripOffer, error)
	}
)

// DriverWS serves the real-time channel of one driver per connection.
type DriverWS struct {
	hub        *ws.ConnectionHub
	drivers    DriverService
	dispatcher Dispatcher
	offers     OfferReader
	upgrader   websocket.Upgrader
	l          logger.Logger
}

func NewDriverWS(hub *ws.ConnectionHub, drivers DriverService, dispatcher Dispatcher, offers OfferReader, l logger.Logger) *DriverWS {
	return &DriverWS{
		hub:        hub,
		drivers:    drivers,
		dispatcher: dispatcher,
		offers:     offers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// drivers connect from the mobile app, not from a browser origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		l: l,
	}
}

// HandleWS godoc
// @Summary      Driver real-time channel
// @Description  Upgrades to a websocket. Inbound frames: location.update, trip.accept, trip.reject, ping. Outbound: connected, trip.offer, trip.accepted, trip.rejected, trip.expired, trip.failed, location.ack, pong, error.
// @Tags         Drivers
// @Param        driver_id  path  int  true  "Driver ID"
// @Success      101
// @Failure      400  {object}  map[string]string
// @Router       /ws/drivers/{driver_id} [get]
func (h *DriverWS) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionDriverConnected)

	driverID, err := strconv.ParseInt(r.PathValue("driver_id"), 10, 64)
	if err != nil || driverID <= 0 {
		httpError(w, http.StatusBadRequest, "invalid driver_id")
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID)

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}
	raw.SetReadLimit(maxFrameBytes)

	// hijacked connections must not inherit request cancellation
	connCtx := context.WithoutCancel(ctx)
	conn := ws.NewConn(connCtx, driverID, raw)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register connection", err)
		_ = conn.Close()
		return
	}
	metrics.WebsocketConnectionsGauge.Inc()
	defer metrics.WebsocketConnectionsGauge.Dec()

	driver, offers, err := h.drivers.Connect(connCtx, driverID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "driver connect failed", err)
		_ = errorResponse(conn, err.Error())
		h.hub.DeleteConn(conn)
		return
	}

	if err := h.greet(conn, driver, offers); err != nil {
		h.l.Warn(ctx, "failed to send connection greeting", "error", err.Error())
	}

	go h.heartbeat(ctx, conn)

	err = conn.Listen(func(data []byte) error {
		h.handleFrame(connCtx, conn, driverID, data)
		return nil
	})
	h.l.Debug(ctx, "driver websocket closed", "reason", err.Error())

	// a replaced connection must not take its successor offline
	if !h.hub.DeleteConn(conn) {
		return
	}
	if err := h.drivers.Disconnect(wrap.WithAction(connCtx, types.ActionDriverDisconnect), driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "driver disconnect failed", err)
	}
}

// greet sends the connected frame, then every offer still waiting for this driver.
func (h *DriverWS) greet(conn *ws.Conn, driver *models.Driver, offers []*models.TripOffer) error {
	if err := send(conn, types.WSConnected, dto.Connected{
		DriverID:     driver.ID,
		Name:         driver.Name,
		Status:       string(driver.Status),
		ActiveOffers: len(offers),
		ServerTime:   time.Now().UTC(),
	}); err != nil {
		return err
	}

	for _, offer := range offers {
		if err := send(conn, types.WSTripOffer, offer); err != nil {
			return fmt.Errorf("resend offer %s: %w", offer.OfferID, err)
		}
	}
	return nil
}

func (h *DriverWS) heartbeat(ctx context.Context, conn *ws.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done():
			return
		case <-ticker.C:
			if err := conn.Health(); err != nil {
				h.l.Warn(ctx, "driver websocket heartbeat failed", "error", err.Error())
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *DriverWS) handleFrame(ctx context.Context, conn *ws.Conn, driverID int64, data []byte) {
	var frame models.WSInbound
	if err := json.Unmarshal(data, &frame); err != nil {
		_ = errorResponse(conn, "message must be a JSON object with a type")
		return
	}
	metrics.WebsocketMessagesTotal.WithLabelValues(frame.Type.String(), "in").Inc()

	var err error
	switch frame.Type {
	case types.WSLocationUpdate:
		err = h.locationUpdate(ctx, conn, driverID, frame.Data)
	case types.WSTripAccept:
		err = h.accept(ctx, conn, driverID, frame.Data)
	case types.WSTripReject:
		err = h.reject(ctx, conn, driverID, frame.Data)
	case types.WSPing:
		err = send(conn, types.WSPong, dto.Pong{Timestamp: time.Now().UTC()})
	default:
		err = errorResponse(conn, fmt.Sprintf("unknown message type %q", frame.Type))
	}

	if err != nil {
		h.l.Warn(wrap.WithDriverID(ctx, driverID), "failed to answer driver frame", "type", frame.Type.String(), "error", err.Error())
	}
}

func (h *DriverWS) locationUpdate(ctx context.Context, conn *ws.Conn, driverID int64, data json.RawMessage) error {
	var req dto.LocationUpdate
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(conn, "invalid location payload")
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		return failedValidationResponse(conn, v.Errors)
	}

	coords := req.Coordinates()
	if err := h.drivers.UpdateLocation(ctx, driverID, coords); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update driver location", err)
		return errorResponse(conn, "location not stored")
	}

	return send(conn, types.WSLocationAck, dto.LocationAck{Lat: coords.Lat, Lng: coords.Lng, Timestamp: time.Now().UTC()})
}

func (h *DriverWS) accept(ctx context.Context, conn *ws.Conn, driverID int64, data json.RawMessage) error {
	req, ok, err := h.offerAction(conn, data)
	if !ok {
		return err
	}
	ctx = wrap.WithOfferID(wrap.WithDriverID(wrap.WithAction(ctx, types.ActionOfferAccepted), driverID), req.OfferID)

	if err := h.owned(driverID, req.OfferID); err != nil {
		return h.resolveFailure(ctx, conn, req.OfferID, err)
	}

	batch, err := h.dispatcher.Accept(ctx, req.OfferID)
	if err != nil {
		return h.resolveFailure(ctx, conn, req.OfferID, err)
	}

	return send(conn, types.WSTripAccepted, dto.TripAccepted{OfferID: req.OfferID, BatchID: batch.BatchID, Stops: batch.Stops})
}

func (h *DriverWS) reject(ctx context.Context, conn *ws.Conn, driverID int64, data json.RawMessage) error {
	req, ok, err := h.offerAction(conn, data)
	if !ok {
		return err
	}
	ctx = wrap.WithOfferID(wrap.WithDriverID(wrap.WithAction(ctx, types.ActionOfferRejected), driverID), req.OfferID)

	if err := h.owned(driverID, req.OfferID); err != nil {
		return h.resolveFailure(ctx, conn, req.OfferID, err)
	}

	if err := h.dispatcher.Reject(ctx, req.OfferID); err != nil {
		return h.resolveFailure(ctx, conn, req.OfferID, err)
	}

	return send(conn, types.WSTripRejected, dto.OfferRef{OfferID: req.OfferID})
}

// offerAction decodes and validates an offer reference. ok is false when the frame was answered with an error.
func (h *DriverWS) offerAction(conn *ws.Conn, data json.RawMessage) (dto.OfferAction, bool, error) {
	var req dto.OfferAction
	if err := json.Unmarshal(data, &req); err != nil {
		return req, false, errorResponse(conn, "invalid offer payload")
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		return req, false, failedValidationResponse(conn, v.Errors)
	}
	return req, true, nil
}

// owned checks the offer is addressed to driverID. A missing offer is left for the dispatcher to report.
func (h *DriverWS) owned(driverID int64, offerID string) error {
	offer, err := h.offers.Get(offerID)
	if err != nil {
		return nil
	}
	if offer.DriverID != driverID {
		return errForeignOffer
	}
	return nil
}

// resolveFailure tells the driver why an accept or reject did not go through.
func (h *DriverWS) resolveFailure(ctx context.Context, conn *ws.Conn, offerID string, err error) error {
	switch {
	case errors.Is(err, errForeignOffer):
		h.l.Warn(ctx, "driver acted on an offer of another driver")
		return errorResponse(conn, types.ErrOfferNotFound.Error())
	case errors.Is(err, types.ErrOfferNotFound), errors.Is(err, types.ErrOfferExpired), errors.Is(err, types.ErrOfferAlreadyResolved):
		h.l.Info(ctx, "offer no longer open", "reason", err.Error())
		return send(conn, types.WSTripExpired, dto.OfferRef{OfferID: offerID})
	default:
		h.l.Error(wrap.ErrorCtx(ctx, err), "offer action failed", err)
		return send(conn, types.WSTripFailed, dto.TripFailed{OfferID: offerID, Reason: "assignment could not be completed, the offer was released"})
	}
}
