package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub stores and manages all active websocket connections, one per entity.
type ConnectionHub struct {
	clients map[int64]*Conn
	l       logger.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[int64]*Conn),
		l:       l,
	}
}

// Add registers newConn. An existing connection for the same entity is closed and replaced;
// a replacement does not count as a new online entity.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "add_ws_connection")

	if existing, ok := h.clients[newConn.entityID]; ok {
		h.l.Warn(ctx, "replacing existing connection", "entity_id", existing.entityID)
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close existing conn", "entity_id", existing.entityID, "err", err.Error())
		}
		h.clients[newConn.entityID] = newConn
		return nil
	}

	h.clients[newConn.entityID] = newConn
	h.wg.Add(1)
	metrics.DriversOnlineGauge.Inc()

	return nil
}

// Delete closes and removes the connection of entityID.
func (h *ConnectionHub) Delete(entityID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[entityID]
	if !ok {
		return ErrConnIsNotFound
	}
	h.remove(conn)
	return nil
}

// DeleteConn removes conn only if it is still the registered connection of its entity.
// Reports whether it was removed.
func (h *ConnectionHub) DeleteConn(conn *Conn) bool {
	if conn == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[conn.entityID]; !ok || current != conn {
		_ = conn.Close()
		return false
	}
	h.remove(conn)
	return true
}

// remove must be called with h.mu held.
func (h *ConnectionHub) remove(conn *Conn) {
	if err := conn.Close(); err != nil {
		ctx := wrap.WithAction(context.Background(), "ws_connection_delete")
		h.l.Warn(ctx, "failed to close conn", "entity_id", conn.entityID, "err", err.Error())
	}
	delete(h.clients, conn.entityID)
	h.wg.Done()
	metrics.DriversOnlineGauge.Dec()
}

// SendTo sends msg to the entity. Returns ErrConnIsNotFound when it has no connection.
func (h *ConnectionHub) SendTo(id int64, msg any) error {
	conn, err := h.GetConn(id)
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

// Close closes every websocket connection.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	for _, conn := range clients {
		h.DeleteConn(conn)
	}

	h.wg.Wait()

	h.l.Info(ctx, "all websocket connections closed gracefully")
}

// Clients returns a copy of the connection map.
func (h *ConnectionHub) Clients() map[int64]*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	copyMap := make(map[int64]*Conn, len(h.clients))
	for id, conn := range h.clients {
		copyMap[id] = conn
	}
	return copyMap
}

// GetConn returns the connection of id.
func (h *ConnectionHub) GetConn(id int64) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}

func (h *ConnectionHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
