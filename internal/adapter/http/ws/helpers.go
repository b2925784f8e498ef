package wshandler

import (
	"encoding/json"
	"net/http"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	ws "github.com/Temutjin2k/delivery-dispatch/pkg/wsHub"
)

func send(conn *ws.Conn, kind types.WSMessageType, data any) error {
	metrics.WebsocketMessagesTotal.WithLabelValues(kind.String(), "out").Inc()
	return conn.Send(models.WSMessage{Type: kind, Data: data})
}

func errorResponse(conn *ws.Conn, message any) error {
	return send(conn, types.WSError, map[string]any{
		"error": message,
	})
}

func failedValidationResponse(conn *ws.Conn, errors map[string]string) error {
	return errorResponse(conn, errors)
}

// httpError answers before the upgrade, when the handshake itself is refused.
func httpError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
