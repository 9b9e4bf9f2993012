package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/ticket-overlays/broadcast"
)

var errMissingSportType = errors.New("missing sport_type in URL path")

type WebSocketHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" or an
// empty list allows any origin.
func NewWebSocketHandler(hub *broadcast.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		logger: logger,
	}
}

// ServeWs subscribes the client to overlay changes of one sport.
// Клиент подключается к /ws/overlays/{sport_type}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	sportType := strings.TrimSpace(chi.URLParam(r, "sport_type"))
	if sportType == "" {
		badRequestResponse(w, r, errMissingSportType)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.String("sport_type", sportType), slog.Any("error", err))
		return
	}

	room := broadcast.RoomForSport(sportType)
	h.hub.NewClient(conn, room).Start()
	h.logger.DebugContext(r.Context(), "websocket client connected", slog.String("room", room))
}
