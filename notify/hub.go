package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
)

// Message is the envelope every websocket frame carries.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const TypePrizeDistributed = "PRIZE_DISTRIBUTED"

// Hub fans messages out to websocket clients grouped into per-tournament
// rooms. It also implements Sink so the lifecycle sweep can push payout
// notifications without knowing about websockets.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	rooms  map[string]map[*Client]bool
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("websocket client joined",
				"room", client.Room, "clients", len(h.rooms[client.Room]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
					h.logger.Debug("websocket client left", "room", client.Room)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom sends a message to every client in the room. Slow clients
// whose buffers are full are skipped rather than blocking the broadcast.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "room", roomID, "error", err)
		return
	}

	for client := range clients {
		client.trySend(payload)
	}
}

// RoomForTournament names the room a tournament's watchers subscribe to.
func RoomForTournament(tournamentID int) string {
	return "tournament:" + strconv.Itoa(tournamentID)
}

// NotifyPrize implements Sink by broadcasting to the tournament's room.
func (h *Hub) NotifyPrize(_ context.Context, notification PrizeNotification) {
	h.BroadcastToRoom(RoomForTournament(notification.TournamentID), Message{
		Type:    TypePrizeDistributed,
		Payload: notification,
		RoomID:  RoomForTournament(notification.TournamentID),
	})
}
