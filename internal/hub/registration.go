package hub

import (
	"ctchen222/solo-tic-tac-toe/internal/room"
	"log/slog"
)

// Register makes r receive updates for its session.
func (h *Hub) Register(r *room.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.rooms[r.ID]
	if !ok {
		rooms = make(map[*room.Room]struct{})
		h.rooms[r.ID] = rooms
	}
	rooms[r] = struct{}{}
	slog.Info("Room registered", "session.id", r.ID, "rooms.count", len(rooms))
}

// Unregister stops updates to r.
func (h *Hub) Unregister(r *room.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.rooms[r.ID]
	if !ok {
		return
	}
	delete(rooms, r)
	if len(rooms) == 0 {
		delete(h.rooms, r.ID)
	}
	slog.Info("Room unregistered", "session.id", r.ID)
}

// RoomCount reports how many rooms are open for sessionID.
func (h *Hub) RoomCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
