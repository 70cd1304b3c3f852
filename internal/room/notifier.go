package room

import "github.com/mossy-p/tombola/internal/models"

// Notifier carries room events out to connections. Rooms call it while
// holding their lock, so implementations must not block and must never call
// back into a room.
type Notifier interface {
	// Send delivers to a single connection.
	Send(connID string, msg models.OutboundMessage)
	// Broadcast delivers to every connection subscribed to roomCode.
	Broadcast(roomCode string, msg models.OutboundMessage)
	Subscribe(roomCode, connID string)
	Unsubscribe(roomCode, connID string)
	// Disconnect delivers msg and then closes the connection.
	Disconnect(connID string, msg models.OutboundMessage)
	// DropRoom forgets every subscription of roomCode.
	DropRoom(roomCode string)
}
