// bouchon/pkg/api/broadcast.go

package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"bouchon/pkg/logging"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now. In production, this should be more restrictive.
	},
}

// Broadcaster fans flow-delta notifications out to every connected observer.
// A failed write drops that one connection and never fails the others.
type Broadcaster struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[*websocket.Conn]bool)}
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// peer goes away.
func (b *Broadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error upgrading to WebSocket")
		return
	}
	defer conn.Close()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Observer connected")

	b.clientsMutex.Lock()
	b.clients[conn] = true
	b.clientsMutex.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	b.clientsMutex.Lock()
	delete(b.clients, conn)
	b.clientsMutex.Unlock()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Observer disconnected")
}

// Broadcast JSON-encodes the message once and writes it to every observer,
// pruning connections that error.
func (b *Broadcaster) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error marshaling broadcast message")
		return
	}

	b.clientsMutex.Lock()
	defer b.clientsMutex.Unlock()
	for client := range b.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			logging.Logger.Error().Err(err).Msg("Error sending message to observer")
			client.Close()
			delete(b.clients, client)
		}
	}
}

// ClientCount returns the number of connected observers.
func (b *Broadcaster) ClientCount() int {
	b.clientsMutex.Lock()
	defer b.clientsMutex.Unlock()
	return len(b.clients)
}
