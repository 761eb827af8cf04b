package api

import (
	"log"

	"github.com/gin-gonic/gin"
)

// stream upgrades to a websocket and relays cache change notifications until
// the client disconnects. Clients re-fetch the named collection on each
// message; no entity payloads cross the socket.
func (h *Handler) stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	changes, cancel := h.cache.Subscribe()
	defer cancel()

	// The read pump exists only to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
