package wsserver

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsClient tracks one connected browser's socket and subscription set.
type wsClient struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool

	subsMu sync.Mutex
	subs   map[string]uint64 // agentID -> subscription handle
}

func newWSClient(id string, conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:   id,
		conn: conn,
		subs: make(map[string]uint64),
	}
}

// send writes a text frame. Safe for concurrent use: gorilla's Conn
// requires a single writer at a time, so every send goes through writeMu.
func (c *wsClient) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) addSub(agentID string, handle uint64) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs[agentID] = handle
}

func (c *wsClient) removeSub(agentID string) (uint64, bool) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	handle, ok := c.subs[agentID]
	if ok {
		delete(c.subs, agentID)
	}
	return handle, ok
}

func (c *wsClient) hasSub(agentID string) bool {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	_, ok := c.subs[agentID]
	return ok
}

// allSubs returns a snapshot of every agentID -> handle pair currently held.
func (c *wsClient) allSubs() map[string]uint64 {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make(map[string]uint64, len(c.subs))
	for k, v := range c.subs {
		out[k] = v
	}
	return out
}

func (c *wsClient) close() {
	c.writeMu.Lock()
	if !c.closed {
		c.closed = true
		_ = c.conn.Close()
	}
	c.writeMu.Unlock()
}
