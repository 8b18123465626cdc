package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/variables-admin/internal/adminsvc/form"
	"github.com/avvvet/variables-admin/internal/comm"
)

const writeWait = 10 * time.Second

// client holds at most one unsent state; a newer state replaces it and an
// older one than already sent is dropped.
type client struct {
	conn *websocket.Conn

	mu         sync.Mutex
	pending    []byte
	pendingVer uint64
	hasPending bool
	sentVer    uint64
	wake       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (c *client) push(version uint64, payload []byte) {
	c.mu.Lock()
	if version < c.sentVer || (c.hasPending && version < c.pendingVer) {
		c.mu.Unlock()
		return
	}
	c.pending, c.pendingVer, c.hasPending = payload, version, true
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) take() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasPending {
		return nil, false
	}
	payload := c.pending
	c.sentVer = c.pendingVer
	c.pending, c.hasPending = nil, false
	return payload, true
}

// Hub pushes every form state change to the connected admin pages.
type Hub struct {
	upgrader websocket.Upgrader
	connMap  sync.Map // socketId -> *client
	snapshot func() form.State
}

func NewHub(snapshot func() form.State) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		snapshot: snapshot,
	}
}

// HandleWebSocket upgrades the request and sends the current state right away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	c := newClient(conn)
	h.connMap.Store(socketId, c)
	log.Infof("New WebSocket connection established: %s", socketId)

	st := h.snapshot()
	if payload, err := comm.Encode(comm.TypeState, st); err == nil {
		c.push(st.Version, payload)
	} else {
		log.Errorf("Failed to encode initial state for socket %s: %v", socketId, err)
	}

	go h.writePump(c, socketId)
	go h.handleConnection(c, socketId)
}

func (h *Hub) writePump(c *client, socketId string) {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		payload, ok := c.take()
		if !ok {
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warnf("dropping socket %s: %v", socketId, err)
			h.drop(c, socketId)
			return
		}
	}
}

// handleConnection drains the socket until it closes; clients only listen.
func (h *Hub) handleConnection(c *client, socketId string) {
	defer h.drop(c, socketId)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}
	}
}

func (h *Hub) drop(c *client, socketId string) {
	c.closeOnce.Do(func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.connMap.Delete(socketId)
		close(c.done)
		c.conn.Close()
	})
}

// Broadcast queues st for every connected socket and returns without
// waiting for the writes.
func (h *Hub) Broadcast(st form.State) {
	payload, err := comm.Encode(comm.TypeState, st)
	if err != nil {
		log.Errorf("error [Broadcast] marshaling state: %v", err)
		return
	}

	h.connMap.Range(func(key, value any) bool {
		value.(*client).push(st.Version, payload)
		return true
	})
}

func (h *Hub) Count() int {
	count := 0
	h.connMap.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
