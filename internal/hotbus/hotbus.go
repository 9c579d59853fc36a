// Package hotbus is the low-latency price fanout: a WebSocket server
// game shards connect to for `prices:{venue}:{market_id}` updates,
// kept separate from the general Redis bus (internal/bus) so price
// ticks never queue behind slower discovery/orchestration traffic. A
// client registry plus writePump/readPump/ping goroutines per
// connection route each tick to only the topics its subscribers want.
package hotbus

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/model"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type topicClient struct {
	topic string // "venue:market_id", or "*" for every topic
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
}

// Server fans out order book snapshots to connected shard clients,
// each subscribed to either one contract's topic or every topic ("*",
// used by the shard Manager, which attributes snapshots itself).
type Server struct {
	mu      sync.Mutex
	clients map[*topicClient]struct{}
	seq     uint64
}

func NewServer() *Server {
	return &Server{clients: make(map[*topicClient]struct{})}
}

// Publish serializes snapshot and pushes it to every client subscribed
// to its topic or to "*". Safe to call from any goroutine.
func (s *Server) Publish(snapshot model.OrderBookSnapshot) {
	topic := fmt.Sprintf("%s:%s", snapshot.Venue, snapshot.MarketID)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	data, err := busproto.Marshal("order_book_snapshot", topic, seq, snapshot)
	if err != nil {
		telemetry.Warnf("hotbus: marshal error: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if c.topic != "*" && c.topic != topic {
			continue
		}
		select {
		case c.send <- data:
		default:
			telemetry.Warnf("hotbus: dropping snapshot for slow client topic=%s", c.topic)
			telemetry.Metrics.InboxOverflows.WithLabelValues(snapshot.MarketID).Inc()
		}
	}
	telemetry.Metrics.PricesReceived.WithLabelValues(string(snapshot.Venue)).Inc()
}

// HandleWS upgrades the connection and subscribes it to
// ?venue=X&market_id=Y, or every topic if both are omitted.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	venue := r.URL.Query().Get("venue")
	marketID := r.URL.Query().Get("market_id")
	topic := "*"
	if venue != "" && marketID != "" {
		topic = fmt.Sprintf("%s:%s", venue, marketID)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("hotbus: upgrade failed: %v", err)
		return
	}

	c := &topicClient{
		topic: topic,
		conn:  conn,
		send:  make(chan []byte, clientSendBuf),
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	telemetry.Infof("hotbus: client connected topic=%s", topic)

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) writePump(c *topicClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				telemetry.Warnf("hotbus: write error topic=%s: %v", c.topic, err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(c *topicClient) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *topicClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	telemetry.Infof("hotbus: client disconnected topic=%s", c.topic)
}

// ListenAndServe starts the hot price WebSocket server.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	telemetry.Infof("hotbus: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
