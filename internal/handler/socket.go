package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/cinema-live/internal/realtime"
)

// Timing knobs for WebSocket keepalive. The transport's own liveness
// detection is the only timeout in the protocol: a dead peer is detected
// through missed pongs, the read loop ends, and disconnect cleanup runs.
const (
	writeWait  = 10 * time.Second // allowance for one outbound write
	pongWait   = 60 * time.Second // read deadline, refreshed by pongs
	pingPeriod = 45 * time.Second // must be shorter than pongWait
)

// upgrader is shared by both socket endpoints. CheckOrigin admits any
// origin because the service fronts native desktop clients, not browsers.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsFrame is one outbound message on a socket: the event name and its
// payload. Inbound frames use "type" instead (see inboundFrame).
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// inboundFrame is the tagged union of every client → server message. Type
// selects the operation; the remaining fields are populated per type and
// validated before anything reaches a service.
type inboundFrame struct {
	Type        string   `json:"type"`
	ShowtimeID  uint64   `json:"showtimeId,omitempty"`
	SeatNumber  string   `json:"seatNumber,omitempty"`
	SeatNumbers []string `json:"seatNumbers,omitempty"`
	BookingID   string   `json:"bookingId,omitempty"`
}

// socketClient owns one WebSocket connection. All writes funnel through the
// out channel into a single writer goroutine, since gorilla connections
// permit only one concurrent writer. Sends are non-blocking: a client that
// cannot drain its buffer loses the overflow, which at-most-once delivery
// permits.
type socketClient struct {
	conn *websocket.Conn
	out  chan wsFrame
	done chan struct{}
}

func newSocketClient(conn *websocket.Conn) *socketClient {
	return &socketClient{
		conn: conn,
		out:  make(chan wsFrame, 64),
		done: make(chan struct{}),
	}
}

// send queues a pre-encoded frame for the writer, dropping it when the
// client is too far behind.
func (cl *socketClient) send(frame wsFrame) {
	select {
	case cl.out <- frame:
	default:
	}
}

// sendEvent marshals payload and queues it as an event frame.
func (cl *socketClient) sendEvent(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("socket: marshal %s failed: %v", event, err)
		return
	}
	cl.send(wsFrame{Event: event, Data: data})
}

// writeLoop is the connection's single writer: it drains the out channel,
// emits keepalive pings, and exits when the reader signals done or a write
// fails.
func (cl *socketClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case frame := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cl.done:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// close signals the writer to finish and closes the underlying connection.
func (cl *socketClient) close() {
	close(cl.done)
	_ = cl.conn.Close()
}

// pump copies a room subscription into the client's outbound channel until
// the subscription is closed. Run as a goroutine per joined room; closing
// the subscription (on re-join or disconnect) ends it.
func (cl *socketClient) pump(sub *realtime.Subscription) {
	for env := range sub.C() {
		cl.send(wsFrame{Event: env.Event, Data: env.Data})
	}
}

// prepareRead installs the read deadline and pong handler that implement
// liveness detection for the read loop.
func (cl *socketClient) prepareRead() {
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}
