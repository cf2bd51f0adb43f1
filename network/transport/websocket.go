package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oomph-ac/locomotion/network"
	"github.com/oomph-ac/locomotion/oerror"
)

const (
	writeWait      = 5 * time.Second
	readWait       = 60 * time.Second
	pingPeriod     = readWait * 9 / 10
	maxMessageSize = 1 << 16
	queueSize      = 256
)

// ErrQueueFull is returned by WebSocket.Send when the peer cannot keep up.
var ErrQueueFull = oerror.New("websocket send queue full")

// WebSocket is a network.Transport over a websocket connection. Frames are sent as binary
// messages by a writer goroutine. Sending never blocks: frames are dropped with ErrQueueFull if
// the writer falls behind.
type WebSocket struct {
	conn *websocket.Conn
	log  *slog.Logger

	in  chan []byte
	out chan []byte

	closed chan struct{}
	once   sync.Once
	done   sync.WaitGroup
}

// Compile time check to make sure WebSocket implements network.Transport.
var _ network.Transport = (*WebSocket)(nil)

// NewWebSocket starts a transport on an established connection. A nil logger uses slog.Default.
func NewWebSocket(conn *websocket.Conn, log *slog.Logger) *WebSocket {
	if log == nil {
		log = slog.Default()
	}
	w := &WebSocket{
		conn:   conn,
		log:    log.With("remote", conn.RemoteAddr().String()),
		in:     make(chan []byte, queueSize),
		out:    make(chan []byte, queueSize),
		closed: make(chan struct{}),
	}
	w.done.Add(2)
	go w.readLoop()
	go w.writeLoop()
	return w
}

// Dial connects to the websocket server at url.
func Dial(ctx context.Context, url string, log *slog.Logger) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebSocket(conn, log), nil
}

// Handler returns an http.Handler upgrading every request to a websocket and passing the
// transport to accept. Accept is called on the goroutine serving the request and may block.
func Handler(accept func(*WebSocket), log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			log.Debug("websocket upgrade failed", "err", err)
			return
		}
		accept(NewWebSocket(conn, log))
	})
}

// Send queues b to be written to the connection.
func (w *WebSocket) Send(b []byte) error {
	select {
	case <-w.closed:
		return network.ErrClosed
	default:
	}
	select {
	case w.out <- b:
		return nil
	default:
		return ErrQueueFull
	}
}

// Receive ...
func (w *WebSocket) Receive() <-chan []byte {
	return w.in
}

// Close sends a close message to the peer and closes the connection. It waits for both
// connection goroutines to stop.
func (w *WebSocket) Close() error {
	w.once.Do(func() {
		close(w.closed)
	})
	w.done.Wait()
	return nil
}

func (w *WebSocket) readLoop() {
	defer w.done.Done()
	defer close(w.in)

	w.conn.SetReadLimit(maxMessageSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(readWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		mt, b, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.log.Debug("websocket read failed", "err", err)
			}
			w.once.Do(func() { close(w.closed) })
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		_ = w.conn.SetReadDeadline(time.Now().Add(readWait))
		select {
		case w.in <- b:
		case <-w.closed:
			return
		}
	}
}

func (w *WebSocket) writeLoop() {
	defer w.done.Done()
	defer w.conn.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case b := <-w.out:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					w.log.Debug("websocket write failed", "err", err)
				}
				w.once.Do(func() { close(w.closed) })
				return
			}
		case <-ticker.C:
			if err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				w.once.Do(func() { close(w.closed) })
				return
			}
		case <-w.closed:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
	}
}
