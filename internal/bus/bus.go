package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message kinds published by the daemon.
const (
	KindMessage = "message"
	KindStatus  = "status"
	KindError   = "error"
	KindClear   = "clear"
)

const writeTimeout = 5 * time.Second

// ErrMalformed marks a frame that arrived intact but did not decode.
var ErrMalformed = errors.New("malformed bus message")

type Bus struct {
	url  string
	conn *websocket.Conn

	// gorilla connections allow one concurrent writer
	wmu sync.Mutex
}

type Message struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     string `json:"kind"`
	Role     string `json:"role,omitempty"`
	Activity string `json:"activity,omitempty"`
	Content  string `json:"content"`
}

func Dial(wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse bus url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{url: u.String(), conn: conn}, nil
}

// Reconnect dials the bus again every interval until it succeeds or ctx is
// done. It must not race with Read.
func (b *Bus) Reconnect(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		if err == nil {
			b.wmu.Lock()
			b.conn.Close()
			b.conn = conn
			b.wmu.Unlock()

			log.Info("Reconnected to bus", "url", b.url)
			return nil
		}
		log.Debug("Bus redial failed", "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// IsClosed reports whether err from Read means the peer went away.
func IsClosed(err error) bool {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.wmu.Lock()
	defer b.wmu.Unlock()

	_ = b.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bus) Close() error {
	b.wmu.Lock()
	defer b.wmu.Unlock()

	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return b.conn.Close()
}
