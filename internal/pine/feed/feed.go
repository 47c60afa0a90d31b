// Package feed adapts a websocket bar stream into driver.Bar values a
// script can evaluate one at a time as they arrive, instead of a
// pre-loaded []driver.Bar slice.
//
// Grounded on the teacher's internal/network/websocket.go
// (WebSocketConn: dial with a handshake timeout, a background reader
// goroutine publishing into a buffered channel, mutex-guarded close).
// github.com/gorilla/websocket.
package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pine/internal/pine/driver"
)

// barMessage is the wire shape of one bar, as published by a host's
// market-data feed.
type barMessage struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (m barMessage) toBar() driver.Bar {
	return driver.Bar{
		Timestamp: m.Timestamp,
		Open:      m.Open,
		High:      m.High,
		Low:       m.Low,
		Close:     m.Close,
		Volume:    m.Volume,
	}
}

// Conn is one connected bar feed: a websocket client that decodes each
// incoming text frame as a barMessage and republishes it on Bars.
type Conn struct {
	ID   string
	URL  string
	conn *websocket.Conn

	Bars chan driver.Bar
	Errs chan error

	mu     sync.Mutex
	closed bool
}

// Dial connects to a host's bar-feed websocket endpoint and starts
// reading bars in the background.
func Dial(url string) (*Conn, error) {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	wsConn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", url, err)
	}

	c := &Conn{
		ID:   fmt.Sprintf("feed_%d", time.Now().UnixNano()),
		URL:  url,
		conn: wsConn,
		Bars: make(chan driver.Bar, 256),
		Errs: make(chan error, 1),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	defer close(c.Bars)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				select {
				case c.Errs <- fmt.Errorf("feed: read: %w", err):
				default:
				}
			}
			return
		}
		var m barMessage
		if err := json.Unmarshal(data, &m); err != nil {
			select {
			case c.Errs <- fmt.Errorf("feed: decode bar: %w", err):
			default:
			}
			continue
		}
		c.Bars <- m.toBar()
	}
}

// Close closes the underlying connection; readLoop's next read fails
// and the Bars channel is closed.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// Run drains a live feed into prog's driver.Script, committing each bar
// as it arrives (no registration-bar dry-run pre-pass — the feed's
// first bar doubles as the registration bar, matching driver.Run's
// bar-0 protocol against a single real bar).
func Run(s *driver.Script, c *Conn) error {
	i := 0
	for {
		select {
		case b, ok := <-c.Bars:
			if !ok {
				return nil
			}
			if err := s.Evaluate(i, b); err != nil {
				s.RollBack()
				return err
			}
			if i == 0 {
				s.G.IO.IsOutputInfoReady = true
			}
			s.Commit()
			i++
		case err := <-c.Errs:
			return err
		}
	}
}
