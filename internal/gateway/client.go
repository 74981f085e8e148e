package gateway

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chronoutil/internal/ringbuf"
	"chronoutil/pkg/chrono"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu     sync.Mutex
	format chrono.DateTimeOutputFormat
	noMs   bool
}

// control is an inbound client message.
//
//	{"type":"FORMAT","format":"date_only","no_ms":true}
//	{"type":"PING","ping":1700000000000}
//	{"type":"NOW"}
type control struct {
	Type   string `json:"type"`
	Format string `json:"format"`
	NoMs   bool   `json:"no_ms"`
	Ping   int64  `json:"ping"`
}

func (c *Client) formatKey() formatKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return formatKey{format: c.format, noMs: c.noMs}
}

// frame renders s in this client's current format.
func (c *Client) frame(s ringbuf.Sample) []byte {
	return buildFrame(s, c.formatKey())
}

func (c *Client) reply(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) replyError(msg string) {
	c.reply(map[string]string{"type": "error", "error": msg})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Coalesce queued frames into one WebSocket message, newline separated
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					break
				}
				w.Write([]byte{'\n'})
				w.Write(next)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var ctl control
		if err := json.Unmarshal(msg, &ctl); err != nil {
			c.replyError("invalid message: " + err.Error())
			continue
		}
		c.handle(ctl)
	}
}

func (c *Client) handle(ctl control) {
	switch ctl.Type {
	case "FORMAT":
		f, err := chrono.ParseOutputFormat(ctl.Format)
		if err != nil {
			c.replyError(err.Error())
			return
		}
		c.mu.Lock()
		c.format = f
		c.noMs = ctl.NoMs
		c.mu.Unlock()
		c.reply(map[string]any{"type": "FORMAT_OK", "format": f.String(), "no_ms": ctl.NoMs})

	case "PING", "ping":
		c.reply(map[string]any{
			"type":         "pong",
			"ping":         ctl.Ping,
			"server_ticks": chrono.NowFrom(c.hub.cfg.Clock).Ticks(),
		})

	case "NOW":
		s := ringbuf.Sample{Seq: c.hub.replay.LastSeq(), At: chrono.NowFrom(c.hub.cfg.Clock)}
		select {
		case c.send <- c.frame(s):
		default:
		}

	default:
		c.replyError("unknown message type: " + ctl.Type)
	}
}
