package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/internal/protocol"
)

// WSClient receives transcript pushes over WebSocket.
type WSClient struct {
	conn   *websocket.Conn
	out    io.Writer
	writeM sync.Mutex

	joined chan error
	done   chan struct{}
}

// wsURL turns an http(s) server address into its /ws endpoint.
func wsURL(server string) string {
	u := strings.TrimRight(server, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	case !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://"):
		u = "ws://" + u
	}
	if !strings.HasSuffix(u, "/ws") {
		u += "/ws"
	}
	return u
}

// DialWS connects to the server's WebSocket endpoint.
func DialWS(server string, out io.Writer) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	c := &WSClient{
		conn:   conn,
		out:    out,
		joined: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Join opens the chat session and waits for the confirmation.
func (c *WSClient) Join(ctx context.Context, name string) error {
	err := c.write(protocol.JoinMessage{
		BaseMessage: c.base(protocol.TypeJoin),
		Name:        name,
	})
	if err != nil {
		return err
	}
	select {
	case err := <-c.joined:
		return err
	case <-c.done:
		return fmt.Errorf("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *WSClient) Send(_ context.Context, text string) error {
	return c.write(protocol.SendMessage{BaseMessage: c.base(protocol.TypeSend), Text: text})
}

func (c *WSClient) Refresh(context.Context) error {
	return c.write(protocol.RenderMessage{BaseMessage: c.base(protocol.TypeRender)})
}

// Close says goodbye and closes the socket.
func (c *WSClient) Close() error {
	c.writeM.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeM.Unlock()
	return c.conn.Close()
}

func (c *WSClient) base(typ string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:      typ,
		Ts:        time.Now().UnixMilli(),
		RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
	}
}

func (c *WSClient) write(v interface{}) error {
	c.writeM.Lock()
	defer c.writeM.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *WSClient) readLoop() {
	defer close(c.done)
	joined := false
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var base protocol.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}

		switch base.Type {
		case protocol.TypeJoined:
			var msg protocol.JoinedMessage
			if err := json.Unmarshal(data, &msg); err == nil {
				log.Printf("Joined %s, topic: %s", msg.PairName, msg.Topic)
			}
			joined = true
			c.signalJoin(nil)
		case protocol.TypeTranscript:
			var msg protocol.TranscriptMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.View == nil {
				continue
			}
			render(c.out, msg.View)
		case protocol.TypeWarning:
			var msg protocol.WarningMessage
			_ = json.Unmarshal(data, &msg)
			// Volume warnings also arrive inside the transcript view.
			if msg.Code == string(domain.WarningMessageTooLong) {
				fmt.Fprintf(c.out, "! %s\n", msg.Message)
			}
		case protocol.TypeError:
			var msg protocol.ErrorMessage
			_ = json.Unmarshal(data, &msg)
			if !joined {
				c.signalJoin(fmt.Errorf("%s: %s", msg.Code, msg.Message))
				continue
			}
			log.Printf("Error %s: %s", msg.Code, msg.Message)
		}
	}
}

func (c *WSClient) signalJoin(err error) {
	select {
	case c.joined <- err:
	default:
	}
}
