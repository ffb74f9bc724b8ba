package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	mtSessionInfo = "sessionInfo"
	mtCarStates   = "carStates"

	staleAfter = 5 * time.Second
)

type Message struct {
	MessageType string `json:"type"`
	Body        any    `json:"body,omitempty"`
}

type sessionInfoBody struct {
	SessionType string `json:"sessionType"`
	GreenFlag   bool   `json:"greenFlag"`
}

// Client keeps a websocket connection to the telemetry relay and exposes the
// most recent snapshot. It implements Source.
type Client struct {
	URL string

	mu          sync.Mutex
	running     bool
	receiving   bool
	lastMessage time.Time
	session     sessionInfoBody
	cars        []CarState
}

func NewClient(url string) *Client {
	return &Client{URL: url}
}

// ReadSnapshot returns the latest snapshot assembled from the feed. ok is
// false while disconnected, before the first car-state frame, or when the feed
// has gone quiet for longer than the staleness window.
func (c *Client) ReadSnapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.receiving || c.cars == nil {
		return Snapshot{}, false
	}
	if time.Since(c.lastMessage) > staleAfter {
		c.receiving = false
		return Snapshot{}, false
	}
	cars := make([]CarState, len(c.cars))
	copy(cars, c.cars)
	return Snapshot{
		SessionType: c.session.SessionType,
		GreenFlag:   c.session.GreenFlag,
		Cars:        cars,
	}, true
}

// Run dials the relay and consumes frames until the connection drops or ctx is
// cancelled. The caller is expected to re-invoke it to reconnect.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.receiving = false
		c.cars = nil
		c.mu.Unlock()
	}()

	urlString := strings.TrimPrefix(strings.TrimPrefix(c.URL, "https://"), "http://")
	u := url.URL{Scheme: "ws", Host: urlString, Path: "/websocket/telemetry"}

	dealer := &websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}
	conn, _, err := dealer.Dial(u.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", u.String())
	}
	log.Printf("connected to %s", u.String())
	defer conn.Close()

	doneErr := make(chan error)
	messageChan := make(chan Message)
	go c.dispatchMessage(ctx, messageChan, doneErr)

	go func() {
		defer close(doneErr)
		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil {
				log.Println("read error:", err)
				doneErr <- errors.Wrap(err, "reading telemetry frame")
				return
			}
			select {
			case messageChan <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	select {
	case err := <-doneErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) dispatchMessage(ctx context.Context, messageChan <-chan Message, doneChan <-chan error) {
	timeout := time.After(staleAfter)
	for {
		select {
		case <-ctx.Done():
			return
		case <-doneChan:
			return
		case <-timeout:
			c.mu.Lock()
			c.receiving = false
			c.mu.Unlock()
			timeout = time.After(staleAfter)
		case m := <-messageChan:
			timeout = time.After(staleAfter)
			switch m.MessageType {
			case mtSessionInfo:
				var body sessionInfoBody
				if err := recastBody(m.Body, &body); err != nil {
					log.Printf("Error unmarshalling sessionInfo: %s\n", err.Error())
					continue
				}
				c.mu.Lock()
				c.session = body
				c.receiving = true
				c.lastMessage = time.Now()
				c.mu.Unlock()
			case mtCarStates:
				body := []CarState{}
				if err := recastBody(m.Body, &body); err != nil {
					log.Printf("Error unmarshalling carStates: %s\n", err.Error())
					continue
				}
				c.mu.Lock()
				c.cars = body
				c.receiving = true
				c.lastMessage = time.Now()
				c.mu.Unlock()
			}
		}
	}
}

// recastBody round-trips the loosely decoded message body into the typed
// struct for its message type.
func recastBody(body any, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}
