// Package mqtt forwards region messages and snapshots to an MQTT broker
// and accepts player input from it.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/nathoo/regioncore/types"
)

// Topics below the configured root:
//
//	<root>/<kind>              region messages by kind
//	<root>/players/<id>        per-player snapshots
//	<root>/input               incoming RemoteAction JSON
//	<root>/joined/<name>       id assigned to a join request
const (
	topicPlayers = "players"
	topicInput   = "input"
	topicJoined  = "joined"
)

// Client wraps the Paho client for one region.
type Client struct {
	client paho.Client
	root   string
	log    *log.Logger
	mu     sync.Mutex

	// JoinTimeout bounds the wait for a join reply before it is reported
	// as refused.
	JoinTimeout time.Duration
}

// BrokerURL returns MQTT_URL from the environment, then fallback, then the
// local default.
func BrokerURL(fallback string) string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	if fallback != "" {
		return fallback
	}
	return "tcp://localhost:1883"
}

// NewClient creates a client but does not connect.
func NewClient(broker, clientID, root string, logger *log.Logger) *Client {
	opts := paho.NewClientOptions().
		AddBroker(BrokerURL(broker)).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)
	return newClient(paho.NewClient(opts), root, logger)
}

func newClient(c paho.Client, root string, logger *log.Logger) *Client {
	return &Client{client: c, root: root, log: logger, JoinTimeout: 10 * time.Second}
}

// Connect attempts to connect to the broker without blocking indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// SubscribeInput routes input published on <root>/input to actions.
func (c *Client) SubscribeInput(actions chan<- types.RemoteAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	topic := c.topic(topicInput)
	token := c.client.Subscribe(topic, 1, c.inputHandler(actions))
	if !token.WaitTimeout(10 * time.Second) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

func (c *Client) inputHandler(actions chan<- types.RemoteAction) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var ra types.RemoteAction
		if err := json.Unmarshal(msg.Payload(), &ra); err != nil {
			c.logf("mqtt: discarding malformed input on %s: %v", msg.Topic(), err)
			return
		}
		var reply chan int64
		if ra.Join != "" {
			reply = make(chan int64, 1)
			ra.Reply = reply
		}
		select {
		case actions <- ra:
		default:
			c.logf("mqtt: action queue full, dropped input")
			return
		}
		if reply != nil {
			go c.announceJoin(ra.Join, reply)
		}
	}
}

func (c *Client) announceJoin(name string, reply <-chan int64) {
	var id int64
	select {
	case id = <-reply:
	case <-time.After(c.JoinTimeout):
	}
	c.publish(c.topic(topicJoined, name), []byte(strconv.FormatInt(id, 10)))
}

// PublishMessage sends a region message to <root>/<kind>.
func (c *Client) PublishMessage(msg types.RegionMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		c.logf("mqtt: failed to marshal %s message: %v", msg.Kind, err)
		return
	}
	c.publish(c.topic(string(msg.Kind)), b)
}

// PublishTick sends each snapshot to <root>/players/<id>.
func (c *Client) PublishTick(snapshots map[int64][]byte) {
	for id, data := range snapshots {
		c.publish(c.topic(topicPlayers, strconv.FormatInt(id, 10)), data)
	}
}

// publish is fire-and-forget; the tick never waits on the broker.
func (c *Client) publish(topic string, payload []byte) {
	token := c.client.Publish(topic, 0, false, payload)
	go func() {
		if token.WaitTimeout(10*time.Second) && token.Error() != nil {
			c.logf("mqtt: publish to %s failed: %v", topic, token.Error())
		}
	}()
}

func (c *Client) topic(parts ...string) string {
	t := c.root
	for _, p := range parts {
		t += "/" + p
	}
	return t
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Client) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// ConnectTimeoutError indicates the connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates a subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return fmt.Sprintf("mqtt subscribe timeout: %s", e.Topic)
}
