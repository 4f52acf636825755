// ABOUTME: Snapshot publishing and remote transport control over NATS
// ABOUTME: Publisher implements the engine observer, Controller maps commands onto the transport
package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Resonate-Protocol/resonate-studio/pkg/studio"
)

// Publisher sends every snapshot to the state subject
type Publisher struct {
	client *Client
}

func NewPublisher(c *Client) *Publisher {
	return &Publisher{client: c}
}

// Publish never blocks on the network; nats buffers outgoing messages.
func (p *Publisher) Publish(s studio.Snapshot) {
	data, err := json.Marshal(s)
	if err != nil {
		p.client.log.Warn("failed to encode snapshot", "error", err)
		return
	}
	if err := p.client.conn.Publish(p.client.StateSubject(), data); err != nil {
		p.client.log.Warn("failed to publish snapshot", "error", err)
	}
}

// Transport is the subset of the engine driven by remote commands
type Transport interface {
	Play() error
	Pause()
	Stop()
	Seek(t float64) error
}

// Command is a remote transport request
type Command struct {
	Command  string  `json:"command"`
	Position float64 `json:"position,omitempty"`
}

// Reply answers a request that carried a reply subject
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Controller applies commands from the control subject
type Controller struct {
	client    *Client
	transport Transport
	sub       *nats.Subscription
}

// Serve subscribes to the control subject until Close
func Serve(c *Client, t Transport) (*Controller, error) {
	ctl := &Controller{client: c, transport: t}
	sub, err := c.conn.Subscribe(c.ControlSubject(), ctl.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.ControlSubject(), err)
	}
	ctl.sub = sub
	return ctl, nil
}

func (ctl *Controller) handle(msg *nats.Msg) {
	var cmd Command
	err := json.Unmarshal(msg.Data, &cmd)
	if err == nil {
		err = ctl.apply(cmd)
	}
	if err != nil {
		ctl.client.log.Warn("control command failed", slog.String("data", string(msg.Data)), "error", err)
	}

	if msg.Reply == "" {
		return
	}
	reply := Reply{OK: err == nil}
	if err != nil {
		reply.Error = err.Error()
	}
	data, _ := json.Marshal(reply)
	if err := msg.Respond(data); err != nil {
		ctl.client.log.Warn("failed to respond", "error", err)
	}
}

func (ctl *Controller) apply(cmd Command) error {
	switch cmd.Command {
	case "play":
		return ctl.transport.Play()
	case "pause":
		ctl.transport.Pause()
	case "stop":
		ctl.transport.Stop()
	case "seek":
		return ctl.transport.Seek(cmd.Position)
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
	return nil
}

func (ctl *Controller) Close() error {
	if ctl == nil || ctl.sub == nil {
		return nil
	}
	return ctl.sub.Unsubscribe()
}
