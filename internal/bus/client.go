// ABOUTME: NATS connection and embedded server for the studio state bus
// ABOUTME: Lets other processes watch engine snapshots and drive the transport
package bus

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection scoped to one subject prefix.
type Client struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger
}

// Connect dials url and prefixes every subject with subject.
func Connect(url, subject string, log *slog.Logger) (*Client, error) {
	if url == "" {
		return nil, errors.New("no NATS url configured")
	}
	if subject == "" {
		return nil, errors.New("no bus subject configured")
	}

	conn, err := nats.Connect(url,
		nats.Name("resonate-studio"),
		nats.Timeout(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("url", url), slog.String("subject", subject))
	return &Client{conn: conn, subject: subject, log: log}, nil
}

// StateSubject is where snapshots are published
func (c *Client) StateSubject() string { return c.subject + ".state" }

// ControlSubject is where transport commands are received
func (c *Client) ControlSubject() string { return c.subject + ".control" }

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// EmbeddedServer wraps an in-process NATS server for local use.
type EmbeddedServer struct {
	ns  *server.Server
	log *slog.Logger
}

// StartEmbedded starts a NATS server on host:port. Port -1 picks a free port.
func StartEmbedded(host string, port int, log *slog.Logger) (*EmbeddedServer, error) {
	opts := &server.Options{
		Host:   host,
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within 5 seconds")
	}

	log.Info("embedded NATS server started", slog.String("url", ns.ClientURL()))
	return &EmbeddedServer{ns: ns, log: log}, nil
}

// ClientURL is the URL clients should dial
func (e *EmbeddedServer) ClientURL() string {
	return e.ns.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (e *EmbeddedServer) Shutdown() {
	if e == nil || e.ns == nil {
		return
	}
	e.log.Info("shutting down embedded NATS server")
	e.ns.Shutdown()
	e.ns.WaitForShutdown()
}
