package twitch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/john/tmichat/internal/irc"
	"github.com/john/tmichat/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// Connection defaults used when Config leaves a field zero
const (
	DefaultAddr         = "irc.chat.twitch.tv:6667"
	DefaultSendInterval = 333 * time.Millisecond
	DefaultDialTimeout  = 10 * time.Second

	writeTimeout = 10 * time.Second
	maxLineSize  = 64 * 1024
)

// Errors returned by Connector methods
var (
	ErrClosed         = errors.New("connector closed")
	ErrAlreadyStarted = errors.New("connector already started")
	ErrNoChannel      = errors.New("no channel joined")
	ErrInvalidCommand = errors.New("command contains a line break")
)

// State is a step in the connection lifecycle
type State int32

// Lifecycle states in the order a connector moves through them
const (
	Disconnected State = iota
	Connecting
	Authenticating
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Authenticating:
		return "authenticating"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Config holds connection settings
type Config struct {
	Addr         string
	SendInterval time.Duration // minimum gap between outbound commands
	DialTimeout  time.Duration
	ReadTimeout  time.Duration // 0 waits on the socket forever
}

// Connector owns one chat socket: it logs in, answers keepalives, paces
// outbound commands and publishes every other line as an event. A closed
// connector cannot be restarted.
type Connector struct {
	cfg     Config
	creds   Credentials
	session *Session
	queue   *Queue
	pongs   chan string
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)

	state   atomic.Int32
	started atomic.Bool
	closed  atomic.Bool

	mu          sync.Mutex
	conn        net.Conn
	cancel      context.CancelFunc
	connectedAt time.Time
	ackedAt     time.Time
	onSendError func(cmd string, err error)
}

// New creates a new connector; zero Config fields take the defaults
func New(cfg Config, creds Credentials) *Connector {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = DefaultSendInterval
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	telemetry.Init()

	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	return &Connector{
		cfg:     cfg,
		creds:   creds,
		session: NewSession(),
		queue:   NewQueue(),
		pongs:   make(chan string, 8),
		dial:    dialer.DialContext,
	}
}

// Session returns the per-connection state
func (c *Connector) Session() *Session {
	return c.session
}

// State returns the current lifecycle state
func (c *Connector) State() State {
	return State(c.state.Load())
}

func (c *Connector) setState(s State) {
	c.state.Store(int32(s))
	telemetry.SetConnectionState(int(s))
}

// AwaitingAck reports how long the socket has been open without the
// server's 001. It is zero before connecting, once acknowledged, and after close.
func (c *Connector) AwaitingAck() time.Duration {
	if c.State() == Closed {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectedAt.IsZero() || !c.ackedAt.IsZero() {
		return 0
	}
	return time.Since(c.connectedAt)
}

// OnSendError sets the handler called when a queued command fails to write.
// The sender keeps going with the next command either way.
func (c *Connector) OnSendError(fn func(cmd string, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSendError = fn
}

func (c *Connector) sendError(cmd string, err error) {
	c.mu.Lock()
	fn := c.onSendError
	c.mu.Unlock()

	if fn == nil {
		log.Printf("Error sending %q (session %s): %v", redact(cmd), c.session.ID(), err)
		return
	}
	fn(cmd, err)
}

// Send queues a complete command; the CRLF is added on write
func (c *Connector) Send(cmd string) error {
	if c.closed.Load() || c.State() == Closed {
		return ErrClosed
	}
	if strings.ContainsAny(cmd, "\r\n") {
		return ErrInvalidCommand
	}
	c.queue.Push(cmd)
	telemetry.SetQueueDepth(c.queue.Len())
	return nil
}

// Join resets the session to the given channel and queues the JOIN
func (c *Connector) Join(channel string) error {
	ch := normalizeChannel(channel)
	if ch == "#" {
		return fmt.Errorf("join: %w", ErrNoChannel)
	}
	if err := c.Send("JOIN " + ch); err != nil {
		return err
	}
	c.session.Reset()
	c.session.SetChannel(ch)
	return nil
}

// Part leaves the joined channel
func (c *Connector) Part() error {
	ch, ok := c.session.Channel()
	if !ok {
		return fmt.Errorf("part: %w", ErrNoChannel)
	}
	if err := c.Send("PART " + ch); err != nil {
		return err
	}
	c.session.ClearChannel()
	return nil
}

// Say queues a chat message to the joined channel
func (c *Connector) Say(text string) error {
	ch, ok := c.session.Channel()
	if !ok {
		return fmt.Errorf("say: %w", ErrNoChannel)
	}
	return c.Send("PRIVMSG " + ch + " :" + text)
}

// Start dials the server and runs until the socket fails, ctx is cancelled
// or Close is called. Events are delivered in read order; Start blocks
// while the consumer is not receiving.
func (c *Connector) Start(ctx context.Context, events chan<- *irc.Event) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if c.closed.Load() {
		c.setState(Closed)
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.setState(Connecting)
	conn, err := c.dial(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		c.setState(Closed)
		if c.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("dial %s: %w", c.cfg.Addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connectedAt = time.Now()
	c.mu.Unlock()
	if c.closed.Load() {
		c.closeConn()
		c.setState(Closed)
		return ErrClosed
	}
	log.Printf("Connected to %s as %s (session %s)", c.cfg.Addr, c.creds.Nick, c.session.ID())

	c.queue.PushFront(c.creds.loginCommands()...)
	c.setState(Authenticating)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.sendLoop(gctx, conn)
	})
	g.Go(func() error {
		defer cancel()
		return c.readLoop(gctx, conn, events)
	})
	g.Go(func() error {
		<-gctx.Done()
		c.closeConn()
		return nil
	})

	err = g.Wait()
	if c.closed.Load() && errors.Is(err, context.Canceled) {
		err = nil
	}
	c.setState(Closed)
	telemetry.SetAwaitingAck(0)
	log.Printf("Disconnected from %s (session %s)", c.cfg.Addr, c.session.ID())
	return err
}

// Close stops the connector and releases the socket
func (c *Connector) Close() error {
	c.closed.Store(true)

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	c.closeConn()
	return nil
}

// closeConn releases the socket once; a call before the dial completes is a no-op
func (c *Connector) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		log.Printf("Error closing connection (session %s): %v", c.session.ID(), err)
	}
}

// readLoop handles one line at a time until the socket gives out
func (c *Connector) readLoop(ctx context.Context, conn net.Conn, events chan<- *irc.Event) error {
	var r io.Reader = conn
	if c.cfg.ReadTimeout > 0 {
		r = &deadlineReader{conn: conn, timeout: c.cfg.ReadTimeout}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := scanner.Text()
		telemetry.Inc(telemetry.LinesRead)

		if strings.HasPrefix(line, "PING") {
			pong := "PONG"
			if i := strings.IndexByte(line, ' '); i >= 0 {
				pong += " " + line[i+1:]
			}
			select {
			case c.pongs <- pong:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		ev := irc.NewEvent(line)
		switch ev.Kind() {
		case irc.ConnectAck:
			c.markAcked()
		case irc.UserStateUpdate:
			c.session.ApplyUserState(ev)
		}
		telemetry.ObserveEvent(ev.Kind().String())

		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if c.closed.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return fmt.Errorf("read: %w", io.EOF)
}

func (c *Connector) markAcked() {
	c.mu.Lock()
	first := c.ackedAt.IsZero()
	if first {
		c.ackedAt = time.Now()
	}
	c.mu.Unlock()

	if first && c.State() == Authenticating {
		c.setState(Connected)
		telemetry.SetAwaitingAck(0)
		log.Printf("Logged in to Twitch IRC (session %s)", c.session.ID())
	}
}

// sendLoop is the only writer on the socket. Keepalive replies go out as
// soon as they arrive; everything else is paced one command per tick.
func (c *Connector) sendLoop(ctx context.Context, conn net.Conn) error {
	ticker := time.NewTicker(c.cfg.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case pong := <-c.pongs:
			if err := writeLine(conn, pong); err != nil {
				telemetry.Inc(telemetry.SendErrors)
				c.sendError(pong, err)
				continue
			}
			telemetry.Inc(telemetry.PongsSent)

		case <-ticker.C:
			if wait := c.AwaitingAck(); wait > 0 {
				telemetry.SetAwaitingAck(wait.Seconds())
			}

			cmd, ok := c.queue.Pop()
			if !ok {
				continue
			}
			telemetry.SetQueueDepth(c.queue.Len())

			if err := writeLine(conn, cmd); err != nil {
				telemetry.Inc(telemetry.SendErrors)
				c.sendError(cmd, err)
				continue
			}
			telemetry.Inc(telemetry.CommandsSent)
		}
	}
}

func writeLine(conn net.Conn, cmd string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := io.WriteString(conn, cmd+"\r\n"); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// redact hides the token in PASS commands before they reach a log
func redact(cmd string) string {
	if strings.HasPrefix(cmd, "PASS ") {
		return "PASS ***"
	}
	return cmd
}

// deadlineReader pushes the read deadline forward before every read so a
// silent server surfaces as a timeout error
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (d *deadlineReader) Read(p []byte) (int, error) {
	if err := d.conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.conn.Read(p)
}

// scanLines splits on CR or LF and skips runs of empty separators
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}

	for i := start; i < len(data); i++ {
		if data[i] == '\r' || data[i] == '\n' {
			return i + 1, data[start:i], nil
		}
	}

	if atEOF && start < len(data) {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}
