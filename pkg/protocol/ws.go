package protocol

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

var (
	ErrClosed    = errors.New("publisher closed")
	ErrQueueFull = errors.New("publish queue full")
)

const (
	queueSize  = 64
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Publisher sends messages to the hub over a websocket. Publish only
// queues; a single writer goroutine dials on demand and backs off after a
// failed dial, dropping what arrives while it waits.
type Publisher struct {
	url     string
	shard   string
	timeout time.Duration
	dialer  *ws.Dialer

	queue  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// owned by the writer goroutine
	conn    *ws.Conn
	backoff time.Duration
	retryAt time.Time
	now     func() time.Time
}

func NewPublisher(url, shard string, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		url:     url,
		shard:   shard,
		timeout: timeout,
		dialer:  &ws.Dialer{HandshakeTimeout: timeout},
		queue:   make(chan []byte, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish stamps m with this shard, checks it against the wire grammar and
// queues it. It never waits on the network.
func (p *Publisher) Publish(m Message) error {
	m.From = p.shard
	line := m.String()
	if _, err := Parse(line); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	if p.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case p.queue <- []byte(line):
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the writer and closes the connection.
func (p *Publisher) Close() error {
	p.cancel()
	p.wg.Wait()
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	defer p.hangUp()

	for {
		select {
		case <-p.ctx.Done():
			return
		case payload := <-p.queue:
			if err := p.write(payload); err != nil {
				log.Debug("Hub write failed", "url", p.url, "err", err)
			}
		}
	}
}

func (p *Publisher) write(payload []byte) error {
	if p.conn == nil {
		if p.now().Before(p.retryAt) {
			return errors.New("hub unreachable, waiting to redial")
		}
		conn, _, err := p.dialer.DialContext(p.ctx, p.url, nil)
		if err != nil {
			p.backoff = min(max(2*p.backoff, minBackoff), maxBackoff)
			p.retryAt = p.now().Add(p.backoff)
			return err
		}
		log.Debug("Connected to hub", "url", p.url)
		p.conn = conn
		p.backoff = 0
	}

	_ = p.conn.SetWriteDeadline(p.now().Add(p.timeout))
	log.Debug("Write ws", "msg", string(payload))
	if err := p.conn.WriteMessage(ws.TextMessage, payload); err != nil {
		p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

func (p *Publisher) hangUp() {
	if p.conn == nil {
		return
	}
	_ = p.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(p.timeout))
	p.conn.Close()
	p.conn = nil
}
