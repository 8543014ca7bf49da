package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"project-automation-api/internal/domain"
	"project-automation-api/internal/metrics"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Conn is the part of *nats.Conn the subscriber uses.
type Conn interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subj string, data []byte) error
}

// Dispatcher runs the rules for one project event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) (domain.Report, error)
}

// Options configures a Subscriber.
type Options struct {
	Subject        string
	Queue          string
	ResultsSubject string
	Timeout        time.Duration
}

// Subscriber feeds project events from NATS into the dispatcher. Every instance joins the same
// queue group, so an event is handled by exactly one engine.
type Subscriber struct {
	conn       Conn
	dispatcher Dispatcher
	opts       Options
	logger     *zap.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// Connect dials the NATS server.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("automation-engine"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(conn Conn, d Dispatcher, opts Options, logger *zap.Logger) *Subscriber {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Subscriber{
		conn:       conn,
		dispatcher: d,
		opts:       opts,
		logger:     logger.With(zap.String("component", "events"), zap.String("subject", opts.Subject)),
	}
}

// Start subscribes to the events subject.
func (s *Subscriber) Start() error {
	sub, err := s.conn.QueueSubscribe(s.opts.Subject, s.opts.Queue, s.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.opts.Subject, err)
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	s.logger.Info("listening for automation events", zap.String("queue", s.opts.Queue))
	return nil
}

// Stop drains the subscription so in-flight events finish.
func (s *Subscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}
	err := s.sub.Drain()
	s.sub = nil
	return err
}

func (s *Subscriber) handleMsg(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	body := s.Handle(ctx, msg.Data)

	if msg.Reply != "" {
		if err := s.conn.Publish(msg.Reply, body); err != nil {
			s.logger.Warn("failed to reply to event", zap.Error(err))
		}
	}
	if s.opts.ResultsSubject != "" {
		if err := s.conn.Publish(s.opts.ResultsSubject, body); err != nil {
			s.logger.Warn("failed to publish results", zap.Error(err))
		}
	}
}

// Handle decodes one event, dispatches it and returns the JSON reply: the report, or a
// failure report when the event is invalid or the dispatch fails.
func (s *Subscriber) Handle(ctx context.Context, data []byte) []byte {
	var req domain.DispatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		metrics.RecordEvent("invalid")
		s.logger.Warn("invalid event payload", zap.Error(err))
		return failure(fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
	}

	ev, err := req.ToEvent()
	if err != nil {
		metrics.RecordEvent("invalid")
		s.logger.Warn("invalid event", zap.Error(err))
		return failure(err)
	}

	report, err := s.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		metrics.RecordEvent("failed")
		return failure(err)
	}

	metrics.RecordEvent("dispatched")
	body, err := json.Marshal(report)
	if err != nil {
		return failure(err)
	}
	return body
}

func failure(err error) []byte {
	body, _ := json.Marshal(domain.FailureReport{Success: false, Error: err.Error()})
	return body
}
