// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/registrar/internal/config"
	registryimport "github.com/tomtom215/registrar/internal/import"
	"github.com/tomtom215/registrar/internal/metrics"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("publisher is closed")

// Kinds of change.
const (
	KindRows    = "rows"
	KindSession = "session"
)

// Notice is the payload of a change notification.
type Notice struct {
	SessionID     string    `json:"sessionId"`
	Year          int       `json:"year"`
	Kind          string    `json:"kind"`
	Event         string    `json:"event,omitempty"`
	Status        string    `json:"status,omitempty"`
	ProcessedRows int       `json:"processedRows"`
	At            time.Time `json:"at"`
}

// natsOptions are the connection options shared by publisher and listener.
func natsOptions(cfg *config.NATSConfig, logger watermill.LoggerAdapter, role string) []natsgo.Option {
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	return []natsgo.Option{
		natsgo.Name("registrar-" + role),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, watermill.LogFields{"role": role})
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"role": role, "url": nc.ConnectedUrl()})
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			fields := watermill.LogFields{"role": role}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			logger.Error("NATS error", err, fields)
		}),
	}
}

// Publisher sends change notifications over core NATS.
type Publisher struct {
	publisher message.Publisher
	subjects  Subjects
	logger    watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewPublisher connects to url.
func NewPublisher(url string, cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(cfg, logger, "publisher"),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher: pub,
		subjects:  Subjects{Prefix: cfg.SubjectPrefix},
		logger:    logger,
	}, nil
}

// Subjects returns the subject scheme in use.
func (p *Publisher) Subjects() Subjects {
	return p.subjects
}

func (p *Publisher) publish(subject string, n Notice) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("session_id", n.SessionID)
	msg.Metadata.Set("kind", n.Kind)

	if err := p.publisher.Publish(subject, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	metrics.RecordNotification("published")
	return nil
}

// PublishSessionChanged announces a session state change.
func (p *Publisher) PublishSessionChanged(_ context.Context, s *registryimport.Session, event string) error {
	return p.publish(p.subjects.Session(s.Year, s.ID), Notice{
		SessionID:     s.ID,
		Year:          s.Year,
		Kind:          KindSession,
		Event:         event,
		Status:        string(s.Status),
		ProcessedRows: s.ProcessedRows,
		At:            time.Now().UTC(),
	})
}

// PublishRowsChanged announces that rows were written for a session.
func (p *Publisher) PublishRowsChanged(_ context.Context, year int, sessionID string, processedRows int) error {
	return p.publish(p.subjects.Rows(year, sessionID), Notice{
		SessionID:     sessionID,
		Year:          year,
		Kind:          KindRows,
		ProcessedRows: processedRows,
		At:            time.Now().UTC(),
	})
}

// Observe is a driver observer: acknowledged batches go out as row
// changes, everything else as session changes. Failures are logged only.
func (p *Publisher) Observe(ev registryimport.Event) {
	if ev.Session == nil {
		return
	}
	var err error
	if ev.Type == registryimport.EventBatchAcknowledged {
		err = p.PublishRowsChanged(context.Background(), ev.Session.Year, ev.Session.ID, ev.Session.ProcessedRows)
	} else {
		err = p.PublishSessionChanged(context.Background(), ev.Session, string(ev.Type))
	}
	if err != nil && !errors.Is(err, ErrClosed) {
		p.logger.Error("Failed to publish import notification", err, watermill.LogFields{
			"session_id": ev.Session.ID,
			"event":      string(ev.Type),
		})
	}
}

// Close shuts the publisher down.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
