// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/registrar/internal/config"
	registryimport "github.com/tomtom215/registrar/internal/import"
	"github.com/tomtom215/registrar/internal/metrics"
)

// Listener receives change notifications.
type Listener struct {
	subscriber message.Subscriber
	subjects   Subjects
	logger     watermill.LoggerAdapter
}

// NewListener connects to url.
func NewListener(url string, cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*Listener, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   5 * time.Second,
		NatsOptions:      natsOptions(cfg, logger, "listener"),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Listener{
		subscriber: sub,
		subjects:   Subjects{Prefix: cfg.SubjectPrefix},
		logger:     logger,
	}, nil
}

// Watch calls onChange for every notification about one session until
// ctx is done.
func (l *Listener) Watch(ctx context.Context, year int, sessionID string, onChange func(subject string)) error {
	subject := l.subjects.Watch(year, sessionID)
	messages, err := l.subscriber.Subscribe(ctx, subject)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			metrics.RecordNotification("received")
			onChange(msg.Metadata.Get("kind"))
			msg.Ack()
		}
	}
}

// Close shuts the listener down.
func (l *Listener) Close() error {
	return l.subscriber.Close()
}

// Follower keeps a Listener watching whichever session the driver is
// running and refreshes the reporter on every notification.
type Follower struct {
	listener *Listener
	src      registryimport.SnapshotSource
	refresh  func()
	poll     time.Duration
}

// NewFollower creates a Follower. poll <= 0 means one second.
func NewFollower(l *Listener, src registryimport.SnapshotSource, refresh func(), poll time.Duration) *Follower {
	if poll <= 0 {
		poll = time.Second
	}
	return &Follower{listener: l, src: src, refresh: refresh, poll: poll}
}

// Serve implements suture.Service.
func (f *Follower) Serve(ctx context.Context) error {
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	var (
		watching string
		stop     context.CancelFunc = func() {}
		failed   = make(chan string, 1)
	)
	defer func() { stop() }()

	for {
		s, _ := f.src.Snapshot()
		want := ""
		if s != nil && !s.Status.Terminal() {
			want = s.ID
		}

		if want != watching {
			stop()
			stop = func() {}
			watching = want
			if want != "" {
				var watchCtx context.Context
				watchCtx, stop = context.WithCancel(ctx)
				year, id := s.Year, s.ID
				go func() {
					err := f.listener.Watch(watchCtx, year, id, func(string) { f.refresh() })
					if err != nil && watchCtx.Err() == nil {
						f.listener.logger.Error("Import notification watch ended", err, watermill.LogFields{"session_id": id})
						select {
						case failed <- id:
						default:
						}
					}
				}()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-failed:
			// Resubscribe on the next pass.
			if id == watching {
				stop()
				stop = func() {}
				watching = ""
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		case <-ticker.C:
		}
	}
}

func (f *Follower) String() string { return "notify-follower" }
