// Package nats adapts the mesh transport contract onto NATS: request/reply sends whose
// reply is the delivery receipt, a JetStream stream as the store-and-forward path, and
// a subscription delivering inbound command batches.
package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	apperrors "github.com/allisson/missionhub/internal/errors"
	"github.com/allisson/missionhub/internal/outbound/domain"
)

// ErrNoReceiver is returned by Send when nobody listens on the destination subject.
var ErrNoReceiver = apperrors.New("destination is not reachable")

// Config holds NATS transport configuration.
type Config struct {
	URL               string
	SubjectPrefix     string
	PropagationStream string
	// PropagationMaxAge bounds how long propagated messages wait for pickup.
	PropagationMaxAge time.Duration
	// Identity is sent as the source identity of every outbound message.
	Identity string
}

// InboundHandler processes one command batch. Batches are delivered one at a time in
// arrival order.
type InboundHandler func(ctx context.Context, inbound *Inbound) error

// Transport implements the outbound Transport and PropagationStore contracts.
type Transport struct {
	config Config
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger

	streamMu    sync.Mutex
	streamReady bool
}

// Connect dials the NATS server at cfg.URL.
func Connect(cfg Config, logger *slog.Logger) (*Transport, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Identity),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to connect to nats at %s", cfg.URL)
	}

	t, err := New(conn, cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

// New creates a Transport over an established connection.
func New(conn *nats.Conn, cfg Config, logger *slog.Logger) (*Transport, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create jetstream context")
	}
	return &Transport{config: cfg, conn: conn, js: js, logger: logger}, nil
}

// Subjects of the mesh contract.
func (t *Transport) identitySubject(destination string) string {
	return t.config.SubjectPrefix + ".identity." + destination
}

func (t *Transport) propagationSubject(destination string) string {
	return t.config.SubjectPrefix + ".propagation." + destination
}

func (t *Transport) announceSubject() string {
	return t.config.SubjectPrefix + ".announce"
}

func (t *Transport) commandSubject() string {
	return t.config.SubjectPrefix + ".hub.commands"
}

func (t *Transport) message(subject string, p *domain.Payload) (*nats.Msg, error) {
	data, err := EncodePayload(p)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(HeaderSourceIdentity, t.config.Identity)
	msg.Header.Set(HeaderPayloadID, p.ID)
	return msg, nil
}

// Send delivers p and waits for the receipt until ctx is done.
func (t *Transport) Send(ctx context.Context, p *domain.Payload) error {
	msg, err := t.message(t.identitySubject(p.Destination), p)
	if err != nil {
		return err
	}

	if _, err := t.conn.RequestMsgWithContext(ctx, msg); err != nil {
		if apperrors.Is(err, nats.ErrNoResponders) {
			return apperrors.Wrapf(ErrNoReceiver, "send to %s", p.Destination)
		}
		return apperrors.Wrapf(err, "send to %s", p.Destination)
	}
	return nil
}

// Propagate stores p on the propagation stream for later pickup by its destination.
func (t *Transport) Propagate(ctx context.Context, p *domain.Payload) error {
	if err := t.ensureStream(ctx); err != nil {
		return err
	}

	msg, err := t.message(t.propagationSubject(p.Destination), p)
	if err != nil {
		return err
	}
	if _, err := t.js.PublishMsg(ctx, msg, jetstream.WithMsgID(p.ID)); err != nil {
		return apperrors.Wrapf(err, "failed to propagate payload %s", p.ID)
	}
	return nil
}

func (t *Transport) ensureStream(ctx context.Context) error {
	t.streamMu.Lock()
	defer t.streamMu.Unlock()

	if t.streamReady {
		return nil
	}
	_, err := t.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     t.config.PropagationStream,
		Subjects: []string{t.config.SubjectPrefix + ".propagation.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   t.config.PropagationMaxAge,
	})
	if err != nil {
		return apperrors.Wrapf(err, "failed to create stream %s", t.config.PropagationStream)
	}
	t.streamReady = true
	return nil
}

// Announce publishes the hub's app data.
func (t *Transport) Announce(_ context.Context, appData map[string]any) error {
	data, err := json.Marshal(appData)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode announce")
	}
	msg := nats.NewMsg(t.announceSubject())
	msg.Data = data
	msg.Header.Set(HeaderSourceIdentity, t.config.Identity)
	if err := t.conn.PublishMsg(msg); err != nil {
		return apperrors.Wrap(err, "failed to publish announce")
	}
	return nil
}

// Listen subscribes to inbound command batches and blocks until ctx is done. Malformed
// batches are logged and discarded.
func (t *Transport) Listen(ctx context.Context, handler InboundHandler) error {
	sub, err := t.conn.Subscribe(t.commandSubject(), func(msg *nats.Msg) {
		inbound, err := DecodeInbound(msg)
		if err != nil {
			t.logger.Warn("discarding inbound message",
				slog.String("subject", msg.Subject),
				slog.Any("error", err),
			)
			return
		}
		if err := handler(ctx, inbound); err != nil {
			t.logger.Error("failed to handle inbound batch",
				slog.String("identity", inbound.SenderIdentity),
				slog.Int("commands", len(inbound.Commands)),
				slog.Any("error", err),
			)
		}
		if msg.Reply != "" {
			if err := msg.Respond(nil); err != nil {
				t.logger.Debug("failed to acknowledge inbound batch", slog.Any("error", err))
			}
		}
	})
	if err != nil {
		return apperrors.Wrapf(err, "failed to subscribe to %s", t.commandSubject())
	}

	t.logger.Info("listening for commands", slog.String("subject", t.commandSubject()))
	<-ctx.Done()
	return sub.Drain()
}

// Close drains the connection.
func (t *Transport) Close() error {
	return t.conn.Drain()
}
