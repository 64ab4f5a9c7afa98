package redissignal

// Package redissignal provides a Redis pub/sub ChangeNotifier. It is the
// cross-process analog of the original client's cross-tab storage event:
// a sign-out in one process is observed by every subscribed process.

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chemcat/chemcat-cli/internal/ports"
)

// Notifier subscribes to a Redis channel and converts messages into refresh
// signals. It also publishes local snapshot changes to the same channel.
// Published payloads are tagged with the notifier's instance ID; the pump
// drops messages carrying its own tag, so a process never reacts to a change
// it announced itself.
type Notifier struct {
	client  redis.UniversalClient
	channel string
	id      string
	logger  *slog.Logger

	pubsub *redis.PubSub
	out    chan ports.Signal

	closeOnce sync.Once
	done      chan struct{}
}

var (
	_ ports.ChangeNotifier  = (*Notifier)(nil)
	_ ports.ChangePublisher = (*Notifier)(nil)
)

// NewNotifier starts listening on the given channel.
func NewNotifier(ctx context.Context, client redis.UniversalClient, channel string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		client:  client,
		channel: channel,
		id:      uuid.NewString(),
		logger:  logger,
		pubsub:  client.Subscribe(ctx, channel),
		out:     make(chan ports.Signal, 8),
		done:    make(chan struct{}),
	}
	go n.pump()
	return n
}

// pump converts pub/sub messages into signals, dropping when the consumer
// lags: reconciliation is idempotent, so a dropped signal costs nothing once
// a later one lands.
func (n *Notifier) pump() {
	defer close(n.out)
	ch := n.pubsub.Channel()
	for {
		select {
		case <-n.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			kind, origin := splitPayload(msg.Payload)
			if origin == n.id {
				continue
			}
			sig := parseSignal(kind)
			select {
			case n.out <- sig:
			default:
				n.logger.Debug("dropping refresh signal", "kind", sig.Kind)
			}
		}
	}
}

// Subscribe returns the signal channel. It is closed when the notifier stops.
func (n *Notifier) Subscribe() <-chan ports.Signal { return n.out }

// Publish broadcasts a signal to every other subscribed process. The payload
// carries this notifier's instance ID so its own subscription skips it.
func (n *Notifier) Publish(ctx context.Context, sig ports.Signal) error {
	return n.client.Publish(ctx, n.channel, string(sig.Kind)+" "+n.id).Err()
}

// Close stops the notifier. Safe to call more than once.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		err = n.pubsub.Close()
	})
	return err
}

// splitPayload separates "<kind> <origin>". Payloads without an origin tag,
// published by hand or by older clients, are never filtered.
func splitPayload(payload string) (kind, origin string) {
	fields := strings.Fields(payload)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

func parseSignal(payload string) ports.Signal {
	switch ports.SignalKind(strings.TrimSpace(payload)) {
	case ports.SignalFocus:
		return ports.Signal{Kind: ports.SignalFocus}
	case ports.SignalVisible:
		return ports.Signal{Kind: ports.SignalVisible}
	default:
		return ports.Signal{Kind: ports.SignalSnapshot}
	}
}
