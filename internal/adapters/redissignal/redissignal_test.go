package redissignal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemcat/chemcat-cli/internal/ports"
	"github.com/chemcat/chemcat-cli/internal/testutil"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		payload string
		want    ports.SignalKind
	}{
		{"focus", ports.SignalFocus},
		{" focus ", ports.SignalFocus},
		{"visible", ports.SignalVisible},
		{"snapshot", ports.SignalSnapshot},
		{"", ports.SignalSnapshot},
		{"garbage", ports.SignalSnapshot},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSignal(tt.payload).Kind, "payload %q", tt.payload)
	}
}

func TestSplitPayload(t *testing.T) {
	tests := []struct {
		payload string
		kind    string
		origin  string
	}{
		{"snapshot 4f2c", "snapshot", "4f2c"},
		{"snapshot", "snapshot", ""},
		{"  focus   abc  ", "focus", "abc"},
		{"", "", ""},
	}

	for _, tt := range tests {
		kind, origin := splitPayload(tt.payload)
		assert.Equal(t, tt.kind, kind, "payload %q", tt.payload)
		assert.Equal(t, tt.origin, origin, "payload %q", tt.payload)
	}
}

func TestNotifierRoundTrip(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	channel := fmt.Sprintf("chemcat:test:%d", time.Now().UnixNano())
	ctx := context.Background()

	pub := NewNotifier(ctx, client, channel, nil)
	defer func() { _ = pub.Close() }()
	sub := NewNotifier(ctx, client, channel, nil)
	defer func() { _ = sub.Close() }()

	// Subscription setup races the first publish; retry until it lands.
	var sig ports.Signal
	require.Eventually(t, func() bool {
		require.NoError(t, pub.Publish(ctx, ports.Signal{Kind: ports.SignalSnapshot}))
		select {
		case sig = <-sub.Subscribe():
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, ports.SignalSnapshot, sig.Kind)
}

func TestNotifierIgnoresOwnPublishes(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	channel := fmt.Sprintf("chemcat:test:%d", time.Now().UnixNano())
	ctx := context.Background()

	n := NewNotifier(ctx, client, channel, nil)
	defer func() { _ = n.Close() }()

	// Publish through the notifier first, then a bare payload from another
	// writer. The bare payload is the only one that may arrive: if the
	// notifier delivered its own focus publish it would land first and the
	// kind assertion below would catch it.
	var sig ports.Signal
	require.Eventually(t, func() bool {
		require.NoError(t, n.Publish(ctx, ports.Signal{Kind: ports.SignalFocus}))
		require.NoError(t, client.Publish(ctx, channel, string(ports.SignalSnapshot)).Err())
		select {
		case sig = <-n.Subscribe():
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, ports.SignalSnapshot, sig.Kind)
}

func TestNotifierCloseIsIdempotent(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	channel := fmt.Sprintf("chemcat:test:%d", time.Now().UnixNano())

	n := NewNotifier(context.Background(), client, channel, nil)

	require.NoError(t, n.Close())
	require.NoError(t, n.Close())

	// The signal channel drains and closes with the pump.
	require.Eventually(t, func() bool {
		select {
		case _, open := <-n.Subscribe():
			return !open
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}
