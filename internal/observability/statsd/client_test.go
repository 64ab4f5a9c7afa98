package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestFormatTags(t *testing.T) {
	t.Parallel()

	tags := map[string]string{
		"result": " success ",
		"":       "ignored",
		// Intentionally padded key to ensure trimming logic works.
		" env ": "prod",
	}

	got := formatTags(tags)
	want := "|#env:prod,result:success"

	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := formatTags(nil); got != "" {
		t.Fatalf("formatTags(nil) = %q, want empty string", got)
	}
	if got := formatTags(map[string]string{"": "x"}); got != "" {
		t.Fatalf("formatTags with only empty keys = %q, want empty string", got)
	}
}

func TestClientEmitsLines(t *testing.T) {
	t.Parallel()

	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	listener, err := net.ListenUDP("udp", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	client, err := NewClient(Config{
		Enabled: true,
		Address: listener.LocalAddr().String(),
		Prefix:  " .chemcat. ",
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	client.Count("session.signin", 1, map[string]string{"ok": "true"})
	client.Timing("viewer.mount", 250*time.Millisecond, nil)

	want := []string{
		"chemcat.session.signin:1|c|#ok:true",
		"chemcat.viewer.mount:250|ms",
	}
	for _, expected := range want {
		_ = listener.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 512)
		n, _, err := listener.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got := string(buf[:n]); got != expected {
			t.Fatalf("unexpected line\n got: %q\nwant: %q", got, expected)
		}
	}
}

func TestClientDropsEmptyNames(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{enabled: true, conn: clientConn}

	// A write would block forever on the unread pipe, so the only way this
	// returns is the empty-name guard.
	client.Count("  .  ", 1, nil)

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestClientClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{enabled: true, conn: clientConn}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Closed clients drop silently.
	client.Count("session.signin", 1, nil)

	// Verify Close can be called again without error.
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	nilClient.Timing("x", time.Second, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	// Disabled clients swallow writes without a connection.
	client.Count("session.signin", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
