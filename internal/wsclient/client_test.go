package wsclient

import "testing"

func TestNewClientDefaultsBufferSize(t *testing.T) {
	c := newClient(ClientConfig{URL: "wss://example.invalid"})
	if cap(c.messages) != 1000 {
		t.Errorf("messages buffer capacity = %d, want default 1000", cap(c.messages))
	}
}

func TestClientNotConnectedBeforeDial(t *testing.T) {
	c := newClient(ClientConfig{URL: "wss://example.invalid"})
	if c.isConnected() {
		t.Error("a freshly constructed client must not report connected")
	}
}

func TestSendTransportFailsWhenNotConnected(t *testing.T) {
	c := newClient(ClientConfig{URL: "wss://example.invalid"})
	if err := c.sendTransport([]byte("2")); err != ErrNotConnected {
		t.Errorf("sendTransport() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseIsIdempotentWithoutADial(t *testing.T) {
	c := newClient(ClientConfig{URL: "wss://example.invalid"})
	if err := c.close(); err != nil {
		t.Fatalf("first close() error = %v", err)
	}
	if err := c.close(); err != nil {
		t.Fatalf("second close() error = %v, want nil (idempotent)", err)
	}
}
