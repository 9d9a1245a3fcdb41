package natskv

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/toastx/shredr-fun/internal/port/cache/cachetest"
)

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		key      string
		verbatim bool
	}{
		{"blob.3f8a2c1e-0b7d-4a52-9a8e-1c2d3e4f5a6b", true},
		{"idem/abc_123=", true},
		{"has space", false},
		{"star*", false},
		{".leading", false},
		{"trailing.", false},
	}
	for _, tt := range tests {
		got := encodeKey(tt.key)
		if (got == tt.key) != tt.verbatim {
			t.Errorf("encodeKey(%q) = %q, verbatim want %v", tt.key, got, tt.verbatim)
		}
		if !tt.verbatim && !strings.HasPrefix(got, "b64_") {
			t.Errorf("encodeKey(%q) = %q, want b64_ prefix", tt.key, got)
		}
	}
}

func TestCache_Compliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	ctx := context.Background()
	c, err := Open(ctx, js, "test-natskv", time.Minute)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = js.DeleteKeyValue(ctx, "test-natskv") })

	cachetest.RunComplianceTests(t, c)
}
