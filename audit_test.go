package portalauth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(4)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)
	defer d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogin, Subject: "maria.quispe@unica.edu.pe", Success: true})

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLogin {
			t.Fatalf("event type = %q, want %q", event.EventType, auditEventLogin)
		}
		if event.Subject != "maria.quispe@unica.edu.pe" {
			t.Fatalf("subject = %q", event.Subject)
		}
	case <-time.After(time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled config must return a nil dispatcher")
	}

	// nil dispatchers are safe everywhere they are used.
	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogin})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestDispatcherCloseDrains(t *testing.T) {
	sink := NewChannelSink(64)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 64}, sink)

	const emitted = 16
	for i := 0; i < emitted; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventRestore})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
		default:
			if received != emitted {
				t.Fatalf("received %d events after Close, want %d", received, emitted)
			}
			return
		}
	}
}

type blockedSink struct {
	release chan struct{}
}

func (s *blockedSink) Emit(ctx context.Context, event AuditEvent) {
	<-s.release
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockedSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 8; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventLogin})
	}
	if d.Dropped() == 0 {
		t.Fatal("full buffer with a blocked sink dropped nothing")
	}

	close(sink.release)
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now(),
		EventType: auditEventRecoveryReset,
		Subject:   "maria.quispe@unica.edu.pe",
		Success:   false,
		Error:     "provider down",
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output is not one JSON object per line: %v", err)
	}
	if decoded.EventType != auditEventRecoveryReset || decoded.Error != "provider down" {
		t.Fatalf("decoded event = %+v", decoded)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogin, Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogin, Success: false, Error: "rejected"})

	out := buf.String()
	if !strings.Contains(out, `"level":"INFO"`) {
		t.Fatalf("success event not logged at Info: %s", out)
	}
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("failure event not logged at Warn: %s", out)
	}
	if !strings.Contains(out, `"error":"rejected"`) {
		t.Fatalf("error attribute missing: %s", out)
	}
}
