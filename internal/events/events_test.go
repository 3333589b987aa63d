package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/catalog/internal/importer"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

// ============================================================================
// Publisher Tests
// ============================================================================

func TestPublishImport(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "")
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	out := importer.Outcome{
		RunID:        "run-1",
		SuccessCount: 2,
		FailureCount: 1,
		Products:     []importer.ImportedProduct{{Line: 2, ID: "p1", Slug: "widget-a", SKU: "SKU-1"}},
	}
	if err := p.PublishImport(context.Background(), out); err != nil {
		t.Fatalf("PublishImport() error = %v", err)
	}

	if len(conn.subjects) != 1 || conn.subjects[0] != ImportCompleted {
		t.Fatalf("subjects = %v", conn.subjects)
	}
	var ev ImportCompletedEvent
	if err := json.Unmarshal(conn.payloads[0], &ev); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ev.RunID != "run-1" || ev.SuccessCount != 2 || ev.FailureCount != 1 || ev.EventType != ImportCompleted {
		t.Errorf("event = %+v", ev)
	}
	if len(ev.Products) != 1 || ev.Products[0].Slug != "widget-a" {
		t.Errorf("products = %+v", ev.Products)
	}
	if !ev.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", ev.Timestamp)
	}
}

func TestPublishImport_CustomSubject(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "shop.imports")

	if err := p.PublishImport(context.Background(), importer.Outcome{RunID: "r"}); err != nil {
		t.Fatalf("PublishImport() error = %v", err)
	}
	if conn.subjects[0] != "shop.imports" {
		t.Errorf("subject = %q", conn.subjects[0])
	}
}

func TestPublishImport_Errors(t *testing.T) {
	boom := errors.New("nats: connection closed")
	p := NewPublisher(&recordingConn{err: boom}, "")

	if err := p.PublishImport(context.Background(), importer.Outcome{}); !errors.Is(err, boom) {
		t.Errorf("PublishImport() error = %v, want wrapped %v", err, boom)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.PublishImport(ctx, importer.Outcome{}); !errors.Is(err, context.Canceled) {
		t.Errorf("PublishImport() error = %v, want context.Canceled", err)
	}

	// The hook swallows the error.
	p.ImportHook()(context.Background(), importer.Outcome{RunID: "r"})
}
