// Package events publishes catalog events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/JonMunkholm/catalog/internal/importer"
)

// Event types.
const (
	ImportCompleted = "catalog.import.completed"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}

// ImportCompletedEvent is published after every import run.
type ImportCompletedEvent struct {
	EventType    string                     `json:"eventType"`
	RunID        string                     `json:"runId"`
	SuccessCount int                        `json:"successCount"`
	FailureCount int                        `json:"failureCount"`
	Cancelled    bool                       `json:"cancelled"`
	Products     []importer.ImportedProduct `json:"products"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// Publisher sends events on fixed subjects.
type Publisher struct {
	conn          Conn
	importSubject string
	now           func() time.Time
}

// NewPublisher publishes import events on importSubject, or ImportCompleted when empty.
func NewPublisher(conn Conn, importSubject string) *Publisher {
	if importSubject == "" {
		importSubject = ImportCompleted
	}
	return &Publisher{conn: conn, importSubject: importSubject, now: time.Now}
}

// PublishImport sends the outcome of one run.
func (p *Publisher) PublishImport(ctx context.Context, out importer.Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ImportCompletedEvent{
		EventType:    ImportCompleted,
		RunID:        out.RunID,
		SuccessCount: out.SuccessCount,
		FailureCount: out.FailureCount,
		Cancelled:    out.Cancelled,
		Products:     out.Products,
		Timestamp:    p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal import event: %w", err)
	}
	if err := p.conn.Publish(p.importSubject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.importSubject, err)
	}
	return nil
}

// ImportHook adapts PublishImport to an importer hook. Failures are logged;
// the import result is already final.
func (p *Publisher) ImportHook() importer.Hook {
	return func(ctx context.Context, out importer.Outcome) {
		if err := p.PublishImport(ctx, out); err != nil {
			slog.Warn("import event not published", "run_id", out.RunID, "error", err)
		}
	}
}
