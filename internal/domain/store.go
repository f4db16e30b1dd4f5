package domain

import (
	"context"
	"time"
)

// OrderStore persists submitted orders.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	UpdateStatus(ctx context.Context, clientID string, status OrderStatus, exchangeID string) error
	GetByClientID(ctx context.Context, clientID string) (Order, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]Order, error)
	ListBefore(ctx context.Context, before time.Time) ([]Order, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditRecord is one append-only entry in the audit trail.
type AuditRecord struct {
	ID        string
	Actor     string // owner address or "system"
	Action    string // e.g. "order.place", "session.init", "approval.set"
	Detail    string // JSON payload
	CreatedAt time.Time
}

// AuditStore persists the append-only audit trail.
type AuditStore interface {
	Append(ctx context.Context, rec AuditRecord) error
	ListBefore(ctx context.Context, before time.Time) ([]AuditRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BlobWriter uploads a blob to object storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// Archiver moves aged records out of hot storage into object storage.
type Archiver interface {
	ArchiveBefore(ctx context.Context, cutoff time.Time) (ArchiveReport, error)
}

// ArchiveReport summarizes one archival run.
type ArchiveReport struct {
	Orders       int
	AuditRecords int
	Keys         []string
}
