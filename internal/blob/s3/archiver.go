package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gameverse/tradecore/internal/domain"
)

// ArchiveImpl implements domain.Archiver. It moves aged order and audit
// records out of the hot PostgreSQL stores into JSONL files in object
// storage, partitioned by the year-month of the cutoff.
//
// Records are deleted from the primary store only after their archive file
// has been uploaded; a failed upload leaves the rows in place for the next
// run.
type ArchiveImpl struct {
	writer domain.BlobWriter
	orders domain.OrderStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, orders domain.OrderStore, audit domain.AuditStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		orders: orders,
		audit:  audit,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveBefore archives every order and audit record created before the
// cutoff and removes them from the hot stores. It returns a report with the
// archived counts and the object keys written.
func (a *ArchiveImpl) ArchiveBefore(ctx context.Context, cutoff time.Time) (domain.ArchiveReport, error) {
	var report domain.ArchiveReport

	orderCount, orderKey, err := a.archiveOrders(ctx, cutoff)
	if err != nil {
		return report, err
	}
	report.Orders = orderCount
	if orderKey != "" {
		report.Keys = append(report.Keys, orderKey)
	}

	auditCount, auditKey, err := a.archiveAudit(ctx, cutoff)
	if err != nil {
		return report, err
	}
	report.AuditRecords = auditCount
	if auditKey != "" {
		report.Keys = append(report.Keys, auditKey)
	}

	a.logger.Info("archive run complete",
		slog.Int("orders", report.Orders),
		slog.Int("audit_records", report.AuditRecords),
		slog.String("cutoff", cutoff.Format(time.RFC3339)),
	)
	return report, nil
}

func (a *ArchiveImpl) archiveOrders(ctx context.Context, cutoff time.Time) (int, string, error) {
	orders, err := a.orders.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, "", fmt.Errorf("s3blob: archive orders query: %w", err)
	}
	if len(orders) == 0 {
		return 0, "", nil
	}

	buf, err := marshalJSONL(orders)
	if err != nil {
		return 0, "", fmt.Errorf("s3blob: archive orders marshal: %w", err)
	}

	key := archiveKey("orders", cutoff)
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, "", fmt.Errorf("s3blob: archive orders upload: %w", err)
	}

	deleted, err := a.orders.DeleteBefore(ctx, cutoff)
	if err != nil {
		return len(orders), key, fmt.Errorf("s3blob: archive orders delete: %w", err)
	}
	if deleted != int64(len(orders)) {
		a.logger.Warn("archived and deleted counts differ",
			slog.Int("archived", len(orders)),
			slog.Int64("deleted", deleted),
		)
	}
	return len(orders), key, nil
}

func (a *ArchiveImpl) archiveAudit(ctx context.Context, cutoff time.Time) (int, string, error) {
	records, err := a.audit.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, "", fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(records) == 0 {
		return 0, "", nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, "", fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	key := archiveKey("audit", cutoff)
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, "", fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	if _, err := a.audit.DeleteBefore(ctx, cutoff); err != nil {
		return len(records), key, fmt.Errorf("s3blob: archive audit delete: %w", err)
	}
	return len(records), key, nil
}

// archiveKey builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/orders/2026-08.jsonl
//	archive/audit/2026-08.jsonl
func archiveKey(kind string, cutoff time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, cutoff.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
