package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// archiveBatchSize caps how many markets one archive run pulls per page.
const archiveBatchSize = 500

// multipartThreshold is the payload size at which uploads switch from a
// single PutObject to the multipart manager. Two minimum-size parts.
const multipartThreshold = 2 * minPartSize

// BlobWriter is the slice of the writer the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// MarketArchiveStore provides read access to settled markets for archival.
type MarketArchiveStore interface {
	ListResolvedBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Market, error)
}

// Archiver copies markets that settled before a cutoff to object storage as
// JSONL, partitioned by year-month. Records are not deleted from the primary
// store; pruning is a separate, explicit operation run after the archive has
// been verified.
type Archiver struct {
	writer      BlobWriter
	markets     MarketArchiveStore
	after       time.Duration
	interval    time.Duration
	multipartAt int64
	now         func() time.Time
	logger      *slog.Logger
}

// NewArchiver creates an Archiver. after is how long markets stay in the hot
// ledger once resolved; interval is how often Run repeats.
func NewArchiver(writer BlobWriter, markets MarketArchiveStore, after, interval time.Duration, logger *slog.Logger) *Archiver {
	if after <= 0 {
		after = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Archiver{
		writer:      writer,
		markets:     markets,
		after:       after,
		interval:    interval,
		multipartAt: multipartThreshold,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "archiver")),
	}
}

// Run blocks until ctx is cancelled, archiving once immediately and then on
// every tick. Archive errors are logged, never fatal.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "archiver starting",
		slog.Duration("after", a.after),
		slog.Duration("interval", a.interval),
	)

	a.runOnce(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			a.runOnce(ctx)
		}
	}
}

func (a *Archiver) runOnce(ctx context.Context) {
	cutoff := a.now().Add(-a.after)
	count, err := a.ArchiveResolved(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "archive run failed",
			slog.Int("archived", count),
			slog.String("error", err.Error()),
		)
		return
	}
	if count > 0 {
		a.logger.InfoContext(ctx, "archived settled markets",
			slog.Int("archived", count),
			slog.Time("cutoff", cutoff),
		)
	}
}

// ArchiveResolved uploads every market settled before the cutoff to
// archive/markets/YYYY-MM.jsonl and returns the number of markets archived.
func (a *Archiver) ArchiveResolved(ctx context.Context, cutoff time.Time) (int, error) {
	var all []domain.Market
	opts := domain.ListOpts{Limit: archiveBatchSize}

	for {
		page, err := a.markets.ListResolvedBefore(ctx, cutoff, opts)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive query: %w", err)
		}
		all = append(all, page...)
		if len(page) < archiveBatchSize {
			break
		}
		opts.Offset += archiveBatchSize
	}
	if len(all) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(all)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(cutoff)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}
	return len(all), nil
}

// upload routes large payloads through the multipart manager so a month of
// archives does not hit the single-shot object size limit.
func (a *Archiver) upload(ctx context.Context, path string, buf []byte) error {
	const contentType = "application/x-ndjson"
	if int64(len(buf)) >= a.multipartAt {
		return a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), contentType, minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(buf), contentType)
}

// archivePath builds the object key, partitioned by the cutoff's year-month:
//
//	archive/markets/2026-08.jsonl
func archivePath(cutoff time.Time) string {
	return fmt.Sprintf("archive/markets/%s.jsonl", cutoff.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
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
