package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dluxlabs/safetymarket/internal/domain"
)

// stubWriter records uploads instead of talking to S3.
type stubWriter struct {
	puts       []stubUpload
	multiparts []stubUpload
}

type stubUpload struct {
	path        string
	contentType string
	body        []byte
}

func (w *stubWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts = append(w.puts, stubUpload{path: path, contentType: contentType, body: body})
	return nil
}

func (w *stubWriter) PutMultipart(_ context.Context, path string, data io.Reader, contentType string, _ int64) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.multiparts = append(w.multiparts, stubUpload{path: path, contentType: contentType, body: body})
	return nil
}

// stubArchiveStore serves ListResolvedBefore pages from a slice, recording
// the offsets queried.
type stubArchiveStore struct {
	markets []domain.Market
	offsets []int
}

func (s *stubArchiveStore) ListResolvedBefore(_ context.Context, _ time.Time, opts domain.ListOpts) ([]domain.Market, error) {
	s.offsets = append(s.offsets, opts.Offset)
	if opts.Offset >= len(s.markets) {
		return nil, nil
	}
	end := opts.Offset + opts.Limit
	if opts.Limit <= 0 || end > len(s.markets) {
		end = len(s.markets)
	}
	return s.markets[opts.Offset:end], nil
}

func archiveTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resolvedMarket(id string, resolvedAt time.Time) domain.Market {
	return domain.Market{
		ID:         id,
		DAppID:     "dapp-1",
		Status:     domain.MarketStatusResolved,
		Resolution: domain.SideUnsafe,
		ResolvedAt: &resolvedAt,
	}
}

func TestArchiveResolvedUploadsJSONL(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	writer := &stubWriter{}
	store := &stubArchiveStore{markets: []domain.Market{
		resolvedMarket("pm_a", base),
		resolvedMarket("pm_b", base.Add(time.Hour)),
	}}
	a := NewArchiver(writer, store, 0, 0, archiveTestLogger())

	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	count, err := a.ArchiveResolved(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveResolved: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if len(writer.puts) != 1 || len(writer.multiparts) != 0 {
		t.Fatalf("uploads = %d put / %d multipart, want 1/0",
			len(writer.puts), len(writer.multiparts))
	}

	up := writer.puts[0]
	if up.path != "archive/markets/2026-09.jsonl" {
		t.Errorf("path = %q", up.path)
	}
	if up.contentType != "application/x-ndjson" {
		t.Errorf("content type = %q", up.contentType)
	}

	var lines int
	sc := bufio.NewScanner(bytes.NewReader(up.body))
	for sc.Scan() {
		var m domain.Market
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %d not valid JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("jsonl lines = %d, want 2", lines)
	}
}

func TestArchiveResolvedPaginates(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &stubArchiveStore{}
	for i := 0; i < archiveBatchSize+1; i++ {
		store.markets = append(store.markets,
			resolvedMarket("pm_"+string(rune('a'+i%26)), base))
	}
	writer := &stubWriter{}
	a := NewArchiver(writer, store, 0, 0, archiveTestLogger())

	count, err := a.ArchiveResolved(context.Background(), base.Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("ArchiveResolved: %v", err)
	}
	if count != archiveBatchSize+1 {
		t.Errorf("count = %d, want %d", count, archiveBatchSize+1)
	}
	if len(store.offsets) != 2 || store.offsets[0] != 0 || store.offsets[1] != archiveBatchSize {
		t.Errorf("offsets = %v, want [0 %d]", store.offsets, archiveBatchSize)
	}
	if len(writer.puts)+len(writer.multiparts) != 1 {
		t.Errorf("uploads = %d, want exactly 1", len(writer.puts)+len(writer.multiparts))
	}
}

func TestArchiveResolvedLargePayloadGoesMultipart(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	writer := &stubWriter{}
	store := &stubArchiveStore{markets: []domain.Market{
		resolvedMarket("pm_a", base),
	}}
	a := NewArchiver(writer, store, 0, 0, archiveTestLogger())
	a.multipartAt = 1 // force the multipart path without a 10 MiB fixture

	if _, err := a.ArchiveResolved(context.Background(), base.Add(time.Hour)); err != nil {
		t.Fatalf("ArchiveResolved: %v", err)
	}
	if len(writer.multiparts) != 1 || len(writer.puts) != 0 {
		t.Errorf("uploads = %d put / %d multipart, want 0/1",
			len(writer.puts), len(writer.multiparts))
	}
	if got := writer.multiparts[0].contentType; got != "application/x-ndjson" {
		t.Errorf("content type = %q", got)
	}
}

func TestArchiveResolvedNothingToArchive(t *testing.T) {
	writer := &stubWriter{}
	a := NewArchiver(writer, &stubArchiveStore{}, 0, 0, archiveTestLogger())

	count, err := a.ArchiveResolved(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchiveResolved: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if len(writer.puts)+len(writer.multiparts) != 0 {
		t.Errorf("empty run uploaded %d objects", len(writer.puts)+len(writer.multiparts))
	}
}
