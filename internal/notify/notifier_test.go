package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type stubSender struct {
	name  string
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, title, message string) error {
	s.calls++
	return s.err
}

func (s *stubSender) Name() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFansOutToAllSenders(t *testing.T) {
	a := &stubSender{name: "a"}
	b := &stubSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	if err := n.Notify(context.Background(), "market_resolved", "t", "m"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.calls, b.calls)
	}
}

func TestNotifyFiltersEvents(t *testing.T) {
	s := &stubSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{"market_resolved"}, testLogger())

	if err := n.Notify(context.Background(), "market_created", "t", "m"); err != nil {
		t.Fatalf("Notify filtered event: %v", err)
	}
	if s.calls != 0 {
		t.Errorf("filtered event reached sender")
	}

	if err := n.Notify(context.Background(), "market_resolved", "t", "m"); err != nil {
		t.Fatalf("Notify allowed event: %v", err)
	}
	if s.calls != 1 {
		t.Errorf("allowed event did not reach sender")
	}
}

func TestNotifyCollectsFailuresWithoutBlockingOthers(t *testing.T) {
	bad := &stubSender{name: "bad", err: errors.New("webhook 500")}
	good := &stubSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), "market_resolved", "t", "m")
	if err == nil {
		t.Fatal("Notify returned nil despite a failing sender")
	}
	if good.calls != 1 {
		t.Errorf("healthy sender skipped after failure")
	}
}
