package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type fakeEditor struct {
	mu    sync.Mutex
	calls []*bot.EditMessageTextParams
	ctxs  []context.Context
	block chan struct{}
	err   error
	// fail makes the first n calls error before succeeding.
	fail int
}

func (f *fakeEditor) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	f.ctxs = append(f.ctxs, ctx)
	block := f.block
	transient := f.fail > 0
	if transient {
		f.fail--
	}
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if transient {
		return nil, errors.New("temporarily unavailable")
	}
	return &models.Message{}, f.err
}

func (f *fakeEditor) snapshot() ([]*bot.EditMessageTextParams, []context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*bot.EditMessageTextParams{}, f.calls...), append([]context.Context{}, f.ctxs...)
}

func newNotifier(editor MessageEditor) *Notifier {
	return &Notifier{Editor: editor, ChatID: 7, MessageID: 99}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestNotifierProgressDelivers(t *testing.T) {
	editor := &fakeEditor{}
	n := newNotifier(editor)

	n.NotifyProgress(context.Background(), "guess 1", nil)
	waitFor(t, func() bool { calls, _ := editor.snapshot(); return len(calls) == 1 })

	calls, _ := editor.snapshot()
	if calls[0].Text != "guess 1" || calls[0].ChatID != int64(7) || calls[0].MessageID != 99 {
		t.Fatalf("unexpected edit params: %+v", calls[0])
	}
}

func TestNotifierSupersedesPendingUpdate(t *testing.T) {
	editor := &fakeEditor{block: make(chan struct{})}
	n := newNotifier(editor)

	n.NotifyProgress(context.Background(), "guess 1", nil)
	waitFor(t, func() bool { _, ctxs := editor.snapshot(); return len(ctxs) == 1 })

	n.NotifyProgress(context.Background(), "guess 2", nil)

	_, ctxs := editor.snapshot()
	select {
	case <-ctxs[0].Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("first update must be cancelled when superseded")
	}
}

func TestNotifierFinalCancelsPending(t *testing.T) {
	editor := &fakeEditor{block: make(chan struct{})}
	n := newNotifier(editor)

	n.NotifyProgress(context.Background(), "guess 1", nil)
	waitFor(t, func() bool { _, ctxs := editor.snapshot(); return len(ctxs) == 1 })

	editor.mu.Lock()
	editor.block = nil
	editor.mu.Unlock()

	if err := n.NotifyFinal(context.Background(), "final", nil); err != nil {
		t.Fatalf("NotifyFinal() error: %v", err)
	}

	calls, ctxs := editor.snapshot()
	select {
	case <-ctxs[0].Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("pending intermediate must be cancelled before the final update")
	}
	if calls[len(calls)-1].Text != "final" {
		t.Fatalf("last delivered text = %q, want final", calls[len(calls)-1].Text)
	}
}

func TestNotifierFinalRetriesTransientFailure(t *testing.T) {
	editor := &fakeEditor{fail: 1}
	n := newNotifier(editor)

	if err := n.NotifyFinal(context.Background(), "final", nil); err != nil {
		t.Fatalf("a transient failure must be retried, got %v", err)
	}
	calls, _ := editor.snapshot()
	if len(calls) != 2 {
		t.Fatalf("got %d delivery attempts, want 2", len(calls))
	}
	if calls[1].Text != "final" {
		t.Fatalf("retried text = %q, want final", calls[1].Text)
	}
}

func TestNotifierFinalErrorPropagates(t *testing.T) {
	editor := &fakeEditor{err: errors.New("gateway down")}
	n := newNotifier(editor)

	if err := n.NotifyFinal(context.Background(), "final", nil); err == nil {
		t.Fatalf("final delivery failure must propagate")
	}
}

func TestNotifierCancelPendingIdempotent(t *testing.T) {
	n := newNotifier(&fakeEditor{})
	n.CancelPending()
	n.CancelPending()
}
