package notifier

import "testing"

func TestAtomicCancellationStartsUncancelled(t *testing.T) {
	c := NewAtomicCancellation()
	if c.Cancelled() {
		t.Fatal("expected fresh token to report not cancelled")
	}
}

func TestAtomicCancellationCancelIsIdempotent(t *testing.T) {
	c := NewAtomicCancellation()
	c.Cancel()
	c.Cancel()
	if !c.Cancelled() {
		t.Fatal("expected cancelled after Cancel()")
	}
}

func TestNoopNotifierDoesNotPanic(t *testing.T) {
	var n NoopNotifier
	n.Tick()
	n.Log("IDS_TEST", 1, 2)
	n.Error("IDS_TEST", "f.wav", nil)
}
