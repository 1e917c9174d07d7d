package dag

import (
	"fmt"
	"testing"

	"github.com/swingdesk/swingdesk/errors"
)

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 3; i++ {
		h.Append(&ExecutionResult{ID: fmt.Sprintf("run-%d", i)})
	}

	got := h.List(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "run-2" || got[2].ID != "run-0" {
		t.Fatalf("order = %s..%s, want run-2..run-0", got[0].ID, got[2].ID)
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(2)
	for i := 0; i < 4; i++ {
		h.Append(&ExecutionResult{ID: fmt.Sprintf("run-%d", i)})
	}

	if h.Len() != 2 {
		t.Fatalf("len = %d, want 2", h.Len())
	}
	if _, err := h.Get("run-0"); err == nil {
		t.Fatal("run-0 should have been evicted")
	}
	if _, err := h.Get("run-3"); err != nil {
		t.Fatalf("run-3 should be retained: %v", err)
	}
}

func TestHistoryListLimit(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 5; i++ {
		h.Append(&ExecutionResult{ID: fmt.Sprintf("run-%d", i)})
	}

	if got := h.List(2); len(got) != 2 {
		t.Fatalf("List(2) = %d entries, want 2", len(got))
	}
	if got := h.List(100); len(got) != 5 {
		t.Fatalf("List(100) = %d entries, want 5", len(got))
	}
}

func TestHistoryGetUnknown(t *testing.T) {
	h := NewHistory(10)
	_, err := h.Get("missing")
	assertCode(t, err, errors.ErrCodeNotFound)
}
