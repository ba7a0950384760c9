package handlers

import (
	"fmt"
	"testing"

	"medfetch/internal/types"
)

func TestHistoryRecordNewestFirst(t *testing.T) {
	h := NewHistory(5)
	h.Record(types.HistoryItem{URL: "first"})
	h.Record(types.HistoryItem{URL: "second"})
	h.Record(types.HistoryItem{URL: "third"})

	items := h.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].URL != "third" || items[2].URL != "first" {
		t.Errorf("order = [%s %s %s], want newest first", items[0].URL, items[1].URL, items[2].URL)
	}
}

func TestHistoryCapsSize(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 10; i++ {
		h.Record(types.HistoryItem{URL: fmt.Sprintf("url-%d", i)})
	}

	items := h.Items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].URL != "url-9" {
		t.Errorf("newest = %q, want url-9", items[0].URL)
	}
	if items[2].URL != "url-7" {
		t.Errorf("oldest kept = %q, want url-7", items[2].URL)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(5)
	h.Record(types.HistoryItem{URL: "a"})
	h.Clear()

	if len(h.Items()) != 0 {
		t.Error("Clear() left items behind")
	}
}

func TestHistoryItemsReturnsCopy(t *testing.T) {
	h := NewHistory(5)
	h.Record(types.HistoryItem{URL: "a"})

	items := h.Items()
	items[0].URL = "mutated"

	if h.Items()[0].URL != "a" {
		t.Error("Items() must return a copy, not the backing slice")
	}
}
