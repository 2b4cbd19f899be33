package model

import "testing"

func TestListStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from ListStatus
		to   ListStatus
		want bool
	}{
		{"active to completed", ListActive, ListCompleted, true},
		{"active to archived", ListActive, ListArchived, true},
		{"active to deleted", ListActive, ListDeleted, true},
		{"completed back to active", ListCompleted, ListActive, true},
		{"archived back to active", ListArchived, ListActive, true},
		{"archived to completed is illegal", ListArchived, ListCompleted, false},
		{"deleted is terminal: to active", ListDeleted, ListActive, false},
		{"deleted is terminal: to archived", ListDeleted, ListArchived, false},
		{"deleted is terminal: to completed", ListDeleted, ListCompleted, false},
		{"same status is a no-op", ListActive, ListActive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestItemStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from ItemStatus
		to   ItemStatus
		want bool
	}{
		{"pending to in_progress", ItemPending, ItemInProgress, true},
		{"pending to completed skips in_progress", ItemPending, ItemCompleted, false},
		{"in_progress to completed", ItemInProgress, ItemCompleted, true},
		{"in_progress back to pending", ItemInProgress, ItemPending, true},
		{"completed reopens to in_progress", ItemCompleted, ItemInProgress, true},
		{"completed to pending is illegal", ItemCompleted, ItemPending, false},
		{"cancelled to completed is illegal", ItemCancelled, ItemCompleted, false},
		{"cancelled to pending", ItemCancelled, ItemPending, true},
		{"blocked to in_progress", ItemBlocked, ItemInProgress, true},
		{"blocked to completed is illegal", ItemBlocked, ItemCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseListStatus(t *testing.T) {
	if _, err := ParseListStatus("archived"); err != nil {
		t.Errorf("ParseListStatus(archived) error = %v", err)
	}
	if _, err := ParseListStatus("paused"); err == nil {
		t.Error("ParseListStatus(paused) should fail")
	}
}

func TestParseItemStatus(t *testing.T) {
	if _, err := ParseItemStatus("in_progress"); err != nil {
		t.Errorf("ParseItemStatus(in_progress) error = %v", err)
	}
	if _, err := ParseItemStatus("done"); err == nil {
		t.Error("ParseItemStatus(done) should fail")
	}
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Errorf("Priority(%q).Valid() = false", p)
		}
	}
	if Priority("critical").Valid() {
		t.Error(`Priority("critical").Valid() = true`)
	}
}

func TestTableForModel(t *testing.T) {
	if got := TableForModel(ModelList); got != TableLists {
		t.Errorf("TableForModel(list) = %q", got)
	}
	if got := TableForModel(ModelItem); got != TableItems {
		t.Errorf("TableForModel(item) = %q", got)
	}
	if got := TableForModel("session"); got != "" {
		t.Errorf("TableForModel(session) = %q, want empty", got)
	}
}
