// Package model defines the task-domain entities the validation core
// operates on: list and item status machines, priorities, field schemas,
// and table names. It holds no behavior beyond type definitions and the
// transition tables.
package model

import "fmt"

// ListStatus is the lifecycle state of a list.
type ListStatus string

const (
	ListActive    ListStatus = "active"
	ListCompleted ListStatus = "completed"
	ListArchived  ListStatus = "archived"
	ListDeleted   ListStatus = "deleted"
)

// listTransitions is the legal status transition table for lists. A status
// missing from the map (or mapped to an empty set) is terminal.
var listTransitions = map[ListStatus][]ListStatus{
	ListActive:    {ListCompleted, ListArchived, ListDeleted},
	ListCompleted: {ListActive, ListArchived, ListDeleted},
	ListArchived:  {ListActive, ListDeleted},
	ListDeleted:   {},
}

// String returns the status as its wire value.
func (s ListStatus) String() string { return string(s) }

// Valid reports whether the status is a known list status.
func (s ListStatus) Valid() bool {
	_, ok := listTransitions[s]
	return ok
}

// CanTransitionTo reports whether a list may move from s to the target
// status. Identical statuses are always allowed (no-op update).
func (s ListStatus) CanTransitionTo(target ListStatus) bool {
	if s == target {
		return true
	}
	for _, allowed := range listTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ParseListStatus converts a raw string to a ListStatus.
func ParseListStatus(raw string) (ListStatus, error) {
	s := ListStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown list status: %s", raw)
	}
	return s, nil
}

// ListStatusValues returns all list statuses as strings, for enum field
// specs and error messages.
func ListStatusValues() []string {
	return []string{string(ListActive), string(ListCompleted), string(ListArchived), string(ListDeleted)}
}

// ItemStatus is the lifecycle state of an item.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
	ItemCancelled  ItemStatus = "cancelled"
	ItemBlocked    ItemStatus = "blocked"
)

// itemTransitions is the legal status transition table for items. Note the
// asymmetries: completed items may only be reopened to in_progress, and
// cancelled items cannot jump straight to completed.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemPending:    {ItemInProgress, ItemCancelled, ItemBlocked},
	ItemInProgress: {ItemCompleted, ItemCancelled, ItemBlocked, ItemPending},
	ItemCompleted:  {ItemInProgress},
	ItemCancelled:  {ItemPending, ItemInProgress},
	ItemBlocked:    {ItemPending, ItemInProgress, ItemCancelled},
}

// String returns the status as its wire value.
func (s ItemStatus) String() string { return string(s) }

// Valid reports whether the status is a known item status.
func (s ItemStatus) Valid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// CanTransitionTo reports whether an item may move from s to the target
// status. Identical statuses are always allowed (no-op update).
func (s ItemStatus) CanTransitionTo(target ItemStatus) bool {
	if s == target {
		return true
	}
	for _, allowed := range itemTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ParseItemStatus converts a raw string to an ItemStatus.
func ParseItemStatus(raw string) (ItemStatus, error) {
	s := ItemStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown item status: %s", raw)
	}
	return s, nil
}

// ItemStatusValues returns all item statuses as strings.
func ItemStatusValues() []string {
	return []string{
		string(ItemPending), string(ItemInProgress), string(ItemCompleted),
		string(ItemCancelled), string(ItemBlocked),
	}
}

// Priority is the urgency level of an item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// PriorityValues returns all priorities as strings.
func PriorityValues() []string {
	return []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityUrgent)}
}
