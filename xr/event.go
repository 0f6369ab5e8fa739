// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

// EventType identifies the payload of an Event.
type EventType int32

// Event types, numbered as the runtime's structure types.
const (
	EventTypeInstanceLossPending          EventType = 17
	EventTypeSessionStateChanged          EventType = 18
	EventTypeReferenceSpaceChangePending  EventType = 49
	EventTypeInteractionProfileChanged    EventType = 52
	EventTypeEventsLost                   EventType = 16
	EventTypeVisibilityMaskChangedKHR     EventType = 1000031001
	EventTypePerfSettingsEXT              EventType = 1000015000
	EventTypeMainSessionVisibilityChanged EventType = 1000033003
)

// Event is a runtime notification drained by PollEvent. Only
// *SessionStateChanged and *InstanceLossPending carry meaning for the core;
// everything else arrives as *UnknownEvent.
type Event interface {
	Type() EventType
}

// SessionStateChanged reports a session state transition.
type SessionStateChanged struct {
	Session Session
	State   SessionState
	Time    Time
}

// Type implements Event.
func (*SessionStateChanged) Type() EventType { return EventTypeSessionStateChanged }

// InstanceLossPending warns that the instance will be lost at LossTime.
type InstanceLossPending struct {
	LossTime Time
}

// Type implements Event.
func (*InstanceLossPending) Type() EventType { return EventTypeInstanceLossPending }

// UnknownEvent carries any event the core does not interpret.
type UnknownEvent struct {
	EventType EventType
}

// Type implements Event.
func (e *UnknownEvent) Type() EventType { return e.EventType }

var (
	_ Event = (*SessionStateChanged)(nil)
	_ Event = (*InstanceLossPending)(nil)
	_ Event = (*UnknownEvent)(nil)
)
