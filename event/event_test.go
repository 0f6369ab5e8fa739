// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package event

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/xroverlay/xr"
)

// queue is an EventAPI serving a fixed list of events.
type queue struct {
	events []xr.Event
	polls  int
	err    error
	failAt int
}

func (q *queue) PollEvent(xr.Instance) (xr.Event, bool, error) {
	q.polls++
	if q.err != nil && q.polls == q.failAt {
		return nil, false, q.err
	}
	if len(q.events) == 0 {
		return nil, false, nil
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true, nil
}

type recorder struct {
	session xr.Session
	states  []xr.SessionState
}

func (r *recorder) Instance() xr.Instance                { return 1 }
func (r *recorder) Session() xr.Session                  { return r.session }
func (r *recorder) OnStateChanged(state xr.SessionState) { r.states = append(r.states, state) }

func changed(s xr.Session, state xr.SessionState) xr.Event {
	return &xr.SessionStateChanged{Session: s, State: state}
}

func TestDrainFullyDrains(t *testing.T) {
	q := &queue{events: []xr.Event{
		changed(7, xr.SessionStateIdle),
		&xr.UnknownEvent{EventType: xr.EventTypePerfSettingsEXT},
		changed(7, xr.SessionStateReady),
		changed(9, xr.SessionStateFocused),
		changed(7, xr.SessionStateSynchronized),
	}}
	r := &recorder{session: 7}
	p := NewPump(q, r)

	sum, err := p.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if sum.Events != 5 || sum.Transitions != 3 || sum.LossPending {
		t.Errorf("Drain() = %+v, want 5 events, 3 transitions", sum)
	}
	want := []xr.SessionState{xr.SessionStateIdle, xr.SessionStateReady, xr.SessionStateSynchronized}
	if !slices.Equal(r.states, want) {
		t.Errorf("applied states = %v, want %v", r.states, want)
	}
	if q.polls != 6 {
		t.Errorf("polls = %d, want 6", q.polls)
	}

	sum, err = p.Drain()
	if err != nil || sum.Events != 0 {
		t.Errorf("second Drain() = %+v, %v; want empty", sum, err)
	}
}

func TestDrainLossPending(t *testing.T) {
	q := &queue{events: []xr.Event{
		changed(1, xr.SessionStateFocused),
		&xr.InstanceLossPending{LossTime: 42},
		changed(1, xr.SessionStateLossPending),
	}}
	r := &recorder{session: 1}
	p := NewPump(q, r)

	sum, err := p.Drain()
	if err != nil {
		t.Fatal(err)
	}
	if !sum.LossPending || !p.LossPending() {
		t.Error("loss pending not reported")
	}
	if p.LossTime() != 42 {
		t.Errorf("LossTime() = %d, want 42", p.LossTime())
	}
	if len(r.states) != 2 {
		t.Errorf("states = %v, want both transitions applied", r.states)
	}

	sum, _ = p.Drain()
	if !sum.LossPending {
		t.Error("loss pending should stay set")
	}
}

func TestDrainPollError(t *testing.T) {
	q := &queue{
		events: []xr.Event{changed(1, xr.SessionStateReady), changed(1, xr.SessionStateFocused)},
		err:    xr.ErrorInstanceLost,
		failAt: 2,
	}
	r := &recorder{session: 1}
	sum, err := NewPump(q, r).Drain()
	if !errors.Is(err, xr.ErrorInstanceLost) {
		t.Fatalf("Drain() error = %v, want ErrorInstanceLost", err)
	}
	if sum.Transitions != 1 {
		t.Errorf("Transitions = %d, want 1", sum.Transitions)
	}
}

func TestCommands(t *testing.T) {
	q := NewCommands(2)
	if q.Cap() != 2 {
		t.Fatalf("Cap() = %d, want 2", q.Cap())
	}
	if err := q.Post(Pause); err != nil {
		t.Fatal(err)
	}
	if err := q.Post(Resume); err != nil {
		t.Fatal(err)
	}
	if err := q.Post(Destroy); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Post() on full queue = %v, want ErrQueueFull", err)
	}

	var got []Command
	for {
		c, ok := q.Next()
		if !ok {
			break
		}
		got = append(got, c)
	}
	if !slices.Equal(got, []Command{Pause, Resume}) {
		t.Errorf("commands = %v, want [pause resume]", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}

	if NewCommands(0).Cap() != DefaultCapacity {
		t.Errorf("default capacity = %d, want %d", NewCommands(0).Cap(), DefaultCapacity)
	}
}

func TestCommandsDeliveredOnce(t *testing.T) {
	q := NewCommands(4)
	if err := q.Post(Destroy); err != nil {
		t.Fatal(err)
	}
	first, ok := q.Next()
	if !ok || first != Destroy {
		t.Fatalf("Next() = %v, %v, want destroy", first, ok)
	}
	if c, ok := q.Next(); ok {
		t.Errorf("second Next() = %v, want nothing: commands are consumed once", c)
	}
}

func TestCommandsWait(t *testing.T) {
	q := NewCommands(1)
	if _, ok := q.Wait(context.Background(), time.Millisecond); ok {
		t.Error("Wait() on empty queue returned a command")
	}

	go func() { _ = q.Post(TermWindow) }()
	c, ok := q.Wait(context.Background(), time.Second)
	if !ok || c != TermWindow {
		t.Errorf("Wait() = %v, %v; want term-window", c, ok)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.Wait(ctx, time.Hour); ok {
		t.Error("Wait() with cancelled context returned a command")
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		c        Command
		want     string
		terminal bool
	}{
		{Resume, "resume", false},
		{Pause, "pause", false},
		{TermWindow, "term-window", true},
		{Destroy, "destroy", true},
		{Command(99), "Command(99)", false},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.c.Terminal(); got != tt.terminal {
			t.Errorf("%v.Terminal() = %v, want %v", tt.c, got, tt.terminal)
		}
	}
}
