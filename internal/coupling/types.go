package coupling

import (
	"fmt"

	"github.com/mfjansen/mocsim/internal/ocean"
)

type Mode string

const (
	Transient   Mode = "transient"
	Equilibrium Mode = "equilibrium"
)

// ColumnState is a read-only copy of one column at the end of a cycle.
type ColumnState struct {
	Name    string
	B       ocean.Profile
	Content float64
}

// LinkState is a read-only copy of one link's last diagnosed transport.
type LinkState struct {
	Name string
	Psi  ocean.Profile
}

// Snapshot is handed to observers and metrics after every step. It holds
// copies only, so receivers may keep it.
type Snapshot struct {
	Mode    Mode
	Step    int
	Time    float64
	Z       ocean.Grid
	Columns []ColumnState
	Links   []LinkState
}

// Column returns the named column state.
func (s Snapshot) Column(name string) (ColumnState, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnState{}, false
}

// Link returns the named link state.
func (s Snapshot) Link(name string) (LinkState, bool) {
	for _, l := range s.Links {
		if l.Name == name {
			return l, true
		}
	}
	return LinkState{}, false
}

type Observer interface {
	OnCycle(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Snapshot)

func (f ObserverFunc) OnCycle(s Snapshot) { f(s) }

type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

type Result struct {
	Mode       Mode
	StepsTaken int
	Refreshes  int
	Final      Snapshot
	Metrics    map[string]float64
}

// StepError reports the step and component at which a run failed.
type StepError struct {
	Step   int
	Column string
	Link   string
	Err    error
}

func (e *StepError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("step %d, column %q: %v", e.Step, e.Column, e.Err)
	case e.Link != "":
		return fmt.Sprintf("step %d, link %q: %v", e.Step, e.Link, e.Err)
	}
	return fmt.Sprintf("step %d: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
