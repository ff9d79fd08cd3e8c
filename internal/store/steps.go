package store

import "github.com/waabox/deploydeck/internal/domain"

// Steps is an immutable view of the pipeline steps of the current run.
// Every method returns a new value; the receiver is never modified.
type Steps struct {
	list     []domain.PipelineStep
	selected string
	running  bool
	// starting holds the optimistic flag set by BeginRun until the server
	// reports a step of the new run.
	starting bool
}

// NewSteps builds the store from the initial fetch and selects the first step.
func NewSteps(list []domain.PipelineStep) Steps {
	return Steps{}.Replace(list)
}

// Replace swaps in a fresh step list, as produced by a new pipeline run.
// The selection survives if its id is still present, otherwise the first step
// is selected.
func (s Steps) Replace(list []domain.PipelineStep) Steps {
	next := Steps{running: s.running, starting: s.starting}
	seen := make(map[string]bool, len(list))
	for _, step := range list {
		if seen[step.ID] {
			continue
		}
		seen[step.ID] = true
		next.list = append(next.list, step)
	}
	if seen[s.selected] {
		next.selected = s.selected
	} else if len(next.list) > 0 {
		next.selected = next.list[0].ID
	}
	next.running, next.starting = resolveRunning(next.list, s.running, s.starting)
	return next
}

// ApplyUpdate replaces the record with a matching id, or appends the step if
// the id is new. The running flag is derived from the merged list.
func (s Steps) ApplyUpdate(step domain.PipelineStep) Steps {
	list := make([]domain.PipelineStep, 0, len(s.list)+1)
	replaced := false
	for _, existing := range s.list {
		if existing.ID == step.ID {
			list = append(list, step)
			replaced = true
			continue
		}
		list = append(list, existing)
	}
	if !replaced {
		list = append(list, step)
	}
	s.list = list
	if s.selected == "" {
		s.selected = step.ID
	}
	s.running, s.starting = resolveRunning(list, s.running, s.starting)
	return s
}

// resolveRunning applies deriveRunning, except that a run begun locally stays
// running while the list still shows only completed steps of the previous run.
func resolveRunning(list []domain.PipelineStep, running, starting bool) (bool, bool) {
	if starting {
		if len(list) == 0 || allCompleted(list) {
			return true, true
		}
	}
	return deriveRunning(list, running), false
}

func allCompleted(list []domain.PipelineStep) bool {
	for _, step := range list {
		if step.Status != domain.StatusCompleted {
			return false
		}
	}
	return true
}

// deriveRunning is true while any step runs and false once every step has
// completed. In between (pending or failed steps, nothing running) the
// previous value is kept.
func deriveRunning(list []domain.PipelineStep, previous bool) bool {
	if len(list) == 0 {
		return previous
	}
	for _, step := range list {
		if step.Status == domain.StatusRunning {
			return true
		}
	}
	if allCompleted(list) {
		return false
	}
	return previous
}

// BeginRun marks the pipeline as running before the server confirms it.
// The flag survives fetches that still return the previous, completed run.
func (s Steps) BeginRun() Steps {
	s.running = true
	s.starting = true
	return s
}

// AbortRun rolls back BeginRun after a failed start request.
func (s Steps) AbortRun() Steps {
	s.running = false
	s.starting = false
	return s
}

// Running reports whether the pipeline is considered in progress.
func (s Steps) Running() bool {
	return s.running
}

// List returns the steps in server order.
func (s Steps) List() []domain.PipelineStep {
	return s.list
}

// Len returns the number of steps.
func (s Steps) Len() int {
	return len(s.list)
}

// Get returns the step with the given id.
func (s Steps) Get(id string) (domain.PipelineStep, bool) {
	for _, step := range s.list {
		if step.ID == id {
			return step, true
		}
	}
	return domain.PipelineStep{}, false
}

// Selected returns the currently selected step. Since the selection is held by
// id it always reflects the latest update for that step.
func (s Steps) Selected() (domain.PipelineStep, bool) {
	return s.Get(s.selected)
}

// SelectedIndex returns the position of the selected step, or -1.
func (s Steps) SelectedIndex() int {
	for i, step := range s.list {
		if step.ID == s.selected {
			return i
		}
	}
	return -1
}

// Select changes the selection. Unknown ids are ignored.
func (s Steps) Select(id string) Steps {
	if _, ok := s.Get(id); ok {
		s.selected = id
	}
	return s
}

// MoveNext selects the step after the current one.
func (s Steps) MoveNext() Steps {
	if i := s.SelectedIndex(); i >= 0 && i < len(s.list)-1 {
		s.selected = s.list[i+1].ID
	}
	return s
}

// MovePrev selects the step before the current one.
func (s Steps) MovePrev() Steps {
	if i := s.SelectedIndex(); i > 0 {
		s.selected = s.list[i-1].ID
	}
	return s
}
