package quiz

import "slices"

// Sequencer tracks the position inside the effective step list. The index is
// only meaningful relative to the list it was computed against, so every
// recomputation re-validates it.
type Sequencer struct {
	catalog Catalog
	steps   []StepID
	index   int
}

// NewSequencer starts at the first effective step for service.
func NewSequencer(catalog Catalog, service ServiceSelection) *Sequencer {
	return &Sequencer{
		catalog: catalog,
		steps:   catalog.Effective(service),
	}
}

// Recompute rebuilds the effective list for service. If the current step
// survives the position follows it; otherwise the sequencer lands on the
// nearest surviving step after it in catalog order, or the last step.
func (s *Sequencer) Recompute(service ServiceSelection) {
	current := s.CurrentID()
	s.steps = s.catalog.Effective(service)
	s.index = s.nearest(current)
}

// MoveTo positions the sequencer on id using the same nearest-step rule.
func (s *Sequencer) MoveTo(id StepID) {
	s.index = s.nearest(id)
}

func (s *Sequencer) nearest(id StepID) int {
	if len(s.steps) == 0 {
		return 0
	}
	if i := slices.Index(s.steps, id); i >= 0 {
		return i
	}
	pos := s.catalog.Position(id)
	if pos < 0 {
		return 0
	}
	for i, step := range s.steps {
		if s.catalog.Position(step) > pos {
			return i
		}
	}
	return len(s.steps) - 1
}

// Advance moves one step forward, clamped to the last step. It reports
// whether the position changed.
func (s *Sequencer) Advance() bool {
	if s.index >= len(s.steps)-1 {
		s.index = max(len(s.steps)-1, 0)
		return false
	}
	s.index++
	return true
}

// Retreat moves one step back, clamped to the first step.
func (s *Sequencer) Retreat() bool {
	if s.index <= 0 {
		s.index = 0
		return false
	}
	s.index--
	return true
}

// Current returns the active step definition.
func (s *Sequencer) Current() StepDefinition {
	d, _ := s.catalog.Step(s.CurrentID())
	return d
}

// CurrentID returns the active step id, empty for an empty catalog.
func (s *Sequencer) CurrentID() StepID {
	if len(s.steps) == 0 {
		return ""
	}
	return s.steps[s.index]
}

func (s *Sequencer) Index() int      { return s.index }
func (s *Sequencer) Total() int      { return len(s.steps) }
func (s *Sequencer) IsFirst() bool   { return s.index == 0 }
func (s *Sequencer) IsLast() bool    { return s.index == len(s.steps)-1 }
func (s *Sequencer) Steps() []StepID { return slices.Clone(s.steps) }
