package effect

import "fmt"

// Active tracks one applied effect on a character.
type Active struct {
	Def       *Def
	Remaining int // turns left; -1 = permanent
	SourceID  string
}

// ActiveSet tracks all effects currently applied to one character, in
// application order.
// It is not safe for concurrent use; the caller must serialise access.
type ActiveSet struct {
	effects []*Active
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{}
}

// Apply adds def to the set on behalf of sourceID.
// A non-stackable effect already present is refreshed: its remaining
// duration is reset to def.Duration and its source replaced. Stackable
// effects always append a new instance.
//
// Precondition: def must not be nil.
// Postcondition: Has(def.ID) is true; a non-stackable id appears exactly once.
// Returns the instance that was added or refreshed.
func (s *ActiveSet) Apply(def *Def, sourceID string) (*Active, error) {
	if def == nil {
		return nil, fmt.Errorf("Apply: def must not be nil")
	}
	if !def.Stackable {
		for _, a := range s.effects {
			if a.Def.ID == def.ID {
				a.Remaining = def.Duration
				a.SourceID = sourceID
				return a, nil
			}
		}
	}
	a := &Active{Def: def, Remaining: def.Duration, SourceID: sourceID}
	s.effects = append(s.effects, a)
	return a, nil
}

// TickResult summarises one Tick call.
type TickResult struct {
	Damage  int
	Healing int
	Expired []*Active
}

// Tick applies the per-turn contribution of every effect (poison and bleed
// damage, regeneration healing), decrements remaining durations, and removes
// effects that reach zero. Permanent effects contribute but never expire.
//
// Postcondition: No returned Expired entry is still in the set.
func (s *ActiveSet) Tick() TickResult {
	var res TickResult
	kept := s.effects[:0]
	for _, a := range s.effects {
		switch a.Def.Type {
		case Poison, Bleed:
			res.Damage += a.Def.Magnitude
		case Regeneration:
			res.Healing += a.Def.Magnitude
		}
		if a.Remaining != Permanent {
			a.Remaining--
			if a.Remaining <= 0 {
				res.Expired = append(res.Expired, a)
				continue
			}
		}
		kept = append(kept, a)
	}
	for i := len(kept); i < len(s.effects); i++ {
		s.effects[i] = nil
	}
	s.effects = kept
	return res
}

// Remove deletes every instance with the given id and returns them.
// Removing an absent id is a no-op.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) []*Active {
	return s.removeWhere(func(a *Active) bool { return a.Def.ID == id })
}

// RemoveBySource deletes every instance applied by sourceID and returns them.
func (s *ActiveSet) RemoveBySource(sourceID string) []*Active {
	return s.removeWhere(func(a *Active) bool { return a.SourceID == sourceID })
}

func (s *ActiveSet) removeWhere(match func(*Active) bool) []*Active {
	var removed []*Active
	kept := make([]*Active, 0, len(s.effects))
	for _, a := range s.effects {
		if match(a) {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	s.effects = kept
	return removed
}

// Has reports whether an effect with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	return s.Count(id) > 0
}

// Count returns the number of active instances with id.
func (s *ActiveSet) Count(id string) int {
	n := 0
	for _, a := range s.effects {
		if a.Def.ID == id {
			n++
		}
	}
	return n
}

// HasType reports whether any active effect is of type t.
func (s *ActiveSet) HasType(t Type) bool {
	for _, a := range s.effects {
		if a.Def.Type == t {
			return true
		}
	}
	return false
}

// Len returns the number of active instances.
func (s *ActiveSet) Len() int { return len(s.effects) }

// All returns the active instances in application order.
// The slice is a new allocation but the pointed-to values are shared;
// callers must not modify them.
func (s *ActiveSet) All() []*Active {
	out := make([]*Active, len(s.effects))
	copy(out, s.effects)
	return out
}

// Clone returns a deep copy of the set. Defs are shared since they are immutable.
func (s *ActiveSet) Clone() *ActiveSet {
	out := &ActiveSet{effects: make([]*Active, len(s.effects))}
	for i, a := range s.effects {
		cp := *a
		out.effects[i] = &cp
	}
	return out
}
