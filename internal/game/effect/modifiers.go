package effect

// Fold returns the net stat modifier contributed by the set for the given
// up/down pair. Every instance counts, so stackable buffs add up.
func Fold(s *ActiveSet, up, down Type) int {
	total := 0
	for _, a := range s.effects {
		switch a.Def.Type {
		case up:
			total += a.Def.Magnitude
		case down:
			total -= a.Def.Magnitude
		}
	}
	return total
}

// AttackModifier returns the net attack modifier of the set.
func AttackModifier(s *ActiveSet) int { return Fold(s, AttackUp, AttackDown) }

// DefenseModifier returns the net defense modifier of the set.
func DefenseModifier(s *ActiveSet) int { return Fold(s, DefenseUp, DefenseDown) }

// SpeedModifier returns the net speed modifier of the set.
func SpeedModifier(s *ActiveSet) int { return Fold(s, SpeedUp, SpeedDown) }

// IsStunned reports whether a stun effect is active.
func IsStunned(s *ActiveSet) bool { return s.HasType(Stun) }
