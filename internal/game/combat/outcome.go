package combat

// Outcome is the result of a battle-end check.
type Outcome struct {
	Over bool
	// WinnerTeamID is empty on a loss or mutual wipe.
	WinnerTeamID string
}

func sideStanding(s Side) bool {
	for _, p := range s.Players {
		if p.CanAct() {
			return true
		}
	}
	return false
}

// CheckBattleEnd reports whether the battle is decided.
//
// PvP: over when at most one team has an active player; that team wins, or
// nobody does on a mutual wipe. PvE: over when no player is active (loss) or
// every enemy is dead (win for the first team still standing).
func CheckBattleEnd(f *Field) Outcome {
	var standing []string
	for _, s := range f.Sides {
		if sideStanding(s) {
			standing = append(standing, s.TeamID)
		}
	}
	if f.PvP {
		switch len(standing) {
		case 0:
			return Outcome{Over: true}
		case 1:
			return Outcome{Over: true, WinnerTeamID: standing[0]}
		}
		return Outcome{}
	}
	if len(standing) == 0 {
		return Outcome{Over: true}
	}
	for _, e := range f.Enemies {
		if e.IsAlive() {
			return Outcome{}
		}
	}
	return Outcome{Over: true, WinnerTeamID: standing[0]}
}
