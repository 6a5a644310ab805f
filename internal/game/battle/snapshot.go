package battle

import (
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/team"
)

// Snapshot is an immutable copy of a battle's public state. It shares no
// memory with the live battle.
type Snapshot struct {
	ID             string          `json:"id"`
	RoomCode       string          `json:"roomCode"`
	State          State           `json:"state"`
	PvP            bool            `json:"pvp"`
	AllowInvasion  bool            `json:"allowInvasion"`
	Invaded        bool            `json:"invaded"`
	CurrentTurn    int             `json:"currentTurn"`
	CurrentIndex   int             `json:"currentIndex"`
	CurrentActorID string          `json:"currentActorId,omitempty"`
	TurnOrder      []string        `json:"turnOrder,omitempty"`
	WinnerTeamID   string          `json:"winnerTeamId,omitempty"`
	Teams          []TeamView      `json:"teams,omitempty"`
	Enemies        []CombatantView `json:"enemies,omitempty"`
	Log            []combat.Result `json:"log,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	FinishedAt     *time.Time      `json:"finishedAt,omitempty"`
}

// TeamView is a team inside a Snapshot.
type TeamView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Strategy team.Strategy   `json:"strategy"`
	Ready    bool            `json:"ready"`
	Invader  bool            `json:"invader,omitempty"`
	Position team.Position   `json:"position"`
	Players  []CombatantView `json:"players,omitempty"`
}

// EffectView is an active status effect inside a Snapshot.
type EffectView struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
	SourceID  string `json:"sourceId,omitempty"`
}

// SkillView is a learned skill inside a Snapshot.
type SkillView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ManaCost    int    `json:"manaCost,omitempty"`
	Cooldown    int    `json:"cooldown,omitempty"`
	MaxCooldown int    `json:"maxCooldown,omitempty"`
	Target      string `json:"target"`
}

// CombatantView is a player or enemy inside a Snapshot. Stats are the
// modified values.
type CombatantView struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Kind       character.Kind   `json:"kind"`
	Class      character.Class  `json:"class,omitempty"`
	Behavior   string           `json:"behavior,omitempty"`
	TeamID     string           `json:"teamId,omitempty"`
	Level      int              `json:"level,omitempty"`
	Experience int              `json:"experience,omitempty"`
	Gold       int              `json:"gold,omitempty"`
	Health     int              `json:"health"`
	MaxHealth  int              `json:"maxHealth"`
	Mana       int              `json:"mana,omitempty"`
	MaxMana    int              `json:"maxMana,omitempty"`
	Attack     int              `json:"attack"`
	Defense    int              `json:"defense"`
	Speed      int              `json:"speed"`
	Alive      bool             `json:"alive"`
	Fled       bool             `json:"fled,omitempty"`
	TauntedBy  string           `json:"tauntedBy,omitempty"`
	Effects    []EffectView     `json:"effects,omitempty"`
	Skills     []SkillView      `json:"skills,omitempty"`
	Items      map[string]int   `json:"items,omitempty"`
	Stats      *character.Stats `json:"stats,omitempty"`
}

// Snapshot returns the current public state.
func (b *Battle) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Battle) snapshot() Snapshot {
	s := Snapshot{
		ID:            b.id,
		RoomCode:      b.roomCode,
		State:         b.state(),
		PvP:           b.pvp,
		AllowInvasion: b.allowInvasion,
		Invaded:       b.invaded,
		CurrentTurn:   b.currentTurn,
		CurrentIndex:  b.currentIndex,
		WinnerTeamID:  b.winnerTeamID,
		CreatedAt:     b.createdAt,
	}
	if s.State == InProgress {
		s.CurrentActorID = b.currentID()
	}
	if len(b.order) > 0 {
		s.TurnOrder = append([]string(nil), b.order...)
	}
	if !b.finishedAt.IsZero() {
		at := b.finishedAt
		s.FinishedAt = &at
	}
	for _, t := range b.teams {
		tv := TeamView{ID: t.ID, Name: t.Name, Strategy: t.Strategy, Ready: t.Ready, Invader: t.Invader, Position: t.Position}
		for _, p := range t.Players {
			tv.Players = append(tv.Players, playerView(p))
		}
		s.Teams = append(s.Teams, tv)
	}
	for _, e := range b.enemies {
		s.Enemies = append(s.Enemies, enemyView(e))
	}
	if len(b.log) > 0 {
		s.Log = make([]combat.Result, len(b.log))
		for i, r := range b.log {
			r.Effects = append([]string(nil), r.Effects...)
			s.Log[i] = r
		}
	}
	return s
}

func baseView(c *character.Character) CombatantView {
	v := CombatantView{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      c.Kind,
		Health:    c.Health,
		MaxHealth: c.MaxHealth,
		Attack:    c.ModifiedAttack(),
		Defense:   c.ModifiedDefense(),
		Speed:     c.ModifiedSpeed(),
		Alive:     c.IsAlive(),
		Fled:      c.Fled,
		TauntedBy: c.TauntedBy,
	}
	for _, a := range c.Effects.All() {
		v.Effects = append(v.Effects, EffectView{ID: a.Def.ID, Type: string(a.Def.Type), Remaining: a.Remaining, SourceID: a.SourceID})
	}
	return v
}

func playerView(p *character.Player) CombatantView {
	v := baseView(&p.Character)
	v.Class = p.Class
	v.TeamID = p.TeamID
	v.Level = p.Level
	v.Experience = p.Experience
	v.Gold = p.Gold
	v.Mana = p.Mana
	v.MaxMana = p.MaxMana
	for _, s := range p.Skills {
		v.Skills = append(v.Skills, SkillView{ID: s.ID, Name: s.Name, ManaCost: s.ManaCost, Cooldown: s.Cooldown, MaxCooldown: s.MaxCooldown, Target: string(s.TargetType)})
	}
	if len(p.Items) > 0 {
		v.Items = make(map[string]int, len(p.Items))
		for id, n := range p.Items {
			v.Items[id] = n
		}
	}
	stats := p.Stats
	v.Stats = &stats
	return v
}

func enemyView(e *character.Enemy) CombatantView {
	v := baseView(&e.Character)
	v.Behavior = string(e.Behavior)
	for _, s := range e.Skills {
		v.Skills = append(v.Skills, SkillView{ID: s.ID, Name: s.Name, Cooldown: s.Cooldown, MaxCooldown: s.MaxCooldown, Target: string(s.TargetType)})
	}
	return v
}

// Player returns a view of one player, or false when it is not in the battle.
func (s Snapshot) Player(id string) (CombatantView, bool) {
	for _, t := range s.Teams {
		for _, p := range t.Players {
			if p.ID == id {
				return p, true
			}
		}
	}
	return CombatantView{}, false
}

// Summary is the short listing form of a battle used by ListBattles.
type Summary struct {
	ID       string `json:"id"`
	RoomCode string `json:"roomCode"`
	State    State  `json:"state"`
	PvP      bool   `json:"pvp"`
	Teams    int    `json:"teams"`
	Players  int    `json:"players"`
	Enemies  int    `json:"enemies"`
}

// Summary returns the listing form of the battle.
func (b *Battle) Summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Summary{ID: b.id, RoomCode: b.roomCode, State: b.state(), PvP: b.pvp, Teams: len(b.teams), Enemies: len(b.enemies)}
	for _, t := range b.teams {
		s.Players += t.Size()
	}
	return s
}
