package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/team"
)

// InvasionDefenseBonus is the one-time defense granted to each member of the
// weakest defending team when an invader arrives.
const InvasionDefenseBonus = 5

// Update is the outcome of a mutation: ids it produced, the results it
// resolved and a snapshot taken before the lock was released.
type Update struct {
	PlayerID string
	TeamID   string
	Results  []combat.Result
	Snapshot Snapshot
}

func (b *Battle) update(u Update) Update {
	u.Snapshot = b.snapshot()
	return u
}

// AddEnemy places e on the enemy roster.
//
// Precondition: the battle has not started.
func (b *Battle) AddEnemy(e *character.Enemy) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.preBattle() {
		return fmt.Errorf("adding enemy: %w", ErrInvalidState)
	}
	b.enemies = append(b.enemies, e)
	b.syncPreparation()
	return nil
}

// CreateTeam adds an empty team.
//
// Postcondition: on success Update.TeamID names the new team; fails with
// ErrBattleFull once MaxTeams teams exist.
func (b *Battle) CreateTeam(name string, strategy team.Strategy) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.preBattle() {
		return Update{}, fmt.Errorf("creating team: %w", ErrInvalidState)
	}
	t, err := b.newTeam(name, strategy)
	if err != nil {
		return Update{}, err
	}
	b.syncPreparation()
	return b.update(Update{TeamID: t.ID}), nil
}

func (b *Battle) newTeam(name string, strategy team.Strategy) (*team.Team, error) {
	if len(b.teams) >= MaxTeams {
		return nil, fmt.Errorf("%w: %d teams", ErrBattleFull, MaxTeams)
	}
	if name == "" {
		name = fmt.Sprintf("Team %d", len(b.teams)+1)
	}
	t := team.New(b.newID(), name, strategy)
	b.teams = append(b.teams, t)
	return t, nil
}

// Join creates a player of class for clientID and places it on teamID, or
// on an automatically chosen team when teamID is empty.
//
// Postcondition: on error the roster is unchanged.
func (b *Battle) Join(clientID, name string, class character.Class, teamID string) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.preBattle() {
		return Update{}, fmt.Errorf("joining: %w", ErrInvalidState)
	}
	if len(b.clientPlayers(clientID)) > 0 {
		return Update{}, ErrAlreadyJoined
	}
	p, err := character.NewPlayer(b.newID(), name, class, b.skills)
	if err != nil {
		return Update{}, err
	}

	var t *team.Team
	created := false
	if teamID != "" {
		var ok bool
		if t, ok = b.findTeam(teamID); !ok {
			return Update{}, fmt.Errorf("%w: %q", ErrTeamNotFound, teamID)
		}
	} else if i := team.Assign(b.teams, class); i >= 0 {
		t = b.teams[i]
	} else {
		if t, err = b.newTeam("", team.Balanced); err != nil {
			return Update{}, err
		}
		created = true
	}
	if err := t.AddPlayer(p); err != nil {
		if created {
			b.teams = b.teams[:len(b.teams)-1]
		}
		return Update{}, err
	}
	b.owners[p.ID] = clientID
	t.Ready = false
	b.syncPreparation()
	b.logger.Info("player joined",
		zap.String("client_id", clientID),
		zap.String("player_id", p.ID),
		zap.String("team_id", t.ID),
		zap.String("class", string(class)),
	)
	return b.update(Update{PlayerID: p.ID, TeamID: t.ID}), nil
}

// SetTeamReady marks teamID ready or not. The battle enters Preparation once
// every team is ready and the roster can be fought, and falls back to
// Waiting when that stops being true.
func (b *Battle) SetTeamReady(clientID, teamID string, ready bool) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.preBattle() {
		return Update{}, fmt.Errorf("setting ready: %w", ErrInvalidState)
	}
	t, ok := b.findTeam(teamID)
	if !ok {
		return Update{}, fmt.Errorf("%w: %q", ErrTeamNotFound, teamID)
	}
	if !b.ownsTeamMember(clientID, t) {
		return Update{}, fmt.Errorf("%w: team %q", ErrNotOwner, teamID)
	}
	t.Ready = ready
	b.syncPreparation()
	return b.update(Update{TeamID: t.ID}), nil
}

// SetTeamStrategy switches a team's strategy, replacing its buffs.
func (b *Battle) SetTeamStrategy(clientID, teamID string, s team.Strategy) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.state(); st == Finished || st == Cancelled {
		return Update{}, fmt.Errorf("setting strategy: %w", ErrInvalidState)
	}
	t, ok := b.findTeam(teamID)
	if !ok {
		return Update{}, fmt.Errorf("%w: %q", ErrTeamNotFound, teamID)
	}
	if !b.ownsTeamMember(clientID, t) {
		return Update{}, fmt.Errorf("%w: team %q", ErrNotOwner, teamID)
	}
	if err := t.SetStrategy(s); err != nil {
		return Update{}, err
	}
	return b.update(Update{TeamID: t.ID}), nil
}

// MoveTeam records a team's meta-game map position.
func (b *Battle) MoveTeam(clientID, teamID string, pos team.Position) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.state(); st == Finished || st == Cancelled {
		return Update{}, fmt.Errorf("moving team: %w", ErrInvalidState)
	}
	t, ok := b.findTeam(teamID)
	if !ok {
		return Update{}, fmt.Errorf("%w: %q", ErrTeamNotFound, teamID)
	}
	if !b.ownsTeamMember(clientID, t) {
		return Update{}, fmt.Errorf("%w: team %q", ErrNotOwner, teamID)
	}
	t.Position = pos
	return b.update(Update{TeamID: t.ID}), nil
}

// readyToFight reports whether every team is ready and the roster can be
// fought: PvP needs two populated teams, PvE needs players and enemies.
func (b *Battle) readyToFight() bool {
	populated := 0
	for _, t := range b.teams {
		if t.Size() == 0 {
			continue
		}
		if !t.Ready {
			return false
		}
		populated++
	}
	if b.pvp {
		return populated >= 2
	}
	return populated >= 1 && len(b.enemies) > 0
}

func (b *Battle) syncPreparation() {
	ready := b.readyToFight()
	switch {
	case ready && b.state() == Waiting:
		_ = b.fire(evPrepare)
	case !ready && b.state() == Preparation:
		_ = b.fire(evUnprepare)
	}
}

// CanInvade reports whether an invading team would be accepted now.
func (b *Battle) CanInvade() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canInvade()
}

func (b *Battle) canInvade() bool {
	return b.allowInvasion && !b.invaded && b.state() == InProgress && len(b.teams) < maxInvasionTeams
}

// AddInvadingTeam brings t into the running battle on behalf of clientID.
// The weakest defending team by total health gains InvasionDefenseBonus
// defense per member and the turn order is recomputed with the current
// actor kept current.
//
// Postcondition: fails with ErrCannotInvade, leaving the team list
// unchanged, whenever CanInvade is false.
func (b *Battle) AddInvadingTeam(clientID string, t *team.Team) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.canInvade() {
		return Update{}, ErrCannotInvade
	}
	if len(b.clientPlayers(clientID)) > 0 {
		return Update{}, ErrAlreadyJoined
	}
	b.addInvader(clientID, t)
	return b.update(Update{TeamID: t.ID}), nil
}

// Invade creates a single-player invading team for clientID.
func (b *Battle) Invade(clientID, teamName, playerName string, class character.Class, strategy team.Strategy) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.canInvade() {
		return Update{}, ErrCannotInvade
	}
	if len(b.clientPlayers(clientID)) > 0 {
		return Update{}, ErrAlreadyJoined
	}
	p, err := character.NewPlayer(b.newID(), playerName, class, b.skills)
	if err != nil {
		return Update{}, err
	}
	if teamName == "" {
		teamName = fmt.Sprintf("Invaders %d", len(b.teams)+1)
	}
	t := team.New(b.newID(), teamName, strategy)
	if err := t.AddPlayer(p); err != nil {
		return Update{}, err
	}
	b.addInvader(clientID, t)
	return b.update(Update{PlayerID: p.ID, TeamID: t.ID}), nil
}

func (b *Battle) addInvader(clientID string, t *team.Team) {
	var weakest *team.Team
	for _, d := range b.teams {
		if d.Invader {
			continue
		}
		if weakest == nil || d.TotalHealth() < weakest.TotalHealth() {
			weakest = d
		}
	}
	if weakest != nil {
		for _, p := range weakest.Players {
			p.BonusDefense += InvasionDefenseBonus
		}
	}

	t.Invader = true
	t.Ready = true
	for _, p := range t.Players {
		b.owners[p.ID] = clientID
	}
	b.teams = append(b.teams, t)
	b.invaded = true

	current := b.currentID()
	b.order = b.computeOrder()
	b.currentIndex = 0
	for i, id := range b.order {
		if id == current {
			b.currentIndex = i
			break
		}
	}
	b.logger.Info("battle invaded",
		zap.String("client_id", clientID),
		zap.String("team_id", t.ID),
	)
}

// Leave removes clientID from the battle. Before the battle starts its
// players leave their teams and teams they leave empty are dropped. While it is in
// progress they flee (PvE) or forfeit (PvP), and the turn moves on if it
// was theirs.
func (b *Battle) Leave(clientID string) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	players := b.clientPlayers(clientID)
	if len(players) == 0 {
		return Update{}, ErrNotParticipant
	}
	var u Update
	switch b.state() {
	case Waiting, Preparation:
		emptied := make(map[string]bool)
		for _, p := range players {
			if t, ok := b.findTeam(p.TeamID); ok {
				_, _ = t.RemovePlayer(p.ID)
				emptied[t.ID] = t.Size() == 0
			}
			delete(b.owners, p.ID)
		}
		kept := b.teams[:0]
		for _, t := range b.teams {
			if !emptied[t.ID] {
				kept = append(kept, t)
			}
		}
		b.teams = kept
		b.syncPreparation()
	case InProgress:
		wasCurrent := false
		current := b.currentID()
		for _, p := range players {
			if p.ID == current {
				wasCurrent = true
			}
			if b.pvp {
				p.Health = 0
				u.Results = append(u.Results, combat.Result{ActorID: p.ID, Action: "Forfeit", Message: p.Name + " forfeited"})
			} else {
				p.Fled = true
				u.Results = append(u.Results, combat.Result{ActorID: p.ID, Action: "Flee", Message: p.Name + " left the battle"})
			}
			delete(b.owners, p.ID)
		}
		b.record(u.Results...)
		u.Results = append(u.Results, b.afterAction(wasCurrent)...)
	default:
		for _, p := range players {
			delete(b.owners, p.ID)
		}
	}
	return b.update(u), nil
}

// Cancel moves a battle that has not finished to Cancelled.
func (b *Battle) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.machine.Can(evCancel) {
		return fmt.Errorf("cancelling: %w", ErrInvalidState)
	}
	return b.fire(evCancel)
}
