package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// maxEnemySteps bounds consecutive automatic enemy turns per call.
const maxEnemySteps = 256

func (b *Battle) computeOrder() []string {
	order := combat.TurnOrder(b.field())
	ids := make([]string, len(order))
	for i, c := range order {
		ids[i] = c.Base().ID
	}
	return ids
}

func (b *Battle) currentID() string {
	if b.currentIndex < 0 || b.currentIndex >= len(b.order) {
		return ""
	}
	return b.order[b.currentIndex]
}

func (b *Battle) current() character.Combatant {
	id := b.currentID()
	if id == "" {
		return nil
	}
	return b.field().Find(id)
}

// Start begins the battle: turn order is computed, CurrentTurn becomes 1 and
// CurrentIndex 0. Leading enemy turns are played immediately.
//
// Postcondition: fails with ErrInvalidState unless the battle is Waiting or
// Preparation, and with ErrNotEnoughCombatants when there is nobody to fight.
func (b *Battle) Start(clientID string) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.preBattle() {
		return Update{}, fmt.Errorf("starting: %w", ErrInvalidState)
	}
	if len(b.clientPlayers(clientID)) == 0 {
		return Update{}, ErrNotParticipant
	}
	populated := 0
	for _, t := range b.teams {
		if t.Size() > 0 {
			populated++
		}
	}
	if populated == 0 || (b.pvp && populated < 2) || (!b.pvp && len(b.enemies) == 0) {
		return Update{}, ErrNotEnoughCombatants
	}
	kept := b.teams[:0]
	for _, t := range b.teams {
		if t.Size() > 0 {
			kept = append(kept, t)
		}
	}
	b.teams = kept

	if err := b.fire(evStart); err != nil {
		return Update{}, err
	}
	b.order = b.computeOrder()
	b.currentTurn = 1
	b.currentIndex = 0
	b.beginTurn()
	b.logger.Info("battle started",
		zap.Bool("pvp", b.pvp),
		zap.Int("teams", len(b.teams)),
		zap.Int("enemies", len(b.enemies)),
		zap.Strings("turn_order", b.order),
	)
	return b.update(Update{Results: b.runEnemies()}), nil
}

// ProcessAction resolves action for actorID on behalf of clientID. An empty
// actorID means the client's character whose turn it is.
//
// Postcondition: fails without mutating anything unless the battle is in
// progress, actorID is the current actor and clientID controls it. On
// success the turn advances and any following enemy turns are played.
func (b *Battle) ProcessAction(clientID, actorID string, action combat.Action) (Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state() != InProgress {
		return Update{}, fmt.Errorf("acting: %w", ErrInvalidState)
	}
	current := b.currentID()
	if actorID == "" {
		actorID = current
	}
	if actorID != current {
		return Update{}, ErrNotYourTurn
	}
	if b.owners[actorID] != clientID {
		return Update{}, ErrNotOwner
	}
	actor := b.current()
	results, err := b.resolve(actor, action)
	if err != nil {
		return Update{}, err
	}
	b.record(results...)
	results = append(results, b.afterAction(true)...)
	return b.update(Update{Results: results}), nil
}

// AutoPass passes the current actor's turn if the battle is still at turn
// and index, which is how the turn timer reports the state it armed on.
// Returns false when the turn has moved on.
func (b *Battle) AutoPass(turn, index int) (Update, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state() != InProgress || turn != b.currentTurn || index != b.currentIndex {
		return Update{}, false
	}
	actor := b.current()
	if actor == nil {
		return Update{}, false
	}
	results := []combat.Result{combat.ResolvePass(actor, "turn timed out")}
	b.record(results...)
	results = append(results, b.afterAction(true)...)
	return b.update(Update{Results: results}), true
}

// TurnKey returns the current turn and index and whether the battle is
// waiting on a player.
func (b *Battle) TurnKey() (turn, index int, waiting bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state() != InProgress {
		return b.currentTurn, b.currentIndex, false
	}
	_, isPlayer := b.current().(*character.Player)
	return b.currentTurn, b.currentIndex, isPlayer
}

// afterAction checks for the end of the battle and, when the acting
// character's turn is over, advances and plays enemy turns.
func (b *Battle) afterAction(turnUsed bool) []combat.Result {
	if b.checkEnd() || !turnUsed {
		return nil
	}
	results := b.advance()
	if b.state() != InProgress {
		return results
	}
	return append(results, b.runEnemies()...)
}

// resolve applies action for actor. A stunned actor always passes.
//
// Postcondition: on error nothing has been mutated.
func (b *Battle) resolve(actor character.Combatant, action combat.Action) ([]combat.Result, error) {
	c := actor.Base()
	if c.IsStunned() {
		return []combat.Result{combat.ResolvePass(actor, c.Name+" is stunned")}, nil
	}
	f := b.field()
	switch a := action.(type) {
	case combat.Attack:
		target := f.Find(a.TargetID)
		if target == nil || !target.Base().CanAct() || !f.IsOpponent(actor, target) {
			return nil, fmt.Errorf("%w: %q", combat.ErrInvalidTarget, a.TargetID)
		}
		target = combat.RedirectForTaunt(f, actor, target)
		return []combat.Result{combat.ResolveAttack(actor, target)}, nil

	case combat.UseSkill:
		sk, ok := skillOf(actor, a.SkillID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, a.SkillID)
		}
		if !sk.Ready() {
			return nil, fmt.Errorf("%w: %s has %d turns left", combat.ErrSkillOnCooldown, sk.Name, sk.Cooldown)
		}
		targets, err := combat.ResolveTargets(f, actor, sk, a.TargetID, b.src)
		if err != nil {
			return nil, err
		}
		if sk.Damage > 0 && len(targets) == 1 && targets[0].Base().ID != c.ID && f.IsOpponent(actor, targets[0]) {
			targets[0] = combat.RedirectForTaunt(f, actor, targets[0])
		}
		return combat.ResolveSkill(actor, sk, targets, b.effects)

	case combat.UseItem:
		p, ok := actor.(*character.Player)
		if !ok {
			return nil, fmt.Errorf("%w: only players carry items", combat.ErrNoItem)
		}
		targetID := a.TargetID
		if targetID == "" {
			targetID = c.ID
		}
		var target character.Combatant
		for _, ally := range f.Allies(actor) {
			if ally.Base().ID == targetID {
				target = ally
			}
		}
		if target == nil {
			return nil, fmt.Errorf("%w: %q", combat.ErrInvalidTarget, targetID)
		}
		r, err := combat.ResolveItem(p, a.ItemID, target)
		if err != nil {
			return nil, err
		}
		return []combat.Result{r}, nil

	case combat.Defend:
		return []combat.Result{combat.ResolveDefend(actor)}, nil

	case combat.Flee:
		r, err := combat.ResolveFlee(actor, b.pvp)
		if err != nil {
			return nil, err
		}
		b.removeFromOrder(c.ID)
		return []combat.Result{r}, nil

	case combat.Pass:
		return []combat.Result{combat.ResolvePass(actor, "")}, nil
	}
	return nil, fmt.Errorf("unsupported action %T", action)
}

func skillOf(actor character.Combatant, id string) (*skill.Skill, bool) {
	switch v := actor.(type) {
	case *character.Player:
		return v.SkillByID(id)
	case *character.Enemy:
		return v.SkillByID(id)
	}
	return nil, false
}

// removeFromOrder drops id from the turn order. The index is shifted so that
// the next advance lands on the character that followed it.
func (b *Battle) removeFromOrder(id string) {
	for i, oid := range b.order {
		if oid != id {
			continue
		}
		b.order = append(b.order[:i], b.order[i+1:]...)
		if i <= b.currentIndex {
			b.currentIndex--
		}
		return
	}
}

// advance moves to the next character able to act. Wrapping past the end of
// the order starts a new turn and runs processTurnEffects.
func (b *Battle) advance() []combat.Result {
	var results []combat.Result
	for steps := 0; steps <= len(b.order)+1; steps++ {
		b.currentIndex++
		if b.currentIndex >= len(b.order) {
			b.currentIndex = 0
			b.currentTurn++
			results = append(results, b.processTurnEffects()...)
			if b.state() != InProgress {
				return results
			}
		}
		if c := b.current(); c != nil && c.Base().CanAct() {
			b.beginTurn()
			return results
		}
	}
	// nobody left who can act
	b.checkEnd()
	return results
}

// beginTurn ticks the current actor's skill cooldowns.
func (b *Battle) beginTurn() {
	switch c := b.current().(type) {
	case *character.Player:
		c.TickCooldowns()
	case *character.Enemy:
		c.TickCooldowns()
	}
}

// processTurnEffects ticks every character's status effects, prunes the
// characters that can no longer act from the order and checks for the end
// of the battle.
func (b *Battle) processTurnEffects() []combat.Result {
	var results []combat.Result
	for _, c := range b.field().All() {
		base := c.Base()
		if !base.CanAct() {
			continue
		}
		tick := base.ProcessStatusEffects()
		if tick.Damage == 0 && tick.Healing == 0 && len(tick.Expired) == 0 {
			continue
		}
		r := combat.Result{ActorID: base.ID, Action: "StatusTick", TargetID: base.ID, Damage: tick.Damage, Healing: tick.Healing, Killed: !base.IsAlive()}
		for _, e := range tick.Expired {
			r.Effects = append(r.Effects, e.Def.ID)
		}
		results = append(results, r)
	}
	b.record(results...)

	f := b.field()
	kept := b.order[:0]
	for _, id := range b.order {
		if c := f.Find(id); c != nil && c.Base().CanAct() {
			kept = append(kept, id)
		}
	}
	b.order = kept
	b.checkEnd()
	return results
}

// runEnemies plays enemy turns until a player is up or the battle ends.
// An enemy whose chosen action is rejected passes instead.
func (b *Battle) runEnemies() []combat.Result {
	var results []combat.Result
	for steps := 0; steps < maxEnemySteps && b.state() == InProgress; steps++ {
		e, ok := b.current().(*character.Enemy)
		if !ok {
			return results
		}
		action := b.planner.Choose(b.field(), e)
		rs, err := b.resolve(e, action)
		if err != nil {
			b.logger.Warn("enemy action rejected; passing",
				zap.String("enemy", e.ID),
				zap.String("action", string(action.Type())),
				zap.Error(err),
			)
			rs = []combat.Result{combat.ResolvePass(e, "hesitates")}
		}
		b.record(rs...)
		results = append(results, rs...)
		if b.checkEnd() {
			return results
		}
		results = append(results, b.advance()...)
	}
	return results
}

// checkEnd finishes the battle when it is decided. Returns true once the
// battle is no longer in progress.
func (b *Battle) checkEnd() bool {
	if b.state() != InProgress {
		return true
	}
	out := combat.CheckBattleEnd(b.field())
	if !out.Over {
		return false
	}
	b.finish(out.WinnerTeamID)
	return true
}

// finish records the winner, pays PvE rewards and updates win/loss stats.
func (b *Battle) finish(winner string) {
	if err := b.fire(evFinish); err != nil {
		b.logger.Error("finishing battle", zap.Error(err))
		return
	}
	b.winnerTeamID = winner
	b.finishedAt = b.now()

	if !b.pvp && winner != "" {
		b.payRewards()
	}
	for _, t := range b.teams {
		for _, p := range t.Players {
			if t.ID == winner {
				p.Stats.Wins++
			} else {
				p.Stats.Losses++
			}
		}
	}
	b.logger.Info("battle finished",
		zap.String("winner_team_id", winner),
		zap.Int("turns", b.currentTurn),
		zap.Duration("elapsed", b.finishedAt.Sub(b.createdAt)),
	)
}

// payRewards splits the enemies' experience and gold evenly across the
// players still standing.
func (b *Battle) payRewards() {
	exp, gold := 0, 0
	for _, e := range b.enemies {
		exp += e.ExpReward
		gold += e.GoldReward
	}
	var survivors []*character.Player
	for _, t := range b.teams {
		for _, p := range t.Players {
			if p.CanAct() {
				survivors = append(survivors, p)
			}
		}
	}
	if len(survivors) == 0 {
		return
	}
	for _, p := range survivors {
		p.Gold += gold / len(survivors)
		if levels := p.GainExperience(exp / len(survivors)); levels > 0 {
			b.logger.Info("player levelled up",
				zap.String("player_id", p.ID),
				zap.Int("level", p.Level),
			)
		}
	}
}
