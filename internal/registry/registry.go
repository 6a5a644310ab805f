// Package registry maps battle ids, room codes and clients to the live
// battles hosted by this process.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// roomCodeSpace is the number of 5-digit codes.
const roomCodeSpace = 100000

// maxCodeAttempts bounds random draws before falling back to a scan.
const maxCodeAttempts = 32

var (
	// ErrBattleNotFound is returned for an unknown battle id or room code.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrRoomCodesExhausted is returned when every room code is in use.
	ErrRoomCodesExhausted = errors.New("no room codes available")
	// ErrAlreadyInBattle is returned when a client bound to an unfinished
	// battle tries to enter another one.
	ErrAlreadyInBattle = errors.New("client is already in another battle")
)

// Builder constructs a battle for a freshly issued id and room code.
type Builder func(id, roomCode string) (*battle.Battle, error)

// Registry is the process-wide index of live battles. It is constructed
// once and passed by handle; its lock is independent of per-battle locks.
type Registry struct {
	mu      sync.RWMutex
	battles map[string]*battle.Battle
	rooms   map[string]string
	clients map[string]string

	src    dice.Source
	newID  func() string
	logger *zap.Logger
}

// New creates an empty registry. src draws room codes and newID issues
// battle ids.
//
// Precondition: src, newID and logger must be non-nil.
func New(src dice.Source, newID func() string, logger *zap.Logger) *Registry {
	return &Registry{
		battles: make(map[string]*battle.Battle),
		rooms:   make(map[string]string),
		clients: make(map[string]string),
		src:     src,
		newID:   newID,
		logger:  logger,
	}
}

// roomCode returns a code not held by any live battle. Caller holds mu.
func (r *Registry) roomCode() (string, error) {
	if len(r.rooms) >= roomCodeSpace {
		return "", ErrRoomCodesExhausted
	}
	for i := 0; i < maxCodeAttempts; i++ {
		code := fmt.Sprintf("%05d", dice.Pick(r.src, roomCodeSpace))
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	start := dice.Pick(r.src, roomCodeSpace)
	for i := 0; i < roomCodeSpace; i++ {
		code := fmt.Sprintf("%05d", (start+i)%roomCodeSpace)
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrRoomCodesExhausted
}

// Create issues an id and a unique room code, builds the battle and
// registers it.
//
// Postcondition: on error nothing is registered.
func (r *Registry) Create(build Builder) (*battle.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, err := r.roomCode()
	if err != nil {
		return nil, fmt.Errorf("creating battle: %w", err)
	}
	b, err := build(r.newID(), code)
	if err != nil {
		return nil, fmt.Errorf("creating battle: %w", err)
	}
	r.battles[b.ID()] = b
	r.rooms[code] = b.ID()
	r.logger.Info("battle registered",
		zap.String("battle_id", b.ID()),
		zap.String("room_code", code),
		zap.Int("live", len(r.battles)),
	)
	return b, nil
}

// Get returns the battle with the given id.
func (r *Registry) Get(id string) (*battle.Battle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.battles[id]
	if !ok {
		return nil, fmt.Errorf("battle %q: %w", id, ErrBattleNotFound)
	}
	return b, nil
}

// ByRoomCode returns the battle registered under code.
func (r *Registry) ByRoomCode(code string) (*battle.Battle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.rooms[code]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", code, ErrBattleNotFound)
	}
	return r.battles[id], nil
}

// Lookup resolves a battle by id, falling back to room code.
func (r *Registry) Lookup(battleID, roomCode string) (*battle.Battle, error) {
	if battleID != "" {
		return r.Get(battleID)
	}
	if roomCode != "" {
		return r.ByRoomCode(roomCode)
	}
	return nil, fmt.Errorf("no battle id or room code: %w", ErrBattleNotFound)
}

// Bind records that clientID participates in battleID. A client may be
// bound to one unfinished battle at a time; a binding to a finished or
// cancelled battle is replaced.
func (r *Registry) Bind(clientID, battleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.battles[battleID]; !ok {
		return fmt.Errorf("battle %q: %w", battleID, ErrBattleNotFound)
	}
	if cur, ok := r.clients[clientID]; ok && cur != battleID {
		if b, live := r.battles[cur]; live && !over(b.State()) {
			return ErrAlreadyInBattle
		}
	}
	r.clients[clientID] = battleID
	return nil
}

// Unbind forgets clientID's battle.
func (r *Registry) Unbind(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// BattleOf returns the battle clientID is bound to.
func (r *Registry) BattleOf(clientID string) (*battle.Battle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.clients[clientID]
	if !ok {
		return nil, false
	}
	b, ok := r.battles[id]
	return b, ok
}

// Clients returns the clients bound to battleID.
func (r *Registry) Clients(battleID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for c, id := range r.clients {
		if id == battleID {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Remove discards a battle, releasing its room code and every client
// binding to it.
//
// Postcondition: returns false when the battle was not registered.
func (r *Registry) Remove(battleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.battles[battleID]
	if !ok {
		return false
	}
	r.remove(b)
	return true
}

// RemoveAbandoned discards battleID only while no client is bound to it
// and it has no participants. Both are checked under the registry lock, so
// a concurrent Bind either lands first and keeps the battle or fails with
// ErrBattleNotFound.
//
// Postcondition: returns the removed battle, or false when it was kept or
// not registered.
func (r *Registry) RemoveAbandoned(battleID string) (*battle.Battle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.battles[battleID]
	if !ok {
		return nil, false
	}
	for _, id := range r.clients {
		if id == battleID {
			return nil, false
		}
	}
	if len(b.Participants()) > 0 {
		return nil, false
	}
	r.remove(b)
	return b, true
}

// remove drops b and its bindings. The caller holds r.mu.
func (r *Registry) remove(b *battle.Battle) {
	battleID := b.ID()
	delete(r.battles, battleID)
	delete(r.rooms, b.RoomCode())
	for c, id := range r.clients {
		if id == battleID {
			delete(r.clients, c)
		}
	}
	r.logger.Info("battle removed",
		zap.String("battle_id", battleID),
		zap.String("room_code", b.RoomCode()),
		zap.Int("live", len(r.battles)),
	)
}

// List returns summaries of every live battle ordered by room code.
func (r *Registry) List() []battle.Summary {
	r.mu.RLock()
	bs := make([]*battle.Battle, 0, len(r.battles))
	for _, b := range r.battles {
		bs = append(bs, b)
	}
	r.mu.RUnlock()

	out := make([]battle.Summary, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomCode < out[j].RoomCode })
	return out
}

// Count returns the number of live battles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.battles)
}

func over(s battle.State) bool {
	return s == battle.Finished || s == battle.Cancelled
}
