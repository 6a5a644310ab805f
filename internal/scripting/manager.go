package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// CombatantInfo is a snapshot of a combatant's state passed to Lua hooks.
type CombatantInfo struct {
	ID        string
	Name      string
	Health    int
	MaxHealth int
	Attack    int
	Defense   int
	Speed     int
	Effects   []string
	Skills    []string
}

// Decision is what an AI hook asked the enemy to do.
type Decision struct {
	Action string
	Target string
	Skill  string
}

// Manager owns one sandboxed LState holding every loaded AI script.
//
// Manager is safe for concurrent use once Load has returned; calls into the
// VM are serialised by mu.
type Manager struct {
	mu     sync.Mutex
	state  *lua.LState
	limit  int
	src    dice.Source
	logger *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: src and logger must be non-nil.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	return &Manager{src: src, logger: logger}
}

// Load creates a sandboxed VM, registers the engine.* module, then executes
// every *.lua file in scriptDir in lexicographic order. A previously loaded
// VM is replaced.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: returns an error on the first Lua load failure; the old VM
// stays in place in that case.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	L := NewSandboxedState()
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		release := LimitInstructions(L, instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.state != nil {
		m.state.Close()
	}
	m.state = L
	m.limit = instLimit
	m.mu.Unlock()
	m.logger.Info("scripting: loaded AI scripts",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if no
// VM is loaded or the hook is not defined. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...func(*lua.LState) lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L := m.state
	if L == nil {
		m.logger.Debug("scripting: no VM loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}

	fn := L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	values := make([]lua.LValue, len(args))
	for i, build := range args {
		values[i] = build(L)
	}

	release := LimitInstructions(L, m.limit)
	defer release()
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, values...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Decide calls an AI hook as hook(self, allies, opponents) and converts the
// returned table into a Decision.
//
// Postcondition: Returns nil when the hook is missing, fails, or does not
// return a table with a non-empty action field.
func (m *Manager) Decide(hook string, self CombatantInfo, allies, opponents []CombatantInfo) *Decision {
	ret, _ := m.CallHook(hook,
		func(L *lua.LState) lua.LValue { return combatantTable(L, self) },
		func(L *lua.LState) lua.LValue { return combatantList(L, allies) },
		func(L *lua.LState) lua.LValue { return combatantList(L, opponents) },
	)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}
	d := &Decision{
		Action: lua.LVAsString(tbl.RawGetString("action")),
		Target: lua.LVAsString(tbl.RawGetString("target")),
		Skill:  lua.LVAsString(tbl.RawGetString("skill")),
	}
	if d.Action == "" {
		return nil
	}
	return d
}
