package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(dice.NewSequenceSource(2), zap.New(core))
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func number(n float64) func(*lua.LState) lua.LValue {
	return func(*lua.LState) lua.LValue { return lua.LNumber(n) }
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.Load(dir, 0))
	ret, err := mgr.CallHook("add", number(3), number(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_NoVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret, err := mgr.CallHook("anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "empty.lua", `-- none`), 0))
	ret, err := mgr.CallHook("nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`), 0))
	ret, err := mgr.CallHook("bad_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.NotZero(t, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_CallHook_RunawayHookStopsAndVMSurvives(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "loop.lua", `
		function spin() while true do end end
		function one() return 1 end
	`), 500))
	ret, err := mgr.CallHook("spin")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)

	ret, err = mgr.CallHook("one")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret)
}

func TestManager_Load_BadDir(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.Load("/nonexistent/scripts", 0))
}

func TestManager_Load_SyntaxError(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.Load(writeTempLua(t, "broken.lua", `function (`), 0))
}

func TestManager_Decide(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "ai.lua", `
		function focus_weakest(self, allies, opponents)
			local best = nil
			for _, o in ipairs(opponents) do
				if best == nil or o.health < best.health then best = o end
			end
			if best == nil then return { action = "Defend" } end
			return { action = "Attack", target = best.id }
		end
		function nothing() return 42 end
	`), 0))

	self := scripting.CombatantInfo{ID: "e1", Health: 10, MaxHealth: 10}
	opp := []scripting.CombatantInfo{{ID: "p1", Health: 50}, {ID: "p2", Health: 20}}
	d := mgr.Decide("focus_weakest", self, nil, opp)
	require.NotNil(t, d)
	assert.Equal(t, "Attack", d.Action)
	assert.Equal(t, "p2", d.Target)

	d = mgr.Decide("focus_weakest", self, nil, nil)
	require.NotNil(t, d)
	assert.Equal(t, "Defend", d.Action)

	assert.Nil(t, mgr.Decide("nothing", self, nil, nil))
	assert.Nil(t, mgr.Decide("missing", self, nil, nil))
}

func TestManager_EngineRandom(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "rand.lua", `
		function roll() return engine.random(6) end
	`), 0))
	ret, err := mgr.CallHook("roll")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(3), ret)
}

func TestManager_ConcurrentCalls(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "sum.lua", `
		function sum(n) local s = 0 for i = 1, n do s = s + i end return s end
	`), 0))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ret, err := mgr.CallHook("sum", number(10))
			assert.NoError(t, err)
			assert.Equal(t, lua.LNumber(55), ret)
		}()
	}
	wg.Wait()
}

func TestManager_ContentScripts_WyrmTactics(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load("../../content/scripts/ai", 10000))

	hurt := scripting.CombatantInfo{ID: "w", Health: 50, MaxHealth: 220, Skills: []string{"harden", "frost_breath"}}
	d := mgr.Decide("wyrm_tactics", hurt, nil, []scripting.CombatantInfo{{ID: "p1", Health: 10}})
	require.NotNil(t, d)
	assert.Equal(t, "Skill", d.Action)
	assert.Equal(t, "harden", d.Skill)

	healthy := scripting.CombatantInfo{ID: "w", Health: 220, MaxHealth: 220, Skills: []string{"frost_breath"}}
	d = mgr.Decide("wyrm_tactics", healthy, nil, []scripting.CombatantInfo{{ID: "p1", Health: 30}, {ID: "p2", Health: 20}})
	require.NotNil(t, d)
	assert.Equal(t, "frost_breath", d.Skill)

	d = mgr.Decide("wyrm_tactics", scripting.CombatantInfo{ID: "w", Health: 220, MaxHealth: 220}, nil,
		[]scripting.CombatantInfo{{ID: "p1", Health: 30}, {ID: "p2", Health: 20}})
	require.NotNil(t, d)
	assert.Equal(t, "Attack", d.Action)
	assert.Equal(t, "p2", d.Target)
}
