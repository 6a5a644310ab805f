package scripting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	require.NotNil(t, L)
	defer L.Close()
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_DangerousGlobalsNil(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	err := L.DoString(`
		local x = math.sqrt(4)
		assert(x == 2.0, "math.sqrt failed")
		local s = string.upper("hello")
		assert(s == "HELLO", "string.upper failed")
	`)
	assert.NoError(t, err)
}

func TestLimitInstructions_Exceeded(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	release := scripting.LimitInstructions(L, 10)
	err := L.DoString(`while true do end`)
	release()
	assert.Error(t, err, "expected instruction limit error")
}

func TestLimitInstructions_FreshBudgetPerCall(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for i := 0; i < 3; i++ {
		release := scripting.LimitInstructions(L, 1000)
		err := L.DoString(`local s = 0 for i = 1, 50 do s = s + i end`)
		release()
		require.NoError(t, err, "call %d", i)
	}
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L := scripting.NewSandboxedState()
		defer L.Close()
		release := scripting.LimitInstructions(L, limit)
		defer release()
		if err := L.DoString(`while true do end`); err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}

func TestLimits_DeadlineStopsSlowScript(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	release := scripting.Limits{Instructions: 1 << 40, Deadline: 20 * time.Millisecond}.Arm(L)
	defer release()
	start := time.Now()
	err := L.DoString(`while true do end`)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewSandboxedState_LoadstringRemoved(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	assert.Equal(t, lua.LNil, L.GetGlobal("loadstring"))
}
