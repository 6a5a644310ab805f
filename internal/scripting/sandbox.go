// Package scripting provides a sandboxed GopherLua execution environment for
// enemy AI hooks. It has no dependency on game domain packages; combatants
// are passed in as plain CombatantInfo snapshots.
package scripting

import (
	"context"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Per-call bounds used when none are configured.
const (
	DefaultInstructionLimit = 100_000
	DefaultCallDeadline     = 50 * time.Millisecond
)

// opcodeBudget ends its context after a fixed number of VM steps. The VM
// polls Done once per opcode while a context is attached.
type opcodeBudget struct {
	context.Context
	left atomic.Int64
	stop context.CancelFunc
}

func (b *opcodeBudget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.stop()
	}
	return b.Context.Done()
}

// Limits bounds one Lua call.
type Limits struct {
	// Instructions is the opcode budget; 0 uses DefaultInstructionLimit.
	Instructions int
	// Deadline is the wall-clock budget; 0 uses DefaultCallDeadline.
	Deadline time.Duration
}

// Arm attaches a fresh budget to L. The returned function detaches it and
// must be called once the guarded execution returns.
func (lim Limits) Arm(L *lua.LState) context.CancelFunc {
	n := lim.Instructions
	if n <= 0 {
		n = DefaultInstructionLimit
	}
	d := lim.Deadline
	if d <= 0 {
		d = DefaultCallDeadline
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	b := &opcodeBudget{Context: ctx, stop: cancel}
	b.left.Store(int64(n))
	L.SetContext(b)
	return func() {
		cancel()
		L.RemoveContext()
	}
}

// LimitInstructions arms L with limit opcodes and the default deadline.
func LimitInstructions(L *lua.LState, limit int) context.CancelFunc {
	return Limits{Instructions: limit}.Arm(L)
}

// NewSandboxedState returns a VM with only the base, table, string and math
// libraries; the loader globals and collectgarbage are removed.
//
// Postcondition: The caller owns the state and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
