// Package scripting provides a sandboxed GopherLua environment for
// per-player policy scripts. Scripts nudge engine decisions through a few
// named hooks; the engine never depends on a script being present.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one hook call when the
// configuration leaves it at zero.
const DefaultInstructionLimit = 100_000

// policyLibs are the only standard libraries a policy script sees.
var policyLibs = []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath}

// hiddenGlobals are base library entries that reach the file system or
// the collector.
var hiddenGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// opcodeBudget cancels itself once the VM has polled it more than its
// allowance. GopherLua polls Done once per executed opcode.
type opcodeBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opcodeBudget) Done() <-chan struct{} {
	if b.left.Add(-1) < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// rearm installs a fresh budget of instLimit opcodes on L; 0 or less
// means DefaultInstructionLimit.
//
// Postcondition: The returned cancel func must be called once the run ends.
func rearm(L *lua.LState, instLimit int) context.CancelFunc {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opcodeBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(instLimit))
	L.SetContext(b)
	return cancel
}

// NewSandboxedState returns a VM with only policyLibs opened, the
// hiddenGlobals removed and a budget of instLimit opcodes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller closes L and calls cancel when done with it.
func NewSandboxedState(instLimit int) (L *lua.LState, cancel context.CancelFunc) {
	L = lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range policyLibs {
		open(L)
	}
	for _, name := range hiddenGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L, rearm(L, instLimit)
}
