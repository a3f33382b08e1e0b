package emulator

import (
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Breakpoint conditions and watch expressions are Lua expressions over the
// CPU state: pc, hi, lo, reg(n) and mem(addr).

func compileExpression(expr string) (*lua.FunctionProto, error) {
	source := "return " + expr
	chunk, err := parse.Parse(strings.NewReader(source), expr)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", expr, err)
	}
	proto, err := lua.Compile(chunk, expr)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", expr, err)
	}
	return proto, nil
}

func (inst *EmulatorInstance) luaState() *lua.LState {
	if inst.lua != nil {
		return inst.lua
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			inst.logger.WithError(err).Warnf("opening lua %s library", lib.name)
		}
	}

	L.SetGlobal("reg", L.NewFunction(func(L *lua.LState) int {
		n := L.CheckInt(1)
		if n < 0 || n > 31 {
			L.ArgError(1, "register out of range")
			return 0
		}
		L.Push(lua.LNumber(inst.registers[n]))
		return 1
	}))
	L.SetGlobal("mem", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckNumber(1))
		data := inst.ReadMemory(addr&^3, 4)
		word := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
		L.Push(lua.LNumber(word))
		return 1
	}))

	inst.lua = L
	return L
}

func (inst *EmulatorInstance) evaluate(proto *lua.FunctionProto) (lua.LValue, error) {
	L := inst.luaState()
	L.SetGlobal("pc", lua.LNumber(inst.pc))
	L.SetGlobal("hi", lua.LNumber(inst.hi))
	L.SetGlobal("lo", lua.LNumber(inst.lo))

	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return lua.LNil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// EvaluateExpression evaluates a Lua expression against the current state.
func (inst *EmulatorInstance) EvaluateExpression(expr string) (string, error) {
	proto, err := compileExpression(expr)
	if err != nil {
		return "", err
	}
	v, err := inst.evaluate(proto)
	if err != nil {
		return "", err
	}
	if n, ok := v.(lua.LNumber); ok && float64(n) == float64(uint32(n)) {
		return fmt.Sprintf("0x%08x", uint32(n)), nil
	}
	return v.String(), nil
}

func (inst *EmulatorInstance) AddBreakpoint(addr uint32, condition string) (*Breakpoint, error) {
	bp := &Breakpoint{Address: addr &^ 3, Condition: condition}
	if condition != "" {
		proto, err := compileExpression(condition)
		if err != nil {
			return nil, err
		}
		bp.compiled = proto
	}

	inst.nextBreakpoint++
	bp.ID = inst.nextBreakpoint
	inst.breakpoints[bp.Address] = bp
	return bp, nil
}

func (inst *EmulatorInstance) RemoveBreakpoint(addr uint32) {
	delete(inst.breakpoints, addr&^3)
}

func (inst *EmulatorInstance) RemoveAllBreakpoints() {
	inst.breakpoints = map[uint32]*Breakpoint{}
}

func (inst *EmulatorInstance) GetBreakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(inst.breakpoints))
	for _, bp := range inst.breakpoints {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// atBreakpoint reports whether execution should stop before the
// instruction at pc.
func (inst *EmulatorInstance) atBreakpoint() bool {
	if inst.pc == inst.config.Breakpoint {
		return true
	}

	bp, ok := inst.breakpoints[inst.pc]
	if !ok {
		return false
	}
	if bp.compiled != nil {
		v, err := inst.evaluate(bp.compiled)
		if err != nil {
			inst.logger.WithError(err).Warnf("breakpoint %d condition failed", bp.ID)
			return true
		}
		if !lua.LVAsBool(v) {
			return false
		}
		if n, ok := v.(lua.LNumber); ok && n == 0 {
			return false
		}
	}
	bp.Hits++
	return true
}
