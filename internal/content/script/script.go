// Package script loads sigils written as Lua tables. A script returns a table
// declaring when the sigil fires and which effects it emits; the table is read
// once at load time and compiled into a behavior, so no Lua runs during battles.
//
//	return {
//	  name = "thorns",
//	  role = "attackee",
//	  on = {
//	    { phase = "cleanup", kind = "attack",
//	      effects = { { verb = "stats", target = "attacker", power = -1 } } },
//	  },
//	}
package script

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"path"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/effects"
)

//go:embed sigils/*.lua
var builtin embed.FS

// Builtin compiles the sigils shipped with the server.
func Builtin() ([]*effects.Behavior, error) {
	return LoadDir(builtin, "sigils")
}

// LoadDir compiles every .lua file of dir in name order.
func LoadDir(fsys fs.FS, dir string) ([]*effects.Behavior, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sigil scripts: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []*effects.Behavior
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		src, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		b, err := Load(string(src))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Load evaluates one script and compiles the table it returns.
func Load(src string) (*effects.Behavior, error) {
	decl, err := evaluate(src)
	if err != nil {
		return nil, err
	}
	return compile(decl)
}

func evaluate(src string) (map[string]any, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.LoadString(state, src); err != nil {
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("failed to run script: %w", err)
	}
	defer state.Pop(1)
	if state.TypeOf(-1) != lua.TypeTable {
		return nil, fmt.Errorf("script must return a table, got %v", state.TypeOf(-1))
	}
	return tableToMap(state, -1), nil
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo returns a []any for sequences and a map otherwise.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				maxIndex = max(maxIndex, idx)
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}
	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
