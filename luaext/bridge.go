package luaext

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/amp-labs/safecall/callable"
	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value to a Go value. Integral numbers become int64,
// other numbers float64. Tables become []any when their keys are exactly
// 1..n, map[string]any otherwise. Functions have no Go form and become nil,
// as does a table reached again through itself.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch val := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}

		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Only tables on the current path form a cycle; shared subtables
		// convert each time they appear.
		if visited[val] {
			return nil
		}

		visited[val] = true
		defer delete(visited, val)

		return tableToGo(val, visited)
	case *lua.LUserData:
		return val.Value
	default:
		return nil
	}
}

func tableToGo(tbl *lua.LTable, visited map[*lua.LTable]bool) any {
	count := 0
	maxN := 0
	isArray := true

	tbl.ForEach(func(key, _ lua.LValue) {
		count++

		if num, ok := key.(lua.LNumber); ok {
			n := int(num)
			if float64(n) == float64(num) && n > 0 {
				maxN = max(maxN, n)

				return
			}
		}

		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = toGoVisited(tbl.RawGetInt(i), visited)
		}

		return arr
	}

	out := make(map[string]any, count)

	tbl.ForEach(func(key, value lua.LValue) {
		var name string

		switch k := key.(type) {
		case lua.LString:
			name = string(k)
		case lua.LNumber:
			name = fmt.Sprint(float64(k))
		default:
			name = key.String()
		}

		out[name] = toGoVisited(value, visited)
	})

	return out
}

// toLua converts a Go value to a Lua value. A callable.Ref becomes its string
// form, so fallbacks written in Lua see the missing function's name. Go
// functions become callable Lua functions.
func toLua(state *lua.LState, v any) lua.LValue { //nolint:cyclop
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case callable.Ref:
		return lua.LString(val.String())
	case callable.Result:
		if !val.Present() {
			return lua.LNil
		}

		return toLua(state, val.Value())
	}

	return reflectToLua(state, v)
}

func reflectToLua(state *lua.LState, v any) lua.LValue {
	rv := reflect.ValueOf(v)

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}

		return toLua(state, rv.Elem().Interface())
	case reflect.Func:
		if rv.IsNil() {
			return lua.LNil
		}

		return state.NewFunction(goFunction(callable.Wrap(v)))
	case reflect.Slice, reflect.Array:
		tbl := state.CreateTable(rv.Len(), 0)
		for i := range rv.Len() {
			tbl.RawSetInt(i+1, toLua(state, rv.Index(i).Interface()))
		}

		return tbl
	case reflect.Map:
		tbl := state.CreateTable(0, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			tbl.RawSet(toLua(state, iter.Key().Interface()), toLua(state, iter.Value().Interface()))
		}

		return tbl
	case reflect.Struct:
		return structToTable(state, rv)
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	default:
		ud := state.NewUserData()
		ud.Value = v

		return ud
	}
}

// structToTable copies exported fields, named by their json tag when present.
func structToTable(state *lua.LState, rv reflect.Value) *lua.LTable {
	tbl := state.NewTable()
	rt := rv.Type()

	for i := range rv.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name

		if tag := field.Tag.Get("json"); tag != "" && tag != "-" {
			if tag, _, _ = strings.Cut(tag, ","); tag != "" {
				name = tag
			}
		}

		tbl.RawSetString(name, toLua(state, rv.Field(i).Interface()))
	}

	return tbl
}

// goFunction adapts an Invocable for Lua. Lua arguments are converted with
// toGo. The Lua state's context (the dispatch ctx during a call) is passed
// through. An error is raised as a Lua error; None returns nothing.
func goFunction(inv callable.Invocable) lua.LGFunction {
	return func(state *lua.LState) int {
		nargs := state.GetTop()

		args := make([]any, nargs)
		for i := 1; i <= nargs; i++ {
			args[i-1] = toGo(state.Get(i))
		}

		ctx := state.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		res, err := inv(ctx, args...)
		if err != nil {
			state.RaiseError("%s", err.Error())

			return 0
		}

		if !res.Present() {
			return 0
		}

		state.Push(toLua(state, res.Value()))

		return 1
	}
}
