package engine

import (
	"strconv"
	"strings"

	"github.com/jsondocdb/jsondoc/pkg/host"
	"github.com/jsondocdb/jsondoc/pkg/jsonerr"
	"github.com/jsondocdb/jsondoc/pkg/jsonio"
	"github.com/jsondocdb/jsondoc/pkg/log"
	"github.com/jsondocdb/jsondoc/pkg/mutate"
	"github.com/jsondocdb/jsondoc/pkg/value"
)

// Dispatch routes a command name and its arguments to the matching
// Engine operation (spec §6.2), returning a host.Reply ready for
// RESP2 encoding: a single switch over the uppercased command name,
// one case per document command.
func (e *Engine) Dispatch(cmd string, args []string) (*host.Reply, error) {
	logger := log.WithCommand(cmd)
	defer func() {
		if r := recover(); r != nil {
			if fe, ok := jsonerr.AsFatal(r); ok {
				logger.Error().Err(fe).Msg("fatal invariant violation")
			}
			panic(r)
		}
	}()
	switch strings.ToUpper(cmd) {
	case "SET":
		return e.dispatchSet(args)
	case "GET":
		return e.dispatchGet(args)
	case "MGET":
		return e.dispatchMGet(args)
	case "DEL":
		return e.dispatchDel(args)
	case "FORGET":
		return e.dispatchForget(args)
	case "NUMINCRBY":
		return e.dispatchNumOp(args, true)
	case "NUMMULTBY":
		return e.dispatchNumOp(args, false)
	case "TOGGLE":
		return e.dispatchToggle(args)
	case "STRLEN":
		return e.dispatchIntPerMatch(args, func(m *mutate.Mutator, root *value.Value, path string) ([]int, error) {
			return m.StrLen(root, path)
		})
	case "STRAPPEND":
		return e.dispatchStrAppend(args)
	case "OBJLEN":
		return e.dispatchIntPerMatch(args, func(m *mutate.Mutator, root *value.Value, path string) ([]int, error) {
			return m.ObjLen(root, path)
		})
	case "OBJKEYS":
		return e.dispatchObjKeys(args)
	case "ARRLEN":
		return e.dispatchIntPerMatch(args, func(m *mutate.Mutator, root *value.Value, path string) ([]int, error) {
			return m.ArrLen(root, path)
		})
	case "ARRAPPEND":
		return e.dispatchArrAppend(args)
	case "ARRPOP":
		return e.dispatchArrPop(args)
	case "ARRINSERT":
		return e.dispatchArrInsert(args)
	case "ARRTRIM":
		return e.dispatchArrTrim(args)
	case "ARRINDEX":
		return e.dispatchArrIndex(args)
	case "CLEAR":
		return e.dispatchClear(args)
	case "TYPE":
		return e.dispatchType(args)
	case "DEBUG":
		return e.dispatchDebug(args)
	default:
		logger.Warn().Msg("unknown command")
		return nil, jsonerr.New(jsonerr.KindUnknownSubcommand, "unknown command %q", cmd)
	}
}

func requireArgs(args []string, n int) error {
	if len(args) < n {
		return jsonerr.New(jsonerr.KindWrongArity, "wrong number of arguments")
	}
	return nil
}

func (e *Engine) dispatchSet(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 3); err != nil {
		return nil, err
	}
	key, path, json := args[0], args[1], args[2]
	nx, xx := false, false
	for _, flag := range args[3:] {
		switch strings.ToUpper(flag) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		}
	}
	n, err := e.Set(key, path, json, nx, xx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return host.Null(), nil
	}
	return host.SimpleString("OK"), nil
}

func (e *Engine) dispatchGet(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	opts := jsonio.PrettyOptions{}
	var paths []string
	i := 1
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "NEWLINE":
			if i+1 >= len(args) {
				return nil, jsonerr.New(jsonerr.KindWrongArity, "NEWLINE requires a value")
			}
			opts.Newline = args[i+1]
			i += 2
		case "SPACE":
			if i+1 >= len(args) {
				return nil, jsonerr.New(jsonerr.KindWrongArity, "SPACE requires a value")
			}
			opts.Space = args[i+1]
			i += 2
		case "INDENT":
			if i+1 >= len(args) {
				return nil, jsonerr.New(jsonerr.KindWrongArity, "INDENT requires a value")
			}
			opts.Indent = args[i+1]
			i += 2
		case "NOESCAPE":
			i++ // accepted and ignored, per spec §6.2
		default:
			paths = append(paths, args[i])
			i++
		}
	}
	text, err := e.Get(key, paths, opts)
	if err != nil {
		return nil, err
	}
	return host.BulkString(text), nil
}

func (e *Engine) dispatchMGet(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 2); err != nil {
		return nil, err
	}
	path := args[len(args)-1]
	keys := args[:len(args)-1]
	texts, ok, err := e.MGet(keys, path)
	if err != nil {
		return nil, err
	}
	items := make([]*host.Reply, len(texts))
	for i := range texts {
		if ok[i] {
			items[i] = host.BulkString(texts[i])
		} else {
			items[i] = host.Null()
		}
	}
	return host.Array(items...), nil
}

func (e *Engine) dispatchDel(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	n, err := e.Del(args[0], path)
	if err != nil {
		return nil, err
	}
	return host.Integer(int64(n)), nil
}

func (e *Engine) dispatchForget(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	n, err := e.Forget(args[0])
	if err != nil {
		return nil, err
	}
	return host.Integer(int64(n)), nil
}

func (e *Engine) dispatchNumOp(args []string, add bool) (*host.Reply, error) {
	if err := requireArgs(args, 3); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	n, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindInvalidNumber, "invalid number %q", args[2])
	}
	by := numberOperand(args[2], n)
	var results []*value.Value
	_, err = e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		if add {
			results, opErr = m.IncrBy(root, path, by)
		} else {
			results, opErr = m.MultBy(root, path, by)
		}
		return opErr
	})
	if err != nil {
		return nil, err
	}
	items := make([]*host.Reply, len(results))
	for i, v := range results {
		items[i] = numericReply(v)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return host.Array(items...), nil
}

func numberOperand(raw string, f float64) *value.Value {
	if strings.ContainsAny(raw, ".eE") {
		return value.Double(f, raw)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.Int(i)
	}
	return value.Double(f, raw)
}

func numericReply(v *value.Value) *host.Reply {
	if v.IsDouble() {
		return host.BulkString(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	}
	return host.Integer(v.Int())
}

func (e *Engine) dispatchToggle(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	var out []bool
	_, err := e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.Toggle(root, path)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	items := make([]*host.Reply, len(out))
	for i, b := range out {
		if b {
			items[i] = host.Integer(1)
		} else {
			items[i] = host.Integer(0)
		}
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return host.Array(items...), nil
}

func (e *Engine) dispatchStrAppend(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 3); err != nil {
		return nil, err
	}
	key, path, suffix := args[0], args[1], args[2]
	var out []int
	_, err := e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.StrAppend(root, path, suffix)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return intsReply(out), nil
}

func (e *Engine) dispatchIntPerMatch(args []string, fn func(*mutate.Mutator, *value.Value, string) ([]int, error)) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	var out []int
	err := e.withRead(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = fn(m, root, path)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return intsReply(out), nil
}

func intsReply(out []int) *host.Reply {
	if len(out) == 1 {
		return host.Integer(int64(out[0]))
	}
	items := make([]*host.Reply, len(out))
	for i, n := range out {
		items[i] = host.Integer(int64(n))
	}
	return host.Array(items...)
}

func (e *Engine) dispatchObjKeys(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	var out [][]string
	err := e.withRead(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.ObjKeys(root, path)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	groups := make([]*host.Reply, len(out))
	for i, keys := range out {
		items := make([]*host.Reply, len(keys))
		for j, k := range keys {
			items[j] = host.BulkString(k)
		}
		groups[i] = host.Array(items...)
	}
	if len(groups) == 1 {
		return groups[0], nil
	}
	return host.Array(groups...), nil
}

func (e *Engine) dispatchArrAppend(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 3); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	values := args[2:]
	var out []int
	_, err := e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.ArrAppend(root, path, values)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return intsReply(out), nil
}

func (e *Engine) dispatchArrPop(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	path := "."
	index := -1
	if len(args) > 1 {
		path = args[1]
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid index %q", args[2])
		}
		index = n
	}
	var out []*value.Value
	_, err := e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.ArrPop(root, path, index)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	ser := jsonio.NewSerializer()
	items := make([]*host.Reply, len(out))
	for i, v := range out {
		items[i] = host.BulkString(ser.Fast(v))
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return host.Array(items...), nil
}

func (e *Engine) dispatchArrInsert(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 4); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	index, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid index %q", args[2])
	}
	values := args[3:]
	var out []int
	_, err = e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.ArrInsert(root, path, index, values)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return intsReply(out), nil
}

func (e *Engine) dispatchArrTrim(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 4); err != nil {
		return nil, err
	}
	key, path := args[0], args[1]
	start, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid start %q", args[2])
	}
	stop, err := strconv.Atoi(args[3])
	if err != nil {
		return nil, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid stop %q", args[3])
	}
	var out []int
	_, err = e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.ArrTrim(root, path, start, stop)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return intsReply(out), nil
}

func (e *Engine) dispatchArrIndex(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 3); err != nil {
		return nil, err
	}
	key, path, needle := args[0], args[1], args[2]
	start, stop := 0, 0
	if len(args) > 3 {
		n, err := strconv.Atoi(args[3])
		if err != nil {
			return nil, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid start %q", args[3])
		}
		start = n
	}
	if len(args) > 4 {
		n, err := strconv.Atoi(args[4])
		if err != nil {
			return nil, jsonerr.New(jsonerr.KindIndexNotNumber, "invalid stop %q", args[4])
		}
		stop = n
	}
	var out []int
	err := e.withRead(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.ArrIndex(root, path, needle, start, stop)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return intsReply(out), nil
}

func (e *Engine) dispatchClear(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	var n int
	_, err := e.withMutator(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		n, opErr = m.Clear(root, path)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return host.Integer(int64(n)), nil
}

func (e *Engine) dispatchType(args []string) (*host.Reply, error) {
	if err := requireArgs(args, 1); err != nil {
		return nil, err
	}
	key := args[0]
	path := "."
	if len(args) > 1 {
		path = args[1]
	}
	var out []string
	err := e.withRead(key, func(root *value.Value, m *mutate.Mutator) error {
		var opErr error
		out, opErr = m.Type(root, path)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	items := make([]*host.Reply, len(out))
	for i, t := range out {
		items[i] = host.SimpleString(t)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return host.Array(items...), nil
}
