// logicbits/pkg/predicate/derive.go

package predicate

import (
	"encoding/json"
	"fmt"
	"strconv"

	"rgehrsitz/logicbits/pkg/logging"
	"rgehrsitz/logicbits/pkg/scripting"
)

// Equals is true when field equals value. Numbers compare by value regardless
// of their Go type, so 3 from YAML matches 3.0 from JSON.
func Equals(field string, value interface{}) Deriver {
	want, wantNum := toFloat(value)
	return func(rec Record) bool {
		got, ok := rec[field]
		if !ok {
			return false
		}
		if wantNum {
			f, ok := toFloat(got)
			return ok && f == want
		}
		return fmt.Sprint(got) == fmt.Sprint(value)
	}
}

// Flag is true when field holds boolean true.
func Flag(field string) Deriver {
	return func(rec Record) bool {
		switch v := rec[field].(type) {
		case bool:
			return v
		case string:
			b, err := strconv.ParseBool(v)
			return err == nil && b
		}
		return false
	}
}

// Zero is true when field is present, numeric and equal to zero.
func Zero(field string) Deriver {
	return func(rec Record) bool {
		f, ok := toFloat(rec[field])
		return ok && f == 0
	}
}

// AtLeast is true when field is numeric and >= threshold.
func AtLeast(field string, threshold float64) Deriver {
	return func(rec Record) bool {
		f, ok := toFloat(rec[field])
		return ok && f >= threshold
	}
}

// Script returns a deriver that calls the named script on vm with the listed
// fields as arguments. Script failures log and yield false.
func Script(vm *scripting.SafeVM, name string, fields []string) Deriver {
	return func(rec Record) bool {
		params := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			params[f] = rec[f]
		}
		result, err := vm.RunScript(name, params, scripting.DefaultTimeout)
		if err != nil {
			logging.Logger.Warn().Err(err).Str("predicate", name).Msg("Script predicate failed")
			return false
		}
		return scripting.Truthy(result)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
