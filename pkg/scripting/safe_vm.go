// logicbits/pkg/scripting/safe_vm.go

// Package scripting runs the small JavaScript expressions that back
// script-derived predicates. Scripts run in a restricted otto VM, one call at
// a time, and are interrupted when they exceed their time budget.
package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"rgehrsitz/logicbits/pkg/logging"

	"github.com/robertkrimen/otto"
)

// DefaultTimeout bounds a single predicate script call.
const DefaultTimeout = 50 * time.Millisecond

var ErrTimeout = errors.New("script execution timed out")

// Script is a function body together with the parameter names it is called with.
type Script struct {
	Params []string `json:"params" yaml:"params"`
	Body   string   `json:"body" yaml:"body"`
}

type halt struct{}

type SafeVM struct {
	mu      sync.Mutex
	vm      *otto.Otto
	scripts map[string]otto.Value
	params  map[string][]string
}

func NewSafeVM() *SafeVM {
	vm := otto.New()

	// Remove potentially dangerous functions
	vm.Set("eval", otto.UndefinedValue())
	vm.Set("Function", otto.UndefinedValue())
	vm.SetStackDepthLimit(1000)

	return &SafeVM{
		vm:      vm,
		scripts: make(map[string]otto.Value),
		params:  make(map[string][]string),
	}
}

// SetScript compiles script and stores it under name. Syntax errors are
// reported here rather than on first call.
func (s *SafeVM) SetScript(name string, script Script) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	funcDef := fmt.Sprintf("(function(%s) { %s })", strings.Join(script.Params, ","), script.Body)
	logging.Logger.Debug().Str("scriptName", name).Str("funcDef", funcDef).Msg("Setting script")

	fn, err := s.vm.Eval(funcDef)
	if err != nil {
		return logging.NewError(logging.ErrorTypeCompile, "invalid script", err, map[string]interface{}{"script": name})
	}
	s.scripts[name] = fn
	s.params[name] = append([]string(nil), script.Params...)
	return nil
}

// Expression wraps a single JavaScript expression as a Script.
func Expression(expr string, params ...string) Script {
	return Script{Params: params, Body: "return (" + expr + ");"}
}

// RunScript calls the named script with arguments taken from params in
// declaration order. A call that outlives timeout is interrupted.
func (s *SafeVM) RunScript(name string, params map[string]interface{}, timeout time.Duration) (result interface{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn, ok := s.scripts[name]
	if !ok {
		logging.Logger.Error().Str("scriptName", name).Msg("Script not found")
		return nil, fmt.Errorf("script not found: %s", name)
	}

	args := make([]interface{}, len(s.params[name]))
	for i, p := range s.params[name] {
		args[i] = params[p]
	}

	interrupt := make(chan func(), 1)
	s.vm.Interrupt = interrupt
	timer := time.AfterFunc(timeout, func() {
		interrupt <- func() { panic(halt{}) }
	})
	defer func() {
		timer.Stop()
		s.vm.Interrupt = nil
		if r := recover(); r != nil {
			if _, ok := r.(halt); ok {
				logging.Logger.Error().Str("scriptName", name).Msg("Script execution timed out")
				result, err = nil, ErrTimeout
				return
			}
			result, err = nil, fmt.Errorf("script panicked: %v", r)
		}
	}()

	value, err := fn.Call(otto.NullValue(), args...)
	if err != nil {
		logging.Logger.Debug().Err(err).Str("scriptName", name).Msg("Script execution error")
		return nil, err
	}

	exported, err := value.Export()
	if err != nil {
		return nil, fmt.Errorf("error exporting result: %w", err)
	}
	if f, ok := exported.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		logging.Logger.Warn().Str("scriptName", name).Float64("result", f).Msg("Script produced Inf or NaN value")
		return nil, fmt.Errorf("script produced invalid numeric result")
	}
	return exported, nil
}

// Truthy applies JavaScript truthiness to an exported script result.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int64:
		return x != 0
	case int:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
