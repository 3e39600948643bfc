package task

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"taskboard-backend/internal/api"
)

// transition is a single allowed status change. An optional guard is an
// expr condition evaluated against the task's post-update field values.
type transition struct {
	From  []string
	To    string
	Guard string
}

var transitions = []transition{
	{From: []string{StatusTodo}, To: StatusInProgress, Guard: `assigned_to != ""`},
	{From: []string{StatusInProgress}, To: StatusDone},
	{From: []string{StatusInProgress}, To: StatusTodo},
	{From: []string{StatusDone}, To: StatusTodo}, // reopen
}

// guardEvaluator compiles guard expressions once and caches the programs.
type guardEvaluator struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

var guards = &guardEvaluator{cache: make(map[string]*vm.Program)}

func (e *guardEvaluator) evaluate(expression string, env map[string]any) (bool, error) {
	e.mu.Lock()
	prog, ok := e.cache[expression]
	e.mu.Unlock()
	if !ok {
		var err error
		prog, err = expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return false, fmt.Errorf("compile guard: %w", err)
		}
		e.mu.Lock()
		e.cache[expression] = prog
		e.mu.Unlock()
	}

	result, err := expr.Run(prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluate guard: %w", err)
	}
	isTrue, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("guard did not return bool")
	}
	return isTrue, nil
}

// ValidateTransition checks that moving a task from one status to another
// is allowed, evaluating the transition's guard against the task's field
// values after the update is applied.
func ValidateTransition(from, to string, env map[string]any) error {
	if !ValidStatus(to) {
		return api.ValidationError(fmt.Sprintf("Unknown status: %s", to))
	}
	if from == to {
		return nil
	}

	for _, tr := range transitions {
		if tr.To != to || !contains(tr.From, from) {
			continue
		}
		if tr.Guard == "" {
			return nil
		}
		ok, err := guards.evaluate(tr.Guard, env)
		if err != nil {
			return api.InternalError()
		}
		if ok {
			return nil
		}
		return api.ValidationError(fmt.Sprintf("Transition %s -> %s not allowed: guard failed", from, to))
	}

	return api.ValidationError(fmt.Sprintf("Transition %s -> %s not allowed", from, to))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
