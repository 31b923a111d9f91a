package executor

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/vk/cigrid/internal/matrix"
	"github.com/vk/cigrid/internal/trigger"
)

// jobState is the snapshot of a job's progress that the status functions
// close over when a step's condition is evaluated.
type jobState struct {
	failed    bool
	cancelled bool
}

// evalContext builds the hcl.EvalContext a step's condition, env and
// arguments are evaluated against. It exposes:
//
//	matrix.*   the job's matrix combination values
//	env.*      the merged workflow/job/step environment
//	secrets.*  the secret store
//	event.*    the triggering event (type, branch)
//
// plus the status functions always(), success(), failure() and
// cancelled(), whose results reflect the job's state at this step.
func evalContext(comb matrix.Combination, env, secrets map[string]string, ev trigger.Event, st jobState) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix":  stringMapVal(comb.Values),
			"env":     stringMapVal(env),
			"secrets": stringMapVal(secrets),
			"event": cty.ObjectVal(map[string]cty.Value{
				"type":   cty.StringVal(string(ev.Type)),
				"branch": cty.StringVal(ev.Branch),
			}),
		},
		Functions: map[string]function.Function{
			"always":    boolFunc(func() bool { return true }),
			"success":   boolFunc(func() bool { return !st.failed && !st.cancelled }),
			"failure":   boolFunc(func() bool { return st.failed }),
			"cancelled": boolFunc(func() bool { return st.cancelled }),
		},
	}
}

// stringMapVal converts a Go string map into a cty object value. Objects
// rather than maps so that a missing key is an evaluation error instead of
// a silent null.
func stringMapVal(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vals)
}

// boolFunc wraps a niladic Go predicate as a cty function.
func boolFunc(impl func() bool) function.Function {
	return function.New(&function.Spec{
		Type: function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.BoolVal(impl()), nil
		},
	})
}
