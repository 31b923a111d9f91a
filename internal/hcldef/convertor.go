package hcldef

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeArguments evaluates the step's argument expressions against the
// given evaluation context and populates the handler's input struct.
// Struct fields opt in with a `cig:"name"` tag; `cig:"name,optional"`
// marks the argument as not required. Arguments that match no field are
// rejected so that typos surface as load-adjacent errors rather than
// silently ignored configuration.
func DecodeArguments(target any, args map[string]hcl.Expression, evalCtx *hcl.EvalContext) error {
	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer to a struct")
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	consumed := make(map[string]bool, len(args))

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		tag := field.Tag.Get("cig")
		if tag == "" {
			continue
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		optional := len(parts) > 1 && parts[1] == "optional"

		expr, provided := args[name]
		if !provided {
			if optional {
				continue
			}
			return fmt.Errorf("missing required argument %q", name)
		}
		consumed[name] = true

		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating argument %q: %w", name, diags)
		}
		if err := decodeValue(val, fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("decoding argument %q: %w", name, err)
		}
	}

	var unknown []string
	for name := range args {
		if !consumed[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unsupported arguments: %s", strings.Join(unknown, ", "))
	}

	return nil
}

// decodeValue converts a cty value into the Go value pointed to by target,
// applying cty's standard conversions (e.g. number to string).
func decodeValue(val cty.Value, target any) error {
	wantType, err := gocty.ImpliedType(target)
	if err != nil {
		return fmt.Errorf("unsupported target type %T: %w", target, err)
	}
	converted, err := convert.Convert(val, wantType)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(converted, target)
}

// EvalStringMap evaluates an expression expected to produce a map of
// strings, such as an `env` attribute. A nil expression yields a nil map.
func EvalStringMap(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	converted, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("expected a map of strings: %w", err)
	}
	out := make(map[string]string)
	for k, v := range converted.AsValueMap() {
		if v.IsNull() {
			continue
		}
		out[k] = v.AsString()
	}
	return out, nil
}

// EvalBool evaluates an expression expected to produce a boolean, such as
// a step's `if` condition.
func EvalBool(expr hcl.Expression, evalCtx *hcl.EvalContext) (bool, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, diags
	}
	converted, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("expected a boolean: %w", err)
	}
	if converted.IsNull() {
		return false, fmt.Errorf("condition evaluated to null")
	}
	return converted.True(), nil
}
