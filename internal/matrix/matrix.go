// Package matrix expands a job's execution matrix into the concrete,
// independently executed combinations.
package matrix

import (
	"fmt"
	"strings"

	"github.com/vk/cigrid/internal/config"
)

// Combination is one cell of a job's execution matrix: a concrete value
// for every declared dimension, in declaration order.
type Combination struct {
	JobName string
	// Keys holds the dimension names in declaration order so that IDs and
	// log output are deterministic.
	Keys   []string
	Values map[string]string
}

// ID renders the conventional display name of the combination, e.g.
// "test (ubuntu-latest, 3.10)". A matrix-less job is just the job name.
func (c Combination) ID() string {
	if len(c.Keys) == 0 {
		return c.JobName
	}
	vals := make([]string, len(c.Keys))
	for i, k := range c.Keys {
		vals[i] = c.Values[k]
	}
	return fmt.Sprintf("%s (%s)", c.JobName, strings.Join(vals, ", "))
}

// Expand enumerates the Cartesian product of the job's dimensions in
// declaration order. A job without a matrix yields exactly one combination.
// The enumeration is deterministic: the last declared dimension varies
// fastest.
func Expand(job *config.Job) []Combination {
	keys := make([]string, len(job.Matrix))
	for i, d := range job.Matrix {
		keys[i] = d.Name
	}

	combos := []Combination{{JobName: job.Name, Keys: keys, Values: map[string]string{}}}
	for _, dim := range job.Matrix {
		next := make([]Combination, 0, len(combos)*len(dim.Values))
		for _, base := range combos {
			for _, v := range dim.Values {
				values := make(map[string]string, len(base.Values)+1)
				for k, bv := range base.Values {
					values[k] = bv
				}
				values[dim.Name] = v
				next = append(next, Combination{JobName: job.Name, Keys: keys, Values: values})
			}
		}
		combos = next
	}
	return combos
}
