// Package hcldef is the HCL front end for workflow definitions. It parses
// .hcl files into the schema structs, translates them into the
// format-agnostic config model, and provides the expression decoding used
// by step handlers at execution time.
//
// Expressions are deliberately not evaluated at load time. A step argument
// like "pytest ${matrix.python}" or a condition like always() only makes
// sense against the evaluation context of a concrete matrix combination at
// a concrete point in the job, so the loader captures raw hcl.Expression
// values and the executor resolves them later.
package hcldef
