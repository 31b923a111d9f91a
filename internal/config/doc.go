// Package config defines the format-agnostic model of a workflow
// definition: triggers, jobs, matrices and steps. Loaders translate a
// concrete configuration format (HCL, see internal/hcldef) into this
// model; everything downstream of loading operates on it exclusively.
package config
