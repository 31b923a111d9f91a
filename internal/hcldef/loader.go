package hcldef

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/cigrid/internal/config"
	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/fsutil"
	"github.com/vk/cigrid/internal/trigger"
)

// Extension is the file extension of workflow definition files.
const Extension = ".hcl"

// Loader reads .hcl workflow definition files and translates them into the
// format-agnostic config model. It implements config.Loader.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL workflow loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load discovers every workflow definition file reachable from the given
// paths (files or directories), parses and validates them, and returns the
// translated workflows. Workflow names must be unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) ([]*config.Workflow, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		found, err := fsutil.FindFilesByExtension(p, Extension)
		if err != nil {
			return nil, fmt.Errorf("discovering workflow files under %q: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s workflow files found under %v", Extension, paths)
	}
	logger.Debug("Workflow files discovered.", "count", len(files))

	seen := make(map[string]string)
	var workflows []*config.Workflow
	for _, path := range files {
		file, diags := l.parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}

		var schema fileSchema
		if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", path, diags)
		}

		for _, ws := range schema.Workflows {
			if prev, dup := seen[ws.Name]; dup {
				return nil, fmt.Errorf("workflow %q in %s already defined in %s", ws.Name, path, prev)
			}
			seen[ws.Name] = path

			w, err := l.translateWorkflow(ws, path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			workflows = append(workflows, w)
		}
	}

	logger.Debug("Workflow definitions loaded.", "workflows", len(workflows))
	return workflows, nil
}

// translateWorkflow converts the HCL-specific schema into the agnostic model.
func (l *Loader) translateWorkflow(ws *workflowSchema, path string) (*config.Workflow, error) {
	if ws.On == nil {
		return nil, fmt.Errorf("workflow %q declares no `on` block", ws.Name)
	}
	if len(ws.Jobs) == 0 {
		return nil, fmt.Errorf("workflow %q declares no jobs", ws.Name)
	}

	w := &config.Workflow{
		Name:   ws.Name,
		Env:    normalizeExpr(ws.Env),
		Source: path,
	}

	if ws.On.Push != nil {
		w.On.Push = &config.BranchFilter{Branches: ws.On.Push.Branches}
	}
	if ws.On.PullRequest != nil {
		w.On.PullRequest = &config.BranchFilter{Branches: ws.On.PullRequest.Branches}
	}
	for _, s := range ws.On.Schedules {
		if _, err := trigger.ParseSchedule(s.Cron); err != nil {
			return nil, fmt.Errorf("workflow %q: invalid cron expression %q: %w", ws.Name, s.Cron, err)
		}
		w.On.Schedules = append(w.On.Schedules, s.Cron)
	}
	w.On.Dispatch = ws.On.Dispatch != nil

	jobNames := make(map[string]bool)
	for _, js := range ws.Jobs {
		if jobNames[js.Name] {
			return nil, fmt.Errorf("workflow %q: duplicate job %q", ws.Name, js.Name)
		}
		jobNames[js.Name] = true

		job, err := l.translateJob(js)
		if err != nil {
			return nil, fmt.Errorf("workflow %q: %w", ws.Name, err)
		}
		w.Jobs = append(w.Jobs, job)
	}

	return w, nil
}

// translateJob converts a job schema into the agnostic model.
func (l *Loader) translateJob(js *jobSchema) (*config.Job, error) {
	if len(js.Steps) == 0 {
		return nil, fmt.Errorf("job %q declares no steps", js.Name)
	}

	job := &config.Job{
		Name:     js.Name,
		FailFast: js.FailFast,
		Env:      normalizeExpr(js.Env),
	}

	if js.Matrix != nil {
		dimNames := make(map[string]bool)
		for _, d := range js.Matrix.Dimensions {
			if dimNames[d.Name] {
				return nil, fmt.Errorf("job %q: duplicate matrix dimension %q", js.Name, d.Name)
			}
			if len(d.Values) == 0 {
				return nil, fmt.Errorf("job %q: matrix dimension %q has no values", js.Name, d.Name)
			}
			dimNames[d.Name] = true
			job.Matrix = append(job.Matrix, &config.Dimension{Name: d.Name, Values: d.Values})
		}
	}

	stepNames := make(map[string]bool)
	for _, ss := range js.Steps {
		if stepNames[ss.Name] {
			return nil, fmt.Errorf("job %q: duplicate step %q", js.Name, ss.Name)
		}
		stepNames[ss.Name] = true

		step := &config.Step{
			Type:            ss.Type,
			Name:            ss.Name,
			If:              normalizeExpr(ss.If),
			ContinueOnError: ss.ContinueOnError,
			Env:             normalizeExpr(ss.Env),
		}
		if ss.Arguments != nil {
			attrs, diags := ss.Arguments.Body.JustAttributes()
			if diags.HasErrors() {
				return nil, fmt.Errorf("job %q step %q: %w", js.Name, ss.Name, diags)
			}
			step.Arguments = make(map[string]hcl.Expression, len(attrs))
			for name, attr := range attrs {
				step.Arguments[name] = attr.Expr
			}
		}
		job.Steps = append(job.Steps, step)
	}

	return job, nil
}

// normalizeExpr maps the "attribute absent" expression gohcl produces back
// to nil so callers have a single representation to check.
func normalizeExpr(expr hcl.Expression) hcl.Expression {
	if expr == nil {
		return nil
	}
	if v, diags := expr.Value(nil); !diags.HasErrors() && v.IsNull() {
		return nil
	}
	return expr
}
