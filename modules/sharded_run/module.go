// Package sharded_run implements the `sharded_run` step type: collect the
// files matched by a glob, group them by directory scope, and run a
// command per shard across a bounded pool of parallel workers. This is the
// runner-side shape of distributed notebook/example testing: ordering
// among shards is unspecified, the step fails if any shard fails, and
// files under excluded directories are never executed.
package sharded_run

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vk/cigrid/internal/ctxlog"
	"github.com/vk/cigrid/internal/registry"
	"github.com/vk/cigrid/internal/shellexec"
)

// FilesPlaceholder is replaced in the command template by the shard's
// quoted file list. Without it the files are appended to the command.
const FilesPlaceholder = "{files}"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the sharded_run step.
type Input struct {
	// Include is a doublestar glob, relative to the workspace.
	Include string `cig:"include"`
	// Exclude lists workspace-relative directories whose files are never
	// executed, whatever Include matched.
	Exclude []string `cig:"exclude,optional"`
	// Command is the per-shard command template; see FilesPlaceholder.
	Command string `cig:"command"`
	Shell   string `cig:"shell,optional"`
	// Workers caps shard parallelism; defaults to the step context's
	// worker budget, which itself defaults to the logical CPU count.
	Workers int `cig:"workers,optional"`
}

// OnRunSharded is the handler for the 'sharded_run' step type.
func OnRunSharded(ctx context.Context, sc *registry.StepContext, input any) error {
	in := input.(*Input)
	logger := ctxlog.FromContext(ctx)

	files, err := collect(sc.Workspace, in.Include, in.Exclude)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("No files matched, nothing to run.", "include", in.Include)
		return nil
	}

	shards := groupByScope(files)
	workers := in.Workers
	if workers <= 0 {
		workers = sc.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(shards) {
		workers = len(shards)
	}
	logger.Info("Dispatching shards.", "files", len(files), "shards", len(shards), "workers", workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
		firstErr error
	)
	work := make(chan []string)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for shard := range work {
				shardLogger := logger.With("scope", path.Dir(shard[0]))
				shardCtx := ctxlog.WithLogger(ctx, shardLogger)

				err := shellexec.Run(shardCtx, in.Shell, sc.Workspace, renderCommand(in.Command, shard), sc.Environ())
				if err != nil {
					shardLogger.Error("Shard failed.", "error", err)
					mu.Lock()
					failures++
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	for _, shard := range shards {
		if ctx.Err() != nil {
			break
		}
		work <- shard
	}
	close(work)
	wg.Wait()

	if ctx.Err() != nil {
		return fmt.Errorf("sharded run cancelled: %w", ctx.Err())
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d shards failed: %w", failures, len(shards), firstErr)
	}
	return nil
}

// collect walks the workspace and returns the sorted workspace-relative
// paths matched by the include glob, dropping anything under an excluded
// directory.
func collect(workspace, include string, exclude []string) ([]string, error) {
	if !doublestar.ValidatePattern(include) {
		return nil, fmt.Errorf("invalid include pattern %q", include)
	}

	var files []string
	err := filepath.WalkDir(workspace, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(workspace, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel, exclude) {
			return nil
		}
		if ok, _ := doublestar.Match(include, rel); ok {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// excluded reports whether rel lies under any of the excluded directories.
func excluded(rel string, exclude []string) bool {
	for _, ex := range exclude {
		ex = strings.TrimSuffix(path.Clean(filepath.ToSlash(ex)), "/")
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
	}
	return false
}

// groupByScope buckets files by their directory, so that files sharing a
// scope always land on the same worker. Shards are ordered by scope name
// for deterministic dispatch; execution order remains unspecified.
func groupByScope(files []string) [][]string {
	byDir := make(map[string][]string)
	for _, f := range files {
		dir := path.Dir(f)
		byDir[dir] = append(byDir[dir], f)
	}
	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	shards := make([][]string, len(dirs))
	for i, dir := range dirs {
		shards[i] = byDir[dir]
	}
	return shards
}

// renderCommand substitutes the shard's quoted file list into the command
// template, appending it when the template has no placeholder.
func renderCommand(command string, shard []string) string {
	quoted := make([]string, len(shard))
	for i, f := range shard {
		quoted[i] = shellexec.Quote(f)
	}
	fileList := strings.Join(quoted, " ")

	if strings.Contains(command, FilesPlaceholder) {
		return strings.ReplaceAll(command, FilesPlaceholder, fileList)
	}
	return command + " " + fileList
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("sharded_run", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunSharded,
	})
}
