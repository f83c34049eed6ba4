package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Workflow is the subset of a GitHub Actions workflow that drover can
// convert into a native pipeline: push/pull_request triggers with branch
// filters, workflow-level env, and a single job of run / checkout / cache
// steps.
type Workflow struct {
	Name string                 `yaml:"name"`
	On   WorkflowTriggers       `yaml:"on"`
	Env  map[string]string      `yaml:"env"`
	Jobs map[string]WorkflowJob `yaml:"jobs"`
}

type WorkflowTriggers struct {
	Push        *WorkflowBranchFilter `yaml:"push"`
	PullRequest *WorkflowBranchFilter `yaml:"pull_request"`
}

type WorkflowBranchFilter struct {
	Branches []string `yaml:"branches"`
}

type WorkflowJob struct {
	RunsOn string         `yaml:"runs-on"`
	Steps  []WorkflowStep `yaml:"steps"`
}

type WorkflowStep struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses"`
	With map[string]string `yaml:"with"`
	Run  string            `yaml:"run"`
}

// ParseWorkflow parses a GitHub Actions workflow YAML file
func ParseWorkflow(data []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, goerr.Wrap(err, "failed to parse workflow YAML")
	}
	return &w, nil
}

var hashFilesPattern = regexp.MustCompile(`hashFiles\(\s*'([^']+)'\s*\)`)

// ToPipeline converts the workflow into a native pipeline definition.
// `uses: actions/checkout` steps are dropped (drover checks out the commit
// itself) and `uses: actions/cache` steps become the cache section, keyed by
// the files named in the hashFiles() expression of the cache key.
// Home-relative cache paths ("~/...") are rewritten to the working
// directory; absolute paths are rejected.
func (w *Workflow) ToPipeline() (*Pipeline, error) {
	if len(w.Jobs) != 1 {
		return nil, goerr.Wrap(types.ErrInvalidWorkflow, "exactly one job is supported",
			goerr.V("jobs", len(w.Jobs)),
		)
	}

	p := &Pipeline{
		Name: types.PipelineName(sanitizeName(w.Name)),
		Env:  w.Env,
	}

	if w.On.Push != nil {
		p.Trigger.Push = &BranchFilter{Branches: w.On.Push.Branches}
	}
	if w.On.PullRequest != nil {
		p.Trigger.PullRequest = &BranchFilter{Branches: w.On.PullRequest.Branches}
	}

	var job WorkflowJob
	for _, j := range w.Jobs {
		job = j
	}

	for _, s := range job.Steps {
		switch {
		case strings.HasPrefix(s.Uses, "actions/checkout"):
			// Handled natively by the run engine
		case strings.HasPrefix(s.Uses, "actions/cache"):
			cache, err := cacheSpecFromStep(s)
			if err != nil {
				return nil, err
			}
			p.Cache = cache
		case s.Run != "":
			name := s.Name
			if name == "" {
				name = firstLine(s.Run)
			}
			p.Steps = append(p.Steps, Step{Name: name, Run: s.Run})
		case s.Uses != "":
			return nil, goerr.Wrap(types.ErrInvalidWorkflow, "unsupported action",
				goerr.V("uses", s.Uses),
			)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func cacheSpecFromStep(s WorkflowStep) (*CacheSpec, error) {
	matches := hashFilesPattern.FindAllStringSubmatch(s.With["key"], -1)
	if len(matches) == 0 {
		return nil, goerr.Wrap(types.ErrInvalidWorkflow, "cache key must contain hashFiles()",
			goerr.V("key", s.With["key"]),
		)
	}

	cache := &CacheSpec{}
	for _, m := range matches {
		// Glob prefixes like "**/" refer to the checkout root here
		cache.KeyFiles = append(cache.KeyFiles, strings.TrimPrefix(m[1], "**/"))
	}

	for _, line := range strings.Split(s.With["path"], "\n") {
		path := strings.TrimSpace(line)
		if path == "" {
			continue
		}

		// The run engine archives cache paths relative to the working
		// directory. Home-relative paths are rewritten into it; the tool
		// must be pointed there (e.g. CARGO_HOME for ~/.cargo paths).
		if strings.HasPrefix(path, "~/") {
			path = strings.TrimPrefix(path, "~/")
		}
		if !workdirRelative(path) {
			return nil, goerr.Wrap(types.ErrInvalidWorkflow, "cache path must be relative to the working directory",
				goerr.V("path", path),
			)
		}

		cache.Paths = append(cache.Paths, path)
	}

	return cache, nil
}

var invalidNameChar = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeName(name string) string {
	name = invalidNameChar.ReplaceAllString(strings.TrimSpace(name), "-")
	return strings.Trim(name, "-")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
