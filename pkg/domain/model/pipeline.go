package model

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// Pipeline is a declarative pipeline definition, loaded from a TOML file.
type Pipeline struct {
	Name    types.PipelineName `toml:"name"`
	Exec    string             `toml:"exec,omitempty"`
	Env     map[string]string  `toml:"env,omitempty"`
	Trigger Trigger            `toml:"trigger"`
	Cache   *CacheSpec         `toml:"cache,omitempty"`
	Steps   []Step             `toml:"steps"`
}

// Trigger declares which webhook events fire the pipeline
type Trigger struct {
	Push        *BranchFilter `toml:"push,omitempty"`
	PullRequest *BranchFilter `toml:"pull_request,omitempty"`
}

// BranchFilter restricts a trigger to a set of branches
type BranchFilter struct {
	Branches []string `toml:"branches"`
}

// Match reports whether the branch is listed in the filter
func (f *BranchFilter) Match(branch types.BranchName) bool {
	if f == nil {
		return false
	}
	for _, b := range f.Branches {
		if types.BranchName(b) == branch {
			return true
		}
	}
	return false
}

// Step is a single shell command in the pipeline. Steps run in the order
// they appear in the definition file.
type Step struct {
	Name string `toml:"name"`
	Run  string `toml:"run"`
}

// CacheSpec declares the dependency cache: which files key it and which
// paths are archived.
type CacheSpec struct {
	Prefix   string   `toml:"prefix,omitempty"`
	KeyFiles []string `toml:"key_files"`
	Paths    []string `toml:"paths"`
}

// KeyPrefix returns the cache key prefix, falling back to the pipeline name
func (c *CacheSpec) KeyPrefix(name types.PipelineName) string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return string(name)
}

var pipelineNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// workdirRelative reports whether the path stays inside the working
// directory: relative, no home expansion, no upward traversal.
func workdirRelative(p string) bool {
	if p == "" || filepath.IsAbs(p) || p == "~" || strings.HasPrefix(p, "~/") {
		return false
	}
	clean := path.Clean(filepath.ToSlash(p))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

// ParsePipeline parses and validates a TOML pipeline definition
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, goerr.Wrap(err, "failed to parse pipeline TOML")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Validate checks structural invariants of the pipeline definition
func (p *Pipeline) Validate() error {
	if !pipelineNamePattern.MatchString(string(p.Name)) {
		return goerr.Wrap(types.ErrInvalidPipeline, "pipeline name must match "+pipelineNamePattern.String(),
			goerr.V("name", p.Name),
		)
	}

	if p.Trigger.Push == nil && p.Trigger.PullRequest == nil {
		return goerr.Wrap(types.ErrInvalidPipeline, "at least one trigger is required",
			goerr.V("name", p.Name),
		)
	}
	for _, f := range []*BranchFilter{p.Trigger.Push, p.Trigger.PullRequest} {
		if f != nil && len(f.Branches) == 0 {
			return goerr.Wrap(types.ErrInvalidPipeline, "trigger branch list must not be empty",
				goerr.V("name", p.Name),
			)
		}
	}

	if len(p.Steps) == 0 {
		return goerr.Wrap(types.ErrInvalidPipeline, "at least one step is required",
			goerr.V("name", p.Name),
		)
	}
	for i, s := range p.Steps {
		if s.Name == "" || s.Run == "" {
			return goerr.Wrap(types.ErrInvalidPipeline, "step name and run are required",
				goerr.V("name", p.Name),
				goerr.V("index", i),
			)
		}
	}

	if p.Cache != nil {
		// The prefix is embedded in cache keys, which name archive files
		// and objects. The same pattern as pipeline names keeps keys free
		// of path separators and traversal.
		if p.Cache.Prefix != "" && !pipelineNamePattern.MatchString(p.Cache.Prefix) {
			return goerr.Wrap(types.ErrInvalidPipeline, "cache prefix must match "+pipelineNamePattern.String(),
				goerr.V("name", p.Name),
				goerr.V("prefix", p.Cache.Prefix),
			)
		}
		if len(p.Cache.KeyFiles) == 0 {
			return goerr.Wrap(types.ErrInvalidPipeline, "cache key_files must not be empty",
				goerr.V("name", p.Name),
			)
		}
		if len(p.Cache.Paths) == 0 {
			return goerr.Wrap(types.ErrInvalidPipeline, "cache paths must not be empty",
				goerr.V("name", p.Name),
			)
		}
		for _, f := range append(append([]string{}, p.Cache.KeyFiles...), p.Cache.Paths...) {
			if !workdirRelative(f) {
				return goerr.Wrap(types.ErrInvalidPipeline, "cache key_files and paths must stay inside the working directory",
					goerr.V("name", p.Name),
					goerr.V("path", f),
				)
			}
		}
	}

	return nil
}

// Matches reports whether the event fires this pipeline. Push events match
// against the pushed branch; pull_request events match against the base
// branch, following the usual CI trigger semantics.
func (p *Pipeline) Matches(e *WebhookEvent) bool {
	if !e.IsSupportedEvent() {
		return false
	}

	switch e.Type {
	case EventTypePush:
		return p.Trigger.Push.Match(e.Branch)
	case EventTypePullRequest:
		return p.Trigger.PullRequest.Match(e.Branch)
	default:
		return false
	}
}
