// Package validation is the consistency checker over the project
// registry: one TOML file per project under registry/projects/.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lorehq/lore/internal/paths"
)

// Project is one registry entry.
type Project struct {
	Name      string   `toml:"name"`
	Root      string   `toml:"root"`
	Tags      []string `toml:"tags"`
	DependsOn []string `toml:"depends_on"`
}

// Finding is one validator complaint.
type Finding struct {
	File    string `json:"file"`
	Level   string `json:"level"` // error | warning
	Message string `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Level, filepath.Base(f.File), f.Message)
}

// Report aggregates all findings of one validation pass.
type Report struct {
	Projects []Project `json:"projects"`
	Findings []Finding `json:"findings"`
}

// HasErrors reports whether any finding is an error.
func (r *Report) HasErrors() bool {
	for _, f := range r.Findings {
		if f.Level == "error" {
			return true
		}
	}
	return false
}

var tagSyntax = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Validate reads every registry file and runs the consistency checks:
// parse errors, required fields, unique names, existing roots, tag
// syntax, and dangling depends_on references. Pure read; never mutates.
func Validate(root *paths.Root) (*Report, error) {
	dir := root.RegistryDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Report{}, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	report := &Report{}
	var files []string               // parallel to report.Projects
	names := make(map[string]string) // name -> file that declared it
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		file := filepath.Join(dir, entry.Name())
		var p Project
		if _, err := toml.DecodeFile(file, &p); err != nil {
			report.Findings = append(report.Findings, Finding{
				File: file, Level: "error", Message: fmt.Sprintf("parse failure: %v", err),
			})
			continue
		}
		report.Projects = append(report.Projects, p)
		files = append(files, file)

		if p.Name == "" {
			report.Findings = append(report.Findings, Finding{
				File: file, Level: "error", Message: "missing required field: name",
			})
		} else if prev, dup := names[p.Name]; dup {
			report.Findings = append(report.Findings, Finding{
				File: file, Level: "error",
				Message: fmt.Sprintf("duplicate project name %q (also in %s)", p.Name, filepath.Base(prev)),
			})
		} else {
			names[p.Name] = file
		}

		if p.Root == "" {
			report.Findings = append(report.Findings, Finding{
				File: file, Level: "error", Message: "missing required field: root",
			})
		} else if _, err := os.Stat(p.Root); err != nil {
			report.Findings = append(report.Findings, Finding{
				File: file, Level: "warning", Message: fmt.Sprintf("root does not exist: %s", p.Root),
			})
		}

		for _, tag := range p.Tags {
			if !tagSyntax.MatchString(tag) {
				report.Findings = append(report.Findings, Finding{
					File: file, Level: "error", Message: fmt.Sprintf("invalid tag syntax: %q", tag),
				})
			}
		}
	}

	// Dangling depends_on checks run after every name is known.
	for i, p := range report.Projects {
		for _, dep := range p.DependsOn {
			if _, ok := names[dep]; !ok {
				report.Findings = append(report.Findings, Finding{
					File:    files[i],
					Level:   "error",
					Message: fmt.Sprintf("depends_on references unknown project %q", dep),
				})
			}
		}
	}

	sort.Slice(report.Findings, func(i, j int) bool {
		if report.Findings[i].File != report.Findings[j].File {
			return report.Findings[i].File < report.Findings[j].File
		}
		return report.Findings[i].Message < report.Findings[j].Message
	})
	return report, nil
}

// LookupProject finds the registry project whose root contains dir,
// preferring the deepest match. Empty result means no project.
func LookupProject(root *paths.Root, dir string) string {
	report, err := Validate(root)
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	best := ""
	bestLen := -1
	for _, p := range report.Projects {
		projRoot, err := filepath.Abs(p.Root)
		if err != nil || p.Name == "" {
			continue
		}
		rel, err := filepath.Rel(projRoot, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if len(projRoot) > bestLen {
			best = p.Name
			bestLen = len(projRoot)
		}
	}
	return best
}
