// Package docsconfig reads the optional per-project configuration file
// describing documentation layout. The file is advisory: a missing or
// malformed one means the project is scanned flat with no schema checks.
package docsconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// FileNames are the recognized configuration file names, checked in order.
var FileNames = []string{".docsconfig.yaml", ".docsconfig.yml"}

// Config describes a project's documentation layout.
type Config struct {
	Root      string            `yaml:"root"`
	RootFiles []string          `yaml:"root_files"`
	Sections  []Section         `yaml:"sections"`
	Schemas   map[string]Schema `yaml:"schemas"`
	Templates map[string]string `yaml:"templates"`
}

// Section is a named documentation area under the root.
type Section struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Pattern string `yaml:"pattern"`
	Schema  string `yaml:"schema"`
}

// Schema constrains frontmatter fields for documents in a section.
type Schema struct {
	Required []string            `yaml:"required"`
	Optional []string            `yaml:"optional"`
	Values   map[string][]string `yaml:"values"`
}

// Validate checks the structural shape of a section entry.
func (s Section) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Path, validation.Required),
	)
}

// Load reads the project's configuration file. A missing or unparseable
// file returns nil without error.
func Load(projectRoot string) *Config {
	for _, name := range FileNames {
		data, err := os.ReadFile(filepath.Join(projectRoot, name))
		if err != nil {
			continue
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil
		}
		return &cfg
	}
	return nil
}

// Validate checks a configuration against the project directory and
// returns every violation as a human-readable string. It never fails
// hard; an empty slice means the configuration is clean.
func Validate(cfg *Config, projectRoot string) []string {
	if cfg == nil {
		return nil
	}
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	docsRoot := projectRoot
	if cfg.Root != "" {
		if msg := checkPathSegments(cfg.Root); msg != "" {
			add("root: %s", msg)
		} else {
			docsRoot = filepath.Join(projectRoot, cfg.Root)
			if info, err := os.Stat(docsRoot); err != nil {
				add("root %q does not exist", cfg.Root)
			} else if !info.IsDir() {
				add("root %q is not a directory", cfg.Root)
			}
		}
	}

	for _, name := range cfg.RootFiles {
		if msg := checkPathSegments(name); msg != "" {
			add("root file %q: %s", name, msg)
			continue
		}
		info, err := os.Stat(filepath.Join(docsRoot, name))
		if err != nil {
			add("root file %q does not exist", name)
		} else if info.IsDir() {
			add("root file %q is a directory, expected a file", name)
		}
	}

	for _, sec := range cfg.Sections {
		if err := sec.Validate(); err != nil {
			add("section %q: %v", sec.Name, err)
			continue
		}
		if msg := checkPathSegments(sec.Path); msg != "" {
			add("section %q path: %s", sec.Name, msg)
			continue
		}
		info, err := os.Stat(filepath.Join(docsRoot, sec.Path))
		if err != nil {
			add("section %q path %q does not exist", sec.Name, sec.Path)
		} else if !info.IsDir() {
			add("section %q path %q is not a directory", sec.Name, sec.Path)
		}
		if sec.Schema != "" {
			if _, ok := cfg.Schemas[sec.Schema]; !ok {
				add("section %q references undefined schema %q", sec.Name, sec.Schema)
			}
		}
	}

	return problems
}

// checkPathSegments rejects path values that could reach outside the
// project: absolute paths, home-relative paths and parent traversal.
func checkPathSegments(path string) string {
	switch {
	case filepath.IsAbs(path):
		return "absolute paths are not allowed"
	case strings.HasPrefix(path, "~"):
		return "home-relative paths are not allowed"
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return "parent traversal is not allowed"
		}
	}
	return ""
}
