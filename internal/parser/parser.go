// Package parser extracts frontmatter, headings, and content flags from
// Markdown documents.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var inlineMathRe = regexp.MustCompile(`\$[^$\n]+\$`)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]string
	Body        string
	Headings    string
	HasMermaid  bool
	HasMath     bool
}

// Parse splits raw Markdown bytes into frontmatter and body and computes the
// derived fields. It never fails: malformed frontmatter is treated as absent
// and the whole input becomes the body.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Headings:    extractHeadings(body),
		HasMermaid:  strings.Contains(body, "```mermaid"),
		HasMath:     strings.Contains(body, "$$") || inlineMathRe.MatchString(body),
	}
}

// splitFrontmatter separates a leading ----delimited YAML block from the
// Markdown body. Scalar values are stringified; nested values are kept in
// their YAML flow rendering so no metadata is silently lost.
func splitFrontmatter(data []byte) (map[string]string, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, everything is body.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var raw map[string]any
	if err := yaml.Unmarshal(yamlBlock, &raw); err != nil {
		// Invalid YAML: treat as absent frontmatter, keep the full content.
		return nil, string(data)
	}
	if len(raw) == 0 {
		return nil, body
	}

	fm := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fm[k] = val
		case nil:
			fm[k] = ""
		default:
			fm[k] = fmt.Sprintf("%v", val)
		}
	}
	return fm, body
}

// extractHeadings joins the text of every heading line into a single string
// used for search ranking boosts.
func extractHeadings(body string) string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "#") {
			out = append(out, strings.Trim(line, "# "))
		}
	}
	return strings.Join(out, " ")
}
