package scan

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// StatementStrategy is the canonical extractor: a line-oriented lexical scan
// that accumulates brace-grouped use statements across lines, strips
// comments, and splits grouped imports at the top level only. Groups nested
// inside a group member may under-report their inner packages; that
// limitation is accepted rather than worked around.
type StatementStrategy struct {
	usePattern    *regexp.Regexp
	externPattern *regexp.Regexp
}

func NewStatementStrategy() (*StatementStrategy, error) {
	usePattern, err := regexp.Compile(`^\s*(?:pub(?:\s*\([^)]*\))?\s+)?use\s`)
	if err != nil {
		return nil, fmt.Errorf("%w: use statement: %v", ErrInvalidPattern, err)
	}
	externPattern, err := regexp.Compile(`^\s*extern\s+crate\s+([A-Za-z_][A-Za-z0-9_]*)`)
	if err != nil {
		return nil, fmt.Errorf("%w: extern crate: %v", ErrInvalidPattern, err)
	}
	return &StatementStrategy{usePattern: usePattern, externPattern: externPattern}, nil
}

func (s *StatementStrategy) Name() string {
	return "statement"
}

func (s *StatementStrategy) Extract(_ context.Context, content []byte) ([]string, error) {
	// Comments come out before any line is classified, so an import spelled
	// inside a multi-line block comment never looks like a statement.
	// StripComments preserves line breaks, keeping statement boundaries.
	lines := strings.Split(StripComments(string(content)), "\n")
	candidates := make([]string, 0)

	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}

		if match := s.externPattern.FindStringSubmatch(lines[i]); len(match) == 2 {
			candidates = append(candidates, match[1])
			continue
		}

		loc := s.usePattern.FindStringIndex(lines[i])
		if loc == nil {
			continue
		}

		statement := lines[i]
		depth := braceDelta(lines[i])
		for depth > 0 && i+1 < len(lines) {
			i++
			statement += "\n" + lines[i]
			depth += braceDelta(lines[i])
		}

		candidates = append(candidates, classifyUseBody(statement[loc[1]:])...)
	}

	return candidates, nil
}

// braceDelta counts net brace depth on one already-comment-free line.
func braceDelta(line string) int {
	return strings.Count(line, "{") - strings.Count(line, "}")
}

func classifyUseBody(body string) []string {
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, ";")
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	if strings.HasPrefix(body, "{") {
		inner := strings.TrimPrefix(body, "{")
		inner = strings.TrimSuffix(inner, "}")
		candidates := make([]string, 0)
		for _, item := range splitTopLevel(inner, ',') {
			if candidate := rootSegment(item); candidate != "" {
				candidates = append(candidates, candidate)
			}
		}
		return candidates
	}

	if candidate := rootSegment(body); candidate != "" {
		return []string{candidate}
	}
	return nil
}

// rootSegment reduces one import item to its base package identifier: the
// segment before the first ::, with alias clauses and stray punctuation
// trimmed. A wildcard path like pkg::* reduces to pkg; a bare * is dropped.
func rootSegment(item string) string {
	item = strings.TrimSpace(item)
	item = strings.TrimPrefix(item, "::")
	if idx := strings.Index(item, "::"); idx >= 0 {
		item = item[:idx]
	}
	if idx := strings.Index(item, " as "); idx >= 0 {
		item = item[:idx]
	}
	item = strings.Trim(item, "{}*;, \t")
	return strings.TrimSpace(item)
}

func splitTopLevel(value string, sep rune) []string {
	parts := make([]string, 0)
	depth := 0
	start := 0
	for i, r := range value {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(value[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(value[start:]))
	return parts
}
