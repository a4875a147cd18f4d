package logging

import (
	"regexp"
)

const redacted = "[REDACTED]"

// Sanitizer redacts credentials that users paste into prompt or completion
// text before it reaches a log line.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{40,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]{10,}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|secret|token)["'\s:=]+[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)password["'\s:=]+[^\s"']{8,}`),
}

// NewSanitizer creates a sanitizer with the default patterns.
func NewSanitizer() *Sanitizer {
	patterns := make([]*regexp.Regexp, len(defaultPatterns))
	copy(patterns, defaultPatterns)
	return &Sanitizer{patterns: patterns}
}

// Sanitize redacts every pattern match in input.
func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range s.patterns {
		input = pattern.ReplaceAllString(input, redacted)
	}
	return input
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
