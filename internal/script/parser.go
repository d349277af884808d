package script

import (
	"fmt"
	"regexp"
	"strings"
)

// Parser extracts speaker-tagged lines from raw dialogue text.
//
// Lines must follow the "Name: text" convention with one of the two host
// names as the prefix. Anything else (stage directions, markdown headers,
// model commentary) is dropped. This is lossy on purpose: the model is not
// guaranteed to follow the convention and partial output beats none.
type Parser struct {
	pattern *regexp.Regexp
}

// NewParser builds a parser for the two host names. The names are matched
// literally, so names containing regexp metacharacters are safe.
func NewParser(host1, host2 string) (*Parser, error) {
	if host1 == "" || host2 == "" {
		return nil, fmt.Errorf("script: both host names are required")
	}
	pattern, err := regexp.Compile(
		`^(` + regexp.QuoteMeta(host1) + `|` + regexp.QuoteMeta(host2) + `):\s*(.*)`,
	)
	if err != nil {
		return nil, fmt.Errorf("script: compile speaker pattern: %w", err)
	}
	return &Parser{pattern: pattern}, nil
}

// Parse splits raw into ordered dialogue lines. Returns ErrEmptyScript when
// raw is non-empty but not a single line matched; an empty raw input yields
// an empty sequence with no error.
func (p *Parser) Parse(raw string) ([]Line, error) {
	var lines []Line
	for _, textLine := range strings.Split(raw, "\n") {
		m := p.pattern.FindStringSubmatch(strings.TrimSpace(textLine))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		lines = append(lines, Line{Speaker: m[1], Text: text})
	}
	if len(lines) == 0 && strings.TrimSpace(raw) != "" {
		return nil, ErrEmptyScript
	}
	return lines, nil
}
