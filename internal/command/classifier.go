package command

import (
	"regexp"
	"strings"
)

// setPattern matches "set <field> to <value>" style utterances. The field
// phrase is non-greedy so the first to/is/as splits the sentence; the value
// runs to the end of the line.
var setPattern = regexp.MustCompile(`^(?:set|fill)\s+(.+?)\s+(?:to|is|as)\s+(.+)$`)

// Parser classifies transcribed utterances into structured commands.
// Classification is stateless; the zero value is not usable, construct
// with NewParser.
type Parser struct {
	vessels  []string
	mappings FieldMappings
}

// FieldMappings carries optional display/validation hints keyed by canonical
// field name. Consulted but never required for correct resolution.
type FieldMappings map[string]FieldHint

type FieldHint struct {
	Label  string   `yaml:"label" json:"label"`
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// DefaultVessels is the canonical vessel catalog in resolution order.
// Order is load-bearing: matching is first-containment-wins, so more
// specific multi-word names must come before anything that could shadow
// them.
func DefaultVessels() []string {
	return []string{
		"common iliac", "external iliac", "common femoral",
		"superficial femoral", "profunda", "popliteal",
		"anterior tibial", "posterior tibial", "peroneal",
		"tibial peroneal trunk",
	}
}

func NewParser(vessels []string, mappings FieldMappings) *Parser {
	if len(vessels) == 0 {
		vessels = DefaultVessels()
	}
	return &Parser{vessels: vessels, mappings: mappings}
}

// Classify decides which command variant an utterance is. Matching is
// case-insensitive and evaluated in fixed precedence; anything that matches
// no category comes back as KindNone and the caller treats the raw text as
// narration. No input is an error.
func (p *Parser) Classify(text string) Command {
	clean := strings.ToLower(strings.TrimSpace(text))

	if rest, ok := strings.CutPrefix(clean, "insert "); ok {
		name := strings.TrimSpace(rest)
		if strings.Contains(name, "vascular") || strings.Contains(name, "procedure") {
			return Command{Kind: KindInsertMacro, Macro: "vascular_procedure"}
		}
	}

	if m := setPattern.FindStringSubmatch(clean); m != nil {
		return p.Resolve(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}

	if containsAny(clean, "save procedure", "save note", "complete procedure") {
		return Command{Kind: KindSaveProcedure}
	}
	if containsAny(clean, "clear buffer", "start over") {
		return Command{Kind: KindClearBuffer}
	}
	if containsAny(clean, "show fields", "what fields") {
		return Command{Kind: KindShowFields}
	}

	return Command{Kind: KindNone}
}

// Hint returns the display hint for a canonical field, when the mapping
// file provides one.
func (p *Parser) Hint(field string) (FieldHint, bool) {
	hint, ok := p.mappings[field]
	return hint, ok
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
