package narrative

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/vascribe-labs/vascribe-core/internal/command"
)

var (
	// ErrMacroNotFound reports an insert for a macro the library does not
	// carry. The buffer is left untouched.
	ErrMacroNotFound = errors.New("macro not found")
	// ErrFieldNotPresent reports a substitution whose placeholder no longer
	// exists in the buffer. The buffer is left untouched.
	ErrFieldNotPresent = errors.New("field not present in buffer")
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Buffer owns the narrative text for one dictation session: literal prose
// plus unresolved {placeholder} tokens. It is not internally synchronized;
// callers must funnel all mutations through a single owner.
type Buffer struct {
	text   string
	macros map[string]string
	clock  func() time.Time
}

// New creates an empty buffer backed by the given macro library. A nil map
// is a valid, empty library.
func New(macros map[string]string) *Buffer {
	return &Buffer{macros: macros, clock: time.Now}
}

// SetClock overrides the clock used for {date} substitution. Intended for
// tests.
func (b *Buffer) SetClock(clock func() time.Time) {
	b.clock = clock
}

// InsertMacro replaces the whole buffer with the named template. The
// reserved {date} placeholder is resolved immediately to the current date,
// so it never survives insertion.
func (b *Buffer) InsertMacro(name string) error {
	template, ok := b.macros[name]
	if !ok {
		return ErrMacroNotFound
	}
	if strings.Contains(template, "{date}") {
		template = strings.ReplaceAll(template, "{date}", b.clock().Format("January 2, 2006"))
	}
	b.text = template
	return nil
}

// SetField replaces the first occurrence of {field} with value. Repeated
// placeholders need repeated commands.
func (b *Buffer) SetField(field, value string) error {
	return b.replaceFirst("{"+field+"}", value)
}

// SetVesselField substitutes the {vessel_property} placeholder. When the
// template only carries the coarser {vessel} token, a labeled phrase is
// synthesized in its place instead.
func (b *Buffer) SetVesselField(vessel, property, value string) error {
	if err := b.replaceFirst("{"+vessel+"_"+property+"}", value); err == nil {
		return nil
	}

	label := "Treatment: "
	if property == command.PropOcclusionLength {
		label = "Occlusion: "
	}
	return b.replaceFirst("{"+vessel+"}", label+value)
}

func (b *Buffer) replaceFirst(placeholder, value string) error {
	if !strings.Contains(b.text, placeholder) {
		return ErrFieldNotPresent
	}
	b.text = strings.Replace(b.text, placeholder, value, 1)
	return nil
}

// AppendNarration tacks free dictation onto the end of the buffer.
func (b *Buffer) AppendNarration(text string) {
	b.text = b.text + " " + text
}

// Clear resets the buffer to empty.
func (b *Buffer) Clear() {
	b.text = ""
}

// Placeholders lists every unresolved {token} in document order, duplicates
// preserved. An empty result means the narrative is complete.
func (b *Buffer) Placeholders() []string {
	matches := placeholderPattern.FindAllStringSubmatch(b.text, -1)
	if len(matches) == 0 {
		return nil
	}
	fields := make([]string, 0, len(matches))
	for _, m := range matches {
		fields = append(fields, m[1])
	}
	return fields
}

// Text returns the current narrative.
func (b *Buffer) Text() string {
	return b.text
}

// Export returns the narrative together with a completion status for
// persistence. It never mutates the buffer; whether the save lands is the
// transport's problem.
func (b *Buffer) Export() (text, status string) {
	return b.text, "completed"
}
