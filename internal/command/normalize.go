package command

import (
	"fmt"
	"regexp"
	"strings"
)

// Normalizers convert raw spoken values into canonical field values. All of
// them are total: input that cannot be interpreted comes back verbatim so a
// mis-heard value still lands in the narrative instead of being dropped.

var (
	numberPattern = regexp.MustCompile(`\d+\.?\d*`)
	intPattern    = regexp.MustCompile(`\d+`)
	tascPattern   = regexp.MustCompile(`[a-dA-D]`)
)

// NormalizeLength extracts the first numeric token and tags it with a unit.
// Centimeters win over millimeters when both appear in the phrase.
func NormalizeLength(v string) string {
	num := numberPattern.FindString(v)
	if num == "" {
		return v
	}
	switch {
	case strings.Contains(v, "centimeter") || strings.Contains(v, "cm"):
		return num + " cm"
	case strings.Contains(v, "millimeter") || strings.Contains(v, "mm"):
		return num + " mm"
	}
	return num + " cm"
}

var treatmentTable = []struct{ term, canonical string }{
	{"pta", "PTA"},
	{"angioplasty", "PTA"},
	{"balloon", "PTA"},
	{"stent", "Stent"},
	{"stenting", "Stent"},
	{"atherectomy", "Atherectomy"},
	{"tpa", "TPA"},
	{"thrombolysis", "Mechanical Thrombolysis"},
}

// NormalizeTreatment maps spoken treatment descriptions to canonical names.
// A phrase naming both an angioplasty term and a stent term is the combined
// "PTA + Stent".
func NormalizeTreatment(v string) string {
	lower := strings.ToLower(v)

	balloonTerm := strings.Contains(lower, "pta") || strings.Contains(lower, "angioplasty") || strings.Contains(lower, "balloon")
	if balloonTerm && strings.Contains(lower, "stent") {
		return "PTA + Stent"
	}

	for _, t := range treatmentTable {
		if strings.Contains(lower, t.term) {
			return t.canonical
		}
	}
	return v
}

// NormalizeTASC picks the first A-D letter out of the value, upper-cased.
func NormalizeTASC(v string) string {
	if letter := tascPattern.FindString(v); letter != "" {
		return strings.ToUpper(letter)
	}
	return strings.ToUpper(v)
}

func NormalizeCalcification(v string) string {
	lower := strings.ToLower(v)
	switch {
	case strings.Contains(lower, "none"):
		return "none"
	case strings.Contains(lower, "mild"):
		return "mild"
	case strings.Contains(lower, "moderate"):
		return "moderate"
	case strings.Contains(lower, "severe") || strings.Contains(lower, "heavy"):
		return "severe"
	}
	return v
}

func NormalizeSide(v string) string {
	lower := strings.ToLower(v)
	switch {
	case strings.Contains(lower, "left"):
		return "left"
	case strings.Contains(lower, "right"):
		return "right"
	case strings.Contains(lower, "both") || strings.Contains(lower, "bilateral"):
		return "bilateral"
	}
	return v
}

func NormalizeAccessSite(v string) string {
	lower := strings.ToLower(v)
	switch {
	case strings.Contains(lower, "femoral"):
		return "femoral"
	case strings.Contains(lower, "radial"):
		return "radial"
	case strings.Contains(lower, "brachial"):
		return "brachial"
	case strings.Contains(lower, "pop"):
		return "popliteal"
	}
	return v
}

// NormalizeSheath extracts the first integer and renders it in French units.
func NormalizeSheath(v string) string {
	if num := intPattern.FindString(v); num != "" {
		return fmt.Sprintf("%sfr", num)
	}
	return v
}

func NormalizeClosure(v string) string {
	lower := strings.ToLower(v)
	switch {
	case strings.Contains(lower, "mynx"):
		return "mynx"
	case strings.Contains(lower, "manual") || strings.Contains(lower, "pressure"):
		return "manual"
	}
	return v
}
