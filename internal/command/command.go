package command

// Kind identifies the closed set of voice command variants.
type Kind int

const (
	// KindNone means the utterance is free narration, not a command.
	KindNone Kind = iota
	KindInsertMacro
	KindSetField
	KindSetVesselField
	KindSaveProcedure
	KindClearBuffer
	KindShowFields
)

func (k Kind) String() string {
	switch k {
	case KindInsertMacro:
		return "insert_macro"
	case KindSetField:
		return "set_field"
	case KindSetVesselField:
		return "set_vessel_field"
	case KindSaveProcedure:
		return "save_procedure"
	case KindClearBuffer:
		return "clear_buffer"
	case KindShowFields:
		return "show_fields"
	default:
		return "none"
	}
}

// Command is the structured result of classifying one utterance.
// Only the fields relevant to Kind are populated.
type Command struct {
	Kind     Kind
	Macro    string
	Field    string
	Vessel   string
	Property string
	Value    string
}

// Vessel property keys used in narrative placeholders.
const (
	PropOcclusionLength = "occlusion_length"
	PropTreatment       = "treatment"
	PropTASC            = "tasc"
	PropCalcification   = "calcification"
)
