package domain

import "strings"

// BiologicalLevel is the level of biological organization a key event
// describes. It conditions lexical thresholds and level-specific boosts.
type BiologicalLevel string

const (
	LevelUnknown    BiologicalLevel = ""
	LevelMolecular  BiologicalLevel = "Molecular"
	LevelCellular   BiologicalLevel = "Cellular"
	LevelTissue     BiologicalLevel = "Tissue"
	LevelOrgan      BiologicalLevel = "Organ"
	LevelIndividual BiologicalLevel = "Individual"
	LevelPopulation BiologicalLevel = "Population"
)

// ParseBiologicalLevel maps free-form level text (as stored in the AOP-Wiki)
// onto the enum. Unrecognized values become LevelUnknown rather than an error
// since the level is an optional hint.
func ParseBiologicalLevel(s string) BiologicalLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "molecular":
		return LevelMolecular
	case "cellular":
		return LevelCellular
	case "tissue":
		return LevelTissue
	case "organ":
		return LevelOrgan
	case "individual":
		return LevelIndividual
	case "population":
		return LevelPopulation
	default:
		return LevelUnknown
	}
}

// KeyEvent is an AOP key event as read from the wiki. Immutable input to
// the suggestion engine.
type KeyEvent struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Level       BiologicalLevel `json:"level,omitempty"`
}

// MethodFilter selects which scoring signals a suggestion request runs.
type MethodFilter string

const (
	MethodAll  MethodFilter = "all"
	MethodText MethodFilter = "text"
	MethodGene MethodFilter = "gene"
)

func ParseMethodFilter(s string) MethodFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return MethodText
	case "gene":
		return MethodGene
	default:
		return MethodAll
	}
}
