package domain

// Candidate is a mapping target: either a WikiPathways pathway or a GO
// biological-process term. The two variants share the fields the scoring
// engine reads; everything else stays on the concrete type.
type Candidate interface {
	CandidateID() string
	DisplayName() string
	DisplayText() string
}

// PathwayCandidate is a WikiPathways entry.
type PathwayCandidate struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	SVGURL      string `json:"svg_url,omitempty"`
}

func (p PathwayCandidate) CandidateID() string { return p.ID }
func (p PathwayCandidate) DisplayName() string { return p.Title }
func (p PathwayCandidate) DisplayText() string { return p.Description }

// GoSynonym is one synonym line from the GO term record.
type GoSynonym struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// GoTermCandidate is a GO biological-process term. Parent and part-of
// relations are informational only; scoring never reads them.
type GoTermCandidate struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Definition string      `json:"definition,omitempty"`
	Synonyms   []GoSynonym `json:"synonyms,omitempty"`
	Parents    []string    `json:"parents,omitempty"`
	PartOf     []string    `json:"part_of,omitempty"`
}

func (g GoTermCandidate) CandidateID() string { return g.ID }
func (g GoTermCandidate) DisplayName() string { return g.Name }
func (g GoTermCandidate) DisplayText() string { return g.Definition }
