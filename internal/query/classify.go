package query

import "strings"

// Kind is a set of flags describing what a question asks for.
type Kind uint8

const (
	// Legal marks questions that reference laws, treaties or regulations.
	Legal Kind = 1 << iota
	// List marks questions whose answer is likely an enumeration.
	List
	// WhichDocument marks questions asking which document holds something.
	WhichDocument
	// ExplicitList marks questions that explicitly request a list.
	ExplicitList
	// Narrative marks questions asking for an explanation.
	Narrative
)

// Has reports whether all flags in other are set.
func (k Kind) Has(other Kind) bool {
	return k&other == other
}

// String returns a readable form for logging.
func (k Kind) String() string {
	if k == 0 {
		return "general"
	}
	var names []string
	for _, f := range []struct {
		flag Kind
		name string
	}{
		{Legal, "legal"},
		{List, "list"},
		{WhichDocument, "which_document"},
		{ExplicitList, "explicit_list"},
		{Narrative, "narrative"},
	} {
		if k.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// Classifier tags questions using keyword sets.
type Classifier struct {
	kw Keywords
}

// NewClassifier creates a Classifier over the given keyword sets.
func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{kw: kw}
}

// Classify returns every flag whose keyword set matches q.
func (c *Classifier) Classify(q string) Kind {
	q = strings.ToLower(q)
	var k Kind
	if containsAny(q, c.kw.Legal) {
		k |= Legal
	}
	if containsAny(q, c.kw.List) {
		k |= List
	}
	if containsAny(q, c.kw.WhichDocument) {
		k |= WhichDocument
	}
	if containsAny(q, c.kw.ExplicitList) {
		k |= ExplicitList
	}
	if containsAny(q, c.kw.Narrative) {
		k |= Narrative
	}
	return k
}

// WantsBullets reports whether an answer to q should be rendered as a bullet
// list: the question must request a list and must not ask for an explanation.
func (c *Classifier) WantsBullets(q string) bool {
	k := c.Classify(q)
	return k.Has(ExplicitList) && !k.Has(Narrative)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
