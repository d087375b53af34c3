package query

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// Keywords holds the keyword sets that drive question classification.
type Keywords struct {
	Legal         []string `yaml:"legal"`
	List          []string `yaml:"list"`
	WhichDocument []string `yaml:"which_document"`
	ExplicitList  []string `yaml:"explicit_list"`
	Narrative     []string `yaml:"narrative"`
}

// DefaultKeywords returns the built-in Spanish keyword sets.
func DefaultKeywords() Keywords {
	kw, err := parseKeywords(defaultKeywordsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded keywords.yaml is invalid: %v", err))
	}
	return kw
}

// LoadKeywords reads keyword sets from a YAML file. Sets missing from the file
// keep their built-in values. An empty path returns the defaults.
func LoadKeywords(path string) (Keywords, error) {
	kw := DefaultKeywords()
	if path == "" {
		return kw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("failed to read keywords file: %w", err)
	}
	override, err := parseKeywords(data)
	if err != nil {
		return Keywords{}, err
	}

	if len(override.Legal) > 0 {
		kw.Legal = override.Legal
	}
	if len(override.List) > 0 {
		kw.List = override.List
	}
	if len(override.WhichDocument) > 0 {
		kw.WhichDocument = override.WhichDocument
	}
	if len(override.ExplicitList) > 0 {
		kw.ExplicitList = override.ExplicitList
	}
	if len(override.Narrative) > 0 {
		kw.Narrative = override.Narrative
	}
	return kw, nil
}

func parseKeywords(data []byte) (Keywords, error) {
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return Keywords{}, fmt.Errorf("failed to parse keywords: %w", err)
	}
	kw.Legal = lowerAll(kw.Legal)
	kw.List = lowerAll(kw.List)
	kw.WhichDocument = lowerAll(kw.WhichDocument)
	kw.ExplicitList = lowerAll(kw.ExplicitList)
	kw.Narrative = lowerAll(kw.Narrative)
	return kw, nil
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
