package validation

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	pstrings "github.com/MindFlow-Startup/MindFlow/pkg/platform/strings"
)

//go:embed specialties.yaml
var defaultVocabularyYAML []byte

// Vocabulary is the controlled list of specialty names. Lookups are
// case-insensitive and return the canonical spelling.
type Vocabulary struct {
	entries   []string
	canonical map[string]string
}

type vocabularyFile struct {
	Specialties []string `yaml:"specialties"`
}

// NewVocabulary builds a vocabulary from entries, dropping blanks and
// duplicates.
func NewVocabulary(entries []string) *Vocabulary {
	cleaned := pstrings.DedupeFold(entries)
	v := &Vocabulary{
		entries:   cleaned,
		canonical: make(map[string]string, len(cleaned)),
	}
	for _, e := range cleaned {
		v.canonical[strings.ToLower(e)] = e
	}
	return v
}

// DefaultVocabulary returns the built-in specialty list.
func DefaultVocabulary() *Vocabulary {
	v, err := parseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded specialties vocabulary: %v", err))
	}
	return v
}

// LoadVocabulary reads a YAML file with a top-level "specialties" list.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specialties file: %w", err)
	}
	v, err := parseVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("parse specialties file %s: %w", path, err)
	}
	return v, nil
}

func parseVocabulary(data []byte) (*Vocabulary, error) {
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	v := NewVocabulary(f.Specialties)
	if len(v.entries) == 0 {
		return nil, fmt.Errorf("no specialties listed")
	}
	return v, nil
}

// Lookup returns the canonical spelling of name.
func (v *Vocabulary) Lookup(name string) (string, bool) {
	if v == nil {
		return "", false
	}
	c, ok := v.canonical[strings.ToLower(strings.Join(strings.Fields(name), " "))]
	return c, ok
}

func (v *Vocabulary) isEmpty() bool { return v == nil || len(v.entries) == 0 }

// Entries returns a copy of the vocabulary in file order.
func (v *Vocabulary) Entries() []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v.entries...)
}
