// Package content reads published challenges from YAML.
package content

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tegalsec-progression/internal/domain"
)

//go:embed challenges.yaml
var builtinYAML []byte

type document struct {
	Challenges []domain.Challenge `yaml:"challenges"`
}

// Parse decodes and validates a challenge document.
func Parse(data []byte) ([]domain.Challenge, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode challenges: %v", domain.ErrValidation, err)
	}
	seen := make(map[string]bool, len(doc.Challenges))
	for _, c := range doc.Challenges {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate challenge id %s", domain.ErrValidation, c.ID)
		}
		seen[c.ID] = true
	}
	return doc.Challenges, nil
}

// Builtin returns the challenges shipped with the service.
func Builtin() []domain.Challenge {
	challenges, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin challenges: %v", err))
	}
	return challenges
}

// FileLoader reads the catalogue from a YAML file on every load, so edits are
// picked up when the repository cache expires.
type FileLoader struct {
	path string
}

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

func (l *FileLoader) LoadChallenges(_ context.Context) ([]domain.Challenge, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read challenges: %w", err)
	}
	return Parse(data)
}

// BuiltinLoader serves the embedded catalogue.
type BuiltinLoader struct{}

func (BuiltinLoader) LoadChallenges(_ context.Context) ([]domain.Challenge, error) {
	return Builtin(), nil
}
