package file

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"voice-quiz-service/internal/domain"
)

//go:embed questions.yaml
var defaultCatalog []byte

// Catalog is the on-disk YAML shape of a question bank.
type Catalog struct {
	Questions []domain.Question `yaml:"questions"`
}

// CatalogLoader reads questions from a YAML file. An empty path serves the
// built-in catalog.
type CatalogLoader struct {
	path string
}

func NewCatalogLoader(path string) *CatalogLoader {
	return &CatalogLoader{path: path}
}

func (l *CatalogLoader) LoadCatalog(_ context.Context) ([]domain.Question, error) {
	data := defaultCatalog
	if l.path != "" {
		raw, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog, rejecting unknown fields.
func ParseCatalog(data []byte) ([]domain.Question, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var catalog Catalog
	if err := dec.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(catalog.Questions) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	return catalog.Questions, nil
}

// DefaultCatalog returns the built-in questions.
func DefaultCatalog() ([]domain.Question, error) {
	return ParseCatalog(defaultCatalog)
}
