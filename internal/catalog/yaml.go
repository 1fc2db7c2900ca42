package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

type yamlFile struct {
	Standards []entity.BiomarkerStandard `yaml:"standards"`
}

// LoadYAML reads biomarker standards from a YAML file. Used by the one-shot
// CLI and by tests with synthetic catalogs.
func LoadYAML(path string) ([]entity.BiomarkerStandard, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseYAML(b)
}

// ParseYAML decodes a standards document from raw YAML bytes.
func ParseYAML(b []byte) ([]entity.BiomarkerStandard, error) {
	var f yamlFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	if len(f.Standards) == 0 {
		return nil, fmt.Errorf("catalog yaml contains no standards")
	}
	for i, s := range f.Standards {
		if s.Code == "" {
			return nil, fmt.Errorf("catalog entry %d: missing code", i)
		}
	}
	return f.Standards, nil
}
