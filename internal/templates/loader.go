package templates

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Loader reads the template registry from a YAML file.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Path returns the watched file.
func (l *Loader) Path() string {
	return l.filePath
}

// Load reads, parses and validates the file.
func (l *Loader) Load() ([]domain.Template, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	// Labels may reference the environment, ex: "${INSTITUTION} Data Services"
	data = []byte(os.ExpandEnv(string(data)))

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates yaml: %w", err)
	}

	return file.toDomain()
}

func (f File) toDomain() ([]domain.Template, error) {
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("no templates declared")
	}

	seen := make(map[string]bool, len(f.Templates))
	out := make([]domain.Template, 0, len(f.Templates))
	for i, e := range f.Templates {
		name := strings.TrimSpace(e.Name)
		if !namePattern.MatchString(name) {
			return nil, fmt.Errorf("template #%d: invalid name %q", i+1, e.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("template %q declared twice", name)
		}
		seen[name] = true

		label := strings.TrimSpace(e.Label)
		if label == "" {
			label = name
		}
		out = append(out, domain.Template{
			Name:           name,
			Label:          label,
			RequiresFtpURL: e.RequiresFtpURL,
		})
	}
	return out, nil
}
