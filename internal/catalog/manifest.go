package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestName is the optional per-project file that names a project and
// overrides how it is built and run.
const ManifestName = ".xcf.yaml"

// Manifest is the content of a project's .xcf.yaml.
type Manifest struct {
	Name   string `yaml:"name,omitempty"`
	Scheme string `yaml:"scheme,omitempty"`
	Build  string `yaml:"build,omitempty"`
	Run    string `yaml:"run,omitempty"`
}

// LoadManifest reads and parses a manifest file. Unknown keys are ignored.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}
