package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StringList accepts either a single scalar or a sequence in YAML.
// Older manifests used scalars for 'sources' and friends.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence, got yaml kind %d", node.Kind)
	}
}

// Person describes an author or the submitting agent.
// The orcid is the unique identifier; a person without one cannot be registered.
type Person struct {
	Name             string `yaml:"name"`
	Email            string `yaml:"e-mail"`
	ORCID            string `yaml:"orcid"`
	OrganisationName string `yaml:"organisation_name"`
	ROR              string `yaml:"ror"`
}

// Identified reports whether the person carries the mandatory unique identifier
func (p Person) Identified() bool {
	return p.ORCID != ""
}

// Software is a manually declared application dependency
type Software struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	URL     string `yaml:"url"`
}

// Valid reports whether the dependency carries the mandatory name and version
func (s Software) Valid() bool {
	return s.Name != "" && s.Version != ""
}

// PersonList accepts either a single mapping or a sequence in YAML
type PersonList []Person

// UnmarshalYAML implements yaml.Unmarshaler
func (p *PersonList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var single Person
		if err := node.Decode(&single); err != nil {
			return err
		}
		*p = PersonList{single}
		return nil
	case yaml.SequenceNode:
		var many []Person
		if err := node.Decode(&many); err != nil {
			return err
		}
		*p = PersonList(many)
		return nil
	default:
		return fmt.Errorf("expected mapping or sequence, got yaml kind %d", node.Kind)
	}
}

// SoftwareList accepts either a single mapping or a sequence in YAML
type SoftwareList []Software

// UnmarshalYAML implements yaml.Unmarshaler
func (s *SoftwareList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var single Software
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = SoftwareList{single}
		return nil
	case yaml.SequenceNode:
		var many []Software
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = SoftwareList(many)
		return nil
	default:
		return fmt.Errorf("expected mapping or sequence, got yaml kind %d", node.Kind)
	}
}

// RunManifest is the user-authored description of a single workflow run
type RunManifest struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	License     string `yaml:"license"`

	Sources StringList `yaml:"sources"`
	// Legacy keys, merged into Sources on load
	Files      StringList `yaml:"files"`
	SourcesDir StringList `yaml:"sources_dir"`

	SourcesMainFile string `yaml:"sources_main_file"`
	DataPersistence bool   `yaml:"data_persistence"`

	Inputs  StringList `yaml:"inputs"`
	Outputs StringList `yaml:"outputs"`

	Software SoftwareList `yaml:"software"`

	Authors PersonList `yaml:"Authors"`
	Agent   PersonList `yaml:"Agent"`

	// Path the manifest was loaded from, for messages and crate attachment
	Path string `yaml:"-"`
}

// AllSources merges the current and legacy source keys, preserving declaration order
func (m *RunManifest) AllSources() []string {
	merged := make([]string, 0, len(m.Sources)+len(m.Files)+len(m.SourcesDir))
	merged = append(merged, m.Sources...)
	merged = append(merged, m.Files...)
	merged = append(merged, m.SourcesDir...)
	return merged
}

// HasSources reports whether any of the source keys was declared, even if empty
func (m *RunManifest) HasSources() bool {
	return len(m.Sources) > 0 || len(m.Files) > 0 || len(m.SourcesDir) > 0
}
