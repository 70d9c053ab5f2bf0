package manifest

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wfrun/cratebuilder/internal/errors"
)

// TemplateFilename is written next to the missing manifest so the user has a
// starting point for the next attempt
const TemplateFilename = "crate-info_TEMPLATE.yaml"

// Repository defines the interface for loading RunManifest files.
// This interface enables dependency injection and makes testing easier.
type Repository interface {
	// Load reads a RunManifest from a file
	Load(path string) (*RunManifest, error)
}

// FileRepository implements Repository for file-based storage
type FileRepository struct{}

// NewFileRepository creates a new file-based manifest repository
func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

// Load reads a RunManifest from a YAML file. A missing manifest is fatal, but a
// template is generated first so the user does not start from a blank page.
func (r *FileRepository) Load(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			templatePath := filepath.Join(filepath.Dir(path), TemplateFilename)
			if writeErr := os.WriteFile(templatePath, []byte(Template()), 0644); writeErr == nil {
				return nil, errors.NewManifestNotFoundError(path).
					WithSuggestion("Template written to " + templatePath)
			}
			return nil, errors.NewManifestNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeManifestInvalid, "read run manifest", err)
	}

	var m RunManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewManifestInvalidError(path, err)
	}

	m.Path = path
	return &m, nil
}

// Default instance for package-level functions
var defaultRepository = NewFileRepository()

// Load reads a RunManifest from a YAML file using the default repository.
func Load(path string) (*RunManifest, error) {
	return defaultRepository.Load(path)
}

// Compile-time verification that FileRepository implements Repository
var _ Repository = (*FileRepository)(nil)
