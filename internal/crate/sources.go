package crate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wfrun/cratebuilder/internal/log"
	"github.com/wfrun/cratebuilder/internal/manifest"
	"github.com/wfrun/cratebuilder/internal/source"
)

// SourcesPrefix is the crate namespace application source files live under
const SourcesPrefix = "application_sources/"

// pronomFormat pairs a media type with its PRONOM registry entry
type pronomFormat struct {
	mediaType string
	pronomID  string
	siteName  string
}

var formatsByExt = map[string]pronomFormat{
	".json":  {"application/json", "https://www.nationalarchives.gov.uk/PRONOM/fmt/817", "JSON Data Interchange Format"},
	".pdf":   {"application/pdf", "https://www.nationalarchives.gov.uk/PRONOM/fmt/276", "Acrobat PDF 1.7 - Portable Document Format"},
	".svg":   {"image/svg+xml", "https://www.nationalarchives.gov.uk/PRONOM/fmt/92", "Scalable Vector Graphics"},
	".jar":   {"application/java-archive", "https://www.nationalarchives.gov.uk/PRONOM/x-fmt/412", "Java Archive Format"},
	".class": {"application/java", "https://www.nationalarchives.gov.uk/PRONOM/x-fmt/415", "Java Compiled Object Code"},
	".yaml":  {"application/x-yaml", "https://www.nationalarchives.gov.uk/PRONOM/fmt/818", "YAML"},
	".yml":   {"application/x-yaml", "https://www.nationalarchives.gov.uk/PRONOM/fmt/818", "YAML"},
}

// setEncodingFormat annotates a file entity with its media type, adding the
// PRONOM contextual entity for registered formats
func setEncodingFormat(c *Crate, props map[string]any, ext string) {
	format, ok := formatsByExt[ext]
	if !ok {
		props["encodingFormat"] = "text/plain"
		return
	}
	props["encodingFormat"] = []any{format.mediaType, RefTo(format.pronomID)}
	c.AddContext(format.pronomID, []string{"WebSite"}, map[string]any{"name": format.siteName})
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SourceAdder attaches the application source files and the run's auxiliary
// artifacts (profile, diagram, manifest) to the crate
type SourceAdder struct {
	Crate  *Crate
	Logger *log.Logger

	// RuntimeVersion is the workflow runtime version from the execution log
	RuntimeVersion string

	// WorkDir is where the run was started; the profile is searched there
	WorkDir string
}

// AddApplicationSources physically includes every resolved source file,
// registering the main entity as the crate's computational workflow.
// Returns the crate path of the main entity.
func (s *SourceAdder) AddApplicationSources(res *source.Resolved, m *manifest.RunManifest, profileName, diagramPath string) string {
	var mainPath string
	for _, file := range res.Files {
		cratePath := s.addSourceFile(file, file == res.MainEntity, res.Origins[file], m, diagramPath)
		if file == res.MainEntity {
			mainPath = cratePath
		}
	}
	s.Logger.Info("application source files added", "count", len(res.Files))

	s.attachDiagram(diagramPath, mainPath)
	s.attachProfile(profileName)
	s.attachManifest(m.Path)

	return mainPath
}

// sourceDest maps an absolute source file to its crate path. Files expanded
// from a declared directory keep the sub-structure, rooted at the directory's
// own name; individually declared files land at the namespace root.
func sourceDest(file, originDir string) string {
	if originDir == "" {
		return SourcesPrefix + filepath.Base(file)
	}
	newRoot := filepath.Dir(originDir)
	if !strings.HasSuffix(newRoot, string(filepath.Separator)) {
		newRoot += string(filepath.Separator)
	}
	rel := strings.TrimPrefix(file, newRoot)
	return SourcesPrefix + filepath.ToSlash(rel)
}

func (s *SourceAdder) addSourceFile(file string, isMain bool, originDir string, m *manifest.RunManifest, diagramPath string) string {
	cratePath := sourceDest(file, originDir)
	ext := filepath.Ext(file)

	props := map[string]any{
		"name": filepath.Base(file),
	}
	if info, err := os.Stat(file); err == nil {
		props["contentSize"] = info.Size()
	}

	if !isMain {
		props["description"] = "Auxiliary File"
		setEncodingFormat(s.Crate, props, ext)
		entity, created := s.Crate.AddFileEntity(cratePath, props)
		if !created {
			s.Logger.Warn("a source file addition was attempted twice", "file", file)
			return cratePath
		}
		if ext == ".py" || ext == ".java" {
			entity.Types = append(entity.Types, "SoftwareSourceCode")
		}
		s.Crate.AttachPayload(cratePath, file)
		return cratePath
	}

	// Main entity: the computational workflow of the crate
	props["description"] = "Main file of the application source files"
	setEncodingFormat(s.Crate, props, ext)
	if diagramPath != "" {
		if _, err := os.Stat(diagramPath); err == nil {
			props["image"] = RefTo(filepath.Base(diagramPath))
		}
	}
	if reqs := s.addSoftwareRequirements(m); len(reqs) == 1 {
		props["softwareRequirements"] = reqs[0]
	} else if len(reqs) > 1 {
		props["softwareRequirements"] = reqs
	}
	props["programmingLanguage"] = RefTo("#workflow-runtime")
	s.Crate.AddContext("#workflow-runtime", []string{"ComputerLanguage"}, map[string]any{
		"name":    "Workflow Runtime",
		"version": s.RuntimeVersion,
	})

	entity, created := s.Crate.AddFileEntity(cratePath, props)
	if created {
		entity.Types = append(entity.Types, "SoftwareSourceCode", "ComputationalWorkflow")
		s.Crate.Root().Set("mainEntity", RefTo(cratePath))
		s.Crate.AttachPayload(cratePath, file)
	}
	return cratePath
}

// addSoftwareRequirements registers the manually declared software
// dependencies, returning their references
func (s *SourceAdder) addSoftwareRequirements(m *manifest.RunManifest) []Ref {
	var refs []Ref
	for _, soft := range m.Software {
		if !soft.Valid() {
			s.Logger.Warn("a 'software' dependency without 'name' or 'version' is ignored", "name", soft.Name)
			continue
		}
		id := "#" + strings.ToLower(soft.Name)
		props := map[string]any{
			"name":    soft.Name,
			"version": soft.Version,
		}
		if soft.URL != "" {
			id = soft.URL
			props["url"] = soft.URL
		}
		s.Crate.AddContext(id, []string{"SoftwareApplication"}, props)
		s.Logger.Info("software dependency added", "name", soft.Name)
		refs = append(refs, RefTo(id))
	}
	return refs
}

// attachDiagram includes the workflow diagram generated by the runtime
func (s *SourceAdder) attachDiagram(diagramPath, mainCratePath string) {
	if diagramPath == "" {
		return
	}
	info, err := os.Stat(diagramPath)
	if err != nil {
		s.Logger.Warn("workflow diagram not found, provenance generated without image property",
			"diagram", diagramPath)
		return
	}

	name := filepath.Base(diagramPath)
	props := map[string]any{
		"name":        name,
		"contentSize": info.Size(),
		"description": "The graph diagram of the workflow, automatically generated by the runtime",
		"about":       RefTo(mainCratePath),
	}
	setEncodingFormat(s.Crate, props, filepath.Ext(diagramPath))
	if sum, err := fileSHA256(diagramPath); err == nil {
		props["sha256"] = sum
	}

	entity, created := s.Crate.AddFileEntity(name, props)
	if created {
		entity.Types = append(entity.Types, "ImageObject", "WorkflowSketch")
		s.Crate.AttachPayload(name, diagramPath)
	}
}

// attachProfile includes the task profile written by the runtime, looked up
// in the working directory under the name recorded in the execution log
func (s *SourceAdder) attachProfile(profileName string) {
	if profileName == "" {
		return
	}
	profilePath := filepath.Join(s.WorkDir, profileName)
	info, err := os.Stat(profilePath)
	if err != nil {
		s.Logger.Warn("application profile has not been generated, provenance generated without profiling information",
			"profile", profileName)
		return
	}

	props := map[string]any{
		"name":        profileName,
		"contentSize": info.Size(),
		"description": "Application tasks profile",
	}
	setEncodingFormat(s.Crate, props, filepath.Ext(profileName))
	if sum, err := fileSHA256(profilePath); err == nil {
		props["sha256"] = sum
	}

	if _, created := s.Crate.AddFileEntity(profileName, props); created {
		s.Crate.AttachPayload(profileName, profilePath)
	}
}

// attachManifest includes the run manifest the user authored
func (s *SourceAdder) attachManifest(manifestPath string) {
	if manifestPath == "" {
		return
	}
	info, err := os.Stat(manifestPath)
	if err != nil {
		s.Logger.Warn("run manifest could not be attached", "manifest", manifestPath)
		return
	}

	name := filepath.Base(manifestPath)
	props := map[string]any{
		"name":        name,
		"contentSize": info.Size(),
		"description": fmt.Sprintf("Run manifest describing the %s workflow", s.Crate.Root().Properties["name"]),
	}
	setEncodingFormat(s.Crate, props, filepath.Ext(manifestPath))
	if sum, err := fileSHA256(manifestPath); err == nil {
		props["sha256"] = sum
	}

	if _, created := s.Crate.AddFileEntity(name, props); created {
		s.Crate.AttachPayload(name, manifestPath)
	}
}
