// Package crate models the provenance package being assembled: a graph of
// JSON-LD entities plus the set of files destined for physical inclusion.
// The graph follows the RO-Crate 1.1 layout: a metadata descriptor, a root
// dataset, data entities (files and directories) and contextual entities.
package crate

import (
	"sort"
	"time"
)

// Well-known identifiers
const (
	MetadataFilename = "ro-crate-metadata.json"
	RootID           = "./"
	MetadataContext  = "https://w3id.org/ro/crate/1.1/context"
	// Extra context bringing in the workflow-run terms (resourceUsage,
	// environment, checksum algorithm)
	WorkflowRunContext = "https://w3id.org/ro/terms/workflow-run"
)

// Entity is a single node of the crate graph
type Entity struct {
	ID         string
	Types      []string
	Properties map[string]any
}

// Ref is a JSON-LD reference to another entity
type Ref map[string]string

// RefTo builds an @id reference
func RefTo(id string) Ref {
	return Ref{"@id": id}
}

// Set assigns a property
func (e *Entity) Set(key string, value any) {
	e.Properties[key] = value
}

// AppendTo appends a value to a list-valued property, creating it if needed
func (e *Entity) AppendTo(key string, value any) {
	switch existing := e.Properties[key].(type) {
	case nil:
		e.Properties[key] = []any{value}
	case []any:
		e.Properties[key] = append(existing, value)
	default:
		e.Properties[key] = []any{existing, value}
	}
}

// HasType reports whether the entity carries the given type
func (e *Entity) HasType(t string) bool {
	for _, existing := range e.Types {
		if existing == t {
			return true
		}
	}
	return false
}

// payloadSource describes where a payload file comes from: a filesystem copy,
// or a synthesized empty marker
type payloadSource struct {
	SourcePath string
	Marker     bool
}

// Crate is the provenance package under assembly
type Crate struct {
	entities []*Entity
	byID     map[string]*Entity

	// payload maps crate-relative destination paths to their sources
	payload map[string]payloadSource

	root     *Entity
	metadata *Entity

	// extraContexts are appended to the JSON-LD @context on serialization
	extraContexts []string
}

// New creates an empty crate with its metadata descriptor and root dataset
func New() *Crate {
	c := &Crate{
		byID:    make(map[string]*Entity),
		payload: make(map[string]payloadSource),
	}

	c.metadata = c.addEntity(MetadataFilename, []string{"CreativeWork"}, map[string]any{
		"conformsTo": RefTo("https://w3id.org/ro/crate/1.1"),
		"about":      RefTo(RootID),
	})
	c.root = c.addEntity(RootID, []string{"Dataset"}, map[string]any{
		"datePublished": time.Now().UTC().Format(time.RFC3339),
	})

	return c
}

// Root returns the root dataset entity
func (c *Crate) Root() *Entity { return c.root }

// Metadata returns the metadata descriptor entity
func (c *Crate) Metadata() *Entity { return c.metadata }

// AddExtraContext appends a context URL to the serialized @context
func (c *Crate) AddExtraContext(url string) {
	c.extraContexts = append(c.extraContexts, url)
}

// Get returns the entity with the given id, if present
func (c *Crate) Get(id string) (*Entity, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// Entities returns the graph in insertion order
func (c *Crate) Entities() []*Entity {
	return c.entities
}

func (c *Crate) addEntity(id string, types []string, props map[string]any) *Entity {
	if props == nil {
		props = make(map[string]any)
	}
	e := &Entity{ID: id, Types: types, Properties: props}
	c.entities = append(c.entities, e)
	c.byID[id] = e
	return e
}

// AddContext adds a contextual entity (person, organisation, property value,
// profile marker, ...). If an entity with the same id exists, the existing
// one is kept and returned: first registration wins.
func (c *Crate) AddContext(id string, types []string, props map[string]any) *Entity {
	if existing, ok := c.byID[id]; ok {
		return existing
	}
	return c.addEntity(id, types, props)
}

// AddFileEntity registers a data entity of type File identified by id (a
// crate-relative destination path, or an external URL when the file is only
// referenced). First registration by id wins; a second attempt is a no-op
// returning the original entity and false.
func (c *Crate) AddFileEntity(id string, props map[string]any) (*Entity, bool) {
	if existing, ok := c.byID[id]; ok {
		return existing, false
	}
	e := c.addEntity(id, []string{"File"}, props)
	c.root.AppendTo("hasPart", RefTo(id))
	return e, true
}

// AddDatasetEntity registers a data entity of type Dataset.
// Dataset ids always end with a separator.
func (c *Crate) AddDatasetEntity(id string, props map[string]any) (*Entity, bool) {
	if existing, ok := c.byID[id]; ok {
		return existing, false
	}
	e := c.addEntity(id, []string{"Dataset"}, props)
	c.root.AppendTo("hasPart", RefTo(id))
	return e, true
}

// AttachPayload schedules a filesystem copy of sourcePath to the
// crate-relative destPath at write time. Re-attachment of an existing
// destination is a no-op: prior registration is detected by destination
// path, not source identity.
func (c *Crate) AttachPayload(destPath, sourcePath string) bool {
	if _, ok := c.payload[destPath]; ok {
		return false
	}
	c.payload[destPath] = payloadSource{SourcePath: sourcePath}
	return true
}

// AttachMarker schedules creation of an empty marker file at destPath,
// used to materialize empty directories
func (c *Crate) AttachMarker(destPath string) bool {
	if _, ok := c.payload[destPath]; ok {
		return false
	}
	c.payload[destPath] = payloadSource{Marker: true}
	return true
}

// PayloadPaths returns the scheduled destination paths, sorted
func (c *Crate) PayloadPaths() []string {
	paths := make([]string, 0, len(c.payload))
	for p := range c.payload {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
