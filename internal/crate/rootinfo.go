package crate

import (
	"github.com/wfrun/cratebuilder/internal/log"
	"github.com/wfrun/cratebuilder/internal/manifest"
)

// AddPerson registers a person (and their contact point and organisation) as
// contextual entities. contactType is "Author" or "Agent". Returns false,
// without touching the graph, when the person lacks the mandatory identifier.
func AddPerson(c *Crate, p manifest.Person, contactType string, logger *log.Logger) bool {
	if !p.Identified() {
		logger.Warn("a person is ignored, no 'orcid' identifier defined",
			"contact_type", contactType, "name", p.Name)
		return false
	}

	props := map[string]any{}
	if p.Name != "" {
		props["name"] = p.Name
	}
	if p.Email != "" {
		mailID := "mailto:" + p.Email
		props["contactPoint"] = RefTo(mailID)
		c.AddContext(mailID, []string{"ContactPoint"}, map[string]any{
			"contactType": contactType,
			"email":       p.Email,
			"identifier":  p.Email,
			"url":         p.ORCID,
		})
	}
	if p.ROR != "" {
		props["affiliation"] = RefTo(p.ROR)
		if p.OrganisationName != "" {
			c.AddContext(p.ROR, []string{"Organization"}, map[string]any{
				"name": p.OrganisationName,
			})
		} else {
			logger.Warn("'organisation_name' not defined for an organisation", "ror", p.ROR)
		}
	}
	c.AddContext(p.ORCID, []string{"Person"}, props)

	return true
}

// SetRootInfo fills the root dataset with the manifest identity terms and
// registers the authors. Returns references to the validly registered
// authors, in declaration order.
func SetRootInfo(c *Crate, m *manifest.RunManifest, logger *log.Logger) []Ref {
	root := c.Root()
	root.Set("name", m.Name)
	if m.Description != "" {
		root.Set("description", m.Description)
	}
	if m.License != "" {
		root.Set("license", m.License)
	}

	var authorRefs []Ref
	var orgRefs []Ref
	seenAuthors := make(map[string]bool)
	seenOrgs := make(map[string]bool)

	for _, author := range m.Authors {
		if author.ORCID != "" && seenAuthors[author.ORCID] {
			// Duplicate identifier stops author registration
			break
		}
		if !AddPerson(c, author, "Author", logger) {
			continue
		}
		seenAuthors[author.ORCID] = true
		authorRefs = append(authorRefs, RefTo(author.ORCID))
		if author.ROR != "" && !seenOrgs[author.ROR] {
			seenOrgs[author.ROR] = true
			orgRefs = append(orgRefs, RefTo(author.ROR))
		}
	}

	if len(authorRefs) > 0 {
		root.Set("creator", authorRefs)
	} else {
		logger.Warn("no valid 'Authors' specified in the manifest")
	}

	// Publisher is preferably an organisation; authors otherwise
	if len(orgRefs) > 0 {
		root.Set("publisher", orgRefs)
	} else if len(authorRefs) > 0 {
		root.Set("publisher", authorRefs)
	}

	return authorRefs
}
