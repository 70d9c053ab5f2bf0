package crate

import "fmt"

// Governing specification profiles for the produced package
const (
	profilesBase       = "https://w3id.org/ro/wfrun"
	profilesVersion    = "0.5"
	wrocProfileVersion = "1.0"
)

// SetProfileDetails marks the crate as conformant with the Process Run Crate
// and Workflow Run Crate profiles, plus the Workflow RO-Crate profile, and
// pulls in the workflow-run terms context
func SetProfileDetails(c *Crate) {
	var profiles []any

	for _, proc := range []struct{ key, title string }{
		{"process", "Process"},
		{"workflow", "Workflow"},
	} {
		id := fmt.Sprintf("%s/%s/%s", profilesBase, proc.key, profilesVersion)
		c.AddContext(id, []string{"CreativeWork"}, map[string]any{
			"name":    proc.title + " Run Crate",
			"version": profilesVersion,
		})
		profiles = append(profiles, RefTo(id))
	}

	wrocID := fmt.Sprintf("https://w3id.org/workflowhub/workflow-ro-crate/%s", wrocProfileVersion)
	c.AddContext(wrocID, []string{"CreativeWork"}, map[string]any{
		"name":    "Workflow RO-Crate",
		"version": wrocProfileVersion,
	})
	profiles = append(profiles, RefTo(wrocID))

	c.Root().Set("conformsTo", profiles)
	c.AddExtraContext(WorkflowRunContext)
}
