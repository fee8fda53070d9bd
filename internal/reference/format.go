package reference

import "strings"

var (
	sectionRule = "\n" + strings.Repeat("=", 40) + "\n"
	entryRule   = strings.Repeat("-", 20)
)

// Text renders a single entry block.
func (e *Entry) Text() string {
	var b strings.Builder
	b.WriteString(e.Type)
	b.WriteString(": ")
	b.WriteString(e.Name)
	b.WriteString("\nImport from: ")
	b.WriteString(e.Import())
	b.WriteString(" (defined in: ")
	b.WriteString(e.Module)
	b.WriteString(")\n")
	b.WriteString(entryRule)
	b.WriteString("\n")
	b.WriteString(e.Declaration)
	return b.String()
}

// Full renders the whole table.
func (t *Table) Full() string {
	return t.Format(t.names)
}

// Format renders the named entries in name order. Unknown names are skipped.
func (t *Table) Format(names []string) string {
	known := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := t.entries[n]; ok {
			known = append(known, n)
		}
	}

	lines := make([]string, 0, len(known)*3+2)
	lines = append(lines, "Found the following public classes/functions in Tecton SDK:")
	for _, n := range known {
		lines = append(lines, "- "+n)
	}
	lines = append(lines, sectionRule)
	for _, n := range known {
		lines = append(lines, t.entries[n].Text(), sectionRule)
	}
	return strings.Join(lines, "\n")
}

// Description is the query tool description listing every available name.
func (t *Table) Description() string {
	return `Fetches the Tecton SDK reference for a specific list of classes/functions.

**IMPORTANT:** The ` + "`class_names`" + ` list **MUST** only contain names from the 'Available classes/functions' list below.
Providing any names *not* in this list will result in an error or empty output.

Use this tool when you need information about specific Tecton components from the allowed list.

Output Format:
- Starts with a bulleted list of the found public classes/functions matching the query.
- Followed by details for each item, including:
    - Type (Class/Function)
    - Name
    - Recommended import path (e.g., ` + "`tecton`" + ` or ` + "`tecton.types`" + `)
    - The definition header (e.g., ` + "`class FeatureView(...)`" + ` or ` + "`def batch_feature_view(...)`" + `)
    - The full docstring.

Available classes/functions:
` + strings.Join(t.names, ", ") + "\n"
}
