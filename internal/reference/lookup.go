package reference

import (
	"sort"
	"strings"
)

// symmetricNames maps each feature view class to its decorator and back.
var symmetricNames = map[string]string{
	"BatchFeatureView":      "batch_feature_view",
	"batch_feature_view":    "BatchFeatureView",
	"StreamFeatureView":     "stream_feature_view",
	"stream_feature_view":   "StreamFeatureView",
	"RealtimeFeatureView":   "realtime_feature_view",
	"realtime_feature_view": "RealtimeFeatureView",
}

// Item is the outcome for one requested name.
type Item struct {
	Name        string
	Present     bool
	Entry       *Entry
	Suggestions []string
}

// LookupResult holds per-name outcomes and the names pulled in by expansion.
type LookupResult struct {
	Items    []Item
	Expanded []string

	table *Table
	names []string
}

// Lookup resolves names against the table. Unknown names are reported as
// absent items and never fail the lookup. An empty request selects every
// entry.
func (t *Table) Lookup(names []string) *LookupResult {
	res := &LookupResult{table: t}

	seen := make(map[string]struct{}, len(names))
	requested := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		requested = append(requested, n)
	}

	if len(requested) == 0 {
		res.names = t.Names()
		return res
	}

	for _, n := range requested {
		item := Item{Name: n}
		if e, ok := t.entries[n]; ok {
			item.Present = true
			item.Entry = e
		} else {
			item.Suggestions = t.Suggest(n)
		}
		res.Items = append(res.Items, item)
	}

	selected := t.expand(requested)
	for name := range selected {
		if _, ok := t.entries[name]; !ok {
			continue
		}
		res.names = append(res.names, name)
		if _, asked := seen[name]; !asked {
			res.Expanded = append(res.Expanded, name)
		}
	}
	sort.Strings(res.names)
	sort.Strings(res.Expanded)
	return res
}

// expand applies the symmetric mappings, the Aggregate rule and the
// dependency closure to the requested names.
func (t *Table) expand(requested []string) map[string]struct{} {
	selected := make(map[string]struct{}, len(requested))
	for _, n := range requested {
		selected[n] = struct{}{}
		if mirror, ok := symmetricNames[n]; ok {
			selected[mirror] = struct{}{}
		}
		if n == "Aggregate" {
			for _, name := range t.names {
				if t.entries[name].Module == AggregationModule {
					selected[name] = struct{}{}
				}
			}
		}
	}

	roots := make([]string, 0, len(selected))
	for n := range selected {
		roots = append(roots, n)
	}
	for _, n := range roots {
		t.addDeps(n, selected)
	}
	return selected
}

func (t *Table) addDeps(name string, selected map[string]struct{}) {
	e, ok := t.entries[name]
	if !ok {
		return
	}
	for _, dep := range e.Deps {
		if _, done := selected[dep]; done {
			continue
		}
		selected[dep] = struct{}{}
		t.addDeps(dep, selected)
	}
}

// Suggest returns up to MaxSuggestions known names similar to name.
func (t *Table) Suggest(name string) []string {
	if t.suggester == nil {
		return nil
	}
	return t.suggester.Suggest(name, MaxSuggestions)
}

// Entries maps each requested name that exists to its reference text.
// Unknown names are absent.
func (r *LookupResult) Entries() map[string]string {
	out := make(map[string]string, len(r.Items))
	for _, item := range r.Items {
		if item.Present {
			out[item.Name] = item.Entry.Text()
		}
	}
	return out
}

// Missing lists the requested names that are not in the table.
func (r *LookupResult) Missing() []string {
	var out []string
	for _, item := range r.Items {
		if !item.Present {
			out = append(out, item.Name)
		}
	}
	return out
}

// Names returns every selected entry name, sorted.
func (r *LookupResult) Names() []string {
	return r.names
}

// Text renders the selected entries, followed by a note for unknown names.
func (r *LookupResult) Text() string {
	text := r.table.Format(r.names)
	missing := r.Missing()
	if len(missing) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\nUnknown names (not part of the Tecton SDK reference):")
	for _, item := range r.Items {
		if item.Present {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(item.Name)
		if len(item.Suggestions) > 0 {
			b.WriteString(" (did you mean: ")
			b.WriteString(strings.Join(item.Suggestions, ", "))
			b.WriteString(")")
		}
	}
	return b.String()
}
