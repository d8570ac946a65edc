// Package workflow holds the per-module status graphs and the helpers that walk
// approval flows. Graph shape is structural: tenants can relabel steps and
// change who approves them, but they cannot add or remove transitions.
package workflow

import (
	"fmt"
	"sort"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// Graph is the directed status graph of one module.
type Graph struct {
	Module models.ModuleKey

	// Edges maps a status to the statuses it may move to.
	Edges map[models.Status][]models.Status

	// Canonical is the happy path used for progress indicators.
	Canonical []models.Status

	// Forward gives the canonical forward step for statuses off the happy path.
	Forward map[models.Status]models.Status

	// Anchors maps an off-path status to the canonical status it reports
	// progress as.
	Anchors map[models.Status]models.Status
}

// Table is an immutable set of module graphs.
type Table struct {
	graphs map[models.ModuleKey]Graph
}

// NewTable builds a table from graphs, rejecting any graph that violates the
// structural invariants.
func NewTable(graphs ...Graph) (*Table, error) {
	t := &Table{graphs: make(map[models.ModuleKey]Graph, len(graphs))}
	for _, g := range graphs {
		if err := Validate(g); err != nil {
			return nil, err
		}
		t.graphs[g.Module] = g
	}
	return t, nil
}

var defaultTable = mustTable(DefaultGraphs()...)

func mustTable(graphs ...Graph) *Table {
	t, err := NewTable(graphs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the built-in table shared by every tenant.
func Default() *Table { return defaultTable }

// Graph returns the graph for module.
func (t *Table) Graph(module models.ModuleKey) (Graph, bool) {
	g, ok := t.graphs[module]
	return g, ok
}

// IsLegalTransition reports whether from -> to is an edge of the module graph.
// Unknown modules and statuses are simply not legal.
func (t *Table) IsLegalTransition(module models.ModuleKey, from, to models.Status) bool {
	g, ok := t.graphs[module]
	if !ok {
		return false
	}
	for _, next := range g.Edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the legal targets from status, sorted.
func (t *Table) NextStatuses(module models.ModuleKey, status models.Status) []models.Status {
	g, ok := t.graphs[module]
	if !ok {
		return nil
	}
	out := append([]models.Status(nil), g.Edges[status]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTerminal reports whether status is known to the module and has no exits.
func (t *Table) IsTerminal(module models.ModuleKey, status models.Status) bool {
	g, ok := t.graphs[module]
	if !ok {
		return false
	}
	_, known := g.statuses()[status]
	return known && len(g.Edges[status]) == 0
}

// DefaultNext returns the single canonical forward step from status.
func (t *Table) DefaultNext(module models.ModuleKey, status models.Status) (models.Status, bool) {
	g, ok := t.graphs[module]
	if !ok {
		return "", false
	}
	if i := indexOf(g.Canonical, status); i >= 0 {
		if i+1 < len(g.Canonical) {
			return g.Canonical[i+1], true
		}
		return "", false
	}
	next, ok := g.Forward[status]
	return next, ok
}

// Progress returns the percentage complete for status along the canonical
// path: the 1-based position of the status divided by the path length.
// Off-path statuses report the progress of their anchor. Terminal off-path
// statuses such as cancelled have no progress.
func (t *Table) Progress(module models.ModuleKey, status models.Status) (int, bool) {
	g, ok := t.graphs[module]
	if !ok || len(g.Canonical) == 0 {
		return 0, false
	}
	if anchor, ok := g.Anchors[status]; ok {
		status = anchor
	}
	i := indexOf(g.Canonical, status)
	if i < 0 {
		return 0, false
	}
	return (i + 1) * 100 / len(g.Canonical), true
}

func (g Graph) statuses() map[models.Status]struct{} {
	set := make(map[models.Status]struct{})
	for from, tos := range g.Edges {
		set[from] = struct{}{}
		for _, to := range tos {
			set[to] = struct{}{}
		}
	}
	for _, s := range g.Canonical {
		set[s] = struct{}{}
	}
	return set
}

// Statuses returns every status the graph mentions, sorted.
func (g Graph) Statuses() []models.Status {
	set := g.statuses()
	out := make([]models.Status, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks that every non-terminal status has an exit, terminal
// statuses have none, the canonical path walks legal edges, and forward and
// anchor entries point at known statuses.
func Validate(g Graph) error {
	if !g.Module.Valid() {
		return fmt.Errorf("graph: unknown module %q", g.Module)
	}
	known := g.statuses()
	for s := range known {
		exits := len(g.Edges[s])
		switch {
		case s.IsTerminal() && exits > 0:
			return fmt.Errorf("graph %s: terminal status %q has %d outgoing edges", g.Module, s, exits)
		case !s.IsTerminal() && exits == 0:
			return fmt.Errorf("graph %s: status %q has no outgoing edge", g.Module, s)
		}
		for _, to := range g.Edges[s] {
			if to == s {
				return fmt.Errorf("graph %s: self-loop on %q", g.Module, s)
			}
		}
	}
	for i := 0; i+1 < len(g.Canonical); i++ {
		if !edge(g, g.Canonical[i], g.Canonical[i+1]) {
			return fmt.Errorf("graph %s: canonical step %q -> %q is not an edge", g.Module, g.Canonical[i], g.Canonical[i+1])
		}
	}
	for from, to := range g.Forward {
		if !edge(g, from, to) {
			return fmt.Errorf("graph %s: forward step %q -> %q is not an edge", g.Module, from, to)
		}
	}
	for from, anchor := range g.Anchors {
		if _, ok := known[from]; !ok {
			return fmt.Errorf("graph %s: anchor for unknown status %q", g.Module, from)
		}
		if indexOf(g.Canonical, anchor) < 0 {
			return fmt.Errorf("graph %s: anchor %q is not on the canonical path", g.Module, anchor)
		}
	}
	return nil
}

func edge(g Graph, from, to models.Status) bool {
	for _, s := range g.Edges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func indexOf(path []models.Status, s models.Status) int {
	for i, v := range path {
		if v == s {
			return i
		}
	}
	return -1
}

// IsLegalTransition checks a move against the built-in table.
func IsLegalTransition(module models.ModuleKey, from, to models.Status) bool {
	return defaultTable.IsLegalTransition(module, from, to)
}

// DefaultNext returns the canonical forward step from the built-in table.
func DefaultNext(module models.ModuleKey, status models.Status) (models.Status, bool) {
	return defaultTable.DefaultNext(module, status)
}
