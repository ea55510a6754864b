package ui

import (
	"html/template"
	"strings"
	"sync"
)

// NodeKind identifies what a rendered node represents
type NodeKind string

const (
	NodeResult       NodeKind = "result"
	NodePlaceholder  NodeKind = "placeholder"
	NodePill         NodeKind = "pill"
	NodeInventoryRow NodeKind = "inventory"
	NodeErrorRow     NodeKind = "error"
)

// Node is one rendered child of a Container. The text fields are the raw
// values; HTML is the escaped markup that is written to the page.
type Node struct {
	Kind     NodeKind
	Title    string
	Detail   string
	Tag      string
	Href     string
	Reserve  *ReservationContext
	Disabled bool
	Hidden   bool
	HTML     template.HTML
}

// Interactive reports whether the node carries a control the user can act on
func (n Node) Interactive() bool {
	return !n.Disabled && (n.Href != "" || n.Reserve != nil)
}

// Container holds the children of one list on the page
type Container struct {
	mu    sync.RWMutex
	id    string
	nodes []Node
}

// NewContainer creates an empty container identified by id
func NewContainer(id string) *Container {
	return &Container{id: id}
}

// ID returns the element id the container renders under
func (c *Container) ID() string {
	return c.id
}

// Replace swaps all children at once
func (c *Container) Replace(nodes []Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append([]Node(nil), nodes...)
}

// Nodes returns a copy of the current children
func (c *Container) Nodes() []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Node(nil), c.nodes...)
}

// Visible returns the children not hidden by Filter
func (c *Container) Visible() []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		if !n.Hidden {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of children
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// Text is the visible text of the node, as matched by Filter
func (n Node) Text() string {
	return strings.Join(strings.Fields(n.Title+" "+n.Detail+" "+n.Tag), " ")
}

// Filter hides children whose text does not contain term. An empty term
// shows everything. Nothing is fetched; only the rendered rows are inspected.
func (c *Container) Filter(term string) int {
	term = strings.TrimSpace(term)
	c.mu.Lock()
	defer c.mu.Unlock()

	shown := 0
	for i := range c.nodes {
		c.nodes[i].Hidden = term != "" && !ContainsFolded(c.nodes[i].Text(), term)
		if !c.nodes[i].Hidden {
			shown++
		}
	}
	return shown
}
