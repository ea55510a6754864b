package handlers

import (
	"github.com/giygas/medicaments-lookup/ui"
)

// NodeView is the JSON form of a rendered node
type NodeView struct {
	Kind     ui.NodeKind            `json:"kind"`
	Title    string                 `json:"title"`
	Detail   string                 `json:"detail,omitempty"`
	Tag      string                 `json:"tag,omitempty"`
	Href     string                 `json:"href,omitempty"`
	Reserve  *ui.ReservationContext `json:"reserve,omitempty"`
	Disabled bool                   `json:"disabled,omitempty"`
}

// PageView is the JSON form of a session's page state
type PageView struct {
	Query       string        `json:"query"`
	User        string        `json:"user,omitempty"`
	Alert       string        `json:"alert,omitempty"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	Results     []NodeView    `json:"results"`
	Suggestions []NodeView    `json:"suggestions"`
	Inventory   []NodeView    `json:"inventory,omitempty"`
	Modal       *ui.ModalView `json:"modal,omitempty"`
	Toasts      []ui.Toast    `json:"toasts"`
}

// NodeViews converts rendered nodes for JSON output
func NodeViews(nodes []ui.Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodeView{
			Kind:     n.Kind,
			Title:    n.Title,
			Detail:   n.Detail,
			Tag:      n.Tag,
			Href:     n.Href,
			Reserve:  n.Reserve,
			Disabled: n.Disabled,
		})
	}
	return out
}

// pageView snapshots s. The pending alert is consumed.
func pageView(s *ui.State, errorKind string) PageView {
	v := PageView{
		Query:       s.Query(),
		User:        s.User(),
		Alert:       s.TakeAlert(),
		ErrorKind:   errorKind,
		Results:     NodeViews(s.Results().Visible()),
		Suggestions: NodeViews(s.Suggestions().Visible()),
		Inventory:   NodeViews(s.Inventory().Visible()),
		Toasts:      s.Toasts(),
	}
	if v.Toasts == nil {
		v.Toasts = []ui.Toast{}
	}
	if m := s.Modal(); m != nil {
		mv := m.View()
		v.Modal = &mv
	}
	return v
}
