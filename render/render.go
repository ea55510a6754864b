// Package render turns backend payloads into page nodes and executes the page
// templates. All text passes through html/template, so values coming from the
// backend or the user are escaped before they reach the page.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/giygas/medicaments-lookup/apiclient"
	"github.com/giygas/medicaments-lookup/logging"
	"github.com/giygas/medicaments-lookup/ui"
)

// MaxEquivalents caps the suggestion pills
const MaxEquivalents = 6

// Placeholder texts
const (
	NoResults         = "No results"
	NoEquivalents     = "No equivalents found"
	NoInventory       = "No items"
	InventoryLoadFail = "Could not load inventory"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))

// RenderMedicines replaces the children of c with one row per item, or a
// single placeholder without controls when items is empty
func RenderMedicines(c *ui.Container, items []apiclient.MedicineResult) {
	if len(items) == 0 {
		c.Replace([]ui.Node{placeholder(ui.NodePlaceholder, NoResults)})
		return
	}

	nodes := make([]ui.Node, 0, len(items))
	for _, m := range items {
		n := ui.Node{
			Kind:   ui.NodeResult,
			Title:  firstNonEmpty(m.BrandName, m.GenericName, "Medicine"),
			Detail: medicineDetail(m),
			Tag:    stockTag(m),
		}
		n.Reserve = &ui.ReservationContext{Pharmacy: n.Title, Stock: n.Tag}
		n.HTML = fragment("result", n)
		nodes = append(nodes, n)
	}
	c.Replace(nodes)
}

// RenderEquivalents replaces the children of c with at most MaxEquivalents
// pills linking back to the search, or one disabled pill when there are none.
// Items without a name are skipped and do not count towards the cap.
// Pills are built from items only; base is the medicine the backend matched.
func RenderEquivalents(c *ui.Container, base *apiclient.MedicineResult, items []apiclient.MedicineResult) {
	nodes := make([]ui.Node, 0, MaxEquivalents)
	for _, e := range items {
		if len(nodes) == MaxEquivalents {
			break
		}
		label := PillLabel(e)
		if label == "" {
			continue
		}
		n := ui.Node{
			Kind:  ui.NodePill,
			Title: label,
			Href:  "/search?q=" + url.QueryEscape(label),
		}
		n.HTML = fragment("pill", n)
		nodes = append(nodes, n)
	}

	if len(nodes) == 0 {
		n := ui.Node{Kind: ui.NodePill, Title: NoEquivalents, Disabled: true}
		n.HTML = fragment("pill-disabled", n)
		nodes = append(nodes, n)
	}
	if base != nil {
		logging.Debug("Rendered equivalents", "base", firstNonEmpty(base.BrandName, base.GenericName), "pills", len(nodes))
	}
	c.Replace(nodes)
}

// RenderInventory replaces the children of c with inventory rows. A load
// error renders a single error row instead.
func RenderInventory(c *ui.Container, items []apiclient.InventoryItem, err error) {
	if err != nil {
		c.Replace([]ui.Node{placeholder(ui.NodeErrorRow, InventoryLoadFail)})
		return
	}
	if len(items) == 0 {
		c.Replace([]ui.Node{placeholder(ui.NodeErrorRow, NoInventory)})
		return
	}

	nodes := make([]ui.Node, 0, len(items))
	for _, it := range items {
		n := ui.Node{
			Kind:   ui.NodeInventoryRow,
			Title:  firstNonEmpty(it.BrandName, it.GenericName, "Medicine"),
			Detail: joinNonEmpty(it.GenericName, it.Strength),
			Tag:    inventoryTag(it),
		}
		n.HTML = fragment("inventory", n)
		nodes = append(nodes, n)
	}
	c.Replace(nodes)
}

// PillLabel is "<brandName or genericName>[ <strength>]"
func PillLabel(m apiclient.MedicineResult) string {
	name := firstNonEmpty(m.BrandName, m.GenericName)
	if name == "" {
		return ""
	}
	if m.Strength != "" {
		return name + " " + m.Strength
	}
	return name
}

// FormatPrice prints a price the shortest way, 25 as "25" and 25.5 as "25.5"
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func medicineDetail(m apiclient.MedicineResult) string {
	form := ""
	if m.Form != "" {
		form = "• " + m.Form
	}
	return joinNonEmpty(m.GenericName, m.Strength, form)
}

func stockTag(m apiclient.MedicineResult) string {
	tag := "Branded"
	if m.IsGeneric {
		tag = "Generic"
	}
	if m.MRP != nil {
		tag += " • ₹" + FormatPrice(*m.MRP)
	}
	return tag
}

func inventoryTag(it apiclient.InventoryItem) string {
	tag := fmt.Sprintf("Qty %d", it.Quantity)
	if it.Expiry != "" {
		tag += " • exp " + it.Expiry
	}
	return tag
}

func placeholder(kind ui.NodeKind, text string) ui.Node {
	n := ui.Node{Kind: kind, Title: text, Disabled: true}
	name := "placeholder"
	if kind == ui.NodeErrorRow {
		name = "error"
	}
	n.HTML = fragment(name, n)
	return n
}

// fragment executes one node template. The templates are parsed at init and
// only read node fields, so a failure here is a programming error.
func fragment(name string, n ui.Node) template.HTML {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, n); err != nil {
		logging.Error("Failed to render fragment", "template", name, "error", err)
		return ""
	}
	return template.HTML(buf.String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Page is the data the index and admin templates read
type Page struct {
	Title       string
	Alert       string
	Query       string
	FilterTerm  string
	User        string
	Results     []ui.Node
	Suggestions []ui.Node
	Inventory   []ui.Node
	Modal       *ui.ModalView
	Toasts      []ui.Toast
}

// PageFor snapshots s into a Page. The pending alert is consumed.
func PageFor(s *ui.State, title, filterTerm string) Page {
	p := Page{
		Title:       title,
		Alert:       s.TakeAlert(),
		Query:       s.Query(),
		FilterTerm:  filterTerm,
		User:        s.User(),
		Results:     s.Results().Visible(),
		Suggestions: s.Suggestions().Visible(),
		Inventory:   s.Inventory().Visible(),
		Toasts:      s.Toasts(),
	}
	if m := s.Modal(); m != nil {
		v := m.View()
		p.Modal = &v
	}
	return p
}

// Index writes the search page
func Index(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "index", p)
}

// Admin writes the admin page
func Admin(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "admin", p)
}
