package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContainerFilterIgnoresCaseAndAccents(t *testing.T) {
	c := NewContainer(ResultsID)
	c.Replace([]Node{
		{Kind: NodeResult, Title: "Paracet", Detail: "Paracétamol 500mg", Tag: "Branded • ₹25"},
		{Kind: NodeResult, Title: "Crocin", Detail: "Paracetamol 650mg", Tag: "Generic"},
		{Kind: NodeResult, Title: "Ibugesic", Detail: "Ibuprofen 400mg", Tag: "Branded"},
	})

	assert.Equal(t, 2, c.Filter("PARACETAMOL"))
	visible := c.Visible()
	assert.Equal(t, "Paracet", visible[0].Title)
	assert.Equal(t, "Crocin", visible[1].Title)

	assert.Equal(t, 1, c.Filter("generic"))
	assert.Equal(t, 3, c.Filter("  "))
	assert.Equal(t, 3, c.Len())
}

func TestContainerReplaceCopies(t *testing.T) {
	c := NewContainer("x")
	nodes := []Node{{Title: "a"}}
	c.Replace(nodes)
	nodes[0].Title = "mutated"

	assert.Equal(t, "a", c.Nodes()[0].Title)
}

func TestFold(t *testing.T) {
	assert.Equal(t, Fold("paracetamol"), Fold("PARACÉTAMOL"))
	assert.True(t, ContainsFolded("Crème Solaire", "creme"))
	assert.False(t, ContainsFolded("Ibuprofen", "para"))
}

func TestStateAlertIsShownOnce(t *testing.T) {
	s := NewState("s1")
	s.Alert("Email is required")

	assert.Equal(t, "Email is required", s.TakeAlert())
	assert.Empty(t, s.TakeAlert())
}

func TestStateTouch(t *testing.T) {
	clock := NewManualClock(epoch)
	s := NewState("s1", WithClock(clock))
	assert.Equal(t, epoch, s.LastSeen())

	clock.Advance(time.Minute)
	s.Touch()
	assert.Equal(t, epoch.Add(time.Minute), s.LastSeen())
}

func TestStateToastTiming(t *testing.T) {
	clock := NewManualClock(epoch)
	s := NewState("s1", WithClock(clock), WithToastTiming(1800*time.Millisecond, 200*time.Millisecond))

	s.Toast("Expired medicine logged. Thank you!")
	clock.Advance(1700 * time.Millisecond)
	assert.False(t, s.Toasts()[0].Hiding)
	clock.Advance(100 * time.Millisecond)
	assert.True(t, s.Toasts()[0].Hiding)

	s.Close()
	assert.Empty(t, s.Toasts())
}

func TestNodeInteractive(t *testing.T) {
	assert.False(t, Node{Kind: NodePlaceholder}.Interactive())
	assert.False(t, Node{Kind: NodePill, Href: "/search?q=x", Disabled: true}.Interactive())
	assert.True(t, Node{Kind: NodePill, Href: "/search?q=x"}.Interactive())
	assert.True(t, Node{Kind: NodeResult, Reserve: &ReservationContext{}}.Interactive())
}
