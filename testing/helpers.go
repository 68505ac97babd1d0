// Package testing provides shared fixtures for wizard tests.
package testing

import (
	"math"
	"sync"
	"time"

	wizard "github.com/rnag/dataclass-wizard-sub001"
)

// SimpleRecord is a flat record exercising rename, alias, and optional
// fields.
type SimpleRecord struct {
	ID    int    `wiz:"id,required"`
	Name  string `wiz:",alias=full_name"`
	Email *string
}

// Profile is a nested record embedded in Account.
type Profile struct {
	Bio  string
	Tags []string
}

// Account exercises nested record conversion.
type Account struct {
	ID      int `wiz:"id,required"`
	Profile Profile
}

// Node is a self-referential record for recursion-guard tests.
type Node struct {
	Value int
	Next  *Node
}

// Status is an enumeration fixture.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBanned   Status = "banned"
)

// Shape is a union fixture with two tagged variants.
type Shape interface {
	Area() float64
}

// Circle is the "circle" variant of Shape.
type Circle struct {
	Radius float64
}

func (c Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

// Square is the "square" variant of Shape.
type Square struct {
	Side float64
}

func (s Square) Area() float64 { return s.Side * s.Side }

// Drawing embeds a union-typed field.
type Drawing struct {
	Name  string
	Shape Shape
}

// Event exercises the temporal rules.
type Event struct {
	Name      string
	CreatedAt time.Time `wiz:",unix"`
	Took      time.Duration
}

var registerOnce sync.Once

// RegisterFixtures installs the enum and union declarations the fixture
// types rely on. Safe to call from any number of tests.
func RegisterFixtures() {
	registerOnce.Do(func() {
		wizard.RegisterEnum[Status](StatusActive, StatusInactive, StatusBanned)
		wizard.RegisterUnion[Shape](
			wizard.Variant[Circle]("circle"),
			wizard.Variant[Square]("square"),
		)
	})
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
