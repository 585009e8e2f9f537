// Package mapping describes the kinds of content regions that can be bound
// to a data node, and the placeholder text each kind shows while empty.
package mapping

import (
	"fmt"
	"strings"
)

// Type identifies the kind of region a data node is mapped into.
type Type int

const (
	Text Type = iota
	DropDown
	Picture
	Date
)

var typeNames = map[Type]string{
	Text:     "text",
	DropDown: "dropdown",
	Picture:  "picture",
	Date:     "date",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType accepts the names produced by Type.String, case-insensitively.
func ParseType(s string) (Type, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == want {
			return t, nil
		}
	}
	return Text, fmt.Errorf("unknown mapping type %q", s)
}

// Placeholders holds the prompt text shown in an empty region.
// Picture regions never show text.
type Placeholders struct {
	Text     string `yaml:"text"`
	DropDown string `yaml:"dropdown"`
	Date     string `yaml:"date"`
}

// DefaultPlaceholders returns the stock prompts.
func DefaultPlaceholders() Placeholders {
	return Placeholders{
		Text:     "Click here to enter text.",
		DropDown: "Choose an item.",
		Date:     "Click here to enter a date.",
	}
}

// For returns the placeholder text for a region of type t.
func (p Placeholders) For(t Type) string {
	switch t {
	case Text:
		return p.Text
	case DropDown:
		return p.DropDown
	case Picture:
		return ""
	case Date:
		return p.Date
	}
	return ""
}

// WithDefaults fills empty prompts from DefaultPlaceholders.
func (p Placeholders) WithDefaults() Placeholders {
	def := DefaultPlaceholders()
	if p.Text == "" {
		p.Text = def.Text
	}
	if p.DropDown == "" {
		p.DropDown = def.DropDown
	}
	if p.Date == "" {
		p.Date = def.Date
	}
	return p
}

// Attributes returns the markup attributes that declare a region of type t
// inside a drag-and-drop payload.
func (t Type) Attributes() string {
	switch t {
	case Text:
		return `Text="t"`
	case DropDown:
		return `DropDown="t"`
	case Picture:
		return `DisplayAsPicture="t"`
	case Date:
		return `Calendar="t" MapToDateTime="t"`
	}
	return ""
}
