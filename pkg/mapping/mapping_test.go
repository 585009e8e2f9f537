package mapping

import "testing"

func TestPlaceholdersFor(t *testing.T) {
	p := DefaultPlaceholders()
	tests := []struct {
		typ  Type
		want string
	}{
		{Text, "Click here to enter text."},
		{DropDown, "Choose an item."},
		{Picture, ""},
		{Date, "Click here to enter a date."},
		{Type(42), ""},
	}
	for _, tt := range tests {
		if got := p.For(tt.typ); got != tt.want {
			t.Errorf("For(%v) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestPlaceholdersWithDefaultsKeepsOverrides(t *testing.T) {
	p := Placeholders{Text: "Type here"}.WithDefaults()
	if p.Text != "Type here" {
		t.Fatalf("override lost: %q", p.Text)
	}
	if p.DropDown != DefaultPlaceholders().DropDown {
		t.Fatalf("dropdown default not applied: %q", p.DropDown)
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{Text, DropDown, Picture, Date} {
		got, err := ParseType(typ.String())
		if err != nil {
			t.Fatalf("ParseType(%q): %v", typ.String(), err)
		}
		if got != typ {
			t.Errorf("ParseType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
	if got, err := ParseType(" DropDown "); err != nil || got != DropDown {
		t.Errorf("ParseType should trim and ignore case, got %v, %v", got, err)
	}
	if _, err := ParseType("checkbox"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestAttributes(t *testing.T) {
	if got := Date.Attributes(); got != `Calendar="t" MapToDateTime="t"` {
		t.Errorf("Date.Attributes() = %q", got)
	}
	if got := Type(-1).Attributes(); got != "" {
		t.Errorf("unknown type should have no attributes, got %q", got)
	}
}
