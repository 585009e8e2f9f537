package clipboard

import (
	"strings"
	"testing"

	"github.com/b/mappane/pkg/mapping"
)

func TestConvertStoreID(t *testing.T) {
	got := ConvertStoreID("{B4F38F7D-C32D-4ADF-94A1-A1ECD73D1373}")
	want := "X_B4F38F7D-C32D-4ADF-94A1-A1ECD73D1373"
	if got != want {
		t.Fatalf("ConvertStoreID() = %q, want %q", got, want)
	}
}

func TestGenerateHTMLOffsets(t *testing.T) {
	html, off := GenerateHTML("/ns0:root[1]/ns0:name[1]", "xmlns:ns0='urn:acme'",
		"{B4F38F7D-C32D-4ADF-94A1-A1ECD73D1373}", mapping.Text, "Click here to enter text.")

	if off.EndHTML != len(html) {
		t.Fatalf("EndHTML = %d, payload length %d", off.EndHTML, len(html))
	}
	if !strings.HasPrefix(html[off.StartHTML:], "<html") {
		t.Fatalf("StartHTML does not point at <html>: %q", html[off.StartHTML:off.StartHTML+10])
	}

	fragment := html[off.StartFragment:off.EndFragment]
	if !strings.HasPrefix(fragment, "<w:Sdt ") || !strings.HasSuffix(fragment, "</w:Sdt>") {
		t.Fatalf("fragment bounds wrong: %q", fragment)
	}
	if !strings.Contains(fragment, `StoreItemID="X_B4F38F7D-C32D-4ADF-94A1-A1ECD73D1373"`) {
		t.Errorf("store ID not converted: %q", fragment)
	}
	if !strings.Contains(fragment, `Text="t"`) {
		t.Errorf("type attributes missing: %q", fragment)
	}
	if !strings.Contains(html, "StartFragment: ") || !strings.Contains(html[:off.StartHTML], "EndFragment: ") {
		t.Errorf("header incomplete: %q", html[:off.StartHTML])
	}
}

func TestGenerateHTMLMultibytePlaceholder(t *testing.T) {
	html, off := GenerateHTML("/a", "", "{X}", mapping.Date, "Datum wählen…")
	if off.EndHTML != len(html) {
		t.Fatalf("offsets must count bytes, EndHTML=%d len=%d", off.EndHTML, len(html))
	}
	if !strings.Contains(html[off.StartFragment:off.EndFragment], "Datum wählen…") {
		t.Error("placeholder missing from fragment")
	}
}
