// Package clipboard builds the HTML clipboard payload that turns a dragged
// data node into a mapped content region when dropped into a document.
package clipboard

import (
	"fmt"
	"strings"

	"github.com/b/mappane/pkg/mapping"
)

// Offsets are byte positions inside the payload, as declared in its header.
type Offsets struct {
	StartHTML     int
	EndHTML       int
	StartFragment int
	EndFragment   int
}

const header = "Version: 1.0\r\n" +
	"StartHTML: %06d\r\n" +
	"EndHTML: %06d\r\n" +
	"StartFragment: %06d\r\n" +
	"EndFragment: %06d\r\n"

const htmlPrefix = `<html xmlns:o="urn:schemas-microsoft-com:office:office"
xmlns:w="urn:schemas-microsoft-com:office:word"
xmlns:m="http://schemas.microsoft.com/office/2004/12/omml"
xmlns="http://www.w3.org/TR/REC-html40">

<head>
<meta http-equiv=Content-Type content="text/html; charset=utf-8">
<meta name=ProgId content=Word.Document>
<meta name=Generator content="Microsoft Word 12">
<meta name=Originator content="Microsoft Word 12">`

const htmlStyles = `<style>
<!--
p.MsoNormal, li.MsoNormal, div.MsoNormal
{margin-top:0in;
margin-right:0in;
margin-bottom:10.0pt;
margin-left:0in;
line-height:115%;
font-size:11.0pt;
font-family:"Calibri","sans-serif";}
span.MsoPlaceholderText
{mso-style-noshow:yes;
mso-style-priority:99;
color:gray;}
-->
</style>
</head>

<body>
<!--StartFragment-->`

const htmlSuffix = `<!--EndFragment--></body></html>`

// Fragment returns the region markup carried by the payload.
func Fragment(xpath, prefixMap, storeID string, typ mapping.Type, placeholder string) string {
	var b strings.Builder
	b.WriteString(`<w:Sdt PrefixMappings="`)
	b.WriteString(prefixMap)
	b.WriteString(`" Xpath="`)
	b.WriteString(xpath)
	b.WriteString(`" ShowingPlcHdr="t" `)
	b.WriteString(typ.Attributes())
	b.WriteString(` StoreItemID="`)
	b.WriteString(ConvertStoreID(storeID))
	b.WriteString(`"><p class='MsoNormal'><span lang=X-NONE><w:sdtPr></w:sdtPr></span><span class='MsoPlaceholderText'>`)
	b.WriteString(placeholder)
	b.WriteString(`</span></w:Sdt>`)
	return b.String()
}

// GenerateHTML returns the full payload and the offsets written into its header.
func GenerateHTML(xpath, prefixMap, storeID string, typ mapping.Type, placeholder string) (string, Offsets) {
	body := Fragment(xpath, prefixMap, storeID, typ, placeholder)

	// Every field is zero padded to six digits, so the header length is fixed.
	headerLen := len(fmt.Sprintf(header, 0, 0, 0, 0))

	var off Offsets
	off.StartHTML = headerLen
	off.StartFragment = off.StartHTML + len(htmlPrefix) + len(htmlStyles)
	off.EndFragment = off.StartFragment + len(body)
	off.EndHTML = off.EndFragment + len(htmlSuffix)

	var b strings.Builder
	b.Grow(off.EndHTML)
	fmt.Fprintf(&b, header, off.StartHTML, off.EndHTML, off.StartFragment, off.EndFragment)
	b.WriteString(htmlPrefix)
	b.WriteString(htmlStyles)
	b.WriteString(body)
	b.WriteString(htmlSuffix)
	return b.String(), off
}

// ConvertStoreID rewrites a braced store ID ({GUID}) into the X_GUID form
// the HTML importer expects.
func ConvertStoreID(id string) string {
	id = strings.ReplaceAll(id, "{", "X_")
	return strings.ReplaceAll(id, "}", "")
}
