package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// zipOf builds an archive from name/content pairs, in order.
func zipOf(t *testing.T, entries ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for i := 0; i+1 < len(entries); i += 2 {
		fw, err := w.Create(entries[i])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(entries[i+1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func wordBody(text string) string {
	return `<w:document><w:body><w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p></w:body></w:document>`
}

func slide(text string) string {
	return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestExtractBytes(t *testing.T) {
	contentTypes := func(attrs string) string {
		return `<Types><Override ` + attrs + `/></Types>`
	}
	tests := []struct {
		name    string
		ext     string
		content []byte
		want    string
	}{
		{"plain", ".txt", []byte("Rents rose 12%\nin Lisbon"), "Rents rose 12%\nin Lisbon"},
		{"markdown utf8", ".md", []byte("caf\xc3\xa9 prices"), "café prices"},
		{"invalid utf8", ".rst", []byte("share\x80of income"), "share\uFFFDof income"},
		{"csv", ".CSV", []byte("age,share\n25-34,41%"), "age,share\n25-34,41%"},
		{"docx default body", ".docx", zipOf(t, "word/document.xml", wordBody("Young renters spend more")), "Young renters spend more"},
		{
			"docx body from content types", ".docx",
			zipOf(t,
				"[Content_Types].xml", contentTypes(`PartName="/word/document2.xml" ContentType="`+docxMainContentType+`"`),
				"word/document2.xml", wordBody("Body in document2")),
			"Body in document2",
		},
		{
			"docx content type first", ".docx",
			zipOf(t,
				"[Content_Types].xml", contentTypes(`ContentType="`+docxMainContentType+`" PartName="/word/document3.xml"`),
				"word/document3.xml", wordBody("Reversed attributes")),
			"Reversed attributes",
		},
		{
			"pptx slide order", ".pptx",
			zipOf(t,
				"ppt/slides/slide10.xml", slide("Tenth"),
				"ppt/slides/slide2.xml", slide("Second"),
				"ppt/slides/slide1.xml", slide("First")),
			"First Second Tenth",
		},
		{"pptx without slides", ".pptx", zipOf(t, "docProps/core.xml", "<x/>"), ""},
		{
			"odp paragraphs then headings", ".odp",
			zipOf(t, "content.xml", `<office:body><text:h>Key findings</text:h><text:p>Wages lag rents</text:p></office:body>`),
			"Wages lag rents Key findings",
		},
		{
			"ods cells", ".ods",
			zipOf(t, "content.xml", `<table:table-row><table:table-cell><text:p>18-24</text:p></table:table-cell><table:table-cell><text:span>37%</text:span></table:table-cell></table:table-row>`),
			"18-24 37%",
		},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_errors(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name    string
		ext     string
		content []byte
	}{
		{"pptx not a zip", ".pptx", []byte("not a zip")},
		{"docx body missing", ".docx", zipOf(t, "other.xml", "<x/>")},
		{"odp content missing", ".odp", zipOf(t, "other.xml", "<x/>")},
		{"ods content missing", ".ods", zipOf(t, "other.xml", "<x/>")},
		{"pdf garbage", ".pdf", []byte("%PDF-broken")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.ExtractBytes(tt.content, tt.ext); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExtract_unsupportedFormat(t *testing.T) {
	e := NewExtractor()
	_, err := e.ExtractBytes([]byte("raw"), ".xyz")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ExtractBytes(.xyz) err = %v, want ErrUnsupportedFormat", err)
	}
	_, err = e.Extract("/nonexistent/report.bin")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Extract(.bin) err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract("/nonexistent/path/report.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtract_excelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.xlsx")
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Age group")
	_ = f.SetCellValue("Sheet1", "B1", "Rent share")
	_ = f.SetCellValue("Sheet1", "A2", "25-34")
	_ = f.SetCellValue("Sheet1", "B2", "41%")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = f.Close()

	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "Sheet: Sheet1\nAge group\tRent share\n25-34\t41%"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtract_pptxFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.PPTX")
	if err := os.WriteFile(path, zipOf(t, "ppt/slides/slide1.xml", slide("From file")), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "From file" {
		t.Errorf("got %q", got)
	}
}

func TestSupportedAndExtensions(t *testing.T) {
	for _, p := range []string{"a.pdf", "b.DOCX", "c.xlsx", "d.md"} {
		if !Supported(p) {
			t.Errorf("Supported(%q) = false", p)
		}
	}
	for _, p := range []string{"a.exe", "noext", "b.odt"} {
		if Supported(p) {
			t.Errorf("Supported(%q) = true", p)
		}
	}
	exts := Extensions()
	if len(exts) != len(readers) {
		t.Fatalf("Extensions() = %v", exts)
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Errorf("Extensions() not sorted: %v", exts)
		}
	}
}
