package parser

import (
	"strings"
	"testing"
)

func TestTextParser_KeepsLines(t *testing.T) {
	input := "1 Introduction\nFirst line.\n\nSecond paragraph.   \r\n2 Methods\nWe did X."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	want := "1 Introduction\nFirst line.\n\nSecond paragraph.\n2 Methods\nWe did X."
	if doc.Pages[0] != want {
		t.Errorf("expected %q, got %q", want, doc.Pages[0])
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", doc.Title)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
	if doc.HasText() {
		t.Error("expected HasText=false for empty input")
	}
}

func TestTextParser_WhitespaceOnly(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("   \n\t\n"), "blank.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.HasText() {
		t.Error("expected HasText=false for whitespace-only input")
	}
}

func TestCSVParser_RowsAsLines(t *testing.T) {
	input := "name, role,notes\nAda,engineer,\nGrace,admiral,compilers\n"
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(input), "people.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "people" {
		t.Errorf("expected title %q, got %q", "people", doc.Title)
	}
	want := "name: Ada, role: engineer\nname: Grace, role: admiral, notes: compilers"
	if len(doc.Pages) != 1 || doc.Pages[0] != want {
		t.Fatalf("expected %q, got %q", want, doc.Pages)
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader("a,b,c\n"), "h.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.HasText() {
		t.Errorf("expected no text, got %q", doc.Pages)
	}
}

func TestHTMLParser_BlocksAsLines(t *testing.T) {
	input := `<html><head><title>Paper Title</title><style>p{}</style></head>
<body>
<nav>Home | About</nav>
<h2>1 Introduction</h2>
<p>Hello
   <b>world</b>.</p>
<script>alert(1)</script>
<h2>2 Methods</h2>
<ul><li>We did X.</li><li>Then Y.</li></ul>
</body></html>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "paper.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Paper Title" {
		t.Errorf("expected title %q, got %q", "Paper Title", doc.Title)
	}
	want := "1 Introduction\nHello world.\n2 Methods\nWe did X.\nThen Y."
	if len(doc.Pages) != 1 || doc.Pages[0] != want {
		t.Fatalf("expected %q, got %q", want, doc.Pages)
	}
}

func TestHTMLParser_TablesAndBreaks(t *testing.T) {
	input := `<body><aside>Related</aside>
<p>Line one<br>Line <i>two</i></p>
<table><caption>Table 1</caption>
<tr><th>Model</th><th>Score</th></tr>
<tr><td>baseline</td><td> 0.71 </td></tr>
</table></body>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "tables.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "tables" {
		t.Errorf("expected filename title, got %q", doc.Title)
	}
	want := "Line one\nLine two\nTable 1\nModel | Score\nbaseline | 0.71"
	if len(doc.Pages) != 1 || doc.Pages[0] != want {
		t.Fatalf("expected %q, got %q", want, doc.Pages)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"a.txt", false},
		{"a.MD", false},
		{"a.markdown", false},
		{"a.csv", false},
		{"a.htm", false},
		{"a.pdf", false},
		{"a.docx", false},
		{"a.exe", true},
		{"noext", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ForFile(tt.name, Options{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ForFile(%q) err=%v, wantErr=%v", tt.name, err, tt.wantErr)
			}
			if got := IsSupportedExtension(tt.name); got == tt.wantErr {
				t.Errorf("IsSupportedExtension(%q)=%v", tt.name, got)
			}
		})
	}
}

func TestPDFParser_RejectsGarbage(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(strings.NewReader("this is not a pdf"), "broken.pdf")
	if err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestExtensionsSorted(t *testing.T) {
	want := []string{".csv", ".docx", ".htm", ".html", ".markdown", ".md", ".pdf", ".txt"}
	got := Extensions()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Extensions() = %v, want %v", got, want)
	}
}
