package importer

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"essay.txt":       KindText,
		"NOTES.MD":        KindMarkdown,
		"page.htm":        KindHTML,
		"report.docx":     KindDocx,
		"scan.pdf":        KindPDF,
		"dir/a.markdown":  KindMarkdown,
		"archive/old.TXT": KindText,
	}
	for path, want := range cases {
		got, ok := KindOf(path)
		if !ok || got != want {
			t.Errorf("KindOf(%q) = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := KindOf("image.png"); ok {
		t.Error("png should not be supported")
	}
}

func TestUploadName(t *testing.T) {
	cases := map[string]string{
		"/tmp/essay.txt":      "essay.txt",
		"docs/Report.docx":    "Report.txt",
		"notes.md":            "notes.txt",
		"Mixed.Case.TXT":      "Mixed.Case.TXT",
		"week 3/reading.html": "reading.txt",
	}
	for in, want := range cases {
		if got := UploadName(in); got != want {
			t.Errorf("UploadName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.txt")
	writeFile(t, path, "Line one.\nLine two.\n")

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Name != "essay.txt" || doc.Kind != KindText {
		t.Errorf("unexpected document %+v", doc)
	}
	if string(doc.Content) != "Line one.\nLine two.\n" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestLoad_Markdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	writeFile(t, path, "# My Essay\n\nThis is **important** text.\n\n- first\n- second\n")

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	text := string(doc.Content)
	for _, want := range []string{"My Essay", "This is important text.", "first", "second"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}
	if strings.ContainsAny(text, "#*<") {
		t.Errorf("markup left in %q", text)
	}
	if doc.Name != "notes.txt" {
		t.Errorf("name = %q", doc.Name)
	}
}

func TestLoad_HTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	writeFile(t, path, "<html><body><h1>Title</h1><p>Body &amp; more.</p><script>x()</script></body></html>")

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := string(doc.Content); got != "Title\nBody & more.\n" {
		t.Errorf("content = %q", got)
	}
}

func TestLoad_Docx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")

	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText("First paragraph.")
	w.AddParagraph().AddText("Second paragraph.")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := w.WriteTo(f); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := string(doc.Content); got != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("content = %q", got)
	}
	if doc.Name != "report.txt" || doc.Kind != KindDocx {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "image.png")); err == nil {
		t.Error("expected error for unsupported type")
	}
	if _, err := Load(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}

	broken := filepath.Join(dir, "broken.pdf")
	writeFile(t, broken, "not a pdf")
	if _, err := Load(broken); err == nil {
		t.Error("expected error for corrupt pdf")
	}

	badDocx := filepath.Join(dir, "broken.docx")
	writeFile(t, badDocx, "not a zip")
	if _, err := Load(badDocx); err == nil {
		t.Error("expected error for corrupt docx")
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "b.md"), "b")
	writeFile(t, filepath.Join(dir, "skip.png"), "png")
	writeFile(t, filepath.Join(dir, "week1", "c.txt"), "c")
	writeFile(t, filepath.Join(dir, "week1", "deep", "d.docx"), "d")

	got, err := Expand([]string{filepath.Join(dir, "**", "*.txt")})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "week1", "c.txt")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("glob: got %v, want %v", got, want)
	}

	got, err = Expand([]string{filepath.Join(dir, "week1"), filepath.Join(dir, "week1", "c.txt"), "plain.txt"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want = []string{
		filepath.Join(dir, "week1", "c.txt"),
		filepath.Join(dir, "week1", "deep", "d.docx"),
		"plain.txt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dir: got %v, want %v", got, want)
	}

	if _, err := Expand([]string{filepath.Join(dir, "[")}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
