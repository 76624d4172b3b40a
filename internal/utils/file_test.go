package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		source, suffix, want string
	}{
		{"shoe.png", "", "shoe.png"},
		{"shoe.png", "-optimg", "shoe-optimg.png"},
		{"my.product.JPG", "-optimg", "my.product-optimg.JPG"},
		{"noext", "", "noext.jpg"},
		{"noext", "-optimg", "noext-optimg.jpg"},
		{"dir/sub/bag.webp", "", "bag.webp"},
	}

	for _, test := range tests {
		if got := OutputFilename(test.source, test.suffix); got != test.want {
			t.Errorf("OutputFilename(%q, %q) = %q, expected %q", test.source, test.suffix, got, test.want)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.JPEG", "b.png", "c.webp", "d.tif"} {
		if !IsImageFile(name) {
			t.Errorf("%s should be an image", name)
		}
	}
	for _, name := range []string{"a.txt", "b", "c.pdf"} {
		if IsImageFile(name) {
			t.Errorf("%s should not be an image", name)
		}
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.jpg", "notes.txt", filepath.Join("sub", "c.webp")} {
		p := filepath.Join(dir, name)
		os.MkdirAll(filepath.Dir(p), 0o755)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ExpandInputs([]string{"first.png", dir, "https://example.com/z.png"})
	if err != nil {
		t.Fatalf("ExpandInputs failed: %v", err)
	}
	want := []string{
		"first.png",
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "sub", "c.webp"),
		"https://example.com/z.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandInputs = %v, expected %v", got, want)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(" a/b:c?.png. "); got != "a_b_c_.png" {
		t.Errorf("Unexpected %q", got)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KB",
		5 << 20: "5.0 MB",
	}
	for size, want := range tests {
		if got := FormatFileSize(size); got != want {
			t.Errorf("FormatFileSize(%d) = %s, expected %s", size, got, want)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "x", "y")
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if !DirExists(dir) {
		t.Error("directory not created")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	if FileExists(p) {
		t.Error("missing file reported as existing")
	}
	os.WriteFile(p, []byte("x"), 0o644)
	if !FileExists(p) {
		t.Error("file not found")
	}
	if FileExists(dir) {
		t.Error("directory reported as file")
	}
}
