package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "core", "includes"), 0755)
	os.WriteFile(filepath.Join(root, "core", "includes", "bootstrap.inc"), []byte("<?php"), 0644)
	deep := filepath.Join(root, "sites", "multi_one", "files")
	os.MkdirAll(deep, 0755)

	got, ok := FindUp(deep, filepath.Join("core", "includes", "bootstrap.inc"))
	if !ok {
		t.Fatal("FindUp should locate the marker from a nested directory")
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	if _, ok := FindUp(deep, "does/not/exist.inc"); ok {
		t.Error("FindUp should fail when no ancestor has the marker")
	}
}

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.php")
	os.WriteFile(file, []byte("<?php"), 0644)

	if !IsDir(dir) {
		t.Errorf("Expected %s to be a directory", dir)
	}
	if IsDir(file) {
		t.Errorf("Expected %s not to be a directory", file)
	}
	if !Exists(file) {
		t.Errorf("Expected %s to exist", file)
	}
}
