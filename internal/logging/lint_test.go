package logging

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// moduleRoot walks up from this file to the directory holding go.mod.
func moduleRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Unable to get current file path")
	}
	for dir := filepath.Dir(filename); ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("Could not find go.mod to determine project root")
		}
		dir = parent
	}
}

var directLogging = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"fmt.Print*", regexp.MustCompile(`\bfmt\.Print(f|ln)?\s*\(`)},
	{"log.Print*", regexp.MustCompile(`\blog\.(Print|Fatal|Panic)(f|ln)?\s*\(`)},
	{"builtin print", regexp.MustCompile(`(^|[^.\w])print(ln)?\s*\(`)},
}

// TestNoDirectLogging ensures non-test code logs through this package.
// Command output goes to os.Stdout with fmt.Fprint* and is not affected.
func TestNoDirectLogging(t *testing.T) {
	root := moduleRoot(t)

	var violations []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		for i, line := range strings.Split(string(data), "\n") {
			code := strings.TrimSpace(line)
			if strings.HasPrefix(code, "//") {
				continue
			}
			for _, rule := range directLogging {
				if rule.pattern.MatchString(code) {
					violations = append(violations, rel+":"+strconv.Itoa(i+1)+": "+rule.name+": "+code)
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Error walking module: %v", err)
	}

	for _, v := range violations {
		t.Errorf("direct logging: %s", v)
	}
	if len(violations) > 0 {
		t.Log("Use logging.InfoWithComponent(), logging.WarnWithComponent(), logging.ErrorWithComponent() instead")
	}
}
