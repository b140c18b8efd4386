// Package testutil holds import guards that keep the yard layers apart: the
// domain stays free of infrastructure and the engine stays free of transport.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// AssertNoTransitiveDependency runs `go list -deps pattern` and fails if any
// dependency matches forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, out, err := transitiveDependencyViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	failIf(t, "forbidden transitive dependency", reason, viols)
}

// AssertNoDirectImports parses the non-test .go files in dir and fails if an
// import matches forbidden. Build tags are not evaluated.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIf(t, "forbidden direct imports", reason, viols)
}

// InternalImportForbidden matches any path containing /internal/.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

// transportPrefixes are the HTTP, socket and broker stacks.
var transportPrefixes = []string{
	"net/http",
	"github.com/gin-gonic/",
	"github.com/gin-contrib/",
	"github.com/gorilla/websocket",
	"github.com/golang-jwt/",
	"github.com/segmentio/kafka-go",
}

// TransportImportForbidden matches the transport stacks and the yard's own
// api and socket packages.
func TransportImportForbidden(path string) bool {
	if strings.HasSuffix(path, "/internal/api") || strings.Contains(path, "/internal/api/") || strings.HasSuffix(path, "/internal/socket") {
		return true
	}
	return slices.ContainsFunc(transportPrefixes, func(p string) bool {
		return path == p || strings.HasPrefix(path, p)
	})
}

// AnyOf matches when one of preds does.
func AnyOf(preds ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

var goListDeps = func(pattern string) ([]byte, error) {
	return exec.Command("go", "list", "-deps", pattern).CombinedOutput()
}

func transitiveDependencyViolations(pattern string, forbidden func(path string) bool) ([]string, []byte, error) {
	out, err := goListDeps(pattern)
	if err != nil {
		return nil, out, err
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" && forbidden(line) {
			viols = append(viols, line)
		}
	}
	return viols, out, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range f.Imports {
			if ip := strings.Trim(imp.Path.Value, `"`); forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIf(t fatalLogger, what, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s (%s):\n%s", what, reason, strings.Join(viols, "\n"))
	}
}
