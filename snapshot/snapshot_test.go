// Package snapshot_test provides golden snapshot tests for linked mixin
// modules.
//
// Each fixture is a small mixin graph compiled through the whole pipeline.
// The disassembly of the result is compared to the golden file stored in
// testdata/golden/<fixture>.spvasm.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mixer"
	"github.com/gogpu/mixer/ast"
	"github.com/gogpu/mixer/mixin"
	"github.com/gogpu/mixer/passes"
	"github.com/gogpu/mixer/spirv"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// fixture is one compile request against its own set of mixins.
type fixture struct {
	name    string
	shaders []*ast.Shader
	source  mixin.ShaderSource
}

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func float(v string) *ast.Literal { return &ast.Literal{Kind: ast.LiteralFloat, Value: v} }

func bin(op string, l, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Op: op, Left: l, Right: r}
}

func typ(name string) ast.Type { return ast.Type{Name: name} }

func fixtures() []fixture {
	target := &ast.Shader{
		Name: "Target",
		Members: []*ast.VarDecl{
			{Name: "color", Type: typ("float4"), Storage: ast.StorageOut},
		},
	}
	computeColor := &ast.Shader{
		Name: "ComputeColor",
		Functions: []*ast.FunctionDecl{{
			Name:       "Compute",
			ReturnType: typ("float"),
			Body:       []ast.Stmt{&ast.ReturnStmt{Value: float("1.0")}},
		}},
	}
	constant := &ast.Shader{
		Name:  "Constant",
		Bases: []*ast.MixinRef{{Name: "ComputeColor"}},
		Members: []*ast.VarDecl{
			{Name: "value", Type: typ("float"), Storage: ast.StorageStatic, Value: float("0.5")},
		},
		Functions: []*ast.FunctionDecl{{
			Name:       "Scale",
			Params:     []*ast.Param{{Name: "x", Type: typ("float")}},
			ReturnType: typ("float"),
			Body:       []ast.Stmt{&ast.ReturnStmt{Value: bin("*", ident("x"), ident("value"))}},
		}},
	}

	return []fixture{
		{
			name: "inheritance",
			shaders: []*ast.Shader{
				target,
				{
					Name:  "Shade",
					Bases: []*ast.MixinRef{{Name: "Target"}},
					Members: []*ast.VarDecl{
						{Name: "shade", Type: typ("float4"), Storage: ast.StorageOut, Location: 1},
						{Name: "gain", Type: typ("float"), Storage: ast.StorageStatic, Value: float("2.0")},
					},
					Functions: []*ast.FunctionDecl{{
						Name:  "PSMain",
						Stage: gputypes.ShaderStageFragment,
						Body: []ast.Stmt{
							&ast.DeclareStmt{Type: typ("float"), Name: "k", Value: bin("+", ident("gain"), float("1.0"))},
							&ast.AssignStmt{Name: "shade", Op: "*=", Value: ident("k")},
						},
					}},
				},
			},
			source: mixin.ClassReference{Name: "Shade"},
		},
		{
			name: "composition",
			shaders: []*ast.Shader{
				target, computeColor, constant,
				{
					Name:         "Material",
					Bases:        []*ast.MixinRef{{Name: "Target"}},
					Compositions: []*ast.CompositionDecl{{MixinType: "ComputeColor", Name: "diffuse", IsArray: true}},
				},
			},
			source: mixin.NamedMixin{
				Mixins: []mixin.ClassReference{{Name: "Material"}},
				Compositions: map[string]mixin.ShaderSource{
					"diffuse": mixin.CompositionSlot{Sources: []mixin.ShaderSource{
						mixin.ClassReference{Name: "Constant"},
						mixin.ClassReference{Name: "Constant"},
					}},
				},
			},
		},
		{
			name: "generics",
			shaders: []*ast.Shader{{
				Name:     "Dispatch",
				Generics: []*ast.GenericParam{{Type: "float", Name: "Weight"}},
				Members: []*ast.VarDecl{
					{Name: "weight", Type: typ("float"), Storage: ast.StorageStatic, Value: ident("Weight")},
				},
				Functions: []*ast.FunctionDecl{{
					Name:  "CSMain",
					Stage: gputypes.ShaderStageCompute,
					Body: []ast.Stmt{
						&ast.DeclareStmt{Type: typ("float"), Name: "w", Value: bin("*", ident("weight"), ident("Weight"))},
						&ast.AssignStmt{Name: "weight", Op: "=", Value: ident("w")},
					},
				}},
			}},
			source: mixin.ClassReference{Name: "Dispatch", Args: []string{"0.25"}},
		},
		{
			name: "matrix",
			shaders: []*ast.Shader{{
				Name: "Transform",
				Members: []*ast.VarDecl{
					{Name: "world", Type: typ("float4x4"), Storage: ast.StorageStatic},
				},
				Functions: []*ast.FunctionDecl{{
					Name:       "Apply",
					Params:     []*ast.Param{{Name: "p", Type: typ("float4")}},
					ReturnType: typ("float4"),
					Body:       []ast.Stmt{&ast.ReturnStmt{Value: bin("*", ident("world"), ident("p"))}},
				}},
			}},
			source: mixin.ClassReference{Name: "Transform"},
		},
	}
}

// ---------------------------------------------------------------------------
// Test Runner
// ---------------------------------------------------------------------------

// TestSnapshots compiles every fixture, checks the linked module and
// compares its disassembly with the golden file.
func TestSnapshots(t *testing.T) {
	for _, fx := range fixtures() {
		t.Run(fx.name, func(t *testing.T) {
			binary := compile(t, fx)
			module, err := spirv.Decode(binary)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			t.Run("valid", func(t *testing.T) {
				if err := passes.Validate(module); err != nil {
					t.Fatal(err)
				}
			})

			t.Run("deterministic", func(t *testing.T) {
				if again := compile(t, fx); !bytes.Equal(again, binary) {
					t.Error("second compile produced a different binary")
				}
			})

			t.Run("spv", func(t *testing.T) {
				var sb strings.Builder
				if err := spirv.Disassemble(&sb, module, false); err != nil {
					t.Fatal(err)
				}
				compareGolden(t, filepath.Join("testdata", "golden", fx.name+".spvasm"), sb.String())
			})
		})
	}
}

func compile(t *testing.T, fx fixture) []byte {
	t.Helper()
	binary, err := mixer.Compile(context.Background(), mixin.NewMemoryLoader(fx.shaders...), fx.source)
	if err != nil {
		t.Fatalf("compile %s: %v", fx.name, err)
	}
	return binary
}

// ---------------------------------------------------------------------------
// Golden File Comparison
// ---------------------------------------------------------------------------

// compareGolden compares actual output to the golden file at path.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			t.Fatalf("create golden dir: %v", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(actual), 0o644); wErr != nil {
			t.Fatalf("write golden file: %v", wErr)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file missing: %s\nRun with UPDATE_GOLDEN=1 to create.\n\nActual output:\n%s", path, truncate(actual, 500))
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Git may convert \n to \r\n on Windows checkout.
	expectedStr := strings.ReplaceAll(string(expected), "\r\n", "\n")
	actualStr := strings.ReplaceAll(actual, "\r\n", "\n")

	if expectedStr != actualStr {
		diff := diffStrings(expectedStr, actualStr)
		t.Errorf("output differs from golden %s:\n%s", path, diff)
	}
}

// diffStrings produces a simple line-by-line diff showing the first difference
// and surrounding context.
func diffStrings(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")
	maxLines := max(len(expectedLines), len(actualLines))

	line := func(lines []string, i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	firstDiff := -1
	for i := range maxLines {
		if line(expectedLines, i) != line(actualLines, i) {
			firstDiff = i
			break
		}
	}
	if firstDiff < 0 {
		return "(no difference found)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "first difference at line %d:\n", firstDiff+1)
	fmt.Fprintf(&sb, "  expected lines: %d\n", len(expectedLines))
	fmt.Fprintf(&sb, "  actual lines:   %d\n\n", len(actualLines))

	const contextLines = 3
	for i := max(firstDiff-contextLines, 0); i < min(firstDiff+contextLines+1, maxLines); i++ {
		e, a := line(expectedLines, i), line(actualLines, i)
		prefix := " "
		if e != a {
			prefix = "!"
		}
		fmt.Fprintf(&sb, "%s %4d expected: %s\n", prefix, i+1, truncate(e, 120))
		if e != a {
			fmt.Fprintf(&sb, "%s %4d actual:   %s\n", prefix, i+1, truncate(a, 120))
		}
	}
	return sb.String()
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
