package mixer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mixer/ast"
	"github.com/gogpu/mixer/mixin"
	"github.com/gogpu/mixer/passes"
	"github.com/gogpu/mixer/spirv"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func lit(v string) *ast.Literal { return &ast.Literal{Kind: ast.LiteralInt, Value: v} }

func bin(op string, l, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Op: op, Left: l, Right: r}
}

// shaders is a three-level mixin chain: Target declares the output, Lit
// adds a lighting helper and Material the fragment entry point.
func shaders() []*ast.Shader {
	return []*ast.Shader{
		{
			Name: "Target",
			Members: []*ast.VarDecl{
				{Name: "color", Type: ast.Type{Name: "float4"}, Storage: ast.StorageOut, Location: 0},
			},
		},
		{
			Name:  "Lit",
			Bases: []*ast.MixinRef{{Name: "Target"}},
			Members: []*ast.VarDecl{
				{Name: "intensity", Type: ast.Type{Name: "float"}, Storage: ast.StorageStatic, Value: lit("2")},
			},
			Functions: []*ast.FunctionDecl{{
				Name:       "Light",
				Params:     []*ast.Param{{Name: "x", Type: ast.Type{Name: "float"}}},
				ReturnType: ast.Type{Name: "float"},
				Body: []ast.Stmt{
					&ast.DeclareStmt{Type: ast.Type{Name: "float"}, Name: "y", Value: bin("*", ident("x"), ident("intensity"))},
					&ast.ReturnStmt{Value: ident("y")},
				},
			}},
		},
		{
			Name:  "Material",
			Bases: []*ast.MixinRef{{Name: "Lit"}},
			Members: []*ast.VarDecl{
				{Name: "albedo", Type: ast.Type{Name: "float4"}, Storage: ast.StorageOut, Location: 1},
			},
			Functions: []*ast.FunctionDecl{{
				Name:  "PSMain",
				Stage: gputypes.ShaderStageFragment,
				Body: []ast.Stmt{
					&ast.DeclareStmt{Type: ast.Type{Name: "float"}, Name: "k", Value: lit("3")},
					&ast.AssignStmt{Name: "albedo", Op: "*=", Value: ident("k")},
				},
			}},
		},
	}
}

func decode(t *testing.T, binary []byte) *spirv.Module {
	t.Helper()
	m, err := spirv.Decode(binary)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return m
}

func countOps(m *spirv.Module, op spirv.OpCode) int {
	n := 0
	for _, stream := range m.Streams() {
		for _, inst := range stream.Instructions() {
			if inst.OpCode() == op {
				n++
			}
		}
	}
	return n
}

func TestCompile_InheritanceChain(t *testing.T) {
	loader := mixin.NewMemoryLoader(shaders()...)

	binary, err := Compile(context.Background(), loader, mixin.ClassReference{Name: "Material"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	m := decode(t, binary)
	if err := passes.Validate(m); err != nil {
		t.Fatalf("compiled module is invalid: %v", err)
	}

	for _, tt := range []struct {
		op   spirv.OpCode
		want int
	}{
		{spirv.OpTypeFloat, 1},
		{spirv.OpTypeVector, 1},
		{spirv.OpMemoryModel, 1},
		{spirv.OpEntryPoint, 1},
		{spirv.OpExecutionMode, 1},
		{spirv.OpSDSLVariable, 0},
		{spirv.OpSDSLIOVariable, 0},
		{spirv.OpSDSLFunctionParameter, 0},
		{spirv.OpNop, 0},
	} {
		if got := countOps(m, tt.op); got != tt.want {
			t.Errorf("%s count = %d, want %d", tt.op, got, tt.want)
		}
	}
	if m.FunctionCount() != 2 {
		t.Errorf("FunctionCount = %d, want 2", m.FunctionCount())
	}

	// Locals sit right after the entry label.
	for name, body := range m.Functions() {
		var ops []spirv.OpCode
		for _, inst := range body.Instructions() {
			ops = append(ops, inst.OpCode())
		}
		label := -1
		for i, op := range ops {
			if op == spirv.OpLabel {
				label = i
				break
			}
		}
		if label < 0 || ops[label+1] != spirv.OpVariable {
			t.Errorf("%s: body = %v, want a variable after the label", name, ops)
		}
	}
}

func TestCompile_InheritedMembers(t *testing.T) {
	// Glow writes Target's output through two levels of inheritance and
	// reads Lit's intensity.
	glow := &ast.Shader{
		Name:  "Glow",
		Bases: []*ast.MixinRef{{Name: "Lit"}},
		Functions: []*ast.FunctionDecl{{
			Name:  "PSMain",
			Stage: gputypes.ShaderStageFragment,
			Body: []ast.Stmt{
				&ast.AssignStmt{Name: "color", Op: "*=", Value: ident("intensity")},
			},
		}},
	}
	loader := mixin.NewMemoryLoader(append(shaders(), glow)...)

	binary, err := Compile(context.Background(), loader, mixin.ClassReference{Name: "Glow"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	m := decode(t, binary)
	if err := passes.Validate(m); err != nil {
		t.Fatalf("compiled module is invalid: %v", err)
	}

	var outputs []spirv.ID
	var iface []spirv.ID
	for inst := range m.Declarations() {
		operands, err := inst.Operands()
		if err != nil {
			t.Fatal(err)
		}
		switch inst.OpCode() {
		case spirv.OpVariable:
			if spirv.StorageClass(operands[2].Literal()) == spirv.StorageClassOutput {
				outputs = append(outputs, inst.ResultID())
			}
		case spirv.OpEntryPoint:
			for _, op := range operands[3:] {
				iface = append(iface, op.ID())
			}
		}
	}
	if len(outputs) != 1 {
		t.Fatalf("output variables = %v, want Target's color only", outputs)
	}
	if !reflect.DeepEqual(iface, outputs) {
		t.Errorf("entry point interface = %v, want %v", iface, outputs)
	}

	body, ok := m.Function("PSMain")
	if !ok {
		t.Fatal("PSMain missing")
	}
	stores := 0
	for _, inst := range body.Instructions() {
		if inst.OpCode() != spirv.OpStore {
			continue
		}
		operands, err := inst.Operands()
		if err != nil {
			t.Fatal(err)
		}
		if operands[0].ID() == outputs[0] {
			stores++
		}
	}
	if stores != 1 {
		t.Errorf("PSMain stores to color %d times, want 1", stores)
	}
}

func TestCompile_Errors(t *testing.T) {
	clash := shaders()
	clash = append(clash,
		&ast.Shader{Name: "Other", Functions: []*ast.FunctionDecl{{Name: "Light"}}},
		&ast.Shader{Name: "Both", Bases: []*ast.MixinRef{{Name: "Lit"}, {Name: "Other"}}},
		&ast.Shader{Name: "Typo", Members: []*ast.VarDecl{{Name: "v", Type: ast.Type{Name: "flaot"}}}},
	)
	loader := mixin.NewMemoryLoader(clash...)

	tests := []struct {
		name   string
		src    mixin.ShaderSource
		target any
		prefix string
	}{
		{"unknown mixin", mixin.ClassReference{Name: "Nope"}, new(*mixin.ResolutionError), "resolve: "},
		{"merge conflict", mixin.ClassReference{Name: "Both"}, new(*passes.MergeConflictError), "link: "},
		{"source error", mixin.ClassReference{Name: "Typo"}, new(*ast.SourceError), "generate Typo: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(context.Background(), loader, tt.src)
			if err == nil {
				t.Fatal("Compile succeeded")
			}
			if !errors.As(err, tt.target) {
				t.Errorf("error = %v, want %T", err, tt.target)
			}
			if !strings.HasPrefix(err.Error(), tt.prefix) {
				t.Errorf("error = %q, want prefix %q", err, tt.prefix)
			}
		})
	}
}

func TestCompile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compile(ctx, mixin.NewMemoryLoader(shaders()...), mixin.ClassReference{Name: "Material"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCompiler_Generator(t *testing.T) {
	opts := DefaultOptions()
	opts.Generator = 0x00AB0001
	opts.Version = spirv.Version1_5
	c := NewCompiler(mixin.NewMemoryLoader(shaders()...), opts)

	m, err := c.CompileModule(context.Background(), mixin.ClassReference{Name: "Material"})
	if err != nil {
		t.Fatalf("CompileModule failed: %v", err)
	}
	if m.Header.Generator != opts.Generator {
		t.Errorf("Generator = 0x%08X, want 0x%08X", m.Header.Generator, opts.Generator)
	}
	if m.Header.Version != spirv.Version1_5 {
		t.Errorf("Version = %v, want 1.5", m.Header.Version)
	}
}

func TestCompiler_CompileBatch(t *testing.T) {
	opts := DefaultOptions()
	opts.Workers = 2
	c := NewCompiler(mixin.NewMemoryLoader(shaders()...), opts)
	defer c.Close()

	sources := []mixin.ShaderSource{
		mixin.ClassReference{Name: "Material"},
		mixin.ClassReference{Name: "Missing"},
		mixin.ClassReference{Name: "Lit"},
		mixin.ClassReference{Name: "Target"},
	}
	results := c.CompileBatch(context.Background(), sources)

	if len(results) != len(sources) {
		t.Fatalf("got %d results, want %d", len(results), len(sources))
	}
	for i, r := range results {
		if !reflect.DeepEqual(r.Source, sources[i]) {
			t.Errorf("result %d is for %v, want %v", i, r.Source, sources[i])
		}
		wantErr := i == 1
		if (r.Err != nil) != wantErr {
			t.Errorf("result %d error = %v, want error: %v", i, r.Err, wantErr)
		}
		if !wantErr {
			if err := passes.Validate(decode(t, r.Binary)); err != nil {
				t.Errorf("result %d is invalid: %v", i, err)
			}
		}
	}

	// Batched output equals sequential output.
	want, err := c.Compile(context.Background(), sources[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(results[0].Binary, want) {
		t.Error("batched binary differs from a sequential compile")
	}
}

func TestCompiler_Close(t *testing.T) {
	c := NewCompiler(mixin.NewMemoryLoader(shaders()...), DefaultOptions())
	src := mixin.ClassReference{Name: "Material"}
	if r := c.CompileBatch(context.Background(), []mixin.ShaderSource{src}); r[0].Err != nil {
		t.Fatalf("CompileBatch failed: %v", r[0].Err)
	}

	c.Close()
	c.Close()

	results := c.CompileBatch(context.Background(), []mixin.ShaderSource{src, src})
	for i, r := range results {
		if !errors.Is(r.Err, ErrClosed) {
			t.Errorf("result %d error = %v, want ErrClosed", i, r.Err)
		}
	}
	if _, err := c.Compile(context.Background(), src); err != nil {
		t.Errorf("Compile after Close failed: %v", err)
	}
}

func TestCompile_StartsNoWorkers(t *testing.T) {
	loader := mixin.NewMemoryLoader(shaders()...)
	before := runtime.NumGoroutine()
	for range 10 {
		if _, err := Compile(context.Background(), loader, mixin.ClassReference{Name: "Material"}); err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("goroutines grew from %d to %d", before, after)
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	loader := mixin.NewMemoryLoader(shaders()...)
	if _, err := Compile(context.Background(), loader, mixin.ClassReference{Name: "Material"}); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	_, _ = Compile(context.Background(), loader, mixin.ClassReference{Name: "Missing"})

	out := buf.String()
	for _, want := range []string{"msg=resolved", "msg=compiled", "request=", "level=WARN", "compile aborted"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output lacks %q:\n%s", want, out)
		}
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the silent logger")
	}
}
