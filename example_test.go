package mixer_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mixer"
	"github.com/gogpu/mixer/ast"
	"github.com/gogpu/mixer/mixin"
)

func ExampleCompile() {
	// shader Base { out float4 color; }
	// shader Fill : Base { void PSMain() { color = color * 0.5; } }
	base := &ast.Shader{
		Name: "Base",
		Members: []*ast.VarDecl{
			{Name: "color", Type: ast.Type{Name: "float4"}, Storage: ast.StorageOut},
		},
	}
	fill := &ast.Shader{
		Name:  "Fill",
		Bases: []*ast.MixinRef{{Name: "Base"}},
		Members: []*ast.VarDecl{
			{Name: "fill", Type: ast.Type{Name: "float4"}, Storage: ast.StorageOut, Location: 1},
		},
		Functions: []*ast.FunctionDecl{{
			Name:  "PSMain",
			Stage: gputypes.ShaderStageFragment,
			Body: []ast.Stmt{
				&ast.AssignStmt{Name: "fill", Op: "*=", Value: &ast.Literal{Kind: ast.LiteralFloat, Value: "0.5"}},
			},
		}},
	}

	loader := mixin.NewMemoryLoader(base, fill)
	spv, err := mixer.Compile(context.Background(), loader, mixin.ClassReference{Name: "Fill"})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("magic: 0x%08X\n", binary.LittleEndian.Uint32(spv))
	// Output:
	// magic: 0x07230203
}

func ExampleCompiler_CompileBatch() {
	loader := mixin.NewMemoryLoader(&ast.Shader{
		Name:     "Tint",
		Generics: []*ast.GenericParam{{Type: "float", Name: "Strength"}},
		Members: []*ast.VarDecl{
			{Name: "strength", Type: ast.Type{Name: "float"}, Storage: ast.StorageStatic, Value: &ast.Ident{Name: "Strength"}},
		},
	})
	c := mixer.NewCompiler(loader, mixer.DefaultOptions())
	defer c.Close()

	results := c.CompileBatch(context.Background(), []mixin.ShaderSource{
		mixin.ClassReference{Name: "Tint", Args: []string{"0.25"}},
		mixin.ClassReference{Name: "Tint"},
	})
	for _, r := range results {
		fmt.Println(r.Source, r.Err != nil)
	}
	// Output:
	// Tint<0.25> false
	// Tint true
}
