package lower

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/mixer/spirv"
)

type scalarKind uint8

const (
	kindVoid scalarKind = iota
	kindBool
	kindInt
	kindUint
	kindFloat
)

var scalarNames = map[string]scalarKind{
	"void":  kindVoid,
	"bool":  kindBool,
	"int":   kindInt,
	"uint":  kindUint,
	"float": kindFloat,
}

func (k scalarKind) String() string {
	for name, kind := range scalarNames {
		if kind == k {
			return name
		}
	}
	return "scalar" + strconv.Itoa(int(k))
}

// valueType is a shader value type. size is the component count (1 for
// scalars); columns is non-zero only for matrices, whose columns are
// size-component vectors.
type valueType struct {
	scalar  scalarKind
	size    int
	columns int
}

func scalarType(k scalarKind) valueType {
	return valueType{scalar: k, size: 1}
}

func (t valueType) isScalar() bool { return t.size == 1 && t.columns == 0 }
func (t valueType) isVector() bool { return t.size > 1 && t.columns == 0 }
func (t valueType) isMatrix() bool { return t.columns > 0 }

// component returns the scalar type of a vector or matrix.
func (t valueType) component() valueType {
	return scalarType(t.scalar)
}

// column returns the column vector type of a matrix.
func (t valueType) column() valueType {
	return valueType{scalar: t.scalar, size: t.size}
}

func (t valueType) String() string {
	switch {
	case t.isMatrix():
		return fmt.Sprintf("%s%dx%d", t.scalar, t.size, t.columns)
	case t.isVector():
		return fmt.Sprintf("%s%d", t.scalar, t.size)
	default:
		return t.scalar.String()
	}
}

// parseType understands scalars, vectors (float3) and matrices (float4x4,
// rows by columns).
func parseType(name string) (valueType, bool) {
	if k, ok := scalarNames[name]; ok {
		return scalarType(k), true
	}
	base := strings.TrimRight(name, "0123456789x")
	k, ok := scalarNames[base]
	if !ok || k == kindVoid {
		return valueType{}, false
	}
	dims := name[len(base):]
	rows, cols, isMatrix := strings.Cut(dims, "x")
	n, err := strconv.Atoi(rows)
	if err != nil || n < 2 || n > 4 {
		return valueType{}, false
	}
	if !isMatrix {
		return valueType{scalar: k, size: n}, true
	}
	c, err := strconv.Atoi(cols)
	if err != nil || c < 2 || c > 4 || k != kindFloat {
		return valueType{}, false
	}
	return valueType{scalar: k, size: n, columns: c}, true
}

// typeTable declares types lazily in a declarations buffer, once each.
type typeTable struct {
	decl   *spirv.WordBuffer
	ids    map[valueType]spirv.ID
	funcs  map[string]spirv.ID
	matrix bool
}

func newTypeTable(decl *spirv.WordBuffer) *typeTable {
	return &typeTable{
		decl:  decl,
		ids:   make(map[valueType]spirv.ID),
		funcs: make(map[string]spirv.ID),
	}
}

func (tt *typeTable) id(t valueType) spirv.ID {
	if id, ok := tt.ids[t]; ok {
		return id
	}
	var id spirv.ID
	switch {
	case t.isMatrix():
		if !tt.matrix {
			tt.decl.AddCapability(spirv.CapabilityMatrix)
			tt.matrix = true
		}
		id = tt.decl.AddTypeMatrix(tt.id(t.column()), uint32(t.columns))
	case t.isVector():
		id = tt.decl.AddTypeVector(tt.id(t.component()), uint32(t.size))
	default:
		switch t.scalar {
		case kindVoid:
			id = tt.decl.AddTypeVoid()
		case kindBool:
			id = tt.decl.AddTypeBool()
		case kindInt:
			id = tt.decl.AddTypeInt(32, true)
		case kindUint:
			id = tt.decl.AddTypeInt(32, false)
		case kindFloat:
			id = tt.decl.AddTypeFloat(32)
		}
	}
	tt.ids[t] = id
	return id
}

func (tt *typeTable) function(ret valueType, params []valueType) spirv.ID {
	var key strings.Builder
	key.WriteString(ret.String())
	paramIDs := make([]spirv.ID, len(params))
	for i, p := range params {
		key.WriteString("," + p.String())
		paramIDs[i] = tt.id(p)
	}
	if id, ok := tt.funcs[key.String()]; ok {
		return id
	}
	id := tt.decl.AddTypeFunction(tt.id(ret), paramIDs...)
	tt.funcs[key.String()] = id
	return id
}
