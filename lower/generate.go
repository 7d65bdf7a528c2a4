package lower

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/mixer/ast"
	"github.com/gogpu/mixer/spirv"
)

// Options configures code generation for one mixin.
type Options struct {
	// Version is the SPIR-V version written to the module header.
	Version spirv.Version
	// Prefix qualifies every function and member name. Composed mixins get
	// the path of their composition slot so that two instances of the same
	// mixin do not collide.
	Prefix string
	// DebugNames emits OpName for functions.
	DebugNames bool
	// Imports are the members of inherited mixins the generated code may
	// read and write.
	Imports []Import
}

// Import makes a member of another mixin visible by its declared name. The
// module refers to it through LinkName, the name its owner declares it
// under, and the merger binds the two.
type Import struct {
	Member   *ast.VarDecl
	LinkName string
}

// DefaultOptions returns default generation options.
func DefaultOptions() Options {
	return Options{
		Version:    spirv.Version1_3,
		DebugNames: true,
	}
}

type symbolKind uint8

const (
	symVariable symbolKind = iota
	symParam
	symInput
)

type symbol struct {
	id   spirv.ID
	typ  valueType
	kind symbolKind
}

// value is the result of one register. A literal, or an operation on
// literals only, stays pending until an operand, a store or a return gives
// it a type.
type value struct {
	id  spirv.ID
	typ valueType
	lit *ast.Literal
	op  *pendingOp
}

type pendingOp struct {
	op          string
	left, right value
	node        ast.Node
}

func (v value) pending() bool { return v.lit != nil || v.op != nil }

type constKey struct {
	typ  valueType
	bits uint32
}

type generator struct {
	shader  *ast.Shader
	opts    Options
	module  *spirv.Module
	decl    *spirv.WordBuffer
	types   *typeTable
	consts  map[constKey]spirv.ID
	globals map[string]*symbol
	imports map[string]Import
	ioVars  []spirv.ID
}

// Generate emits a self-contained module for one mixin. Members and locals
// are emitted as placeholder variables whose storage is settled after
// merging; see package passes.
//
// Type and operator mistakes are reported as *ast.SourceError. A syntax
// node lowering does not understand is reported as *InternalError.
func Generate(shader *ast.Shader, opts Options) (*spirv.Module, error) {
	if len(shader.Generics) > 0 {
		return nil, ast.Errorf(shader, nil, "generic parameters of %s are not bound", shader.Name)
	}

	m := spirv.NewModule(opts.Version)
	g := &generator{
		shader:  shader,
		opts:    opts,
		module:  m,
		decl:    m.DeclarationBuffer(),
		consts:  make(map[constKey]spirv.ID),
		globals: make(map[string]*symbol),
		imports: make(map[string]Import, len(opts.Imports)),
	}
	for _, imp := range opts.Imports {
		if _, ok := g.imports[imp.Member.Name]; !ok {
			g.imports[imp.Member.Name] = imp
		}
	}
	g.types = newTypeTable(g.decl)

	g.decl.AddCapability(spirv.CapabilityShader)
	g.decl.AddMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)

	for _, member := range shader.Members {
		if err := g.member(member); err != nil {
			return nil, err
		}
	}
	// Inherited stage inputs and outputs belong to every entry point's
	// interface, so they are declared before any function.
	for _, imp := range opts.Imports {
		if _, own := g.globals[imp.Member.Name]; own || g.imports[imp.Member.Name] != imp {
			continue
		}
		if imp.Member.Storage == ast.StorageIn || imp.Member.Storage == ast.StorageOut {
			if _, err := g.importMember(imp); err != nil {
				return nil, err
			}
		}
	}
	for _, fn := range shader.Functions {
		if err := g.function(fn); err != nil {
			return nil, err
		}
	}

	m.RecomputeBound()
	return m, nil
}

func (g *generator) valueTypeOf(t ast.Type, node ast.Node) (valueType, error) {
	vt, ok := parseType(t.Name)
	if !ok || vt == scalarType(kindVoid) {
		return valueType{}, ast.Errorf(g.shader, node, "unknown type %q", t.Name)
	}
	return vt, nil
}

func (g *generator) member(v *ast.VarDecl) error {
	if _, dup := g.globals[v.Name]; dup {
		return ast.Errorf(g.shader, v, "member %q redeclared", v.Name)
	}
	t, err := g.valueTypeOf(v.Type, v)
	if err != nil {
		return err
	}
	name := g.opts.Prefix + v.Name

	sym := &symbol{typ: t, kind: symVariable}
	switch v.Storage {
	case ast.StorageIn, ast.StorageOut:
		if v.Value != nil {
			return ast.Errorf(g.shader, v, "%s member %q cannot have an initializer", v.Storage, v.Name)
		}
		sc := spirv.StorageClassOutput
		if v.Storage == ast.StorageIn {
			sc = spirv.StorageClassInput
			sym.kind = symInput
		}
		sym.id = g.decl.AddSDSLIOVariable(g.types.id(t), sc, v.Location, name)
		g.ioVars = append(g.ioVars, sym.id)
	default:
		var init spirv.ID
		if v.Value != nil {
			lit, ok := constantLiteral(v.Value)
			if !ok {
				return ast.Errorf(g.shader, v.Value, "initializer of member %q must be a literal", v.Name)
			}
			c, err := g.constant(lit, t)
			if err != nil {
				return err
			}
			init = c.id
		}
		sym.id = g.decl.AddSDSLVariable(g.types.id(t), spirv.StorageClassPrivate, name, init)
	}
	g.globals[v.Name] = sym
	return nil
}

func constantLiteral(e ast.Expr) (*ast.Literal, bool) {
	for {
		switch x := e.(type) {
		case *ast.Literal:
			return x, true
		case *ast.ParenExpr:
			e = x.Expr
		default:
			return nil, false
		}
	}
}

// constant returns the constant of type t holding lit, declaring it on
// first use. Vector constants splat the literal.
func (g *generator) constant(lit *ast.Literal, t valueType) (value, error) {
	if t.isMatrix() {
		return value{}, ast.Errorf(g.shader, lit, "cannot use literal %s as %s", lit.Value, t)
	}
	bits, ok := literalBits(lit, t.scalar)
	if !ok {
		return value{}, ast.Errorf(g.shader, lit, "cannot use literal %s as %s", lit.Value, t)
	}
	key := constKey{typ: t, bits: bits}
	if id, ok := g.consts[key]; ok {
		return value{id: id, typ: t}, nil
	}

	typeID := g.types.id(t)
	var id spirv.ID
	switch {
	case t.isVector():
		c, err := g.constant(lit, t.component())
		if err != nil {
			return value{}, err
		}
		parts := make([]spirv.ID, t.size)
		for i := range parts {
			parts[i] = c.id
		}
		id = g.decl.AddConstantComposite(typeID, parts...)
	case t.scalar == kindBool:
		id = g.decl.AddConstantBool(typeID, bits == 1)
	default:
		id = g.decl.AddConstant(typeID, bits)
	}
	g.consts[key] = id
	return value{id: id, typ: t}, nil
}

func parseInteger(text string) (uint64, error) {
	return strconv.ParseUint(strings.TrimRight(text, "uUlL"), 0, 64)
}

// literalBits encodes lit as one 32-bit word of scalar kind k.
func literalBits(lit *ast.Literal, k scalarKind) (uint32, bool) {
	switch k {
	case kindBool:
		if lit.Kind != ast.LiteralBool {
			return 0, false
		}
		switch lit.Value {
		case "true":
			return 1, true
		case "false":
			return 0, true
		}
		return 0, false
	case kindFloat:
		switch lit.Kind {
		case ast.LiteralFloat:
			f, err := strconv.ParseFloat(strings.TrimRight(lit.Value, "fFhH"), 32)
			if err != nil {
				return 0, false
			}
			return math.Float32bits(float32(f)), true
		case ast.LiteralInt, ast.LiteralUint:
			n, err := parseInteger(lit.Value)
			if err != nil {
				return 0, false
			}
			return math.Float32bits(float32(n)), true
		}
	case kindInt, kindUint:
		if lit.Kind != ast.LiteralInt && lit.Kind != ast.LiteralUint {
			return 0, false
		}
		n, err := parseInteger(lit.Value)
		if err != nil {
			return 0, false
		}
		if k == kindInt && n > math.MaxInt32 || n > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	}
	return 0, false
}

func executionModel(stage gputypes.ShaderStages) (spirv.ExecutionModel, bool) {
	switch stage {
	case gputypes.ShaderStageVertex:
		return spirv.ExecutionModelVertex, true
	case gputypes.ShaderStageFragment:
		return spirv.ExecutionModelFragment, true
	case gputypes.ShaderStageCompute:
		return spirv.ExecutionModelGLCompute, true
	}
	return 0, false
}

type function struct {
	*generator
	fn       *ast.FunctionDecl
	body     *spirv.WordBuffer
	ret      valueType
	params   map[string]*symbol
	locals   map[string]*symbol
	lowering Lowering
	values   []value
	returned bool
}

func (g *generator) function(fn *ast.FunctionDecl) error {
	name := g.opts.Prefix + fn.Name
	if g.module.HasFunction(name) {
		return ast.Errorf(g.shader, fn, "function %q redeclared", fn.Name)
	}

	ret := scalarType(kindVoid)
	if fn.ReturnType.Name != "" {
		t, ok := parseType(fn.ReturnType.Name)
		if !ok {
			return ast.Errorf(g.shader, fn, "unknown return type %q", fn.ReturnType.Name)
		}
		ret = t
	}
	paramTypes := make([]valueType, len(fn.Params))
	for i, p := range fn.Params {
		t, err := g.valueTypeOf(p.Type, fn)
		if err != nil {
			return err
		}
		paramTypes[i] = t
	}

	var model spirv.ExecutionModel
	if fn.IsEntryPoint() {
		var ok bool
		if model, ok = executionModel(fn.Stage); !ok {
			return ast.Errorf(g.shader, fn, "unsupported shader stage %v for %q", fn.Stage, fn.Name)
		}
		if len(fn.Params) > 0 || ret != scalarType(kindVoid) {
			return ast.Errorf(g.shader, fn, "entry point %q must take no parameters and return void", fn.Name)
		}
	}

	fnType := g.types.function(ret, paramTypes)
	body := g.module.AddFunction(name)
	fnID := body.AddFunction(fnType, g.types.id(ret), spirv.FunctionControlNone)

	f := &function{
		generator: g,
		fn:        fn,
		body:      body,
		ret:       ret,
		params:    make(map[string]*symbol),
		locals:    make(map[string]*symbol),
	}
	for i, p := range fn.Params {
		if _, dup := f.params[p.Name]; dup {
			return ast.Errorf(g.shader, fn, "parameter %q redeclared", p.Name)
		}
		id := body.AddSDSLFunctionParameter(g.types.id(paramTypes[i]), p.Name)
		f.params[p.Name] = &symbol{id: id, typ: paramTypes[i], kind: symParam}
	}
	body.AddLabel()

	for _, stmt := range fn.Body {
		if f.returned {
			return ast.Errorf(g.shader, stmt, "unreachable statement after return")
		}
		if err := f.stmt(stmt); err != nil {
			return err
		}
	}
	if !f.returned {
		if ret != scalarType(kindVoid) {
			return ast.Errorf(g.shader, fn, "function %q must return a %s value", fn.Name, ret)
		}
		body.AddReturn()
	}
	body.AddFunctionEnd()

	if g.opts.DebugNames {
		g.decl.AddName(fnID, name)
	}
	if fn.IsEntryPoint() {
		g.decl.AddEntryPoint(model, fnID, name, g.ioVars...)
		switch model {
		case spirv.ExecutionModelFragment:
			g.decl.AddExecutionMode(fnID, spirv.ExecutionModeOriginUpperLeft)
		case spirv.ExecutionModelGLCompute:
			g.decl.AddExecutionMode(fnID, spirv.ExecutionModeLocalSize, 1, 1, 1)
		}
	}
	return nil
}

// lookup resolves name to a local, a parameter, a member or an imported
// member, in that order. It returns nil when the name is undeclared.
func (f *function) lookup(name string) (*symbol, error) {
	if sym, ok := f.locals[name]; ok {
		return sym, nil
	}
	if sym, ok := f.params[name]; ok {
		return sym, nil
	}
	if sym, ok := f.globals[name]; ok {
		return sym, nil
	}
	imp, ok := f.imports[name]
	if !ok {
		return nil, nil
	}
	return f.importMember(imp)
}

// importMember declares an imported member on first use.
func (g *generator) importMember(imp Import) (*symbol, error) {
	t, err := g.valueTypeOf(imp.Member.Type, imp.Member)
	if err != nil {
		return nil, err
	}
	sym := &symbol{typ: t, kind: symVariable}
	sym.id = g.decl.AddSDSLImportVariable(g.types.id(t), imp.LinkName)
	switch imp.Member.Storage {
	case ast.StorageIn:
		sym.kind = symInput
		g.ioVars = append(g.ioVars, sym.id)
	case ast.StorageOut:
		g.ioVars = append(g.ioVars, sym.id)
	}
	g.globals[imp.Member.Name] = sym
	return sym, nil
}

func (f *function) stmt(s ast.Stmt) error {
	start := f.lowering.Len()
	if err := f.lowering.Stmt(s); err != nil {
		return err
	}
	for _, r := range f.lowering.Registers()[start:] {
		if err := f.register(r); err != nil {
			return err
		}
	}

	switch s := s.(type) {
	case *ast.DeclareStmt:
		if s.Value == nil {
			return f.declare(s, nil)
		}
	case *ast.ReturnStmt:
		return f.returns(s)
	}
	return nil
}

func (f *function) register(r Register) error {
	switch r := r.(type) {
	case *ValueRegister:
		if r.Literal != nil {
			f.values = append(f.values, value{lit: r.Literal})
			return nil
		}
		v, err := f.read(r)
		if err != nil {
			return err
		}
		f.values = append(f.values, v)
	case *OperationRegister:
		v, err := f.binary(r.Op, f.values[r.Left-1], f.values[r.Right-1], r.Source())
		if err != nil {
			return err
		}
		f.values = append(f.values, v)
	case *AssignRegister:
		if err := f.store(r); err != nil {
			return err
		}
		f.values = append(f.values, value{})
	default:
		return &InternalError{Node: r.Source()}
	}
	return nil
}

func (f *function) read(r *ValueRegister) (value, error) {
	sym, err := f.lookup(r.Name)
	if err != nil {
		return value{}, err
	}
	if sym == nil {
		return value{}, ast.Errorf(f.shader, r.Source(), "undeclared identifier %q", r.Name)
	}
	if sym.kind == symParam {
		return value{id: sym.id, typ: sym.typ}, nil
	}
	return value{id: f.body.AddLoad(f.types.id(sym.typ), sym.id), typ: sym.typ}, nil
}

// coerce gives a pending value the type t, or checks that v already has it.
func (f *function) coerce(v value, t valueType, node ast.Node) (value, error) {
	if v.pending() {
		var err error
		if v, err = f.settle(v, t); err != nil {
			return value{}, err
		}
	}
	if v.typ != t {
		return value{}, ast.Errorf(f.shader, node, "cannot use %s value as %s", v.typ, t)
	}
	return v, nil
}

// settle emits a pending value with operands of type t.
func (f *function) settle(v value, t valueType) (value, error) {
	if v.lit != nil {
		return f.constant(v.lit, t)
	}
	if _, cmp := comparisonOps[v.op.op]; cmp {
		t = literalType(v)
	}
	left, err := f.settle(v.op.left, t)
	if err != nil {
		return value{}, err
	}
	right, err := f.settle(v.op.right, t)
	if err != nil {
		return value{}, err
	}
	return f.emit(v.op.op, left, right, v.op.node)
}

// literalType is the type the operands of a pending comparison take when
// nothing else decides it: float if any literal is a float, then uint, bool
// and int.
func literalType(v value) valueType {
	kinds := make(map[ast.LiteralKind]bool)
	var walk func(value)
	walk = func(v value) {
		if v.lit != nil {
			kinds[v.lit.Kind] = true
			return
		}
		walk(v.op.left)
		walk(v.op.right)
	}
	walk(v.op.left)
	walk(v.op.right)

	switch {
	case kinds[ast.LiteralFloat]:
		return scalarType(kindFloat)
	case kinds[ast.LiteralUint]:
		return scalarType(kindUint)
	case kinds[ast.LiteralBool]:
		return scalarType(kindBool)
	}
	return scalarType(kindInt)
}

// operandType picks the type a pending operand takes next to an operand of
// type other.
func operandType(op string, other valueType) valueType {
	if op == "*" && !other.isScalar() {
		return other.component()
	}
	return other
}

func (f *function) binary(op string, left, right value, node ast.Node) (value, error) {
	var err error
	switch {
	case left.pending() && right.pending():
		return value{op: &pendingOp{op: op, left: left, right: right, node: node}}, nil
	case left.pending():
		if left, err = f.settle(left, operandType(op, right.typ)); err != nil {
			return value{}, err
		}
	case right.pending():
		if right, err = f.settle(right, operandType(op, left.typ)); err != nil {
			return value{}, err
		}
	}
	return f.emit(op, left, right, node)
}

func (f *function) emit(op string, left, right value, node ast.Node) (value, error) {
	opcode, result, swap, ok := selectOp(op, left.typ, right.typ)
	if !ok {
		return value{}, ast.Errorf(f.shader, node, "operator %q is not defined for %s and %s", op, left.typ, right.typ)
	}
	a, b := left.id, right.id
	if swap {
		a, b = b, a
	}
	return value{id: f.body.AddBinaryOp(opcode, f.types.id(result), a, b), typ: result}, nil
}

func (f *function) store(r *AssignRegister) error {
	v := f.values[r.Value-1]
	switch s := r.Source().(type) {
	case *ast.DeclareStmt:
		return f.declare(s, &v)
	case *ast.AssignStmt:
		return f.assign(s, r.Op, v)
	default:
		return &InternalError{Node: r.Source()}
	}
}

// declare emits a function-local placeholder after the value it is
// initialized with. The variable is hoisted to the entry block later.
func (f *function) declare(s *ast.DeclareStmt, v *value) error {
	if _, dup := f.locals[s.Name]; dup {
		return ast.Errorf(f.shader, s, "%q redeclared in this function", s.Name)
	}
	if _, dup := f.params[s.Name]; dup {
		return ast.Errorf(f.shader, s, "%q redeclared in this function", s.Name)
	}
	t, err := f.valueTypeOf(s.Type, s)
	if err != nil {
		return err
	}

	var init value
	if v != nil {
		if init, err = f.coerce(*v, t, s); err != nil {
			return err
		}
	}
	id := f.body.AddSDSLVariable(f.types.id(t), spirv.StorageClassFunction, s.Name, 0)
	if v != nil {
		f.body.AddStore(id, init.id)
	}
	f.locals[s.Name] = &symbol{id: id, typ: t, kind: symVariable}
	return nil
}

func (f *function) assign(s *ast.AssignStmt, op string, v value) error {
	sym, err := f.lookup(s.Name)
	if err != nil {
		return err
	}
	if sym == nil {
		return ast.Errorf(f.shader, s, "undeclared identifier %q", s.Name)
	}
	switch sym.kind {
	case symParam:
		return ast.Errorf(f.shader, s, "cannot assign to parameter %q", s.Name)
	case symInput:
		return ast.Errorf(f.shader, s, "cannot assign to input %q", s.Name)
	}

	if op != "=" {
		current := value{id: f.body.AddLoad(f.types.id(sym.typ), sym.id), typ: sym.typ}
		if v, err = f.binary(strings.TrimSuffix(op, "="), current, v, s); err != nil {
			return err
		}
	}
	if v, err = f.coerce(v, sym.typ, s); err != nil {
		return err
	}
	f.body.AddStore(sym.id, v.id)
	return nil
}

func (f *function) returns(s *ast.ReturnStmt) error {
	void := f.ret == scalarType(kindVoid)
	switch {
	case s.Value == nil && !void:
		return ast.Errorf(f.shader, s, "missing return value")
	case s.Value == nil:
		f.body.AddReturn()
	case void:
		return ast.Errorf(f.shader, s, "void function %q cannot return a value", f.fn.Name)
	default:
		v, err := f.coerce(f.values[f.lowering.Len()-1], f.ret, s)
		if err != nil {
			return err
		}
		f.body.AddReturnValue(v.id)
	}
	f.returned = true
	return nil
}
