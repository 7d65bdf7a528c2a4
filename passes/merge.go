package passes

import (
	"errors"

	"github.com/gogpu/mixer/spirv"
)

// Unit is one independently generated mixin module.
type Unit struct {
	Name   string
	Module *spirv.Module
}

type entryKey struct {
	model spirv.ExecutionModel
	name  string
}

// Merge concatenates the modules of units, in order, into a new module.
// Each unit's identifiers are first shifted past those of the units before
// it, so units are modified in place and must not be used afterwards.
//
// One memory model, one copy of each capability, extension and extended
// instruction set import, and one entry point per name and execution model
// survive; the execution modes of a dropped entry point go with it. A
// function or global variable name declared by two units is a
// *MergeConflictError.
//
// Imported members are bound to the variable declared under their link
// name by any unit; an import nobody declares is an *UnresolvedImportError.
func Merge(units []Unit) (*spirv.Module, error) {
	if len(units) == 0 {
		return nil, errors.New("merge: no modules")
	}

	version := units[0].Module.Header.Version
	for _, u := range units[1:] {
		v := u.Module.Header.Version
		if v.Major > version.Major || v.Major == version.Major && v.Minor > version.Minor {
			version = v
		}
	}

	out := spirv.NewModule(version)
	decl := out.DeclarationBuffer()

	var (
		memoryModel  bool
		capabilities = make(map[uint32]bool)
		extensions   = make(map[string]bool)
		extInsts     = make(map[string]spirv.ID)
		aliases      = make(map[spirv.ID]spirv.ID)
		entryPoints  = make(map[entryKey]bool)
		globals      = make(map[string]string)
		definitions  = make(map[string]spirv.ID)
		imports      []importRef
		functions    = make(map[string]string)
		running      = uint32(1)
	)

	for _, u := range units {
		m := u.Module
		m.RecomputeBound()
		if err := spirv.OffsetIDs(m, running-1); err != nil {
			return nil, &InvariantError{Pass: "merge", Detail: "offsetting " + u.Name, Err: err}
		}
		running = m.Header.Bound
		skipped := make(map[spirv.ID]bool)

		for _, g := range globalVariables(m) {
			if first, ok := globals[g.name]; ok && first != u.Name {
				return nil, &MergeConflictError{Kind: "variable", Name: g.name, First: first, Second: u.Name}
			}
			globals[g.name] = u.Name
			definitions[g.name] = g.id
		}

		for inst := range m.Declarations() {
			if inst.IsNop() {
				continue
			}
			operands, err := inst.Operands()
			if err != nil {
				return nil, &InvariantError{Pass: "merge", Detail: "declarations of " + u.Name, Err: err}
			}
			switch inst.OpCode() {
			case spirv.OpSDSLImportVariable:
				imports = append(imports, importRef{id: inst.ResultID(), name: operands[2].Text(), unit: u.Name})
				continue
			case spirv.OpMemoryModel:
				if memoryModel {
					continue
				}
				memoryModel = true
			case spirv.OpCapability:
				c := operands[0].Literal()
				if capabilities[c] {
					continue
				}
				capabilities[c] = true
			case spirv.OpExtension:
				name := operands[0].Text()
				if extensions[name] {
					continue
				}
				extensions[name] = true
			case spirv.OpExtInstImport:
				name := operands[1].Text()
				if first, ok := extInsts[name]; ok {
					aliases[inst.ResultID()] = first
					continue
				}
				extInsts[name] = inst.ResultID()
			case spirv.OpEntryPoint:
				key := entryKey{
					model: spirv.ExecutionModel(operands[0].Literal()),
					name:  operands[2].Text(),
				}
				if entryPoints[key] {
					skipped[operands[1].ID()] = true
					continue
				}
				entryPoints[key] = true
			case spirv.OpExecutionMode:
				if skipped[operands[0].ID()] {
					continue
				}
			}
			decl.Append(inst)
		}

		for name, body := range m.Functions() {
			if first, ok := functions[name]; ok {
				return nil, &MergeConflictError{Kind: "function", Name: name, First: first, Second: u.Name}
			}
			functions[name] = u.Name
			merged := out.AddFunction(name)
			for _, inst := range body.Instructions() {
				if !inst.IsNop() {
					merged.Append(inst)
				}
			}
		}
	}

	for _, imp := range imports {
		def, ok := definitions[imp.name]
		if !ok {
			return nil, &UnresolvedImportError{Name: imp.name, Unit: imp.unit}
		}
		aliases[imp.id] = def
	}

	if len(aliases) > 0 {
		rewrite := func(id spirv.ID) spirv.ID {
			if to, ok := aliases[id]; ok {
				return to
			}
			return id
		}
		for _, stream := range out.Streams() {
			if _, err := spirv.RemapIDs(stream, rewrite, false); err != nil {
				return nil, &InvariantError{Pass: "merge", Detail: "rewriting aliased references", Err: err}
			}
		}
	}

	out.RecomputeBound()
	return out, nil
}

type importRef struct {
	id   spirv.ID
	name string
	unit string
}

type globalVariable struct {
	name string
	id   spirv.ID
}

// globalVariables returns the named global variables of a module, from the
// placeholders generation emits or from the debug names of canonical ones.
func globalVariables(m *spirv.Module) []globalVariable {
	var (
		globals   []globalVariable
		variables []spirv.ID
		debug     = make(map[spirv.ID]string)
	)
	for inst := range m.Declarations() {
		switch inst.OpCode() {
		case spirv.OpSDSLVariable, spirv.OpSDSLIOVariable:
			if name := placeholderName(inst); name != "" {
				globals = append(globals, globalVariable{name: name, id: inst.ResultID()})
			}
		case spirv.OpVariable:
			variables = append(variables, inst.ResultID())
		case spirv.OpName:
			operands, err := inst.Operands()
			if err == nil {
				debug[operands[0].ID()] = operands[1].Text()
			}
		}
	}
	for _, id := range variables {
		if name := debug[id]; name != "" {
			globals = append(globals, globalVariable{name: name, id: id})
		}
	}
	return globals
}
