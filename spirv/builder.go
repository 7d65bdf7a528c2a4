package spirv

import "math"

// AddCapability adds OpCapability.
func (b *WordBuffer) AddCapability(capability Capability) {
	b.Add(OpCapability, Lit(uint32(capability)))
}

// AddExtension adds OpExtension.
func (b *WordBuffer) AddExtension(name string) {
	b.Add(OpExtension, Str(name))
}

// AddExtInstImport imports an extended instruction set.
func (b *WordBuffer) AddExtInstImport(name string) ID {
	return b.Add(OpExtInstImport, Str(name))
}

// AddMemoryModel adds OpMemoryModel.
func (b *WordBuffer) AddMemoryModel(addressing AddressingModel, memory MemoryModel) {
	b.Add(OpMemoryModel, Lit(uint32(addressing)), Lit(uint32(memory)))
}

// AddEntryPoint adds an entry point.
func (b *WordBuffer) AddEntryPoint(execModel ExecutionModel, funcID ID, name string, interfaces ...ID) {
	args := []Arg{Lit(uint32(execModel)), Ref(funcID), Str(name)}
	for _, iface := range interfaces {
		args = append(args, Ref(iface))
	}
	b.Add(OpEntryPoint, args...)
}

// AddExecutionMode adds an execution mode.
func (b *WordBuffer) AddExecutionMode(entryPoint ID, mode ExecutionMode, params ...uint32) {
	args := []Arg{Ref(entryPoint), Lit(uint32(mode))}
	for _, param := range params {
		args = append(args, Lit(param))
	}
	b.Add(OpExecutionMode, args...)
}

// AddName adds a debug name.
func (b *WordBuffer) AddName(id ID, name string) {
	b.Add(OpName, Ref(id), Str(name))
}

// AddMemberName adds a debug member name.
func (b *WordBuffer) AddMemberName(structID ID, member uint32, name string) {
	b.Add(OpMemberName, Ref(structID), Lit(member), Str(name))
}

// AddDecorate adds a decoration.
func (b *WordBuffer) AddDecorate(id ID, decoration Decoration, params ...uint32) {
	args := []Arg{Ref(id), Lit(uint32(decoration))}
	for _, param := range params {
		args = append(args, Lit(param))
	}
	b.Add(OpDecorate, args...)
}

// AddMemberDecorate adds a member decoration.
func (b *WordBuffer) AddMemberDecorate(structID ID, member uint32, decoration Decoration, params ...uint32) {
	args := []Arg{Ref(structID), Lit(member), Lit(uint32(decoration))}
	for _, param := range params {
		args = append(args, Lit(param))
	}
	b.Add(OpMemberDecorate, args...)
}

// AddTypeVoid adds OpTypeVoid.
func (b *WordBuffer) AddTypeVoid() ID {
	return b.Add(OpTypeVoid)
}

// AddTypeBool adds OpTypeBool.
func (b *WordBuffer) AddTypeBool() ID {
	return b.Add(OpTypeBool)
}

// AddTypeFloat adds OpTypeFloat.
func (b *WordBuffer) AddTypeFloat(width uint32) ID {
	return b.Add(OpTypeFloat, Lit(width))
}

// AddTypeInt adds OpTypeInt.
func (b *WordBuffer) AddTypeInt(width uint32, signed bool) ID {
	var signedness uint32
	if signed {
		signedness = 1
	}
	return b.Add(OpTypeInt, Lit(width), Lit(signedness))
}

// AddTypeVector adds OpTypeVector.
func (b *WordBuffer) AddTypeVector(componentType ID, count uint32) ID {
	return b.Add(OpTypeVector, Ref(componentType), Lit(count))
}

// AddTypeMatrix adds OpTypeMatrix.
func (b *WordBuffer) AddTypeMatrix(columnType ID, columnCount uint32) ID {
	return b.Add(OpTypeMatrix, Ref(columnType), Lit(columnCount))
}

// AddTypeArray adds OpTypeArray. length is a constant ID.
func (b *WordBuffer) AddTypeArray(elementType ID, length ID) ID {
	return b.Add(OpTypeArray, Ref(elementType), Ref(length))
}

// AddTypePointer adds OpTypePointer.
func (b *WordBuffer) AddTypePointer(storageClass StorageClass, baseType ID) ID {
	return b.Add(OpTypePointer, Lit(uint32(storageClass)), Ref(baseType))
}

// AddTypeFunction adds OpTypeFunction.
func (b *WordBuffer) AddTypeFunction(returnType ID, paramTypes ...ID) ID {
	args := []Arg{Ref(returnType)}
	for _, paramType := range paramTypes {
		args = append(args, Ref(paramType))
	}
	return b.Add(OpTypeFunction, args...)
}

// AddTypeStruct adds OpTypeStruct.
func (b *WordBuffer) AddTypeStruct(memberTypes ...ID) ID {
	args := make([]Arg, 0, len(memberTypes))
	for _, memberType := range memberTypes {
		args = append(args, Ref(memberType))
	}
	return b.Add(OpTypeStruct, args...)
}

// AddConstant adds OpConstant.
func (b *WordBuffer) AddConstant(typeID ID, values ...uint32) ID {
	args := []Arg{Ref(typeID)}
	for _, value := range values {
		args = append(args, Lit(value))
	}
	return b.Add(OpConstant, args...)
}

// AddConstantFloat32 adds a 32-bit float constant.
func (b *WordBuffer) AddConstantFloat32(typeID ID, value float32) ID {
	return b.AddConstant(typeID, math.Float32bits(value))
}

// AddConstantBool adds OpConstantTrue or OpConstantFalse.
func (b *WordBuffer) AddConstantBool(typeID ID, value bool) ID {
	if value {
		return b.Add(OpConstantTrue, Ref(typeID))
	}
	return b.Add(OpConstantFalse, Ref(typeID))
}

// AddConstantComposite adds OpConstantComposite.
func (b *WordBuffer) AddConstantComposite(typeID ID, constituents ...ID) ID {
	args := []Arg{Ref(typeID)}
	for _, constituent := range constituents {
		args = append(args, Ref(constituent))
	}
	return b.Add(OpConstantComposite, args...)
}

// AddVariable adds OpVariable with an optional initializer (0 for none).
func (b *WordBuffer) AddVariable(pointerType ID, storageClass StorageClass, initID ID) ID {
	if initID != 0 {
		return b.Add(OpVariable, Ref(pointerType), Lit(uint32(storageClass)), Ref(initID))
	}
	return b.Add(OpVariable, Ref(pointerType), Lit(uint32(storageClass)))
}

// AddFunction adds OpFunction.
func (b *WordBuffer) AddFunction(funcType ID, returnType ID, control FunctionControl) ID {
	return b.Add(OpFunction, Ref(returnType), Lit(uint32(control)), Ref(funcType))
}

// AddFunctionParameter adds OpFunctionParameter.
func (b *WordBuffer) AddFunctionParameter(typeID ID) ID {
	return b.Add(OpFunctionParameter, Ref(typeID))
}

// AddLabel adds OpLabel.
func (b *WordBuffer) AddLabel() ID {
	return b.Add(OpLabel)
}

// AddReturn adds OpReturn.
func (b *WordBuffer) AddReturn() {
	b.Add(OpReturn)
}

// AddReturnValue adds OpReturnValue.
func (b *WordBuffer) AddReturnValue(valueID ID) {
	b.Add(OpReturnValue, Ref(valueID))
}

// AddFunctionEnd adds OpFunctionEnd.
func (b *WordBuffer) AddFunctionEnd() {
	b.Add(OpFunctionEnd)
}

// AddFunctionCall adds OpFunctionCall.
func (b *WordBuffer) AddFunctionCall(resultType ID, function ID, args ...ID) ID {
	operands := []Arg{Ref(resultType), Ref(function)}
	for _, arg := range args {
		operands = append(operands, Ref(arg))
	}
	return b.Add(OpFunctionCall, operands...)
}

// AddBinaryOp adds a binary operation instruction.
func (b *WordBuffer) AddBinaryOp(opcode OpCode, resultType ID, left ID, right ID) ID {
	return b.Add(opcode, Ref(resultType), Ref(left), Ref(right))
}

// AddUnaryOp adds a unary operation instruction.
func (b *WordBuffer) AddUnaryOp(opcode OpCode, resultType ID, operand ID) ID {
	return b.Add(opcode, Ref(resultType), Ref(operand))
}

// AddLoad adds OpLoad.
func (b *WordBuffer) AddLoad(resultType ID, pointer ID) ID {
	return b.Add(OpLoad, Ref(resultType), Ref(pointer))
}

// AddStore adds OpStore.
func (b *WordBuffer) AddStore(pointer ID, value ID) {
	b.Add(OpStore, Ref(pointer), Ref(value))
}

// AddBranch adds OpBranch.
func (b *WordBuffer) AddBranch(target ID) {
	b.Add(OpBranch, Ref(target))
}

// AddSDSLVariable adds a provisional variable whose storage class and
// pointer type are settled by the merge pipeline. initID may be 0.
func (b *WordBuffer) AddSDSLVariable(valueType ID, storageClass StorageClass, name string, initID ID) ID {
	if initID != 0 {
		return b.Add(OpSDSLVariable, Ref(valueType), Lit(uint32(storageClass)), Str(name), Ref(initID))
	}
	return b.Add(OpSDSLVariable, Ref(valueType), Lit(uint32(storageClass)), Str(name))
}

// AddSDSLFunctionParameter adds a provisional function parameter.
func (b *WordBuffer) AddSDSLFunctionParameter(valueType ID, name string) ID {
	return b.Add(OpSDSLFunctionParameter, Ref(valueType), Str(name))
}

// AddSDSLIOVariable adds a provisional stage input or output.
func (b *WordBuffer) AddSDSLIOVariable(valueType ID, storageClass StorageClass, location uint32, name string) ID {
	return b.Add(OpSDSLIOVariable, Ref(valueType), Lit(uint32(storageClass)), Lit(location), Str(name))
}

// AddSDSLImportVariable adds a reference to a member another mixin declares
// under linkName.
func (b *WordBuffer) AddSDSLImportVariable(valueType ID, linkName string) ID {
	return b.Add(OpSDSLImportVariable, Ref(valueType), Str(linkName))
}
