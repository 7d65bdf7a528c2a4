package lower

import (
	"fmt"

	"github.com/gogpu/mixer/ast"
)

// Register is one entry of the linear single-assignment form produced by
// lowering. Operands of later registers name earlier ones by their 1-based
// position in the sequence.
type Register interface {
	fmt.Stringer
	// Source returns the syntax node the register was lowered from.
	Source() ast.Node
	registerNode()
}

// ValueRegister produces a value: either a literal or a read of a named
// variable, parameter or member.
type ValueRegister struct {
	// Literal is set for literal values.
	Literal *ast.Literal
	// Name is set for reads of a named entity.
	Name string

	node ast.Node
}

func (r *ValueRegister) String() string {
	if r.Literal != nil {
		return "Value(" + r.Literal.Value + ")"
	}
	return "Value(" + r.Name + ")"
}

func (r *ValueRegister) Source() ast.Node { return r.node }
func (r *ValueRegister) registerNode()    {}

// OperationRegister applies a binary operator to two earlier registers.
type OperationRegister struct {
	Op    string
	Left  int
	Right int

	node ast.Node
}

func (r *OperationRegister) String() string {
	return fmt.Sprintf("Operation(%s, #%d, #%d)", r.Op, r.Left, r.Right)
}

func (r *OperationRegister) Source() ast.Node { return r.node }
func (r *OperationRegister) registerNode()    {}

// AssignRegister stores an earlier register into a named variable. Op is
// "=" or a compound operator such as "+=".
type AssignRegister struct {
	Name  string
	Op    string
	Value int

	node ast.Node
}

func (r *AssignRegister) String() string {
	return fmt.Sprintf("Assign(%s, %s, #%d)", r.Name, r.Op, r.Value)
}

func (r *AssignRegister) Source() ast.Node { return r.node }
func (r *AssignRegister) registerNode()    {}
