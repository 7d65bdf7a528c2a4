package ast

import (
	"fmt"
	"strings"
)

// SourceError represents an error with source location information.
type SourceError struct {
	// Mixin is the shader the error was found in.
	Mixin   string
	Message string
	Span    Span
	Source  string // Original source code (for context display)
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	prefix := ""
	if e.Mixin != "" {
		prefix = e.Mixin + ":"
	}
	if e.Span.Start.Line == 0 {
		if prefix != "" {
			return prefix + " " + e.Message
		}
		return e.Message
	}
	return fmt.Sprintf("%s%d:%d: %s", prefix, e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// FormatWithContext returns the error message with source context.
// Shows the problematic line with a caret pointing to the error location.
func (e *SourceError) FormatWithContext() string {
	if e.Source == "" || e.Span.Start.Line == 0 {
		return e.Error()
	}

	lines := strings.Split(e.Source, "\n")
	lineNum := e.Span.Start.Line
	if lineNum < 1 || lineNum > len(lines) {
		return e.Error()
	}

	line := lines[lineNum-1]
	col := min(max(e.Span.Start.Column, 1), len(line)+1)

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s\n", e.Message)
	if e.Mixin != "" {
		fmt.Fprintf(&sb, "  --> %s, line %d:%d\n", e.Mixin, lineNum, col)
	} else {
		fmt.Fprintf(&sb, "  --> line %d:%d\n", lineNum, col)
	}
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))

	return sb.String()
}

// Errorf creates a SourceError located at node inside shader s.
func Errorf(s *Shader, node Node, format string, args ...any) *SourceError {
	err := &SourceError{Message: fmt.Sprintf(format, args...)}
	if s != nil {
		err.Mixin = s.Name
		err.Source = s.Source
	}
	if node != nil {
		err.Span = node.Pos()
	}
	return err
}
