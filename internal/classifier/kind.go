package classifier

import (
	"fmt"
	"strings"
)

// LineKind is the classification of one physical line.
type LineKind int

const (
	// Blank lines hold only whitespace and are outside any block comment.
	Blank LineKind = iota
	// Comment lines hold comment text and no code.
	Comment
	// Code lines hold code, possibly mixed with comments.
	Code
)

func (k LineKind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Comment:
		return "comment"
	case Code:
		return "code"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k LineKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseLineKind is the inverse of LineKind.String.
func ParseLineKind(s string) (LineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blank":
		return Blank, nil
	case "comment":
		return Comment, nil
	case "code":
		return Code, nil
	default:
		return Blank, fmt.Errorf("unknown line kind %q", s)
	}
}
