package compiler

import (
	"errors"
	"fmt"

	"github.com/ravi-parthasarathy/fbpgen/pkg/fbp"
)

// Kind classifies a Diagnostic.
type Kind int

const (
	ParseFailure Kind = iota + 1
	CatalogParseError
	TypeNotFound
	PortNotFound
	ArrayIndexRequired
	ArrayIndexOutOfBounds
	PortTypeMismatch
	InvalidOptionKey
	MalformedSuboption
	IndirectionFailure
	IOFailure
	DeclarationCycle
)

var kindNames = map[Kind]string{
	ParseFailure:          "ParseFailure",
	CatalogParseError:     "CatalogParseError",
	TypeNotFound:          "TypeNotFound",
	PortNotFound:          "PortNotFound",
	ArrayIndexRequired:    "ArrayIndexRequired",
	ArrayIndexOutOfBounds: "ArrayIndexOutOfBounds",
	PortTypeMismatch:      "PortTypeMismatch",
	InvalidOptionKey:      "InvalidOptionKey",
	MalformedSuboption:    "MalformedSuboption",
	IndirectionFailure:    "IndirectionFailure",
	IOFailure:             "IOFailure",
	DeclarationCycle:      "DeclarationCycle",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Recoverable reports whether diagnostics of this kind are only warnings.
func (k Kind) Recoverable() bool {
	return k == CatalogParseError || k == MalformedSuboption
}

// Diagnostic is a positioned compiler error or warning.
type Diagnostic struct {
	Kind    Kind
	File    string
	Pos     fbp.Position
	Message string
	Err     error
}

func (d *Diagnostic) Error() string {
	switch {
	case d.File != "" && d.Pos.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Pos.Line, d.Pos.Column, d.Message)
	case d.File != "":
		return fmt.Sprintf("%s: %s", d.File, d.Message)
	}
	return d.Message
}

func (d *Diagnostic) Unwrap() error { return d.Err }

func diagf(kind Kind, file string, pos fbp.Position, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, File: file, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first Diagnostic in err's chain, or 0.
func KindOf(err error) Kind {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Kind
	}
	return 0
}
