package decode

import (
	"errors"
	"fmt"
	"strings"

	"setbreak/internal/services"
)

// Kind classifies decode failures.
type Kind int

const (
	KindUnsupportedFormat Kind = iota + 1
	KindCorruptFile
	KindBitstreamMisclassified
	KindExternalToolFailure
)

var (
	ErrUnsupportedFormat      = errors.New("unsupported format")
	ErrCorruptFile            = errors.New("corrupt file")
	ErrBitstreamMisclassified = errors.New("bitstream misclassified")
	ErrExternalToolFailure    = errors.New("external decoder failed")
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindCorruptFile:
		return "corrupt_file"
	case KindBitstreamMisclassified:
		return "bitstream_misclassified"
	case KindExternalToolFailure:
		return "external_tool_failure"
	default:
		return "decode_failure"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnsupportedFormat:
		return ErrUnsupportedFormat
	case KindCorruptFile:
		return ErrCorruptFile
	case KindBitstreamMisclassified:
		return ErrBitstreamMisclassified
	case KindExternalToolFailure:
		return ErrExternalToolFailure
	default:
		return nil
	}
}

// Error is returned for every decode failure. It matches its kind's sentinel
// and services.ErrDecode with errors.Is; external tool failures also match
// services.ErrExternalTool.
type Error struct {
	Kind   Kind
	Path   string
	Code   int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("decode failed")
	}
	if e.Kind == KindExternalToolFailure {
		fmt.Fprintf(&b, " (exit code %d)", e.Code)
	}
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := []error{services.ErrDecode}
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Kind == KindExternalToolFailure {
		errs = append(errs, services.ErrExternalTool)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorKind implements the classification hook read by services.ErrorKind.
func (e *Error) ErrorKind() string {
	return e.Kind.String()
}

func corrupt(path string, err error) *Error {
	return &Error{Kind: KindCorruptFile, Path: path, Err: err}
}
