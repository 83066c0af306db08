// Package diff computes line-level edit scripts between two texts and renders
// them as unified patches. It uses github.com/pmezard/go-difflib/difflib for
// the matching and produces classic unified output (---/+++ headers, @@ hunks,
// lines prefixed with ' ', '-', '+').
//
// Direction is fixed: a is the "before" side (the stored snapshot) and b the
// "after" side (the current file). Insert means present in b only.
package diff

import (
	"errors"
	"fmt"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Kind tags one line of an edit script.
type Kind int

const (
	Equal Kind = iota
	Insert
	Delete
)

func (k Kind) String() string {
	switch k {
	case Equal:
		return "equal"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// prefix is the unified-diff marker for the kind.
func (k Kind) prefix() string {
	switch k {
	case Insert:
		return "+"
	case Delete:
		return "-"
	}
	return " "
}

// Line is one tagged line of an edit script. Text has no trailing newline.
type Line struct {
	Kind Kind
	Text string
}

func (l Line) String() string { return l.Kind.prefix() + l.Text }

// Script is an ordered edit script turning a into b. It is empty when the
// two sides are identical; otherwise it lists every line of both sides.
type Script []Line

// Counts returns the number of inserted and deleted lines.
func (s Script) Counts() (ins, del int) {
	for _, l := range s {
		switch l.Kind {
		case Insert:
			ins++
		case Delete:
			del++
		}
	}
	return ins, del
}

// Invert returns the script for the opposite direction (b to a).
func (s Script) Invert() Script {
	if s == nil {
		return nil
	}
	out := make(Script, len(s))
	for i, l := range s {
		switch l.Kind {
		case Insert:
			l.Kind = Delete
		case Delete:
			l.Kind = Insert
		}
		out[i] = l
	}
	return out
}

// ErrMismatch is returned by Apply when the script does not describe a.
var ErrMismatch = errors.New("edit script does not match input")

// Apply replays s over a and returns the after side.
func Apply(a []string, s Script) ([]string, error) {
	if len(s) == 0 {
		return append([]string(nil), a...), nil
	}
	out := make([]string, 0, len(s))
	i := 0
	for n, l := range s {
		switch l.Kind {
		case Insert:
			out = append(out, l.Text)
		case Equal, Delete:
			if i >= len(a) || a[i] != l.Text {
				return nil, fmt.Errorf("line %d: %w", n+1, ErrMismatch)
			}
			if l.Kind == Equal {
				out = append(out, l.Text)
			}
			i++
		}
	}
	if i != len(a) {
		return nil, fmt.Errorf("%d lines left over: %w", len(a)-i, ErrMismatch)
	}
	return out, nil
}

// Diff is the result of one comparison. Script and the unified rendering
// come from matchers built by newMatcher over the same lines, which yield
// identical opcodes, so they always agree.
type Diff struct {
	Script Script

	a, b []string
}

// Compute matches a against b and builds the edit script.
func Compute(a, b []string) *Diff {
	return &Diff{
		Script: scriptFrom(a, b, newMatcher(a, b).GetOpCodes()),
		a:      a,
		b:      b,
	}
}

// newMatcher matches without the autojunk heuristic, so frequent lines
// still take part in matching.
func newMatcher(a, b []string) *difflib.SequenceMatcher {
	return difflib.NewMatcherWithJunk(a, b, false, nil)
}

// Changed reports whether the two sides differ.
func (d *Diff) Changed() bool { return len(d.Script) > 0 }

func scriptFrom(a, b []string, ops []difflib.OpCode) Script {
	changed := false
	for _, op := range ops {
		if op.Tag != 'e' {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	var s Script
	for _, op := range ops {
		switch op.Tag {
		case 'e':
			s = appendLines(s, Equal, a[op.I1:op.I2])
		case 'd':
			s = appendLines(s, Delete, a[op.I1:op.I2])
		case 'i':
			s = appendLines(s, Insert, b[op.J1:op.J2])
		case 'r':
			s = appendLines(s, Delete, a[op.I1:op.I2])
			s = appendLines(s, Insert, b[op.J1:op.J2])
		}
	}
	return s
}

func appendLines(s Script, k Kind, lines []string) Script {
	for _, l := range lines {
		s = append(s, Line{Kind: k, Text: l})
	}
	return s
}
