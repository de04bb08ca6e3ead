package envelope

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/trekhums/internal/domain/model"
)

// ErrTrashInput marks a document rejected by the entity gate. It is never
// parsed and never answered.
var ErrTrashInput = errors.New("document contains an entity declaration")

// ErrNoContent is returned when serializing an envelope without content.
var ErrNoContent = errors.New("envelope has no content")

// ValidationError lists the mandatory fields a build request left empty or
// invalid. Nothing is emitted when it is returned.
type ValidationError struct {
	Kind   model.Kind
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s envelope: %s", e.Kind, strings.Join(e.Fields, ", "))
}

// Problem is one missing or invalid field of an inbound document.
type Problem struct {
	Path   string
	Reason string
}

// String renders the problem the way it appears in observation remarks.
func (p Problem) String() string {
	return "Reason: " + p.Reason + " Path: " + p.Path
}

// ParseFailure aggregates every problem found in an inbound document.
type ParseFailure struct {
	Problems []Problem
}

func (f *ParseFailure) Error() string {
	lines := make([]string, len(f.Problems))
	for i, p := range f.Problems {
		lines[i] = p.String()
	}
	return fmt.Sprintf("%d problem(s) in message envelope: %s", len(f.Problems), strings.Join(lines, "; "))
}

// Paths returns the field path of every problem, in discovery order.
func (f *ParseFailure) Paths() []string {
	out := make([]string, len(f.Problems))
	for i, p := range f.Problems {
		out[i] = p.Path
	}
	return out
}

// Add appends a problem.
func (f *ParseFailure) Add(path, reason string) {
	f.Problems = append(f.Problems, Problem{Path: path, Reason: reason})
}

// Merge appends the problems of other, if any.
func (f *ParseFailure) Merge(other []Problem) {
	f.Problems = append(f.Problems, other...)
}
