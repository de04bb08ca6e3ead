// Package validator runs an external XSD validator over inbound messages.
package validator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/okian/trekhums/internal/domain/envelope"
)

// ErrUnavailable marks a validator that could not run to completion.
var ErrUnavailable = errors.New("schema validator unavailable")

// Placeholders substituted in Command arguments.
const (
	SchemaPlaceholder = "{schema}"
	FilePlaceholder   = "{file}"
)

// DefaultArgs are the xmllint arguments for a schema check without network
// access.
var DefaultArgs = []string{"--noout", "--nonet", "--schema", SchemaPlaceholder, FilePlaceholder}

// Validator checks a document on disk against the authoritative schema.
type Validator interface {
	// Validate returns one problem per schema violation. A nil slice means
	// the document is valid.
	Validate(ctx context.Context, path string) ([]envelope.Problem, error)
}

// Noop accepts every document.
type Noop struct{}

// Validate implements Validator.
func (Noop) Validate(context.Context, string) ([]envelope.Problem, error) { return nil, nil }

// Command runs an external program, xmllint by default.
type Command struct {
	name    string
	args    []string
	schema  string
	timeout time.Duration
}

// Option applies a configuration option to Command.
type Option func(*Command)

// WithArgs replaces DefaultArgs.
func WithArgs(args ...string) Option {
	return func(c *Command) {
		if len(args) > 0 {
			c.args = args
		}
	}
}

// WithTimeout bounds each run.
func WithTimeout(d time.Duration) Option {
	return func(c *Command) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCommand constructs a Command running name against schema.
func NewCommand(name, schema string, opts ...Option) *Command {
	c := &Command{name: name, args: DefaultArgs, schema: schema, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// diagnostic matches "file:line: message" lines.
var diagnostic = regexp.MustCompile(`^(.*?):(\d+): (.+)$`)

// Validate implements Validator. Exit status 0 means valid; any other exit
// with diagnostics yields problems; a run that produced no diagnostics, was
// killed or could not start is ErrUnavailable.
func (c *Command) Validate(ctx context.Context, path string) ([]envelope.Problem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := make([]string, len(c.args))
	for i, a := range c.args {
		a = strings.ReplaceAll(a, SchemaPlaceholder, c.schema)
		args[i] = strings.ReplaceAll(a, FilePlaceholder, path)
	}
	cmd := exec.CommandContext(ctx, c.name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s timed out after %s", ErrUnavailable, c.name, c.timeout)
	}
	if err == nil {
		return nil, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	problems := Parse(out.Bytes())
	if len(problems) == 0 {
		return nil, fmt.Errorf("%w: %s exited with %d: %s", ErrUnavailable, c.name,
			exitErr.ExitCode(), strings.TrimSpace(out.String()))
	}
	return problems, nil
}

// Parse turns validator diagnostics into problems located by line.
func Parse(output []byte) []envelope.Problem {
	var problems []envelope.Problem
	sc := bufio.NewScanner(bytes.NewReader(output))
	for sc.Scan() {
		m := diagnostic.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		problems = append(problems, envelope.Problem{
			Path:   "line " + m[2],
			Reason: "schema: " + m[3],
		})
	}
	return problems
}
