// Package validate checks a schema corpus beyond what compilation needs.
//
// The findings of a Validator are warnings (W006). A validator that cannot
// run returns an error, and the caller decides whether that matters; the
// compilation itself never depends on one.
package validate

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/graph"
)

// DefaultCommand is the external validator looked up on PATH.
const DefaultCommand = "nickel"

// Validator checks a compiled graph.
type Validator interface {
	Validate(ctx context.Context, g *graph.Graph) ([]diag.Diagnostic, error)
}

// Config selects a validator.
type Config struct {
	// Command is the external validator binary. Defaults to DefaultCommand.
	Command string
	Args    []string
	// Root is the directory the schema paths are relative to.
	Root string
}

// New returns the external validator when its binary is on PATH and the
// in-process one otherwise.
func New(cfg Config) Validator {
	if path, err := exec.LookPath(cmp.Or(cfg.Command, DefaultCommand)); err == nil {
		return &ExternalValidator{Path: path, Args: cfg.Args, Dir: cfg.Root}
	}
	return &SchemaValidator{}
}

// ExternalValidator runs an external command. The command receives a
// JSON manifest of the corpus on stdin and reports one finding per line
// of output, as "subject: message".
type ExternalValidator struct {
	Path string
	Args []string
	Dir  string
}

type manifest struct {
	Hash    string          `json:"hash"`
	Schemas []manifestEntry `json:"schemas"`
}

type manifestEntry struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Validate implements Validator.
func (v *ExternalValidator) Validate(ctx context.Context, g *graph.Graph) ([]diag.Diagnostic, error) {
	m := manifest{Hash: g.Hash().String()}
	for _, n := range g.Nodes() {
		m.Schemas = append(m.Schemas, manifestEntry{ID: string(n.ID), Path: n.Path})
	}
	in, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, v.Path, v.Args...)
	cmd.Dir = v.Dir
	cmd.Stdin = bytes.NewReader(in)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	slogcontext.FromCtx(ctx).Debug("running validator", "command", v.Path, "schemas", len(m.Schemas))
	err = cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("validate: run %s: %w", v.Path, err)
	}
	findings := parseFindings(&out)
	if exitErr != nil && len(findings) == 0 {
		findings = append(findings, finding("corpus", fmt.Sprintf("%s exited with status %d", v.Path, exitErr.ExitCode())))
	}
	return findings, nil
}

func parseFindings(out *bytes.Buffer) []diag.Diagnostic {
	var findings []diag.Diagnostic
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		subject, message, ok := strings.Cut(line, ": ")
		if !ok {
			subject, message = "corpus", line
		}
		findings = append(findings, finding(subject, message))
	}
	return findings
}

func finding(subject, message string) diag.Diagnostic {
	return diag.Diagnostic{Severity: diag.Warning, Code: diag.ValidatorFinding, Subject: subject, Message: message}
}

// baseURL locates corpus documents for the JSON Schema compiler. It never
// resolves to a real file.
const baseURL = "file:///schemac/"

// SchemaValidator checks in process that every document compiles as a
// JSON Schema.
type SchemaValidator struct{}

// Validate implements Validator.
func (*SchemaValidator) Validate(ctx context.Context, g *graph.Graph) ([]diag.Diagnostic, error) {
	c := jsonschema.NewCompiler()
	c.UseLoader(jsonschema.SchemeURLLoader{})
	var findings []diag.Diagnostic
	var added []*graph.Node
	for _, n := range g.Nodes() {
		raw := g.Raw(n.ID)
		if raw == nil {
			continue
		}
		b, err := raw.MarshalJSON()
		if err != nil {
			return nil, err
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			findings = append(findings, finding(string(n.ID), err.Error()))
			continue
		}
		if err := c.AddResource(baseURL+n.Path, doc); err != nil {
			findings = append(findings, finding(string(n.ID), err.Error()))
			continue
		}
		added = append(added, n)
	}
	for _, n := range added {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := c.Compile(baseURL + n.Path); err != nil {
			findings = append(findings, finding(string(n.ID), firstLine(err.Error())))
		}
	}
	return findings, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
