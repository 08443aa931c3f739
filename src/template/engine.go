// Package template renders job values into Jenkins-native job documents.
//
// Templates are Go text/templates named "<id>.tmpl". The built-in set is
// embedded in the binary; a directory on disk can replace it. Rendering is a
// pure function of the template and the data: no network access, no clock.
package template

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	txttemplate "text/template"

	"github.com/gurumnet/ci-jobs/src/config"
)

const templateExt = ".tmpl"

//go:embed templates/*.tmpl
var builtin embed.FS

// Expander renders a job document from a template and its data.
type Expander interface {
	Expand(templateID string, data map[string]any) ([]byte, error)
}

// ErrNotFound is wrapped by Error when a template id does not resolve.
var ErrNotFound = errors.New("template not found")

// Error reports a template that could not be resolved or rendered.
type Error struct {
	TemplateID string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template %s: %v", e.TemplateID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Engine is the text/template Expander.
type Engine struct {
	fsys  fs.FS
	funcs txttemplate.FuncMap

	mu     sync.Mutex
	parsed map[string]*txttemplate.Template
}

// New returns an engine over dir, or over the embedded templates when dir is empty.
func New(dir string) (*Engine, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(builtin, "templates")
		if err != nil {
			return nil, config.Precondition(err, "loading built-in templates")
		}
		fsys = sub
	} else {
		fi, err := os.Stat(dir)
		if err != nil {
			return nil, config.Precondition(err, "template directory")
		}
		if !fi.IsDir() {
			return nil, &config.PreconditionError{Reason: fmt.Sprintf("template directory %s is not a directory", dir)}
		}
		fsys = os.DirFS(dir)
	}
	return NewFS(fsys), nil
}

// NewFS returns an engine reading templates from fsys.
func NewFS(fsys fs.FS) *Engine {
	return &Engine{
		fsys:   fsys,
		funcs:  FuncMap(),
		parsed: make(map[string]*txttemplate.Template),
	}
}

// Expand renders templateID with data. Every field the template references
// must be present in data.
func (e *Engine) Expand(templateID string, data map[string]any) ([]byte, error) {
	t, err := e.lookup(templateID)
	if err != nil {
		return nil, &Error{TemplateID: templateID, Err: err}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, &Error{TemplateID: templateID, Err: err}
	}
	return buf.Bytes(), nil
}

// Has reports whether templateID resolves and parses.
func (e *Engine) Has(templateID string) error {
	if _, err := e.lookup(templateID); err != nil {
		return &Error{TemplateID: templateID, Err: err}
	}
	return nil
}

// Templates lists the available template ids.
func (e *Engine) Templates() ([]string, error) {
	matches, err := fs.Glob(e.fsys, "*"+templateExt)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(m, templateExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (e *Engine) lookup(templateID string) (*txttemplate.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.parsed[templateID]; ok {
		return t, nil
	}
	if templateID == "" || strings.ContainsAny(templateID, `/\`) {
		return nil, fmt.Errorf("%w: invalid id %q", ErrNotFound, templateID)
	}

	src, err := fs.ReadFile(e.fsys, templateID+templateExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	t, err := txttemplate.New(templateID).
		Option("missingkey=error").
		Funcs(e.funcs).
		Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	e.parsed[templateID] = t
	return t, nil
}
