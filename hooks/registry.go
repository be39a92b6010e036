// Package hooks provides a named registry for value transformers and model
// load hooks. Configuration files reference them by name; library users may
// register their own before running an import or export.
package hooks

import (
	"errors"
	"fmt"
	"sync"

	"github.com/useblocks/emfbridge/ecore"
	"github.com/useblocks/emfbridge/xmi"
)

// Common registry errors.
var (
	// ErrUnknownTransformer is returned when a config references a
	// transformer name that was never registered.
	ErrUnknownTransformer = errors.New("unknown transformer")

	// ErrUnknownHook is returned when a config references a hook name that
	// was never registered.
	ErrUnknownHook = errors.New("unknown hook")
)

// Context carries state across transformer invocations of one run.
type Context struct {
	// NeedIDByModelID maps xmi:id to need id for already visited objects.
	NeedIDByModelID map[string]string
	// ModelIDByNeedID is the inverse of NeedIDByModelID.
	ModelIDByNeedID map[string]string
	// Values is free space for user transformers.
	Values map[string]any
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{
		NeedIDByModelID: make(map[string]string),
		ModelIDByNeedID: make(map[string]string),
		Values:          make(map[string]any),
	}
}

// Names of the built-in transformers.
const (
	TransformerEscapeRST      = "escape_rst"
	TransformerRSTToPlain     = "rst_to_plain"
	TransformerHTMLToMarkdown = "html_to_markdown"
	TransformerTrim           = "trim"
	TransformerUpper          = "upper"
)

// Transformer rewrites one field value during import. obj is the model
// object the value came from, for transformers that need sibling fields.
type Transformer func(value string, obj *xmi.Object, ctx *Context) (string, error)

// PreLoadHook runs after the metamodel is loaded and before the instance
// model is read. It may patch the package.
type PreLoadHook func(pkg *ecore.Package) error

// PostLoadHook runs after the instance model is read. It may filter or
// reorder the model roots.
type PostLoadHook func(roots []*xmi.Object) ([]*xmi.Object, error)

// Registry maps names to transformers and hooks.
type Registry struct {
	mu           sync.RWMutex
	transformers map[string]Transformer
	preHooks     map[string]PreLoadHook
	postHooks    map[string]PostLoadHook
}

// DefaultRegistry is the global registry preloaded with the built-in
// transformers.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry with the built-in transformers registered.
func NewRegistry() *Registry {
	r := &Registry{
		transformers: make(map[string]Transformer),
		preHooks:     make(map[string]PreLoadHook),
		postHooks:    make(map[string]PostLoadHook),
	}
	r.RegisterTransformer(TransformerEscapeRST, EscapeRST)
	r.RegisterTransformer(TransformerRSTToPlain, RSTToPlain)
	r.RegisterTransformer(TransformerHTMLToMarkdown, HTMLToMarkdown)
	r.RegisterTransformer(TransformerTrim, Trim)
	r.RegisterTransformer(TransformerUpper, Upper)
	return r
}

// RegisterTransformer adds or replaces a named transformer.
func (r *Registry) RegisterTransformer(name string, t Transformer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[name] = t
}

// RegisterPreLoadHook adds or replaces a named pre-load hook.
func (r *Registry) RegisterPreLoadHook(name string, h PreLoadHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preHooks[name] = h
}

// RegisterPostLoadHook adds or replaces a named post-load hook.
func (r *Registry) RegisterPostLoadHook(name string, h PostLoadHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postHooks[name] = h
}

// Transformer resolves a transformer by name.
func (r *Registry) Transformer(name string) (Transformer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transformers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransformer, name)
	}
	return t, nil
}

// HasTransformer reports whether a transformer name is registered.
func (r *Registry) HasTransformer(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transformers[name]
	return ok
}

// PreLoadHook resolves a pre-load hook by name.
func (r *Registry) PreLoadHook(name string) (PreLoadHook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.preHooks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHook, name)
	}
	return h, nil
}

// PostLoadHook resolves a post-load hook by name.
func (r *Registry) PostLoadHook(name string) (PostLoadHook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.postHooks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHook, name)
	}
	return h, nil
}
