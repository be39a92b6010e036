// Package transform implements the mapping engine between XMI instance
// graphs and need trees, driven by the class mapping table in the
// configuration.
package transform

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/useblocks/emfbridge/config"
	"github.com/useblocks/emfbridge/ecore"
	"github.com/useblocks/emfbridge/hooks"
	"github.com/useblocks/emfbridge/needs"
	"github.com/useblocks/emfbridge/xmi"
)

// Document is one routed RST output: the file it goes to and the needs it
// contains.
type Document struct {
	// Path is the output file name relative to the output dir.
	Path string
	// Needs are the root needs of the file, in model order.
	Needs []*needs.Need
}

// Importer converts a loaded XMI model into need trees routed over the
// configured output files.
type Importer struct {
	cfg *config.Config
	pkg *ecore.Package
	reg *hooks.Registry
	log *slog.Logger

	classByType map[string]string
	ctx         *hooks.Context
	idx         map[string]*xmi.Object
	needIDs     map[*xmi.Object]string
	linked      map[string]map[string]bool
	// floating holds needs built for containment features mapped as link
	// options; they are emitted as roots so the fan-out can place them.
	floating []*needs.Need
}

// NewImporter validates the mapping table against the metamodel and the
// hook registry and returns a ready importer.
func NewImporter(cfg *config.Config, pkg *ecore.Package, reg *hooks.Registry, log *slog.Logger) (*Importer, error) {
	classByType, err := cfg.NeedTypeToClass()
	if err != nil {
		return nil, err
	}
	if err := checkMappings(cfg, pkg, reg); err != nil {
		return nil, err
	}
	return &Importer{
		cfg:         cfg,
		pkg:         pkg,
		reg:         reg,
		log:         log,
		classByType: classByType,
	}, nil
}

// checkMappings verifies every mapped class and field against the
// metamodel and every transformer name against the registry.
func checkMappings(cfg *config.Config, pkg *ecore.Package, reg *hooks.Registry) error {
	for _, name := range cfg.TransformerNames() {
		if !reg.HasTransformer(name) {
			return fmt.Errorf("%w: %s", hooks.ErrUnknownTransformer, name)
		}
	}
	for className, m := range cfg.Classes {
		class, err := pkg.Class(className)
		if err != nil {
			return err
		}
		if err := checkField(class, m.ID.Field); err != nil {
			return err
		}
		if m.Title.Field != "" {
			if err := checkField(class, m.Title.Field); err != nil {
				return err
			}
		}
		for _, fm := range m.Options {
			if err := checkField(class, fm.Field); err != nil {
				return err
			}
		}
		for _, fm := range m.Content {
			if err := checkField(class, fm.Field); err != nil {
				return err
			}
			if ref := class.Reference(fm.Field); ref != nil && !ref.Containment {
				return fmt.Errorf("%w: %s.%s is a non-containment reference and must be mapped in options",
					ErrUnknownField, class.Name, fm.Field)
			}
		}
	}
	return nil
}

func checkField(class *ecore.Class, field string) error {
	if field == config.XMIIDField {
		return nil
	}
	if class.Attribute(field) == nil && class.Reference(field) == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, class.Name, field)
	}
	return nil
}

// Run walks the model and returns the routed documents.
func (im *Importer) Run(m *xmi.Model) ([]Document, error) {
	im.ctx = hooks.NewContext()
	im.idx = m.Index()
	im.needIDs = make(map[*xmi.Object]string)
	im.floating = nil
	im.linked = make(map[string]map[string]bool)
	for className, cm := range im.cfg.Classes {
		if cm.Settings.RemoveIfUnlinked {
			im.linked[className] = make(map[string]bool)
		}
	}

	var roots []*needs.Need
	for _, obj := range m.Roots {
		if !allowed(im.cfg, obj) {
			im.log.Debug("skipping filtered root", "class", obj.Class.Name, "id", obj.ID)
			continue
		}
		n, err := im.buildNeed(obj)
		if err != nil {
			return nil, err
		}
		roots = append(roots, n)
	}
	roots = append(roots, im.floating...)

	kept := roots[:0]
	for _, n := range roots {
		if im.prune(n) {
			kept = append(kept, n)
		}
	}

	return im.route(kept)
}

// Context returns the id tables of the last run.
func (im *Importer) Context() *hooks.Context {
	return im.ctx
}

func (im *Importer) buildNeed(obj *xmi.Object) (*needs.Need, error) {
	mapping := im.cfg.Classes[obj.Class.Name]

	id, err := im.needID(obj)
	if err != nil {
		return nil, err
	}
	title := id
	if mapping.Title.Field != "" {
		title, err = im.fieldValue(obj, mapping.Title.Field, mapping.Title.Transformer)
		if err != nil {
			return nil, err
		}
		if title == "" {
			title = id
		}
	}

	n := &needs.Need{ID: id, Type: mapping.NeedType, Title: title}
	im.ctx.NeedIDByModelID[obj.ID] = id
	im.ctx.ModelIDByNeedID[id] = obj.ID

	// static options first, in name order; field-mapped values override
	for _, name := range sortedKeys(mapping.Static) {
		n.Options = append(n.Options, needs.Option{Name: name, Value: mapping.Static[name]})
	}

	for _, fm := range mapping.Options {
		if ref := obj.Class.Reference(fm.Field); ref != nil {
			if err := im.buildLinkOption(obj, n, fm, ref); err != nil {
				return nil, err
			}
			continue
		}
		value, set, err := im.attrValue(obj, fm)
		if err != nil {
			return nil, err
		}
		if set {
			n.SetOption(fm.Target, value)
		}
	}

	for _, fm := range mapping.Content {
		if ref := obj.Class.Reference(fm.Field); ref != nil {
			if err := im.buildNestedGroup(obj, n, fm); err != nil {
				return nil, err
			}
			continue
		}
		value, set, err := im.attrValue(obj, fm)
		if err != nil {
			return nil, err
		}
		if set {
			n.Content = append(n.Content, needs.Section{Title: fm.Target, Text: value})
		}
	}
	return n, nil
}

// buildLinkOption turns a reference feature into a need link option. For
// containment features this detaches the children into floating needs so
// the fan-out can write them to their own files.
func (im *Importer) buildLinkOption(obj *xmi.Object, n *needs.Need, fm config.FieldMap, ref *ecore.Reference) error {
	targets := im.refTargets(obj, ref)
	if len(targets) == 0 {
		return nil
	}

	var ids []string
	for _, target := range targets {
		id, err := im.needID(target)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		im.markLinked(obj.Class.Name, target.Class.Name, id)
		if ref.Containment {
			child, err := im.buildNeed(target)
			if err != nil {
				return err
			}
			im.floating = append(im.floating, child)
		}
	}
	if len(ids) > 0 {
		n.Links = append(n.Links, needs.LinkOption{Name: fm.Target, Targets: ids})
	}
	return nil
}

func (im *Importer) buildNestedGroup(obj *xmi.Object, n *needs.Need, fm config.FieldMap) error {
	children := append([]*xmi.Object(nil), obj.Children(fm.Field)...)
	sortObjectsNatural(children, im.cfg.SortField)

	var nested []*needs.Need
	for _, child := range children {
		if !allowed(im.cfg, child) {
			continue
		}
		inner, err := im.buildNeed(child)
		if err != nil {
			return err
		}
		nested = append(nested, inner)
	}
	if len(nested) > 0 {
		n.Nested = append(n.Nested, needs.NestedGroup{Title: fm.Target, Needs: nested})
	}
	return nil
}

// refTargets resolves and orders the targets of a reference, filtered by
// the import filters.
func (im *Importer) refTargets(obj *xmi.Object, ref *ecore.Reference) []*xmi.Object {
	var targets []*xmi.Object
	if ref.Containment {
		targets = append(targets, obj.Children(ref.Name)...)
	} else {
		for _, id := range obj.Refs(ref.Name) {
			if target, ok := im.idx[id]; ok {
				targets = append(targets, target)
			}
		}
	}
	sortObjectsNatural(targets, im.cfg.SortField)

	kept := targets[:0]
	for _, t := range targets {
		if allowed(im.cfg, t) {
			kept = append(kept, t)
		}
	}
	return kept
}

// markLinked records a link target for remove-if-unlinked tracking.
// Links from classes the target's mapping lists as ignored sources do
// not count.
func (im *Importer) markLinked(source, target, needID string) {
	set, ok := im.linked[target]
	if !ok {
		return
	}
	for _, ignored := range im.cfg.Classes[target].Settings.RemoveIgnoredLinkSources {
		if ignored == source {
			return
		}
	}
	set[needID] = true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// needID computes (and memoizes) the need id of an object from its id
// mapping.
func (im *Importer) needID(obj *xmi.Object) (string, error) {
	if id, ok := im.needIDs[obj]; ok {
		return id, nil
	}
	mapping := im.cfg.Classes[obj.Class.Name]
	id, err := im.fieldValue(obj, mapping.ID.Field, mapping.ID.Transformer)
	if err != nil {
		return "", err
	}
	im.needIDs[obj] = id
	return id, nil
}

func (im *Importer) fieldValue(obj *xmi.Object, field, transformer string) (string, error) {
	var value string
	if field == config.XMIIDField {
		value = obj.ID
	} else {
		value, _ = obj.Attr(field)
	}
	if transformer == "" {
		return value, nil
	}
	t, err := im.reg.Transformer(transformer)
	if err != nil {
		return "", err
	}
	out, err := t(value, obj, im.ctx)
	if err != nil {
		return "", fmt.Errorf("transformer %s on %s.%s: %w", transformer, obj.Class.Name, field, err)
	}
	return out, nil
}

// attrValue reads a scalar field value, reporting whether it is set.
func (im *Importer) attrValue(obj *xmi.Object, fm config.FieldMap) (string, bool, error) {
	if fm.Field == config.XMIIDField {
		value, err := im.fieldValue(obj, fm.Field, fm.Transformer)
		return value, true, err
	}
	value, set := obj.Attr(fm.Field)
	if !set {
		// fall back to the metamodel default so needs show the effective
		// value
		if attr := obj.Class.Attribute(fm.Field); attr != nil && attr.Default != "" {
			value, set = attr.Default, true
		}
	}
	if !set {
		return "", false, nil
	}
	if fm.Transformer != "" {
		t, err := im.reg.Transformer(fm.Transformer)
		if err != nil {
			return "", false, err
		}
		value, err = t(value, obj, im.ctx)
		if err != nil {
			return "", false, fmt.Errorf("transformer %s on %s.%s: %w", fm.Transformer, obj.Class.Name, fm.Field, err)
		}
	}
	return value, true, nil
}

// prune applies the remove-if-unlinked settings bottom up. It returns
// false when the need (and everything nested in it) should be dropped.
func (im *Importer) prune(n *needs.Need) bool {
	for gi := range n.Nested {
		group := &n.Nested[gi]
		kept := group.Needs[:0]
		for _, inner := range group.Needs {
			if im.prune(inner) {
				kept = append(kept, inner)
			}
		}
		group.Needs = kept
	}
	groups := n.Nested[:0]
	for _, g := range n.Nested {
		if len(g.Needs) > 0 {
			groups = append(groups, g)
		}
	}
	n.Nested = groups

	class := im.classByType[n.Type]
	set, tracked := im.linked[class]
	if !tracked {
		return true
	}
	return set[n.ID]
}

// route distributes the need forest over the configured output files.
// Every need goes to the file claiming its class (list order breaks
// ties), independent of where its parent goes. Needs detached from a
// parent's nested group leave a link option behind, named after the
// group, so the export can restore the containment.
func (im *Importer) route(roots []*needs.Need) ([]Document, error) {
	if len(im.cfg.Output.Files) == 0 {
		return []Document{{Path: "index.rst", Needs: roots}}, nil
	}

	docs := make([]Document, len(im.cfg.Output.Files))
	defaultIdx := -1
	claim := make(map[string]int)
	for i, f := range im.cfg.Output.Files {
		docs[i] = Document{Path: f.Path}
		if f.Default {
			defaultIdx = i
		}
		for _, class := range f.Types {
			if _, ok := claim[class]; !ok {
				claim[class] = i
			}
		}
	}
	fileFor := func(n *needs.Need) (int, error) {
		class := im.classByType[n.Type]
		if i, ok := claim[class]; ok {
			return i, nil
		}
		if defaultIdx >= 0 {
			return defaultIdx, nil
		}
		return 0, fmt.Errorf("%w: no output file for class %s", ErrClassNotMapped, class)
	}

	for _, root := range roots {
		idx, err := fileFor(root)
		if err != nil {
			return nil, err
		}
		docs[idx].Needs = append(docs[idx].Needs, root)
		if err := im.detachRouted(root, idx, docs, fileFor); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// detachRouted moves nested needs claimed by another output file to that
// file's root list, recording the containment as a link option on the
// parent so no relationship is lost.
func (im *Importer) detachRouted(n *needs.Need, fileIdx int, docs []Document, fileFor func(*needs.Need) (int, error)) error {
	for gi := range n.Nested {
		group := &n.Nested[gi]
		kept := group.Needs[:0]
		var moved []string
		for _, inner := range group.Needs {
			idx, err := fileFor(inner)
			if err != nil {
				return err
			}
			if idx == fileIdx {
				kept = append(kept, inner)
			} else {
				moved = append(moved, inner.ID)
				docs[idx].Needs = append(docs[idx].Needs, inner)
			}
			if err := im.detachRouted(inner, idx, docs, fileFor); err != nil {
				return err
			}
		}
		group.Needs = kept
		if len(moved) > 0 {
			n.Links = append(n.Links, needs.LinkOption{Name: group.Title, Targets: moved})
		}
	}
	groups := n.Nested[:0]
	for _, g := range n.Nested {
		if len(g.Needs) > 0 {
			groups = append(groups, g)
		}
	}
	n.Nested = groups
	return nil
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}
