package transform

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/useblocks/emfbridge/config"
	"github.com/useblocks/emfbridge/ecore"
	"github.com/useblocks/emfbridge/hooks"
	"github.com/useblocks/emfbridge/needs"
	"github.com/useblocks/emfbridge/xmi"
)

// Exporter rebuilds an XMI model from need trees, inverting the class
// mapping table.
type Exporter struct {
	cfg *config.Config
	pkg *ecore.Package
	reg *hooks.Registry
	log *slog.Logger

	classByType map[string]string
	ctx         *hooks.Context
	byID        map[string]*needs.Need
	built       map[string]*xmi.Object
}

// NewExporter validates the mapping table and returns a ready exporter.
func NewExporter(cfg *config.Config, pkg *ecore.Package, reg *hooks.Registry, log *slog.Logger) (*Exporter, error) {
	classByType, err := cfg.NeedTypeToClass()
	if err != nil {
		return nil, err
	}
	if err := checkMappings(cfg, pkg, reg); err != nil {
		return nil, err
	}
	return &Exporter{
		cfg:         cfg,
		pkg:         pkg,
		reg:         reg,
		log:         log,
		classByType: classByType,
	}, nil
}

// Run builds a model from the need forest. Only needs whose mapped class
// is a configured model root become XMI roots; everything else is reached
// through containment.
func (ex *Exporter) Run(trees []*needs.Need) (*xmi.Model, error) {
	ex.ctx = hooks.NewContext()
	ex.byID = needs.IndexByID(trees)
	ex.built = make(map[string]*xmi.Object)

	rootClasses := toSet(ex.cfg.ModelRoots)
	var rootNeeds []*needs.Need
	for _, tree := range trees {
		tree.Walk(func(n *needs.Need) {
			if rootClasses[ex.classByType[n.Type]] {
				rootNeeds = append(rootNeeds, n)
			}
		})
	}
	if len(rootNeeds) == 0 {
		return nil, fmt.Errorf("%w: no need of a model root class found", ErrNeedNotFound)
	}

	for _, n := range rootNeeds {
		if _, err := ex.buildObject(n); err != nil {
			return nil, err
		}
	}

	m := &xmi.Model{Package: ex.pkg}
	for _, n := range rootNeeds {
		obj := ex.built[n.ID]
		if obj.Parent == nil {
			m.Roots = append(m.Roots, obj)
		}
	}
	return m, nil
}

// Context returns the id tables of the last run.
func (ex *Exporter) Context() *hooks.Context {
	return ex.ctx
}

func (ex *Exporter) buildObject(n *needs.Need) (*xmi.Object, error) {
	if obj, ok := ex.built[n.ID]; ok {
		return obj, nil
	}
	className, ok := ex.classByType[n.Type]
	if !ok {
		return nil, fmt.Errorf("%w: need type %s (need %s)", ErrClassNotMapped, n.Type, n.ID)
	}
	class, err := ex.pkg.Class(className)
	if err != nil {
		return nil, err
	}
	mapping := ex.cfg.Classes[className]

	obj := xmi.NewObject(class)
	if mapping.ID.Field == config.XMIIDField {
		obj.ID = n.ID
	} else {
		obj.ID = uuid.NewString()
		obj.SetAttr(mapping.ID.Field, n.ID)
	}
	// register before recursing so reference cycles terminate
	ex.built[n.ID] = obj
	ex.ctx.ModelIDByNeedID[n.ID] = obj.ID
	ex.ctx.NeedIDByModelID[obj.ID] = n.ID

	for _, fm := range mapping.Options {
		if ref := class.Reference(fm.Field); ref != nil {
			if err := ex.attachLinked(obj, n, fm, ref); err != nil {
				return nil, err
			}
			continue
		}
		value, set := n.Option(fm.Target)
		if !set {
			continue
		}
		coerced, err := ex.coerce(class, fm.Field, value)
		if err != nil {
			return nil, fmt.Errorf("need %s option %s: %w", n.ID, fm.Target, err)
		}
		obj.SetAttr(fm.Field, coerced)
	}

	for _, fm := range mapping.Content {
		if ref := class.Reference(fm.Field); ref != nil {
			if err := ex.attachNested(obj, n, fm, ref); err != nil {
				return nil, err
			}
			continue
		}
		text, set := n.Section(fm.Target)
		if !set {
			continue
		}
		if ex.cfg.ConvertRSTToPlain && fm.Transformer == "" {
			text, err = ex.plain(text, obj)
			if err != nil {
				return nil, err
			}
		}
		coerced, err := ex.coerce(class, fm.Field, text)
		if err != nil {
			return nil, fmt.Errorf("need %s section %s: %w", n.ID, fm.Target, err)
		}
		obj.SetAttr(fm.Field, coerced)
	}

	ex.backfillTitle(obj, n, mapping)
	return obj, nil
}

// attachLinked resolves a link option back into a reference feature. For
// containment features this reattaches needs that were routed to other
// files.
func (ex *Exporter) attachLinked(obj *xmi.Object, n *needs.Need, fm config.FieldMap, ref *ecore.Reference) error {
	ids, _ := n.Link(fm.Target)
	for _, id := range ids {
		target, ok := ex.byID[id]
		if !ok {
			return fmt.Errorf("%w: %s linked from %s via %s", ErrNeedNotFound, id, n.ID, fm.Target)
		}
		child, err := ex.buildObject(target)
		if err != nil {
			return err
		}
		if ref.Containment {
			obj.AddChild(ref.Name, child)
		} else {
			obj.AddRef(ref.Name, child.ID)
		}
	}
	return nil
}

// attachNested rebuilds a containment feature from a nested need group.
// Groups are matched by title first; untitled or renamed groups fall back
// to a class match against the feature type. A link option named after
// the group holds children that were routed to another file.
func (ex *Exporter) attachNested(obj *xmi.Object, n *needs.Need, fm config.FieldMap, ref *ecore.Reference) error {
	inner := nestedFor(n, fm.Target, func(nested *needs.Need) bool {
		className, ok := ex.classByType[nested.Type]
		if !ok {
			return false
		}
		class, err := ex.pkg.Class(className)
		return err == nil && class.IsSubtypeOf(ref.Type)
	})
	seen := make(map[string]bool, len(inner))
	for _, nested := range inner {
		seen[nested.ID] = true
	}
	if ids, ok := n.Link(fm.Target); ok {
		for _, id := range ids {
			if seen[id] {
				continue
			}
			target, found := ex.byID[id]
			if !found {
				return fmt.Errorf("%w: %s linked from %s via %s", ErrNeedNotFound, id, n.ID, fm.Target)
			}
			inner = append(inner, target)
			seen[id] = true
		}
	}

	children := make([]*xmi.Object, 0, len(inner))
	for _, nested := range inner {
		child, err := ex.buildObject(nested)
		if err != nil {
			return err
		}
		children = append(children, child)
	}
	if len(children) > 0 {
		obj.SetChildren(ref.Name, children)
	}
	return nil
}

func nestedFor(n *needs.Need, groupTitle string, matches func(*needs.Need) bool) []*needs.Need {
	for _, g := range n.Nested {
		if g.Title == groupTitle {
			return g.Needs
		}
	}
	var out []*needs.Need
	for _, g := range n.Nested {
		for _, nested := range g.Needs {
			if matches(nested) {
				out = append(out, nested)
			}
		}
	}
	return out
}

// backfillTitle writes the need title back into its source attribute when
// no option or section already set it.
func (ex *Exporter) backfillTitle(obj *xmi.Object, n *needs.Need, mapping *config.ClassMapping) {
	field := mapping.Title.Field
	if field == "" || field == config.XMIIDField {
		return
	}
	if obj.Class.Attribute(field) == nil {
		return
	}
	if _, set := obj.Attr(field); set {
		return
	}
	obj.SetAttr(field, n.Title)
}

// plain runs the configured RST-to-plain conversion on section text.
func (ex *Exporter) plain(text string, obj *xmi.Object) (string, error) {
	t, err := ex.reg.Transformer(hooks.TransformerRSTToPlain)
	if err != nil {
		return "", err
	}
	return t(text, obj, ex.ctx)
}

// coerce validates and normalizes a string value against the attribute's
// declared data type. XMI carries strings on the wire, so this is a
// round-trip guard rather than a type conversion.
func (ex *Exporter) coerce(class *ecore.Class, field, value string) (string, error) {
	attr := class.Attribute(field)
	if attr == nil {
		return value, nil
	}
	if attr.Enum != nil {
		if !attr.Enum.HasLiteral(value) {
			return "", fmt.Errorf("%w: %q is not a literal of enum %s", ErrBadValue, value, attr.Enum.Name)
		}
		return value, nil
	}
	switch attr.Type {
	case ecore.Boolean:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		}
		return "", fmt.Errorf("%w: %q is not a boolean", ErrBadValue, value)
	case ecore.Int, ecore.Long:
		v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not an integer", ErrBadValue, value)
		}
		return strconv.FormatInt(v, 10), nil
	case ecore.Float, ecore.Double:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return "", fmt.Errorf("%w: %q is not a number", ErrBadValue, value)
		}
		return strings.TrimSpace(value), nil
	default:
		return value, nil
	}
}
