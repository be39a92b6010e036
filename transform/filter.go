package transform

import (
	"github.com/useblocks/emfbridge/config"
	"github.com/useblocks/emfbridge/xmi"
)

// allowed evaluates the import filters for one object, in the documented
// order: mapping presence, allowed classes, denied classes, allowed
// values, denied values.
func allowed(cfg *config.Config, obj *xmi.Object) bool {
	class := obj.Class.Name
	if _, ok := cfg.Classes[class]; !ok {
		return false
	}
	if len(cfg.AllowedClasses) > 0 && !contains(cfg.AllowedClasses, class) {
		return false
	}
	if contains(cfg.DeniedClasses, class) {
		return false
	}
	if fields, ok := cfg.AllowedValues[class]; ok {
		for field, values := range fields {
			v, _ := obj.Attr(field)
			if !contains(values, v) {
				return false
			}
		}
	}
	if fields, ok := cfg.DeniedValues[class]; ok {
		for field, values := range fields {
			v, set := obj.Attr(field)
			if set && contains(values, v) {
				return false
			}
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
