package transform

import (
	"sort"
	"strconv"
	"strings"

	"github.com/useblocks/emfbridge/config"
	"github.com/useblocks/emfbridge/xmi"
)

// sortObjectsNatural sorts objects in place by the given field, comparing
// digit runs numerically so "item2" sorts before "item10". The pseudo
// field xmi:id sorts by object id.
func sortObjectsNatural(objs []*xmi.Object, field string) {
	if field == "" {
		return
	}
	sort.SliceStable(objs, func(i, j int) bool {
		return naturalLess(sortKey(objs[i], field), sortKey(objs[j], field))
	})
}

func sortKey(obj *xmi.Object, field string) string {
	if field == config.XMIIDField {
		return obj.ID
	}
	v, _ := obj.Attr(field)
	return v
}

func naturalLess(a, b string) bool {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := strings.ToLower(ca[i]), strings.ToLower(cb[i])
		if x == y {
			continue
		}
		xn, xErr := strconv.Atoi(x)
		yn, yErr := strconv.Atoi(y)
		if xErr == nil && yErr == nil {
			return xn < yn
		}
		return x < y
	}
	return len(ca) < len(cb)
}

// chunks splits a string into alternating digit and non-digit runs.
func chunks(s string) []string {
	var out []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[i-1]) {
			out = append(out, s[start:i])
			start = i
		}
	}
	return out
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
