package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

type attrValue struct {
	Name string
	Slug string
}

// attrSet is the ordered value list of one attribute taxonomy (color or size).
type attrSet []attrValue

func (s attrSet) find(raw string) (attrValue, bool) {
	raw = strings.TrimSpace(raw)
	for _, v := range s {
		if strings.EqualFold(v.Slug, raw) || strings.EqualFold(v.Name, raw) {
			return v, true
		}
	}
	return attrValue{}, false
}

func (s *attrSet) add(name, slug string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(slug)
	}
	if name == "" {
		return
	}
	if _, ok := s.find(name); ok {
		return
	}
	if slug != "" {
		if _, ok := s.find(slug); ok {
			return
		}
	}
	*s = append(*s, attrValue{Name: name, Slug: strings.TrimSpace(slug)})
}

// resolve maps a variation value to the display name, extending the set with unknown values.
func (s *attrSet) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if v, ok := s.find(raw); ok {
		return v.Name
	}
	*s = append(*s, attrValue{Name: raw, Slug: raw})
	return raw
}

func (s attrSet) names() []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.Name
	}
	return out
}

// override is an explicit WordPress variation after its attribute values were resolved.
type override struct {
	color string
	size  string
	sku   string
	price *decimal.Decimal
	stock *int
}

func comboKey(color, size string) string {
	return strings.ToLower(color) + "\x00" + strings.ToLower(size)
}

type expansion struct {
	parentSKU   string
	colors      []string
	sizes       []string
	overrides   []override
	base        decimal.Decimal
	parentStock int
	all         bool
}

// partial reports whether the override names only one of the two attributes, as a
// WordPress "any size" or "any color" variation does.
func (o override) partial() bool {
	return (o.color == "") != (o.size == "")
}

func (o override) covers(color, size string) bool {
	if o.size == "" {
		return strings.EqualFold(o.color, color)
	}
	return strings.EqualFold(o.size, size)
}

type combo struct {
	color, size string
	sku         string
	price       *decimal.Decimal
	stock       *int
}

// expand materialises the variant set. With all set it is the Cartesian product of colors
// and sizes (one dimension when the other is empty, nothing when both are); otherwise it is
// exactly the explicit overrides. An exact override wins over a partial one; a partial
// override applies its price to every combination it covers, splits its stock over them and
// prefixes their SKUs. Prices fall back to the base price. Stock left after explicit
// quantities is split evenly over the remaining combinations, remainder first.
func (e expansion) expand() []catalog.Variant {
	byKey := make(map[string]override, len(e.overrides))
	var partials []override
	for _, o := range e.overrides {
		k := comboKey(o.color, o.size)
		if _, dup := byKey[k]; dup {
			continue
		}
		byKey[k] = o
		if o.partial() {
			partials = append(partials, o)
		}
	}

	var combos []combo
	if e.all {
		if len(e.colors) == 0 && len(e.sizes) == 0 {
			return nil
		}
		covered := make([][]int, len(partials))
		colors, sizes := orBlank(e.colors), orBlank(e.sizes)
		for _, c := range colors {
			for _, s := range sizes {
				cb := combo{color: c, size: s}
				if o, ok := byKey[comboKey(c, s)]; ok {
					cb.sku, cb.price, cb.stock = o.sku, o.price, o.stock
				} else {
					for i, o := range partials {
						if !o.covers(c, s) {
							continue
						}
						cb.price = o.price
						if o.sku != "" {
							if o.size == "" {
								cb.sku = derivedSKU(o.sku, "", s)
							} else {
								cb.sku = derivedSKU(o.sku, c, "")
							}
						}
						covered[i] = append(covered[i], len(combos))
						break
					}
				}
				combos = append(combos, cb)
			}
		}
		for i, o := range partials {
			if o.stock == nil || len(covered[i]) == 0 {
				continue
			}
			for j, n := range splitEvenly(*o.stock, len(covered[i])) {
				n := n
				combos[covered[i][j]].stock = &n
			}
		}
	} else {
		seen := map[string]bool{}
		for _, o := range e.overrides {
			k := comboKey(o.color, o.size)
			if seen[k] {
				continue
			}
			seen[k] = true
			combos = append(combos, combo{color: o.color, size: o.size, sku: o.sku, price: o.price, stock: o.stock})
		}
	}
	if len(combos) == 0 {
		return nil
	}

	explicit, open := 0, 0
	for _, c := range combos {
		if c.stock != nil {
			explicit += *c.stock
		} else {
			open++
		}
	}
	shares := splitEvenly(max(e.parentStock-explicit, 0), open)

	used := map[string]bool{}
	out := make([]catalog.Variant, 0, len(combos))
	for _, c := range combos {
		v := catalog.Variant{Color: c.color, Size: c.size, Price: e.base, IsActive: true}
		if c.price != nil {
			v.Price = *c.price
		}
		if c.stock != nil {
			v.Stock = *c.stock
		} else {
			v.Stock, shares = shares[0], shares[1:]
		}
		sku := c.sku
		if sku == "" {
			sku = derivedSKU(e.parentSKU, c.color, c.size)
		}
		v.SKU = uniqueWithin(used, sku)
		out = append(out, v)
	}
	return out
}

// splitEvenly divides total into n non-negative parts, the remainder going to the first ones.
func splitEvenly(total, n int) []int {
	parts := make([]int, n)
	if n == 0 {
		return parts
	}
	share, extra := total/n, total%n
	for i := range parts {
		parts[i] = share
		if i < extra {
			parts[i]++
		}
	}
	return parts
}

func orBlank(vals []string) []string {
	if len(vals) == 0 {
		return []string{""}
	}
	return vals
}

func derivedSKU(parent, color, size string) string {
	parts := []string{parent}
	for _, seg := range []string{color, size} {
		if s := catalog.SKUSegment(seg); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-")
}

func uniqueWithin(used map[string]bool, sku string) string {
	candidate := sku
	for n := 2; used[strings.ToUpper(candidate)]; n++ {
		candidate = fmt.Sprintf("%s-%d", sku, n)
	}
	used[strings.ToUpper(candidate)] = true
	return candidate
}
