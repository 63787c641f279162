package order

import (
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/lexicon"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/parse"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

// kindPriority decides the kind of a segment naming more than one item
// category. The first non-empty category wins.
var kindPriority = []struct {
	category lexicon.Category
	kind     Kind
}{
	{lexicon.Coffee, KindCoffee},
	{lexicon.Beverage, KindBeverage},
	{lexicon.Food, KindFood},
	{lexicon.Bakery, KindBakery},
}

// Assemble builds the line item described by ext. Names are canonicalised
// through lex, quantities are resolved slot-positionally, and the price and
// calorie arrays are pre-sized to one unknown entry per slot.
//
// Food and bakery items carry no temperature, size, milk, add-ons, or
// sweeteners. Returns [ErrUnrecognizedItem] when ext names no item.
func Assemble(lex *lexicon.Lexicon, ext parse.Extraction, action parse.CartAction) (LineItem, error) {
	var (
		item  LineItem
		found bool
	)
	for _, p := range kindPriority {
		raw, ok := ext.First(p.category)
		if !ok {
			continue
		}
		item = LineItem{
			Kind:       p.kind,
			Name:       lex.Canonical(p.category, raw),
			CartAction: action,
		}
		found = true
		break
	}
	if !found {
		return LineItem{}, ErrUnrecognizedItem
	}

	if item.Kind == KindCoffee || item.Kind == KindBeverage {
		item.Temperature = firstOrDefault(lex, ext, lexicon.Temperature)
		item.Size = firstOrDefault(lex, ext, lexicon.Size)
		item.MilkType = firstOrDefault(lex, ext, lexicon.Milk)
		item.AddOns = canonicalAll(lex, ext, lexicon.AddOn)
		item.Sweeteners = canonicalAll(lex, ext, lexicon.Sweetener)
	}

	slots := len(item.SlotNames())
	item.Quantities = parse.ResolveQuantities(lex, ext[lexicon.Quantity], slots, action)
	item.Prices = make([]float64, slots)
	item.CalorieRanges = make([]catalog.CalorieRange, slots)
	return item, nil
}

func firstOrDefault(lex *lexicon.Lexicon, ext parse.Extraction, c lexicon.Category) string {
	if raw, ok := ext.First(c); ok {
		return lex.Canonical(c, raw)
	}
	return DefaultAttribute
}

func canonicalAll(lex *lexicon.Lexicon, ext parse.Extraction, c lexicon.Category) []string {
	matches := ext[c]
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = lex.Canonical(c, m)
	}
	return out
}
