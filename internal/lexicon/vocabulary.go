package lexicon

// Category names one vocabulary class of the lexicon.
type Category string

const (
	Size        Category = "size"
	Quantity    Category = "quantity"
	Coffee      Category = "coffee"
	Temperature Category = "temperature"
	Sweetener   Category = "sweetener"
	Flavor      Category = "flavor"
	Beverage    Category = "beverage"
	Food        Category = "food"
	Bakery      Category = "bakery"
	AddOn       Category = "add_on"
	Milk        Category = "milk"
	Allergy     Category = "allergy"
)

// Categories lists every category in extraction order.
var Categories = []Category{
	Size, Quantity, Coffee, Temperature, Sweetener, Flavor,
	Beverage, Food, Bakery, AddOn, Milk, Allergy,
}

// ItemCategories lists the item-kind categories in assembly priority order.
var ItemCategories = []Category{Coffee, Beverage, Food, Bakery}

// ModifierCategories lists the categories whose terms attach to a preceding
// item rather than starting a new one.
var ModifierCategories = []Category{Flavor, Milk, AddOn, Temperature, Sweetener}

// IsItem reports whether c is one of the [ItemCategories].
func (c Category) IsItem() bool {
	switch c {
	case Coffee, Beverage, Food, Bakery:
		return true
	}
	return false
}

// IsModifier reports whether c is one of the [ModifierCategories].
func (c Category) IsModifier() bool {
	switch c {
	case Flavor, Milk, AddOn, Temperature, Sweetener:
		return true
	}
	return false
}

// Vocabulary maps each category to its surface terms. Terms are lower-case
// singular forms; plural "s"/"es" suffixes are matched automatically for every
// category except [Quantity].
type Vocabulary map[Category][]string

// DefaultVocabulary returns the built-in coffee-shop vocabulary. The quantity
// category is derived from the number-word table and does not appear here.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Size: {
			"small", "medium", "large", "extra large", "tall", "grande", "venti",
		},
		Coffee: {
			"coffee", "black coffee", "iced coffee", "decaf", "decaf coffee",
			"latte", "cappuccino", "espresso", "americano", "macchiato",
			"cold brew", "flat white", "cortado", "red eye",
		},
		Temperature: {
			"hot", "extra hot", "iced", "cold", "warm", "frozen",
		},
		Sweetener: {
			"sugar", "raw sugar", "brown sugar", "liquid cane sugar", "splenda",
			"stevia", "equal", "sweet n low", "honey", "agave",
		},
		Flavor: {
			"vanilla", "french vanilla", "caramel", "salted caramel", "hazelnut",
			"mocha", "white mocha", "peppermint", "pumpkin spice", "cinnamon",
			"toffee", "coconut", "raspberry",
		},
		Beverage: {
			"tea", "green tea", "black tea", "chai", "hot chocolate", "hot cocoa",
			"lemonade", "orange juice", "apple juice", "juice", "water",
			"bottled water", "soda", "smoothie", "milkshake", "refresher",
		},
		Food: {
			"bagel", "breakfast sandwich", "egg sandwich", "sandwich", "wrap",
			"hash brown", "oatmeal", "salad", "panini", "burrito",
		},
		Bakery: {
			"donut", "doughnut", "glazed donut", "chocolate donut", "jelly donut",
			"boston cream donut", "muffin", "blueberry muffin", "croissant",
			"cookie", "sugar cookie", "scone", "brownie", "munchkin", "danish",
			"cinnamon roll",
		},
		AddOn: {
			"vanilla", "french vanilla", "caramel", "salted caramel", "hazelnut",
			"mocha", "white mocha", "peppermint", "pumpkin spice", "toffee",
			"raspberry", "whipped cream", "extra shot", "espresso shot",
			"cold foam", "sprinkles", "caramel drizzle",
		},
		Milk: {
			"milk", "whole milk", "skim milk", "nonfat milk", "oat milk",
			"almond milk", "soy milk", "coconut milk", "half and half",
			"light cream", "heavy cream",
		},
		Allergy: {
			"dairy", "nut", "peanut", "tree nut", "gluten", "soy", "egg",
			"lactose", "wheat", "sesame",
		},
	}
}

// DefaultNumbers returns the built-in word→integer table used to resolve
// spoken quantities.
func DefaultNumbers() map[string]int {
	return map[string]int{
		"a": 1, "an": 1, "one": 1, "single": 1,
		"two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
		"eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
		"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16,
		"seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
		"double": 2, "triple": 3,
		"couple": 2, "a couple": 2,
		"few": 3, "a few": 3, "several": 3,
		"half dozen": 6, "a half dozen": 6,
		"dozen": 12, "a dozen": 12,
		"bakers dozen": 13, "a bakers dozen": 13,
		"a lot": 10,
	}
}
