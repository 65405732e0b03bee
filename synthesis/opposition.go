package synthesis

// stemTable normalizes raw extracted terms to a canonical stem, e.g.
// "leader" -> "leadership". Seeded conservatively (see Open Question #2 in
// DESIGN.md); grown as test cases demand.
var stemTable = map[string]string{
	"leader":     "leadership",
	"leading":    "leadership",
	"leads":      "leadership",
	"act":        "action",
	"acting":     "action",
	"still":      "stillness",
	"stillness":  "stillness",
	"expand":     "expansion",
	"expanding":  "expansion",
	"contract":   "contraction",
	"contracting": "contraction",
	"light":      "light",
	"shadow":     "shadow",
	"surrender":  "surrender",
	"order":      "order",
	"chaos":      "chaos",
}

// Stem reduces a lowercased term to its canonical form, or returns it
// unchanged if not in the table.
func Stem(term string) string {
	if s, ok := stemTable[term]; ok {
		return s
	}
	return term
}

// oppositionTable is the fixed set of canonical antonym pairs tension
// detection checks against (see Open Question #2 in DESIGN.md): the exact
// table is not fully enumerated in any upstream source, so this module
// seeds a small conservative set and documents it as non-exhaustive.
var oppositionTable = map[string]string{
	"action":     "stillness",
	"stillness":  "action",
	"expansion":  "contraction",
	"contraction": "expansion",
	"light":      "shadow",
	"shadow":     "light",
	"leadership": "surrender",
	"surrender":  "leadership",
	"order":      "chaos",
	"chaos":      "order",
}

// Opposes reports whether a and b are a registered opposing pair.
func Opposes(a, b string) bool {
	opp, ok := oppositionTable[a]
	return ok && opp == b
}
