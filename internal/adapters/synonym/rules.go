// Package synonym provides the SynonymProvider implementations: a fixed rule
// table and a YAML lexical database.
package synonym

import "github.com/baditaflorin/go_robustness/internal/ports"

// defaultRules maps common words to near-synonyms. No key term appears on either side.
var defaultRules = map[string][]string{
	"big":        {"large", "sizable"},
	"small":      {"little", "minor"},
	"good":       {"beneficial", "favorable"},
	"bad":        {"poor", "unfavorable"},
	"fast":       {"quick", "rapid"},
	"quick":      {"fast", "swift"},
	"slow":       {"sluggish", "gradual"},
	"show":       {"demonstrate", "indicate"},
	"shows":      {"demonstrates", "indicates"},
	"use":        {"utilize", "employ"},
	"help":       {"assist", "aid"},
	"make":       {"create", "produce"},
	"get":        {"obtain", "acquire"},
	"start":      {"begin", "commence"},
	"end":        {"finish", "close"},
	"often":      {"frequently", "regularly"},
	"many":       {"numerous", "several"},
	"need":       {"require"},
	"needs":      {"requires"},
	"buy":        {"purchase"},
	"choose":     {"select", "pick"},
	"improve":    {"enhance", "boost"},
	"problem":    {"issue", "difficulty"},
	"problems":   {"issues", "difficulties"},
	"method":     {"approach", "technique"},
	"clear":      {"evident", "apparent"},
	"best":       {"optimal", "finest"},
	"change":     {"alter", "modify"},
	"changes":    {"alterations", "modifications"},
	"team":       {"group", "crew"},
	"customers":  {"clients", "buyers"},
	"company":    {"firm", "business"},
	"large":      {"big", "substantial"},
	"simple":     {"straightforward", "easy"},
	"strong":     {"robust", "solid"},
	"weak":       {"feeble", "fragile"},
	"study":      {"investigation", "review"},
	"product":    {"offering"},
	"market":     {"marketplace"},
	"plan":       {"strategy", "scheme"},
	"goal":       {"objective", "aim"},
	"quickly":    {"rapidly", "swiftly"},
	"users":      {"customers", "people"},
	"approach":   {"method", "strategy"},
	"difficult":  {"hard", "challenging"},
	"benefits":   {"advantages", "gains"},
	"consider":   {"weigh", "contemplate"},
	"indicate":   {"signal", "denote"},
	"rise":       {"climb", "grow"},
	"reduce":     {"lower", "cut"},
	"expand":     {"grow", "extend"},
	"team's":     {"group's"},
	"additional": {"extra", "further"},
}

// RuleTable serves synonyms from a fixed in-memory table.
type RuleTable struct {
	rules map[string][]string
}

// NewRuleTable returns the built-in rule table provider.
func NewRuleTable() ports.SynonymProvider {
	return &RuleTable{rules: defaultRules}
}

// Name identifies the provider.
func (r *RuleTable) Name() string { return "rule_table" }

// Synonyms returns the candidates for word, or nil.
func (r *RuleTable) Synonyms(word string) []string {
	return r.rules[word]
}
