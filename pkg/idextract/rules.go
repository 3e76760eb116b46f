// SPDX-License-Identifier: MPL-2.0

package idextract

// Rule kinds.
const (
	// KindContext pushes the children with Context (or the inherited context
	// when Context is empty).
	KindContext RuleKind = iota
	// KindOverride pushes the children with the override flag forced on.
	KindOverride
	// KindID emits "<Prefix>.<value of Attr, or the tag>".
	KindID
	// KindSpecial emits Literal.
	KindSpecial
	// KindIgnore emits nothing and ends the branch.
	KindIgnore
)

const defaultIDAttr = "identifier"

type (
	// RuleKind selects how a Rule treats a node.
	RuleKind int

	// Rule describes how one lowercase tag contributes identifiers.
	Rule struct {
		Kind    RuleKind
		Context string
		Prefix  string
		// Attr names the attribute holding the identifier. An empty Attr on a
		// KindID rule always uses the tag name.
		Attr    string
		Literal string
	}
)

func contextRule(ctx string) Rule { return Rule{Kind: KindContext, Context: ctx} }

func idRule(prefix string) Rule { return Rule{Kind: KindID, Prefix: prefix, Attr: defaultIDAttr} }

func idRuleAttr(prefix, attr string) Rule { return Rule{Kind: KindID, Prefix: prefix, Attr: attr} }

func specialRule(literal string) Rule { return Rule{Kind: KindSpecial, Literal: literal} }

var ignore = Rule{Kind: KindIgnore}

// rules is keyed by lowercase tag. Context values are looked up verbatim.
var rules = map[string]Rule{
	"override": {Kind: KindOverride},

	"english":        ignore,
	"infotexts":      ignore,
	"infotext":       ignore,
	"contentpackage": ignore,
	"documentation":  ignore,
	"metadata":       ignore,
	"vars":           ignore,
	"sounds":         ignore,
	"names":          ignore,
	"particles":      ignore,
	"ai":             ignore,
	"body":           ignore,
	"holdable":       ignore,

	"items":       contextRule("item"),
	"item":        idRule("item"),
	"afflictions": contextRule("affliction"),
	"affliction":  idRule("affliction"),
	"cprsettings": specialRule("CPRSettings"),

	"character":            idRuleAttr("Character", "speciesname"),
	"characters":           contextRule(""),
	"monsters":             contextRule("monster"),
	"monster":              idRuleAttr("Character", "speciesname"),
	"ragdoll":              idRuleAttr("Ragdoll", "type"),
	"ballastflorabehavior": idRuleAttr("BallastFlora", "identifier"),

	"huskappendage": contextRule(""),
	"limb":          idRuleAttr("HuskAppendage.limb", "name"),
	"joint":         idRuleAttr("HuskAppendage.joint", "name"),

	"levelobjects":    contextRule("levelobjects"),
	"levelobject":     idRule("LevelObject"),
	"itemassembly":    idRuleAttr("ItemAssembly", "name"),
	"upgrademodules":  contextRule(""),
	"upgrademodule":   idRule("UpgradeModule"),
	"upgradecategory": idRule("UpgradeCategory"),

	"talenttrees": contextRule(""),
	"talenttree":  idRuleAttr("TalentTree", "jobidentifier"),
	"talents":     contextRule(""),
	"talent":      idRule("Talent"),
	"jobs":        contextRule(""),
	"job":         idRule("Job"),

	"corpses":             contextRule(""),
	"corpse":              idRule("Corpse"),
	"style":               specialRule("Style"),
	"backgroundcreatures": contextRule("backgroundcreature"),
	"backgroundcreature":  idRuleAttr("BackgroundCreature", ""),

	"randomevents": contextRule(""),
	"eventset":     idRule("EventSet"),
	"missions":     contextRule("mission"),
	"mission":      contextRule("Mission"),

	"abandonedoutpostmission": idRule("Mission.Outpost"),
	"crawlerlairmission":      idRule("Mission.AbandonedOutpost"),
	"salvagemission":          idRule("Mission.Salvage"),
	"monstermission":          idRule("Mission.Monster"),
	"piratemission":           idRule("Mission.Pirate"),
	"mudraptorlairmission":    idRule("Mission.MudraptorLair"),
	"thresherlairmission":     idRule("Mission.ThresherLair"),
	"huskcrawlerlairmission":  idRule("Mission.HuskCrawlerLair"),
	"outpostdestroymission":   idRule("Mission.OutpostDestroy"),
	"mineralmission":          idRule("Mission.Mineral"),
	"gotomission":             idRule("Mission.Goto"),
	"escortmission":           idRule("Mission.Escort"),
	"outpostmission":          idRule("Mission.Outpost"),
	"cargomission":            idRule("Mission.Cargo"),

	"eventprefabs":  contextRule(""),
	"scriptedevent": idRule("ScriptedEvent"),
	"triggerevent":  idRule("TriggerEvent"),

	"cavegenerationparameters":    contextRule(""),
	"cave":                        idRule("Cave"),
	"outpostgenerationparameters": contextRule(""),
	"outpostconfig":               idRule("OutpostConfig"),
	"mapgenerationparameters":     specialRule("MapGenerationParameters"),

	"orders":                    contextRule(""),
	"order":                     idRule("Order"),
	"factions":                  contextRule(""),
	"faction":                   idRule("Faction"),
	"levelgenerationparameters": contextRule("levelgenerationparameter"),
	"levelgenerationparameter":  idRule("LevelGenerationParameter"),
	"biomes":                    contextRule("biome"),
	"biome":                     idRule("Biome"),
	"locationtypes":             contextRule("locationtype"),
	"locationtype":              idRule("LocationType"),

	"charactervariant": idRuleAttr("Charactervariant", "speciesname"),
	"wreckaiconfig":    idRuleAttr("WreckAIConfig", "Entity"),
	"eventsprites":     contextRule("eventsprite"),
	"eventsprite":      idRule("EventSprites"),
	"npcsets":          contextRule(""),
	"npcset":           contextRule("npc"),
	"npc":              idRule("NPC"),
}

// Lookup returns the rule for a lowercase tag.
func Lookup(tag string) (Rule, bool) {
	r, ok := rules[tag]
	return r, ok
}
