// Package lexicon holds the static keyword, regex, and priority tables the
// classifiers run on. Lexicon changes are data changes: nothing in here
// carries behavior beyond compiling the regex sets once at init.
package lexicon

import (
	"regexp"
	"strings"
)

// Other is the catch-all discipline label.
const Other = "Other"

// Canonical discipline taxonomy, in display order.
var Disciplines = []string{
	"Environmental Sciences",
	"Fisheries and Aquatic",
	"Wildlife",
	"Entomology",
	"Forestry and Habitat",
	"Agriculture",
	"Human Dimensions",
	Other,
}

// Graduate-signal categories, scored with weight 2 per keyword match. The
// category of the first match decides the position-type label text.
var GradIndicators = map[string][]string{
	"assistantship": {
		"graduate assistantship",
		"research assistantship",
		"teaching assistantship",
		"grad assistantship",
		"ra position",
		"ta position",
		"graduate assistant",
		"assistantship position",
	},
	"fellowship": {
		"fellowship",
		"graduate fellowship",
		"research fellowship",
		"postgraduate fellowship",
		"phd fellowship",
		"masters fellowship",
		"doctoral fellowship",
		"scholar program",
	},
	"degree_pursuit": {
		"phd position",
		"phd opportunity",
		"masters position",
		"master's position",
		"doctoral position",
		"graduate degree",
		"pursuing phd",
		"pursuing masters",
		"phd student",
		"masters student",
		"graduate student",
		"thesis research",
		"dissertation research",
		"graduate program",
		"ms position",
		"ms opportunity",
	},
	"funding_keywords": {
		"stipend",
		"tuition waiver",
		"graduate funding",
		"research funding",
		"thesis support",
		"dissertation support",
		"academic year",
		"semester funding",
	},
}

// GradIndicatorLabels maps a signal category to the position-type label it
// produces. degree_pursuit only labels when no stronger category matched.
var GradIndicatorLabels = map[string]string{
	"assistantship":  "Graduate Assistantship",
	"fellowship":     "Fellowship",
	"degree_pursuit": "Graduate Position",
}

// Non-graduate signal categories, scored with weight 3 per keyword match.
var ExclusionIndicators = map[string][]string{
	"internship": {
		"internship",
		"intern position",
		"summer intern",
		"undergraduate intern",
		"intern opportunity",
		"temporary intern",
		"seasonal intern",
	},
	"professional": {
		"full-time position",
		"permanent position",
		"career position",
		"staff position",
		"professional position",
		"biologist position",
		"manager position",
		"coordinator position",
		"specialist position",
		"analyst position",
		"technician position",
		"officer position",
		"director position",
		"supervisor position",
		"administrator position",
	},
	"temporary_work": {
		"temporary position",
		"seasonal position",
		"contract position",
		"consultant",
		"part-time position",
		"hourly position",
		"field work only",
		"summer position only",
	},
	"undergraduate": {
		"undergraduate position",
		"undergrad position",
		"undergraduate opportunity",
		"high school",
		"community college",
		"associate degree",
	},
}

// PhDTerms and MastersTerms each add a +2 bonus to the graduate score.
var (
	PhDTerms     = []string{"phd", "doctoral", "doctorate"}
	MastersTerms = []string{"masters", "master's", "ms degree", "ms position"}
)

// Roles that are never graduate positions unless assistantship language is
// explicit. Matched against lowercased text.
var HardExclusionPatterns = compileAll([]string{
	`\bpost[-\s]?doc(toral)?\b`,
	`\bveterinarian\b`,
	`\barchaeologist\b`,
	`\bassistant\s+professor\b`,
	`\bassociate\s+professor\b`,
	`\bprofessor\b`,
	`\bprincipal\s+investigator\b`,
	`\bvisiting\s+assistant\s+professor\b`,
	`\breu\b`,
	`\bintern(ship)?\b`,
	`\bfield\s+technician\b`,
	`\btechnician\b`,
	`\becologist\b`,
	`\benvironmental\s+specialist\b`,
	`\bspecialist\s*\(rapid\s+responder\)\b`,
	`\bfellowship\s+coordinator\b`,
	`\bresearch\s+assistant\s*/\s*associate\b`,
	`\bsenior\s+conservation\s+research\s+assistant\b`,
	`\bseasonal\s+research\s+assistant\b`,
	`\bsummer\s+fellowship\b`,
	`\b(laboratory|lab)\s+and\s+field\s+support\b`,
	`\bnoaa\b.*\bfellowship\b`,
	`\bconduct\s+your\s+own\s+research\s+project\b`,
	`\bwork\s+study\b`,
	`\bcontinuing\s+education\b`,
	`\bmaster'?s?\s+degrees?\s+for\s+.+\s+professionals?\b`,
	`\bstudent\s+contractor\b`,
	`\bbiologist\s+i{1,2}\b`,
	`\bprofessional\s+certificate\b`,
	`\bcertificate\s+program\b`,
})

// Explicit assistantship phrasing that overrides a hard exclusion.
var ExplicitAssistantshipPatterns = compileAll([]string{
	`\bgraduate\s+assistantship\b`,
	`\bresearch\s+assistantship\b`,
	`\bteaching\s+assistantship\b`,
	`\bgraduate\s+research\s+assistant(ship)?\b`,
	`\bph\.?d\.?\s+assistantship\b`,
	`\bms\b.*\bassistantship\b`,
})

// Explicit graduate phrasing that floors confidence on a graduate decision.
var ExplicitGraduatePatterns = compileAll([]string{
	`graduate\s+research\s+assistantship`,
	`graduate\s+research\s+assistant\b`,
	`(ms|m\.s\.|masters?)\s+(research\s+)?assistantship`,
	`(ms|m\.s\.|masters?)\s+research\s+assistant\b`,
	`(phd|ph\.d\.)\s+(research\s+)?assistantship`,
	`graduate\s+research\s+associate`,
	`doctoral\s+(student|candidate|research|assistantship)`,
	`(phd|ph\.d\.)\s+(student|candidate|position)`,
	`(ms|m\.s\.)\s+(student|candidate|position)`,
	`thesis\s+research`,
	`dissertation\s+research`,
})

// Subset of hard exclusions used by the discipline classifier to force Other.
var HardNonGradPatterns = compileAll([]string{
	`\bveterinarian\b`,
	`\barchaeologist\b`,
	`\bpost[-\s]?doc(toral)?\b`,
	`\bassistant\s+professor\b`,
	`\bassociate\s+professor\b`,
	`\bprofessor\b`,
	`\bprincipal\s+investigator\b`,
	`\bvisiting\s+assistant\s+professor\b`,
	`\breu\b`,
	`\bintern(ship)?\b`,
	`\bfield\s+technician\b`,
	`\btechnician\b`,
	`\becologist\b`,
	`\benvironmental\s+specialist\b`,
	`\bspecialist\s*\(rapid\s+responder\)\b`,
	`\bbiologist\s+i{1,2}\b`,
	`\bprofessional\s+certificate\b`,
	`\bcertificate\s+program\b`,
	`\bstudent\s+contractor\b`,
	`\bconduct\s+your\s+own\s+research\s+project\b`,
})

// Weighted discipline keywords: multi-word phrases score 2, single words 1.
var DisciplineKeywords = map[string][]string{
	"Environmental Sciences": {
		"environmental science", "environmental sciences", "water quality",
		"water chemistry", "groundwater", "surface water", "hydrology",
		"watershed", "soil", "soil science", "soil chemistry",
		"biogeochemistry", "geochemistry", "contaminant", "pollution",
		"toxicology", "air quality", "climate", "climate change",
		"atmospheric", "remote sensing", "gis", "spatial analysis",
		"water security", "sustainability", "microbiology",
		"environmental microbiology", "carbon", "coastal", "tidal",
	},
	"Fisheries and Aquatic": {
		"fisheries", "fish", "aquatic", "marine", "freshwater", "stream",
		"river", "lake", "estuary", "salmon", "trout", "bass", "sturgeon",
		"aquaculture", "hatchery", "spawning", "fish passage",
		"aquatic organism", "ichthyology", "marine science", "manta ray",
		"bycatch", "limnology", "algal bloom",
	},
	"Wildlife": {
		"wildlife", "mammal", "bird", "avian", "terrestrial", "vertebrate",
		"fauna", "carnivore", "ungulate", "deer", "elk", "bear", "wolf",
		"bat", "reptile", "amphibian", "herpetology", "predator",
		"migration", "behavior", "wildlife management",
		"wildlife conservation", "endangered", "threatened",
		"wildlife ecology", "ornithology", "mammalogy", "waterfowl",
		"mallard", "duck", "mountain goat", "swine", "bobwhite",
		"natural resource sciences", "turtle", "cooter",
	},
	"Entomology": {
		"entomology", "insect", "insects", "arthropod", "arthropods",
		"pollinator", "pollinators", "bee", "bees", "butterfly", "beetle",
		"mosquito", "tick", "lepidoptera", "coleoptera", "ant", "ants",
		"ant colony",
	},
	"Forestry and Habitat": {
		"forestry", "forest", "silviculture", "timber", "tree", "trees",
		"woodland", "canopy", "understory", "forest stand",
		"forest management", "forest restoration", "rangeland", "habitat",
		"habitat restoration", "habitat management", "vegetation",
		"land management", "fuel treatment", "prescribed burn", "wildfire",
	},
	"Agriculture": {
		"agriculture", "agricultural", "agronomy", "crop", "cropping",
		"livestock", "cattle", "beef", "dairy", "ranch", "ranching",
		"pasture", "grazing", "animal science", "husbandry", "range cattle",
	},
	"Human Dimensions": {
		"human dimensions", "stakeholder", "attitude", "perception",
		"social science", "survey", "interview", "focus group",
		"questionnaire", "coexistence", "hunting", "recreation", "tourism",
		"economics", "policy", "governance", "sociology", "anthropology",
		"psychology", "human-wildlife conflict", "human behavior",
		"community engagement", "public participation",
		"environmental justice", "traditional knowledge", "cultural values",
		"stakeholder engagement", "environmental communication",
		"interpretation", "visitor studies", "recreation management",
		"public opinion", "environmental education", "science communication",
	},
}

// BioticDisciplines suppress a weak Environmental Sciences signal.
var BioticDisciplines = map[string]bool{
	"Fisheries and Aquatic": true,
	"Wildlife":              true,
	"Entomology":            true,
	"Forestry and Habitat":  true,
	"Agriculture":           true,
}

// StrongAbioticTerms keep Environmental Sciences alive against biotic signal.
var StrongAbioticTerms = []string{
	"climate action", "climate change", "carbon", "biogeochemistry", "soil",
	"hydrology", "water security", "water quality",
	"environmental microbiology", "microbiology", "sustainability",
}

// ClimateFisheriesNudgeTerms tip fisheries/environmental overlaps abiotic.
var ClimateFisheriesNudgeTerms = []string{
	"climate action", "carbon cycle", "biogeochemical", "water security",
}

// SoilForestNudgeTerms tip forestry/environmental overlaps abiotic.
var SoilForestNudgeTerms = []string{
	"soil", "soil chemistry", "biogeochemistry", "hydrology",
	"water quality", "environmental microbiology",
}

// ExplicitHumanDimensionsTerms keep Human Dimensions alive when its keyword
// score alone is weak.
var ExplicitHumanDimensionsTerms = []string{
	"human dimensions", "stakeholder", "survey", "interview",
	"social science", "science communication", "environmental education",
}

// DisciplinePriority breaks score ties deterministically, highest first.
var DisciplinePriority = []string{
	"Human Dimensions",
	"Entomology",
	"Fisheries and Aquatic",
	"Wildlife",
	"Forestry and Habitat",
	"Agriculture",
	"Environmental Sciences",
}

// DisciplineSignalPatterns gate conservative auto-seeding of gold labels: a
// candidate must show at least one explicit signal for its discipline.
var DisciplineSignalPatterns = map[string][]*regexp.Regexp{
	"Environmental Sciences": compileAll([]string{
		`\bsoil\b`, `\bhydrolog(y|ical)\b`, `\bbiogeochem`,
		`\bwater\s+(quality|chemistry|security)\b`,
		`\benvironmental\s+microbiology\b`, `\bclimate\b`,
	}),
	"Fisheries and Aquatic": compileAll([]string{
		`\bfisher(y|ies)\b`, `\baquatic\b`, `\bmarine\b`, `\bstream\b`,
		`\btrout\b`, `\bmanta\b`, `\bbycatch\b`,
	}),
	"Wildlife": compileAll([]string{
		`\bwildlife\b`, `\bavian\b`, `\bbat\b`, `\bduck\b`, `\bmallard\b`,
		`\bturtle\b`, `\bherpetolog`, `\bmovement\s+ecology\b`,
	}),
	"Forestry and Habitat": compileAll([]string{
		`\bforestr(y|y)\b`, `\bforest\b`, `\bsilviculture\b`, `\bhabitat\b`,
		`\brestoration\b`,
	}),
	"Entomology": compileAll([]string{
		`\bentomolog`, `\binsect(s)?\b`, `\barthropod(s)?\b`, `\bant(s)?\b`,
		`\bpollinator(s)?\b`,
	}),
	"Agriculture": compileAll([]string{
		`\bagricultur`, `\blivestock\b`, `\bcattle\b`, `\branch(ing)?\b`,
		`\bpasture\b`, `\bgrazing\b`,
	}),
	"Human Dimensions": compileAll([]string{
		`\bhuman\s+dimensions\b`, `\bstakeholder\b`, `\bsocial\s+science\b`,
		`\bsurvey\b`, `\binterview\b`, `\bscience\s+communication\b`,
		`\benvironmental\s+education\b`,
	}),
}

// disciplineMapping folds the label variants seen in legacy review data into
// the canonical taxonomy. Unknown labels fold to Other.
var disciplineMapping = map[string]string{
	"Environmental Science":                "Environmental Sciences",
	"Environmental Sciences":               "Environmental Sciences",
	"Ecology":                              "Environmental Sciences",
	"Fisheries":                            "Fisheries and Aquatic",
	"Fisheries and Aquatic":                "Fisheries and Aquatic",
	"Fisheries & Aquatic Science":          "Fisheries and Aquatic",
	"Fisheries Management and Conservation": "Fisheries and Aquatic",
	"Marine Science":                       "Fisheries and Aquatic",
	"Wildlife":                             "Wildlife",
	"Wildlife Management and Conservation": "Wildlife",
	"Wildlife Management":                  "Wildlife",
	"Wildlife & Natural Resources":         "Wildlife",
	"Conservation":                         "Wildlife",
	"Entomology":                           "Entomology",
	"Forestry":                             "Forestry and Habitat",
	"Forestry and Habitat":                 "Forestry and Habitat",
	"Natural Resource Management":          "Forestry and Habitat",
	"Agriculture":                          "Agriculture",
	"Agricultural Science":                 "Agriculture",
	"Animal Science":                       "Agriculture",
	"Agronomy":                             "Agriculture",
	"Range Management":                     "Agriculture",
	"Human Dimensions":                     "Human Dimensions",
	"Other":                                Other,
	"Unknown":                              Other,
	"Non-Graduate":                         Other,
}

// NormalizeDiscipline maps a raw label to its canonical discipline.
func NormalizeDiscipline(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return Other
	}
	if canonical, ok := disciplineMapping[text]; ok {
		return canonical
	}
	return Other
}

// HasStrongSignal reports whether text shows at least one explicit signal
// pattern for the given discipline.
func HasStrongSignal(text, discipline string) bool {
	patterns := DisciplineSignalPatterns[discipline]
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}
