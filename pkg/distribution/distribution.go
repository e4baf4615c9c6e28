// Package distribution defines the canonical Java distribution
// identifiers and their synonyms.
package distribution

import "strings"

// Distribution is a canonical distribution identifier. Unknown vendors
// are carried through as-is so the catalog remains the source of truth.
type Distribution string

const (
	Temurin    Distribution = "temurin"
	Corretto   Distribution = "corretto"
	Zulu       Distribution = "zulu"
	OpenJDK    Distribution = "openjdk"
	GraalVM    Distribution = "graalvm"
	GraalVMCE  Distribution = "graalvm_ce"
	Liberica   Distribution = "liberica"
	Dragonwell Distribution = "dragonwell"
	SapMachine Distribution = "sapmachine"
	Semeru     Distribution = "semeru"
	Mandrel    Distribution = "mandrel"
	Kona       Distribution = "kona"
	Trava      Distribution = "trava"
	Microsoft  Distribution = "microsoft"
	Oracle     Distribution = "oracle"
)

// displayNames maps canonical ids to vendor-official names.
var displayNames = map[Distribution]string{
	Temurin:    "Eclipse Temurin",
	Corretto:   "Amazon Corretto",
	Zulu:       "Azul Zulu",
	OpenJDK:    "OpenJDK",
	GraalVM:    "GraalVM",
	GraalVMCE:  "GraalVM Community Edition",
	Liberica:   "BellSoft Liberica",
	Dragonwell: "Alibaba Dragonwell",
	SapMachine: "SAP SapMachine",
	Semeru:     "IBM Semeru",
	Mandrel:    "Mandrel",
	Kona:       "Tencent Kona",
	Trava:      "Trava OpenJDK",
	Microsoft:  "Microsoft Build of OpenJDK",
	Oracle:     "Oracle JDK",
}

// builtinSynonyms maps well-known aliases to canonical ids. Catalog
// sources may extend this set at runtime via the synonym map they ship.
var builtinSynonyms = map[string]Distribution{
	"adoptopenjdk":     Temurin,
	"adopt":            Temurin,
	"eclipse_temurin":  Temurin,
	"amazon-corretto":  Corretto,
	"azul":             Zulu,
	"zulu_prime":       Zulu,
	"graalvm-ce":       GraalVMCE,
	"graal":            GraalVM,
	"bellsoft":         Liberica,
	"sap_machine":      SapMachine,
	"semeru_certified": Semeru,
	"tencent":          Kona,
}

// Parse canonicalizes a user token: case-insensitive lookup through the
// builtin synonym set, falling back to the lowercased token itself.
func Parse(token string) Distribution {
	lower := strings.ToLower(strings.TrimSpace(token))
	if canonical, ok := builtinSynonyms[lower]; ok {
		return canonical
	}
	return Distribution(lower)
}

// ParseWithSynonyms canonicalizes a token using a catalog-provided
// synonym map before falling back to the builtin set.
func ParseWithSynonyms(token string, synonyms map[string]string) Distribution {
	lower := strings.ToLower(strings.TrimSpace(token))
	if synonyms != nil {
		if canonical, ok := synonyms[lower]; ok {
			return Distribution(canonical)
		}
	}
	return Parse(lower)
}

// ID returns the canonical identifier.
func (d Distribution) ID() string {
	return string(d)
}

// DisplayName returns the vendor-official display name, or the id itself
// for unknown vendors.
func (d Distribution) DisplayName() string {
	if name, ok := displayNames[d]; ok {
		return name
	}
	return string(d)
}

// IsKnown reports whether the distribution is one of the canonical set.
func (d Distribution) IsKnown() bool {
	_, ok := displayNames[d]
	return ok
}
