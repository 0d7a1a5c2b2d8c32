// Package interpreter turns free-form Spanish questions about chemical
// toxicity into a structured query: one substance and a set of endpoints.
package interpreter

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/seanankenbruck/qsar-chat/internal/catalog"
)

const (
	// UnknownSubstance is reported when no substance could be extracted.
	UnknownSubstance = "sustancia_desconocida"

	LanguageSpanish  = "es"
	QueryTypeNatural = "natural"

	maxExamples = 3
)

var (
	substanceSuggestions = []string{
		"Por favor, especifica claramente el nombre de la sustancia química",
		`Ejemplo: "¿El benceno es irritante dérmico?"`,
		`Puedes usar comillas: "¿La sustancia 'acetona' es tóxica?"`,
	}
	endpointSuggestions = []string{
		"Por favor, especifica qué tipo de análisis toxicológico necesitas",
		"Opciones: toxicidad aguda, irritación, sensibilización, ambiental",
		`Ejemplo: "Toxicidad aguda oral del tolueno"`,
	}
)

// Query is the structured form of a user question.
type Query struct {
	Substance string   `json:"substance"`
	Endpoints []string `json:"endpoints"`
	Language  string   `json:"language"`
	QueryType string   `json:"query_type"`
}

// Interpretation is either a valid query or a list of hints for the user.
type Interpretation struct {
	Valid       bool     `json:"valid"`
	Query       Query    `json:"query"`
	Suggestions []string `json:"suggestions,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

type substancePattern struct {
	re *regexp.Regexp
	// quoted captures are taken verbatim, others must not be filler words.
	quoted bool
}

// Patterns run against lower-cased input, in priority order.
var substancePatterns = []substancePattern{
	{re: regexp.MustCompile(`"([^"]+)"|'([^']+)'|“([^”]+)”|«([^»]+)»`), quoted: true},
	{re: regexp.MustCompile(`(?:^|[^\p{L}\d])(?:sustancia|compuesto|químico|producto)\s+([\p{L}\d\-]+)`)},
	{re: regexp.MustCompile(`(?:^|[^\p{L}\d])(?:del|al)\s+([\p{L}\d\-]+)`)},
	{re: regexp.MustCompile(`(?:^|[^\p{L}\d])(?:para|de)\s+(?:(?:el|la)\s+)?([\p{L}\d\-]+)`)},
}

var guidelinePattern = regexp.MustCompile(`oecd\s+(?:tg\s+)?(\d+)`)

var tokenReplacer = strings.NewReplacer("¿", "", "?", "", ".", "", ",", "", ";", "", ":", "", "!", "")

// Interpreter extracts queries using the keyword, guideline and stopword
// tables of a catalog. It holds no mutable state.
type Interpreter struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Interpreter {
	return &Interpreter{catalog: c}
}

// Parse extracts a query from text. It never fails: an unrecognised
// substance becomes UnknownSubstance and missing endpoints fall back to the
// catalog default.
func (i *Interpreter) Parse(text string) Query {
	normalized := strings.ToLower(strings.TrimSpace(text))
	return Query{
		Substance: i.extractSubstance(normalized),
		Endpoints: i.extractEndpoints(normalized),
		Language:  LanguageSpanish,
		QueryType: QueryTypeNatural,
	}
}

// Interpret parses text and validates the result.
func (i *Interpreter) Interpret(text string) Interpretation {
	q := i.Parse(text)

	var suggestions []string
	switch {
	case q.Substance == UnknownSubstance:
		suggestions = substanceSuggestions
	case len(q.Endpoints) == 0:
		suggestions = endpointSuggestions
	}

	if suggestions != nil {
		examples := i.catalog.Examples()
		if len(examples) > maxExamples {
			examples = examples[:maxExamples]
		}
		return Interpretation{
			Query:       q,
			Suggestions: append([]string(nil), suggestions...),
			Examples:    examples,
		}
	}
	return Interpretation{Valid: true, Query: q}
}

func (i *Interpreter) extractSubstance(text string) string {
	for _, p := range substancePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			candidate := firstGroup(m)
			if candidate == "" || utf8.RuneCountInString(candidate) <= 2 {
				continue
			}
			if !p.quoted && (i.catalog.IsStopword(candidate) || i.catalog.IsKeywordFragment(candidate)) {
				continue
			}
			return i.canonical(candidate)
		}
	}

	tokens := strings.Fields(text)
	cleaned := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if w := tokenReplacer.Replace(tok); w != "" {
			cleaned = append(cleaned, w)
		}
	}

	for _, w := range cleaned {
		if s, ok := i.catalog.Substance(w); ok {
			return s.Name
		}
	}
	for _, w := range cleaned {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if i.catalog.IsStopword(w) || i.catalog.IsKeywordFragment(w) {
			continue
		}
		return w
	}
	return UnknownSubstance
}

// canonical maps a candidate to the catalog spelling when the substance is
// known, so "formaldehido" resolves to "formaldehído".
func (i *Interpreter) canonical(candidate string) string {
	if s, ok := i.catalog.Substance(candidate); ok {
		return s.Name
	}
	return candidate
}

func (i *Interpreter) extractEndpoints(text string) []string {
	codes := i.catalog.MatchKeywords(text)
	for _, m := range guidelinePattern.FindAllStringSubmatch(text, -1) {
		codes = append(codes, i.catalog.GuidelineEndpoints(m[1])...)
	}

	codes = i.catalog.SortEndpoints(codes)
	if len(codes) == 0 {
		codes = []string{i.catalog.DefaultEndpoint()}
	}
	return codes
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if s := strings.TrimSpace(g); s != "" {
			return s
		}
	}
	return ""
}
