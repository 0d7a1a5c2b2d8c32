// Package catalog holds the read-only reference data shared by the query
// interpreter and the prediction lookup: endpoint definitions, the substance
// table, keyword and OECD guideline tables, stopwords and example queries.
package catalog

import (
	"fmt"
	"strings"
)

// EndpointCategory groups endpoints by the kind of hazard they describe.
type EndpointCategory string

const (
	CategoryAcute           EndpointCategory = "acute"
	CategoryIrritation      EndpointCategory = "irritation"
	CategorySensitization   EndpointCategory = "sensitization"
	CategoryEnvironmental   EndpointCategory = "environmental"
	CategoryPhysicochemical EndpointCategory = "physicochemical"
)

func (c EndpointCategory) valid() bool {
	switch c {
	case CategoryAcute, CategoryIrritation, CategorySensitization, CategoryEnvironmental, CategoryPhysicochemical:
		return true
	}
	return false
}

// RiskCategory is the coarse hazard level attached to a prediction.
type RiskCategory string

const (
	RiskLow      RiskCategory = "low"
	RiskModerate RiskCategory = "moderate"
	RiskHigh     RiskCategory = "high"
	RiskVeryHigh RiskCategory = "very_high"
)

// Valid reports whether r is one of the known risk levels.
func (r RiskCategory) Valid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh, RiskVeryHigh:
		return true
	}
	return false
}

// Endpoint describes a toxicological property that can be predicted.
type Endpoint struct {
	Code          string           `yaml:"code" json:"code"`
	NameES        string           `yaml:"name_es" json:"name_es"`
	NameEN        string           `yaml:"name_en" json:"name_en"`
	DescriptionES string           `yaml:"description_es" json:"description_es"`
	OECDGuideline string           `yaml:"oecd_guideline" json:"oecd_guideline,omitempty"`
	Category      EndpointCategory `yaml:"category" json:"category"`
}

// Record is a stored prediction for one substance and endpoint.
type Record struct {
	Value      Value        `yaml:"value" json:"value"`
	Unit       string       `yaml:"unit" json:"unit"`
	Confidence float64      `yaml:"confidence" json:"confidence"`
	Category   RiskCategory `yaml:"category" json:"category"`
}

// Substance is an entry of the substance table.
type Substance struct {
	Name    string            `yaml:"name" json:"name"`
	Records map[string]Record `yaml:"records" json:"records"`
}

// Keyword maps a Spanish phrase to the endpoints it implies.
type Keyword struct {
	Phrase    string   `yaml:"phrase" json:"phrase"`
	Endpoints []string `yaml:"endpoints" json:"endpoints"`
}

// Stats summarises the catalog for the examples endpoint.
type Stats struct {
	KnownSubstances    int    `json:"known_substances"`
	SupportedEndpoints int    `json:"supported_endpoints"`
	Version            string `json:"version"`
}

// Document is the serialized form of a catalog.
type Document struct {
	Version         string              `yaml:"version"`
	DefaultEndpoint string              `yaml:"default_endpoint"`
	Endpoints       []Endpoint          `yaml:"endpoints"`
	Substances      []Substance         `yaml:"substances"`
	Keywords        []Keyword           `yaml:"keywords"`
	Guidelines      map[string][]string `yaml:"oecd_guidelines"`
	Stopwords       []string            `yaml:"stopwords"`
	Examples        []string            `yaml:"examples"`
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	version         string
	defaultEndpoint string
	endpoints       []Endpoint
	endpointIndex   map[string]int
	substances      []Substance
	substanceIndex  map[string]int
	keywords        []Keyword
	foldedKeywords  []string
	guidelines      map[string][]string
	stopwords       map[string]struct{}
	examples        []string
}

// New validates doc and builds a Catalog from it.
func New(doc Document) (*Catalog, error) {
	if strings.TrimSpace(doc.Version) == "" {
		return nil, fmt.Errorf("catalog: version is required")
	}
	if len(doc.Endpoints) == 0 {
		return nil, fmt.Errorf("catalog: at least one endpoint is required")
	}

	c := &Catalog{
		version:         doc.Version,
		defaultEndpoint: doc.DefaultEndpoint,
		endpointIndex:   make(map[string]int, len(doc.Endpoints)),
		substanceIndex:  make(map[string]int, len(doc.Substances)),
		guidelines:      make(map[string][]string, len(doc.Guidelines)),
		stopwords:       make(map[string]struct{}, len(doc.Stopwords)),
		examples:        append([]string(nil), doc.Examples...),
	}

	for _, ep := range doc.Endpoints {
		if ep.Code == "" {
			return nil, fmt.Errorf("catalog: endpoint with empty code")
		}
		if _, dup := c.endpointIndex[ep.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate endpoint %q", ep.Code)
		}
		if !ep.Category.valid() {
			return nil, fmt.Errorf("catalog: endpoint %q has unknown category %q", ep.Code, ep.Category)
		}
		c.endpointIndex[ep.Code] = len(c.endpoints)
		c.endpoints = append(c.endpoints, ep)
	}

	if _, ok := c.endpointIndex[c.defaultEndpoint]; !ok {
		return nil, fmt.Errorf("catalog: default endpoint %q is not defined", c.defaultEndpoint)
	}

	for _, s := range doc.Substances {
		key := Fold(s.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog: substance with empty name")
		}
		if _, dup := c.substanceIndex[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate substance %q", s.Name)
		}
		records := make(map[string]Record, len(s.Records))
		for code, rec := range s.Records {
			if _, ok := c.endpointIndex[code]; !ok {
				return nil, fmt.Errorf("catalog: substance %q references unknown endpoint %q", s.Name, code)
			}
			if rec.Confidence < 0 || rec.Confidence > 1 {
				return nil, fmt.Errorf("catalog: substance %q endpoint %q confidence %v out of range", s.Name, code, rec.Confidence)
			}
			if !rec.Category.Valid() {
				return nil, fmt.Errorf("catalog: substance %q endpoint %q has unknown risk category %q", s.Name, code, rec.Category)
			}
			records[code] = rec
		}
		c.substanceIndex[key] = len(c.substances)
		c.substances = append(c.substances, Substance{Name: s.Name, Records: records})
	}

	for _, kw := range doc.Keywords {
		if strings.TrimSpace(kw.Phrase) == "" {
			return nil, fmt.Errorf("catalog: keyword with empty phrase")
		}
		if err := c.checkCodes("keyword "+kw.Phrase, kw.Endpoints); err != nil {
			return nil, err
		}
		c.keywords = append(c.keywords, Keyword{Phrase: kw.Phrase, Endpoints: append([]string(nil), kw.Endpoints...)})
		c.foldedKeywords = append(c.foldedKeywords, Fold(kw.Phrase))
	}

	for number, codes := range doc.Guidelines {
		if err := c.checkCodes("guideline "+number, codes); err != nil {
			return nil, err
		}
		c.guidelines[strings.TrimSpace(number)] = append([]string(nil), codes...)
	}

	for _, w := range doc.Stopwords {
		c.stopwords[Fold(w)] = struct{}{}
	}

	return c, nil
}

func (c *Catalog) checkCodes(owner string, codes []string) error {
	if len(codes) == 0 {
		return fmt.Errorf("catalog: %s maps to no endpoints", owner)
	}
	for _, code := range codes {
		if _, ok := c.endpointIndex[code]; !ok {
			return fmt.Errorf("catalog: %s references unknown endpoint %q", owner, code)
		}
	}
	return nil
}

func (c *Catalog) Version() string { return c.version }

// DefaultEndpoint is used when a query names no endpoint.
func (c *Catalog) DefaultEndpoint() string { return c.defaultEndpoint }

// Endpoints returns the endpoint definitions in catalog order.
func (c *Catalog) Endpoints() []Endpoint {
	return append([]Endpoint(nil), c.endpoints...)
}

// Endpoint looks up an endpoint definition by code.
func (c *Catalog) Endpoint(code string) (Endpoint, bool) {
	i, ok := c.endpointIndex[code]
	if !ok {
		return Endpoint{}, false
	}
	return c.endpoints[i], true
}

// SortEndpoints removes duplicates and unknown codes and returns the rest in
// catalog order.
func (c *Catalog) SortEndpoints(codes []string) []string {
	seen := make([]bool, len(c.endpoints))
	for _, code := range codes {
		if i, ok := c.endpointIndex[code]; ok {
			seen[i] = true
		}
	}
	out := make([]string, 0, len(codes))
	for i, ok := range seen {
		if ok {
			out = append(out, c.endpoints[i].Code)
		}
	}
	return out
}

// SubstanceNames returns the known substance names in catalog order.
func (c *Catalog) SubstanceNames() []string {
	names := make([]string, len(c.substances))
	for i, s := range c.substances {
		names[i] = s.Name
	}
	return names
}

// Substance finds a substance by name, ignoring case and accents.
func (c *Catalog) Substance(name string) (Substance, bool) {
	i, ok := c.substanceIndex[Fold(name)]
	if !ok {
		return Substance{}, false
	}
	return c.substances[i], true
}

// Record returns the stored prediction for substance and endpoint code.
func (c *Catalog) Record(substance, code string) (Record, bool) {
	s, ok := c.Substance(substance)
	if !ok {
		return Record{}, false
	}
	rec, ok := s.Records[code]
	return rec, ok
}

// SimilarTo returns up to n catalog substances other than name, in catalog
// order.
func (c *Catalog) SimilarTo(name string, n int) []string {
	key := Fold(name)
	out := make([]string, 0, n)
	for _, s := range c.substances {
		if len(out) == n {
			break
		}
		if Fold(s.Name) == key {
			continue
		}
		out = append(out, s.Name)
	}
	return out
}

// Keywords returns the keyword table in declaration order.
func (c *Catalog) Keywords() []Keyword {
	return append([]Keyword(nil), c.keywords...)
}

// MatchKeywords returns the endpoint codes of every keyword phrase contained
// in text. text is compared after folding.
func (c *Catalog) MatchKeywords(text string) []string {
	folded := Fold(text)
	var codes []string
	for i, phrase := range c.foldedKeywords {
		if strings.Contains(folded, phrase) {
			codes = append(codes, c.keywords[i].Endpoints...)
		}
	}
	return codes
}

// IsKeywordFragment reports whether word occurs inside any keyword phrase.
func (c *Catalog) IsKeywordFragment(word string) bool {
	w := Fold(word)
	if w == "" {
		return false
	}
	for _, phrase := range c.foldedKeywords {
		if strings.Contains(phrase, w) {
			return true
		}
	}
	return false
}

// GuidelineEndpoints maps an OECD test guideline number to endpoint codes.
func (c *Catalog) GuidelineEndpoints(number string) []string {
	return append([]string(nil), c.guidelines[strings.TrimSpace(number)]...)
}

// IsStopword reports whether word is a filler word that never names a
// substance.
func (c *Catalog) IsStopword(word string) bool {
	_, ok := c.stopwords[Fold(word)]
	return ok
}

// Examples returns the example queries shown to users.
func (c *Catalog) Examples() []string {
	return append([]string(nil), c.examples...)
}

func (c *Catalog) Stats() Stats {
	return Stats{
		KnownSubstances:    len(c.substances),
		SupportedEndpoints: len(c.endpoints),
		Version:            c.version,
	}
}
