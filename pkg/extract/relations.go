package extract

import (
	"regexp"
	"strings"

	"github.com/graphein/graphein/pkg/types"
)

// Relation strength constants. Explicit phrase patterns always carry a
// higher base strength than proximity co-occurrence.
const (
	explicitStrength = 0.80
	emailedStrength  = 0.75
	locatedStrength  = 0.75

	coocMinStrength = 0.10
	coocMaxStrength = 0.40
	// coocWindow is the byte distance beyond which co-occurring mentions
	// contribute only the minimum strength.
	coocWindow = 400
)

const (
	namePattern  = `[A-Z][A-Za-z]*(?: [A-Z][A-Za-z]*)*`
	emailCapture = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`
)

// explicitPattern is one keyed phrase form, e.g. "X works at Y". The two
// capture groups become source and target entities.
type explicitPattern struct {
	re         *regexp.Regexp
	relation   types.RelationType
	sourceType types.EntityType
	targetType types.EntityType
	strength   float64
}

var explicitPatterns = []explicitPattern{
	{
		re:         regexp.MustCompile(`(` + namePattern + `) works (?:at|for) (` + namePattern + `)`),
		relation:   types.RelationWorksAt,
		sourceType: types.EntityTypePerson,
		targetType: types.EntityTypeOrg,
		strength:   explicitStrength,
	},
	{
		re:         regexp.MustCompile(`(` + namePattern + `) owns (` + namePattern + `)`),
		relation:   types.RelationOwns,
		sourceType: types.EntityTypePerson,
		targetType: types.EntityTypeOrg,
		strength:   explicitStrength,
	},
	{
		re:         regexp.MustCompile(`(` + namePattern + `) is (?:located|based) in (` + namePattern + `)`),
		relation:   types.RelationLocatedIn,
		sourceType: types.EntityTypeOrg,
		targetType: types.EntityTypePlace,
		strength:   locatedStrength,
	},
	{
		re:         regexp.MustCompile(`(` + emailCapture + `|` + namePattern + `)(?: also)? emailed (` + emailCapture + `|` + namePattern + `)`),
		relation:   types.RelationEmailed,
		sourceType: types.EntityTypePerson,
		targetType: types.EntityTypePerson,
		strength:   emailedStrength,
	},
}

// ExplicitPatternExtractor matches keyed phrase patterns ("X works at Y")
// and emits both the typed relation and its endpoint entities.
type ExplicitPatternExtractor struct {
	patterns []explicitPattern
}

func NewExplicitPatternExtractor() *ExplicitPatternExtractor {
	return &ExplicitPatternExtractor{patterns: explicitPatterns}
}

func (*ExplicitPatternExtractor) Name() string { return "explicit_pattern" }

func (e *ExplicitPatternExtractor) ExtractRelations(text string, _ []Mention) ([]Mention, []*types.Relation) {
	var mentions []Mention
	var relations []*types.Relation
	for _, pat := range e.patterns {
		for _, loc := range pat.re.FindAllStringSubmatchIndex(text, -1) {
			src := text[loc[2]:loc[3]]
			dst := text[loc[4]:loc[5]]

			srcEnt := endpointEntity(src, pat.sourceType)
			dstEnt := endpointEntity(dst, pat.targetType)
			mentions = append(mentions,
				Mention{Entity: srcEnt, Start: loc[2], End: loc[3]},
				Mention{Entity: dstEnt, Start: loc[4], End: loc[5]},
			)
			relations = append(relations, types.NewRelation(srcEnt.ID, dstEnt.ID, pat.relation, pat.strength))
		}
	}
	return mentions, relations
}

// endpointEntity types a captured endpoint: anything with an @ is an email
// address regardless of the pattern's declared type, so pattern-introduced
// mentions merge with the email extractor's.
func endpointEntity(value string, fallback types.EntityType) *types.Entity {
	if strings.Contains(value, "@") {
		return types.NewEntity(types.EntityTypeEmail, value, emailConfidence)
	}
	confidence := personConfidence
	if fallback == types.EntityTypeOrg {
		confidence = orgConfidence
	}
	return types.NewEntity(fallback, value, confidence)
}

// CooccurrenceExtractor links every pair of distinct entities mentioned in
// the same chunk, with strength rising as the mentions sit closer together.
type CooccurrenceExtractor struct{}

func NewCooccurrenceExtractor() *CooccurrenceExtractor { return &CooccurrenceExtractor{} }

func (*CooccurrenceExtractor) Name() string { return "cooccurrence" }

func (*CooccurrenceExtractor) ExtractRelations(_ string, mentions []Mention) ([]Mention, []*types.Relation) {
	var relations []*types.Relation
	for i := 0; i < len(mentions); i++ {
		for j := i + 1; j < len(mentions); j++ {
			a, b := mentions[i], mentions[j]
			if a.Entity.ID == b.Entity.ID {
				continue
			}
			// Canonical direction keeps the pair deduplicatable.
			if a.Entity.ID > b.Entity.ID {
				a, b = b, a
			}
			relations = append(relations, types.NewRelation(
				a.Entity.ID, b.Entity.ID, types.RelationCooccurrence,
				cooccurrenceStrength(a, b),
			))
		}
	}
	return nil, relations
}

func cooccurrenceStrength(a, b Mention) float64 {
	midA := (a.Start + a.End) / 2
	midB := (b.Start + b.End) / 2
	dist := midA - midB
	if dist < 0 {
		dist = -dist
	}
	proximity := 1 - float64(dist)/coocWindow
	if proximity < 0 {
		proximity = 0
	}
	return coocMinStrength + (coocMaxStrength-coocMinStrength)*proximity
}
