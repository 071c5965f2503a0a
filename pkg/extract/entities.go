package extract

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/graphein/graphein/pkg/types"
)

// Per-type extraction confidence. Pattern matches that also pass semantic
// validation score higher than loosely-shaped ones.
const (
	emailConfidence  = 0.95
	urlConfidence    = 0.90
	ipConfidence     = 0.90
	dateConfidence   = 0.85
	phoneConfidence  = 0.80
	personConfidence = 0.60
	orgConfidence    = 0.70
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\-\s().]{5,18}\d`)
	ipPattern    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// datePatterns pair a regex with the layout used to validate its matches.
var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), "2006-01-02"},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), "1/2/2006"},
	{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4}\b`), "January 2, 2006"},
}

// EmailExtractor finds RFC-parseable email addresses.
type EmailExtractor struct{}

func NewEmailExtractor() *EmailExtractor { return &EmailExtractor{} }

func (*EmailExtractor) Name() string { return "email" }

func (*EmailExtractor) ExtractEntities(text string) []Mention {
	var out []Mention
	for _, loc := range emailPattern.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if _, err := mail.ParseAddress(match); err != nil {
			continue
		}
		out = append(out, Mention{
			Entity: types.NewEntity(types.EntityTypeEmail, match, emailConfidence),
			Start:  loc[0],
			End:    loc[1],
		})
	}
	return out
}

// URLExtractor finds http(s) URLs with a parseable host.
type URLExtractor struct{}

func NewURLExtractor() *URLExtractor { return &URLExtractor{} }

func (*URLExtractor) Name() string { return "url" }

func (*URLExtractor) ExtractEntities(text string) []Mention {
	var out []Mention
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		match := strings.TrimRight(text[loc[0]:loc[1]], ".,;:")
		parsed, err := url.Parse(match)
		if err != nil || parsed.Host == "" {
			continue
		}
		out = append(out, Mention{
			Entity: types.NewEntity(types.EntityTypeURL, match, urlConfidence),
			Start:  loc[0],
			End:    loc[0] + len(match),
		})
	}
	return out
}

// PhoneExtractor finds phone numbers with 7-15 digits. Identity is the
// digit string (with any leading +), so formatting variants of one number
// deduplicate to a single entity.
type PhoneExtractor struct{}

func NewPhoneExtractor() *PhoneExtractor { return &PhoneExtractor{} }

func (*PhoneExtractor) Name() string { return "phone" }

func (*PhoneExtractor) ExtractEntities(text string) []Mention {
	var out []Mention
	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		digits := normalizePhone(match)
		n := len(strings.TrimPrefix(digits, "+"))
		if n < 7 || n > 15 {
			continue
		}
		ent := types.NewEntity(types.EntityTypePhone, match, phoneConfidence)
		ent.Normalized = digits
		ent.ID = types.EntityID(types.EntityTypePhone, digits)
		out = append(out, Mention{Entity: ent, Start: loc[0], End: loc[1]})
	}
	return out
}

func normalizePhone(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IPExtractor finds valid dotted-quad IPv4 addresses.
type IPExtractor struct{}

func NewIPExtractor() *IPExtractor { return &IPExtractor{} }

func (*IPExtractor) Name() string { return "ip" }

func (*IPExtractor) ExtractEntities(text string) []Mention {
	var out []Mention
	for _, loc := range ipPattern.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if net.ParseIP(match) == nil {
			continue
		}
		out = append(out, Mention{
			Entity: types.NewEntity(types.EntityTypeIP, match, ipConfidence),
			Start:  loc[0],
			End:    loc[1],
		})
	}
	return out
}

// DateExtractor finds calendar dates in common formats. Identity is the
// ISO form, so "03/04/2021" and "March 4, 2021" deduplicate.
type DateExtractor struct{}

func NewDateExtractor() *DateExtractor { return &DateExtractor{} }

func (*DateExtractor) Name() string { return "date" }

func (*DateExtractor) ExtractEntities(text string) []Mention {
	var out []Mention
	for _, pat := range datePatterns {
		for _, loc := range pat.re.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			parsed, err := time.Parse(pat.layout, match)
			if err != nil {
				continue
			}
			iso := parsed.Format("2006-01-02")
			ent := types.NewEntity(types.EntityTypeDate, match, dateConfidence)
			ent.Normalized = iso
			ent.ID = types.EntityID(types.EntityTypeDate, iso)
			out = append(out, Mention{Entity: ent, Start: loc[0], End: loc[1]})
		}
	}
	return out
}
