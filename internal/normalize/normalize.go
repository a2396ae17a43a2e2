// Package normalize cleans extracted fields, rejects blocks that are not
// schools and assembles the canonical record.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"schooldir/internal/classify"
	"schooldir/internal/extract"
	"schooldir/internal/school"
)

const (
	ReasonMissingName = "missing_name"
	ReasonNonSchool   = "non_school"
)

// Rejection explains why a block did not become a record.
type Rejection struct {
	Reason string
	Name   string
}

func (r *Rejection) Error() string {
	if r.Name == "" {
		return r.Reason
	}
	return r.Reason + ": " + r.Name
}

// Context carries the run-level values stamped onto every record.
type Context struct {
	District  string
	Source    string
	Trust     school.Trust
	FetchedAt time.Time
}

type Normalizer struct {
	// Denylist matches names of training centres and similar entities.
	Denylist []*regexp.Regexp
	// SchoolTokens rescues a denylisted name when found outside the
	// denylisted phrase.
	SchoolTokens *regexp.Regexp
}

func New() *Normalizer {
	return &Normalizer{
		Denylist: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(EDUCATION|TUTORIAL|LEARNING|MATHEMATICS|MATHS|SCIENCE|LANGUAGE)\s+(CENTRE|CENTER)\b`),
			regexp.MustCompile(`(?i)\bTUTORIAL\s+SCHOOL\b`),
			regexp.MustCompile(`(?i)\b(ENGLISH|LANGUAGE)\s+(INSTITUTE|ACADEMY)\b`),
			regexp.MustCompile(`(?i)\bCRAM\s+SCHOOL\b`),
			regexp.MustCompile(`補習|教育中心`),
		},
		SchoolTokens: regexp.MustCompile(`(?i)\b(SCHOOL|COLLEGE|ACADEMY|UNIVERSITY|KINDERGARTEN)\b`),
	}
}

// Normalize turns a partial into a record, or explains why it cannot.
func (n *Normalizer) Normalize(p extract.Partial, c classify.Result, ctx Context) (school.Record, *Rejection) {
	name := Text(p.Name)
	if name == "" {
		return school.Record{}, &Rejection{Reason: ReasonMissingName}
	}
	if n.nonSchool(name) {
		return school.Record{}, &Rejection{Reason: ReasonNonSchool, Name: name}
	}

	rec := school.Record{
		Identity: school.Identity{
			Name:     name,
			District: Text(ctx.District),
		},
		LocalName: Text(p.LocalName),
		Level:     c.Level,
		Funding:   c.Funding,
		Gender:    gender(p.Gender),
		Contact: school.Contact{
			Phone:        Phone(p.Phone),
			Fax:          Phone(p.Fax),
			Address:      Text(p.Address),
			LocalAddress: Text(p.LocalAddress),
			Website:      Website(p.Website),
		},
		Leadership: school.Leadership{
			Principal:  Text(p.Principal),
			Supervisor: Text(p.Supervisor),
		},
		ExternalCode: Text(p.Code),
		Provenance: school.Provenance{
			Source:    ctx.Source,
			Trust:     ctx.Trust,
			FetchedAt: ctx.FetchedAt,
		},
		Inferred: school.Inferred{
			Level:   c.LevelDefaulted,
			Funding: c.FundingDefaulted,
			Gender:  p.Gender == "",
		},
	}
	if rec.Level == "" {
		rec.Level = school.Secondary
		rec.Inferred.Level = true
	}
	if rec.Funding == "" {
		rec.Funding = school.Aided
		rec.Inferred.Funding = true
	}
	return rec, nil
}

// nonSchool reports whether name matches the denylist and has no school
// token left once the denylisted phrases are removed.
func (n *Normalizer) nonSchool(name string) bool {
	rest := name
	hit := false
	for _, re := range n.Denylist {
		if re.MatchString(rest) {
			hit = true
			rest = re.ReplaceAllString(rest, " ")
		}
	}
	if !hit {
		return false
	}
	return n.SchoolTokens == nil || !n.SchoolTokens.MatchString(rest)
}

func gender(v string) school.Gender {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "boys", "boy", "男", "男校":
		return school.Boys
	case "girls", "girl", "女", "女校":
		return school.Girls
	default:
		return school.Coed
	}
}

// Text strips markup, decodes entities and collapses whitespace.
func Text(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsRune(s, '<') {
		s = stripTags(s)
	} else {
		s = html.UnescapeString(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}

// Phone drops the spacing sources put inside numbers.
func Phone(s string) string {
	s = Text(s)
	return strings.Join(strings.Fields(s), "")
}

// Website adds a scheme to bare host names.
func Website(s string) string {
	s = Text(s)
	if s == "" {
		return ""
	}
	l := strings.ToLower(s)
	if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") {
		return s
	}
	return "http://" + s
}
