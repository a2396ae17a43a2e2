package sources

import (
	"fmt"
	"regexp"
	"strings"

	"schooldir/internal/classify"
	"schooldir/internal/extract"
	"schooldir/internal/school"
	"schooldir/internal/segment"
)

const edbListURL = "https://www.edb.gov.hk/en/student-parents/sch-info/sch-search/schlist-by-district/school-list-%s.html"

// District is an administrative district and the slug of its listing page.
type District struct {
	Code string
	Name string
}

var EDBDistricts = []District{
	{"cw", "Central & Western"},
	{"hke", "Eastern"},
	{"i", "Islands"},
	{"kc", "Kowloon City"},
	{"kt", "Kwun Tong"},
	{"kwt", "Kwai Tsing"},
	{"n", "Northern"},
	{"sk", "Sai Kung"},
	{"sou", "Southern"},
	{"ssp", "Sham Shui Po"},
	{"st", "Sha Tin"},
	{"tm", "Tuen Mun"},
	{"tp", "Tai Po"},
	{"tw", "Tsuen Wan"},
	{"wch", "Wan Chai"},
	{"wts", "Wong Tai Sin"},
	{"yl", "Yuen Long"},
	{"ytm", "Yau Tsim Mong"},
}

// edbIndexCell is the numbered cell opening every record.
const edbIndexCell = `<td[^>]*class="bodytxt"[^>]*rowspan="?2"?[^>]*>\s*\d+\s*<br\s*/?>`

var (
	edbName     = regexp.MustCompile(`<td[^>]*colspan="?2"?[^>]*class="bodytxt"[^>]*>\s*([A-Z][A-Za-z0-9\s.,'’()&;#\-]+?)\s*</td>`)
	edbCodeMark = regexp.MustCompile(`School No\.?\s*/\s*Location ID`)
	edbCodeRe   = regexp.MustCompile(`^([^\s/]+)\s*/\s*(\d+)$`)
	edbRow      = `<td[^>]*colspan="?2"?[^>]*class="bodytxt"[^>]*>([^<]+)</td>`
	edbAddrRow  = `<td[^>]*width="5%"[^>]*>(?:&nbsp;|\s)*</td>\s*<td[^>]*class="bodytxt"[^>]*>([^<]+)</td>`
)

// EDB parses the education registry's school-list-by-district pages.
func EDB() *Profile {
	scoped := func(r extract.Rule) extract.Rule {
		return extract.Scoped{Start: edbName, Until: edbCodeMark, Rule: r}
	}

	fields := extract.FieldSet{
		Name: extract.Rules{
			extract.Pattern{Re: edbName},
		},
		LocalName: extract.Rules{
			scoped(extract.Regex(edbRow).Where(extract.HasHan)),
		},
		Address: extract.Rules{
			scoped(extract.Regex(edbAddrRow).Where(extract.NotHan)),
		},
		LocalAddress: extract.Rules{
			scoped(extract.Regex(edbAddrRow).Where(extract.HasHan)),
		},
		Code: extract.Rules{
			extract.Transform{
				Rule: extract.Regex(`School No\.?\s*/\s*Location ID\s*[:：]\s*([^\s<]+\s*/\s*\d+)`),
				Fn:   canonicalCode,
			},
		},
		Phone: extract.Rules{
			extract.Regex(`Tel\.?\s*電話\s*[:：]\s*(?:<br\s*/?>)?\s*(\d[\d \-]*)`),
			extract.Regex(`(?i)\bTel(?:ephone)?\.?\s*[:：]\s*(\d[\d \-]{6,})`),
		},
		Fax: extract.Rules{
			extract.Regex(`Fax\s*傳真\s*[:：]\s*(?:<br\s*/?>)?\s*(\d[\d \-]*)`),
			extract.Regex(`(?i)\bFax\.?\s*[:：]\s*(\d[\d \-]{6,})`),
		},
		Principal: extract.Rules{
			extract.Regex(`Head of School\s*校長\s*[:：]\s*(?:<br\s*/?>)?\s*([^\n<]+)`),
			extract.Regex(`(?i)\bPrincipal\s*[:：]\s*(?:<br\s*/?>)?\s*([^\n<|]+)`),
		},
		Supervisor: extract.Rules{
			// the role title and its local title sit on two lines
			extract.Regex(`Chairman of SMC\s*(?:<br\s*/?>)?\s*學校管理委員會主席\s*[:：]\s*(?:<br\s*/?>)?\s*([^\n<]+)`),
			extract.Regex(`Supervisor\s*(?:<br\s*/?>)?\s*校監\s*[:：]\s*(?:<br\s*/?>)?\s*([^\n<]+)`),
		},
		Website: extract.Rules{
			extract.LinkText{},
			extract.Regex(`(?s)>\s*Website\s*網址\s*</td>.*?<a[^>]*href="([^"]+)"`),
		},
		Gender: extract.Rules{
			extract.Regex(`</table>\s*(GIRLS|CO-ED|BOYS)\b`),
			genderMarkers(),
		},
	}

	return &Profile{
		ID:         "edb",
		Source:     "edb",
		Trust:      school.TrustRegistry,
		// The English name row opens each record too, and carries it when
		// the index cell is gone.
		Segmenter:  segment.New(edbIndexCell, edbName.String()),
		Fields:     fields,
		Classifier: &classify.Classifier{Headings: EDBHeadings(), Keywords: classify.DefaultKeywords()},
		Expected:   []string{extract.FieldName, extract.FieldCode},
		units: func() []Unit {
			units := make([]Unit, 0, len(EDBDistricts))
			for _, d := range EDBDistricts {
				units = append(units, Unit{District: d.Name, URL: fmt.Sprintf(edbListURL, d.Code)})
			}
			return units
		},
	}
}

// EDBHeadings lists the registry's section headings, specific before
// generic.
func EDBHeadings() []classify.Heading {
	fundings := []struct {
		expr    string
		funding school.Funding
	}{
		{`GOVERNMENT`, school.Government},
		{`AIDED`, school.Aided},
		{`CAPUT`, school.Aided},
		{`DIRECT\s+SUBSIDY\s+SCHEME`, school.DirectSubsidy},
		{`PRIVATE`, school.Private},
		{`INTERNATIONAL`, school.Private},
	}
	levels := []struct {
		expr  string
		level school.Level
	}{
		{`PRIMARY\s+SCHOOLS`, school.Primary},
		{`SECONDARY\s+SCHOOLS`, school.Secondary},
		{`KINDERGARTENS`, school.Kindergarten},
	}

	var hs []classify.Heading
	hs = append(hs,
		classify.NewHeading(`(?i)\bNON-PROFIT-MAKING\s+KINDERGARTENS\b`, school.Kindergarten, school.Aided),
		classify.NewHeading(`(?i)\bPRIVATE\s+INDEPENDENT\s+KINDERGARTENS\b`, school.Kindergarten, school.Private),
		classify.NewHeading(`(?i)\bPOST-SECONDARY\s+(?:INSTITUTIONS|COLLEGES|SCHOOLS)\b`, school.Tertiary, ""),
	)
	for _, f := range fundings {
		for _, l := range levels {
			hs = append(hs, classify.NewHeading(`(?i)\b`+f.expr+`\s+`+l.expr+`\b`, l.level, f.funding))
		}
	}
	for _, l := range levels {
		hs = append(hs, classify.NewHeading(`(?i)\b`+l.expr+`\b`, l.level, ""))
	}
	hs = append(hs, classify.NewHeading(`(?i)\b(?:UNIVERSITIES|TERTIARY\s+INSTITUTIONS)\b`, school.Tertiary, ""))
	return hs
}

func canonicalCode(v string) string {
	v = strings.TrimSpace(v)
	if m := edbCodeRe.FindStringSubmatch(v); m != nil {
		return m[1] + " / " + m[2]
	}
	return v
}

func genderMarkers() extract.Markers {
	return extract.Markers{Values: []extract.Marker{
		{Value: "girls", Re: regexp.MustCompile(`(?i)\bGIRLS\b|女校|女子`)},
		{Value: "boys", Re: regexp.MustCompile(`(?i)\bBOYS\b|男校|男子`)},
	}}
}
