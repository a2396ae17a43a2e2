package sources

import (
	"fmt"

	"schooldir/internal/classify"
	"schooldir/internal/extract"
	"schooldir/internal/school"
	"schooldir/internal/segment"
)

const directoryBaseURL = "https://www.schooland.hk"

// Directory parses the third-party directory's listing pages.
func Directory() *Profile {
	fields := extract.FieldSet{
		Name: extract.Rules{
			extract.Selector{Query: "h3"},
			extract.Regex(`<h3[^>]*>\s*(?:<a[^>]*>)?([^<]+)`),
		},
		LocalName: extract.Rules{
			extract.Selector{Query: ".title_cn"},
			extract.Regex(`<span[^>]*class="title_cn"[^>]*>([^<]+)</span>`),
		},
		Address: extract.Rules{
			extract.Transform{Rule: extract.Selector{Query: ".address"}, Fn: keepIf(extract.NotHan)},
			extract.Regex(`(?i)Address\s*[:：]\s*([^<\n|]+)`),
		},
		LocalAddress: extract.Rules{
			extract.Transform{Rule: extract.Selector{Query: ".address"}, Fn: keepIf(extract.HasHan)},
			extract.Regex(`地址\s*[:：]\s*([^<\n|]+)`),
		},
		Phone: extract.Rules{
			extract.Regex(`(?i)\bPhone\s*[:：]\s*(\d[\d \-]*)`),
			extract.Regex(`電話\s*[:：]\s*(\d[\d \-]*)`),
		},
		Fax: extract.Rules{
			extract.Regex(`(?i)\bFax\s*[:：]\s*(\d[\d \-]*)`),
			extract.Regex(`傳真\s*[:：]\s*(\d[\d \-]*)`),
		},
		Principal: extract.Rules{
			extract.Regex(`(?i)\bPrincipal\s*[:：]\s*([^<\n|]+)`),
			extract.Regex(`校長\s*[:：]\s*([^<\n|]+)`),
		},
		Supervisor: extract.Rules{
			extract.Regex(`(?i)\bSupervisor\s*[:：]\s*([^<\n|]+)`),
			extract.Regex(`校監\s*[:：]\s*([^<\n|]+)`),
		},
		Website: extract.Rules{
			extract.LinkText{},
		},
		Gender: extract.Rules{
			genderMarkers(),
		},
	}

	return &Profile{
		ID:        "directory",
		Source:    "schooland.hk",
		Trust:     school.TrustDirectory,
		Segmenter: segment.New(`<div[^>]*class="[^"]*\bschool-item\b[^"]*"`),
		Fields:    fields,
		Classifier: &classify.Classifier{
			Headings: []classify.Heading{
				classify.NewHeading(`(?i)<h2[^>]*>\s*(?:Kindergartens|幼稚園)`, school.Kindergarten, ""),
				classify.NewHeading(`(?i)<h2[^>]*>\s*(?:Primary Schools|小學)`, school.Primary, ""),
				classify.NewHeading(`(?i)<h2[^>]*>\s*(?:Secondary Schools|中學)`, school.Secondary, ""),
				classify.NewHeading(`(?i)<h2[^>]*>\s*(?:International Schools|國際學校)`, school.Secondary, school.Private),
			},
			Keywords: classify.DefaultKeywords(),
		},
		Expected: []string{extract.FieldName},
		units: func() []Unit {
			return []Unit{
				{URL: fmt.Sprintf("%s/ps", directoryBaseURL), Level: school.Primary},
				{URL: fmt.Sprintf("%s/ss", directoryBaseURL), Level: school.Secondary},
			}
		},
	}
}

func keepIf(accept func(string) bool) func(string) string {
	return func(v string) string {
		if accept(v) {
			return v
		}
		return ""
	}
}
