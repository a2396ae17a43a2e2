// Package classify derives level and funding for a record from the section
// headings that precede it and from keywords in its name.
package classify

import (
	"regexp"

	"schooldir/internal/extract"
	"schooldir/internal/school"
	"schooldir/internal/segment"
)

// Heading is a section label that governs every block after it until the
// next heading. Funding is empty when the heading says nothing about it.
type Heading struct {
	Re      *regexp.Regexp
	Level   school.Level
	Funding school.Funding
}

func NewHeading(expr string, level school.Level, funding school.Funding) Heading {
	return Heading{Re: regexp.MustCompile(expr), Level: level, Funding: funding}
}

type Keyword struct {
	Re      *regexp.Regexp
	Funding school.Funding
}

func NewKeyword(expr string, funding school.Funding) Keyword {
	return Keyword{Re: regexp.MustCompile(expr), Funding: funding}
}

// Classifier holds headings ordered most specific first.
type Classifier struct {
	Headings     []Heading
	Keywords     []Keyword
	DefaultLevel school.Level
}

type Result struct {
	Level   school.Level
	Funding school.Funding
	// Heading is the matched heading text, empty when none preceded the block.
	Heading          string
	LevelDefaulted   bool
	FundingDefaulted bool
}

// WithDefault returns a copy that falls back to level when no heading
// precedes a block.
func (c *Classifier) WithDefault(level school.Level) *Classifier {
	cp := *c
	if level != "" {
		cp.DefaultLevel = level
	}
	return &cp
}

// Classify resolves level and funding for block, which was cut from doc.
func (c *Classifier) Classify(doc string, block segment.Block, p extract.Partial) Result {
	var res Result

	h, text, ok := c.nearest(doc, block.Offset)
	if ok {
		res.Level = h.Level
		res.Heading = text
	} else {
		res.Level = c.DefaultLevel
		if res.Level == "" {
			res.Level = school.Secondary
		}
		res.LevelDefaulted = true
	}

	// a heading that names a funding type outranks name keywords
	if ok && h.Funding != "" {
		res.Funding = h.Funding
	} else if f, found := c.fundingFromName(p.Name, p.LocalName); found {
		res.Funding = f
	} else {
		res.Funding = school.Aided
		res.FundingDefaulted = true
	}
	return res
}

// nearest finds the heading whose last match ends closest before offset.
// Distance is measured from the end of the match so a specific heading wins
// over a generic one it contains; ties keep the earlier heading in the list.
func (c *Classifier) nearest(doc string, offset int) (Heading, string, bool) {
	if offset > len(doc) {
		offset = len(doc)
	}
	prefix := doc[:offset]

	best := -1
	bestDist := 0
	bestText := ""
	for i, h := range c.Headings {
		locs := h.Re.FindAllStringIndex(prefix, -1)
		if len(locs) == 0 {
			continue
		}
		last := locs[len(locs)-1]
		dist := offset - last[1]
		if best == -1 || dist < bestDist {
			best, bestDist, bestText = i, dist, prefix[last[0]:last[1]]
		}
	}
	if best == -1 {
		return Heading{}, "", false
	}
	return c.Headings[best], bestText, true
}

func (c *Classifier) fundingFromName(name, localName string) (school.Funding, bool) {
	for _, k := range c.Keywords {
		if k.Re.MatchString(name) || (localName != "" && k.Re.MatchString(localName)) {
			return k.Funding, true
		}
	}
	return "", false
}

// DefaultKeywords are the name keywords that hint at funding type.
func DefaultKeywords() []Keyword {
	return []Keyword{
		NewKeyword(`(?i)\bgovernment\b|官立`, school.Government),
		NewKeyword(`(?i)\bdirect\s+subsidy\b|\bDSS\b|直資`, school.DirectSubsidy),
		NewKeyword(`(?i)\bprivate\b|私立`, school.Private),
		NewKeyword(`(?i)\binternational\b|國際`, school.Private),
	}
}
