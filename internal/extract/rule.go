package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Input is the text a rule runs against. The parsed document is built on
// first use and shared by every selector rule for the same block.
type Input struct {
	Text string
	doc  *goquery.Document
	err  error
}

func NewInput(text string) *Input {
	return &Input{Text: text}
}

func (in *Input) Doc() (*goquery.Document, error) {
	if in.doc == nil && in.err == nil {
		in.doc, in.err = goquery.NewDocumentFromReader(strings.NewReader(in.Text))
	}
	return in.doc, in.err
}

// Rule pulls one value out of an input. ok is false when the rule does not
// apply, which lets the next rule in the list try.
type Rule interface {
	Match(in *Input) (value string, ok bool)
}

// Rules is tried in order, first match wins.
type Rules []Rule

func (rs Rules) First(in *Input) (string, bool) {
	for _, r := range rs {
		if v, ok := r.Match(in); ok {
			return v, true
		}
	}
	return "", false
}

// Pattern returns capture group 1 of the first match accepted by Accept.
type Pattern struct {
	Re     *regexp.Regexp
	Accept func(string) bool
}

func Regex(expr string) Pattern {
	return Pattern{Re: regexp.MustCompile(expr)}
}

// Where narrows the pattern to matches the predicate accepts.
func (p Pattern) Where(accept func(string) bool) Pattern {
	p.Accept = accept
	return p
}

func (p Pattern) Match(in *Input) (string, bool) {
	for _, m := range p.Re.FindAllStringSubmatch(in.Text, -1) {
		if len(m) < 2 {
			continue
		}
		v := strings.TrimSpace(m[1])
		if v == "" {
			continue
		}
		if p.Accept != nil && !p.Accept(v) {
			continue
		}
		return v, true
	}
	return "", false
}

// Scoped runs Rule only on the text between the end of the first Start match
// and the next Until match. Without an Until match the scope runs to the end
// of the input.
type Scoped struct {
	Start *regexp.Regexp
	Until *regexp.Regexp
	Rule  Rule
}

func (s Scoped) Match(in *Input) (string, bool) {
	loc := s.Start.FindStringIndex(in.Text)
	if loc == nil {
		return "", false
	}
	rest := in.Text[loc[1]:]
	if s.Until != nil {
		if end := s.Until.FindStringIndex(rest); end != nil {
			rest = rest[:end[0]]
		}
	}
	return s.Rule.Match(NewInput(rest))
}

// Selector returns the text of the first element matching Query.
type Selector struct {
	Query string
}

func (s Selector) Match(in *Input) (string, bool) {
	doc, err := in.Doc()
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(doc.Find(s.Query).First().Text())
	return v, v != ""
}

// LinkText returns the target of the first anchor whose visible text is
// itself a URL. Other anchors in the block, such as icon links, are ignored.
type LinkText struct{}

func (LinkText) Match(in *Input) (string, bool) {
	doc, err := in.Doc()
	if err != nil {
		return "", false
	}
	var found string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.TrimSpace(a.Text())
		if !looksLikeURL(text) {
			return true
		}
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			found = strings.TrimSpace(href)
		} else {
			found = text
		}
		return false
	})
	return found, found != ""
}

func looksLikeURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "www.")
}

// Markers resolves a value from literal tokens found anywhere in the input.
// When tokens for more than one value are present the rule does not match.
type Markers struct {
	Values []Marker
}

type Marker struct {
	Value string
	Re    *regexp.Regexp
}

func (m Markers) Match(in *Input) (string, bool) {
	found := ""
	for _, mk := range m.Values {
		if !mk.Re.MatchString(in.Text) {
			continue
		}
		if found != "" && found != mk.Value {
			return "", false
		}
		found = mk.Value
	}
	return found, found != ""
}

// HasHan reports whether s contains a Han character.
func HasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func NotHan(s string) bool {
	return !HasHan(s)
}

// Transform rewrites the value of a matching rule.
type Transform struct {
	Rule Rule
	Fn   func(string) string
}

func (t Transform) Match(in *Input) (string, bool) {
	v, ok := t.Rule.Match(in)
	if !ok {
		return "", false
	}
	v = t.Fn(v)
	return v, v != ""
}
