package extract

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRulesFirstMatchWins(t *testing.T) {
	rules := Rules{
		Regex(`Primary:\s*(\w+)`),
		Regex(`Fallback:\s*(\w+)`),
	}

	testCases := []struct {
		name  string
		text  string
		want  string
		match bool
	}{
		{"primary shape", "Primary: alpha Fallback: beta", "alpha", true},
		{"fallback shape", "Fallback: beta", "beta", true},
		{"neither", "nothing here", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := rules.First(NewInput(tc.text))
			require.Equal(t, tc.match, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestPatternWhere(t *testing.T) {
	row := Regex(`<td>([^<]+)</td>`)
	in := NewInput(`<td>SAI KUNG</td><td>西貢</td><td>學校</td>`)

	got, ok := row.Where(HasHan).Match(in)
	require.True(t, ok)
	require.Equal(t, "西貢", got)

	got, ok = row.Where(NotHan).Match(in)
	require.True(t, ok)
	require.Equal(t, "SAI KUNG", got)
}

func TestScopedIgnoresTextOutsideScope(t *testing.T) {
	rule := Scoped{
		Start: regexp.MustCompile(`<b>[A-Z ]+</b>`),
		Until: regexp.MustCompile(`School No`),
		Rule:  Regex(`<i>([^<]+)</i>`).Where(HasHan),
	}

	testCases := []struct {
		name  string
		text  string
		want  string
		match bool
	}{
		{
			name:  "between name and marker",
			text:  `<i>中西區</i><b>ST PAUL SCHOOL</b><i>聖保羅書院</i>School No<i>灣仔</i>`,
			want:  "聖保羅書院",
			match: true,
		},
		{
			name: "only outside the scope",
			text: `<i>中西區</i><b>ST PAUL SCHOOL</b>School No<i>灣仔</i>`,
		},
		{
			name: "no start marker",
			text: `<i>聖保羅書院</i>`,
		},
		{
			name:  "missing end marker runs to end",
			text:  `<b>ST PAUL SCHOOL</b><i>聖保羅書院</i>`,
			want:  "聖保羅書院",
			match: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := rule.Match(NewInput(tc.text))
			require.Equal(t, tc.match, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLinkTextSkipsIconLinks(t *testing.T) {
	in := NewInput(`<a href="https://facebook.com/x"><img src="fb.png"></a>
		<a href="https://twitter.com/x">Follow us</a>
		<a href="http://www.central.edu.hk">http://www.central.edu.hk</a>`)

	got, ok := LinkText{}.Match(in)
	require.True(t, ok)
	require.Equal(t, "http://www.central.edu.hk", got)

	_, ok = LinkText{}.Match(NewInput(`<a href="https://facebook.com/x">Facebook</a>`))
	require.False(t, ok)
}

func TestSelector(t *testing.T) {
	in := NewInput(`<div class="school-item"><h3> Riverside School </h3><span class="title_cn">河畔學校</span></div>`)

	got, ok := Selector{Query: "h3"}.Match(in)
	require.True(t, ok)
	require.Equal(t, "Riverside School", got)

	got, ok = Selector{Query: ".title_cn"}.Match(in)
	require.True(t, ok)
	require.Equal(t, "河畔學校", got)

	_, ok = Selector{Query: ".address"}.Match(in)
	require.False(t, ok)
}

func TestMarkers(t *testing.T) {
	m := Markers{Values: []Marker{
		{Value: "girls", Re: regexp.MustCompile(`\bGIRLS\b`)},
		{Value: "boys", Re: regexp.MustCompile(`\bBOYS\b`)},
	}}

	got, ok := m.Match(NewInput("</table> GIRLS"))
	require.True(t, ok)
	require.Equal(t, "girls", got)

	_, ok = m.Match(NewInput("BOYS and GIRLS"))
	require.False(t, ok)

	_, ok = m.Match(NewInput("CO-ED"))
	require.False(t, ok)
}

func TestExtractPartial(t *testing.T) {
	fs := FieldSet{
		Name:  Rules{Regex(`<h3>([^<]+)</h3>`)},
		Phone: Rules{Regex(`Tel:\s*([\d ]+)`)},
		Code:  Rules{Regex(`Code:\s*(\d+)`)},
	}

	p := fs.Extract(`<h3>CENTRAL SCHOOL</h3> Code: 1234`)
	require.Equal(t, "CENTRAL SCHOOL", p.Name)
	require.Equal(t, "", p.Phone)
	require.Equal(t, "1234", p.Code)
	require.Equal(t, map[string]string{FieldName: "CENTRAL SCHOOL", FieldCode: "1234"}, p.Fields())
}
