package sources

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"schooldir/internal/extract"
	"schooldir/internal/school"
	"schooldir/internal/segment"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestLookup(t *testing.T) {
	p, err := Lookup("edb")
	require.NoError(t, err)
	require.Equal(t, school.TrustRegistry, p.Trust)
	require.Len(t, p.Units(), 18)
	require.Equal(t, "Central & Western", p.Units()[0].District)
	require.True(t, strings.HasSuffix(p.Units()[0].URL, "/school-list-cw.html"))

	_, err = Lookup("nope")
	require.True(t, errors.Is(err, ErrUnknownProfile))

	require.Equal(t, []string{"directory", "edb"}, IDs())
}

func TestEDBProfile(t *testing.T) {
	p := EDB()
	doc := readFixture(t, "edb_wch.html")

	blocks := segment.Collect(p.Segmenter.Segment(doc))
	require.Len(t, blocks, 4)

	first := p.Fields.Extract(blocks[0].Text)
	require.Equal(t, extract.Partial{
		Name:         "QUEEN'S COLLEGE",
		LocalName:    "皇仁書院",
		Address:      "120 CAUSEWAY ROAD&nbsp;CAUSEWAY BAY",
		LocalAddress: "銅鑼灣高士威道120號",
		Phone:        "2576 8203",
		Fax:          "2882 3563",
		Principal:    "Mr. LEE Kin Man",
		Supervisor:   "Dr. CHAN Siu Wah",
		Website:      "http://www.qcobaq.edu.hk",
		Code:         "123456 / 1",
		Gender:       "BOYS",
	}, first)

	res := p.Classifier.Classify(doc, blocks[0], first)
	require.Equal(t, school.Secondary, res.Level)
	require.Equal(t, school.Government, res.Funding)

	second := p.Fields.Extract(blocks[1].Text)
	require.Equal(t, "ST. MARGARET'S GIRLS' PRIMARY SCHOOL", second.Name)
	require.Equal(t, "聖瑪加利女子小學", second.LocalName)
	require.Equal(t, "2 STUBBS ROAD", second.Address)
	require.Equal(t, "", second.LocalAddress)
	require.Equal(t, "", second.Fax)
	require.Equal(t, "girls", second.Gender)
	require.Equal(t, "234567 / 2", second.Code)

	res = p.Classifier.Classify(doc, blocks[1], second)
	require.Equal(t, school.Primary, res.Level)
	require.Equal(t, school.Aided, res.Funding)
	require.Equal(t, "AIDED PRIMARY SCHOOLS", res.Heading)

	require.Equal(t, "", p.Fields.Extract(blocks[3].Text).Name)
}

func TestEDBHeadingsOrder(t *testing.T) {
	p := EDB()
	doc := "<p>DIRECT SUBSIDY SCHEME SECONDARY SCHOOLS</p><td>"
	res := p.Classifier.Classify(doc, segment.Block{Offset: len(doc)}, extract.Partial{Name: "X COLLEGE"})
	require.Equal(t, school.Secondary, res.Level)
	require.Equal(t, school.DirectSubsidy, res.Funding)

	doc = "<p>POST-SECONDARY COLLEGES</p><td>"
	res = p.Classifier.Classify(doc, segment.Block{Offset: len(doc)}, extract.Partial{Name: "X COLLEGE"})
	require.Equal(t, school.Tertiary, res.Level)
}

func TestDirectoryProfile(t *testing.T) {
	p := Directory()
	doc := readFixture(t, "directory_ps.html")

	blocks := segment.Collect(p.Segmenter.Segment(doc))
	require.Len(t, blocks, 2)

	first := p.Fields.Extract(blocks[0].Text)
	require.Equal(t, "Riverside Primary School", first.Name)
	require.Equal(t, "河畔小學", first.LocalName)
	require.Equal(t, "", first.Address)
	require.Equal(t, "香港仔大道1號", first.LocalAddress)
	require.Equal(t, "2811 1111", first.Phone)
	require.Equal(t, "2811 2222", first.Fax)
	require.Equal(t, "Ms. Wong", first.Principal)
	require.Equal(t, "Mr. Lam", first.Supervisor)
	require.Equal(t, "http://www.riverside.edu.hk", first.Website)
	require.Equal(t, "girls", first.Gender)

	res := p.Classifier.Classify(doc, blocks[0], first)
	require.Equal(t, school.Primary, res.Level)
	require.Equal(t, school.Aided, res.Funding)

	second := p.Fields.Extract(blocks[1].Text)
	res = p.Classifier.Classify(doc, blocks[1], second)
	require.Equal(t, school.Private, res.Funding)
}

func TestEDBProfileWithoutIndexCells(t *testing.T) {
	p := EDB()
	doc := regexp.MustCompile(`<td align="center" class="bodytxt" rowspan=2>\d+(<br>)*</td>`).
		ReplaceAllString(readFixture(t, "edb_wch.html"), "")

	blocks := segment.Collect(p.Segmenter.Segment(doc))
	require.Len(t, blocks, 3)

	var names []string
	for _, b := range blocks {
		names = append(names, p.Fields.Extract(b.Text).Name)
	}
	require.Equal(t, []string{"QUEEN'S COLLEGE", "ST. MARGARET'S GIRLS' PRIMARY SCHOOL", "WAN CHAI TUTORIAL CENTRE"}, names)

	second := p.Fields.Extract(blocks[1].Text)
	require.Equal(t, "234567 / 2", second.Code)
	require.Equal(t, "2574 6333", second.Phone)

	res := p.Classifier.Classify(doc, blocks[1], second)
	require.Equal(t, school.Primary, res.Level)
	require.Equal(t, school.Aided, res.Funding)
}
