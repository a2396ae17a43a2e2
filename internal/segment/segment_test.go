package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	s := New(`<td class="idx">\d+</td>`)

	testCases := []struct {
		name    string
		doc     string
		offsets []int
		texts   []string
	}{
		{
			name: "no anchors",
			doc:  "<html><body>nothing to see</body></html>",
		},
		{
			name:    "single anchor runs to end",
			doc:     `head<td class="idx">1</td>ALPHA`,
			offsets: []int{4},
			texts:   []string{`<td class="idx">1</td>ALPHA`},
		},
		{
			name:    "blocks split on each anchor",
			doc:     `<h3>SECONDARY SCHOOLS</h3><td class="idx">1</td>ALPHA<td class="idx">2</td>BETA`,
			offsets: []int{26, 53},
			texts:   []string{`<td class="idx">1</td>ALPHA`, `<td class="idx">2</td>BETA`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			blocks := Collect(s.Segment(tc.doc))
			require.Len(t, blocks, len(tc.offsets))
			for i, b := range blocks {
				require.Equal(t, tc.offsets[i], b.Offset)
				require.Equal(t, tc.texts[i], b.Text)
				require.Equal(t, tc.doc[b.Offset:b.End()], b.Text)
			}
		})
	}
}

func TestSegmentStopsEarly(t *testing.T) {
	s := New(`#`)
	doc := strings.Repeat("#x", 10)

	count := 0
	for range s.Segment(doc) {
		count++
		if count == 3 {
			break
		}
	}
	require.Equal(t, 3, count)
}

func TestSegmentEmptyMatchAnchor(t *testing.T) {
	s := New(`x*`)
	blocks := Collect(s.Segment("abxxc"))
	require.Len(t, blocks, 1)
	require.Equal(t, 2, blocks[0].Offset)
	require.Equal(t, "xxc", blocks[0].Text)
}

func TestSegmentFallsBackToLaterAnchor(t *testing.T) {
	s := New(`<td class="idx">\d+</td>`, `<h4>`)

	blocks := Collect(s.Segment(`<h4>ALPHA<h4>BETA`))
	require.Len(t, blocks, 2)
	require.Equal(t, "<h4>ALPHA", blocks[0].Text)
	require.Equal(t, 9, blocks[1].Offset)

	// the first anchor wins once it occurs anywhere
	blocks = Collect(s.Segment(`<h4>ALPHA<td class="idx">1</td><h4>BETA`))
	require.Len(t, blocks, 1)
	require.Equal(t, `<td class="idx">1</td><h4>BETA`, blocks[0].Text)
}
