// Package segment slices a listing page into one block per record.
package segment

import (
	"iter"
	"regexp"
)

// Block is a slice of the source document believed to describe one record.
// Offset is the byte offset of the block start in the original document.
type Block struct {
	Offset int
	Text   string
}

// End is the byte offset just past the block.
func (b Block) End() int {
	return b.Offset + len(b.Text)
}

// Segmenter splits documents on a marker the source repeats once per record.
// Anchors are tried in order and the first one found anywhere in a document
// splits all of it.
type Segmenter struct {
	Anchors []*regexp.Regexp
}

func New(anchors ...string) Segmenter {
	s := Segmenter{Anchors: make([]*regexp.Regexp, 0, len(anchors))}
	for _, a := range anchors {
		s.Anchors = append(s.Anchors, regexp.MustCompile(a))
	}
	return s
}

// Segment yields blocks running from one anchor to the next, the last one to
// the end of the document. A document without anchors yields nothing.
func (s Segmenter) Segment(doc string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		anchor, loc := s.first(doc)
		for loc != nil {
			end := len(doc)
			next := find(anchor, doc, loc[1])
			if next != nil {
				end = next[0]
			}
			if !yield(Block{Offset: loc[0], Text: doc[loc[0]:end]}) {
				return
			}
			loc = next
		}
	}
}

func (s Segmenter) first(doc string) (*regexp.Regexp, []int) {
	for _, a := range s.Anchors {
		if loc := find(a, doc, 0); loc != nil {
			return a, loc
		}
	}
	return nil, nil
}

func find(anchor *regexp.Regexp, doc string, from int) []int {
	for from <= len(doc) {
		loc := anchor.FindStringIndex(doc[from:])
		if loc == nil {
			return nil
		}
		if loc[1] > loc[0] {
			return []int{loc[0] + from, loc[1] + from}
		}
		// empty match, step past it
		from += loc[0] + 1
	}
	return nil
}

// Collect drains the sequence into a slice.
func Collect(seq iter.Seq[Block]) []Block {
	var blocks []Block
	for b := range seq {
		blocks = append(blocks, b)
	}
	return blocks
}
