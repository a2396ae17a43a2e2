package pipeline

import (
	"log/slog"

	"schooldir/internal/extract"
	"schooldir/internal/fetch"
	"schooldir/internal/normalize"
	"schooldir/internal/report"
	"schooldir/internal/school"
	"schooldir/internal/sources"
)

const excerptLen = 160

// parse turns a page into accepted records, counting rejections and
// flagging structural drift on the unit.
func (w *worker) parse(page fetch.Page, unit sources.Unit, u *report.Unit, logger *slog.Logger) []school.Record {
	classifier := w.profile.Classifier.WithDefault(unit.Level)
	ctx := normalize.Context{
		District:  unit.District,
		Source:    w.profile.Source,
		Trust:     w.trust,
		FetchedAt: page.FetchedAt,
	}

	matched := make(map[string]bool)
	var recs []school.Record

	for block := range w.profile.Segmenter.Segment(page.Body) {
		u.Parsed++
		partial := w.profile.Fields.Extract(block.Text)
		for field := range partial.Fields() {
			matched[field] = true
		}

		class := classifier.Classify(page.Body, block, partial)
		rec, rej := w.normalizer.Normalize(partial, class, ctx)
		if rej != nil {
			if rej.Reason == normalize.ReasonMissingName {
				u.Unparseable++
			} else {
				u.Rejected++
			}
			u.AddSample(report.Sample{
				Reason:  rej.Reason,
				Name:    rej.Name,
				Offset:  block.Offset,
				Excerpt: excerpt(block.Text),
			})
			logger.Debug("Block rejected", "reason", rej.Reason, "name", rej.Name, "offset", block.Offset)
			continue
		}
		recs = append(recs, rec)
	}

	w.drift(u, matched)
	return recs
}

func (w *worker) drift(u *report.Unit, matched map[string]bool) {
	if u.Parsed == 0 {
		u.Warn(report.WarnStructuralDrift, "no record blocks found on %s", u.URL)
		return
	}
	if !matched[extract.FieldName] {
		u.Warn(report.WarnStructuralDrift, "none of %d blocks yielded a name", u.Parsed)
	}
	for _, field := range w.profile.Expected {
		if field == extract.FieldName || matched[field] {
			continue
		}
		u.Warn(report.WarnStructuralDrift, "field %s never matched across %d blocks", field, u.Parsed)
	}

	ratio := float64(u.Rejected+u.Unparseable) / float64(u.Parsed)
	if ratio > w.cfg.RejectThreshold {
		u.Warn(report.WarnStructuralDrift, "%d of %d blocks rejected (%.0f%%)",
			u.Rejected+u.Unparseable, u.Parsed, ratio*100)
	}
}

func excerpt(text string) string {
	r := []rune(normalize.Text(text))
	if len(r) <= excerptLen {
		return string(r)
	}
	return string(r[:excerptLen]) + "…"
}
