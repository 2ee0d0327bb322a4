package wikitext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/mapreduce"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
	"github.com/dtnitsch/wikigraph/pkg/storage"
	"github.com/dtnitsch/wikigraph/pkg/table"
	"github.com/dtnitsch/wikigraph/pkg/titleindex"
)

// Table headers.
var (
	LinksHeader        = []string{"source_page_id", "section_idx", "paragraph_idx", "anchor_text", "anchor_start", "target_page_id"}
	ParagraphsHeader   = []string{"page_id", "section_idx", "paragraph_idx", "plaintext"}
	SectionNamesHeader = []string{"page_id", "section_idx", "section_name"}
	TemplatesHeader    = append([]string{"page_id"}, TemplateNames...)
	LengthsHeader      = []string{"page_id", "len_article_chars", "len_intro_chars"}
)

// AnnotatedPage is one line of the link-annotated-text output.
type AnnotatedPage struct {
	PageID     int64                `json:"page_id"`
	RevisionID int64                `json:"revision_id"`
	PageTitle  string               `json:"page_title"`
	Paragraphs []AnnotatedParagraph `json:"paragraphs"`
	Categories []string             `json:"categories"`
}

// AnnotatedParagraph is a paragraph with its resolved links.
type AnnotatedParagraph struct {
	SectionIdx    int      `json:"section_idx"`
	SectionName   string   `json:"section_name"`
	Plaintext     string   `json:"plaintext"`
	TargetPageIDs []int64  `json:"target_page_ids"`
	AnchorSpans   [][2]int `json:"anchor_spans"`
}

// Options configures a Worker.
type Options struct {
	Layout     layout.Layout
	MaxRecords int64
}

// Worker processes article dump files against a shared, read-only title index.
type Worker struct {
	opts       Options
	titles     *titleindex.Index
	structurer Structurer
	logger     *slog.Logger
}

// NewWorker returns a Worker. A nil structurer selects MarkupStructurer.
func NewWorker(logger *slog.Logger, titles *titleindex.Index, structurer Structurer, opts Options) *Worker {
	if structurer == nil {
		structurer = MarkupStructurer{}
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = models.DefaultMaxRecords
	}
	return &Worker{opts: opts, titles: titles, structurer: structurer, logger: logger}
}

// Tables lists every table a partition produces.
func (w *Worker) Tables() []string {
	return []string{
		layout.TableLinks, layout.TableParagraphs, layout.TableSectionNames,
		layout.TableTemplates, layout.TableLengths,
		layout.TableAnchorTarget, layout.TableInOutCounts,
		layout.TableLinkAnnotated,
	}
}

type writers struct {
	links, paragraphs, sections *table.Writer
	templates, lengths          *table.Writer
	atc, inout                  *table.Writer
	annotated                   *json.Encoder
}

func (w *Worker) open(out *scatter.Outputs, partition int) (*writers, error) {
	chunk := func(name string) string {
		return w.opts.Layout.ChunkPath(layout.DatasetWikipedia, name, partition)
	}
	var wr writers
	var err error
	open := func(dst **table.Writer, name string, header []string) {
		if err != nil {
			return
		}
		*dst, err = out.Table(name, chunk(name), header)
	}
	open(&wr.links, layout.TableLinks, LinksHeader)
	open(&wr.paragraphs, layout.TableParagraphs, ParagraphsHeader)
	open(&wr.sections, layout.TableSectionNames, SectionNamesHeader)
	open(&wr.templates, layout.TableTemplates, TemplatesHeader)
	open(&wr.lengths, layout.TableLengths, LengthsHeader)
	open(&wr.atc, layout.TableAnchorTarget, mapreduce.AnchorTargetHeader)
	open(&wr.inout, layout.TableInOutCounts, mapreduce.InOutHeader)
	if err != nil {
		return nil, err
	}
	fw, err := out.File(layout.TableLinkAnnotated, chunk(layout.TableLinkAnnotated))
	if err != nil {
		return nil, err
	}
	wr.annotated = json.NewEncoder(fw)
	wr.annotated.SetEscapeHTML(false)
	return &wr, nil
}

// Process extracts one dump file. On failure no output of the file is kept.
func (w *Worker) Process(ctx context.Context, task scatter.Task) (scatter.Manifest, error) {
	s := &storage.Storage{}
	rc, err := s.Open(task.Input)
	if err != nil {
		return scatter.Manifest{}, err
	}
	defer rc.Close()

	out := scatter.NewOutputs()
	wr, err := w.open(out, task.Index)
	if err != nil {
		out.Abort()
		return scatter.Manifest{}, err
	}

	written, links, err := w.scan(ctx, NewPageReader(rc), wr, task.Index)
	if err == nil {
		err = writeCounts(wr, links)
	}
	if err != nil {
		out.Abort()
		return scatter.Manifest{}, err
	}

	paths, err := out.Close()
	if err != nil {
		return scatter.Manifest{}, err
	}
	return scatter.Manifest{Outputs: paths, Records: written}, nil
}

func (w *Worker) scan(ctx context.Context, pages *PageReader, wr *writers, partition int) (int, []models.LinkEdge, error) {
	var links []models.LinkEdge
	written := 0
	unresolved := 0
	skipped := 0
	for int64(written) < w.opts.MaxRecords {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		page, err := pages.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, ErrUndecodable) {
			w.logger.Warn("Skipping page with undecodable text", "partition", partition, "page_id", page.ID)
			skipped++
			continue
		}
		if err != nil {
			return 0, nil, err
		}

		if page.Ns != 0 || page.Redirect != nil || len(page.Revisions) == 0 {
			continue
		}
		rev := page.Revisions[len(page.Revisions)-1]
		text, ok := rev.Wikitext()
		if !ok {
			continue
		}

		doc, err := w.structurer.Structure(text)
		if err != nil {
			w.logger.Warn("Skipping page that failed to structure", "partition", partition, "page_id", page.ID, "error", err)
			continue
		}

		pageLinks, dropped, err := w.writePage(wr, page, rev, text, doc)
		if err != nil {
			return 0, nil, err
		}
		links = append(links, pageLinks...)
		unresolved += dropped
		written++
	}
	w.logger.Debug("Dropped unresolved links", "partition", partition, "count", unresolved)
	if skipped > 0 {
		w.logger.Warn("Skipped undecodable pages", "partition", partition, "count", skipped)
	}
	return written, links, nil
}

func (w *Worker) writePage(wr *writers, page *Page, rev Revision, text string, doc Document) ([]models.LinkEdge, int, error) {
	id := table.FormatInt(page.ID)
	annotated := AnnotatedPage{
		PageID:     page.ID,
		RevisionID: rev.ID,
		PageTitle:  titleindex.Normalize(page.Title),
		Paragraphs: make([]AnnotatedParagraph, 0, len(doc.Paragraphs)),
		Categories: doc.Categories,
	}
	if annotated.Categories == nil {
		annotated.Categories = []string{}
	}

	var links []models.LinkEdge
	dropped := 0
	lastSection := -1
	for pi, p := range doc.Paragraphs {
		ap := AnnotatedParagraph{
			SectionIdx:    p.SectionIdx,
			SectionName:   p.SectionName,
			Plaintext:     p.Plaintext,
			TargetPageIDs: []int64{},
			AnchorSpans:   [][2]int{},
		}
		for _, l := range p.Wikilinks {
			entry, ok := w.titles.Lookup(l.Target)
			if !ok {
				dropped++
				continue
			}
			ap.TargetPageIDs = append(ap.TargetPageIDs, entry.TargetID)
			ap.AnchorSpans = append(ap.AnchorSpans, [2]int{l.Start, l.End})
			edge := models.LinkEdge{
				SourcePageID: page.ID,
				SectionIdx:   p.SectionIdx,
				ParagraphIdx: pi,
				AnchorText:   l.Anchor,
				AnchorStart:  l.Start,
				TargetPageID: entry.TargetID,
			}
			links = append(links, edge)
			if err := wr.links.Write(linkRecord(edge)); err != nil {
				return nil, 0, err
			}
		}
		annotated.Paragraphs = append(annotated.Paragraphs, ap)

		rec := []string{id, itoa(p.SectionIdx), itoa(pi), p.Plaintext}
		if err := wr.paragraphs.Write(rec); err != nil {
			return nil, 0, err
		}
		if len(ap.TargetPageIDs) > 0 && p.SectionIdx != lastSection {
			lastSection = p.SectionIdx
			if err := wr.sections.Write([]string{id, itoa(p.SectionIdx), p.SectionName}); err != nil {
				return nil, 0, err
			}
		}
	}

	flags := TemplateFlags(text)
	rec := []string{id}
	for _, f := range flags {
		rec = append(rec, table.FormatBool(f))
	}
	if err := wr.templates.Write(rec); err != nil {
		return nil, 0, err
	}

	article, intro := Lengths(doc)
	if err := wr.lengths.Write([]string{id, itoa(article), itoa(intro)}); err != nil {
		return nil, 0, err
	}

	if err := wr.annotated.Encode(annotated); err != nil {
		return nil, 0, fmt.Errorf("failed to write annotated page %d: %w", page.ID, err)
	}
	return links, dropped, nil
}

// writeCounts writes the partition-local anchor counts and page degrees.
func writeCounts(wr *writers, links []models.LinkEdge) error {
	counts, degrees := mapreduce.Map(links)
	if err := mapreduce.WriteAnchorCounts(wr.atc, counts); err != nil {
		return err
	}
	return mapreduce.WriteDegrees(wr.inout, degrees)
}

func linkRecord(l models.LinkEdge) []string {
	return []string{
		table.FormatInt(l.SourcePageID),
		itoa(l.SectionIdx),
		itoa(l.ParagraphIdx),
		l.AnchorText,
		itoa(l.AnchorStart),
		table.FormatInt(l.TargetPageID),
	}
}

func itoa(v int) string {
	return table.FormatInt(int64(v))
}
