// Package wikidata extracts item, property and claim tables from one chunk of
// the structured-knowledge dump.
package wikidata

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dtnitsch/wikigraph/models"
	"github.com/dtnitsch/wikigraph/pkg/claimgraph"
	"github.com/dtnitsch/wikigraph/pkg/layout"
	"github.com/dtnitsch/wikigraph/pkg/scatter"
	"github.com/dtnitsch/wikigraph/pkg/storage"
	"github.com/dtnitsch/wikigraph/pkg/table"
)

// Language selects labels, descriptions and aliases.
const Language = "en"

// Table headers.
var (
	PropertyHeader       = []string{"property_id", "en_label", "en_description"}
	PropertyAliasHeader  = []string{"property_id", "en_alias"}
	ItemHeader           = []string{"item_id", "en_label", "en_description"}
	ItemAliasHeader      = []string{"item_id", "en_alias"}
	ClaimHeader          = claimgraph.ClaimHeader
	QpqClaimHeader       = []string{"source_id", "property_id", "target_id", "rnk"}
	SkippedEntityHeader  = []string{"qid", "instances_of"}
	ItemStatementsHeader = []string{
		"statement_id", "mainsnak_datatype", "datavalue_datatype",
		"source_item_id", "edge_property_id", "target_datavalue",
	}
)

// Options configures a Worker.
type Options struct {
	Layout     layout.Layout
	Wiki       string
	SkipIDs    []int64
	MaxRecords int64
	// Statements also writes the item-statements table.
	Statements bool
}

// Worker processes chunks. It holds no mutable state and is shared by all
// scatter workers.
type Worker struct {
	opts   Options
	skip   map[int64]bool
	logger *slog.Logger
}

// NewWorker returns a Worker for opts.
func NewWorker(logger *slog.Logger, opts Options) *Worker {
	skip := make(map[int64]bool, len(opts.SkipIDs))
	for _, id := range opts.SkipIDs {
		skip[id] = true
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = models.DefaultMaxRecords
	}
	return &Worker{opts: opts, skip: skip, logger: logger}
}

// Tables lists every table a partition produces.
func (w *Worker) Tables() []string {
	tables := []string{
		layout.TableProperty, layout.TablePropertyAlias,
		layout.TableItem, layout.TableItemAlias,
		layout.TableP31Claim, layout.TableP279Claim, layout.TableQpqClaim,
		layout.TableSkippedEntity, layout.TableArticleJSONL,
	}
	if w.opts.Statements {
		tables = append(tables, layout.TableItemStatements)
	}
	return tables
}

type writers struct {
	property, propertyAlias *table.Writer
	item, itemAlias         *table.Writer
	p31, p279, qpq          *table.Writer
	skipped, statements     *table.Writer
	article                 *storage.FileWriter
}

func (w *Worker) open(out *scatter.Outputs, partition int) (*writers, error) {
	chunk := func(name string) string {
		return w.opts.Layout.ChunkPath(layout.DatasetWikidata, name, partition)
	}
	var wr writers
	var err error
	open := func(dst **table.Writer, name string, header []string) {
		if err != nil {
			return
		}
		*dst, err = out.Table(name, chunk(name), header)
	}
	open(&wr.property, layout.TableProperty, PropertyHeader)
	open(&wr.propertyAlias, layout.TablePropertyAlias, PropertyAliasHeader)
	open(&wr.item, layout.TableItem, ItemHeader)
	open(&wr.itemAlias, layout.TableItemAlias, ItemAliasHeader)
	open(&wr.p31, layout.TableP31Claim, ClaimHeader)
	open(&wr.p279, layout.TableP279Claim, ClaimHeader)
	open(&wr.qpq, layout.TableQpqClaim, QpqClaimHeader)
	open(&wr.skipped, layout.TableSkippedEntity, SkippedEntityHeader)
	if w.opts.Statements {
		open(&wr.statements, layout.TableItemStatements, ItemStatementsHeader)
	}
	if err != nil {
		return nil, err
	}
	wr.article, err = out.File(layout.TableArticleJSONL, chunk(layout.TableArticleJSONL))
	if err != nil {
		return nil, err
	}
	return &wr, nil
}

// Process extracts one chunk. On failure no output of the chunk is kept.
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

	records, err := w.scan(ctx, rc, wr, task.Index)
	if err != nil {
		out.Abort()
		return scatter.Manifest{}, err
	}

	paths, err := out.Close()
	if err != nil {
		return scatter.Manifest{}, err
	}
	return scatter.Manifest{Outputs: paths, Records: records}, nil
}

func (w *Worker) scan(ctx context.Context, r io.Reader, wr *writers, partition int) (int, error) {
	reader := bufio.NewReaderSize(r, 1<<20)
	var parsed int64
	skippedLines := 0
	for parsed < w.opts.MaxRecords {
		if parsed%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return 0, fmt.Errorf("failed to read chunk: %w", readErr)
		}
		line = trimLine(line)
		if len(line) > 1 || (len(line) == 1 && line[0] != '[' && line[0] != ']') {
			parsed++
			if !gjson.ValidBytes(line) {
				skippedLines++
				w.logger.Warn("Skipping undecodable entity", "partition", partition, "line", parsed)
			} else if err := w.entity(gjson.ParseBytes(line), line, wr); err != nil {
				if !errors.Is(err, table.ErrMalformedRow) {
					return 0, err
				}
				skippedLines++
				w.logger.Warn("Skipping malformed entity", "partition", partition, "line", parsed, "error", err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
	}
	if skippedLines > 0 {
		w.logger.Info("Entities skipped in chunk", "partition", partition, "count", skippedLines)
	}
	return int(parsed), nil
}

func trimLine(line []byte) []byte {
	for len(line) > 0 {
		switch line[len(line)-1] {
		case '\n', '\r', ',', ' ', '\t':
			line = line[:len(line)-1]
			continue
		}
		break
	}
	return line
}

func (w *Worker) entity(e gjson.Result, raw []byte, wr *writers) error {
	id, err := models.ParseEntityID(e.Get("id").String())
	if err != nil {
		return errors.Join(table.ErrMalformedRow, err)
	}
	idStr := strconv.FormatInt(id, 10)

	switch e.Get("type").String() {
	case "property":
		return w.property(e, idStr, wr)
	case "item":
		return w.item(e, id, idStr, raw, wr)
	}
	return nil
}

func (w *Worker) property(e gjson.Result, id string, wr *writers) error {
	if err := wr.property.Write([]string{id, label(e), description(e)}); err != nil {
		return err
	}
	for _, alias := range aliases(e) {
		if err := wr.propertyAlias.Write([]string{id, alias}); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) item(e gjson.Result, id int64, idStr string, raw []byte, wr *writers) error {
	claims := e.Get("claims")

	p31 := itemClaims(claims.Get("P31"))
	var skipHits []string
	seen := make(map[int64]bool)
	for _, c := range p31 {
		if w.skip[c.target] && !seen[c.target] {
			seen[c.target] = true
			skipHits = append(skipHits, strconv.FormatInt(c.target, 10))
		}
	}
	if len(skipHits) > 0 {
		sort.Strings(skipHits)
		return wr.skipped.Write([]string{idStr, strings.Join(skipHits, "|")})
	}

	for _, c := range p31 {
		if err := wr.p31.Write([]string{idStr, table.FormatInt(c.target), table.FormatInt(int64(c.rank))}); err != nil {
			return err
		}
	}
	for _, c := range itemClaims(claims.Get("P279")) {
		if err := wr.p279.Write([]string{idStr, table.FormatInt(c.target), table.FormatInt(int64(c.rank))}); err != nil {
			return err
		}
	}

	var writeErr error
	claims.ForEach(func(key, group gjson.Result) bool {
		property := strings.TrimPrefix(key.String(), "P")
		truthy := truthyClaims(group)
		for _, c := range truthy {
			if !c.hasValue || c.snak.Get("datatype").String() != "wikibase-item" {
				continue
			}
			target := c.snak.Get("datavalue.value.numeric-id")
			if !target.Exists() {
				continue
			}
			rec := []string{idStr, property, table.FormatInt(target.Int()), table.FormatInt(int64(c.rank))}
			if writeErr = wr.qpq.Write(rec); writeErr != nil {
				return false
			}
		}
		if wr.statements != nil {
			for i, c := range truthy {
				if !c.hasValue {
					continue
				}
				rec := []string{
					fmt.Sprintf("Q%d-%s-%d", id, key.String(), i),
					c.snak.Get("datatype").String(),
					c.snak.Get("datavalue.type").String(),
					idStr,
					property,
					c.snak.Get("datavalue").Raw,
				}
				if writeErr = wr.statements.Write(rec); writeErr != nil {
					return false
				}
			}
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}

	if err := wr.item.Write([]string{idStr, label(e), description(e)}); err != nil {
		return err
	}
	for _, alias := range aliases(e) {
		if err := wr.itemAlias.Write([]string{idStr, alias}); err != nil {
			return err
		}
	}

	if w.opts.Wiki != "" && e.Get("sitelinks." + w.opts.Wiki).Exists() {
		if _, err := wr.article.Write(raw); err != nil {
			return err
		}
		if _, err := wr.article.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

func label(e gjson.Result) string {
	return e.Get("labels." + Language + ".value").String()
}

func description(e gjson.Result) string {
	return e.Get("descriptions." + Language + ".value").String()
}

func aliases(e gjson.Result) []string {
	var out []string
	for _, a := range e.Get("aliases." + Language).Array() {
		out = append(out, a.Get("value").String())
	}
	return out
}

type claim struct {
	rank     models.Rank
	target   int64
	snak     gjson.Result
	hasValue bool
}

// parseClaim reads a claim that is not deprecated, with or without a value.
func parseClaim(c gjson.Result) (claim, bool) {
	rank, err := models.ParseRank(c.Get("rank").String())
	if err != nil || rank == models.RankDeprecated {
		return claim{}, false
	}
	snak := c.Get("mainsnak")
	return claim{
		rank:     rank,
		target:   snak.Get("datavalue.value.numeric-id").Int(),
		snak:     snak,
		hasValue: snak.Get("snaktype").String() == "value",
	}, true
}

// usable returns the claim if it has a value snak and is not deprecated.
func usable(c gjson.Result) (claim, bool) {
	cl, ok := parseClaim(c)
	if !ok || !cl.hasValue {
		return claim{}, false
	}
	return cl, true
}

// itemClaims returns the usable claims of a group that point at items.
func itemClaims(group gjson.Result) []claim {
	var out []claim
	for _, c := range group.Array() {
		cl, ok := usable(c)
		if !ok || !cl.snak.Get("datavalue.value.numeric-id").Exists() {
			continue
		}
		out = append(out, cl)
	}
	return out
}

// truthyClaims keeps the preferred claims of a group, or the normal ones when
// the group has no preferred claim. Somevalue and novalue claims count toward
// the rank and keep their position; callers skip them.
func truthyClaims(group gjson.Result) []claim {
	var preferred, normal []claim
	for _, c := range group.Array() {
		cl, ok := parseClaim(c)
		if !ok {
			continue
		}
		if cl.rank == models.RankPreferred {
			preferred = append(preferred, cl)
		} else {
			normal = append(normal, cl)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return normal
}
