// Package layout owns the on-disk naming convention of every stage input and
// output, so stages never build paths by hand.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dtnitsch/wikigraph/pkg/storage"
)

const (
	DatasetWikipedia = "wikipedia"
	DatasetWikidata  = "wikidata"

	// TablesDir holds the page-level tables converted from the SQL dumps and
	// the tables derived directly from them.
	TablesDir     = "tables"
	ArticlesDir   = "articlesdump"
	ManifestFile  = "manifest.yaml"
	filePrefix    = "wikigraph"
	chunkSuffix   = "-chunks"
	chunkIndexFmt = "%04d"
)

// Table names shared between scatter and gather.
const (
	TableProperty         = "property"
	TablePropertyAlias    = "property-alias"
	TableItem             = "item"
	TableItemAlias        = "item-alias"
	TableItemStatements   = "item-statements"
	TableP31Claim         = "p31-claim"
	TableP279Claim        = "p279-claim"
	TableQpqClaim         = "qpq-claim"
	TableSkippedEntity    = "skipped-entity"
	TableArticleJSONL     = "article-jsonl"
	TableLinkAnnotated    = "link-annotated-text"
	TableLinks            = "links"
	TableLinksEdges       = "links-edges"
	TableLinksEdgesPlus   = "links-edges-plus"
	TableParagraphs       = "paragraphs"
	TableSectionNames     = "section-names"
	TableTemplates        = "templates"
	TableLengths          = "lengths"
	TableAnchorTarget     = "anchor-target-counts"
	TableInOutCounts      = "in-out-counts"
	TablePage             = "page"
	TableRedirect         = "redirect"
	TablePageProps        = "page-props"
	TableRedirectAttached = "redirect-attached"
	TableUltimateRedirect = "ultimate-redirect"
	TableTitleMapper      = "title-mapper"
	TableArticlePre       = "article-pre"
	TableArticle          = "article"
	TableItemIsa          = "item-isa"
)

// JSONLTables are written as one JSON document per line instead of CSV.
var JSONLTables = map[string]bool{
	TableArticleJSONL:  true,
	TableLinkAnnotated: true,
}

// Layout resolves paths under one data directory for one wiki and dump dates.
type Layout struct {
	DataPath      string
	Wiki          string
	WikipediaDate string
	WikidataDate  string
}

// DerivedDir returns <data>/<dataset>-derived-<date>.
func (l Layout) DerivedDir(dataset string) string {
	return filepath.Join(l.DataPath, fmt.Sprintf("%s-derived-%s", dataset, l.date(dataset)))
}

func (l Layout) date(dataset string) string {
	if dataset == DatasetWikidata {
		return l.WikidataDate
	}
	return l.WikipediaDate
}

func (l Layout) prefix(dataset string) string {
	if dataset == DatasetWikidata {
		return fmt.Sprintf("%s-wikidata-%s", filePrefix, l.WikidataDate)
	}
	return fmt.Sprintf("%s-%s-%s", filePrefix, l.Wiki, l.WikipediaDate)
}

func extension(table string) string {
	if JSONLTables[table] {
		return ".jsonl"
	}
	return ".csv"
}

// MergedPath is the gathered, corpus-wide file of a table.
// Example: data/wikipedia-derived-20240101/links/wikigraph-enwiki-20240101-links.csv
func (l Layout) MergedPath(dataset, table string) string {
	return filepath.Join(l.DerivedDir(dataset), table, l.prefix(dataset)+"-"+table+extension(table))
}

// ChunkPath is the partition-local file of a table.
// Example: data/wikipedia-derived-20240101/links-chunks/wikigraph-enwiki-20240101-links-0007.csv
func (l Layout) ChunkPath(dataset, table string, partition int) string {
	name := fmt.Sprintf("%s-%s-"+chunkIndexFmt+"%s", l.prefix(dataset), table, partition, extension(table))
	return filepath.Join(l.DerivedDir(dataset), table+chunkSuffix, name)
}

// TablePath is a page-level table that lives under TablesDir.
func (l Layout) TablePath(table string) string {
	name := fmt.Sprintf("%s-%s-%s.csv", l.Wiki, l.WikipediaDate, table)
	return filepath.Join(l.DerivedDir(DatasetWikipedia), TablesDir, name)
}

// ManifestPath is where a gather stage writes its run summary.
func (l Layout) ManifestPath(dataset string) string {
	return filepath.Join(l.DerivedDir(dataset), ManifestFile)
}

// WikidataDump is the full JSON dump as downloaded.
func (l Layout) WikidataDump() string {
	return filepath.Join(l.DataPath, "wikidata-raw-"+l.WikidataDate,
		fmt.Sprintf("wikidata-%s-all.json.bz2", l.WikidataDate))
}

// WikidataChunkDir holds the output of the splitter.
func (l Layout) WikidataChunkDir() string {
	return filepath.Join(l.DataPath, "wikidata-raw-chunks-"+l.WikidataDate)
}

// WikidataChunkPath names one split chunk.
func (l Layout) WikidataChunkPath(index int) string {
	return filepath.Join(l.WikidataChunkDir(),
		fmt.Sprintf("wikidata-%s-chunk-"+chunkIndexFmt+".jsonl.zst", l.WikidataDate, index))
}

// ArticlesDumpDir holds the multistream article XML files.
func (l Layout) ArticlesDumpDir() string {
	return filepath.Join(l.DataPath, "wikipedia-raw-"+l.WikipediaDate, ArticlesDir)
}

var (
	wikidataChunkName = regexp.MustCompile(`-chunk-(\d+)\.jsonl(\.zst|\.bz2)?$`)
	articlesName      = regexp.MustCompile(`pages-articles(\d+)\.xml-p(\d+)p(\d+)(?:\.bz2)?$`)
)

// WikidataChunks lists the split chunks ordered by chunk index.
func (l Layout) WikidataChunks() ([]string, error) {
	return OrderedFiles(l.WikidataChunkDir(), wikidataChunkName)
}

// ArticleDumps lists the article XML files ordered by file number then page range.
func (l Layout) ArticleDumps() ([]string, error) {
	return OrderedFiles(l.ArticlesDumpDir(), articlesName)
}

// OrderedFiles returns the files in dir whose names match pattern, ordered by
// the numeric values of the pattern's capture groups. Lexical order would put
// chunk 10 before chunk 2.
func OrderedFiles(dir string, pattern *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", storage.ErrMissingInput, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	type keyed struct {
		path string
		key  []int64
	}
	var files []keyed
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		var key []int64
		for _, g := range m[1:] {
			if n, err := strconv.ParseInt(g, 10, 64); err == nil {
				key = append(key, n)
			}
		}
		files = append(files, keyed{path: filepath.Join(dir, e.Name()), key: key})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files matching %s in %s", storage.ErrMissingInput, pattern, dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i].key, files[j].key
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return files[i].path < files[j].path
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// PartitionOf extracts the partition index from a chunk file name.
func PartitionOf(path string) (int, bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
