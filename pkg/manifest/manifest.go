package manifest

// SummaryManifest is the YAML run summary written next to the merged tables.
// It gives a quick overview of a gather without opening any table.
type SummaryManifest struct {
	GeneratedAt string         `yaml:"generated_at"`
	Stage       string         `yaml:"stage"`
	Dataset     string         `yaml:"dataset"`
	DumpDate    string         `yaml:"dump_date"`
	Partitions  PartitionCount `yaml:"partitions"`
	Tables      []TableSummary `yaml:"tables"`
	TopAnchors  []string       `yaml:"top_anchors,omitempty"`
	Missing     []MissingEntry `yaml:"missing,omitempty"`
}

// PartitionCount tallies partition outcomes.
type PartitionCount struct {
	Total      int `yaml:"total"`
	Successful int `yaml:"successful"`
	Failed     int `yaml:"failed"`
}

// TableSummary describes one merged table.
type TableSummary struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path"`
	Rows      int64  `yaml:"rows"`
	SizeBytes int64  `yaml:"size_bytes"`
	Size      string `yaml:"size"`
	Chunks    int    `yaml:"chunks,omitempty"`
}

// MissingEntry is a partition, or one table of a partition, absent from the
// merged output.
type MissingEntry struct {
	Partition int    `yaml:"partition"`
	Table     string `yaml:"table,omitempty"`
	Reason    string `yaml:"reason"`
}
