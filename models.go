package main

import "time"

type TicketRecord struct {
	RequestID   string
	Title       string
	Description string
	Product     string
	IssueType1  string
	IssueType2  string
	IssueType3  string
	IssueType4  string
	Customer    string // account name
	ARR         float64
	Status      string // "Open", "Pending", "Closed", etc.
	JiraIssueID string
	ReportedAt  time.Time

	// Canonicalization output; filled by canonicalLocal or llmCanonicalize.
	CanonicalRequirement string
	Capability           string
	VectorText           string
}

// Cluster is one ranked requirement group. Immutable after ranking:
// detection reads it, nothing regroups it.
type Cluster struct {
	ID             string // "SEM-0001"
	Label          string
	Product        string
	CustomerCount  int
	TicketCount    int
	JiraCount      int
	ARRTotal       float64
	OpenCount      int
	OpenRatio      float64
	RankScore      float64
	Rank           int
	PriorityLabel  string
	PriorityReason string
	Description    string
	Excerpts       []string // representative description excerpts, first 5 members
	RequestIDs     []string // member ticket ids, capped at 15 for output
	CustomerNames  []string // ranked by ticket count, capped at 20
	MemberIndexes  []int    // indexes into the loaded ticket slice
}

type DocSeed struct {
	DocID         string
	Title         string
	URL           string
	PublishedDate string
}

// DocumentChunk is the atomic unit of evidence retrieval: one
// overlapping span of a heading-anchored page section.
type DocumentChunk struct {
	DocID         string
	DocTitle      string
	URL           string
	SectionTitle  string
	SectionAnchor string
	SectionLink   string // url#anchor deep link
	PublishedDate string
	ChunkID       string // "page:section:chunk"
	Text          string
}

type EvidenceItem struct {
	Chunk   DocumentChunk
	Score   float64
	Snippet string
}

const (
	DecisionShipped         = "SHIPPED"
	DecisionPossiblyShipped = "POSSIBLY_SHIPPED"
	DecisionNotShipped      = "NOT_SHIPPED"
)

type Verdict struct {
	ClusterID  string
	Label      string
	Product    string
	Decision   string
	Confidence float64
	Reason     string
	BestScore  float64
	Evidence   []EvidenceItem
	// FallbackCitation is the manifest URL cited when no evidence was
	// retrievable. It fills citation_1 in the CSV but is not an
	// evidence entry: evidence_count stays 0.
	FallbackCitation string
}

type Assignment struct {
	RequestID    string
	ClusterID    string
	ClusterLabel string
}
