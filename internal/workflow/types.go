// Package workflow builds the prebuilt agent graphs: the document
// intelligence workflow and the content creation pipeline.
package workflow

// State slot keys shared across workflow nodes. Each node reads a subset
// and writes a subset; no two nodes write the same key within one run.
const (
	KeyDocumentPath = "document_path"
	KeyDocumentType = "document_type"
	KeyResult       = "extraction_result"
	KeyStatus       = "processing_status"

	KeyTask     = "task"
	KeyResearch = "research_output"
	KeyDraft    = "draft"
	KeyApproved = "approved"
	KeyFinal    = "final_content"

	// KeyRevisions counts bounded review → write retries.
	KeyRevisions = "revisions"
)

// Status values written under KeyStatus.
const (
	StatusValidated = "validated"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)
