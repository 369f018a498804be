package models

import (
	"time"

	"github.com/google/uuid"
)

// Document statuses.
const (
	DocumentStatusDraft         = "DRAFT"
	DocumentStatusRequested     = "REQUESTED"
	DocumentStatusSubmitted     = "SUBMITTED"
	DocumentStatusApproved      = "APPROVED"
	DocumentStatusRejected      = "REJECTED"
	DocumentStatusNeedsRevision = "NEEDS_REVISION"
)

// Document flows.
const (
	DocumentFlowUpload  = "UPLOAD"
	DocumentFlowRequest = "REQUEST"
)

// Expected providers of a document.
const (
	ExpectedFromClient = "CLIENT"
	ExpectedFromBroker = "BROKER"
	ExpectedFromLender = "LENDER"
)

// Review decisions.
const (
	ReviewDecisionApproved      = "APPROVED"
	ReviewDecisionRejected      = "REJECTED"
	ReviewDecisionNeedsRevision = "NEEDS_REVISION"
)

// Document tracks one requested or uploaded file through its workflow.
type Document struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	TransactionID     uuid.UUID  `db:"transaction_id" json:"transaction_id"`
	ClientID          uuid.UUID  `db:"client_id" json:"client_id"`
	Side              string     `db:"side" json:"side"`
	DocType           string     `db:"doc_type" json:"doc_type"`
	CustomTitle       *string    `db:"custom_title" json:"custom_title,omitempty"`
	Status            string     `db:"status" json:"status"`
	Flow              string     `db:"flow" json:"flow"`
	ExpectedFrom      string     `db:"expected_from" json:"expected_from"`
	VisibleToClient   bool       `db:"visible_to_client" json:"visible_to_client"`
	BrokerNotes       *string    `db:"broker_notes" json:"broker_notes,omitempty"`
	Stage             *string    `db:"stage" json:"stage,omitempty"`
	RequiresSignature bool       `db:"requires_signature" json:"requires_signature"`
	DueDate           *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`

	Versions []DocumentVersion `json:"versions,omitempty"`
}

// DocumentVersion is an immutable submitted file. Versions are append-only.
type DocumentVersion struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DocumentID uuid.UUID `db:"document_id" json:"document_id"`
	StorageKey string    `db:"storage_key" json:"storage_key"`
	FileName   string    `db:"file_name" json:"file_name"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	SizeBytes  int64     `db:"size_bytes" json:"size_bytes"`
	UploadedBy uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// Unified document sources for the aggregated transaction view.
const (
	DocumentSourceClientUpload       = "CLIENT_UPLOAD"
	DocumentSourceOfferAttachment    = "OFFER_ATTACHMENT"
	DocumentSourcePropertyOfferAttachment = "PROPERTY_OFFER_ATTACHMENT"
)

// UnifiedDocument is one row of the aggregated document list, merged
// from document versions, offer attachments and property-offer attachments.
type UnifiedDocument struct {
	ID              uuid.UUID  `json:"id"`
	Source          string     `json:"source"`
	Title           string     `json:"title"`
	FileName        string     `json:"file_name"`
	MimeType        string     `json:"mime_type"`
	SizeBytes       int64      `json:"size_bytes"`
	StorageKey      string     `json:"-"`
	DownloadURL     string     `json:"download_url,omitempty"`
	UploadedBy      uuid.UUID  `json:"uploaded_by"`
	UploadedAt      time.Time  `json:"uploaded_at"`
	OfferID         *uuid.UUID `json:"offer_id,omitempty"`
	PropertyOfferID *uuid.UUID `json:"property_offer_id,omitempty"`
	DocumentID      *uuid.UUID `json:"document_id,omitempty"`
}

// ChecklistState stores a manual override for one stage checklist item.
type ChecklistState struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TransactionID uuid.UUID `db:"transaction_id" json:"transaction_id"`
	ItemKey       string    `db:"item_key" json:"item_key"`
	ManualChecked bool      `db:"manual_checked" json:"manual_checked"`
	UpdatedBy     uuid.UUID `db:"updated_by" json:"updated_by"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
