package dto

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Email             string  `json:"email" binding:"required,email"`
	Password          string  `json:"password" binding:"required"`
	FirstName         string  `json:"first_name" binding:"required"`
	LastName          string  `json:"last_name" binding:"required"`
	Role              string  `json:"role"`
	PreferredLanguage string  `json:"preferred_language"`
	Phone             *string `json:"phone"`
}

// LoginRequest represents the request to authenticate
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to rotate a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateTransactionRequest represents the request to open a transaction
type CreateTransactionRequest struct {
	ClientID        uuid.UUID `json:"client_id" binding:"required"`
	Side            string    `json:"side" binding:"required"`
	PropertyAddress *string   `json:"property_address"`
}

// AddCoBrokerRequest represents the request to add a co-broker
type AddCoBrokerRequest struct {
	BrokerID uuid.UUID `json:"broker_id" binding:"required"`
}

// UpdateStageRequest represents the request to move a transaction stage
type UpdateStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// AddOfferRequest represents the request to record a received offer
type AddOfferRequest struct {
	BuyerName    string      `json:"buyer_name" binding:"required"`
	OfferAmount  float64     `json:"offer_amount" binding:"required"`
	Status       string      `json:"status"`
	Notes        *string     `json:"notes"`
	ConditionIDs []uuid.UUID `json:"condition_ids"`
}

// UpdateOfferRequest represents the request to update a received offer
type UpdateOfferRequest struct {
	BuyerName    *string      `json:"buyer_name"`
	OfferAmount  *float64     `json:"offer_amount"`
	Status       *string      `json:"status"`
	Notes        *string      `json:"notes"`
	ConditionIDs *[]uuid.UUID `json:"condition_ids"`
}

// ClientOfferDecisionRequest represents the client's answer on an offer
type ClientOfferDecisionRequest struct {
	Decision string  `json:"decision" binding:"required"`
	Notes    *string `json:"notes"`
}

// AddPropertyRequest represents the request to track a property
type AddPropertyRequest struct {
	Address   string   `json:"address" binding:"required"`
	ListPrice *float64 `json:"list_price"`
	Notes     *string  `json:"notes"`
}

// AddPropertyOfferRequest represents a new offer round on a property
type AddPropertyOfferRequest struct {
	OfferAmount  float64     `json:"offer_amount" binding:"required"`
	ExpiryDate   *time.Time  `json:"expiry_date"`
	ConditionIDs []uuid.UUID `json:"condition_ids"`
}

// UpdatePropertyOfferRequest represents changes to an offer round
type UpdatePropertyOfferRequest struct {
	OfferAmount          *float64     `json:"offer_amount"`
	Status               *string      `json:"status"`
	CounterpartyResponse *string      `json:"counterparty_response"`
	ExpiryDate           *time.Time   `json:"expiry_date"`
	ConditionIDs         *[]uuid.UUID `json:"condition_ids"`
}

// AddConditionRequest represents the request to add a condition
type AddConditionRequest struct {
	Type         string     `json:"type" binding:"required"`
	CustomTitle  *string    `json:"custom_title"`
	Description  *string    `json:"description"`
	DeadlineDate *time.Time `json:"deadline_date"`
	Notes        *string    `json:"notes"`
}

// UpdateConditionRequest represents changes to a condition
type UpdateConditionRequest struct {
	Type         *string    `json:"type"`
	CustomTitle  *string    `json:"custom_title"`
	Description  *string    `json:"description"`
	DeadlineDate *time.Time `json:"deadline_date"`
	Notes        *string    `json:"notes"`
}

// UpdateConditionStatusRequest represents a condition status change
type UpdateConditionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RequestAppointmentRequest represents the request to propose an appointment
type RequestAppointmentRequest struct {
	TransactionID uuid.UUID  `json:"transaction_id" binding:"required"`
	Type          string     `json:"type"`
	PropertyID    *uuid.UUID `json:"property_id"`
	FromTime      time.Time  `json:"from_time" binding:"required"`
	ToTime        time.Time  `json:"to_time" binding:"required"`
	Location      *string    `json:"location"`
	Latitude      *float64   `json:"latitude"`
	Longitude     *float64   `json:"longitude"`
	Notes         *string    `json:"notes"`
}

// ReviewAppointmentRequest represents the counterparty's answer on a proposal
type ReviewAppointmentRequest struct {
	Action        string    `json:"action" binding:"required"`
	RefusalReason string    `json:"refusal_reason"`
	NewFromTime   time.Time `json:"new_from_time"`
	NewToTime     time.Time `json:"new_to_time"`
}

// CancelAppointmentRequest represents the request to cancel an appointment
type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// CreateDocumentRequest represents the request to create a document entry
type CreateDocumentRequest struct {
	DocType           string     `json:"doc_type" binding:"required"`
	CustomTitle       *string    `json:"custom_title"`
	Flow              string     `json:"flow"`
	ExpectedFrom      string     `json:"expected_from"`
	VisibleToClient   bool       `json:"visible_to_client"`
	Stage             *string    `json:"stage"`
	RequiresSignature bool       `json:"requires_signature"`
	DueDate           *time.Time `json:"due_date"`
	AsDraft           bool       `json:"as_draft"`
}

// UpdateDocumentRequest represents changes to a document entry
type UpdateDocumentRequest struct {
	DocType           *string    `json:"doc_type"`
	CustomTitle       *string    `json:"custom_title"`
	ExpectedFrom      *string    `json:"expected_from"`
	VisibleToClient   *bool      `json:"visible_to_client"`
	Stage             *string    `json:"stage"`
	RequiresSignature *bool      `json:"requires_signature"`
	DueDate           *time.Time `json:"due_date"`
}

// ReviewDocumentRequest represents the broker's verdict on a submission
type ReviewDocumentRequest struct {
	Decision string `json:"decision" binding:"required"`
	Comments string `json:"comments"`
}

// SetChecklistStateRequest represents a manual checklist override
type SetChecklistStateRequest struct {
	ItemKey string `json:"item_key" binding:"required"`
	Checked bool   `json:"checked"`
}
