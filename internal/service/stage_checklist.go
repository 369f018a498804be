package service

import (
	"github.com/courtierpro/brokerage-backend/internal/models"
)

// ChecklistTemplateItem is one expected document in a stage checklist.
// The registry is a pure lookup table keyed by (transaction side, stage);
// it carries no mutable state.
type ChecklistTemplateItem struct {
	Key     string
	Title   string
	DocType string
	Flow    string
}

// ChecklistItem is a resolved checklist row: the template plus the
// computed checked state for one transaction.
type ChecklistItem struct {
	Key            string `json:"key"`
	Title          string `json:"title"`
	DocType        string `json:"doc_type"`
	Flow           string `json:"flow"`
	Checked        bool   `json:"checked"`
	AutoChecked    bool   `json:"auto_checked"`
	ManualOverride *bool  `json:"manual_override,omitempty"`
}

var stageTemplates = map[string]map[string][]ChecklistTemplateItem{
	models.SideBuy: {
		models.StageBuyerPrequalifyFinancially: {
			{Key: "buy.prequalify.preapproval", Title: "Mortgage pre-approval letter", DocType: "PREAPPROVAL_LETTER", Flow: models.DocumentFlowRequest},
			{Key: "buy.prequalify.identity", Title: "Government photo ID", DocType: "PHOTO_ID", Flow: models.DocumentFlowRequest},
			{Key: "buy.prequalify.proof_of_funds", Title: "Proof of down payment funds", DocType: "PROOF_OF_FUNDS", Flow: models.DocumentFlowRequest},
		},
		models.StageBuyerOfferNegotiation: {
			{Key: "buy.offer.promise_to_purchase", Title: "Promise to purchase", DocType: "PROMISE_TO_PURCHASE", Flow: models.DocumentFlowUpload},
			{Key: "buy.offer.annexes", Title: "Annexes and amendments", DocType: "OFFER_ANNEX", Flow: models.DocumentFlowUpload},
		},
		models.StageBuyerConditions: {
			{Key: "buy.conditions.inspection_report", Title: "Inspection report", DocType: "INSPECTION_REPORT", Flow: models.DocumentFlowRequest},
			{Key: "buy.conditions.financing_confirmation", Title: "Financing confirmation", DocType: "FINANCING_CONFIRMATION", Flow: models.DocumentFlowRequest},
		},
		models.StageBuyerClosing: {
			{Key: "buy.closing.notary_instructions", Title: "Notary instructions", DocType: "NOTARY_INSTRUCTIONS", Flow: models.DocumentFlowUpload},
		},
	},
	models.SideSell: {
		models.StageSellerPrepareListing: {
			{Key: "sell.prepare.brokerage_contract", Title: "Brokerage contract", DocType: "BROKERAGE_CONTRACT", Flow: models.DocumentFlowUpload},
			{Key: "sell.prepare.declaration_seller", Title: "Declarations by the seller", DocType: "SELLER_DECLARATION", Flow: models.DocumentFlowRequest},
			{Key: "sell.prepare.certificate_location", Title: "Certificate of location", DocType: "CERTIFICATE_OF_LOCATION", Flow: models.DocumentFlowRequest},
		},
		models.StageSellerOfferNegotiation: {
			{Key: "sell.offer.counter_proposal", Title: "Counter-proposal", DocType: "COUNTER_PROPOSAL", Flow: models.DocumentFlowUpload},
		},
		models.StageSellerConditions: {
			{Key: "sell.conditions.inspection_report", Title: "Inspection report", DocType: "INSPECTION_REPORT", Flow: models.DocumentFlowRequest},
		},
		models.StageSellerClosing: {
			{Key: "sell.closing.deed_of_sale", Title: "Deed of sale draft", DocType: "DEED_OF_SALE", Flow: models.DocumentFlowUpload},
		},
	},
}

// StageChecklistTemplate returns the template items for a side and stage.
// Unknown combinations return an empty list.
func StageChecklistTemplate(side, stage string) []ChecklistTemplateItem {
	return stageTemplates[side][stage]
}

// ChecklistItemKnown reports whether a key belongs to the side's templates,
// across all stages.
func ChecklistItemKnown(side, key string) bool {
	for _, items := range stageTemplates[side] {
		for _, item := range items {
			if item.Key == key {
				return true
			}
		}
	}
	return false
}

// autoChecked computes whether an item is satisfied by the documents on
// file: UPLOAD items check once a matching document reaches SUBMITTED,
// REQUEST items only once it is APPROVED.
func autoChecked(item ChecklistTemplateItem, docs []models.Document) bool {
	for _, doc := range docs {
		if doc.DocType != item.DocType {
			continue
		}
		switch item.Flow {
		case models.DocumentFlowUpload:
			if doc.Status == models.DocumentStatusSubmitted || doc.Status == models.DocumentStatusApproved {
				return true
			}
		case models.DocumentFlowRequest:
			if doc.Status == models.DocumentStatusApproved {
				return true
			}
		}
	}
	return false
}
