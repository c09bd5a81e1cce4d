package model

import (
	"time"
)

// ConversationStatus is the lifecycle state of a conversation thread.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
)

// Metadata is the persisted per-conversation context bag. It is the
// system of record for funnel state; the in-memory context handed to
// the model is rebuilt from it every turn.
type Metadata struct {
	CurrentStep          string    `json:"current_step,omitempty"`
	SearchDimensions     string    `json:"search_dimensions,omitempty"`
	SearchResultIDs      []string  `json:"search_result_ids,omitempty"`
	SelectedProductID    string    `json:"selected_product_id,omitempty"`
	SelectedCategory     string    `json:"selected_category,omitempty"`
	DeliveryInfoComplete bool      `json:"delivery_info_complete,omitempty"`
	PaymentSessionID     string    `json:"payment_session_id,omitempty"`
	ViewingOrders        bool      `json:"viewing_orders,omitempty"`
	HasViewedDetails     bool      `json:"has_viewed_details,omitempty"`
	LastAction           string    `json:"last_action,omitempty"`
	LastUpdate           time.Time `json:"last_update,omitempty"`
}

// Conversation is a single thread with a customer. At most one active
// conversation exists per customer at a time.
type Conversation struct {
	ID          string             `json:"id"`
	CustomerID  string             `json:"customer_id"`
	PhoneNumber string             `json:"phone_number"`
	Status      ConversationStatus `json:"status"`
	Metadata    Metadata           `json:"metadata"`
	Summary     string             `json:"summary,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	EndedAt     *time.Time         `json:"ended_at,omitempty"`
}

// MetadataUpdate is a partial write to the metadata bag; nil fields are
// left untouched.
type MetadataUpdate struct {
	CurrentStep          *string
	SearchDimensions     *string
	SearchResultIDs      *[]string
	SelectedProductID    *string
	SelectedCategory     *string
	DeliveryInfoComplete *bool
	PaymentSessionID     *string
	ViewingOrders        *bool
	HasViewedDetails     *bool
	LastAction           *string
}

// Apply merges the update into the metadata bag and stamps LastUpdate.
func (m *Metadata) Apply(u MetadataUpdate, now time.Time) {
	if u.CurrentStep != nil {
		m.CurrentStep = *u.CurrentStep
	}
	if u.SearchDimensions != nil {
		m.SearchDimensions = *u.SearchDimensions
	}
	if u.SearchResultIDs != nil {
		m.SearchResultIDs = *u.SearchResultIDs
	}
	if u.SelectedProductID != nil {
		m.SelectedProductID = *u.SelectedProductID
	}
	if u.SelectedCategory != nil {
		m.SelectedCategory = *u.SelectedCategory
	}
	if u.DeliveryInfoComplete != nil {
		m.DeliveryInfoComplete = *u.DeliveryInfoComplete
	}
	if u.PaymentSessionID != nil {
		m.PaymentSessionID = *u.PaymentSessionID
	}
	if u.ViewingOrders != nil {
		m.ViewingOrders = *u.ViewingOrders
	}
	if u.HasViewedDetails != nil {
		m.HasViewedDetails = *u.HasViewedDetails
	}
	if u.LastAction != nil {
		m.LastAction = *u.LastAction
	}
	m.LastUpdate = now
}

// StringPtr is a convenience for building MetadataUpdate literals.
func StringPtr(s string) *string { return &s }

// BoolPtr is a convenience for building MetadataUpdate literals.
func BoolPtr(b bool) *bool { return &b }

// StringsPtr is a convenience for building MetadataUpdate literals.
func StringsPtr(s []string) *[]string { return &s }
