package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EntitlementEvent is one webhook delivery, appended verbatim and never
// mutated. The normalized columns exist so "latest matching record"
// queries stay indexable; Payload keeps the provider's exact document
// for audit and forensic replay. "Latest" is always the greatest
// ProviderUpdatedAt, not insertion order: deliveries may be reordered
// or retried by the provider.
type EntitlementEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Kind      string    `gorm:"size:32;not null;index:idx_events_kind_key" json:"kind"`
	EventName string    `gorm:"size:64;not null;index" json:"event_name"`

	// Query-key fields extracted from the payload. All ids are strings:
	// the provider emits numeric ids inconsistently.
	StoreID    string `gorm:"size:64;index:idx_events_kind_key" json:"store_id"`
	ProductID  string `gorm:"size:64;index:idx_events_kind_key" json:"product_id"`
	VariantID  string `gorm:"size:64;index:idx_events_kind_key" json:"variant_id"`
	LicenseKey string `gorm:"size:128;index" json:"license_key,omitempty"`
	UserID     string `gorm:"size:64;index:idx_events_kind_key" json:"user_id"`
	CustomerID string `gorm:"size:64;index" json:"customer_id"`
	UserEmail  string `gorm:"size:255;index" json:"user_email"`
	Status     string `gorm:"size:32;index" json:"status"`
	TestMode   bool   `gorm:"index:idx_events_kind_key" json:"test_mode"`

	// Provider-reported timestamps, distinct from arrival time.
	ProviderCreatedAt time.Time `gorm:"index" json:"created_at"`
	ProviderUpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Payload datatypes.JSON `gorm:"not null" json:"payload"`

	ReceivedAt time.Time `gorm:"autoCreateTime" json:"received_at"`
}
