package dto

// EntitlementResponse is the common shape of every entitlement check.
// Timestamps are ISO-8601 with a Z suffix. Kind-specific fields are
// omitted when absent.
type EntitlementResponse struct {
	Available bool   `json:"available"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	// Subscription-only.
	RenewsAt string `json:"renews_at,omitempty"`
	EndsAt   string `json:"ends_at,omitempty"`

	// License-only.
	ActivationLimit *int `json:"activation_limit,omitempty"`
	InstancesCount  *int `json:"instances_count,omitempty"`
}

type ActivateLicenseRequest struct {
	LicenseKey   string `json:"license_key"`
	InstanceName string `json:"instance_name"`
}
