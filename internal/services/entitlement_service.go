package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mwl-dev/lemongate/internal/apperr"
	"github.com/mwl-dev/lemongate/internal/cache"
	"github.com/mwl-dev/lemongate/internal/dto"
	"github.com/mwl-dev/lemongate/internal/models"
	"github.com/mwl-dev/lemongate/internal/webhook"
)

// EntitlementQuery identifies one logical entitlement. Which fields
// participate in the lookup depends on the kind.
type EntitlementQuery struct {
	StoreID    string
	ProductID  string
	VariantID  string
	LicenseKey string
	UserID     string
	TestMode   bool
}

// kindConfig is the per-kind lookup shape, expressed as data so every
// kind goes through the same resolve path.
type kindConfig struct {
	// column -> query field selector
	keyColumns []string
	// statuses under which the entitlement counts as available
	activeStatuses map[string]bool
}

var kindConfigs = map[webhook.Kind]kindConfig{
	webhook.KindOrder: {
		keyColumns:     []string{"user_id", "store_id", "product_id", "variant_id"},
		activeStatuses: map[string]bool{"paid": true},
	},
	webhook.KindSubscription: {
		keyColumns:     []string{"user_id", "store_id", "product_id", "variant_id"},
		activeStatuses: map[string]bool{"on_trial": true, "active": true},
	},
	webhook.KindLicense: {
		// License keys are unique across all stores, so the key alone
		// identifies the entitlement.
		keyColumns:     []string{"license_key"},
		activeStatuses: map[string]bool{"active": true},
	},
}

var ErrNoEntitlement = apperr.NotFound("no matching entitlement")

type EntitlementService struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewEntitlementService(db *gorm.DB, c cache.Cache) *EntitlementService {
	return &EntitlementService{db: db, cache: c}
}

// Append inserts a webhook event into the append-only log and then
// clears the resolve cache for its kind. The invalidation is
// synchronous: by the time Append returns, no resolve can serve a
// pre-insert cached answer. A purchase immediately followed by an
// entitlement check depends on this ordering.
func (s *EntitlementService) Append(ctx context.Context, event *models.EntitlementEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to insert %s event: %w", event.Kind, err)
	}
	s.cache.InvalidateKind(ctx, event.Kind)
	return nil
}

// Resolve returns the latest matching event for the query, where
// "latest" is the provider's own updated_at, not arrival order. The
// result, including a definite absence, is cached for the configured
// window.
func (s *EntitlementService) Resolve(ctx context.Context, kind webhook.Kind, q EntitlementQuery) (*models.EntitlementEvent, error) {
	cfg, ok := kindConfigs[kind]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unsupported entitlement kind %q", kind))
	}

	key := q.cacheKey(cfg)
	if cached, hit := s.cache.Get(ctx, string(kind), key); hit {
		var event *models.EntitlementEvent
		if err := json.Unmarshal(cached, &event); err == nil {
			if event == nil {
				return nil, ErrNoEntitlement
			}
			return event, nil
		}
	}

	query := s.db.WithContext(ctx).Where("kind = ? AND test_mode = ?", string(kind), q.TestMode)
	for _, column := range cfg.keyColumns {
		query = query.Where(column+" = ?", q.columnValue(column))
	}

	var events []models.EntitlementEvent
	if err := query.Order("provider_updated_at DESC").Limit(1).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve %s entitlement: %w", kind, err)
	}

	if len(events) == 0 {
		// Cache the absence too; a polling client should not rescan the
		// log every few milliseconds for an entitlement that is not there.
		s.cache.Set(ctx, string(kind), key, []byte("null"))
		return nil, ErrNoEntitlement
	}

	event := &events[0]
	if encoded, err := json.Marshal(event); err == nil {
		s.cache.Set(ctx, string(kind), key, encoded)
	}
	return event, nil
}

// Available reports whether the event's status is in its kind's
// allow-list.
func (s *EntitlementService) Available(kind webhook.Kind, event *models.EntitlementEvent) bool {
	return kindConfigs[kind].activeStatuses[event.Status]
}

// ResolveResponse shapes a resolved event into the response clients
// see, pulling kind-specific extras back out of the raw payload.
func (s *EntitlementService) ResolveResponse(ctx context.Context, kind webhook.Kind, q EntitlementQuery) (*dto.EntitlementResponse, error) {
	event, err := s.Resolve(ctx, kind, q)
	if err != nil {
		return nil, err
	}

	resp := &dto.EntitlementResponse{
		Available: s.Available(kind, event),
		Status:    event.Status,
		CreatedAt: isoZ(event.ProviderCreatedAt),
		UpdatedAt: isoZ(event.ProviderUpdatedAt),
	}

	var payload map[string]any
	if err := json.Unmarshal(event.Payload, &payload); err == nil {
		attrs := dig(payload, "data", "attributes")
		switch kind {
		case webhook.KindSubscription:
			if v, ok := field(attrs, "renews_at").(string); ok {
				resp.RenewsAt = v
			}
			if v, ok := field(attrs, "ends_at").(string); ok {
				resp.EndsAt = v
			}
		case webhook.KindLicense:
			if v, ok := field(attrs, "activation_limit").(float64); ok {
				limit := int(v)
				resp.ActivationLimit = &limit
			}
			if v, ok := field(attrs, "instances_count").(float64); ok {
				count := int(v)
				resp.InstancesCount = &count
			}
		}
	}

	return resp, nil
}

func (q EntitlementQuery) columnValue(column string) string {
	switch column {
	case "store_id":
		return q.StoreID
	case "product_id":
		return q.ProductID
	case "variant_id":
		return q.VariantID
	case "license_key":
		return q.LicenseKey
	case "user_id":
		return q.UserID
	default:
		return ""
	}
}

func (q EntitlementQuery) cacheKey(cfg kindConfig) string {
	parts := make([]string, 0, len(cfg.keyColumns)+1)
	for _, column := range cfg.keyColumns {
		parts = append(parts, q.columnValue(column))
	}
	parts = append(parts, fmt.Sprintf("test=%t", q.TestMode))
	return strings.Join(parts, "|")
}
