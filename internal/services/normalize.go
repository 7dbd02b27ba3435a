package services

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mwl-dev/lemongate/internal/apperr"
	"github.com/mwl-dev/lemongate/internal/models"
	"github.com/mwl-dev/lemongate/internal/webhook"
)

// NormalizeEvent turns a raw webhook body into an EntitlementEvent row:
// key fields are lifted into typed columns, provider timestamps are
// parsed, and the payload itself is retained verbatim except that
// data.id is coerced to a string. The provider has been observed to
// emit numeric ids inconsistently, so every id goes through asString.
func NormalizeEvent(kind webhook.Kind, eventName string, rawBody []byte) (*models.EntitlementEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, apperr.Validation("webhook body is not a JSON object")
	}

	normalizeDataID(payload)

	attrs := dig(payload, "data", "attributes")

	event := &models.EntitlementEvent{
		ID:         uuid.New(),
		Kind:       string(kind),
		EventName:  eventName,
		StoreID:    asString(field(attrs, "store_id")),
		CustomerID: asString(field(attrs, "customer_id")),
		UserEmail:  asString(field(attrs, "user_email")),
		Status:     asString(field(attrs, "status")),
		TestMode:   asBool(field(attrs, "test_mode")),
		UserID:     asString(field(dig(payload, "meta", "custom_data"), "user_id")),

		ProviderCreatedAt: asTime(field(attrs, "created_at")),
		ProviderUpdatedAt: asTime(field(attrs, "updated_at")),
	}

	switch kind {
	case webhook.KindOrder:
		item := dig(attrs, "first_order_item")
		event.ProductID = asString(field(item, "product_id"))
		event.VariantID = asString(field(item, "variant_id"))
	case webhook.KindLicense:
		event.ProductID = asString(field(attrs, "product_id"))
		event.LicenseKey = asString(field(attrs, "key"))
	default:
		event.ProductID = asString(field(attrs, "product_id"))
		event.VariantID = asString(field(attrs, "variant_id"))
	}

	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Validation("failed to re-encode webhook payload")
	}
	event.Payload = datatypes.JSON(normalized)

	return event, nil
}

func normalizeDataID(payload map[string]any) {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return
	}
	if id, ok := data["id"]; ok {
		data["id"] = asString(id)
	}
}

// dig walks nested objects, returning nil when any step is missing.
func dig(m map[string]any, path ...string) map[string]any {
	current := m
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func field(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// json.Unmarshal gives float64 for all numbers; ids are integral.
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// asTime parses the provider's ISO-8601 timestamps, with or without
// fractional seconds. Unparseable or missing values become zero times,
// which sort before every real event.
func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// isoZ renders a timestamp the way the provider does: ISO-8601 UTC with
// a Z suffix, so clients never see a "+00:00" offset.
func isoZ(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z07:00")
}
