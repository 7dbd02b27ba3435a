package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwl-dev/lemongate/internal/webhook"
)

const orderPayload = `{
	"meta": {
		"event_name": "order_created",
		"custom_data": {"user_id": "u-1"}
	},
	"data": {
		"type": "orders",
		"id": 12345,
		"attributes": {
			"store_id": 1,
			"customer_id": 7,
			"user_email": "buyer@example.com",
			"status": "paid",
			"test_mode": false,
			"first_order_item": {"product_id": 2, "variant_id": 1},
			"created_at": "2023-01-17T12:26:23.000000Z",
			"updated_at": "2023-01-18T09:00:00.000000Z"
		}
	}
}`

const licensePayload = `{
	"meta": {
		"event_name": "license_key_created",
		"custom_data": {"user_id": "u-2"}
	},
	"data": {
		"type": "license-keys",
		"id": "99",
		"attributes": {
			"store_id": 1,
			"customer_id": 7,
			"product_id": 3,
			"user_email": "buyer@example.com",
			"key": "AAAA-BBBB-CCCC-DDDD",
			"status": "active",
			"activation_limit": 5,
			"instances_count": 1,
			"test_mode": true,
			"created_at": "2023-02-01T00:00:00.000000Z",
			"updated_at": "2023-02-02T00:00:00.000000Z"
		}
	}
}`

func TestNormalizeOrderEvent(t *testing.T) {
	event, err := NormalizeEvent(webhook.KindOrder, "order_created", []byte(orderPayload))
	require.NoError(t, err)

	assert.Equal(t, "order", event.Kind)
	assert.Equal(t, "order_created", event.EventName)
	assert.Equal(t, "u-1", event.UserID)
	assert.Equal(t, "1", event.StoreID)
	assert.Equal(t, "2", event.ProductID)
	assert.Equal(t, "1", event.VariantID)
	assert.Equal(t, "7", event.CustomerID)
	assert.Equal(t, "buyer@example.com", event.UserEmail)
	assert.Equal(t, "paid", event.Status)
	assert.False(t, event.TestMode)

	assert.Equal(t, time.Date(2023, 1, 17, 12, 26, 23, 0, time.UTC), event.ProviderCreatedAt)
	assert.Equal(t, time.Date(2023, 1, 18, 9, 0, 0, 0, time.UTC), event.ProviderUpdatedAt)
}

// The provider has been observed to send data.id as both a number and
// a string; either way it must land as a string in the stored payload.
func TestNormalizeDataIDToString(t *testing.T) {
	event, err := NormalizeEvent(webhook.KindOrder, "order_created", []byte(orderPayload))
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &stored))
	assert.Equal(t, "12345", stored["data"].(map[string]any)["id"])

	// Already-string ids pass through unchanged.
	event, err = NormalizeEvent(webhook.KindLicense, "license_key_created", []byte(licensePayload))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(event.Payload, &stored))
	assert.Equal(t, "99", stored["data"].(map[string]any)["id"])
}

func TestNormalizeLicenseEvent(t *testing.T) {
	event, err := NormalizeEvent(webhook.KindLicense, "license_key_created", []byte(licensePayload))
	require.NoError(t, err)

	assert.Equal(t, "AAAA-BBBB-CCCC-DDDD", event.LicenseKey)
	assert.Equal(t, "3", event.ProductID)
	assert.Equal(t, "active", event.Status)
	assert.True(t, event.TestMode)
}

func TestNormalizeSparsePayload(t *testing.T) {
	event, err := NormalizeEvent(webhook.KindSubscription, "subscription_created", []byte(`{"data":{"id":"1"}}`))
	require.NoError(t, err)

	assert.Empty(t, event.UserID)
	assert.Empty(t, event.Status)
	assert.True(t, event.ProviderUpdatedAt.IsZero())
}

func TestNormalizeRejectsNonObject(t *testing.T) {
	_, err := NormalizeEvent(webhook.KindOrder, "order_created", []byte(`not json`))
	assert.Error(t, err)
}

func TestAsTimeFormats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2023-01-17T12:26:23.000000Z", time.Date(2023, 1, 17, 12, 26, 23, 0, time.UTC)},
		{"2023-01-17T12:26:23Z", time.Date(2023, 1, 17, 12, 26, 23, 0, time.UTC)},
		{"2023-01-17T14:26:23+02:00", time.Date(2023, 1, 17, 12, 26, 23, 0, time.UTC)},
		{"2023-01-17T12:26:23", time.Date(2023, 1, 17, 12, 26, 23, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, asTime(tc.in), tc.in)
	}

	assert.True(t, asTime("not a date").IsZero())
	assert.True(t, asTime(nil).IsZero())
	assert.True(t, asTime(42.0).IsZero())
}

func TestIsoZ(t *testing.T) {
	ts := time.Date(2023, 1, 17, 12, 26, 23, 0, time.UTC)
	assert.Equal(t, "2023-01-17T12:26:23Z", isoZ(ts))
}
