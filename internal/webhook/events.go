package webhook

import (
	"strings"

	"github.com/mwl-dev/lemongate/internal/apperr"
)

// HeaderEventName names the provider event for a webhook delivery.
const HeaderEventName = "X-Event-Name"

// Kind is the dispatch target for a classified event. Each kind maps to
// one append-only entitlement log.
type Kind string

const (
	KindOrder               Kind = "order"
	KindSubscription        Kind = "subscription"
	KindSubscriptionPayment Kind = "subscription_payment"
	KindLicense             Kind = "license"
)

// The closed set of provider event names.
// https://docs.lemonsqueezy.com/help/webhooks#event-types
const (
	EventOrderCreated                 = "order_created"
	EventOrderRefunded                = "order_refunded"
	EventSubscriptionCreated          = "subscription_created"
	EventSubscriptionUpdated          = "subscription_updated"
	EventSubscriptionCancelled        = "subscription_cancelled"
	EventSubscriptionResumed          = "subscription_resumed"
	EventSubscriptionExpired          = "subscription_expired"
	EventSubscriptionPaused           = "subscription_paused"
	EventSubscriptionUnpaused         = "subscription_unpaused"
	EventSubscriptionPaymentSuccess   = "subscription_payment_success"
	EventSubscriptionPaymentFailed    = "subscription_payment_failed"
	EventSubscriptionPaymentRecovered = "subscription_payment_recovered"
	EventLicenseKeyCreated            = "license_key_created"
	EventLicenseKeyUpdated            = "license_key_updated"
)

var knownEvents = map[string]struct{}{
	EventOrderCreated:                 {},
	EventOrderRefunded:                {},
	EventSubscriptionCreated:          {},
	EventSubscriptionUpdated:          {},
	EventSubscriptionCancelled:        {},
	EventSubscriptionResumed:          {},
	EventSubscriptionExpired:          {},
	EventSubscriptionPaused:           {},
	EventSubscriptionUnpaused:         {},
	EventSubscriptionPaymentSuccess:   {},
	EventSubscriptionPaymentFailed:    {},
	EventSubscriptionPaymentRecovered: {},
	EventLicenseKeyCreated:            {},
	EventLicenseKeyUpdated:            {},
}

var (
	ErrMissingEventName = apperr.Validation(`"X-Event-Name" not exists`)
)

// Classify maps a provider event name to its kind. Unknown names are
// rejected before anything touches the entitlement log.
//
// "subscription_payment_" must be tested before "subscription_":
// every payment event name also carries the shorter prefix.
func Classify(eventName string) (Kind, error) {
	if eventName == "" {
		return "", ErrMissingEventName
	}
	if _, ok := knownEvents[eventName]; !ok {
		return "", apperr.Validation(`invalid "X-Event-Name", event=` + eventName)
	}

	switch {
	case strings.HasPrefix(eventName, "order_"):
		return KindOrder, nil
	case strings.HasPrefix(eventName, "subscription_payment_"):
		return KindSubscriptionPayment, nil
	case strings.HasPrefix(eventName, "subscription_"):
		return KindSubscription, nil
	case strings.HasPrefix(eventName, "license_"):
		return KindLicense, nil
	default:
		return "", apperr.Validation("unsupported event, event=" + eventName)
	}
}
