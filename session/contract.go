package session

import "github.com/charlahq/charla/conversation"

// Session field names. Every known field appears in the defaults template;
// unknown fields found in stored sessions are preserved verbatim.
const (
	FieldTenantID           = "tenant_id"
	FieldWaID               = "wa_id"
	FieldCurrentLane        = "current_lane"
	FieldLocale             = "locale"
	FieldTimezone           = "timezone"
	FieldHumanHandoff       = "human_handoff"
	FieldVIP                = "vip"
	FieldTurns              = "turns"
	FieldLastUserMsgID      = "last_user_msg_id"
	FieldLastAssistantMsgID = "last_assistant_msg_id"
	FieldPhoneVerified      = "phone_verified"
	FieldCustomerID         = "customer_id"
	FieldCommerceState      = "commerce_state"
	FieldCartItems          = "cart_items"
	FieldCartSubtotalCents  = "cart_subtotal_cents"
	FieldCartCurrency       = "cart_currency"
	FieldActiveCaseID       = "active_case_id"
	FieldLastOrderID        = "last_order_id"
	FieldUpdatedAt          = "updated_at"
)

// Commerce states.
const (
	CommerceBrowsing       = "browsing"
	CommerceCartActive     = "cart_active"
	CommerceReviewingCart  = "reviewing_cart"
	CommerceCheckout       = "checkout"
	CommerceProductInquiry = "product_inquiry"
)

// Defaults for locale and currency.
const (
	DefaultLocale   = "es-CO"
	DefaultTimezone = "America/Bogota"
	DefaultCurrency = "COP"
)

// defaults is the frozen template. Numeric defaults are float64 so a fresh
// session compares equal to its JSON round-trip.
var defaults = Session{
	FieldTenantID:           "",
	FieldWaID:               "",
	FieldCurrentLane:        conversation.LaneInfo,
	FieldLocale:             DefaultLocale,
	FieldTimezone:           DefaultTimezone,
	FieldHumanHandoff:       false,
	FieldVIP:                false,
	FieldTurns:              []any{},
	FieldLastUserMsgID:      "",
	FieldLastAssistantMsgID: "",
	FieldPhoneVerified:      false,
	FieldCustomerID:         "",
	FieldCommerceState:      CommerceBrowsing,
	FieldCartItems:          []any{},
	FieldCartSubtotalCents:  float64(0),
	FieldCartCurrency:       DefaultCurrency,
	FieldActiveCaseID:       "",
	FieldLastOrderID:        "",
	FieldUpdatedAt:          "",
}

// Blank returns a deep copy of the defaults template.
func Blank() Session {
	return defaults.Clone()
}
