// Package order implements the order intake engine and the order tracking
// synchronizer for the laundry pickup booking app.
package order

import (
	"strings"
	"time"
)

// AddressSource selects where the pickup address comes from. Exactly one
// source is active per draft session.
type AddressSource string

const (
	// SourceProfile derives the address from the stored profile.
	SourceProfile AddressSource = "profile"
	// SourceDevice derives the address from a reverse-geocoded device position.
	SourceDevice AddressSource = "device"
	// SourceManual uses the manually entered cascading fields.
	SourceManual AddressSource = "manual"
)

// PickupType is how the rider collects the laundry.
type PickupType string

const (
	PickupEconomy PickupType = "Economy"
	PickupExpress PickupType = "Express"
)

// ServiceType is the processing speed.
type ServiceType string

const (
	ServiceNormal  ServiceType = "Normal"
	ServiceExpress ServiceType = "Express"
)

// Stored delivery_type / order_type values.
const (
	DeliveryPool     = "pool"
	DeliveryExpress  = "express"
	OrderTypeNormal  = "normal"
	OrderTypeExpress = "express"
)

// StatusPending is the status every new order is created with. Later values
// are server-controlled free-form strings.
const StatusPending = "pending"

// DefaultPackage is the pre-selected laundry package on a fresh draft.
const DefaultPackage = "Regular Laundry Packages"

// DateFormat is the ISO calendar date layout used for pickup dates.
const DateFormat = "2006-01-02"

// Address is a resolved mailing address. Once an order is finalized the
// joined form is immutable.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code,omitempty"`
}

// String joins street, city, region and country in that fixed order.
func (a Address) String() string {
	return strings.Join([]string{a.Street, a.City, a.Region, a.Country}, ", ")
}

// blank reports whether the address carries no content at all.
func (a Address) blank() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.Region) == "" &&
		strings.TrimSpace(a.Country) == ""
}

// Draft is an order in progress. It lives for one screen session: created
// with defaults on entry, destroyed on submission or exit, never persisted
// partially.
type Draft struct {
	Package     string
	PickupType  PickupType
	ServiceType ServiceType
	PickupDate  string // ISO calendar date, no time component
	Source      AddressSource

	// Manual entry fields. Preserved when the user switches the source
	// away and back, so nothing has to be retyped.
	Manual Address

	PromoCode     string
	TermsAccepted bool
}

// NewDraft creates a draft with the screen's defaults: regular laundry,
// economy pickup, normal service, today's date, profile address.
func NewDraft(now time.Time) *Draft {
	return &Draft{
		Package:     DefaultPackage,
		PickupType:  PickupEconomy,
		ServiceType: ServiceNormal,
		PickupDate:  now.Format(DateFormat),
		Source:      SourceProfile,
	}
}

// Order is the server-owned record the client observes. After submission
// the client never mutates it; all changes arrive through the change feed.
type Order struct {
	ID            string   `json:"id,omitempty"`
	UID           string   `json:"uid"`
	Name          string   `json:"name"`
	Phone         string   `json:"phone"`
	PickupAddress string   `json:"pickup_address"`
	PickupDate    string   `json:"pickup_date"`
	Service       string   `json:"service"`
	DeliveryType  string   `json:"delivery_type"`
	OrderType     string   `json:"order_type"`
	PromoCode     *string  `json:"promo_code"`
	Status        string   `json:"status"`
	FinalPrice    *float64 `json:"final_price,omitempty"`
	Vendor        string   `json:"vendor,omitempty"`
	CreatedAt     string   `json:"created_at"`
}
