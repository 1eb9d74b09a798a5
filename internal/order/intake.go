package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klynnlabs/laundry-core/internal/config"
	"github.com/klynnlabs/laundry-core/internal/geo"
	"github.com/klynnlabs/laundry-core/internal/profile"
	"github.com/klynnlabs/laundry-core/pkg/logger"
)

var (
	// ErrNotAuthenticated is returned when no signed-in user is attached.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoProfile is returned when submission is attempted before the
	// profile has loaded.
	ErrNoProfile = errors.New("profile not loaded")
	// ErrTermsNotAccepted is returned when the terms box is unchecked.
	ErrTermsNotAccepted = errors.New("terms must be accepted")
	// ErrMissingProfile is returned when the profile address source is
	// active but no profile is available.
	ErrMissingProfile = errors.New("no profile available for pickup address")
	// ErrNoLocationFetched is returned when the device address source is
	// active but no location lookup has completed.
	ErrNoLocationFetched = errors.New("no device location fetched")
	// ErrIncompleteAddress is returned when the manual address fields are
	// all blank.
	ErrIncompleteAddress = errors.New("pickup address is incomplete")
)

// ProfileSource loads the stored profile for a user.
type ProfileSource interface {
	Load(ctx context.Context, userID string) (*profile.Profile, error)
}

// RegionSource resolves region lists and dial codes for manual entry.
type RegionSource interface {
	Regions(ctx context.Context, countryID string) ([]string, error)
	DialCodes(ctx context.Context) (map[string]string, error)
}

// Session identifies the signed-in user an intake or tracker acts for.
type Session struct {
	UserID      string
	AccessToken string
}

// locationCall is one in-flight device location lookup. Concurrent callers
// wait on done and share the result instead of issuing a second lookup.
type locationCall struct {
	done chan struct{}
	addr string
	err  error
}

// IntakeConfig wires an Intake's collaborators.
type IntakeConfig struct {
	Session  *Session
	Profiles ProfileSource
	Regions  RegionSource
	Locator  geo.Locator
	Geocoder geo.ReverseGeocoder
	Store    Store
	Catalog  *config.Catalog
	Logger   *logger.Logger
	Now      func() time.Time
}

// Intake drives one order booking session: selection state, address
// resolution and submission.
type Intake struct {
	session  *Session
	profiles ProfileSource
	regions  RegionSource
	locator  geo.Locator
	geocoder geo.ReverseGeocoder
	store    Store
	catalog  *config.Catalog
	log      *logger.Logger
	now      func() time.Time

	mu            sync.Mutex
	draft         *Draft
	profile       *profile.Profile
	deviceAddress string
	inflight      *locationCall
}

// NewIntake creates an intake session with a fresh draft.
func NewIntake(cfg IntakeConfig) (*Intake, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = config.DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault("order.intake")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Intake{
		session:  cfg.Session,
		profiles: cfg.Profiles,
		regions:  cfg.Regions,
		locator:  cfg.Locator,
		geocoder: cfg.Geocoder,
		store:    cfg.Store,
		catalog:  cfg.Catalog,
		log:      cfg.Logger,
		now:      cfg.Now,
		draft:    NewDraft(cfg.Now()),
	}, nil
}

// LoadProfile fetches the stored profile for the session user. Booking can
// proceed without it until submission, where it becomes a hard requirement.
func (i *Intake) LoadProfile(ctx context.Context) error {
	if i.session == nil || i.session.UserID == "" {
		return ErrNotAuthenticated
	}
	if i.profiles == nil {
		return fmt.Errorf("profile source not configured")
	}

	p, err := i.profiles.Load(ctx, i.session.UserID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	i.mu.Lock()
	i.profile = p
	i.mu.Unlock()
	return nil
}

// Draft returns a snapshot of the current draft.
func (i *Intake) Draft() Draft {
	i.mu.Lock()
	defer i.mu.Unlock()
	return *i.draft
}

// Profile returns the loaded profile, or nil.
func (i *Intake) Profile() *profile.Profile {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.profile
}

// DeviceAddress returns the cached device address for this session, or the
// empty string when no lookup has completed.
func (i *Intake) DeviceAddress() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deviceAddress
}

// SelectSource switches the active address source. Manual fields and the
// cached device address survive the switch.
func (i *Intake) SelectSource(src AddressSource) error {
	switch src {
	case SourceProfile, SourceDevice, SourceManual:
	default:
		return fmt.Errorf("unknown address source %q", src)
	}

	i.mu.Lock()
	i.draft.Source = src
	i.mu.Unlock()
	return nil
}

// SetPackage selects the laundry package. It must exist in the catalog.
func (i *Intake) SetPackage(name string) error {
	if !i.catalog.HasPackage(name) {
		return fmt.Errorf("unknown package %q", name)
	}
	i.mu.Lock()
	i.draft.Package = name
	i.mu.Unlock()
	return nil
}

// SetPickupType selects the pickup tier. It must exist in the catalog.
func (i *Intake) SetPickupType(t PickupType) error {
	if !i.catalog.HasPickupType(string(t)) {
		return fmt.Errorf("unknown pickup type %q", t)
	}
	i.mu.Lock()
	i.draft.PickupType = t
	i.mu.Unlock()
	return nil
}

// SetServiceType selects the processing speed. It must exist in the catalog.
func (i *Intake) SetServiceType(t ServiceType) error {
	if !i.catalog.HasServiceType(string(t)) {
		return fmt.Errorf("unknown service type %q", t)
	}
	i.mu.Lock()
	i.draft.ServiceType = t
	i.mu.Unlock()
	return nil
}

// SetPickupDate sets the pickup date from an ISO calendar date string.
func (i *Intake) SetPickupDate(iso string) error {
	if _, err := time.Parse(DateFormat, iso); err != nil {
		return fmt.Errorf("invalid pickup date %q: %w", iso, err)
	}
	i.mu.Lock()
	i.draft.PickupDate = iso
	i.mu.Unlock()
	return nil
}

// SetPromoCode sets the promo code. It is stored verbatim; no validation
// happens client-side.
func (i *Intake) SetPromoCode(code string) {
	i.mu.Lock()
	i.draft.PromoCode = code
	i.mu.Unlock()
}

// SetTermsAccepted records the terms checkbox state.
func (i *Intake) SetTermsAccepted(ok bool) {
	i.mu.Lock()
	i.draft.TermsAccepted = ok
	i.mu.Unlock()
}

// SetManualStreet sets the manual street line.
func (i *Intake) SetManualStreet(street string) {
	i.mu.Lock()
	i.draft.Manual.Street = street
	i.mu.Unlock()
}

// SetManualCity sets the manual city.
func (i *Intake) SetManualCity(city string) {
	i.mu.Lock()
	i.draft.Manual.City = city
	i.mu.Unlock()
}

// SetManualPostalCode sets the manual postal code. It is captured but never
// part of the finalized address line.
func (i *Intake) SetManualPostalCode(code string) {
	i.mu.Lock()
	i.draft.Manual.PostalCode = code
	i.mu.Unlock()
}

// SetManualRegion selects a region for the current manual country.
func (i *Intake) SetManualRegion(region string) {
	i.mu.Lock()
	i.draft.Manual.Region = region
	i.mu.Unlock()
}

// SetManualCountry changes the manual country and clears the region, since
// the previous selection belongs to the old country's list. The new
// country's regions are returned for the caller to offer.
func (i *Intake) SetManualCountry(ctx context.Context, country string) ([]string, error) {
	i.mu.Lock()
	i.draft.Manual.Country = country
	i.draft.Manual.Region = ""
	i.mu.Unlock()

	if i.regions == nil || country == "" {
		return nil, nil
	}
	regions, err := i.regions.Regions(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	return regions, nil
}

// Regions returns the region list for a country without changing the
// draft, for pre-populating the picker.
func (i *Intake) Regions(ctx context.Context, countryID string) ([]string, error) {
	if i.regions == nil {
		return nil, fmt.Errorf("region source not configured")
	}
	return i.regions.Regions(ctx, countryID)
}

// DialCodes returns the dial-code map for the phone prefix picker.
func (i *Intake) DialCodes(ctx context.Context) (map[string]string, error) {
	if i.regions == nil {
		return nil, fmt.Errorf("region source not configured")
	}
	return i.regions.DialCodes(ctx)
}

// UseDeviceLocation resolves the device position to a postal address and
// caches it for the session. Concurrent calls share a single lookup. On
// failure any previously cached address is kept.
func (i *Intake) UseDeviceLocation(ctx context.Context) (string, error) {
	if i.locator == nil || i.geocoder == nil {
		return "", fmt.Errorf("device location not configured")
	}

	i.mu.Lock()
	if call := i.inflight; call != nil {
		i.mu.Unlock()
		select {
		case <-call.done:
			return call.addr, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	call := &locationCall{done: make(chan struct{})}
	i.inflight = call
	i.mu.Unlock()

	addr, err := i.lookupDeviceAddress(ctx)

	i.mu.Lock()
	call.addr, call.err = addr, err
	close(call.done)
	i.inflight = nil
	if err == nil {
		i.deviceAddress = addr
	}
	i.mu.Unlock()

	if err != nil {
		i.log.WithError(err).Warn("device location lookup failed")
		return "", err
	}
	return addr, nil
}

func (i *Intake) lookupDeviceAddress(ctx context.Context) (string, error) {
	pos, err := i.locator.Current(ctx)
	if err != nil {
		var locErr *geo.LocationError
		if errors.As(err, &locErr) {
			return "", err
		}
		return "", &geo.LocationError{Message: err.Error(), Err: err}
	}
	return i.geocoder.ReverseGeocode(ctx, pos)
}

// Finalize resolves the active address source to the pickup address line.
// It performs no I/O and never mutates the draft.
func (i *Intake) Finalize() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.finalizeLocked()
}

func (i *Intake) finalizeLocked() (string, error) {
	switch i.draft.Source {
	case SourceProfile:
		if i.profile == nil {
			return "", ErrMissingProfile
		}
		addr := Address{
			Street:  i.profile.Street,
			City:    i.profile.City,
			Region:  i.profile.State,
			Country: i.profile.Country,
		}
		return addr.String(), nil
	case SourceDevice:
		if i.deviceAddress == "" {
			return "", ErrNoLocationFetched
		}
		return i.deviceAddress, nil
	case SourceManual:
		if i.draft.Manual.blank() {
			return "", ErrIncompleteAddress
		}
		return i.draft.Manual.String(), nil
	default:
		return "", fmt.Errorf("unknown address source %q", i.draft.Source)
	}
}

// Submit validates the draft and inserts the order. Preconditions are
// checked in a fixed order and the store is never touched when one fails.
// On success the promo code and terms acceptance are cleared; every other
// selection survives for the next booking.
func (i *Intake) Submit(ctx context.Context) (Order, error) {
	i.mu.Lock()
	if i.session == nil || i.session.UserID == "" {
		i.mu.Unlock()
		return Order{}, ErrNotAuthenticated
	}
	if i.profile == nil {
		i.mu.Unlock()
		return Order{}, ErrNoProfile
	}
	if !i.draft.TermsAccepted {
		i.mu.Unlock()
		return Order{}, ErrTermsNotAccepted
	}
	addr, err := i.finalizeLocked()
	if err != nil {
		i.mu.Unlock()
		return Order{}, err
	}

	o := Order{
		UID:           i.session.UserID,
		Name:          i.profile.DisplayName(),
		Phone:         strings.TrimSpace(i.profile.PhoneNumber),
		PickupAddress: addr,
		PickupDate:    i.draft.PickupDate,
		Service:       i.draft.Package,
		DeliveryType:  deliveryType(i.draft.PickupType),
		OrderType:     orderType(i.draft.ServiceType),
		Status:        StatusPending,
		CreatedAt:     i.now().UTC().Format(time.RFC3339),
	}
	if code := strings.TrimSpace(i.draft.PromoCode); code != "" {
		o.PromoCode = &code
	}
	i.mu.Unlock()

	created, err := i.store.Insert(ctx, o)
	if err != nil {
		return Order{}, err
	}

	i.mu.Lock()
	i.draft.PromoCode = ""
	i.draft.TermsAccepted = false
	i.mu.Unlock()

	i.log.WithField("user_id", o.UID).WithField("service", o.Service).Info("order placed")
	return created, nil
}

func deliveryType(t PickupType) string {
	if t == PickupExpress {
		return DeliveryExpress
	}
	return DeliveryPool
}

func orderType(t ServiceType) string {
	if t == ServiceExpress {
		return OrderTypeExpress
	}
	return OrderTypeNormal
}
