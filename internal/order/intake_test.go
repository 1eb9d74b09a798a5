package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klynnlabs/laundry-core/internal/geo"
	"github.com/klynnlabs/laundry-core/internal/profile"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		FirstName:    "Amina",
		LastName:     "Tan",
		PhoneCountry: "+60",
		PhoneNumber:  "123456789",
		Street:       "12 Jalan X",
		City:         "KL",
		State:        "WP",
		Country:      "Malaysia",
	}
}

func newTestIntake(t *testing.T, cfg IntakeConfig) *Intake {
	t.Helper()
	if cfg.Session == nil {
		cfg.Session = &Session{UserID: "user-1"}
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Profiles == nil {
		cfg.Profiles = &StaticProfiles{Profiles: map[string]*profile.Profile{
			"user-1": testProfile(),
		}}
	}
	cfg.Now = func() time.Time {
		return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	}
	intake, err := NewIntake(cfg)
	require.NoError(t, err)
	return intake
}

func TestNewDraftDefaults(t *testing.T) {
	d := NewDraft(time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC))

	assert.Equal(t, DefaultPackage, d.Package)
	assert.Equal(t, PickupEconomy, d.PickupType)
	assert.Equal(t, ServiceNormal, d.ServiceType)
	assert.Equal(t, "2026-03-14", d.PickupDate)
	assert.Equal(t, SourceProfile, d.Source)
	assert.False(t, d.TermsAccepted)
	assert.Empty(t, d.PromoCode)
}

func TestFinalizeProfileSource(t *testing.T) {
	intake := newTestIntake(t, IntakeConfig{})
	require.NoError(t, intake.LoadProfile(context.Background()))

	addr, err := intake.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "12 Jalan X, KL, WP, Malaysia", addr)

	// Finalize is pure: a second call gives the same result and the draft
	// is untouched.
	before := intake.Draft()
	again, err := intake.Finalize()
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Equal(t, before, intake.Draft())
}

func TestFinalizeProfileSourceMissingProfile(t *testing.T) {
	intake := newTestIntake(t, IntakeConfig{
		Profiles: &StaticProfiles{Profiles: map[string]*profile.Profile{}},
	})
	require.NoError(t, intake.LoadProfile(context.Background()))

	_, err := intake.Finalize()
	assert.ErrorIs(t, err, ErrMissingProfile)
}

func TestFinalizeDeviceSource(t *testing.T) {
	t.Run("without a completed lookup", func(t *testing.T) {
		intake := newTestIntake(t, IntakeConfig{})
		require.NoError(t, intake.SelectSource(SourceDevice))

		_, err := intake.Finalize()
		assert.ErrorIs(t, err, ErrNoLocationFetched)
	})

	t.Run("after a lookup", func(t *testing.T) {
		intake := newTestIntake(t, IntakeConfig{
			Locator:  &StaticLocator{Pos: geo.Position{Latitude: 3.14, Longitude: 101.69}},
			Geocoder: &StaticGeocoder{Addr: "Menara KL, Jalan Punchak, Kuala Lumpur"},
		})
		require.NoError(t, intake.SelectSource(SourceDevice))

		addr, err := intake.UseDeviceLocation(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Menara KL, Jalan Punchak, Kuala Lumpur", addr)

		resolved, err := intake.Finalize()
		require.NoError(t, err)
		assert.Equal(t, addr, resolved)
	})
}

func TestFinalizeManualSource(t *testing.T) {
	t.Run("all fields blank", func(t *testing.T) {
		intake := newTestIntake(t, IntakeConfig{})
		require.NoError(t, intake.SelectSource(SourceManual))

		_, err := intake.Finalize()
		assert.ErrorIs(t, err, ErrIncompleteAddress)
	})

	t.Run("joined in fixed order", func(t *testing.T) {
		intake := newTestIntake(t, IntakeConfig{})
		require.NoError(t, intake.SelectSource(SourceManual))
		intake.SetManualStreet("8 Lorong Damai")
		intake.SetManualCity("George Town")
		intake.SetManualRegion("Penang")
		_, err := intake.SetManualCountry(context.Background(), "Malaysia")
		require.NoError(t, err)
		intake.SetManualRegion("Penang")

		addr, err := intake.Finalize()
		require.NoError(t, err)
		assert.Equal(t, "8 Lorong Damai, George Town, Penang, Malaysia", addr)
	})

	t.Run("postal code is captured but not joined", func(t *testing.T) {
		intake := newTestIntake(t, IntakeConfig{})
		require.NoError(t, intake.SelectSource(SourceManual))
		intake.SetManualStreet("8 Lorong Damai")
		intake.SetManualCity("George Town")
		intake.SetManualRegion("Penang")
		intake.SetManualPostalCode("10050")
		_, err := intake.SetManualCountry(context.Background(), "Malaysia")
		require.NoError(t, err)
		intake.SetManualRegion("Penang")

		addr, err := intake.Finalize()
		require.NoError(t, err)
		assert.NotContains(t, addr, "10050")
	})
}

func TestManualFieldsSurviveSourceSwitches(t *testing.T) {
	intake := newTestIntake(t, IntakeConfig{})

	require.NoError(t, intake.SelectSource(SourceManual))
	intake.SetManualStreet("8 Lorong Damai")
	intake.SetManualCity("George Town")

	require.NoError(t, intake.SelectSource(SourceDevice))
	require.NoError(t, intake.SelectSource(SourceManual))

	d := intake.Draft()
	assert.Equal(t, "8 Lorong Damai", d.Manual.Street)
	assert.Equal(t, "George Town", d.Manual.City)
}

func TestSetManualCountryResetsRegion(t *testing.T) {
	regions := &StaticRegions{ByCountry: map[string][]string{
		"MY": {"Johor", "Penang", "Selangor"},
		"SG": {"Central", "East", "West"},
	}}
	intake := newTestIntake(t, IntakeConfig{Regions: regions})
	require.NoError(t, intake.SelectSource(SourceManual))

	list, err := intake.SetManualCountry(context.Background(), "MY")
	require.NoError(t, err)
	assert.Equal(t, []string{"Johor", "Penang", "Selangor"}, list)
	intake.SetManualRegion("Penang")

	list, err = intake.SetManualCountry(context.Background(), "SG")
	require.NoError(t, err)
	assert.Equal(t, []string{"Central", "East", "West"}, list)

	d := intake.Draft()
	assert.Equal(t, "SG", d.Manual.Country)
	assert.Empty(t, d.Manual.Region, "previous country's region must not survive")
}

func TestUseDeviceLocationCoalescesConcurrentCalls(t *testing.T) {
	gate := make(chan struct{})
	locator := &StaticLocator{Pos: geo.Position{Latitude: 3.14, Longitude: 101.69}, Gate: gate}
	intake := newTestIntake(t, IntakeConfig{
		Locator:  locator,
		Geocoder: &StaticGeocoder{Addr: "Menara KL"},
	})

	const callers = 4
	results := make([]string, callers)
	errs := make([]error, callers)
	started := make(chan struct{}, callers)

	var wg sync.WaitGroup
	for n := 0; n < callers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			started <- struct{}{}
			results[n], errs[n] = intake.UseDeviceLocation(context.Background())
		}(n)
	}
	for n := 0; n < callers; n++ {
		<-started
	}
	// Let the waiters queue up behind the in-flight lookup before
	// releasing it.
	require.Eventually(t, func() bool { return locator.Calls() == 1 }, time.Second, 5*time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, locator.Calls(), "concurrent calls must share one lookup")
	for n := 0; n < callers; n++ {
		require.NoError(t, errs[n])
		assert.Equal(t, "Menara KL", results[n])
	}
}

func TestUseDeviceLocationErrorKeepsCachedAddress(t *testing.T) {
	locator := &StaticLocator{Pos: geo.Position{Latitude: 3.14, Longitude: 101.69}}
	geocoder := &StaticGeocoder{Addr: "Menara KL"}
	intake := newTestIntake(t, IntakeConfig{Locator: locator, Geocoder: geocoder})

	_, err := intake.UseDeviceLocation(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Menara KL", intake.DeviceAddress())

	locator.Err = errors.New("location services disabled")
	_, err = intake.UseDeviceLocation(context.Background())
	require.Error(t, err)
	var locErr *geo.LocationError
	assert.ErrorAs(t, err, &locErr)

	assert.Equal(t, "Menara KL", intake.DeviceAddress(), "failed lookup must not clear the cache")
}

func TestSubmitPreconditionOrder(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		store := NewMemoryStore()
		intake := newTestIntake(t, IntakeConfig{Session: &Session{}, Store: store})

		_, err := intake.Submit(context.Background())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Zero(t, store.InsertCalls())
	})

	t.Run("no profile", func(t *testing.T) {
		store := NewMemoryStore()
		intake := newTestIntake(t, IntakeConfig{Store: store})
		intake.SetTermsAccepted(true)

		_, err := intake.Submit(context.Background())
		assert.ErrorIs(t, err, ErrNoProfile)
		assert.Zero(t, store.InsertCalls())
	})

	t.Run("terms not accepted", func(t *testing.T) {
		store := NewMemoryStore()
		intake := newTestIntake(t, IntakeConfig{Store: store})
		require.NoError(t, intake.LoadProfile(context.Background()))

		_, err := intake.Submit(context.Background())
		assert.ErrorIs(t, err, ErrTermsNotAccepted)
		assert.Zero(t, store.InsertCalls())
	})

	t.Run("address resolution failure", func(t *testing.T) {
		store := NewMemoryStore()
		intake := newTestIntake(t, IntakeConfig{Store: store})
		require.NoError(t, intake.LoadProfile(context.Background()))
		intake.SetTermsAccepted(true)
		require.NoError(t, intake.SelectSource(SourceManual))

		_, err := intake.Submit(context.Background())
		assert.ErrorIs(t, err, ErrIncompleteAddress)
		assert.Zero(t, store.InsertCalls())
	})
}

func TestSubmitInsertsOrder(t *testing.T) {
	store := NewMemoryStore()
	intake := newTestIntake(t, IntakeConfig{Store: store})
	require.NoError(t, intake.LoadProfile(context.Background()))

	require.NoError(t, intake.SetPackage("Shoe Cleaning (Promotion)"))
	require.NoError(t, intake.SetPickupType(PickupExpress))
	require.NoError(t, intake.SetServiceType(ServiceExpress))
	require.NoError(t, intake.SetPickupDate("2026-03-20"))
	intake.SetPromoCode("LAUNDRY10")
	intake.SetTermsAccepted(true)

	created, err := intake.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.InsertCalls())

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.UID)
	assert.Equal(t, "Amina Tan", created.Name)
	assert.Equal(t, "123456789", created.Phone)
	assert.Equal(t, "12 Jalan X, KL, WP, Malaysia", created.PickupAddress)
	assert.Equal(t, "2026-03-20", created.PickupDate)
	assert.Equal(t, "Shoe Cleaning (Promotion)", created.Service)
	assert.Equal(t, DeliveryExpress, created.DeliveryType)
	assert.Equal(t, OrderTypeExpress, created.OrderType)
	require.NotNil(t, created.PromoCode)
	assert.Equal(t, "LAUNDRY10", *created.PromoCode)
	assert.Equal(t, StatusPending, created.Status)
}

func TestSubmitResetsPromoAndTermsOnly(t *testing.T) {
	intake := newTestIntake(t, IntakeConfig{})
	require.NoError(t, intake.LoadProfile(context.Background()))

	require.NoError(t, intake.SetPackage("Shoe Cleaning (Promotion)"))
	require.NoError(t, intake.SetPickupDate("2026-03-20"))
	intake.SetPromoCode("LAUNDRY10")
	intake.SetTermsAccepted(true)

	_, err := intake.Submit(context.Background())
	require.NoError(t, err)

	d := intake.Draft()
	assert.Empty(t, d.PromoCode)
	assert.False(t, d.TermsAccepted)
	assert.Equal(t, "Shoe Cleaning (Promotion)", d.Package)
	assert.Equal(t, "2026-03-20", d.PickupDate)
	assert.Equal(t, SourceProfile, d.Source)
}

func TestSubmitStoreErrorLeavesDraftUntouched(t *testing.T) {
	store := NewMemoryStore()
	storeErr := errors.New("supabase error: row level security violation")
	store.FailInserts(storeErr)

	intake := newTestIntake(t, IntakeConfig{Store: store})
	require.NoError(t, intake.LoadProfile(context.Background()))
	intake.SetPromoCode("LAUNDRY10")
	intake.SetTermsAccepted(true)

	_, err := intake.Submit(context.Background())
	assert.ErrorIs(t, err, storeErr)

	d := intake.Draft()
	assert.Equal(t, "LAUNDRY10", d.PromoCode, "failed submit must keep the promo code")
	assert.True(t, d.TermsAccepted, "failed submit must keep terms acceptance")
}

func TestSubmitOmitsBlankPromoCode(t *testing.T) {
	intake := newTestIntake(t, IntakeConfig{})
	require.NoError(t, intake.LoadProfile(context.Background()))
	intake.SetPromoCode("   ")
	intake.SetTermsAccepted(true)

	created, err := intake.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, created.PromoCode)
}

func TestSelectionValidation(t *testing.T) {
	intake := newTestIntake(t, IntakeConfig{})

	assert.Error(t, intake.SetPackage("Dry Ice Blasting"))
	assert.Error(t, intake.SetPickupType("Teleport"))
	assert.Error(t, intake.SetServiceType("Instant"))
	assert.Error(t, intake.SetPickupDate("20/03/2026"))
	assert.Error(t, intake.SelectSource("postcard"))
}
