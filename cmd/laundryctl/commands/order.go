package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/klynnlabs/laundry-core/internal/geo"
	"github.com/klynnlabs/laundry-core/internal/order"
	"github.com/klynnlabs/laundry-core/internal/profile"
	"github.com/klynnlabs/laundry-core/internal/refdata"
)

var (
	pkgName     string
	pickupType  string
	serviceType string
	pickupDate  string
	addrSource  string
	promoCode   string
	acceptTerms bool

	manualStreet  string
	manualCity    string
	manualRegion  string
	manualPostal  string
	manualCountry string

	deviceLat float64
	deviceLon float64
)

func orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place laundry orders",
	}
	cmd.AddCommand(orderPlaceCmd(), orderListCmd())
	return cmd
}

func orderPlaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a pickup order",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}

			db := sb.WithSession(sess.AccessToken)

			nominatim, err := geo.NewNominatim(geo.NominatimConfig{BaseURL: cfg.NominatimURL})
			if err != nil {
				return err
			}
			regions, err := refdata.NewClient(refdata.ClientConfig{
				BaseURL:    cfg.RefDataURL,
				HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
			})
			if err != nil {
				return err
			}

			intake, err := order.NewIntake(order.IntakeConfig{
				Session:  orderSession(sess),
				Profiles: profile.NewService(db, log),
				Regions:  regions,
				Locator:  fixedLocator{lat: deviceLat, lon: deviceLon},
				Geocoder: nominatim,
				Store:    order.NewSupabaseStore(db),
				Catalog:  catalog,
				Logger:   log,
			})
			if err != nil {
				return err
			}

			if err := intake.LoadProfile(cmd.Context()); err != nil {
				return err
			}

			if cmd.Flags().Changed("package") {
				if err := intake.SetPackage(pkgName); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("pickup-type") {
				if err := intake.SetPickupType(order.PickupType(pickupType)); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("service-type") {
				if err := intake.SetServiceType(order.ServiceType(serviceType)); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("date") {
				if err := intake.SetPickupDate(pickupDate); err != nil {
					return err
				}
			}
			intake.SetPromoCode(promoCode)
			intake.SetTermsAccepted(acceptTerms)

			if err := intake.SelectSource(order.AddressSource(addrSource)); err != nil {
				return err
			}
			switch order.AddressSource(addrSource) {
			case order.SourceDevice:
				addr, err := intake.UseDeviceLocation(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("pickup at: %s\n", addr)
			case order.SourceManual:
				intake.SetManualStreet(manualStreet)
				intake.SetManualCity(manualCity)
				intake.SetManualPostalCode(manualPostal)
				if _, err := intake.SetManualCountry(cmd.Context(), manualCountry); err != nil {
					return err
				}
				intake.SetManualRegion(manualRegion)
			}

			created, err := intake.Submit(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("order placed: %s\n", created.ID)
			fmt.Printf("  service:  %s\n", created.Service)
			fmt.Printf("  pickup:   %s on %s\n", created.PickupAddress, created.PickupDate)
			fmt.Printf("  status:   %s\n", created.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&pkgName, "package", order.DefaultPackage, "laundry package")
	cmd.Flags().StringVar(&pickupType, "pickup-type", string(order.PickupEconomy), "pickup type (Economy|Express)")
	cmd.Flags().StringVar(&serviceType, "service-type", string(order.ServiceNormal), "service type (Normal|Express)")
	cmd.Flags().StringVar(&pickupDate, "date", "", "pickup date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&addrSource, "source", string(order.SourceProfile), "address source (profile|device|manual)")
	cmd.Flags().StringVar(&promoCode, "promo", "", "promo code")
	cmd.Flags().BoolVar(&acceptTerms, "accept-terms", false, "accept the terms and conditions")
	cmd.Flags().StringVar(&manualStreet, "street", "", "manual address: street")
	cmd.Flags().StringVar(&manualCity, "city", "", "manual address: city")
	cmd.Flags().StringVar(&manualRegion, "region", "", "manual address: region")
	cmd.Flags().StringVar(&manualPostal, "postal-code", "", "manual address: postal code")
	cmd.Flags().StringVar(&manualCountry, "country", "", "manual address: country")
	cmd.Flags().Float64Var(&deviceLat, "lat", 0, "device latitude (source=device)")
	cmd.Flags().Float64Var(&deviceLon, "lon", 0, "device longitude (source=device)")
	return cmd
}

func orderListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}

			store := order.NewSupabaseStore(sb.WithSession(sess.AccessToken))
			orders, err := store.ListByUser(cmd.Context(), sess.UserID)
			if err != nil {
				return err
			}

			if len(orders) == 0 {
				fmt.Println("no orders yet")
				return nil
			}
			for _, o := range orders {
				printOrder(o)
			}
			return nil
		},
	}
}

func printOrder(o order.Order) {
	fmt.Printf("%s  %-22s %-12s %s\n", o.CreatedAt, o.Service, o.Status, o.PickupAddress)
}

// fixedLocator reports the coordinates given on the command line. A CLI has
// no GPS; the caller supplies the position.
type fixedLocator struct {
	lat, lon float64
}

func (l fixedLocator) Current(ctx context.Context) (geo.Position, error) {
	if l.lat == 0 && l.lon == 0 {
		return geo.Position{}, &geo.LocationError{Message: "no device position. pass --lat and --lon"}
	}
	return geo.Position{Latitude: l.lat, Longitude: l.lon}, nil
}
