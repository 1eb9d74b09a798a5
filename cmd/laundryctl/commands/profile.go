package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klynnlabs/laundry-core/internal/profile"
)

var (
	firstName    string
	lastName     string
	phoneCountry string
	phoneNumber  string
	street       string
	city         string
	state        string
	postalCode   string
	country      string
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your delivery profile",
	}
	cmd.AddCommand(profileShowCmd(), profileSaveCmd())
	return cmd
}

func profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}

			svc := profile.NewService(sb.WithSession(sess.AccessToken), log)
			p, err := svc.Load(cmd.Context(), sess.UserID)
			if err != nil {
				return err
			}

			fmt.Printf("name:     %s\n", p.DisplayName())
			fmt.Printf("phone:    %s %s\n", p.PhoneCountry, p.PhoneNumber)
			fmt.Printf("street:   %s\n", p.Street)
			fmt.Printf("city:     %s\n", p.City)
			fmt.Printf("state:    %s\n", p.State)
			fmt.Printf("postal:   %s\n", p.PostalCode)
			fmt.Printf("country:  %s\n", p.Country)
			return nil
		},
	}
}

func profileSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Update the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err != nil {
				return err
			}

			svc := profile.NewService(sb.WithSession(sess.AccessToken), log)

			// Start from the stored record so unset flags keep their
			// current values.
			p, err := svc.Load(cmd.Context(), sess.UserID)
			if err != nil {
				return err
			}

			setIfChanged(cmd, "first-name", &p.FirstName, firstName)
			setIfChanged(cmd, "last-name", &p.LastName, lastName)
			setIfChanged(cmd, "phone-country", &p.PhoneCountry, phoneCountry)
			setIfChanged(cmd, "phone", &p.PhoneNumber, phoneNumber)
			setIfChanged(cmd, "street", &p.Street, street)
			setIfChanged(cmd, "city", &p.City, city)
			setIfChanged(cmd, "state", &p.State, state)
			setIfChanged(cmd, "postal-code", &p.PostalCode, postalCode)
			setIfChanged(cmd, "country", &p.Country, country)

			if err := svc.Save(cmd.Context(), sess.UserID, p); err != nil {
				return err
			}
			fmt.Println("profile saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&phoneCountry, "phone-country", "", "phone dial code, e.g. +60")
	cmd.Flags().StringVar(&phoneNumber, "phone", "", "phone number")
	cmd.Flags().StringVar(&street, "street", "", "street address")
	cmd.Flags().StringVar(&city, "city", "", "city")
	cmd.Flags().StringVar(&state, "state", "", "state or region")
	cmd.Flags().StringVar(&postalCode, "postal-code", "", "postal code")
	cmd.Flags().StringVar(&country, "country", "", "country")
	return cmd
}

func setIfChanged(cmd *cobra.Command, flag string, dst *string, value string) {
	if cmd.Flags().Changed(flag) {
		*dst = value
	}
}
