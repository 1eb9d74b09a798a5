// Package profile loads and saves the user's delivery profile.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/klynnlabs/laundry-core/pkg/logger"
	"github.com/klynnlabs/laundry-core/supabase/client"
)

// Profile is the user's stored delivery profile. Every field is optional;
// the record has no fixed server-side schema, so validation happens here at
// the store boundary.
type Profile struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneCountry string `json:"phone_country"` // canonical form: bare dial code, e.g. "+60"
	PhoneNumber  string `json:"phone_number"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// DisplayName joins first and last name with a single space. An empty part
// leaves no dangling separator.
func (p *Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// NormalizePhoneCountry converts a legacy "Country|DialCode" composite to
// the canonical bare dial code. Values already in canonical form pass
// through unchanged.
func NormalizePhoneCountry(raw string) string {
	if i := strings.LastIndex(raw, "|"); i >= 0 {
		return strings.TrimSpace(raw[i+1:])
	}
	return strings.TrimSpace(raw)
}

// Service reads and writes profile records.
type Service struct {
	store *client.Client
	log   *logger.Logger
}

// NewService creates a profile service bound to a session-scoped store client.
func NewService(store *client.Client, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("profile")
	}
	return &Service{store: store, log: log}
}

// profileRecord mirrors the stored row, including the legacy zip column
// kept alongside postal_code.
type profileRecord struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneCountry string `json:"phone_country"`
	PhoneNumber  string `json:"phone_number"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Zip          string `json:"zip"`
	Country      string `json:"country"`
}

// Load fetches the profile for a user. Legacy phone-country composites are
// normalized on the way in; a record with only the legacy zip column gets
// its postal code from there.
func (s *Service) Load(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	resp, err := s.store.From("profiles").Select("*").Eq("id", userID).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rec profileRecord
	if err := resp.JSON(&rec); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	postal := rec.PostalCode
	if postal == "" {
		postal = rec.Zip
	}

	return &Profile{
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		PhoneCountry: NormalizePhoneCountry(rec.PhoneCountry),
		PhoneNumber:  rec.PhoneNumber,
		Street:       rec.Street,
		City:         rec.City,
		State:        rec.State,
		PostalCode:   postal,
		Country:      rec.Country,
	}, nil
}

// Save updates the profile row for a user. Empty fields are written as null
// and the postal code is mirrored into the legacy zip column so older
// readers keep working.
func (s *Service) Save(ctx context.Context, userID string, p *Profile) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if p == nil {
		return fmt.Errorf("profile is required")
	}

	payload := map[string]any{
		"first_name":    nullable(p.FirstName),
		"last_name":     nullable(p.LastName),
		"phone_country": nullable(NormalizePhoneCountry(p.PhoneCountry)),
		"phone_number":  nullable(p.PhoneNumber),
		"street":        nullable(p.Street),
		"city":          nullable(p.City),
		"state":         nullable(p.State),
		"postal_code":   nullable(p.PostalCode),
		"zip":           nullable(p.PostalCode),
		"country":       nullable(p.Country),
	}

	resp, err := s.store.From("profiles").Eq("id", userID).ExecuteUpdate(ctx, payload)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if err := resp.Error(); err != nil {
		return err
	}

	s.log.WithField("user_id", userID).Info("profile saved")
	return nil
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
