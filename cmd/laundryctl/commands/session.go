package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klynnlabs/laundry-core/internal/order"
)

// storedSession is the signed-in session persisted between invocations.
type storedSession struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func sessionPath() string {
	return filepath.Join(home, "session.json")
}

func saveSession(s storedSession) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sessionPath(), data, 0o600)
}

func loadSession() (*storedSession, error) {
	data, err := os.ReadFile(sessionPath())
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("not signed in. run: laundryctl signin")
	}
	if err != nil {
		return nil, err
	}

	var s storedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", sessionPath(), err)
	}
	if s.AccessToken == "" || s.UserID == "" {
		return nil, fmt.Errorf("not signed in. run: laundryctl signin")
	}
	return &s, nil
}

func clearSession() error {
	err := os.Remove(sessionPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// orderSession converts the stored session into the form the intake and
// tracker expect.
func orderSession(s *storedSession) *order.Session {
	return &order.Session{UserID: s.UserID, AccessToken: s.AccessToken}
}
