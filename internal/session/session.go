// Package session holds per (tenant, user) conversation state and the store
// contract that persists it between turns.
package session

import (
	"time"

	"github.com/floramarket/florabot/internal/tenant"
)

// RegistrationData accumulates shop-owner registration answers turn by turn.
type RegistrationData struct {
	OwnerName string `json:"owner_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	City      string `json:"city,omitempty"`
}

// ShopSetupData accumulates answers collected while creating a new shop.
type ShopSetupData struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	City        string `json:"city,omitempty"`
	Address     string `json:"address,omitempty"`
	Hours       string `json:"hours,omitempty"`
}

// FlowData carries the payload of whichever flow currently owns the session
// state. At most one field is non-nil at a time; starting a flow resets the
// others.
type FlowData struct {
	Registration *RegistrationData `json:"registration,omitempty"`
	ShopSetup    *ShopSetupData    `json:"shop_setup,omitempty"`
}

// Reset clears all flow payloads.
func (f *FlowData) Reset() {
	f.Registration = nil
	f.ShopSetup = nil
}

// StartRegistration resets the union and returns a fresh registration payload.
func (f *FlowData) StartRegistration() *RegistrationData {
	f.Reset()
	f.Registration = &RegistrationData{}
	return f.Registration
}

// StartShopSetup resets the union and returns a fresh shop-setup payload.
func (f *FlowData) StartShopSetup() *ShopSetupData {
	f.Reset()
	f.ShopSetup = &ShopSetupData{}
	return f.ShopSetup
}

// Session captures the conversation state for one user on one tenant's bot.
type Session struct {
	TenantID       tenant.ID         `json:"tenant_id"`
	UserID         int64             `json:"user_id"`
	State          State             `json:"state"`
	Language       string            `json:"language,omitempty"`
	FlowData       FlowData          `json:"flow_data"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

// SetAttribute stores a scratch value that lives as long as the session.
func (s *Session) SetAttribute(key, value string) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]string)
	}
	s.Attributes[key] = value
}

// Attribute returns a scratch value previously stored on the session.
func (s *Session) Attribute(key string) (string, bool) {
	value, ok := s.Attributes[key]
	return value, ok
}

// Clone returns a deep copy so a handler can mutate freely while the caller
// keeps the pre-turn snapshot for its save-on-success policy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	copied := *s

	if s.Attributes != nil {
		copied.Attributes = make(map[string]string, len(s.Attributes))
		for k, v := range s.Attributes {
			copied.Attributes[k] = v
		}
	}

	if s.FlowData.Registration != nil {
		reg := *s.FlowData.Registration
		copied.FlowData.Registration = &reg
	}
	if s.FlowData.ShopSetup != nil {
		setup := *s.FlowData.ShopSetup
		copied.FlowData.ShopSetup = &setup
	}

	return &copied
}
