// Package flows implements the multi-turn conversations driven by session
// state: shop-owner registration and new-shop setup.
package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/update"
)

// confirmed interprets a typed confirmation answer. Inline keyboards are
// deliberately not used inside flows; every step is a plain text exchange.
func confirmed(text string) (yes, recognized bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "да":
		return true, true
	case "no", "n", "нет":
		return false, true
	default:
		return false, false
	}
}

// RegistrationFlow walks a new florist through name, phone, email, and city
// before creating their account.
type RegistrationFlow struct {
	florists repository.FloristRepository
	catalog  *i18n.Catalog
	validate *validator.Validate
	log      *slog.Logger
}

// NewRegistrationFlow creates the registration flow handler.
func NewRegistrationFlow(florists repository.FloristRepository, catalog *i18n.Catalog, log *slog.Logger) *RegistrationFlow {
	if log == nil {
		log = slog.Default()
	}
	return &RegistrationFlow{
		florists: florists,
		catalog:  catalog,
		validate: validator.New(),
		log:      log,
	}
}

// States lists the session states this flow owns.
func (f *RegistrationFlow) States() []session.State {
	return []session.State{
		session.StateRegistrationName,
		session.StateRegistrationPhone,
		session.StateRegistrationEmail,
		session.StateRegistrationCity,
		session.StateRegistrationConfirm,
	}
}

// Handle advances the flow by one answer.
func (f *RegistrationFlow) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := f.catalog.Translator(sess.Language)

	data := sess.FlowData.Registration
	if data == nil {
		// State says registration but the payload is gone; restart cleanly.
		data = sess.FlowData.StartRegistration()
		sess.State = session.StateRegistrationName
		return response.Text(msg.ChatID, t.T("admin.register.ask_name")), nil
	}

	text := strings.TrimSpace(msg.RawText)

	switch sess.State {
	case session.StateRegistrationName:
		if msg.Kind != update.KindText || len([]rune(text)) < 2 {
			return response.Text(msg.ChatID, t.T("admin.register.invalid_name")), nil
		}
		data.OwnerName = text
		sess.State = session.StateRegistrationPhone
		return response.Text(msg.ChatID, t.Tf("admin.register.ask_phone", data.OwnerName)), nil

	case session.StateRegistrationPhone:
		// A shared contact card carries the number in metadata.
		phone := text
		if msg.Kind == update.KindContact {
			phone = msg.Metadata["phone_number"]
		}
		phone = normalizePhone(phone)
		if f.validate.Var(phone, "e164") != nil {
			return response.Text(msg.ChatID, t.T("admin.register.invalid_phone")), nil
		}
		data.Phone = phone
		sess.State = session.StateRegistrationEmail
		return response.Text(msg.ChatID, t.T("admin.register.ask_email")), nil

	case session.StateRegistrationEmail:
		if msg.Kind != update.KindText || f.validate.Var(text, "email") != nil {
			return response.Text(msg.ChatID, t.T("admin.register.invalid_email")), nil
		}
		data.Email = text
		sess.State = session.StateRegistrationCity
		return response.Text(msg.ChatID, t.T("admin.register.ask_city")), nil

	case session.StateRegistrationCity:
		if msg.Kind != update.KindText || text == "" {
			return response.Text(msg.ChatID, t.T("admin.register.invalid_city")), nil
		}
		data.City = text
		sess.State = session.StateRegistrationConfirm
		summary := t.Tf("admin.register.confirm", data.OwnerName, data.Phone, data.Email, data.City)
		return response.Text(msg.ChatID, summary+"\n\n"+t.T("common.yes")+" / "+t.T("common.no")), nil

	case session.StateRegistrationConfirm:
		yes, recognized := confirmed(text)
		if !recognized {
			summary := t.Tf("admin.register.confirm", data.OwnerName, data.Phone, data.Email, data.City)
			return response.Text(msg.ChatID, summary+"\n\n"+t.T("common.yes")+" / "+t.T("common.no")), nil
		}

		if !yes {
			sess.FlowData.Reset()
			sess.State = session.StateNew
			return response.Text(msg.ChatID, t.T("common.cancel")), nil
		}

		florist := &domain.Florist{
			TelegramID: msg.UserID,
			Name:       data.OwnerName,
			Phone:      data.Phone,
			Email:      data.Email,
			City:       data.City,
			CreatedAt:  time.Now().UTC(),
		}
		if err := f.florists.Create(ctx, florist); err != nil {
			return nil, fmt.Errorf("create florist: %w", err)
		}

		f.log.Info("florist registered",
			slog.Int64("florist_id", florist.ID),
			slog.Int64("user_id", msg.UserID),
		)

		sess.FlowData.Reset()
		sess.State = session.StateMainMenu
		sess.SetAttribute("florist_id", fmt.Sprintf("%d", florist.ID))

		return response.Text(msg.ChatID, t.T("admin.register.done")), nil
	}

	return nil, fmt.Errorf("registration flow got unexpected state %q", sess.State)
}

// normalizePhone strips the decoration people type into phone numbers.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
