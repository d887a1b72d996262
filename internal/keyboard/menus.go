package keyboard

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/floramarket/florabot/internal/i18n"
)

// Callback action prefixes shared with the callback handlers.
const (
	ActionOrder   = "order"
	ActionCart    = "cart"
	ActionCatalog = "catalog"
)

// ShopMainMenu builds the persistent reply keyboard shown to shop customers.
func ShopMainMenu(t i18n.Translator) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	catalogBtn := markup.Text(translated(t, "menu.catalog", "💐 Catalog"))
	cartBtn := markup.Text(translated(t, "menu.cart", "🛒 Cart"))
	ordersBtn := markup.Text(translated(t, "menu.orders", "📦 Orders"))

	markup.Reply(
		markup.Row(catalogBtn),
		markup.Row(cartBtn, ordersBtn),
	)

	return markup
}

// CatalogPage builds buttons that add a product to the cart plus a
// pagination row for longer catalogs.
func CatalogPage(t i18n.Translator, productIDs []int64, page, totalPages int) (*telebot.ReplyMarkup, error) {
	b := NewInline()
	for _, id := range productIDs {
		b.Row(Btn(translated(t, "menu.add_to_cart", "Add to cart"), ActionCart, "add", strconv.FormatInt(id, 10)))
	}
	if totalPages > 1 {
		b.Row(PaginationRow(t, ActionCatalog, page, totalPages)...)
	}
	return b.Build()
}

// CartActions builds the checkout and clear buttons under a cart listing.
func CartActions(t i18n.Translator) (*telebot.ReplyMarkup, error) {
	return NewInline().
		Row(
			Btn(translated(t, "menu.checkout", "Checkout"), ActionCart, "checkout"),
			Btn(translated(t, "menu.clear_cart", "Clear"), ActionCart, "clear"),
		).
		Build()
}

// OrderActions builds the accept and cancel buttons under an order card.
func OrderActions(t i18n.Translator, orderID int64) (*telebot.ReplyMarkup, error) {
	id := strconv.FormatInt(orderID, 10)
	return NewInline().
		Row(
			Btn(translated(t, "menu.accept_order", "Accept ✅"), ActionOrder, "accept", id),
			Btn(translated(t, "menu.cancel_order", "Cancel ❌"), ActionOrder, "cancel", id),
		).
		Build()
}

// ConfirmRow builds a yes/no confirmation keyboard for flow final steps.
func ConfirmRow(t i18n.Translator, action string) (*telebot.ReplyMarkup, error) {
	return NewInline().
		Row(
			Btn(translated(t, "common.yes", "Yes"), action, "yes"),
			Btn(translated(t, "common.no", "No"), action, "no"),
		).
		Build()
}
