package keyboard_test

import (
	"testing"

	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/keyboard"
)

func testTranslator(t *testing.T, lang string) i18n.Translator {
	t.Helper()

	catalog, err := i18n.Load("en")
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}
	return catalog.Translator(lang)
}

func TestShopMainMenuLocalized(t *testing.T) {
	markup := keyboard.ShopMainMenu(testTranslator(t, "ru"))

	if len(markup.ReplyKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(markup.ReplyKeyboard))
	}
	if got := markup.ReplyKeyboard[0][0].Text; got != "💐 Каталог" {
		t.Errorf("catalog button = %q", got)
	}
	if !markup.ResizeKeyboard {
		t.Error("expected resizable keyboard")
	}
}

func TestCatalogPage(t *testing.T) {
	markup, err := keyboard.CatalogPage(testTranslator(t, "en"), []int64{10, 11}, 2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One add-to-cart row per product plus the pagination row.
	if len(markup.InlineKeyboard) != 3 {
		t.Fatalf("rows = %d, want 3", len(markup.InlineKeyboard))
	}
	if got := markup.InlineKeyboard[0][0].Data; got != "cart:add:10" {
		t.Errorf("first add button data = %q", got)
	}
	if got := markup.InlineKeyboard[2][0].Data; got != "catalog:1" {
		t.Errorf("pagination prev data = %q", got)
	}
}

func TestOrderActions(t *testing.T) {
	markup, err := keyboard.OrderActions(testTranslator(t, "en"), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := markup.InlineKeyboard[0]
	if row[0].Data != "order:accept:42" || row[1].Data != "order:cancel:42" {
		t.Errorf("order actions = (%q, %q)", row[0].Data, row[1].Data)
	}
}

func TestConfirmRow(t *testing.T) {
	markup, err := keyboard.ConfirmRow(testTranslator(t, "en"), "register")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	row := markup.InlineKeyboard[0]
	if row[0].Data != "register:yes" || row[1].Data != "register:no" {
		t.Errorf("confirm row = (%q, %q)", row[0].Data, row[1].Data)
	}
}
