package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/floramarket/florabot/internal/i18n"
)

// PaginationRow returns up to three buttons (prev, current page, next) that
// page through a list sharing one action prefix.
func PaginationRow(t i18n.Translator, action string, page, totalPages int) []Button {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	buttons := make([]Button, 0, 3)

	if page > 1 {
		buttons = append(buttons, Btn(translated(t, "pagination.prev", "◀️ Prev"), action, strconv.Itoa(page-1)))
	}

	buttons = append(buttons, Btn(pageLabel(t, page, totalPages), action, strconv.Itoa(page)))

	if page < totalPages {
		buttons = append(buttons, Btn(translated(t, "pagination.next", "Next ▶️"), action, strconv.Itoa(page+1)))
	}

	return buttons
}

func translated(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}

	text := strings.TrimSpace(t.T(key))
	if text == "" || text == key {
		return fallback
	}

	return text
}

func pageLabel(t i18n.Translator, page, total int) string {
	label := translated(t, "pagination.page", "")
	if label == "" {
		return fmt.Sprintf("%d/%d", page, total)
	}

	label = strings.ReplaceAll(label, "{page}", strconv.Itoa(page))
	label = strings.ReplaceAll(label, "{total}", strconv.Itoa(total))
	return label
}
