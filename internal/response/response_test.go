package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	resp := Text(7700, "hello")

	assert.Equal(t, ActionSend, resp.Primary.Kind)
	assert.Equal(t, int64(7700), resp.Primary.ChatID)
	assert.Equal(t, "hello", resp.Primary.Text)
	assert.Empty(t, resp.Auxiliary)
}

func TestEditText(t *testing.T) {
	resp := EditText(7700, 88, "updated")

	assert.Equal(t, ActionEdit, resp.Primary.Kind)
	assert.Equal(t, 88, resp.Primary.MessageID)
	assert.Empty(t, resp.Auxiliary)
}

func TestAddActionPreservesOrder(t *testing.T) {
	resp := Text(7700, "order placed").
		AddAction(AnswerCallback("cb-1", "")).
		AddAction(Action{Kind: ActionDelete, ChatID: 7700, MessageID: 12})

	assert.Len(t, resp.Auxiliary, 2)
	assert.Equal(t, ActionAnswerCallback, resp.Auxiliary[0].Kind)
	assert.Equal(t, ActionDelete, resp.Auxiliary[1].Kind)
}
