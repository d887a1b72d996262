package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/floramarket/florabot/internal/jobs"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/update"
)

// broadcastCommand queues a message to every customer of the florist's
// active shops. Delivery happens in the background worker so a large
// customer base never blocks the admin bot.
type broadcastCommand struct{ *Handlers }

func (c *broadcastCommand) Command() string    { return "broadcast" }
func (c *broadcastCommand) RequiresAuth() bool { return true }

func (c *broadcastCommand) Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	t := c.translator(sess)

	text := strings.TrimSpace(strings.Join(msg.CommandArgs, " "))
	if text == "" {
		return response.Text(msg.ChatID, t.T("admin.broadcast.usage")), nil
	}

	florist, err := c.florists.FindByTelegramID(ctx, msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("broadcast florist lookup: %w", err)
	}

	shops, err := c.shops.ListByOwner(ctx, florist.ID)
	if err != nil {
		return nil, fmt.Errorf("broadcast shops: %w", err)
	}

	queued := 0
	for _, shop := range shops {
		if !shop.Active || shop.TenantID == "" {
			continue
		}

		task, err := jobs.NewBroadcastTask(shop.TenantID, text)
		if err != nil {
			return nil, fmt.Errorf("broadcast task: %w", err)
		}
		if _, err := c.queue.Enqueue(ctx, task); err != nil {
			return nil, fmt.Errorf("broadcast enqueue: %w", err)
		}
		queued++
	}

	if queued == 0 {
		return response.Text(msg.ChatID, t.T("admin.broadcast.none")), nil
	}

	return response.Text(msg.ChatID, t.Tf("admin.broadcast.queued", queued)), nil
}
