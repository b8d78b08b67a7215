package provider

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rolohq/rolo/internal/model"
)

const detailFetchConcurrency = 4

// Messages fetches recent mail messages. The list call yields ids only;
// each message detail is fetched separately. A single failed detail fetch
// is logged and skipped so the rest of the batch survives; the call only
// fails outright when the list itself fails or every detail fetch failed.
func (c *Client) Messages(ctx context.Context) ([]model.Email, error) {
	listResp, err := c.gmail.Users.Messages.List("me").
		MaxResults(c.maxMessages).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr("messages", err)
	}
	if len(listResp.Messages) == 0 {
		return []model.Email{}, nil
	}

	// Indexed slots keep the provider's list order despite concurrent
	// detail fetches.
	slots := make([]*model.Email, len(listResp.Messages))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchConcurrency)
	for i, ref := range listResp.Messages {
		if ref == nil {
			continue
		}
		g.Go(func() error {
			msg, err := c.gmail.Users.Messages.Get("me", ref.Id).
				Format("full").
				Context(gCtx).
				Do()
			if err != nil {
				c.logger.Warn("skipping message, detail fetch failed", "message_id", ref.Id, "error", err)
				return nil
			}
			email := NormalizeEmail(msg, c.now)
			mu.Lock()
			slots[i] = &email
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrapErr("messages", err)
	}

	emails := make([]model.Email, 0, len(slots))
	for _, e := range slots {
		if e != nil {
			emails = append(emails, *e)
		}
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("all %d message detail fetches failed", len(listResp.Messages))
	}

	c.logger.Debug("fetched messages", "count", len(emails), "listed", len(listResp.Messages))
	return emails, nil
}
