package provider

import (
	"context"
	"time"

	"github.com/rolohq/rolo/internal/model"
)

// Events fetches calendar events inside the sync window and normalizes
// them. Cancelled items are dropped. A non-success status fails the whole
// call; the caller's sync timestamp must not advance.
func (c *Client) Events(ctx context.Context) ([]model.CalendarEvent, error) {
	now := c.now().UTC()
	tmin := now.Add(-c.pastWindow).Format(time.RFC3339)
	tmax := now.Add(c.future).Format(time.RFC3339)

	resp, err := c.calendar.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr("events", err)
	}

	events := make([]model.CalendarEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		if ev, ok := NormalizeEvent(item); ok {
			events = append(events, ev)
		}
	}

	c.logger.Debug("fetched calendar events", "count", len(events), "calendar_id", c.calendarID)
	return events, nil
}
