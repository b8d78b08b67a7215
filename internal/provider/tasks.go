package provider

import (
	"context"

	"github.com/rolohq/rolo/internal/model"
)

// TaskLists fetches the user's task lists. Tasks themselves require a
// second-level fetch per list via Tasks.
func (c *Client) TaskLists(ctx context.Context) ([]model.TaskList, error) {
	resp, err := c.tasks.Tasklists.List().MaxResults(defaultPageSize).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("task lists", err)
	}

	lists := make([]model.TaskList, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item != nil {
			lists = append(lists, NormalizeTaskList(item))
		}
	}
	return lists, nil
}

// Tasks fetches and normalizes the tasks of one list.
func (c *Client) Tasks(ctx context.Context, listID string) ([]model.Task, error) {
	resp, err := c.tasks.Tasks.List(listID).
		ShowCompleted(true).
		MaxResults(defaultPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapErr("tasks", err)
	}

	out := make([]model.Task, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item != nil {
			out = append(out, NormalizeTask(listID, item))
		}
	}
	return out, nil
}
