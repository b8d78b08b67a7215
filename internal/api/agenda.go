package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/rolohq/rolo/internal/classify"
	"github.com/rolohq/rolo/internal/model"
)

// AgendaItem is a synced record with its display classification attached.
type AgendaItem struct {
	Kind           string               `json:"kind"`
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	Classification model.Classification `json:"classification"`
}

// handleAgenda returns all events and open tasks as one list, classified
// and ordered by their comparable instant. Completed tasks are excluded.
func handleAgenda(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := deps.Store.Events()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load events: %v", err)
			return
		}
		tasks, err := deps.Store.Tasks()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load tasks: %v", err)
			return
		}

		items := make([]AgendaItem, 0, len(events)+len(tasks))
		for _, ev := range events {
			items = append(items, AgendaItem{
				Kind:           model.KindEvent,
				ID:             ev.ID,
				Title:          ev.Title,
				Classification: classify.Event(ev),
			})
		}
		for _, t := range tasks {
			if t.Completed {
				continue
			}
			items = append(items, AgendaItem{
				Kind:           model.KindTask,
				ID:             t.ID,
				Title:          t.Title,
				Classification: classify.Task(t, time.Now),
			})
		}

		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Classification.StartsAt.Before(items[j].Classification.StartsAt)
		})

		writeJSON(w, http.StatusOK, items)
	}
}
