package websocket

import (
	"context"

	"bikedash/internal/services"
)

const dateLayout = "2006-01-02"

// ReloadNotifier broadcasts dataset reload outcomes to every client
type ReloadNotifier struct {
	hub *Hub
}

// NewReloadNotifier creates a notifier broadcasting through hub
func NewReloadNotifier(hub *Hub) *ReloadNotifier {
	return &ReloadNotifier{hub: hub}
}

// DatasetReloaded sends a dataset_reloaded message
func (n *ReloadNotifier) DatasetReloaded(ctx context.Context, meta services.DatasetMeta) {
	n.hub.Broadcast(ctx, TypeDatasetReloaded, map[string]interface{}{
		"rows":                meta.Rows,
		"min_date":            meta.MinDate.Format(dateLayout),
		"max_date":            meta.MaxDate.Format(dateLayout),
		"unknown_season_rows": meta.UnknownSeasonRows,
		"season_options":      meta.SeasonOptions,
	})
}

// DatasetReloadFailed sends a dataset_error message. Clients keep the data
// they have since the server keeps serving the previous dataset.
func (n *ReloadNotifier) DatasetReloadFailed(ctx context.Context, err error) {
	n.hub.Broadcast(ctx, TypeDatasetError, map[string]interface{}{
		"error": err.Error(),
	})
}
