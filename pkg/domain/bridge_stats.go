package domain

// BridgeStats is a point-in-time view of the notification bridge state.
type BridgeStats struct {
	PendingSubscriptions int              `json:"pendingSubscriptions"`
	ProcessedCallbacks   int              `json:"processedCallbacks"`
	ProcessedByKind      map[TaskKind]int `json:"processedByKind,omitempty"`
}
