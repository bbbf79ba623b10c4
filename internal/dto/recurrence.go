package dto

import "time"

// GroupExtensionResult reports the outcome of extending a single recurring
// group. CursorAdvanced is false when the group failed and will be retried on
// the next run with the same window.
type GroupExtensionResult struct {
	GroupID           string    `json:"groupId"`
	InstancesCreated  int       `json:"instancesCreated"`
	CursorAdvanced    bool      `json:"cursorAdvanced"`
	GeneratedUntil    time.Time `json:"generatedUntil"`
	NextExtensionDate time.Time `json:"nextExtensionDate"`
}

// ExtensionRunSummary aggregates one batch pass over all due groups.
type ExtensionRunSummary struct {
	GroupsProcessed         int                    `json:"groupsProcessed"`
	GroupsFailed            int                    `json:"groupsFailed"`
	TotalInstancesGenerated int                    `json:"totalInstancesGenerated"`
	Groups                  []GroupExtensionResult `json:"groups,omitempty"`
	StartedAt               time.Time              `json:"startedAt"`
	FinishedAt              time.Time              `json:"finishedAt"`
}
