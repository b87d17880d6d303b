package model

import (
	"context"
	"errors"
)

// ErrPendingFlowExists is returned when a user already has a non-terminal flow.
var ErrPendingFlowExists = errors.New("user already has a pending flow")

// ErrFlowNotFound is returned when a flow id is unknown.
var ErrFlowNotFound = errors.New("flow not found")

// FlowRepository persists flow instances. Implementations enforce at most one
// non-terminal flow per user.
type FlowRepository interface {
	// CreateFlow stores a new instance; fails with ErrPendingFlowExists when
	// the user already has a non-terminal flow.
	CreateFlow(ctx context.Context, flow *FlowInstance) error

	// UpdateFlow overwrites an existing instance.
	UpdateFlow(ctx context.Context, flow *FlowInstance) error

	// GetFlow loads one instance by id.
	GetFlow(ctx context.Context, flowID string) (*FlowInstance, error)

	// GetPendingFlows returns the user's non-terminal flows, most recently
	// updated first.
	GetPendingFlows(ctx context.Context, userID string) ([]*FlowInstance, error)

	// ClearPendingFlows cancels every non-terminal flow of the user.
	ClearPendingFlows(ctx context.Context, userID string) error
}

// RecordRepository stores committed habit, goal and reminder records.
type RecordRepository interface {
	CreateRecord(ctx context.Context, rec *Record) (string, error)
	ListRecords(ctx context.Context, userID string, kind FlowType) ([]Record, error)
}

// MoodRepository stores mood observations.
type MoodRepository interface {
	LogMood(ctx context.Context, userID string, score int, note string) error
	RecentMoods(ctx context.Context, userID string, limit int) ([]MoodEntry, error)
}
