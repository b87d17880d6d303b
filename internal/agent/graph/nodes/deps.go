package nodes

import (
	"time"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/companion/internal/agent/flow"
	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

// Deps is what the orchestrator nodes read and write through.
type Deps struct {
	Flows    model.FlowRepository
	Records  model.RecordRepository
	Moods    model.MoodRepository
	Oracles  model.Oracles
	Loader   *flow.Loader
	Messages *conversations.MessagesManager

	// StrictConfirmation re-asks on an ambiguous confirmation reply instead
	// of treating it as a yes.
	StrictConfirmation bool

	Now   func() time.Time
	NewID func() string
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}
