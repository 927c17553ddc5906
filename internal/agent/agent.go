// Package agent defines the downstream advisor capability that chat
// requests are spent on. The gateway treats it as an external
// collaborator behind one interface — the quota machinery neither knows
// nor cares what runs on the other side.
package agent

import "context"

// Agent produces an advisory response for a user message.
type Agent interface {
	Run(ctx context.Context, message string) (string, error)
}

// cannedResponse mirrors what the service returns while the full agent
// pipeline streams its analysis out-of-band.
const cannedResponse = "Stock recommendation analysis completed. Check the logs for detailed output."

// Canned is the local fallback agent used when no upstream is configured.
// It acknowledges the query with a fixed response; the charge against the
// daily quota is real either way.
type Canned struct{}

func (Canned) Run(_ context.Context, _ string) (string, error) {
	return cannedResponse, nil
}
