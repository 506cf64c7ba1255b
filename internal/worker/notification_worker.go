// Package worker attaches post-commit listeners to the event dispatcher.
package worker

import (
	"github.com/spec-kit/helpdesk/internal/events"
)

// Subscriber registers its handlers on a dispatcher.
type Subscriber interface {
	RegisterHandlers(dispatcher events.Dispatcher)
}

// StartSubscribers registers every non-nil subscriber. Handlers run synchronously
// after the publishing transaction commits.
func StartSubscribers(dispatcher events.Dispatcher, subscribers ...Subscriber) {
	if dispatcher == nil {
		return
	}
	for _, s := range subscribers {
		if s == nil {
			continue
		}
		s.RegisterHandlers(dispatcher)
	}
}
