package worker

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Event types pushed over a team's event stream.
const (
	EventTaskCreated       = "task_created"
	EventTaskUpdated       = "task_updated"
	EventTaskWeightChanged = "task_weight_changed"
	EventTaskDeleted       = "task_deleted"
	EventMembershipChanged = "membership_changed"
	EventMessagePosted     = "message_posted"
)

// Event is one change notification for a team. Payload carries the
// affected record (or its id) and is marshaled as-is to subscribers.
type Event struct {
	Type    string      `json:"type"`
	TeamID  string      `json:"team_id"`
	ActorID string      `json:"actor_id"`
	Payload interface{} `json:"payload,omitempty"`
}

type subscriber struct {
	teamID string
	ch     chan Event
}

type subscribeReq struct {
	sub  *subscriber
	done chan struct{}
}

// TeamHub fans events out to websocket subscribers per team. One goroutine
// owns all subscription state; Publish never blocks on a slow subscriber —
// a missed event is recovered on the next read of the persisted log.
type TeamHub struct {
	logger *logrus.Logger

	register   chan subscribeReq
	unregister chan *subscriber
	events     chan Event
	stopped    chan struct{}
}

// Per-subscriber buffer. Events beyond it are dropped for that subscriber.
const subscriberBuffer = 16

func NewTeamHub(logger *logrus.Logger) *TeamHub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TeamHub{
		logger:     logger,
		register:   make(chan subscribeReq),
		unregister: make(chan *subscriber),
		events:     make(chan Event, 64),
		stopped:    make(chan struct{}),
	}
}

// Start runs the hub loop until ctx is cancelled.
func (h *TeamHub) Start(ctx context.Context) {
	h.logger.Info("Starting team event hub...")
	defer close(h.stopped)

	teams := make(map[string]map[*subscriber]struct{})

	for {
		select {
		case req := <-h.register:
			subs := teams[req.sub.teamID]
			if subs == nil {
				subs = make(map[*subscriber]struct{})
				teams[req.sub.teamID] = subs
			}
			subs[req.sub] = struct{}{}
			close(req.done)

		case sub := <-h.unregister:
			if subs, ok := teams[sub.teamID]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.ch)
					if len(subs) == 0 {
						delete(teams, sub.teamID)
					}
				}
			}

		case ev := <-h.events:
			for sub := range teams[ev.TeamID] {
				select {
				case sub.ch <- ev:
				default:
					h.logger.WithFields(logrus.Fields{
						"team_id": ev.TeamID,
						"type":    ev.Type,
					}).Warn("subscriber too slow, dropping event")
				}
			}

		case <-ctx.Done():
			h.logger.Info("Stopping team event hub...")
			for _, subs := range teams {
				for sub := range subs {
					close(sub.ch)
				}
			}
			return
		}
	}
}

// Subscribe registers for a team's events. The returned cancel function
// must be called when the consumer is done; the event channel is closed by
// the hub afterwards (or on shutdown). After shutdown Subscribe returns a
// closed channel.
func (h *TeamHub) Subscribe(teamID string) (<-chan Event, func()) {
	sub := &subscriber{
		teamID: teamID,
		ch:     make(chan Event, subscriberBuffer),
	}
	done := make(chan struct{})

	select {
	case h.register <- subscribeReq{sub: sub, done: done}:
		<-done
	case <-h.stopped:
		close(sub.ch)
		return sub.ch, func() {}
	}

	cancel := func() {
		select {
		case h.unregister <- sub:
		case <-h.stopped:
		}
	}
	return sub.ch, cancel
}

// Publish queues an event for delivery. Fire-and-forget: when the hub's
// queue is full or the hub has stopped, the event is dropped rather than
// stalling the request.
func (h *TeamHub) Publish(ev Event) {
	select {
	case <-h.stopped:
	case h.events <- ev:
	default:
		h.logger.WithField("type", ev.Type).Warn("event queue full, dropping event")
	}
}
