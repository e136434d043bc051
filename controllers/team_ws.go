package controller

import (
	"log"

	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"libra/worker"
)

// HandleTeamEventsWS streams a team's change events to a connected member.
// Membership is re-checked at upgrade time; the conn receives every event
// published for the team until either side closes. Replaces the old
// fixed-interval polling of team tasks, messages and invitation counts.
func HandleTeamEventsWS(db *gorm.DB, hub *worker.TeamHub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		teamID := c.Params("teamId")
		userID, _ := c.Locals("userID").(string)
		if teamID == "" || userID == "" {
			return
		}

		if !isMember(db, userID, teamID) {
			_ = c.WriteJSON(map[string]string{"error": "team not found"})
			return
		}

		events, cancel := hub.Subscribe(teamID)
		defer cancel()

		// Reader goroutine: we ignore client frames but need the read loop
		// to learn about disconnects.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := c.WriteJSON(ev); err != nil {
					log.Printf("Error writing event to team %s subscriber: %v", teamID, err)
					return
				}
			case <-closed:
				return
			}
		}
	}
}
