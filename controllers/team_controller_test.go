package controller

import (
	"net/http"
	"testing"

	"libra/models"
)

func TestCreateTeam(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	createTestUser(t, db, "Bob", "bob@example.com")
	createTestUser(t, db, "Carol", "carol@example.com")
	a.become(alice)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/teams", map[string]interface{}{
		"title":       "Household",
		"description": "Chores",
		"member_emails": []string{
			"alice@example.com", "bob@example.com", "carol@example.com", "bob@example.com",
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var team models.Team
	decodeData(t, resp, &team)
	if team.CreatorID != alice.ID {
		t.Errorf("expected creator %s, got %s", alice.ID, team.CreatorID)
	}

	var memberships []models.Membership
	if err := db.Where("team_id = ?", team.ID).Find(&memberships).Error; err != nil {
		t.Fatalf("failed to load memberships: %v", err)
	}
	if len(memberships) != 3 {
		t.Fatalf("expected 3 memberships (creator + 2 invited), got %d", len(memberships))
	}

	statusByMember := make(map[string]string)
	for _, m := range memberships {
		statusByMember[m.MemberID] = m.Status
	}
	if statusByMember[alice.ID] != models.MembershipAccepted {
		t.Errorf("creator must be accepted, got %q", statusByMember[alice.ID])
	}
	accepted := 0
	for _, status := range statusByMember {
		if status == models.MembershipAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("expected exactly one accepted membership, got %d", accepted)
	}

	t.Run("unknown emails are skipped", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams", map[string]interface{}{
			"title":         "Ghost hunt",
			"member_emails": []string{"alice@example.com", "ghost@nowhere.com"},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		var ghostTeam models.Team
		decodeData(t, resp, &ghostTeam)

		var count int64
		db.Model(&models.Membership{}).Where("team_id = ?", ghostTeam.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected only the creator membership, got %d", count)
		}
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams", map[string]interface{}{
			"title":         "Bad",
			"member_emails": []string{"not-an-email"},
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestUpdateTeam(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	carol := createTestUser(t, db, "Carol", "carol@example.com")
	dave := createTestUser(t, db, "Dave", "dave@example.com")
	a.become(alice)

	team := createTestTeam(t, db, alice, "Household")
	for _, member := range []*models.User{bob, carol} {
		m := models.Membership{MemberID: member.ID, TeamID: team.ID, InviterID: alice.ID, Status: models.MembershipAccepted}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("failed to seed membership: %v", err)
		}
	}

	// Drop carol, add dave
	resp := doJSON(t, app, http.MethodPut, "/api/v1/teams/"+team.ID, map[string]interface{}{
		"title":       "Household v2",
		"description": "Updated",
		"member_emails": []string{
			"alice@example.com", "bob@example.com", "dave@example.com",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var updated models.Team
	if err := db.First(&updated, "id = ?", team.ID).Error; err != nil {
		t.Fatalf("failed to reload team: %v", err)
	}
	if updated.Title != "Household v2" {
		t.Errorf("expected updated title, got %q", updated.Title)
	}

	var carolRows, bobRows int64
	db.Model(&models.Membership{}).Where("member_id = ? AND team_id = ?", carol.ID, team.ID).Count(&carolRows)
	db.Model(&models.Membership{}).Where("member_id = ? AND team_id = ?", bob.ID, team.ID).Count(&bobRows)
	if carolRows != 0 {
		t.Errorf("expected carol's membership deleted")
	}
	if bobRows != 1 {
		t.Errorf("expected bob's membership untouched")
	}

	var bobMembership models.Membership
	if err := db.Where("member_id = ? AND team_id = ?", bob.ID, team.ID).First(&bobMembership).Error; err == nil {
		if bobMembership.Status != models.MembershipAccepted {
			t.Errorf("bob's untouched membership must stay accepted, got %q", bobMembership.Status)
		}
	}

	var daveMembership models.Membership
	if err := db.Where("member_id = ? AND team_id = ?", dave.ID, team.ID).First(&daveMembership).Error; err != nil {
		t.Fatalf("expected dave invited: %v", err)
	}
	if daveMembership.Status != models.MembershipInvited {
		t.Errorf("expected invited, got %q", daveMembership.Status)
	}
	if daveMembership.InviterID != alice.ID {
		t.Errorf("expected inviter %s, got %s", alice.ID, daveMembership.InviterID)
	}

	t.Run("re-adding a removed member reactivates", func(t *testing.T) {
		// Carol declined once before
		declined := models.Membership{MemberID: carol.ID, TeamID: team.ID, InviterID: bob.ID, Status: models.MembershipDeclined}
		if err := db.Create(&declined).Error; err != nil {
			t.Fatalf("failed to seed declined membership: %v", err)
		}

		resp := doJSON(t, app, http.MethodPut, "/api/v1/teams/"+team.ID, map[string]interface{}{
			"title": "Household v2",
			"member_emails": []string{
				"alice@example.com", "bob@example.com", "dave@example.com", "carol@example.com",
			},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var rows []models.Membership
		db.Where("member_id = ? AND team_id = ?", carol.ID, team.ID).Find(&rows)
		if len(rows) != 1 {
			t.Fatalf("expected one membership row for carol, got %d", len(rows))
		}
		if rows[0].Status != models.MembershipInvited {
			t.Errorf("expected reactivation to invited, got %q", rows[0].Status)
		}
		if rows[0].InviterID != alice.ID {
			t.Errorf("expected inviter reset to actor")
		}
	})

	t.Run("non-creator gets 404", func(t *testing.T) {
		a.become(bob)
		resp := doJSON(t, app, http.MethodPut, "/api/v1/teams/"+team.ID, map[string]interface{}{
			"title":         "Takeover",
			"member_emails": []string{"bob@example.com"},
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestRespondToInvitation(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	team := createTestTeam(t, db, alice, "Household")

	invitation := models.Membership{MemberID: bob.ID, TeamID: team.ID, InviterID: alice.ID, Status: models.MembershipInvited}
	if err := db.Create(&invitation).Error; err != nil {
		t.Fatalf("failed to seed invitation: %v", err)
	}

	t.Run("only the invitee may respond", func(t *testing.T) {
		a.become(alice)
		resp := doJSON(t, app, http.MethodPost, "/api/v1/invitations/"+invitation.ID+"/respond", map[string]interface{}{
			"status": "accepted",
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		a.become(bob)
		resp := doJSON(t, app, http.MethodPost, "/api/v1/invitations/"+invitation.ID+"/respond", map[string]interface{}{
			"status": "maybe",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("accept changes only the status", func(t *testing.T) {
		a.become(bob)

		var tasksBefore, messagesBefore int64
		db.Model(&models.Task{}).Count(&tasksBefore)
		db.Model(&models.Message{}).Count(&messagesBefore)

		resp := doJSON(t, app, http.MethodPost, "/api/v1/invitations/"+invitation.ID+"/respond", map[string]interface{}{
			"status": "accepted",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var reloaded models.Membership
		if err := db.First(&reloaded, "id = ?", invitation.ID).Error; err != nil {
			t.Fatalf("failed to reload membership: %v", err)
		}
		if reloaded.Status != models.MembershipAccepted {
			t.Errorf("expected accepted, got %q", reloaded.Status)
		}
		if reloaded.MemberID != bob.ID || reloaded.TeamID != team.ID {
			t.Errorf("respond must not touch other fields: %+v", reloaded)
		}

		var tasksAfter, messagesAfter int64
		db.Model(&models.Task{}).Count(&tasksAfter)
		db.Model(&models.Message{}).Count(&messagesAfter)
		if tasksAfter != tasksBefore || messagesAfter != messagesBefore {
			t.Errorf("respond must not alter task or message rows")
		}
	})

	t.Run("terminal states reject re-transition", func(t *testing.T) {
		a.become(bob)
		resp := doJSON(t, app, http.MethodPost, "/api/v1/invitations/"+invitation.ID+"/respond", map[string]interface{}{
			"status": "declined",
		})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected 409, got %d", resp.StatusCode)
		}
	})
}

func TestSendInvitation(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	a.become(alice)
	team := createTestTeam(t, db, alice, "Household")

	t.Run("unknown email returns sentinel, creates nothing", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams/"+team.ID+"/invitations", map[string]interface{}{
			"receiver_email": "ghost@nowhere.com",
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 sentinel, got %d", resp.StatusCode)
		}
		var count int64
		db.Model(&models.Membership{}).Where("team_id = ?", team.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected only the creator membership, got %d rows", count)
		}
	})

	t.Run("known email creates an invited membership", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams/"+team.ID+"/invitations", map[string]interface{}{
			"receiver_email": "bob@example.com",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		var membership models.Membership
		if err := db.Where("member_id = ? AND team_id = ?", bob.ID, team.ID).First(&membership).Error; err != nil {
			t.Fatalf("expected membership: %v", err)
		}
		if membership.Status != models.MembershipInvited {
			t.Errorf("expected invited, got %q", membership.Status)
		}
	})

	t.Run("re-invite after decline resets the same row", func(t *testing.T) {
		if err := db.Model(&models.Membership{}).
			Where("member_id = ? AND team_id = ?", bob.ID, team.ID).
			Update("status", models.MembershipDeclined).Error; err != nil {
			t.Fatalf("failed to decline: %v", err)
		}

		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams/"+team.ID+"/invitations", map[string]interface{}{
			"receiver_email": "bob@example.com",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var rows []models.Membership
		db.Where("member_id = ? AND team_id = ?", bob.ID, team.ID).Find(&rows)
		if len(rows) != 1 {
			t.Fatalf("expected idempotent upsert, got %d rows", len(rows))
		}
		if rows[0].Status != models.MembershipInvited {
			t.Errorf("expected reset to invited, got %q", rows[0].Status)
		}
	})

	t.Run("non-member cannot invite", func(t *testing.T) {
		mallory := createTestUser(t, db, "Mallory", "mallory@example.com")
		a.become(mallory)
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams/"+team.ID+"/invitations", map[string]interface{}{
			"receiver_email": "bob@example.com",
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestCancelMembership(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	team := createTestTeam(t, db, alice, "Household")

	seed := func() {
		db.Where("member_id = ? AND team_id = ?", bob.ID, team.ID).Delete(&models.Membership{})
		m := models.Membership{MemberID: bob.ID, TeamID: team.ID, InviterID: alice.ID, Status: models.MembershipAccepted}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("failed to seed membership: %v", err)
		}
	}

	t.Run("member leaves", func(t *testing.T) {
		seed()
		a.become(bob)
		resp := doJSON(t, app, http.MethodDelete, "/api/v1/teams/"+team.ID+"/members/"+bob.ID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var count int64
		db.Model(&models.Membership{}).Where("member_id = ? AND team_id = ?", bob.ID, team.ID).Count(&count)
		if count != 0 {
			t.Errorf("expected membership removed")
		}
	})

	t.Run("creator removes member", func(t *testing.T) {
		seed()
		a.become(alice)
		resp := doJSON(t, app, http.MethodDelete, "/api/v1/teams/"+team.ID+"/members/"+bob.ID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("stranger cannot remove others", func(t *testing.T) {
		seed()
		mallory := createTestUser(t, db, "Mallory", "mallory@example.com")
		a.become(mallory)
		resp := doJSON(t, app, http.MethodDelete, "/api/v1/teams/"+team.ID+"/members/"+bob.ID, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestChangeOwner(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	team := createTestTeam(t, db, alice, "Household")

	m := models.Membership{MemberID: bob.ID, TeamID: team.ID, InviterID: alice.ID, Status: models.MembershipAccepted}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}

	t.Run("non-creator cannot reassign", func(t *testing.T) {
		a.become(bob)
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams/"+team.ID+"/owner", map[string]interface{}{
			"member_id": bob.ID,
		})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("new owner must be accepted member", func(t *testing.T) {
		carol := createTestUser(t, db, "Carol", "carol@example.com")
		a.become(alice)
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams/"+team.ID+"/owner", map[string]interface{}{
			"member_id": carol.ID,
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("creator reassigns", func(t *testing.T) {
		a.become(alice)
		resp := doJSON(t, app, http.MethodPost, "/api/v1/teams/"+team.ID+"/owner", map[string]interface{}{
			"member_id": bob.ID,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var reloaded models.Team
		if err := db.First(&reloaded, "id = ?", team.ID).Error; err != nil {
			t.Fatalf("failed to reload team: %v", err)
		}
		if reloaded.CreatorID != bob.ID {
			t.Errorf("expected creator %s, got %s", bob.ID, reloaded.CreatorID)
		}
	})
}

func TestListTeamsAndInvitations(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")

	teamA := createTestTeam(t, db, alice, "Team A")
	teamB := createTestTeam(t, db, bob, "Team B")

	invite := models.Membership{MemberID: alice.ID, TeamID: teamB.ID, InviterID: bob.ID, Status: models.MembershipInvited}
	if err := db.Create(&invite).Error; err != nil {
		t.Fatalf("failed to seed invitation: %v", err)
	}

	a.become(alice)

	t.Run("list teams includes invited and accepted", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/v1/teams", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var teams []models.Team
		decodeData(t, resp, &teams)
		if len(teams) != 2 {
			t.Fatalf("expected 2 teams, got %d", len(teams))
		}
	})

	t.Run("get team scoped to membership", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/v1/teams/"+teamA.ID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200 for own team, got %d", resp.StatusCode)
		}

		carol := createTestUser(t, db, "Carol", "carol@example.com")
		a.become(carol)
		resp = doJSON(t, app, http.MethodGet, "/api/v1/teams/"+teamA.ID, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 for foreign team, got %d", resp.StatusCode)
		}
		a.become(alice)
	})

	t.Run("invitations and count", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/v1/invitations", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var invitations []models.Membership
		decodeData(t, resp, &invitations)
		if len(invitations) != 1 {
			t.Fatalf("expected 1 invitation, got %d", len(invitations))
		}
		if invitations[0].Team.Title != "Team B" {
			t.Errorf("expected team preloaded, got %+v", invitations[0].Team)
		}

		resp = doJSON(t, app, http.MethodGet, "/api/v1/invitations/count", nil)
		var count struct {
			Count int64 `json:"count"`
		}
		decodeData(t, resp, &count)
		if count.Count != 1 {
			t.Errorf("expected count 1, got %d", count.Count)
		}
	})
}

func TestDeleteTeam(t *testing.T) {
	db := setupTestDB(t)
	app, a := newTestApp(t, db)
	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	a.become(alice)
	team := createTestTeam(t, db, alice, "Household")

	m := models.Membership{MemberID: bob.ID, TeamID: team.ID, InviterID: alice.ID, Status: models.MembershipAccepted}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
	task := models.Task{UserID: bob.ID, TeamID: &team.ID, Title: "Team task", Content: "x", Weight: 1}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	msg := models.Message{TeamID: team.ID, CreatorID: bob.ID, Content: "hello"}
	if err := db.Create(&msg).Error; err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}

	t.Run("non-creator gets 404", func(t *testing.T) {
		a.become(bob)
		resp := doJSON(t, app, http.MethodDelete, "/api/v1/teams/"+team.ID, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
		a.become(alice)
	})

	resp := doJSON(t, app, http.MethodDelete, "/api/v1/teams/"+team.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var memberships, messages, teams int64
	db.Model(&models.Membership{}).Where("team_id = ?", team.ID).Count(&memberships)
	db.Model(&models.Message{}).Where("team_id = ?", team.ID).Count(&messages)
	db.Model(&models.Team{}).Where("id = ?", team.ID).Count(&teams)
	if memberships != 0 || messages != 0 || teams != 0 {
		t.Errorf("expected team and its rows removed: memberships=%d messages=%d teams=%d",
			memberships, messages, teams)
	}

	// Tasks survive, detached to personal scope
	var detached models.Task
	if err := db.First(&detached, "id = ?", task.ID).Error; err != nil {
		t.Fatalf("expected task to survive team deletion: %v", err)
	}
	if detached.TeamID != nil {
		t.Errorf("expected task detached from team, got %v", *detached.TeamID)
	}
}
