package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/draftroom/internal/dependencies/mocks"
	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/realtime"
	"github.com/mcoot/draftroom/internal/storage/memory"
	"github.com/mcoot/draftroom/internal/testutil"
)

var (
	leader = model.DraftUser{ID: "leader", DisplayName: "Leader"}
	alice  = model.DraftUser{ID: "alice", DisplayName: "Alice"}
	bob    = model.DraftUser{ID: "bob", DisplayName: "Bob"}

	organizer = model.Identity{User: model.DraftUser{ID: "org", DisplayName: "Organizer"}, Roles: []string{model.RoleOrganizer}}
)

type ManagerSuite struct {
	suite.Suite
	storage *memory.Storage
	hubs    *realtime.HubManager
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	manager *Manager
	ctx     context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.storage = memory.New()
	s.hubs = realtime.NewHubManager(logger)
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.manager = NewManager(s.storage, s.hubs, s.clock, s.random, DefaultConfig(), logger)
	s.ctx = context.Background()
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.Close()
	s.hubs.CloseAll()
}

// expectEvent reads from client until event arrives, failing on timeout or close
func (s *ManagerSuite) expectEvent(client *realtime.Client, event model.EventType) realtime.Message {
	s.T().Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case msg, ok := <-client.Messages():
			s.Require().True(ok, "channel closed before %s", event)
			if msg.Event == event {
				return msg
			}
		case <-timeout:
			s.FailNow("timed out waiting for " + string(event))
		}
	}
}

// expectClosed drains client and returns the events seen before the channel closed
func (s *ManagerSuite) expectClosed(client *realtime.Client) []model.EventType {
	s.T().Helper()
	var seen []model.EventType
	timeout := time.After(time.Second)
	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				return seen
			}
			seen = append(seen, msg.Event)
		case <-timeout:
			s.FailNow("channel was not closed")
		}
	}
}

// startedDraft creates an ad-hoc draft on template with alice on A, bob on B, both ready
func (s *ManagerSuite) startedDraft(template string) model.SessionID {
	s.random.QueueString("DRAFT1")
	snap, err := s.manager.CreateSession(s.ctx, leader, template)
	s.Require().NoError(err)

	for _, u := range []model.DraftUser{alice, bob} {
		_, err := s.manager.JoinSession(s.ctx, snap.ID, u)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.manager.AssignUser(s.ctx, snap.ID, alice.ID, model.TeamA, leader.ID))
	s.Require().NoError(s.manager.AssignUser(s.ctx, snap.ID, bob.ID, model.TeamB, leader.ID))
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, snap.ID, model.TeamA, true, alice.ID))
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, snap.ID, model.TeamB, true, bob.ID))
	return snap.ID
}

func (s *ManagerSuite) providedDraft(template string) model.SessionID {
	s.random.QueueString("PROV01")
	snap, err := s.manager.CreateProvidedSession(s.ctx, organizer, ProvidedDraft{
		Template: template,
		TeamA:    []model.DraftUser{alice},
		TeamB:    []model.DraftUser{bob},
	})
	s.Require().NoError(err)
	return snap.ID
}

// CreateSession tests

func (s *ManagerSuite) TestCreateSession() {
	s.random.QueueString("ABC123")

	snap, err := s.manager.CreateSession(s.ctx, leader, "")
	s.Require().NoError(err)

	s.Equal(model.SessionID("ABC123"), snap.ID)
	s.Equal("standard", snap.Template)
	s.Equal(leader.ID, snap.LeaderID)
	s.False(snap.ProvidedByServer)
	s.Equal(model.PhasePendingAssignment, snap.Phase)
	s.Require().Len(snap.Users, 1)
	s.Equal(leader.ID, snap.Users[0].ID)
	s.Equal(1, s.manager.LiveCount())

	// Ad-hoc drafts are not persisted
	exists, err := s.storage.DraftExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ManagerSuite) TestCreateSessionUnknownTemplate() {
	_, err := s.manager.CreateSession(s.ctx, leader, "nope")
	s.ErrorIs(err, model.ErrUnknownTemplate)
	s.Equal(0, s.manager.LiveCount())
}

func (s *ManagerSuite) TestCreateSessionSkipsTakenID() {
	s.random.QueueString("TAKEN1", "TAKEN1", "FRESH1")

	first, err := s.manager.CreateSession(s.ctx, leader, "short")
	s.Require().NoError(err)
	second, err := s.manager.CreateSession(s.ctx, alice, "short")
	s.Require().NoError(err)

	s.Equal(model.SessionID("TAKEN1"), first.ID)
	s.Equal(model.SessionID("FRESH1"), second.ID)
}

func (s *ManagerSuite) TestCreateProvidedSession() {
	id := s.providedDraft("short")

	snap, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.Require().NoError(err)
	s.True(snap.ProvidedByServer)
	s.Equal(organizer.User.ID, snap.LeaderID)
	s.Equal([]model.DraftUser{{ID: "alice", DisplayName: "Alice"}}, snap.TeamA)
	s.Equal([]model.DraftUser{{ID: "bob", DisplayName: "Bob"}}, snap.TeamB)

	stored, err := s.storage.LoadDraft(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(id, stored.ID)
}

func (s *ManagerSuite) TestCreateProvidedSessionRequiresOrganizer() {
	_, err := s.manager.CreateProvidedSession(s.ctx, model.Identity{User: alice}, ProvidedDraft{})
	s.ErrorIs(err, model.ErrNotOrganizer)
}

func (s *ManagerSuite) TestCreateProvidedSessionRejectsDuplicateMember() {
	_, err := s.manager.CreateProvidedSession(s.ctx, organizer, ProvidedDraft{
		TeamA: []model.DraftUser{alice},
		TeamB: []model.DraftUser{alice},
	})
	s.ErrorIs(err, model.ErrAlreadyAssigned)
	s.Equal(0, s.manager.LiveCount())
}

// Unknown session tests

func (s *ManagerSuite) TestUnknownSessionIsNoOp() {
	_, err := s.manager.GetOrLoadSession(s.ctx, "NOPE")
	s.ErrorIs(err, model.ErrUnknownSession)

	_, err = s.manager.JoinSession(s.ctx, "NOPE", alice)
	s.ErrorIs(err, model.ErrUnknownSession)

	_, err = s.manager.SubmitAction(s.ctx, "NOPE", model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 1}, alice.ID)
	s.ErrorIs(err, model.ErrUnknownSession)

	s.ErrorIs(s.manager.AssignUser(s.ctx, "NOPE", alice.ID, model.TeamA, leader.ID), model.ErrUnknownSession)
	s.ErrorIs(s.manager.UnassignUser(s.ctx, "NOPE", alice.ID, leader.ID), model.ErrUnknownSession)
	s.ErrorIs(s.manager.SetTeamReady(s.ctx, "NOPE", model.TeamA, true, alice.ID), model.ErrUnknownSession)
}

// Join tests

func (s *ManagerSuite) TestJoinSessionBroadcastsJoin() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")

	host, err := s.manager.JoinSession(s.ctx, snap.ID, leader)
	s.Require().NoError(err)
	s.True(host.Snapshot.Users[0].Present)

	guest, err := s.manager.JoinSession(s.ctx, snap.ID, alice)
	s.Require().NoError(err)
	s.Len(guest.Snapshot.Users, 2)

	// The creator's own first connection is a join too, not a presence change
	msg := s.expectEvent(host.Client, model.EventUserJoined)
	s.Contains(string(msg.Data), `"id":"leader"`)
	msg = s.expectEvent(host.Client, model.EventUserJoined)
	s.Contains(string(msg.Data), `"id":"alice"`)
}

func (s *ManagerSuite) TestSecondConnectionKeepsUserPresent() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	host, _ := s.manager.JoinSession(s.ctx, snap.ID, leader)

	first, err := s.manager.JoinSession(s.ctx, snap.ID, alice)
	s.Require().NoError(err)
	second, err := s.manager.JoinSession(s.ctx, snap.ID, alice)
	s.Require().NoError(err)
	s.Len(second.Snapshot.Users, 2)

	first.Leave()
	first.Leave()

	current, err := s.manager.GetOrLoadSession(s.ctx, snap.ID)
	s.Require().NoError(err)
	s.True(current.Users[1].Present)

	second.Leave()
	msg := s.expectEvent(host.Client, model.EventUserDisconnected)
	s.Contains(string(msg.Data), `"user_id":"alice"`)

	current, _ = s.manager.GetOrLoadSession(s.ctx, snap.ID)
	s.False(current.Users[1].Present)
}

func (s *ManagerSuite) TestRejoinKeepsAssignment() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	id := snap.ID
	watcher, _ := s.manager.JoinSession(s.ctx, id, leader)
	_, _ = s.manager.JoinSession(s.ctx, id, alice)
	s.Require().NoError(s.manager.AssignUser(s.ctx, id, alice.ID, model.TeamA, leader.ID))

	member, err := s.manager.JoinSession(s.ctx, id, model.DraftUser{ID: "carol"})
	s.Require().NoError(err)
	s.Require().NoError(s.manager.AssignUser(s.ctx, id, "carol", model.TeamA, leader.ID))
	member.Leave()
	s.expectEvent(watcher.Client, model.EventUserDisconnected)

	back, err := s.manager.JoinSession(s.ctx, id, model.DraftUser{ID: "carol", DisplayName: "Carol"})
	s.Require().NoError(err)
	s.Len(back.Snapshot.TeamA, 2)

	msg := s.expectEvent(watcher.Client, model.EventUserPresenceChanged)
	s.JSONEq(`{"user_id":"carol","team":"A","present":true}`, string(msg.Data))
}

func (s *ManagerSuite) TestUnassignedRejoinIsAnnouncedAsJoin() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	watcher, _ := s.manager.JoinSession(s.ctx, snap.ID, leader)

	member, err := s.manager.JoinSession(s.ctx, snap.ID, alice)
	s.Require().NoError(err)
	member.Leave()
	s.expectEvent(watcher.Client, model.EventUserDisconnected)

	_, err = s.manager.JoinSession(s.ctx, snap.ID, alice)
	s.Require().NoError(err)
	msg := s.expectEvent(watcher.Client, model.EventUserJoined)
	s.Contains(string(msg.Data), `"id":"alice"`)
}

// Creator disconnect tests

func (s *ManagerSuite) TestCreatorDisconnectBeforeFirstActionDestroysSession() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	host, _ := s.manager.JoinSession(s.ctx, snap.ID, leader)
	guest, _ := s.manager.JoinSession(s.ctx, snap.ID, alice)

	host.Leave()

	msg := s.expectEvent(guest.Client, model.EventCreatorDisconnected)
	s.JSONEq(`{"session_id":"ABC123"}`, string(msg.Data))
	s.expectClosed(guest.Client)

	_, err := s.manager.GetOrLoadSession(s.ctx, snap.ID)
	s.ErrorIs(err, model.ErrUnknownSession)
	s.Equal(0, s.manager.LiveCount())

	// The other participant's hook is a no-op on a destroyed session
	guest.Leave()
}

func (s *ManagerSuite) TestCreatorDisconnectAfterFirstActionKeepsSession() {
	id := s.startedDraft("short")
	host, _ := s.manager.JoinSession(s.ctx, id, leader)
	watcher, _ := s.manager.JoinSession(s.ctx, id, alice)

	_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, alice.ID)
	s.Require().NoError(err)

	host.Leave()

	msg := s.expectEvent(watcher.Client, model.EventUserDisconnected)
	s.Contains(string(msg.Data), `"user_id":"leader"`)

	snap, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(1, snap.Cursor)
}

// Assignment tests

func (s *ManagerSuite) TestAssignUserRequiresLeader() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	_, _ = s.manager.JoinSession(s.ctx, snap.ID, alice)

	err := s.manager.AssignUser(s.ctx, snap.ID, alice.ID, model.TeamA, alice.ID)
	s.ErrorIs(err, model.ErrNotLeader)

	s.Require().NoError(s.manager.AssignUser(s.ctx, snap.ID, alice.ID, model.TeamA, leader.ID))
	s.Require().NoError(s.manager.AssignUser(s.ctx, snap.ID, leader.ID, model.TeamB, leader.ID))

	current, _ := s.manager.GetOrLoadSession(s.ctx, snap.ID)
	s.Equal(alice.ID, current.TeamA[0].ID)
	s.Equal(leader.ID, current.TeamB[0].ID)
}

func (s *ManagerSuite) TestAssignUserBroadcastsRosters() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	host, _ := s.manager.JoinSession(s.ctx, snap.ID, leader)
	_, _ = s.manager.JoinSession(s.ctx, snap.ID, alice)

	s.Require().NoError(s.manager.AssignUser(s.ctx, snap.ID, alice.ID, model.TeamB, leader.ID))
	msg := s.expectEvent(host.Client, model.EventUserAssigned)
	s.Contains(string(msg.Data), `"team":"B"`)

	s.Require().NoError(s.manager.UnassignUser(s.ctx, snap.ID, alice.ID, leader.ID))
	msg = s.expectEvent(host.Client, model.EventUserUnassigned)
	s.Contains(string(msg.Data), `"team_b":[]`)
}

func (s *ManagerSuite) TestNoAssignmentOnceBothReady() {
	id := s.startedDraft("short")
	_, _ = s.manager.JoinSession(s.ctx, id, model.DraftUser{ID: "carol"})

	err := s.manager.AssignUser(s.ctx, id, "carol", model.TeamA, leader.ID)
	s.ErrorIs(err, model.ErrIllegalState)
	err = s.manager.UnassignUser(s.ctx, id, alice.ID, leader.ID)
	s.ErrorIs(err, model.ErrIllegalState)
}

func (s *ManagerSuite) TestRostersStayFrozenAfterTeamUnreadies() {
	id := s.startedDraft("short")
	_, _ = s.manager.JoinSession(s.ctx, id, model.DraftUser{ID: "carol"})
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamA, false, alice.ID))

	err := s.manager.AssignUser(s.ctx, id, "carol", model.TeamA, leader.ID)
	s.ErrorIs(err, model.ErrIllegalState)
	err = s.manager.UnassignUser(s.ctx, id, bob.ID, leader.ID)
	s.ErrorIs(err, model.ErrIllegalState)

	snap, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.Require().NoError(err)
	s.True(snap.RostersLocked)
	s.Require().Len(snap.TeamA, 1)
	s.Equal(alice.ID, snap.TeamA[0].ID)
	s.Require().Len(snap.TeamB, 1)
	s.Equal(bob.ID, snap.TeamB[0].ID)
}

func (s *ManagerSuite) TestNoAssignmentAfterFirstAction() {
	id := s.startedDraft("short")
	_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, alice.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamA, false, alice.ID))

	err = s.manager.AssignUser(s.ctx, id, leader.ID, model.TeamA, leader.ID)
	s.ErrorIs(err, model.ErrIllegalState)
}

func (s *ManagerSuite) TestProvidedRostersAreFixed() {
	id := s.providedDraft("short")

	err := s.manager.AssignUser(s.ctx, id, alice.ID, model.TeamB, organizer.User.ID)
	s.ErrorIs(err, model.ErrServerProvided)
	err = s.manager.UnassignUser(s.ctx, id, alice.ID, organizer.User.ID)
	s.ErrorIs(err, model.ErrServerProvided)
}

func (s *ManagerSuite) TestCapacityExceeded() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	for i := 0; i < model.MaxTeamSize+1; i++ {
		u := model.DraftUser{ID: model.UserID(string(rune('a' + i)))}
		_, _ = s.manager.JoinSession(s.ctx, snap.ID, u)
		err := s.manager.AssignUser(s.ctx, snap.ID, u.ID, model.TeamA, leader.ID)
		if i < model.MaxTeamSize {
			s.Require().NoError(err)
		} else {
			s.ErrorIs(err, model.ErrCapacityExceeded)
		}
	}
}

// Readiness tests

func (s *ManagerSuite) TestSetTeamReadyRequiresMembership() {
	s.random.QueueString("ABC123")
	snap, _ := s.manager.CreateSession(s.ctx, leader, "short")
	_, _ = s.manager.JoinSession(s.ctx, snap.ID, alice)
	s.Require().NoError(s.manager.AssignUser(s.ctx, snap.ID, alice.ID, model.TeamA, leader.ID))

	s.ErrorIs(s.manager.SetTeamReady(s.ctx, snap.ID, model.TeamB, true, alice.ID), model.ErrNotTeamMember)
	s.ErrorIs(s.manager.SetTeamReady(s.ctx, snap.ID, model.TeamA, true, leader.ID), model.ErrNotTeamMember)
	s.ErrorIs(s.manager.SetTeamReady(s.ctx, snap.ID, "C", true, alice.ID), model.ErrInvalidTeam)
	s.NoError(s.manager.SetTeamReady(s.ctx, snap.ID, model.TeamA, true, alice.ID))
}

func (s *ManagerSuite) TestSetTeamReadyBroadcastsPhase() {
	id := s.startedDraft("short")
	watcher, _ := s.manager.JoinSession(s.ctx, id, leader)

	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamB, false, bob.ID))
	msg := s.expectEvent(watcher.Client, model.EventTeamReadyChanged)
	s.JSONEq(`{"team":"B","ready":false,"phase":"PENDING_ASSIGNMENT"}`, string(msg.Data))

	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamB, true, bob.ID))
	msg = s.expectEvent(watcher.Client, model.EventTeamReadyChanged)
	s.JSONEq(`{"team":"B","ready":true,"phase":"READY_NOT_STARTED"}`, string(msg.Data))
}

// SubmitAction tests

func (s *ManagerSuite) TestSubmitActionBroadcastsServerFlags() {
	id := s.startedDraft("short")
	watcher, _ := s.manager.JoinSession(s.ctx, id, leader)

	recorded, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, alice.ID)
	s.Require().NoError(err)
	s.True(recorded.LockForPickingTeam)
	s.True(recorded.LockForOpponentTeam)

	msg := s.expectEvent(watcher.Client, model.EventActionApplied)
	s.JSONEq(`{
		"action": {"type":"BAN","team":"A","breed":3,"lock_for_picking_team":true,"lock_for_opponent_team":true},
		"cursor": 1,
		"next": {"type":"BAN","team":"B","lock_for_picking_team":true,"lock_for_opponent_team":true},
		"actor_id": "alice"
	}`, string(msg.Data))
}

func (s *ManagerSuite) TestSubmitActionRejectedChangesNothing() {
	id := s.startedDraft("short")

	_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, bob.ID)
	s.ErrorIs(err, model.ErrValidationRejected)
	s.ErrorIs(err, model.ErrNotTeamMember)

	snap, _ := s.manager.GetOrLoadSession(s.ctx, id)
	s.Equal(0, snap.Cursor)
	s.Empty(snap.History)
}

func (s *ManagerSuite) TestSubmitActionScenario() {
	id := s.startedDraft("short")
	submit := func(user model.DraftUser, t model.ActionType, team model.Team, breed model.ClassID) error {
		_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: t, Team: team, Breed: breed}, user.ID)
		return err
	}

	s.Require().NoError(submit(alice, model.ActionBan, model.TeamA, 3))
	snap, _ := s.manager.GetOrLoadSession(s.ctx, id)
	s.Equal(1, snap.Cursor)
	s.Equal([]model.ClassID{3}, snap.LockedForTeamA)
	s.Equal([]model.ClassID{3}, snap.LockedForTeamB)

	s.Require().NoError(submit(bob, model.ActionBan, model.TeamB, 4))

	// short: PICK B locks only for B, then PICK A
	s.ErrorIs(submit(bob, model.ActionPick, model.TeamB, 3), model.ErrClassLocked)
	s.Require().NoError(submit(bob, model.ActionPick, model.TeamB, 5))
	snap, _ = s.manager.GetOrLoadSession(s.ctx, id)
	s.Equal(3, snap.Cursor)
	s.Equal(model.DraftAction{Type: model.ActionPick, Team: model.TeamB, Breed: 5, LockForPickingTeam: true}, snap.History[2])

	s.NoError(submit(alice, model.ActionPick, model.TeamA, 5))
}

func (s *ManagerSuite) TestConcurrentSubmissionsApplyOnce() {
	id := s.startedDraft("short")

	const attempts = 20
	var applied atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, alice.ID)
			if err == nil {
				applied.Add(1)
			} else {
				s.ErrorIs(err, model.ErrOutOfTurn)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), applied.Load())
	snap, _ := s.manager.GetOrLoadSession(s.ctx, id)
	s.Equal(1, snap.Cursor)
}

func (s *ManagerSuite) TestConcurrentSubmissionsAtCursorApplyOnce() {
	// mirror has B picking twice in a row, so only the cursor check separates the two
	id := s.startedDraft("mirror")
	_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionPick, Team: model.TeamA, Breed: 1}, alice.ID)
	s.Require().NoError(err)

	var applied atomic.Int32
	var wg sync.WaitGroup
	for breed := model.ClassID(2); breed < 4; breed++ {
		breed := breed
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionPick, Team: model.TeamB, Breed: breed}, bob.ID, AtCursor(1))
			if err == nil {
				applied.Add(1)
			} else {
				s.ErrorIs(err, model.ErrOutOfTurn)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), applied.Load())
	snap, _ := s.manager.GetOrLoadSession(s.ctx, id)
	s.Equal(2, snap.Cursor)
}

func (s *ManagerSuite) TestCompletedAdHocDraftLeavesLiveMap() {
	id := s.startedDraft("short")
	watcher, _ := s.manager.JoinSession(s.ctx, id, leader)

	for _, step := range []struct {
		user  model.DraftUser
		t     model.ActionType
		team  model.Team
		breed model.ClassID
	}{
		{alice, model.ActionBan, model.TeamA, 1},
		{bob, model.ActionBan, model.TeamB, 2},
		{bob, model.ActionPick, model.TeamB, 3},
		{alice, model.ActionPick, model.TeamA, 4},
	} {
		_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: step.t, Team: step.team, Breed: step.breed}, step.user.ID)
		s.Require().NoError(err)
	}

	s.expectEvent(watcher.Client, model.EventDraftCompleted)
	s.expectClosed(watcher.Client)
	s.Equal(0, s.manager.LiveCount())

	_, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.ErrorIs(err, model.ErrUnknownSession)
	_, err = s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionPick, Team: model.TeamA, Breed: 6}, alice.ID)
	s.ErrorIs(err, model.ErrUnknownSession)
}

func (s *ManagerSuite) TestCompletedProvidedDraftIsArchived() {
	id := s.providedDraft("short")
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamA, true, alice.ID))
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamB, true, bob.ID))

	steps := []struct {
		user  model.DraftUser
		t     model.ActionType
		team  model.Team
		breed model.ClassID
	}{
		{alice, model.ActionBan, model.TeamA, 1},
		{bob, model.ActionBan, model.TeamB, 2},
		{bob, model.ActionPick, model.TeamB, 3},
		{alice, model.ActionPick, model.TeamA, 4},
	}
	for i, step := range steps {
		_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: step.t, Team: step.team, Breed: step.breed}, step.user.ID)
		s.Require().NoError(err)
		if i == 1 {
			stored, err := s.storage.LoadDraft(s.ctx, id)
			s.Require().NoError(err)
			s.Equal(2, stored.Cursor)
		}
	}
	s.Equal(0, s.manager.LiveCount())

	snap, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.PhaseTerminal, snap.Phase)
	s.Equal(4, snap.Cursor)
	s.Equal(0, s.manager.LiveCount(), "archived drafts are not cached")

	_, err = s.manager.JoinSession(s.ctx, id, alice)
	s.ErrorIs(err, model.ErrIllegalState)
	_, err = s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionPick, Team: model.TeamA, Breed: 6}, alice.ID)
	s.ErrorIs(err, model.ErrIllegalState)
}

// Reaper tests

func (s *ManagerSuite) TestReapRemovesExpiredSessions() {
	s.random.QueueString("OLD001")
	old, _ := s.manager.CreateSession(s.ctx, leader, "short")
	host, _ := s.manager.JoinSession(s.ctx, old.ID, leader)

	s.clock.Advance(30 * time.Minute)
	s.random.QueueString("NEW001")
	fresh, _ := s.manager.CreateSession(s.ctx, alice, "short")

	s.Equal(0, s.manager.Reap(s.clock.Now().Add(30*time.Minute)))

	s.clock.Advance(31 * time.Minute)
	s.Equal(1, s.manager.Reap(s.clock.Now()))

	// Reaping is silent; only the host's own earlier join was queued
	s.Equal([]model.EventType{model.EventUserJoined}, s.expectClosed(host.Client))

	_, err := s.manager.GetOrLoadSession(s.ctx, old.ID)
	s.ErrorIs(err, model.ErrUnknownSession)
	_, err = s.manager.GetOrLoadSession(s.ctx, fresh.ID)
	s.NoError(err)

	// A hook from a reaped session does nothing
	host.Leave()
	s.Equal(1, s.manager.LiveCount())
}

func (s *ManagerSuite) TestReapRemovesSessionsInProgress() {
	id := s.startedDraft("short")
	_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, alice.ID)
	s.Require().NoError(err)

	s.clock.Advance(DefaultTTL + time.Second)
	s.Equal(1, s.manager.Reap(s.clock.Now()))

	_, err = s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamB, Breed: 4}, bob.ID)
	s.ErrorIs(err, model.ErrUnknownSession)
}

func (s *ManagerSuite) TestReapedProvidedDraftReloadsFromStorage() {
	id := s.providedDraft("short")
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamA, true, alice.ID))
	s.Require().NoError(s.manager.SetTeamReady(s.ctx, id, model.TeamB, true, bob.ID))
	_, err := s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, alice.ID)
	s.Require().NoError(err)

	s.clock.Advance(DefaultTTL + time.Second)
	s.Equal(1, s.manager.Reap(s.clock.Now()))
	s.Equal(0, s.manager.LiveCount())

	snap, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(1, snap.Cursor)
	s.Equal([]model.ClassID{3}, snap.LockedForTeamB)
	s.Equal(1, s.manager.LiveCount())

	// Restored session continues from its cursor
	_, err = s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamB, Breed: 4}, bob.ID)
	s.NoError(err)
}

func (s *ManagerSuite) TestReloadedDraftKeepsCreationTTL() {
	id := s.providedDraft("short")

	s.clock.Advance(DefaultTTL - time.Minute)
	s.Equal(1, s.manager.Reap(s.clock.Now().Add(2*time.Minute)))

	// Loading again does not restart the clock
	_, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(1, s.manager.LiveCount())

	s.clock.Advance(2 * time.Minute)
	s.Equal(1, s.manager.Reap(s.clock.Now()))
	s.Equal(0, s.manager.LiveCount())
}

func (s *ManagerSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.manager.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("reaper did not stop")
	}
}

func (s *ManagerSuite) TestCloseDropsAllSessions() {
	id := s.startedDraft("short")
	watcher, _ := s.manager.JoinSession(s.ctx, id, leader)

	s.manager.Close()

	s.expectClosed(watcher.Client)
	s.Equal(0, s.manager.LiveCount())
}

// WatchSession tests

func (s *ManagerSuite) TestWatcherSeesEventsWithoutJoining() {
	id := s.startedDraft("short")

	watch, err := s.manager.WatchSession(s.ctx, id)
	s.Require().NoError(err)
	defer watch.Leave()
	s.Equal(model.PhaseReadyNotStarted, watch.Snapshot.Phase)
	s.Len(watch.Snapshot.Users, 3)

	_, err = s.manager.SubmitAction(s.ctx, id, model.DraftAction{Type: model.ActionBan, Team: model.TeamA, Breed: 3}, alice.ID)
	s.Require().NoError(err)
	s.expectEvent(watch.Client, model.EventActionApplied)

	snap, err := s.manager.GetOrLoadSession(s.ctx, id)
	s.Require().NoError(err)
	s.Len(snap.Users, 3)
}

func (s *ManagerSuite) TestWatcherLeaveKeepsSession() {
	s.random.QueueString("WATCH1")
	snap, err := s.manager.CreateSession(s.ctx, leader, "short")
	s.Require().NoError(err)

	watch, err := s.manager.WatchSession(s.ctx, snap.ID)
	s.Require().NoError(err)
	watch.Leave()
	watch.Leave()

	_, err = s.manager.GetOrLoadSession(s.ctx, snap.ID)
	s.NoError(err)
}

func (s *ManagerSuite) TestWatchUnknownSession() {
	_, err := s.manager.WatchSession(s.ctx, "NOPE00")
	s.ErrorIs(err, model.ErrUnknownSession)
}
