package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewtech/crewsync/pkg/cache"
	"github.com/crewtech/crewsync/pkg/core/model"
)

func TestLookupWorkerLocalHit(t *testing.T) {
	store, fake, _ := newTestEnv()
	store.Save(cache.State{
		Workers: []model.Worker{{ID: "w1", Name: "Ana"}},
		Jobs:    []model.Job{},
	})

	worker, err := LookupWorker(context.Background(), store, fake, zap.NewNop(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", worker.Name)
}

func TestLookupWorkerMaterializesFromRemote(t *testing.T) {
	store, fake, _ := newTestEnv()
	fake.SeedWorker(model.Worker{ID: "w1", Name: "Ana", SMSOptIn: model.OptInYes})

	worker, err := LookupWorker(context.Background(), store, fake, zap.NewNop(), "w1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", worker.Name)

	// The device recognizes the link next time without a remote call.
	require.Len(t, store.Load().Workers, 1)
	assert.Equal(t, model.OptInYes, store.Load().Workers[0].SMSOptIn)
}

func TestLookupWorkerUnknown(t *testing.T) {
	store, fake, _ := newTestEnv()

	_, err := LookupWorker(context.Background(), store, fake, zap.NewNop(), "ghost")
	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestNeedsConsentPrompt(t *testing.T) {
	assert.True(t, NeedsConsentPrompt(model.Worker{SMSOptIn: model.OptInUnset}))
	assert.False(t, NeedsConsentPrompt(model.Worker{SMSOptIn: model.OptInYes}))
	assert.False(t, NeedsConsentPrompt(model.Worker{SMSOptIn: model.OptInNo}), "an explicit no is an answer")
}

func TestSetSMSOptIn(t *testing.T) {
	store, fake, syncer := newTestEnv()
	store.Save(cache.State{
		Workers: []model.Worker{{ID: "w1", Name: "Ana"}},
		Jobs:    []model.Job{},
	})

	worker, err := SetSMSOptIn(context.Background(), store, syncer, zap.NewNop(), "w1", model.OptInNo)
	require.NoError(t, err)
	assert.Equal(t, model.OptInNo, worker.SMSOptIn)

	row, found, err := fake.ReadWorker(context.Background(), "w1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.OptInNo, row.SMSOptIn)
}

func TestSetSMSOptInRejectsUnset(t *testing.T) {
	store, _, syncer := newTestEnv()
	store.Save(cache.State{
		Workers: []model.Worker{{ID: "w1", SMSOptIn: model.OptInNo}},
		Jobs:    []model.Job{},
	})

	_, err := SetSMSOptIn(context.Background(), store, syncer, zap.NewNop(), "w1", model.OptInUnset)
	require.Error(t, err, "consent never moves back to undecided")
	assert.Equal(t, model.OptInNo, store.Load().Workers[0].SMSOptIn)
}

func TestSetWorkerPhone(t *testing.T) {
	store, _, syncer := newTestEnv()
	store.Save(cache.State{
		Workers: []model.Worker{{ID: "w1", Name: "Ana"}},
		Jobs:    []model.Job{},
	})

	worker, err := SetWorkerPhone(context.Background(), store, syncer, zap.NewNop(), "w1", "(702) 555-1842")
	require.NoError(t, err)
	assert.Equal(t, "+17025551842", worker.Phone)

	_, err = SetWorkerPhone(context.Background(), store, syncer, zap.NewNop(), "w1", "not a number")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestWorkerShifts(t *testing.T) {
	today := time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)
	state := cache.State{
		Jobs: []model.Job{
			{
				ID: "invite", Name: "Load-in", Date: "2026-09-20", StartTime: "08:00",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusInvited}},
			},
			{
				ID: "upcoming", Name: "Booth duty", Date: "2026-09-14", StartTime: "09:00",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusConfirmed}},
			},
			{
				ID: "same-day", Name: "Today shift", Date: "2026-09-12", StartTime: "18:00",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusConfirmed}},
			},
			{
				ID: "done", Name: "Setup", Date: "2026-09-01", StartTime: "08:00",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusConfirmed}},
			},
			{
				ID: "declined", Name: "Skipped", Date: "2026-09-15",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusDeclined}},
			},
			{
				ID: "cancelled", Name: "Pulled", Date: "2026-09-16",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.Status("canceled")}},
			},
			{
				ID: "other-worker", Name: "Not mine", Date: "2026-09-17",
				Assignments: []model.Assignment{{WorkerID: "w2", Status: model.StatusConfirmed}},
			},
			{
				ID: "legacy", Name: "Old import", Date: "2026-09-18",
				AssignedWorkerIDs: []string{"w1"},
			},
		},
	}

	buckets := WorkerShifts(state, "w1", today)

	inviteIDs := make([]string, len(buckets.OpenInvites))
	for i, j := range buckets.OpenInvites {
		inviteIDs[i] = j.ID
	}
	assert.Equal(t, []string{"legacy", "invite"}, inviteIDs, "legacy shape reads as an open invite, sorted by start")

	upcomingIDs := make([]string, len(buckets.Upcoming))
	for i, j := range buckets.Upcoming {
		upcomingIDs[i] = j.ID
	}
	assert.Equal(t, []string{"same-day", "upcoming"}, upcomingIDs, "a shift later today is still upcoming")

	require.Len(t, buckets.Completed, 1)
	assert.Equal(t, "done", buckets.Completed[0].ID)
}

func TestWorkerShiftsUndatedJobsSortLast(t *testing.T) {
	state := cache.State{
		Jobs: []model.Job{
			{
				ID:          "undated",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusInvited}},
			},
			{
				ID: "dated", Date: "2026-09-20", StartTime: "08:00",
				Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusInvited}},
			},
		},
	}

	buckets := WorkerShifts(state, "w1", time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC))

	require.Len(t, buckets.OpenInvites, 2)
	assert.Equal(t, "dated", buckets.OpenInvites[0].ID)
	assert.Equal(t, "undated", buckets.OpenInvites[1].ID)
}
