package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewtech/crewsync/pkg/cache"
	"github.com/crewtech/crewsync/pkg/core/model"
	"github.com/crewtech/crewsync/pkg/remote"
	"github.com/crewtech/crewsync/pkg/remote/remotetest"
)

// memCache implements Cache without touching disk.
type memCache struct {
	state cache.State
}

func newMemCache() *memCache {
	return &memCache{state: cache.State{Workers: []model.Worker{}, Jobs: []model.Job{}}}
}

func (m *memCache) Load() cache.State      { return m.state }
func (m *memCache) Save(state cache.State) { m.state = state }

func newTestSyncer() (*Syncer, *remotetest.Fake, *memCache) {
	fake := remotetest.New()
	mem := newMemCache()
	return New(fake, mem, zap.NewNop()), fake, mem
}

func TestPushJobOffline(t *testing.T) {
	s, fake, _ := newTestSyncer()
	s.SetOnline(false)

	job := &model.Job{ID: testUUID, Name: "Teardown"}

	_, err := s.PushJob(context.Background(), job, Changed(FieldName))
	require.ErrorIs(t, err, ErrOffline)
	_, err = s.PushJob(context.Background(), job, Changed(FieldName))
	require.ErrorIs(t, err, ErrOffline)

	assert.Equal(t, 2, s.State().PendingWrites, "each deferred push counts")
	assert.Equal(t, 0, fake.PushedJobs, "no network I/O while offline")
}

func TestPushJobSuccessResetsPending(t *testing.T) {
	s, fake, _ := newTestSyncer()

	s.SetOnline(false)
	job := &model.Job{ID: testUUID, Name: "Teardown"}
	_, err := s.PushJob(context.Background(), job, Changed(FieldName))
	require.ErrorIs(t, err, ErrOffline)
	require.Equal(t, 1, s.State().PendingWrites)

	s.SetOnline(true)
	row, err := s.PushJob(context.Background(), job, Changed(FieldName))
	require.NoError(t, err)

	assert.Equal(t, "Teardown", row.Name)
	state := s.State()
	assert.Equal(t, 0, state.PendingWrites)
	assert.False(t, state.Syncing)
	assert.False(t, state.LastSyncAt.IsZero())
	assert.Empty(t, state.LastError)
	_, exists := fake.Job(testUUID)
	assert.True(t, exists)
}

func TestPushJobFailureRecordsError(t *testing.T) {
	s, fake, _ := newTestSyncer()
	fake.FailNextUpsert = true

	_, err := s.PushJob(context.Background(), &model.Job{ID: testUUID, Name: "x"}, Changed(FieldName))
	require.Error(t, err)

	state := s.State()
	assert.False(t, state.Syncing)
	assert.NotEmpty(t, state.LastError)
}

func TestPushJobAssignmentsOnlyPatchesExistingRow(t *testing.T) {
	s, fake, _ := newTestSyncer()
	fake.SeedJob(model.Job{ID: testUUID, Name: "Booth setup", Notes: "keep me"})

	job := &model.Job{
		ID:          testUUID,
		Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusConfirmed}},
	}
	_, err := s.PushJob(context.Background(), job, Changed(FieldAssignments))
	require.NoError(t, err)

	row, ok := fake.Job(testUUID)
	require.True(t, ok)
	assert.Equal(t, "keep me", row.Notes, "patch must not touch other columns")
	require.Len(t, row.Assignments, 1)
	assert.Equal(t, model.StatusConfirmed, row.Assignments[0].Status)
}

func TestPushJobAssignmentsOnlyMissingRow(t *testing.T) {
	s, _, _ := newTestSyncer()

	job := &model.Job{
		ID:          testUUID,
		Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusConfirmed}},
	}
	_, err := s.PushJob(context.Background(), job, Changed(FieldAssignments))
	assert.ErrorIs(t, err, remote.ErrJobNotFound, "a pure status change must never create a job row")
}

func TestPushJobAssignmentsOnlyUnsyncedJob(t *testing.T) {
	s, fake, _ := newTestSyncer()

	// A non-UUID id cannot name a remote row, so the push is rejected
	// without a store call rather than creating a phantom job.
	job := &model.Job{
		ID:          "job-1755901234567",
		Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusDeclined}},
	}
	_, err := s.PushJob(context.Background(), job, Changed(FieldAssignments))
	assert.ErrorIs(t, err, remote.ErrJobNotFound)
	assert.Equal(t, 0, fake.PushedJobs)
}

func TestPushJobIdempotent(t *testing.T) {
	s, fake, _ := newTestSyncer()

	job := &model.Job{
		ID:          testUUID,
		Name:        "Load-in",
		Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusInvited}},
	}
	changed := Changed(FieldName, FieldAssignments)

	first, err := s.PushJob(context.Background(), job, changed)
	require.NoError(t, err)
	second, err := s.PushJob(context.Background(), job, changed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, fake.PushedJobs)
}

func TestDisjointPushesConvergeInEitherOrder(t *testing.T) {
	run := func(notesFirst bool) model.Job {
		s, fake, _ := newTestSyncer()
		fake.SeedJob(model.Job{ID: testUUID, Name: "Booth setup"})

		job := &model.Job{
			ID:          testUUID,
			Notes:       "bring ladder",
			Assignments: []model.Assignment{{WorkerID: "w1", Status: model.StatusConfirmed}},
		}
		pushes := []FieldSet{Changed(FieldNotes), Changed(FieldAssignments)}
		if !notesFirst {
			pushes[0], pushes[1] = pushes[1], pushes[0]
		}
		for _, changed := range pushes {
			_, err := s.PushJob(context.Background(), job, changed)
			require.NoError(t, err)
		}

		row, ok := fake.Job(testUUID)
		require.True(t, ok)
		return row
	}

	a := run(true)
	b := run(false)
	assert.Equal(t, a, b, "disjoint field updates commute")
	assert.Equal(t, "bring ladder", a.Notes)
	require.Len(t, a.Assignments, 1)
}

func TestPushWorkerOffline(t *testing.T) {
	s, _, _ := newTestSyncer()
	s.SetOnline(false)

	_, err := s.PushWorker(context.Background(), model.Worker{ID: "w1", Name: "Ana"})
	require.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, 1, s.State().PendingWrites)
}

func TestPushWorkerSendsTriState(t *testing.T) {
	s, fake, _ := newTestSyncer()

	_, err := s.PushWorker(context.Background(), model.Worker{ID: "w1", Name: "Ana", SMSOptIn: model.OptInUnset})
	require.NoError(t, err)

	got, found, err := fake.ReadWorker(context.Background(), "w1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.OptInUnset, got.SMSOptIn, "unset consent must not be collapsed to no")
}

func TestPullJobsReplacesCache(t *testing.T) {
	s, fake, mem := newTestSyncer()
	mem.Save(cache.State{
		Workers: []model.Worker{},
		Jobs:    []model.Job{{ID: "stale-local", Name: "gone remotely"}},
	})
	fake.SeedJob(model.Job{ID: testUUID, Name: "Load-in", AssignedWorkerIDs: []string{"w1"}})

	jobs, err := s.PullJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	state := mem.Load()
	require.Len(t, state.Jobs, 1)
	assert.Equal(t, testUUID, state.Jobs[0].ID)
	// Legacy shape is repaired on the way in.
	require.Len(t, state.Jobs[0].Assignments, 1)
	assert.Equal(t, model.StatusInvited, state.Jobs[0].Assignments[0].Status)
}

func TestPullJobsEmptyRemoteEmptiesCache(t *testing.T) {
	s, _, mem := newTestSyncer()
	mem.Save(cache.State{
		Workers: []model.Worker{},
		Jobs:    []model.Job{{ID: "local-only"}},
	})

	jobs, err := s.PullJobs(context.Background())
	require.NoError(t, err)

	assert.Empty(t, jobs)
	assert.Empty(t, mem.Load().Jobs, "remote snapshot is authoritative even when empty")
}

func TestPullJobsFailureMarksOffline(t *testing.T) {
	s, fake, mem := newTestSyncer()
	mem.Save(cache.State{
		Workers: []model.Worker{},
		Jobs:    []model.Job{{ID: "local-only"}},
	})
	fake.Down = true

	_, err := s.PullJobs(context.Background())
	require.Error(t, err)

	assert.False(t, s.State().Online)
	assert.Len(t, mem.Load().Jobs, 1, "failed pull leaves the cache untouched")
}

func TestPullWorkersReplacesCache(t *testing.T) {
	s, fake, mem := newTestSyncer()
	fake.SeedWorker(model.Worker{ID: "w1", Name: "Ana", SMSOptIn: model.OptInYes})

	workers, err := s.PullWorkers(context.Background())
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "Ana", mem.Load().Workers[0].Name)
}

func TestDeleteJobLocalFirst(t *testing.T) {
	s, fake, mem := newTestSyncer()
	fake.SeedJob(model.Job{ID: testUUID})
	mem.Save(cache.State{
		Workers: []model.Worker{},
		Jobs:    []model.Job{{ID: testUUID}, {ID: "other"}},
	})

	ok := s.DeleteJob(context.Background(), testUUID)
	assert.True(t, ok)

	state := mem.Load()
	require.Len(t, state.Jobs, 1)
	assert.Equal(t, "other", state.Jobs[0].ID)
	_, exists := fake.Job(testUUID)
	assert.False(t, exists)
}

func TestDeleteJobOfflineStillDeletesLocally(t *testing.T) {
	s, fake, mem := newTestSyncer()
	s.SetOnline(false)
	fake.SeedJob(model.Job{ID: testUUID})
	mem.Save(cache.State{
		Workers: []model.Worker{},
		Jobs:    []model.Job{{ID: testUUID}},
	})

	ok := s.DeleteJob(context.Background(), testUUID)
	assert.False(t, ok)

	assert.Empty(t, mem.Load().Jobs, "local delete is unconditional")
	_, exists := fake.Job(testUUID)
	assert.True(t, exists, "remote row survives until a later delete")
	assert.Equal(t, 1, s.State().PendingWrites)
}

func TestCheckOnline(t *testing.T) {
	s, fake, _ := newTestSyncer()

	assert.True(t, s.CheckOnline(context.Background()))
	fake.Down = true
	assert.False(t, s.CheckOnline(context.Background()))
	assert.False(t, s.State().Online)
}

func TestOnChangeNotified(t *testing.T) {
	s, _, _ := newTestSyncer()

	var states []SyncState
	s.OnChange(func(st SyncState) { states = append(states, st) })

	s.SetOnline(false)
	_, err := s.PushJob(context.Background(), &model.Job{ID: testUUID}, Changed(FieldName))
	require.ErrorIs(t, err, ErrOffline)

	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.False(t, last.Online)
	assert.Equal(t, 1, last.PendingWrites)
}
