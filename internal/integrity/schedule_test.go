package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskward/taskward/internal/config"
	"github.com/taskward/taskward/internal/store"
)

func newScheduleFixture() *Monitor {
	fake := &scanFake{}
	return NewMonitor(fake, store.NewForeignKeyManager(fake, nil), nil,
		config.Default().Integrity, nil, nil)
}

func TestAddScheduledCheckAssignsID(t *testing.T) {
	monitor := newScheduleFixture()

	check := &ScheduledCheck{Name: "nightly", CronExpr: "0 2 * * *", Enabled: true}
	require.NoError(t, monitor.AddScheduledCheck(check))
	assert.NotEmpty(t, check.ID)
	assert.False(t, check.CreatedAt.IsZero())
}

func TestAddScheduledCheckValidation(t *testing.T) {
	monitor := newScheduleFixture()

	assert.Error(t, monitor.AddScheduledCheck(nil))
	assert.Error(t, monitor.AddScheduledCheck(&ScheduledCheck{CronExpr: "* * * * *"}))
	assert.Error(t, monitor.AddScheduledCheck(&ScheduledCheck{Name: "no-cron"}))
}

func TestScheduledChecksSortedByName(t *testing.T) {
	monitor := newScheduleFixture()

	for _, name := range []string{"weekly", "hourly", "nightly"} {
		require.NoError(t, monitor.AddScheduledCheck(&ScheduledCheck{
			Name:     name,
			CronExpr: "* * * * *",
		}))
	}

	checks := monitor.ScheduledChecks()
	require.Len(t, checks, 3)
	assert.Equal(t, "hourly", checks[0].Name)
	assert.Equal(t, "nightly", checks[1].Name)
	assert.Equal(t, "weekly", checks[2].Name)
}

func TestRemoveScheduledCheck(t *testing.T) {
	monitor := newScheduleFixture()

	check := &ScheduledCheck{Name: "nightly", CronExpr: "0 2 * * *"}
	require.NoError(t, monitor.AddScheduledCheck(check))
	require.NoError(t, monitor.RemoveScheduledCheck(check.ID))
	assert.Empty(t, monitor.ScheduledChecks())

	assert.Error(t, monitor.RemoveScheduledCheck(check.ID))
	assert.Error(t, monitor.RemoveScheduledCheck("unknown"))
}

func TestSetScheduledCheckEnabled(t *testing.T) {
	monitor := newScheduleFixture()

	check := &ScheduledCheck{Name: "nightly", CronExpr: "0 2 * * *", Enabled: true}
	require.NoError(t, monitor.AddScheduledCheck(check))

	require.NoError(t, monitor.SetScheduledCheckEnabled(check.ID, false))
	assert.False(t, monitor.ScheduledChecks()[0].Enabled)

	require.NoError(t, monitor.SetScheduledCheckEnabled(check.ID, true))
	assert.True(t, monitor.ScheduledChecks()[0].Enabled)

	assert.Error(t, monitor.SetScheduledCheckEnabled("unknown", true))
}
