package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/photoframebackend/models"
)

// at builds a time on a known calendar: 2025-06-02 is a Monday.
func at(day time.Weekday, hour, minute int) time.Time {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday
	offset := (int(day) - int(time.Monday) + 7) % 7
	return base.AddDate(0, 0, offset).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func entry(on, off string, days ...int) models.TVSchedule {
	return models.TVSchedule{OnTime: on, OffTime: off, Days: days, Enabled: true}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 450, minutes)

	for _, bad := range []string{"25:00", "12:60", "noon", "", "-1:30", "07:30xyz", "7:5"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestSimpleWindow(t *testing.T) {
	entries := []models.TVSchedule{entry("07:00", "22:00", 0, 1, 2, 3, 4)} // weekdays

	assert.True(t, IsActive(entries, at(time.Monday, 12, 0)))
	assert.True(t, IsActive(entries, at(time.Monday, 7, 0)))   // inclusive start
	assert.False(t, IsActive(entries, at(time.Monday, 22, 0))) // exclusive end
	assert.False(t, IsActive(entries, at(time.Monday, 6, 59)))
	assert.False(t, IsActive(entries, at(time.Saturday, 12, 0)))
}

func TestWindowWrappingMidnight(t *testing.T) {
	// On Monday 22:00 through Tuesday 06:00.
	entries := []models.TVSchedule{entry("22:00", "06:00", 0)}

	assert.True(t, IsActive(entries, at(time.Monday, 23, 0)))
	assert.True(t, IsActive(entries, at(time.Tuesday, 2, 0)))  // spills into Tuesday
	assert.False(t, IsActive(entries, at(time.Monday, 21, 0))) // before on-time
	assert.False(t, IsActive(entries, at(time.Tuesday, 6, 0))) // off-time reached
	assert.False(t, IsActive(entries, at(time.Wednesday, 2, 0)))
}

func TestEmptyDaySetMatchesNothing(t *testing.T) {
	entries := []models.TVSchedule{entry("00:00", "23:59")}
	assert.False(t, IsActive(entries, at(time.Monday, 12, 0)))
}

func TestDisabledEntryIgnored(t *testing.T) {
	e := entry("00:00", "23:59", 0, 1, 2, 3, 4, 5, 6)
	e.Enabled = false
	assert.False(t, IsActive([]models.TVSchedule{e}, at(time.Monday, 12, 0)))
}

func TestOverlappingEntriesAreAUnion(t *testing.T) {
	entries := []models.TVSchedule{
		entry("07:00", "12:00", 0),
		entry("11:00", "22:00", 0),
	}
	assert.True(t, IsActive(entries, at(time.Monday, 11, 30))) // both match
	assert.True(t, IsActive(entries, at(time.Monday, 8, 0)))   // first only
	assert.True(t, IsActive(entries, at(time.Monday, 15, 0)))  // second only
	assert.False(t, IsActive(entries, at(time.Monday, 23, 0)))
}

func TestDeployPermitted(t *testing.T) {
	entries := []models.TVSchedule{entry("07:00", "22:00", 0)}

	assert.False(t, DeployPermitted(entries, at(time.Monday, 12, 0)))
	assert.True(t, DeployPermitted(entries, at(time.Monday, 23, 0)))
	assert.True(t, DeployPermitted(nil, at(time.Monday, 12, 0))) // nothing to protect
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(entry("07:00", "22:00", 0, 6)))
	assert.Error(t, ValidateSchedule(entry("25:00", "22:00", 0)))
	assert.Error(t, ValidateSchedule(entry("07:00", "22:00", 8)))
	assert.Error(t, ValidateSchedule(entry("07:00", "22:00", -1)))
}

// fakeCommander records power commands.
type fakeCommander struct {
	available bool
	calls     []bool
	err       error
}

func (f *fakeCommander) Available() bool { return f.available }
func (f *fakeCommander) SetPower(on bool) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, on)
	return nil
}

type fixedClock struct{ t time.Time }

func (f *fixedClock) Now() time.Time { return f.t }

func TestPowerControllerSendsOnlyOnChange(t *testing.T) {
	cmd := &fakeCommander{available: true}
	clock := &fixedClock{t: at(time.Monday, 12, 0)}
	entries := []models.TVSchedule{entry("07:00", "22:00", 0)}

	pc := &PowerController{
		Commander: cmd,
		Clock:     clock,
		Schedules: func() []models.TVSchedule { return entries },
	}

	pc.Tick()
	pc.Tick()
	assert.Equal(t, []bool{true}, cmd.calls, "repeated ticks in the same state send once")

	clock.t = at(time.Monday, 23, 0)
	pc.Tick()
	assert.Equal(t, []bool{true, false}, cmd.calls)
}

func TestPowerControllerNoSchedulesNoCommands(t *testing.T) {
	cmd := &fakeCommander{available: true}
	pc := &PowerController{
		Commander: cmd,
		Clock:     &fixedClock{t: at(time.Monday, 12, 0)},
		Schedules: func() []models.TVSchedule { return nil },
	}
	pc.Tick()
	assert.Empty(t, cmd.calls)
}
