package nmea

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinate_Decimal(t *testing.T) {
	assert.InDelta(t, 48.1173, Coordinate{Degrees: 48, Minutes: 7.038, Hemisphere: 'N'}.Decimal(), 1e-4)
	assert.InDelta(t, -48.1173, Coordinate{Degrees: 48, Minutes: 7.038, Hemisphere: 'S'}.Decimal(), 1e-4)
	assert.InDelta(t, 11.5167, Coordinate{Degrees: 11, Minutes: 31.0, Hemisphere: 'E'}.Decimal(), 1e-4)
	assert.InDelta(t, -11.5167, Coordinate{Degrees: 11, Minutes: 31.0, Hemisphere: 'W'}.Decimal(), 1e-4)
}

func TestCoordinate_DMS(t *testing.T) {
	d, m, s := Coordinate{Degrees: 48, Minutes: 7.5, Hemisphere: 'N'}.DMS()
	assert.Equal(t, 48, d)
	assert.Equal(t, 7, m)
	assert.Equal(t, 30, s)
}

func TestCoordinate_String(t *testing.T) {
	assert.Equal(t, " 48 07.038'N", Coordinate{Degrees: 48, Minutes: 7.038, Hemisphere: 'N'}.String())
	assert.Equal(t, "113 11.120'W", Coordinate{Degrees: 113, Minutes: 11.12, Hemisphere: 'W'}.String())
}

func TestCompassDirection(t *testing.T) {
	cases := []struct {
		course float64
		want   string
	}{
		{0, "N"},
		{11.24, "N"},
		{11.25, "NNE"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{348.74, "NNW"},
		{348.75, "N"},
		{359.9, "N"},
	}
	for _, tc := range cases {
		fx := NewFix()
		fx.Course = tc.course
		assert.Equal(t, tc.want, fx.CompassDirection(), "course %.2f", tc.course)
	}
}

func TestSpeedConversions(t *testing.T) {
	fx := NewFix()
	fx.Speed = 10
	assert.InDelta(t, 18.52, fx.SpeedKPH(), 1e-9)
	assert.InDelta(t, 11.51, fx.SpeedMPH(), 1e-9)
}

func TestTimeSinceFix(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	fx := NewFix()
	fx.now = func() time.Time { return now }

	_, ok := fx.TimeSinceFix()
	assert.False(t, ok)

	fx.stampFixTime()
	now = now.Add(3 * time.Second)
	age, ok := fx.TimeSinceFix()
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, age)
}

func TestSnapshot_DeepCopies(t *testing.T) {
	fx := NewFix()
	elev := 40
	fx.SatellitesUsed = []int{4, 5}
	fx.Satellites = map[int]Satellite{7: {Elevation: &elev}}

	snap := fx.Snapshot()
	fx.SatellitesUsed[0] = 99
	fx.Satellites[8] = Satellite{}

	assert.Equal(t, []int{4, 5}, snap.SatellitesUsed)
	assert.Len(t, snap.Satellites, 1)
}

func TestSnapshot_FixAge(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	fx := NewFix()
	fx.now = func() time.Time { return now }

	assert.False(t, fx.Snapshot().HasFix)

	fx.stampFixTime()
	now = now.Add(1500 * time.Millisecond)
	snap := fx.Snapshot()
	assert.True(t, snap.HasFix)
	assert.Equal(t, 1500*time.Millisecond, snap.FixAge)
}

func TestSatelliteGroupBookkeeping(t *testing.T) {
	fx := NewFix()
	assert.False(t, fx.SatelliteDataComplete())

	fx.groupTotal = 2
	fx.groupLast = 1
	assert.False(t, fx.SatelliteDataComplete())

	fx.groupLast = 2
	assert.True(t, fx.SatelliteDataComplete())

	fx.MarkSatelliteDataRead()
	assert.False(t, fx.SatelliteDataComplete())
}
