package nmea

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Fix quality reported by GSA sentences.
const (
	NoFix = 1
	Fix2D = 2
	Fix3D = 3
)

// Clock is a UTC time-of-day as reported by the receiver. The zero value is
// the "no time yet" sentinel.
type Clock struct {
	Hour   int
	Minute int
	Second float64
}

// Date is a day/month/two-digit-year triple. The century is tracked
// separately on Fix because only ZDA sentences carry it.
type Date struct {
	Day   int
	Month int
	Year  int
}

// Coordinate is the canonical degrees + decimal-minutes + hemisphere form in
// which NMEA sentences report positions. Hemisphere is one of 'N', 'S' for
// latitudes and 'E', 'W' for longitudes.
type Coordinate struct {
	Degrees    int
	Minutes    float64
	Hemisphere byte
}

// Decimal returns the coordinate as signed decimal degrees. South and west
// are negative.
func (c Coordinate) Decimal() float64 {
	d := float64(c.Degrees) + c.Minutes/60
	if c.Hemisphere == 'S' || c.Hemisphere == 'W' {
		return -d
	}
	return d
}

// DMS returns the coordinate as whole degrees, minutes and seconds.
func (c Coordinate) DMS() (deg, min, sec int) {
	return c.Degrees, int(c.Minutes), int(math.Round(math.Mod(c.Minutes, 1) * 60))
}

// String renders the coordinate in the fixed-width form the status display
// uses, e.g. ` 48 07.038'N`.
func (c Coordinate) String() string {
	return fmt.Sprintf("%3d %06.3f'%c", c.Degrees, c.Minutes, c.Hemisphere)
}

// Satellite is per-PRN telemetry from GSV sentences. Any of the three values
// may be absent while the receiver is not tracking the satellite.
type Satellite struct {
	Elevation *int
	Azimuth   *int
	SNR       *int
}

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Fix is the receiver state assembled from decoded sentences. It has a
// single writer (the parser drive loop); other goroutines read value copies
// obtained via Snapshot.
type Fix struct {
	Time    Clock
	Date    Date
	Century int // 0 until a ZDA sentence has been decoded

	Latitude  Coordinate
	Longitude Coordinate

	Speed       float64 // knots
	Course      float64 // degrees, 0-359.999
	Altitude    float64 // meters
	GeoidHeight float64 // meters

	SatellitesInView int
	SatellitesInUse  int
	SatellitesUsed   []int
	Satellites       map[int]Satellite

	// Dilution of precision. NaN means "not reported"; zero is a real value.
	HDOP float64
	PDOP float64
	VDOP float64

	FixStat int // GGA fix quality, 0 = no fix
	FixType int // GSA fix type: NoFix, Fix2D, Fix3D
	Valid   bool

	CleanSentences  uint64
	ParsedSentences uint64
	CRCFails        uint64

	groupTotal int
	groupLast  int

	fixTime time.Time
	now     func() time.Time
}

// Snapshot is a value copy of Fix safe to hand across goroutines.
type Snapshot struct {
	Time    Clock
	Date    Date
	Century int

	Latitude  Coordinate
	Longitude Coordinate

	Speed       float64
	Course      float64
	Altitude    float64
	GeoidHeight float64

	SatellitesInView int
	SatellitesInUse  int
	SatellitesUsed   []int
	Satellites       map[int]Satellite

	HDOP float64
	PDOP float64
	VDOP float64

	FixStat int
	FixType int
	Valid   bool

	CleanSentences  uint64
	ParsedSentences uint64
	CRCFails        uint64

	HasFix bool
	FixAge time.Duration
}

func NewFix() *Fix {
	nan := math.NaN()
	return &Fix{
		Latitude:   Coordinate{Hemisphere: 'N'},
		Longitude:  Coordinate{Hemisphere: 'W'},
		Satellites: map[int]Satellite{},
		HDOP:       nan,
		PDOP:       nan,
		VDOP:       nan,
		FixType:    NoFix,
		now:        time.Now,
	}
}

// Snapshot deep-copies the satellite containers so the caller can hold the
// result while decoding continues.
func (f *Fix) Snapshot() Snapshot {
	s := Snapshot{
		Time:             f.Time,
		Date:             f.Date,
		Century:          f.Century,
		Latitude:         f.Latitude,
		Longitude:        f.Longitude,
		Speed:            f.Speed,
		Course:           f.Course,
		Altitude:         f.Altitude,
		GeoidHeight:      f.GeoidHeight,
		SatellitesInView: f.SatellitesInView,
		SatellitesInUse:  f.SatellitesInUse,
		HDOP:             f.HDOP,
		PDOP:             f.PDOP,
		VDOP:             f.VDOP,
		FixStat:          f.FixStat,
		FixType:          f.FixType,
		Valid:            f.Valid,
		CleanSentences:   f.CleanSentences,
		ParsedSentences:  f.ParsedSentences,
		CRCFails:         f.CRCFails,
	}
	if len(f.SatellitesUsed) > 0 {
		s.SatellitesUsed = append([]int(nil), f.SatellitesUsed...)
	}
	s.Satellites = make(map[int]Satellite, len(f.Satellites))
	for prn, sat := range f.Satellites {
		s.Satellites[prn] = sat
	}
	if !f.fixTime.IsZero() {
		s.HasFix = true
		s.FixAge = f.now().Sub(f.fixTime)
	}
	return s
}

// TimeSinceFix reports how long ago the last fix-bearing sentence was
// decoded. ok is false when no fix has ever been seen.
func (f *Fix) TimeSinceFix() (age time.Duration, ok bool) {
	if f.fixTime.IsZero() {
		return 0, false
	}
	return f.now().Sub(f.fixTime), true
}

func (f *Fix) stampFixTime() {
	f.fixTime = f.now()
}

// SatelliteDataComplete reports whether every sentence of the current GSV
// group has been decoded, i.e. the satellite map covers the whole
// constellation snapshot the receiver advertised.
func (f *Fix) SatelliteDataComplete() bool {
	return f.groupTotal > 0 && f.groupTotal == f.groupLast
}

// MarkSatelliteDataRead marks the current GSV group consumed so that
// SatelliteDataComplete reports false until a fresh group finishes.
func (f *Fix) MarkSatelliteDataRead() {
	f.groupLast = 0
}

// SatellitesVisible returns the PRNs currently present in the satellite map,
// in ascending order.
func (f *Fix) SatellitesVisible() []int {
	prns := make([]int, 0, len(f.Satellites))
	for prn := range f.Satellites {
		prns = append(prns, prn)
	}
	sort.Ints(prns)
	return prns
}

// CompassDirection maps the current course onto a 16-point compass rose.
func (f *Fix) CompassDirection() string {
	off := math.Mod(f.Course+11.25, 360)
	return compassPoints[int(off/22.5)%16]
}

// SpeedKPH converts the ground speed from knots.
func (f *Fix) SpeedKPH() float64 { return f.Speed * 1.852 }

// SpeedMPH converts the ground speed from knots.
func (f *Fix) SpeedMPH() float64 { return f.Speed * 1.151 }
