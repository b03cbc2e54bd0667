package nmea

import (
	"math"
	"strconv"
)

// defaultHandlers lists the supported sentences for the GP, GL and GN
// talkers. Receivers that emit other combinations are wired up at runtime
// through Parser.SetHandler.
func defaultHandlers() map[string]Handler {
	return map[string]Handler{
		"GPRMC": HandleRMC, "GLRMC": HandleRMC, "GNRMC": HandleRMC,
		"GPGGA": HandleGGA, "GLGGA": HandleGGA, "GNGGA": HandleGGA,
		"GPVTG": HandleVTG, "GLVTG": HandleVTG, "GNVTG": HandleVTG,
		"GPGSA": HandleGSA, "GLGSA": HandleGSA, "GNGSA": HandleGSA,
		"GPGSV": HandleGSV, "GLGSV": HandleGSV,
		"GPGLL": HandleGLL, "GLGLL": HandleGLL, "GNGLL": HandleGLL,
		"GPZDA": HandleZDA,
	}
}

// parseClock parses an hhmmss[.sss] field. An empty field is legal and
// yields the cleared sentinel.
func parseClock(s string) (Clock, bool) {
	if s == "" {
		return Clock{}, true
	}
	if len(s) < 6 {
		return Clock{}, false
	}
	h, err1 := strconv.Atoi(s[0:2])
	m, err2 := strconv.Atoi(s[2:4])
	sec, err3 := strconv.ParseFloat(s[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return Clock{}, false
	}
	if m >= 60 || sec >= 60 {
		return Clock{}, false
	}
	return Clock{Hour: h % 24, Minute: m, Second: sec}, true
}

// parseDate parses a ddmmyy field.
func parseDate(s string) (Date, bool) {
	if len(s) < 6 {
		return Date{}, false
	}
	d, err1 := strconv.Atoi(s[0:2])
	m, err2 := strconv.Atoi(s[2:4])
	y, err3 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, false
	}
	return Date{Day: d, Month: m, Year: y}, true
}

// parseCoordinates parses a latitude ddmm.mmmm / longitude dddmm.mmmm pair
// with their hemisphere fields. Hemisphere letters outside N/S for latitude
// or E/W for longitude reject the pair.
func parseCoordinates(latS, latH, lonS, lonH string) (lat, lon Coordinate, ok bool) {
	if (latH != "N" && latH != "S") || (lonH != "E" && lonH != "W") {
		return lat, lon, false
	}
	if len(latS) < 3 || len(lonS) < 4 {
		return lat, lon, false
	}
	latDeg, err1 := strconv.Atoi(latS[0:2])
	latMin, err2 := strconv.ParseFloat(latS[2:], 64)
	lonDeg, err3 := strconv.Atoi(lonS[0:3])
	lonMin, err4 := strconv.ParseFloat(lonS[3:], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return lat, lon, false
	}
	if latMin >= 60 || lonMin >= 60 {
		return lat, lon, false
	}
	lat = Coordinate{Degrees: latDeg, Minutes: latMin, Hemisphere: latH[0]}
	lon = Coordinate{Degrees: lonDeg, Minutes: lonMin, Hemisphere: lonH[0]}
	return lat, lon, true
}

func clearPosition(fx *Fix) {
	fx.Latitude = Coordinate{Hemisphere: 'N'}
	fx.Longitude = Coordinate{Hemisphere: 'W'}
}

// HandleRMC decodes the recommended-minimum sentence: time, date, position,
// speed, course and the receiver validity flag. An invalid-status sentence
// clears position, speed and course but deliberately leaves time and date
// as previously decoded.
func HandleRMC(fx *Fix, f []string) bool {
	if len(f) < 10 {
		return false
	}
	if f[2] != "A" {
		clearPosition(fx)
		fx.Speed = 0
		fx.Course = 0
		fx.Valid = false
		return true
	}

	clock, ok := parseClock(f[1])
	if !ok {
		return false
	}
	date := Date{}
	if f[9] != "" {
		if date, ok = parseDate(f[9]); !ok {
			return false
		}
	}
	lat, lon, ok := parseCoordinates(f[3], f[4], f[5], f[6])
	if !ok {
		return false
	}
	speed, err := strconv.ParseFloat(f[7], 64)
	if err != nil {
		return false
	}
	course := 0.0
	if f[8] != "" {
		if course, err = strconv.ParseFloat(f[8], 64); err != nil {
			return false
		}
	}

	fx.Time = clock
	fx.Date = date
	fx.Latitude = lat
	fx.Longitude = lon
	fx.Speed = speed
	fx.Course = course
	fx.Valid = true
	fx.stampFixTime()
	return true
}

// HandleGLL decodes the geographic-position sentence: time, position and
// validity. Clear-on-invalid mirrors HandleRMC.
func HandleGLL(fx *Fix, f []string) bool {
	if len(f) < 7 {
		return false
	}
	if f[6] != "A" {
		clearPosition(fx)
		fx.Valid = false
		return true
	}

	clock, ok := parseClock(f[5])
	if !ok {
		return false
	}
	lat, lon, ok := parseCoordinates(f[1], f[2], f[3], f[4])
	if !ok {
		return false
	}

	fx.Time = clock
	fx.Latitude = lat
	fx.Longitude = lon
	fx.Valid = true
	fx.stampFixTime()
	return true
}

// HandleVTG decodes track-made-good and ground speed. Null fields default
// to zero.
func HandleVTG(fx *Fix, f []string) bool {
	if len(f) < 6 {
		return false
	}
	var err error
	course := 0.0
	if f[1] != "" {
		if course, err = strconv.ParseFloat(f[1], 64); err != nil {
			return false
		}
	}
	speed := 0.0
	if f[5] != "" {
		if speed, err = strconv.ParseFloat(f[5], 64); err != nil {
			return false
		}
	}
	fx.Course = course
	fx.Speed = speed
	return true
}

// HandleGGA decodes fix data: time, satellites in use, fix quality and
// HDOP always; position, altitude and geoid height only while the fix
// quality is non-zero.
func HandleGGA(fx *Fix, f []string) bool {
	if len(f) < 12 {
		return false
	}
	inUse, err := strconv.Atoi(f[7])
	if err != nil {
		return false
	}
	fixStat, err := strconv.Atoi(f[6])
	if err != nil {
		return false
	}
	clock, ok := parseClock(f[1])
	if !ok {
		return false
	}
	hdop, err := strconv.ParseFloat(f[8], 64)
	if err != nil {
		hdop = math.NaN()
	}

	if fixStat != 0 {
		lat, lon, ok := parseCoordinates(f[2], f[3], f[4], f[5])
		if !ok {
			return false
		}
		altitude, err1 := strconv.ParseFloat(f[9], 64)
		geoid, err2 := strconv.ParseFloat(f[11], 64)
		if err1 != nil || err2 != nil {
			altitude = 0
			geoid = 0
		}
		fx.Latitude = lat
		fx.Longitude = lon
		fx.Altitude = altitude
		fx.GeoidHeight = geoid
		fx.stampFixTime()
	}

	fx.Time = clock
	fx.SatellitesInUse = inUse
	fx.HDOP = hdop
	fx.FixStat = fixStat
	return true
}

// HandleGSA decodes fix type, the PRNs used in the solution and the three
// DOP values. Decoding is all-or-nothing: any malformed numeric field fails
// the sentence without touching the fix.
func HandleGSA(fx *Fix, f []string) bool {
	if len(f) < 18 {
		return false
	}
	fixType, err := strconv.Atoi(f[2])
	if err != nil {
		return false
	}

	// Up to 12 PRNs, read until the first empty field.
	used := make([]int, 0, 12)
	for i := 3; i < 15; i++ {
		if f[i] == "" {
			break
		}
		prn, err := strconv.Atoi(f[i])
		if err != nil {
			return false
		}
		used = append(used, prn)
	}

	pdop, err1 := strconv.ParseFloat(f[15], 64)
	hdop, err2 := strconv.ParseFloat(f[16], 64)
	vdop, err3 := strconv.ParseFloat(f[17], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}

	if fixType > NoFix {
		fx.stampFixTime()
	}
	fx.FixType = fixType
	fx.SatellitesUsed = used
	fx.PDOP = pdop
	fx.HDOP = hdop
	fx.VDOP = vdop
	return true
}

// HandleGSV decodes one satellites-in-view sentence: the group index and
// total, the in-view count and up to four per-satellite records. Elevation,
// azimuth and SNR may each be legitimately absent. The first sentence of a
// group replaces the satellite map; later sentences merge into it.
func HandleGSV(fx *Fix, f []string) bool {
	if len(f) < 4 {
		return false
	}
	total, err1 := strconv.Atoi(f[1])
	index, err2 := strconv.Atoi(f[2])
	inView, err3 := strconv.Atoi(f[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}

	// Non-last sentences carry four satellites (field positions 4..19);
	// the last carries whatever remains.
	limit := 20
	if total == index {
		limit = (inView - (total-1)*4) * 5
	}

	sats := map[int]Satellite{}
	for i := 4; i < limit; i += 4 {
		if i >= len(f) {
			return false
		}
		if f[i] == "" {
			// No PRN: no more satellites in this sentence.
			break
		}
		prn, err := strconv.Atoi(f[i])
		if err != nil {
			return false
		}
		sats[prn] = Satellite{
			Elevation: optionalInt(f, i+1),
			Azimuth:   optionalInt(f, i+2),
			SNR:       optionalInt(f, i+3),
		}
	}

	fx.groupTotal = total
	fx.groupLast = index
	fx.SatellitesInView = inView
	if index == 1 {
		fx.Satellites = sats
	} else {
		for prn, sat := range sats {
			fx.Satellites[prn] = sat
		}
	}
	return true
}

func optionalInt(f []string, i int) *int {
	if i >= len(f) {
		return nil
	}
	v, err := strconv.Atoi(f[i])
	if err != nil {
		return nil
	}
	return &v
}

// HandleZDA decodes the date/time sentence that carries the century. The
// century is monotonic: a value equal to the known century or one above it
// is accepted, anything else rejects the sentence and leaves the date
// untouched.
func HandleZDA(fx *Fix, f []string) bool {
	if len(f) < 5 {
		return false
	}
	day, err1 := strconv.Atoi(f[2])
	month, err2 := strconv.Atoi(f[3])
	if err1 != nil || err2 != nil || len(f[4]) < 4 {
		return false
	}
	century, err1 := strconv.Atoi(f[4][0:2])
	year, err2 := strconv.Atoi(f[4][2:4])
	if err1 != nil || err2 != nil {
		return false
	}
	if fx.Century != 0 && century != fx.Century && century != fx.Century+1 {
		return false
	}
	clock, ok := parseClock(f[1])
	if !ok {
		return false
	}

	fx.Century = century
	fx.Date = Date{Day: day, Month: month, Year: year}
	fx.Time = clock
	return true
}
