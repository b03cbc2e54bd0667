package display

import (
	"math"
	"time"

	"gnsshud/internal/nmea"
)

// GridLocator computes the 8-character Maidenhead locator for a coordinate
// pair. ok is false when the position falls outside the grid, which covers
// latitudes below 90 and longitudes below 180.
func GridLocator(lat, lon nmea.Coordinate) (string, bool) {
	fLat := (lat.Decimal() + 90) / 10  // 18 fields of 10 degrees
	fLon := (lon.Decimal() + 180) / 20 // 18 fields of 20 degrees
	if fLat < 0 || fLat >= 18 || fLon < 0 || fLon >= 18 {
		return "", false
	}

	var sg [8]byte
	sg[0] = 'A' + byte(math.Floor(fLon))
	sg[1] = 'A' + byte(math.Floor(fLat))
	fLat = (fLat - math.Floor(fLat)) * 10
	fLon = (fLon - math.Floor(fLon)) * 10
	sg[2] = '0' + byte(math.Floor(fLon))
	sg[3] = '0' + byte(math.Floor(fLat))
	fLat = (fLat - math.Floor(fLat)) * 24
	fLon = (fLon - math.Floor(fLon)) * 24
	sg[4] = 'A' + byte(math.Floor(fLon))
	sg[5] = 'A' + byte(math.Floor(fLat))
	fLat = (fLat - math.Floor(fLat)) * 10
	fLon = (fLon - math.Floor(fLon)) * 10
	sg[6] = '0' + byte(math.Floor(fLon))
	sg[7] = '0' + byte(math.Floor(fLat))
	return string(sg[:]), true
}

// LocalDateTime renders the fix date and time shifted by a whole-hour UTC
// offset as "YYMMDD HH:MM:SS". The century defaults to 20xx until a ZDA
// sentence has established it.
func LocalDateTime(d nmea.Date, c nmea.Clock, century, offsetHours int) string {
	year := 2000 + d.Year
	if century != 0 {
		year = century*100 + d.Year
	}
	t := time.Date(year, time.Month(d.Month), d.Day, c.Hour, c.Minute, int(c.Second), 0, time.UTC)
	t = t.Add(time.Duration(offsetHours) * time.Hour)
	return t.Format("060102 15:04:05")
}
