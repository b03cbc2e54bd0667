package nmea

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentence frames a payload with '$', its XOR checksum and CRLF.
func sentence(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

// feed pushes a string through the parser character by character and
// collects every sentence identifier it reports.
func feed(p *Parser, s string) []string {
	var ids []string
	for i := 0; i < len(s); i++ {
		if id, ok := p.Update(s[i]); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

const ggaPayload = "GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"

// corrupt replaces the checksum field of a framed sentence with "00".
func corrupt(line string) string {
	return line[:len(line)-4] + "00\r\n"
}

func TestUpdate_GGAExample(t *testing.T) {
	p := NewParser()
	ids := feed(p, sentence(ggaPayload))
	require.Equal(t, []string{"GPGGA"}, ids)

	fx := p.Fix()
	assert.Equal(t, Clock{Hour: 12, Minute: 35, Second: 19}, fx.Time)
	assert.Equal(t, Coordinate{Degrees: 48, Minutes: 7.038, Hemisphere: 'N'}, fx.Latitude)
	assert.Equal(t, Coordinate{Degrees: 11, Minutes: 31.0, Hemisphere: 'E'}, fx.Longitude)
	assert.Equal(t, 1, fx.FixStat)
	assert.Equal(t, 8, fx.SatellitesInUse)
	assert.InDelta(t, 0.9, fx.HDOP, 1e-9)
	assert.InDelta(t, 545.4, fx.Altitude, 1e-9)
	assert.InDelta(t, 46.9, fx.GeoidHeight, 1e-9)
	assert.Equal(t, uint64(1), fx.CleanSentences)
	assert.Equal(t, uint64(1), fx.ParsedSentences)
	assert.Equal(t, uint64(0), fx.CRCFails)
}

func TestUpdate_CorruptChecksum(t *testing.T) {
	p := NewParser()
	ids := feed(p, corrupt(sentence(ggaPayload)))

	assert.Empty(t, ids)
	assert.Equal(t, uint64(1), p.Fix().CRCFails)
	assert.Equal(t, uint64(0), p.Fix().CleanSentences)
	assert.Equal(t, 0, p.Fix().FixStat)
}

func TestUpdate_CorruptBodyByte(t *testing.T) {
	p := NewParser()
	line := sentence(ggaPayload)
	bad := strings.Replace(line, "4807", "4907", 1)
	ids := feed(p, bad)

	assert.Empty(t, ids)
	assert.Equal(t, uint64(1), p.Fix().CRCFails)
}

func TestUpdate_Idempotent(t *testing.T) {
	p := NewParser()
	feed(p, sentence(ggaPayload))
	first := p.Fix().Snapshot()
	feed(p, sentence(ggaPayload))
	second := p.Fix().Snapshot()

	assert.Equal(t, first.Latitude, second.Latitude)
	assert.Equal(t, first.Longitude, second.Longitude)
	assert.Equal(t, first.Time, second.Time)
	assert.Equal(t, first.Altitude, second.Altitude)
	assert.Equal(t, uint64(2), second.ParsedSentences)
}

func TestUpdate_NonPrintableBytesIgnored(t *testing.T) {
	p := NewParser()
	line := sentence(ggaPayload)
	// Interleave noise bytes mid-sentence; they must not disturb assembly.
	noisy := make([]byte, 0, len(line)*2)
	for i := 0; i < len(line); i++ {
		noisy = append(noisy, line[i], 0x00, 0xff, 0x07)
	}
	var ids []string
	for _, c := range noisy {
		if id, ok := p.Update(c); ok {
			ids = append(ids, id)
		}
	}
	assert.Equal(t, []string{"GPGGA"}, ids)
}

func TestUpdate_UnknownTypeAbandoned(t *testing.T) {
	p := NewParser()
	ids := feed(p, sentence("GPXTE,A,A,0.67,L,N")+sentence(ggaPayload))
	assert.Equal(t, []string{"GPGGA"}, ids)
	// The unknown sentence is not an error: no CRC bookkeeping for it.
	assert.Equal(t, uint64(1), p.Fix().CleanSentences)
	assert.Equal(t, uint64(0), p.Fix().CRCFails)
}

func TestUpdate_LengthCeilingRecovery(t *testing.T) {
	p := NewParser()
	runaway := "$GPGGA," + strings.Repeat("9", 200)
	ids := feed(p, runaway)
	assert.Empty(t, ids)

	ids = feed(p, sentence(ggaPayload))
	assert.Equal(t, []string{"GPGGA"}, ids)
}

func TestUpdate_DollarRestartsSentence(t *testing.T) {
	p := NewParser()
	ids := feed(p, "$GPGGA,123"+sentence(ggaPayload))
	assert.Equal(t, []string{"GPGGA"}, ids)
}

func TestSetHandler_RebindsTalker(t *testing.T) {
	gsv := "GNGSV,1,1,02,01,40,083,46,02,17,308,41"

	p := NewParser()
	assert.Empty(t, feed(p, sentence(gsv)))

	p.SetHandler("GNGSV", HandleGSV)
	require.Equal(t, []string{"GNGSV"}, feed(p, sentence(gsv)))
	assert.Equal(t, 2, p.Fix().SatellitesInView)
	assert.Len(t, p.Fix().Satellites, 2)
}

func TestAttachSink_CopiesRawStream(t *testing.T) {
	p := NewParser()
	var raw bytes.Buffer
	p.AttachSink(&raw)

	good := sentence(ggaPayload)
	bad := corrupt(sentence(ggaPayload))
	feed(p, good)
	feed(p, bad)
	feed(p, "\x00\x01\x02") // non-printable, never logged

	assert.Equal(t, good+bad, raw.String())

	p.DetachSink()
	feed(p, good)
	assert.Equal(t, good+bad, raw.String())
}

func FuzzUpdate(f *testing.F) {
	f.Add([]byte(sentence(ggaPayload)))
	f.Add([]byte("$GPGGA,,,,,*00"))
	f.Add([]byte{0x00, 0xff, '$', '*', ','})
	f.Fuzz(func(t *testing.T, data []byte) {
		p := NewParser()
		p.SetHandler("GNGSV", HandleGSV)
		for _, c := range data {
			p.Update(c)
		}
	})
}
