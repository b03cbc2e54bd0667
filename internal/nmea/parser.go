package nmea

import (
	"io"
	"strconv"
)

// sentenceLimit bounds how many characters a single sentence may consume
// before it is abandoned. A conforming GGA sentence is 82 bytes including
// delimiters; anything past 90 is stream corruption.
const sentenceLimit = 90

// Handler decodes the fields of one checksum-valid sentence into the fix.
// fields[0] is the talker+type identifier, the last entry is the verbatim
// checksum field. A handler returns false on any field-level failure and
// must not have mutated the fix in that case.
type Handler func(*Fix, []string) bool

// Parser assembles NMEA sentences one character at a time and dispatches
// checksum-valid ones to per-type handlers. It is not safe for concurrent
// use; a single goroutine owns it.
type Parser struct {
	fix      *Fix
	handlers map[string]Handler

	active     bool
	inChecksum bool
	segments   []string
	buf        []byte
	crc        byte
	charCount  int

	sink io.Writer
}

func NewParser() *Parser {
	return &Parser{
		fix:      NewFix(),
		handlers: defaultHandlers(),
		segments: make([]string, 0, 24),
		buf:      make([]byte, 0, 16),
	}
}

// Fix returns the receiver state the parser decodes into.
func (p *Parser) Fix() *Fix { return p.fix }

// SetHandler binds (or rebinds) a sentence identifier to a decoder. This is
// the extension point for talker IDs the default table does not list, e.g.
// routing GNGSV through HandleGSV.
func (p *Parser) SetHandler(id string, h Handler) {
	if h == nil {
		delete(p.handlers, id)
		return
	}
	p.handlers[id] = h
}

// AttachSink starts copying every accepted input character to w. The sink
// records the raw wire stream, including sentences that later fail
// validation.
func (p *Parser) AttachSink(w io.Writer) { p.sink = w }

// DetachSink stops the raw copy. Closing the writer is the caller's job.
func (p *Parser) DetachSink() { p.sink = nil }

// Update feeds one input character. It returns the sentence identifier and
// true only when that character completed a sentence that passed checksum
// validation and decoded cleanly; every other outcome is a silent ("", false).
func (p *Parser) Update(c byte) (string, bool) {
	// Only printable ASCII plus CR/LF participate; other bytes are line
	// noise and must not disturb the session state.
	if (c < 0x20 || c > 0x7e) && c != '\r' && c != '\n' {
		return "", false
	}
	p.charCount++

	if p.sink != nil {
		_, _ = p.sink.Write([]byte{c})
	}

	// '$' starts a sentence unconditionally, even mid-sentence.
	if c == '$' {
		p.begin()
		return "", false
	}
	if !p.active {
		return "", false
	}

	var id string
	var ok bool
	switch c {
	case ',':
		p.endSegment()
	case '*':
		// The two characters after '*' are the checksum; neither '*' nor
		// they feed the running XOR.
		p.inChecksum = true
		p.endSegment()
		return "", false
	default:
		p.buf = append(p.buf, c)
	}

	if !p.inChecksum {
		p.crc ^= c
	} else if len(p.buf) == 2 {
		id, ok = p.finish()
	}

	// Abandon early: unregistered sentence types are not worth scanning,
	// and a sentence that never terminates must not scan forever.
	if p.active {
		if _, known := p.handlers[p.typeField()]; (len(p.segments) == 1 && !known) || p.charCount > sentenceLimit {
			p.active = false
		}
	}
	return id, ok
}

func (p *Parser) begin() {
	p.segments = p.segments[:0]
	p.buf = p.buf[:0]
	p.crc = 0
	p.charCount = 0
	p.active = true
	p.inChecksum = false
}

func (p *Parser) endSegment() {
	p.segments = append(p.segments, string(p.buf))
	p.buf = p.buf[:0]
}

func (p *Parser) typeField() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0]
}

// finish validates the checksum and dispatches the completed sentence.
func (p *Parser) finish() (string, bool) {
	p.active = false
	p.endSegment()

	want, err := strconv.ParseUint(p.segments[len(p.segments)-1], 16, 8)
	if err != nil {
		// Deformed checksum field; it cannot possibly have matched.
		return "", false
	}
	if byte(want) != p.crc {
		p.fix.CRCFails++
		return "", false
	}
	p.fix.CleanSentences++

	h, known := p.handlers[p.segments[0]]
	if !known || !h(p.fix, p.segments) {
		return "", false
	}
	p.fix.ParsedSentences++
	return p.segments[0], true
}
