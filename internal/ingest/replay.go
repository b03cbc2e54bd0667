package ingest

import (
	"fmt"
	"io"
	"os"
	"time"
)

// replaySlice is the pacing quantum of the replay reader.
const replaySlice = 50 * time.Millisecond

// replayReader streams a previously recorded raw log at roughly the byte
// rate of the configured serial link, so the daemon can be run against a
// recorded session without a receiver attached. Pacing matters: the parser
// and the display are driven by arrival timing, and an unpaced read would
// replay an hour of sentences in milliseconds.
type replayReader struct {
	f     *os.File
	chunk int
}

func openReplay(path string, baud int) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// 8N1: ten bits on the wire per payload byte.
	chunk := int(float64(baud) / 10 * replaySlice.Seconds())
	if chunk < 1 {
		return nil, fmt.Errorf("replay: baud %d too low to pace", baud)
	}
	return &replayReader{f: f, chunk: chunk}, nil
}

func (r *replayReader) Read(p []byte) (int, error) {
	time.Sleep(replaySlice)
	if len(p) > r.chunk {
		p = p[:r.chunk]
	}
	return r.f.Read(p)
}

func (r *replayReader) Close() error { return r.f.Close() }
