// Package metadata reads what an uploaded audio file says about itself:
// embedded artist/album tags and, for MPEG audio, the playing time.
package metadata

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Info is the probed metadata. Empty strings and a nil Duration mean
// unknown.
type Info struct {
	Artist   string
	Album    string
	Duration *float64
}

// Probe inspects r. Failures are not errors: whatever could not be read is
// left unknown.
func Probe(r io.ReadSeeker, contentType, filename string) Info {
	var info Info

	if m, err := tag.ReadFrom(r); err == nil {
		info.Artist = strings.TrimSpace(m.Artist())
		info.Album = strings.TrimSpace(m.Album())
	}

	if isMPEG(contentType, filename) {
		if _, err := r.Seek(0, io.SeekStart); err == nil {
			if d, ok := mp3Duration(r); ok {
				secs := d.Seconds()
				info.Duration = &secs
			}
		}
	}

	return info
}

func isMPEG(contentType, filename string) bool {
	switch strings.ToLower(contentType) {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg-3":
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".mp3")
}

// mp3Duration sums frame durations. A stream that breaks off after some
// frames still counts what was decoded.
func mp3Duration(r io.Reader) (time.Duration, bool) {
	dec := mp3.NewDecoder(r)
	var (
		total   time.Duration
		frames  int
		skipped int
		fr      mp3.Frame
	)
	for {
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) || frames > 0 {
				break
			}
			return 0, false
		}
		total += fr.Duration()
		frames++
	}
	return total, frames > 0
}
