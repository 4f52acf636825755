// ABOUTME: Trim operation on fully decoded buffers
// ABOUTME: Clamps the range, copies the samples and micro-fades the edges
package edit

import (
	"math"

	"github.com/Resonate-Protocol/resonate-studio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-studio/pkg/audio/fade"
	"github.com/Resonate-Protocol/resonate-studio/pkg/studioerr"
)

// Trim returns a new buffer holding [start, end) seconds of buf.
// start is clamped to 0 and end to the buffer duration; a range that is
// empty after clamping is an InvalidEdit. buf is not modified.
func Trim(buf *audio.Buffer, start, end float64) (*audio.Buffer, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, studioerr.MissingPrerequisite.New("trim needs a decoded buffer")
	}

	start = math.Max(start, 0)
	end = math.Min(end, buf.Duration())
	if start >= end {
		return nil, studioerr.InvalidEdit.New("invalid trim range: start %.3fs >= end %.3fs", start, end)
	}

	rate := float64(buf.SampleRate)
	out := buf.Slice(int(math.Floor(start*rate)), int(math.Floor(end*rate)))
	fade.MicroFade(out)

	return out, nil
}
