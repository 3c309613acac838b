package transcode

import (
	"context"

	"swingcoach/internal/media/ffprobe"
)

// transcodeProbe is the ffprobe function used by the transcoder.
// It is a package-level variable so tests can override it.
var transcodeProbe = ffprobe.Inspect

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := transcodeProbe
	transcodeProbe = fn
	return func() {
		transcodeProbe = previous
	}
}
