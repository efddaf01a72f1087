package generate

import internalgenerate "github.com/SmitUplenchwar2687/Rewind/internal/generate"

const (
	PatternSteady = internalgenerate.PatternSteady
	PatternBurst  = internalgenerate.PatternBurst
	PatternRamp   = internalgenerate.PatternRamp
)

// Options controls the generated recording.
type Options = internalgenerate.Options

// DefaultOptions returns three documents of fifty events over two minutes.
func DefaultOptions() Options {
	return internalgenerate.DefaultOptions()
}

// Recording returns the concatenated documents as one byte slice.
func Recording(opts Options) ([]byte, error) {
	return internalgenerate.Recording(opts)
}

// WriteFile writes a recording to path, gzipped when compress is set.
func WriteFile(path string, opts Options, compress bool) error {
	return internalgenerate.WriteFile(path, opts, compress)
}
