package cli

import (
	"context"
	"strings"

	"github.com/SmitUplenchwar2687/Rewind/internal/config"
	"github.com/SmitUplenchwar2687/Rewind/internal/jsonsplit"
	"github.com/SmitUplenchwar2687/Rewind/internal/recording"
	"github.com/SmitUplenchwar2687/Rewind/internal/source"
)

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// readStream acquires arg as a local path or an http(s) URL and extracts it
// with the configured extractor. strict forces the strict splitter.
func readStream(ctx context.Context, cfg *config.Config, arg string, strict bool) (recording.Stream, error) {
	ec := cfg.Extract
	if strict {
		ec.SplitMode = string(jsonsplit.ModeStrict)
	}
	ex, err := ec.Extractor()
	if err != nil {
		return nil, err
	}

	var p recording.Payload
	if isURL(arg) {
		p, err = cfg.Fetch.Fetcher().Fetch(ctx, arg)
	} else {
		p, err = source.FromFile(arg, cfg.Fetch.MaxBytes)
	}
	if err != nil {
		return nil, err
	}
	return ex.Extract(p)
}
