// Package generate writes synthetic rrweb recordings for demos and tests.
package generate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/klauspost/compress/gzip"
)

const (
	// PatternSteady spaces events evenly.
	PatternSteady = "steady"
	// PatternBurst clusters events with quiet gaps, like real interaction.
	PatternBurst = "burst"
	// PatternRamp makes events denser over time.
	PatternRamp = "ramp"
)

// rrweb event types.
const (
	typeFullSnapshot        = 2
	typeIncrementalSnapshot = 3
	typeMeta                = 4
	typeCustom              = 5
)

// rrweb incremental sources.
const (
	sourceMouseMove = 1
	sourceScroll    = 3
	sourceInput     = 5
)

// Options controls the generated recording.
type Options struct {
	Docs     int           // concatenated documents
	Events   int           // events per document
	Duration time.Duration // span of the whole recording
	Pattern  string
	Start    time.Time
	Seed     int64
	Width    int
	Height   int
	// Tricky puts "}{" inside string values so the splitter has to retry.
	Tricky bool
}

func DefaultOptions() Options {
	return Options{
		Docs:     3,
		Events:   50,
		Duration: 2 * time.Minute,
		Pattern:  PatternBurst,
		Width:    1024,
		Height:   576,
	}
}

// Recording builds the documents and concatenates them with no separator,
// the way a recorder flushing in chunks would.
func Recording(opts Options) ([]byte, error) {
	docs, err := Documents(opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, d := range docs {
		buf.Write(d)
	}
	return buf.Bytes(), nil
}

// Write generates a recording into w, gzip-compressed when compress is set.
func Write(w io.Writer, opts Options, compress bool) error {
	data, err := Recording(opts)
	if err != nil {
		return err
	}
	if !compress {
		_, err = w.Write(data)
		return err
	}
	zw := gzip.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// WriteFile is Write to a path.
func WriteFile(path string, opts Options, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := Write(f, opts, compress); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Documents returns each {"events":[...]} document separately. The first
// document starts with a meta event and a full snapshot.
func Documents(opts Options) ([][]byte, error) {
	if opts.Docs <= 0 {
		return nil, fmt.Errorf("docs must be positive, got %d", opts.Docs)
	}
	if opts.Events <= 0 {
		return nil, fmt.Errorf("events must be positive, got %d", opts.Events)
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", opts.Duration)
	}
	if opts.Pattern == "" {
		opts.Pattern = PatternSteady
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().Truncate(time.Second)
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 576
	}

	g := &generator{faker: gofakeit.New(opts.Seed), opts: opts}
	total := opts.Docs * opts.Events
	stamps := g.timestamps(total)

	docs := make([][]byte, 0, opts.Docs)
	for d := 0; d < opts.Docs; d++ {
		events := make([]map[string]any, 0, opts.Events)
		for i := 0; i < opts.Events; i++ {
			n := d*opts.Events + i
			events = append(events, g.event(n, stamps[n]))
		}
		data, err := json.Marshal(map[string]any{"events": events})
		if err != nil {
			return nil, err
		}
		docs = append(docs, data)
	}
	return docs, nil
}

type generator struct {
	faker *gofakeit.Faker
	opts  Options
	mouse struct{ x, y int }
}

func (g *generator) event(n int, ts int64) map[string]any {
	switch n {
	case 0:
		return map[string]any{
			"type":      typeMeta,
			"timestamp": ts,
			"data": map[string]any{
				"href":   g.faker.URL(),
				"width":  g.opts.Width,
				"height": g.opts.Height,
			},
		}
	case 1:
		return map[string]any{
			"type":      typeFullSnapshot,
			"timestamp": ts,
			"data": map[string]any{
				"node":          g.snapshot(),
				"initialOffset": map[string]int{"left": 0, "top": 0},
			},
		}
	}

	switch roll := g.faker.IntRange(0, 99); {
	case roll < 60:
		return g.incremental(ts, map[string]any{"source": sourceMouseMove, "positions": g.positions()})
	case roll < 80:
		return g.incremental(ts, map[string]any{"source": sourceScroll, "id": 1, "x": 0, "y": g.faker.IntRange(0, 4000)})
	case roll < 95:
		return g.incremental(ts, map[string]any{"source": sourceInput, "id": g.faker.IntRange(2, 9), "text": g.text(), "isChecked": false})
	default:
		return map[string]any{
			"type":      typeCustom,
			"timestamp": ts,
			"data": map[string]any{
				"tag":     "identify",
				"payload": map[string]any{"user": g.faker.Username(), "email": g.faker.Email()},
			},
		}
	}
}

func (g *generator) incremental(ts int64, data map[string]any) map[string]any {
	return map[string]any{"type": typeIncrementalSnapshot, "timestamp": ts, "data": data}
}

func (g *generator) text() string {
	if g.opts.Tricky && g.faker.Bool() {
		return g.faker.Word() + "}{" + g.faker.Word()
	}
	return g.faker.Sentence(g.faker.IntRange(1, 6))
}

func (g *generator) positions() []map[string]int {
	n := g.faker.IntRange(1, 4)
	out := make([]map[string]int, n)
	for i := range out {
		g.mouse.x = clamp(g.mouse.x+g.faker.IntRange(-40, 40), 0, g.opts.Width)
		g.mouse.y = clamp(g.mouse.y+g.faker.IntRange(-40, 40), 0, g.opts.Height)
		out[i] = map[string]int{"x": g.mouse.x, "y": g.mouse.y, "id": 1, "timeOffset": -50 * (n - i)}
	}
	return out
}

// snapshot is a minimal serialized DOM: document > html > body > p.
func (g *generator) snapshot() map[string]any {
	text := map[string]any{"type": 3, "id": 5, "textContent": g.faker.Sentence(8)}
	if g.opts.Tricky {
		text["textContent"] = `{"a":1}{"b":2}`
	}
	p := map[string]any{"type": 2, "id": 4, "tagName": "p", "attributes": map[string]string{}, "childNodes": []any{text}}
	body := map[string]any{"type": 2, "id": 3, "tagName": "body", "attributes": map[string]string{}, "childNodes": []any{p}}
	html := map[string]any{"type": 2, "id": 2, "tagName": "html", "attributes": map[string]string{}, "childNodes": []any{body}}
	return map[string]any{"type": 0, "id": 1, "childNodes": []any{html}}
}

// timestamps returns n non-decreasing millisecond timestamps over the
// configured duration, shaped by the pattern.
func (g *generator) timestamps(n int) []int64 {
	start := g.opts.Start.UnixMilli()
	span := g.opts.Duration.Milliseconds()
	out := make([]int64, n)

	switch g.opts.Pattern {
	case PatternBurst:
		bursts := 4
		gap := span / int64(bursts)
		per := (n + bursts - 1) / bursts
		for i := range out {
			b := int64(i / per)
			out[i] = start + b*gap + int64(i%per)*int64(g.faker.IntRange(5, 40))
		}
	case PatternRamp:
		for i := range out {
			frac := float64(i) / float64(n)
			out[i] = start + int64(frac*frac*float64(span))
		}
	default:
		step := span / int64(n)
		for i := range out {
			out[i] = start + int64(i)*step
		}
	}

	for i := 1; i < n; i++ {
		if out[i] < out[i-1] {
			out[i] = out[i-1]
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
