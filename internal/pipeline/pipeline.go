// Package pipeline orchestrates one podcast-generation run: PDF text
// extraction, dialogue script generation, parsing, per-line speech synthesis,
// audio assembly, and artifact publishing.
//
// A run moves strictly forward through its stages. Any hard failure aborts
// the run, cleans up the run workspace, and surfaces a [StageError] naming
// the stage that failed. On success the caller receives the verbatim script
// and the published audio address; no partial results are ever returned.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unipodhq/unipod/internal/audio"
	"github.com/unipodhq/unipod/internal/observe"
	"github.com/unipodhq/unipod/internal/publish"
	"github.com/unipodhq/unipod/internal/resilience"
	"github.com/unipodhq/unipod/internal/script"
	"github.com/unipodhq/unipod/internal/voice"
	"github.com/unipodhq/unipod/pkg/provider/ocr"
	"github.com/unipodhq/unipod/pkg/provider/tts"
)

// Config holds the orchestrator's tuning knobs. Zero values are replaced
// with defaults by [New].
type Config struct {
	// ScriptTimeout bounds each script-generation attempt. Default: 2m.
	ScriptTimeout time.Duration

	// PublishTimeout bounds each publish attempt. Default: 1m.
	PublishTimeout time.Duration

	// RetryAttempts is the attempt budget for the script-generation and
	// publish stages. Synthesis stays single-attempt per line. Default: 3.
	RetryAttempts int

	// SynthesisWorkers is the number of concurrent synthesis calls. Chunks
	// are always reassembled by line index regardless of completion order.
	// Default: 1 (sequential).
	SynthesisWorkers int

	// TempDir is the parent directory for run workspaces. Empty means the
	// system temp directory.
	TempDir string
}

func (c *Config) applyDefaults() {
	if c.ScriptTimeout <= 0 {
		c.ScriptTimeout = 2 * time.Minute
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = time.Minute
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.SynthesisWorkers <= 0 {
		c.SynthesisWorkers = 1
	}
}

// Deps bundles the collaborators a Pipeline sequences.
type Deps struct {
	OCR       ocr.Provider
	Generator *script.Generator
	Parser    *script.Parser
	Voices    *voice.Resolver
	TTS       tts.Provider
	Encoder   audio.Encoder
	Publisher publish.Publisher

	// Metrics is optional; nil falls back to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

func (d Deps) validate() error {
	var errs []error
	if d.OCR == nil {
		errs = append(errs, errors.New("ocr provider is required"))
	}
	if d.Generator == nil {
		errs = append(errs, errors.New("script generator is required"))
	}
	if d.Parser == nil {
		errs = append(errs, errors.New("dialogue parser is required"))
	}
	if d.Voices == nil {
		errs = append(errs, errors.New("voice resolver is required"))
	}
	if d.TTS == nil {
		errs = append(errs, errors.New("tts provider is required"))
	}
	if d.Encoder == nil {
		errs = append(errs, errors.New("audio encoder is required"))
	}
	if d.Publisher == nil {
		errs = append(errs, errors.New("publisher is required"))
	}
	return errors.Join(errs...)
}

// Request is the input of one run.
type Request struct {
	// Document is the raw uploaded PDF. Never persisted; consumed by the
	// extraction stage only.
	Document []byte

	// OwnerID and Playlist key the published artifact's namespace.
	OwnerID  string
	Playlist string

	// VoiceSamples optionally maps a host name to an uploaded reference
	// clip that overrides the host's preset voice for this run.
	VoiceSamples map[string][]byte
}

// Result is the output of a completed run, handed to the persistence layer.
type Result struct {
	// Script is the model's raw dialogue text, verbatim.
	Script string

	// AudioAddress is the published episode's durable address.
	AudioAddress string
}

// Pipeline sequences the podcast-generation stages. Safe for concurrent use;
// concurrent runs share no mutable state.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// New creates a Pipeline after validating its collaborators.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	cfg.applyDefaults()
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	return &Pipeline{cfg: cfg, deps: deps}, nil
}

// Run executes one end-to-end podcast generation. The run workspace is
// removed on every exit path, so no chunk files, uploaded samples, or
// partially assembled audio survive a failure or cancellation.
func (p *Pipeline) Run(ctx context.Context, req Request) (result *Result, err error) {
	if len(req.Document) == 0 {
		return nil, stageErr(StageExtracting, errors.New("empty document"))
	}

	log := observe.Logger(ctx)
	m := p.deps.Metrics
	runStart := time.Now()

	ctx, span := observe.StartSpan(ctx, "pipeline.run")
	defer span.End()

	m.ActiveRuns.Add(ctx, 1)
	defer func() {
		m.ActiveRuns.Add(ctx, -1)
		status := "completed"
		if err != nil {
			status = "failed"
		}
		m.RecordRun(ctx, status, time.Since(runStart).Seconds())
	}()

	ws, err := NewWorkspace(p.cfg.TempDir)
	if err != nil {
		return nil, stageErr(StageExtracting, err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			log.Warn("run workspace cleanup failed", "error", cerr)
		}
	}()

	// Extract.
	text, err := p.timed(ctx, StageExtracting, func(ctx context.Context) (string, error) {
		return p.deps.OCR.ExtractText(ctx, req.Document)
	})
	if err != nil {
		return nil, stageErr(StageExtracting, err)
	}
	log.Info("document text extracted", "chars", len(text))

	// Generate the dialogue script. Each attempt gets its own deadline.
	raw, err := p.timed(ctx, StageGenerating, func(ctx context.Context) (string, error) {
		return resilience.Retry(ctx, resilience.RetryConfig{
			Name:        "script-generation",
			MaxAttempts: p.cfg.RetryAttempts,
		}, func() (string, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.ScriptTimeout)
			defer cancel()
			return p.deps.Generator.Generate(attemptCtx, text)
		})
	})
	if err != nil {
		return nil, stageErr(StageGenerating, err)
	}

	// Parse.
	lines, err := p.deps.Parser.Parse(raw)
	if err != nil {
		return nil, stageErr(StageParsing, err)
	}
	log.Info("dialogue parsed", "lines", len(lines))

	// Resolve voices and synthesize each line.
	chunks, err := p.timedSlice(ctx, StageSynthesizing, func(ctx context.Context) ([]string, error) {
		return p.synthesize(ctx, ws, lines, req.VoiceSamples)
	})
	if err != nil {
		return nil, stageErr(StageSynthesizing, err)
	}

	// Assemble and encode.
	episode, err := p.timed(ctx, StageAssembling, func(ctx context.Context) (string, error) {
		return p.assemble(ctx, ws, chunks)
	})
	if err != nil {
		return nil, stageErr(StageAssembling, err)
	}

	// Publish.
	address, err := p.timed(ctx, StagePublishing, func(ctx context.Context) (string, error) {
		return resilience.Retry(ctx, resilience.RetryConfig{
			Name:        "artifact-publish",
			MaxAttempts: p.cfg.RetryAttempts,
		}, func() (string, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
			defer cancel()
			return p.deps.Publisher.Publish(attemptCtx, episode, publish.Key{
				OwnerID:  req.OwnerID,
				Playlist: req.Playlist,
			})
		})
	})
	if err != nil {
		return nil, stageErr(StagePublishing, err)
	}

	log.Info("podcast run completed",
		"address", address,
		"duration", time.Since(runStart))
	return &Result{Script: raw, AudioAddress: address}, nil
}

// synthesize renders every dialogue line to a WAV chunk file inside ws and
// returns the chunk paths in line order. With multiple workers, chunk i still
// belongs to line i; ordering comes from the indexed file names, never from
// completion order.
func (p *Pipeline) synthesize(ctx context.Context, ws *Workspace, lines []script.Line, uploads map[string][]byte) ([]string, error) {
	profiles, err := p.deps.Voices.Resolve(ws.Dir(), uploads)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, len(lines))
	for i := range lines {
		chunks[i] = ws.Path(fmt.Sprintf("chunk-%04d.wav", i))
	}

	render := func(ctx context.Context, i int) error {
		line := lines[i]
		profile, ok := profiles[line.Speaker]
		if !ok {
			return fmt.Errorf("no voice resolved for speaker %q", line.Speaker)
		}
		wav, err := p.deps.TTS.Synthesize(ctx, line.Text, profile)
		if err != nil {
			return fmt.Errorf("line %d (%s): %w", i, line.Speaker, err)
		}
		if err := writeChunk(chunks[i], wav); err != nil {
			return err
		}
		p.deps.Metrics.SynthesizedLines.Add(ctx, 1)
		return nil
	}

	if p.cfg.SynthesisWorkers <= 1 {
		for i := range lines {
			if err := render(ctx, i); err != nil {
				return nil, err
			}
		}
		return chunks, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SynthesisWorkers)
	for i := range lines {
		g.Go(func() error {
			return render(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// assemble concatenates the chunk files in order into one WAV track, encodes
// it to MP3, and returns the episode path. Chunks are deleted one by one as
// they are folded in; the intermediate WAV is deleted after encoding.
func (p *Pipeline) assemble(ctx context.Context, ws *Workspace, chunks []string) (string, error) {
	asm, err := audio.NewAssembler(ws.Path("episode.wav"))
	if err != nil {
		return "", err
	}
	defer asm.Close()

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := asm.AppendFile(chunk); err != nil {
			return "", err
		}
	}
	if err := asm.Finish(); err != nil {
		return "", err
	}

	episode := ws.Path("episode.mp3")
	if err := p.deps.Encoder.EncodeMP3(ctx, asm.Path(), episode); err != nil {
		return "", err
	}
	return episode, nil
}

// timed runs fn and records its duration under the stage's metric label.
func (p *Pipeline) timed(ctx context.Context, stage Stage, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline."+string(stage))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	p.deps.Metrics.RecordStage(ctx, string(stage), time.Since(start).Seconds())
	return out, err
}

// timedSlice is timed for stages producing a string slice.
func (p *Pipeline) timedSlice(ctx context.Context, stage Stage, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline."+string(stage))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	p.deps.Metrics.RecordStage(ctx, string(stage), time.Since(start).Seconds())
	return out, err
}
