package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ukaji3/tablenorm-go/pkg/logger"
)

// Completer sends one prompt to a text-generation service and returns the
// raw reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, user string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// LLMOptions bounds how the oracle is consulted.
type LLMOptions struct {
	// RatePerSecond limits calls across all workers. Zero means unlimited.
	RatePerSecond float64
	// Burst is the limiter burst size.
	Burst int
	// MaxCalls caps the calls of one LLM instance. Zero means unlimited.
	MaxCalls int
	// MaxFailures consecutive failures disable the oracle for Cooldown.
	MaxFailures int
	Cooldown    time.Duration
	// CallTimeout bounds one call including retries done by the Completer.
	CallTimeout time.Duration
	// SampleChars caps the rendered sample in each prompt.
	SampleChars int
	// SampleCols caps the columns rendered per row.
	SampleCols int
}

// DefaultLLMOptions returns the limits used when none are configured.
func DefaultLLMOptions() LLMOptions {
	return LLMOptions{
		RatePerSecond: 2,
		Burst:         4,
		MaxFailures:   3,
		Cooldown:      time.Minute,
		CallTimeout:   90 * time.Second,
		SampleChars:   1500,
		SampleCols:    10,
	}
}

// LLM implements StructureOracle on top of a Completer.
type LLM struct {
	completer Completer
	opts      LLMOptions
	limiter   *rate.Limiter
	gate      *CallGate
}

// NewLLM returns an oracle that renders prompts for c.
func NewLLM(c Completer, opts LLMOptions) *LLM {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &LLM{
		completer: c,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, burst),
		gate:      NewCallGate(opts.MaxCalls, opts.MaxFailures, opts.Cooldown),
	}
}

// Calls returns the number of calls attempted so far.
func (o *LLM) Calls() int {
	return o.gate.Stats().Calls
}

// Stats returns the call gate counters.
func (o *LLM) Stats() GateStats {
	return o.gate.Stats()
}

func (o *LLM) ClassifyRows(ctx context.Context, sample []Row) (RowClassification, error) {
	prompt := classifyPrompt(o.render(sample))
	payload, err := o.call(ctx, prompt, func(p []byte) error {
		_, err := parseClassification(p)
		return err
	})
	if err != nil {
		return RowClassification{}, fmt.Errorf("classify rows: %w", err)
	}
	return parseClassification(payload)
}

func (o *LLM) DetectMultiLevelHeaders(ctx context.Context, window []Row, anchor int) ([]int, error) {
	prompt := headersPrompt(o.render(window), anchor)
	payload, err := o.call(ctx, prompt, func(p []byte) error {
		_, err := parseHeaderRows(p, anchor)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("detect multi-level headers: %w", err)
	}
	return parseHeaderRows(payload, anchor)
}

func (o *LLM) DetectSchemaSplit(ctx context.Context, sample []Row) (SplitProposal, error) {
	prompt := splitPrompt(o.render(sample))
	payload, err := o.call(ctx, prompt, func(p []byte) error {
		_, err := parseSplit(p)
		return err
	})
	if err != nil {
		return SplitProposal{}, fmt.Errorf("detect schema split: %w", err)
	}
	return parseSplit(payload)
}

func (o *LLM) render(rows []Row) string {
	return Truncate(RenderRows(rows, o.opts.SampleCols), o.opts.SampleChars)
}

func (o *LLM) call(ctx context.Context, prompt string, check ShapeCheck) ([]byte, error) {
	if o.completer == nil {
		return nil, fmt.Errorf("%w: no completer configured", ErrUnavailable)
	}
	if err := o.gate.Acquire(); err != nil {
		return nil, err
	}
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text, err := o.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		o.record(ctx, err)
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	payload, _, err := Extract(text, check)
	o.record(ctx, err)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (o *LLM) record(ctx context.Context, err error) {
	if !o.gate.Record(err) {
		return
	}
	stats := o.gate.Stats()
	logger.FromContext(ctx).Warn("structure oracle paused, sheets fall back to local rules",
		"failures", stats.Failures,
		"until", o.gate.PausedUntil().Format(time.RFC3339),
		"calls", stats.Calls,
		"error", err)
}
