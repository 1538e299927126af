// Package analysis downloads a company's latest filing, asks a language model a fixed set of
// questions about it and delivers the formatted answer in chunks.
package analysis

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

// State is a step of a pipeline run
type State string

const (
	StateStart       State = "START"
	StateDownloading State = "DOWNLOADING"
	StateExtracting  State = "EXTRACTING"
	StatePrompting   State = "PROMPTING"
	StateFormatting  State = "FORMATTING"
	StateDelivering  State = "DELIVERING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Request identifies the filing to analyze
type Request struct {
	Ticker        string
	FilingURL     string
	PreviousClose string
}

// ContentBlock is one block of a model completion
type ContentBlock struct {
	Type string
	Text string
}

// Completion is a model reply, either structured blocks or a plain string
type Completion struct {
	Blocks []ContentBlock
	Text   string
}

// Model answers a single prompt
type Model interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// Sink receives the output of a run. Deliver is called once per chunk in order;
// Fail is called exactly once if the run fails.
type Sink interface {
	Deliver(ctx context.Context, chunk string) error
	Fail(ctx context.Context, err *Error)
}

// Observer is notified of every state transition
type Observer func(runID string, from, to State)

// Pipeline runs filing analyses
type Pipeline struct {
	model         Model
	logger        arbor.ILogger
	httpClient    *http.Client
	filingBaseURL string
	maxBytes      int64
	chunkSize     int
	observer      Observer
	now           func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithFilingBaseURL sets the base for relative filing links
func WithFilingBaseURL(baseURL string) Option {
	return func(p *Pipeline) {
		p.filingBaseURL = baseURL
	}
}

// WithHTTPClient sets the client used for filing downloads
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) {
		p.httpClient = client
	}
}

// WithMaxDocumentBytes caps the downloaded filing size
func WithMaxDocumentBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithObserver registers a state transition observer
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// NewPipeline creates a pipeline backed by model
func NewPipeline(model Model, logger arbor.ILogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		model:         model,
		logger:        logger,
		httpClient:    NewDownloadClient(),
		filingBaseURL: DefaultFilingBaseURL,
		maxBytes:      DefaultMaxDocumentBytes,
		chunkSize:     MaxChunkLength,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run tracks the state of a single execution
type run struct {
	id     string
	state  State
	logger arbor.ILogger
	p      *Pipeline
	sink   Sink
}

func (r *run) enter(to State) {
	from := r.state
	r.state = to
	r.logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("Analysis state change")
	if r.p.observer != nil {
		r.p.observer(r.id, from, to)
	}
}

func (r *run) fail(ctx context.Context, kind, cause error) *Error {
	e := &Error{State: r.state, Kind: kind, Err: cause}
	r.enter(StateFailed)
	r.logger.Error().Str("state", string(e.State)).Err(e).Msg("Analysis failed")
	r.sink.Fail(ctx, e)
	return e
}

// Run executes one analysis. States advance strictly in order; any failure moves the run
// to FAILED and notifies the sink once.
func (p *Pipeline) Run(ctx context.Context, req Request, sink Sink) (*models.AnalysisResult, error) {
	r := &run{
		id:    uuid.NewString(),
		state: StateStart,
		p:     p,
		sink:  sink,
	}
	r.logger = p.logger.WithCorrelationId(r.id)
	r.logger.Info().Str("ticker", req.Ticker).Msg("Starting filing analysis")

	r.enter(StateDownloading)
	filingURL, err := models.ResolveFilingURL(p.filingBaseURL, req.FilingURL)
	if err != nil {
		return nil, r.fail(ctx, ErrNoFiling, nil)
	}
	r.logger.Info().Str("url", filingURL).Msg("Downloading filing")

	content, err := download(ctx, p.httpClient, filingURL, p.maxBytes)
	if err != nil {
		return nil, r.fail(ctx, ErrDownload, err)
	}
	r.logger.Info().Int("bytes", len(content)).Msg("Filing downloaded")

	r.enter(StateExtracting)
	text, err := ExtractText(content)
	if err != nil {
		return nil, r.fail(ctx, ErrParse, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, r.fail(ctx, ErrEmptyDocument, nil)
	}
	r.logger.Info().Int("chars", len(text)).Msg("Filing text extracted")

	r.enter(StatePrompting)
	completion, err := p.model.Complete(ctx, BuildPrompt(req.Ticker, text, req.PreviousClose))
	if err != nil {
		return nil, r.fail(ctx, ErrModel, err)
	}
	raw := completionText(completion)
	if strings.TrimSpace(raw) == "" {
		return nil, r.fail(ctx, ErrModel, errors.New("completion contained no text"))
	}

	r.enter(StateFormatting)
	formatted := FormatResponse(raw)
	chunks := Chunk(formatted, p.chunkSize)

	r.enter(StateDelivering)
	for i, chunk := range chunks {
		if err := sink.Deliver(ctx, chunk); err != nil {
			r.logger.Warn().Int("chunk", i).Err(err).Msg("Chunk delivery failed")
			return nil, r.fail(ctx, ErrDelivery, err)
		}
	}

	r.enter(StateDone)
	r.logger.Info().Int("chunks", len(chunks)).Msg("Filing analysis delivered")

	return &models.AnalysisResult{
		RunID:          r.id,
		Ticker:         req.Ticker,
		RawModelOutput: raw,
		FormattedText:  formatted,
		Chunks:         chunks,
		ProducedAt:     p.now(),
	}, nil
}

// completionText joins every text block, falling back to the plain string form
func completionText(c *Completion) string {
	if c == nil {
		return ""
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == "" || b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "")
	}
	return c.Text
}
