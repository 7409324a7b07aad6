package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/xsspy/xsspy/internal/config"
	"github.com/xsspy/xsspy/internal/judge"
)

// Options tunes the scan loop
type Options struct {
	// FirstOnly stops testing a parameter after its first finding.
	// It never stops the remaining parameters.
	FirstOnly bool
	// Threads > 1 enables the bounded concurrent engine.
	Threads int
	Logger  *logrus.Entry
}

// Scanner drives parameters x payloads through inject, fetch and classify
type Scanner struct {
	fetcher    Fetcher
	classifier Classifier
	sink       Sink
	notify     Notifier
	opts       Options
	log        *logrus.Entry

	mu       sync.Mutex
	findings []config.Finding
	tested   atomic.Int64
	unsure   atomic.Int64
}

// New creates a scanner over the given collaborators
func New(fetcher Fetcher, classifier Classifier, sink Sink, notify Notifier, opts Options) *Scanner {
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scanner{
		fetcher:    fetcher,
		classifier: classifier,
		sink:       sink,
		notify:     notify,
		opts:       opts,
		log:        log.WithField("component", "scanner"),
	}
}

// Scan tests every parameter with every payload against target.
// It returns the findings recorded so far together with ctx.Err() when
// the context is cancelled mid-scan.
func (s *Scanner) Scan(ctx context.Context, target string, params, payloadList []string) ([]config.Finding, error) {
	if len(params) == 0 {
		return nil, ErrNoParameters
	}
	if len(payloadList) == 0 {
		return nil, ErrNoPayloads
	}

	if s.opts.Threads > 1 {
		s.scanConcurrent(ctx, target, params, payloadList)
	} else {
		for _, param := range params {
			if ctx.Err() != nil {
				break
			}
			s.testParameter(ctx, target, param, payloadList)
		}
	}

	return s.Findings(), ctx.Err()
}

// Findings returns a copy of the findings recorded so far
func (s *Scanner) Findings() []config.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]config.Finding, len(s.findings))
	copy(result, s.findings)
	return result
}

// TestedCases returns how many test cases reached the target
func (s *Scanner) TestedCases() int {
	return int(s.tested.Load())
}

// InconclusiveCases returns how many cases the classifier could not decide
func (s *Scanner) InconclusiveCases() int {
	return int(s.unsure.Load())
}

// testParameter is the sequential per-parameter state machine:
// Testing -> FoundVulnerable | ExhaustedPayloads -> Done.
func (s *Scanner) testParameter(ctx context.Context, target, param string, payloadList []string) {
	s.notify.Step("Testing parameter: %s", param)

	for _, payload := range payloadList {
		if ctx.Err() != nil {
			return
		}

		result := s.runCase(ctx, target, param, payload)
		switch result.outcome {
		case outcomeAbort, outcomeCanceled:
			return
		case outcomeVulnerable:
			s.record(result.finding)
			if s.opts.FirstOnly {
				s.notify.Info("Vulnerability found. Stopping scan for parameter '%s' as per --first flag.", param)
				return
			}
		}
	}
}

type outcome int

const (
	outcomeNotVulnerable outcome = iota
	outcomeVulnerable
	// outcomeAbort skips the parameter's remaining payloads
	outcomeAbort
	// outcomeCanceled means the scan context ended during the case
	outcomeCanceled
)

type caseResult struct {
	outcome outcome
	finding config.Finding
}

// runCase executes one TestCase. A panic inside a collaborator is logged
// and the case counts as not vulnerable.
func (s *Scanner) runCase(ctx context.Context, target, param, payload string) (result caseResult) {
	log := s.log.WithFields(logrus.Fields{"param": param, "payload": payload})

	defer func() {
		if r := recover(); r != nil {
			s.notify.Error("An unexpected error occurred: %v", r)
			log.WithField("panic", r).Error("test case panicked")
			result = caseResult{outcome: outcomeNotVulnerable}
		}
	}()

	testURL, err := Inject(target, param, payload)
	if err != nil {
		s.notify.Error("An unexpected error occurred: %v", err)
		log.WithError(err).Error("building test URL")
		return caseResult{outcome: outcomeNotVulnerable}
	}

	s.notify.Detail("-> Injecting payload: %s", truncate(payload, PayloadDisplayLength))
	s.tested.Add(1)

	body, err := s.fetcher.Fetch(ctx, testURL)
	if ctx.Err() != nil {
		return caseResult{outcome: outcomeCanceled}
	}
	if err != nil {
		if IsTransport(err) {
			s.notify.Error("Connection failed for %s: %v", truncate(testURL, URLDisplayLength), err)
		} else {
			s.notify.Error("An unexpected error occurred: %v", err)
		}
		log.WithError(NewPayloadError("fetch", testURL, param, payload, err)).Warn("fetch failed, skipping parameter")
		return caseResult{outcome: outcomeAbort}
	}

	s.notify.Detail("   Sending response to analysis server...")
	verdict := s.classifier.Classify(ctx, body, payload)
	if ctx.Err() != nil {
		return caseResult{outcome: outcomeCanceled}
	}

	log.WithFields(logrus.Fields{
		"verdict": verdict.Kind.String(),
		"reason":  verdict.Detail(),
	}).Debug("classified")

	if verdict.Kind == judge.Inconclusive {
		s.unsure.Add(1)
	}

	switch {
	case verdict.Kind == judge.Inconclusive && verdict.Raw == "":
		s.notify.Error("Analysis unavailable: %s", verdict.Reason)
	case verdict.Raw != "":
		s.notify.Detail("   [Analysis]: %s", verdict.Raw)
	default:
		s.notify.Detail("   [Analysis]: %s: %s", verdict.Kind, verdict.Detail())
	}

	if !verdict.IsVulnerable() {
		return caseResult{outcome: outcomeNotVulnerable}
	}

	return caseResult{
		outcome: outcomeVulnerable,
		finding: config.Finding{
			URL:       testURL,
			Parameter: param,
			Payload:   payload,
			Insight:   verdict.Insight,
		},
	}
}

// record appends a finding to memory and the sink. A sink failure is
// reported but never drops the in-memory finding.
func (s *Scanner) record(finding config.Finding) {
	s.mu.Lock()
	s.findings = append(s.findings, finding)
	s.mu.Unlock()

	s.notify.Vulnerability(finding)

	if s.sink == nil {
		return
	}
	if err := s.sink.Append(finding); err != nil {
		s.notify.Error("Could not write finding to report: %v", err)
		s.log.WithError(err).Error("report append failed")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// String summarises the scanner state for debugging
func (s *Scanner) String() string {
	return fmt.Sprintf("scanner(threads=%d, first=%v, tested=%d, findings=%d)",
		s.opts.Threads, s.opts.FirstOnly, s.TestedCases(), len(s.Findings()))
}
