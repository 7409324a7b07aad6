package scanner

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// errStopParameter cancels the remaining payloads of one parameter
var errStopParameter = errors.New("stop parameter")

// scanConcurrent runs every parameter in parallel while a shared
// semaphore bounds in-flight test cases to Threads.
func (s *Scanner) scanConcurrent(ctx context.Context, target string, params, payloadList []string) {
	sem := make(chan struct{}, s.opts.Threads)

	var wg sync.WaitGroup
	for _, param := range params {
		wg.Add(1)
		go func(param string) {
			defer wg.Done()
			s.testParameterConcurrent(ctx, sem, target, param, payloadList)
		}(param)
	}
	wg.Wait()
}

// testParameterConcurrent fans one parameter's payloads out over the
// semaphore. A transport error, or the first finding under FirstOnly,
// cancels the group so queued payloads are never sent.
func (s *Scanner) testParameterConcurrent(ctx context.Context, sem chan struct{}, target, param string, payloadList []string) {
	s.notify.Step("Testing parameter: %s", param)

	g, gctx := errgroup.WithContext(ctx)

	var (
		foundMu sync.Mutex
		found   bool
	)

	for _, payload := range payloadList {
		acquired := false
		select {
		case sem <- struct{}{}:
			acquired = true
		case <-gctx.Done():
		}
		if gctx.Err() != nil {
			if acquired {
				<-sem
			}
			break
		}

		payload := payload
		g.Go(func() error {
			defer func() { <-sem }()

			result := s.runCase(gctx, target, param, payload)
			switch result.outcome {
			case outcomeAbort:
				return errStopParameter
			case outcomeVulnerable:
				if !s.opts.FirstOnly {
					s.record(result.finding)
					return nil
				}

				foundMu.Lock()
				if found {
					foundMu.Unlock()
					return nil
				}
				found = true
				foundMu.Unlock()

				s.record(result.finding)
				s.notify.Info("Vulnerability found. Stopping scan for parameter '%s' as per --first flag.", param)
				return errStopParameter
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errStopParameter) {
		s.log.WithError(err).WithField("param", param).Error("parameter worker failed")
	}
}
