package imagesquarer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-squarer/pkg/types"
)

// Session is one batch of normalized images sharing an output size.
//
// The size is fixed while the session holds results; Reset clears the results
// and unlocks it. Methods are safe for concurrent use, and Process holds the
// session for the whole batch so results stay in input order.
type Session struct {
	mu         sync.Mutex
	squarer    *Squarer
	outputSize int
	results    []types.Result
	log        logrus.FieldLogger
}

// NewSession opens an empty session. A nil logger discards output.
func (s *Squarer) NewSession(outputSize int, log logrus.FieldLogger) (*Session, error) {
	if err := types.ValidateOutputSize(outputSize); err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{
		squarer:    s,
		outputSize: outputSize,
		log:        log,
	}, nil
}

// OutputSize returns the side length of every thumbnail in the session
func (ss *Session) OutputSize() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.outputSize
}

// Locked reports whether the output size can no longer change
func (ss *Session) Locked() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.results) > 0
}

// SetOutputSize changes the output size. It fails with a validation error when
// the size is out of range or the session already holds results.
func (ss *Session) SetOutputSize(size int) error {
	if err := types.ValidateOutputSize(size); err != nil {
		return err
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if size == ss.outputSize {
		return nil
	}
	if len(ss.results) > 0 {
		return &types.OpError{
			Op:   "session.set_output_size",
			Kind: types.KindValidation,
			Err:  fmt.Errorf("%w: %d results pending, clear them before changing the size", types.ErrSessionLocked, len(ss.results)),
		}
	}
	ss.outputSize = size
	return nil
}

// Process normalizes inputs in order. A failing image is reported in its
// outcome and does not stop the batch. When ctx is cancelled the remaining
// inputs are dropped and ctx.Err() is returned with the outcomes so far.
func (ss *Session) Process(ctx context.Context, inputs []types.Input) ([]types.Outcome, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	outcomes := make([]types.Outcome, 0, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			ss.log.WithField("skipped", len(inputs)-i).Warn("batch cancelled")
			return outcomes, err
		}

		entry := ss.log.WithFields(logrus.Fields{"name": in.Name, "input": i})

		data, box, err := ss.squarer.ProcessBytes(in.Name, in.Data, ss.outputSize)
		if err != nil {
			entry.WithError(err).Warn("image skipped")
			outcomes = append(outcomes, types.Outcome{Name: in.Name, Index: -1, Box: box, Err: err})
			continue
		}

		ss.results = append(ss.results, types.Result{Name: in.Name, Data: data})
		index := len(ss.results) - 1
		entry.WithFields(logrus.Fields{
			"index": index,
			"box":   box.String(),
			"bytes": len(data),
		}).Debug("image normalized")

		outcomes = append(outcomes, types.Outcome{Name: in.Name, Index: index, Box: box})
	}
	return outcomes, nil
}

// Len returns the number of stored results
func (ss *Session) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.results)
}

// Results returns a copy of the stored results in input order
func (ss *Session) Results() []types.Result {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make([]types.Result, len(ss.results))
	copy(out, ss.results)
	return out
}

// Result returns the result at index i
func (ss *Session) Result(i int) (types.Result, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if i < 0 || i >= len(ss.results) {
		return types.Result{}, false
	}
	return ss.results[i], true
}

// Reset drops all results and unlocks the output size
func (ss *Session) Reset() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if n := len(ss.results); n > 0 {
		ss.log.WithField("results", n).Info("session cleared")
	}
	ss.results = nil
}
