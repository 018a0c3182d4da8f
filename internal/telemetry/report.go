// Package telemetry publishes the outcome of decoded blocks.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rjboer/goeep/internal/dsp"
	"github.com/rjboer/goeep/internal/logging"
)

// BlockReport summarizes one decoded block.
type BlockReport struct {
	Block       int                  `json:"block"`
	StartOffset uint64               `json:"start_offset_bits"`
	EndOffset   uint64               `json:"end_offset_bits"`
	NSamp       int                  `json:"nsamp"`
	NChan       int                  `json:"nchan"`
	Channels    []dsp.ChannelSummary `json:"channels,omitempty"`
	Samples     [][]int32            `json:"samples,omitempty"` // [channel][sample]
}

// Reporter receives block reports.
type Reporter interface {
	Report(r BlockReport) error
}

// StdoutReporter logs each block through a logger.
type StdoutReporter struct {
	logger logging.Logger
}

// NewStdoutReporter builds a reporter with the provided logger.
func NewStdoutReporter(logger logging.Logger) StdoutReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return StdoutReporter{logger: logger.With(logging.F("subsystem", "telemetry"))}
}

func (r StdoutReporter) Report(rep BlockReport) error {
	r.logger.Info("block",
		logging.F("block", rep.Block),
		logging.F("offset_bits", rep.StartOffset),
		logging.F("end_bits", rep.EndOffset),
		logging.F("nsamp", rep.NSamp),
		logging.F("nchan", rep.NChan),
	)
	for _, ch := range rep.Channels {
		r.logger.Info("channel",
			logging.F("block", rep.Block),
			logging.F("channel", ch.Channel),
			logging.F("method", ch.Method),
			logging.F("min", ch.Min),
			logging.F("max", ch.Max),
			logging.F("mean", fmt.Sprintf("%.3f", ch.Mean)),
			logging.F("rms", fmt.Sprintf("%.3f", ch.RMS)),
			logging.F("peak_bin", ch.PeakBin),
		)
	}
	return nil
}

// JSONReporter collects reports and writes them as a single JSON document on
// Close.
type JSONReporter struct {
	mu      sync.Mutex
	w       io.Writer
	reports []BlockReport
	closed  bool
}

// NewJSONReporter returns a reporter that writes to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{w: w}
}

func (r *JSONReporter) Report(rep BlockReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("json reporter is closed")
	}
	r.reports = append(r.reports, rep)
	return nil
}

// Close writes the collected reports.
func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	doc := struct {
		Blocks []BlockReport `json:"blocks"`
	}{Blocks: r.reports}
	if doc.Blocks == nil {
		doc.Blocks = []BlockReport{}
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}

// MultiReporter fans out reports to several reporters. Every reporter sees
// every report; errors are joined.
func MultiReporter(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

type multiReporter []Reporter

func (m multiReporter) Report(rep BlockReport) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
