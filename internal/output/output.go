// Package output is the announcement and error sink. Setup-time errors
// accumulate and surface once through ExitIfErrors; announcements go
// through klog with a verbosity gate.
package output

import (
	"errors"
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

// Output collects setup errors and routes announcements. Safe for
// concurrent use.
type Output struct {
	mu            sync.Mutex
	errs          []error
	verbosity     int
	flush         bool
	store         bool
	announcements []string
}

// New builds a sink. Verbosity must be >= 0; higher values silence more.
func New(verbosity int, store, flush bool) (*Output, error) {
	if verbosity < 0 {
		return nil, errors.New("verbosity should be an integer >= 0")
	}
	return &Output{verbosity: verbosity, store: store, flush: flush}, nil
}

// Message logs an ordinary announcement.
func (o *Output) Message(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.mu.Lock()
	if o.store {
		o.announcements = append(o.announcements, msg)
	}
	verbosity := o.verbosity
	flush := o.flush
	o.mu.Unlock()

	if verbosity == 0 {
		klog.Info(msg)
	} else {
		klog.V(klog.Level(verbosity)).Info(msg)
	}
	if flush {
		klog.Flush()
	}
}

// Warning logs a condition the run survives.
func (o *Output) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.mu.Lock()
	if o.store {
		o.announcements = append(o.announcements, "WARNING: "+msg)
	}
	flush := o.flush
	o.mu.Unlock()

	klog.Warning(msg)
	if flush {
		klog.Flush()
	}
}

// Error records a setup error. The run keeps accumulating until
// ExitIfErrors flushes the batch, so one pass reports every bad parameter.
func (o *Output) Error(format string, args ...any) {
	err := fmt.Errorf(format, args...)
	o.mu.Lock()
	o.errs = append(o.errs, err)
	o.mu.Unlock()
	klog.Error(err.Error())
}

// ExitIfErrors returns every accumulated error joined, or nil. The caller
// in cmd decides the process exit.
func (o *Output) ExitIfErrors() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.errs) == 0 {
		return nil
	}
	err := errors.Join(o.errs...)
	o.errs = nil
	return err
}

// HasErrors reports whether errors are pending.
func (o *Output) HasErrors() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.errs) > 0
}

// Announcements returns the stored messages, oldest first. Empty unless
// the sink was built with store.
func (o *Output) Announcements() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.announcements...)
}
