package fiber

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// schedulerOptions holds configuration resolved from SchedulerOption values.
type schedulerOptions struct {
	logger      *logiface.Logger[logiface.Event]
	eventBuffer int
}

// SchedulerOption configures a Scheduler instance.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions) error
}

// schedulerOptionImpl implements SchedulerOption.
type schedulerOptionImpl struct {
	applySchedulerFunc func(*schedulerOptions) error
}

func (o *schedulerOptionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applySchedulerFunc(opts)
}

// WithLogger attaches a structured logger to the scheduler. A nil logger
// (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithEventBuffer sets the size of the batch of kernel readiness events
// consumed per poll. The default is 256.
func WithEventBuffer(n int) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		if n <= 0 {
			return fmt.Errorf("fiber: event buffer must be positive, got %d", n)
		}
		opts.eventBuffer = n
		return nil
	}}
}

// resolveSchedulerOptions applies SchedulerOption instances to the defaults.
func resolveSchedulerOptions(opts []SchedulerOption) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		eventBuffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
