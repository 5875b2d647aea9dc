package localizedcontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// compensation undoes one completed step.
type compensation func(ctx context.Context) error

type workStep struct {
	name       string
	compensate compensation
}

// unitOfWork journals the steps of one logical write so a partial failure
// can be reported precisely and, on request, undone.
type unitOfWork struct {
	op          string
	postID      int64
	steps       []workStep
	compensated bool
	logger      *slog.Logger
}

func newUnitOfWork(op string, logger *slog.Logger) *unitOfWork {
	return &unitOfWork{op: op, logger: logger}
}

// record appends a completed step. undo may be nil for steps that need no
// compensation.
func (u *unitOfWork) record(name string, undo compensation) {
	u.steps = append(u.steps, workStep{name: name, compensate: undo})
}

func (u *unitOfWork) completed() []string {
	names := make([]string, len(u.steps))
	for i, s := range u.steps {
		names[i] = s.name
	}
	return names
}

// fail builds the error reported for a step that did not complete.
func (u *unitOfWork) fail(step string, err error) *PartialWriteError {
	u.logger.Error("Partial write", "op", u.op, "post_id", u.postID, "step", step, "completed", u.completed(), "error", err)
	return &PartialWriteError{
		PostID:    u.postID,
		Op:        u.op,
		Step:      step,
		Completed: u.completed(),
		Err:       err,
		work:      u,
	}
}

// compensate runs the recorded compensations newest first. Every
// compensation is attempted; failures are joined.
func (u *unitOfWork) compensate(ctx context.Context) error {
	if u.compensated {
		return nil
	}
	u.compensated = true

	var errs []error
	for i := len(u.steps) - 1; i >= 0; i-- {
		s := u.steps[i]
		if s.compensate == nil {
			continue
		}
		if err := s.compensate(ctx); err != nil {
			u.logger.Error("Compensation failed", "op", u.op, "post_id", u.postID, "step", s.name, "error", err)
			errs = append(errs, fmt.Errorf("undo %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
