package svfs

import (
	"log"

	"github.com/hashicorp/go-multierror"
)

// txStep is one (do, undo) pair. undo may be nil for steps with no sane
// inverse (e.g. a destructive data write); such steps are expected to only
// ever appear where nothing downstream can fail, or where losing the undo is
// an accepted limitation.
type txStep struct {
	do   func() error
	undo func() error
}

// transaction executes a list of (do, undo) steps in order and, if any step
// fails, rolls back every step that already succeeded in reverse order.
// Rollback failures are aggregated with the triggering error rather than
// dropped.
type transaction struct {
	steps  []txStep
	active bool
	logger *log.Logger
}

func newTransaction(logger *log.Logger) *transaction {
	return &transaction{logger: logger}
}

// add appends a (do, undo) step. Steps run in the order they were added.
func (t *transaction) add(do, undo func() error) {
	t.steps = append(t.steps, txStep{do: do, undo: undo})
}

// commit executes every staged step. If one fails, every step that already
// ran is undone in reverse order and the original error is returned, joined
// with any rollback failures. A commit called re-entrantly (from within a
// step's do/undo) is a silent no-op, which lets one top-level operation stage
// steps from helpers that themselves might be called standalone elsewhere;
// steps such a helper adds are run by the outer commit after the current one.
func (t *transaction) commit() error {
	if t.active {
		return nil
	}
	t.active = true
	defer func() {
		t.steps = nil
		t.active = false
	}()

	var executed []txStep
	for i := 0; i < len(t.steps); i++ {
		step := t.steps[i]
		if err := step.do(); err != nil {
			return t.rollback(executed, err)
		}
		executed = append(executed, step)
	}
	return nil
}

func (t *transaction) rollback(executed []txStep, cause error) error {
	var rollbackErrs *multierror.Error
	for i := len(executed) - 1; i >= 0; i-- {
		undo := executed[i].undo
		if undo == nil {
			continue
		}
		if err := undo(); err != nil {
			if t.logger != nil {
				t.logger.Printf("svfs: rollback step failed: %v", err)
			}
			rollbackErrs = multierror.Append(rollbackErrs, err)
		}
	}

	if rollbackErrs.ErrorOrNil() == nil {
		return cause
	}
	combined := multierror.Append(rollbackErrs, cause)
	return combined.ErrorOrNil()
}
