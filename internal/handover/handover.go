// Package handover implements the supervised three-step handover: the
// handing-over user authenticates, the physical tag is scanned against
// the record, and the recipient is captured. Only the final step writes
// anything; cancelling earlier leaves every collection untouched.
package handover

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fundbuero/internal/model"
	"fundbuero/internal/policy"
	"fundbuero/internal/registry"
	"fundbuero/internal/session"
)

// Step identifies the protocol position.
type Step int

// Protocol steps, in order. Done and Cancelled are terminal.
const (
	StepAuthenticate Step = iota + 1
	StepScan
	StepRecipient
	StepDone
	StepCancelled
)

// String returns the wire name of the step.
func (s Step) String() string {
	switch s {
	case StepAuthenticate:
		return "authenticate"
	case StepScan:
		return "scan"
	case StepRecipient:
		return "recipient"
	case StepDone:
		return "done"
	case StepCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IDLength is the number of characters a complete scanned identifier
// has. Scanner input auto-verifies the moment this many characters have
// accumulated.
const IDLength = 16

// ErrWrongStep is returned when an operation does not belong to the
// current step, including any operation on a finished protocol.
var ErrWrongStep = errors.New("step not available")

// ErrMismatch is returned when the scanned or typed identifier does not
// match the item. The buffer clears and the step may be retried without
// limit.
var ErrMismatch = errors.New("identifier mismatch")

// Protocol is a single handover transaction for one item. It always
// starts at the authentication step; re-initiating a handover for the
// same item starts a fresh transaction from step one.
type Protocol struct {
	mu      sync.Mutex
	step    Step
	item    model.Item
	actor   *model.Identity
	scanned string

	reg      *registry.Registry
	sessions *session.Manager
}

// Begin starts a handover for an item the initiator can see. Items in
// storage need an admin to initiate; sold or missing items refuse.
func Begin(ctx context.Context, reg *registry.Registry, sessions *session.Manager, initiator model.Identity, itemID string) (*Protocol, error) {
	item, err := reg.Item(ctx, initiator, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != model.StatusActive && item.Status != model.StatusStored {
		return nil, fmt.Errorf("%w: cannot hand over %s item", registry.ErrNotEligible, item.Status)
	}
	if !policy.CanInitiateHandover(initiator, *item) {
		return nil, registry.ErrDenied
	}
	return &Protocol{
		step:     StepAuthenticate,
		item:     *item,
		reg:      reg,
		sessions: sessions,
	}, nil
}

// Step returns the current protocol position.
func (p *Protocol) Step() Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.step
}

// Item returns the target item as it looked when the handover began.
func (p *Protocol) Item() model.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.item
}

// Actor returns the authenticated handing-over user, or nil before the
// authentication step succeeded.
func (p *Protocol) Actor() *model.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.actor
}

// Authenticate runs step one. Any registered account may hand over; the
// matched user becomes the acting session identity, switching it if
// someone else was logged in. Bad credentials leave the protocol at step
// one for another attempt.
func (p *Protocol) Authenticate(ctx context.Context, email, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != StepAuthenticate {
		return fmt.Errorf("%w: at step %s", ErrWrongStep, p.step)
	}

	ident, err := p.sessions.Switch(ctx, email, password)
	if err != nil {
		return err
	}
	p.actor = ident
	p.step = StepScan
	return nil
}

// Scan appends scanner input to the verification buffer. The moment
// exactly IDLength characters have accumulated the buffer is checked
// against the item; on a match the protocol advances and Scan reports
// true. Shorter input waits for more; overshooting or mismatching clears
// the buffer and returns ErrMismatch.
func (p *Protocol) Scan(ctx context.Context, chunk string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != StepScan {
		return false, fmt.Errorf("%w: at step %s", ErrWrongStep, p.step)
	}

	p.scanned += model.NormalizeItemID(chunk)
	if len(p.scanned) < IDLength {
		return false, nil
	}

	code := p.scanned
	p.scanned = ""
	if len(code) != IDLength || code != p.item.ID {
		return false, ErrMismatch
	}
	p.step = StepRecipient
	return true, nil
}

// Confirm verifies a hand-typed identifier in one piece, for operators
// without a scanner. A mismatch clears any buffered scanner input too.
func (p *Protocol) Confirm(ctx context.Context, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != StepScan {
		return fmt.Errorf("%w: at step %s", ErrWrongStep, p.step)
	}

	p.scanned = ""
	if model.NormalizeItemID(code) != p.item.ID {
		return ErrMismatch
	}
	p.step = StepRecipient
	return nil
}

// Complete runs the final step: the recipient record is validated and
// the item moves into the archive, stamped with the step-one actor. On
// validation failure the protocol stays at the recipient step so the
// form can be corrected.
func (p *Protocol) Complete(ctx context.Context, rec model.Recipient) (*model.ArchivedItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step != StepRecipient {
		return nil, fmt.Errorf("%w: at step %s", ErrWrongStep, p.step)
	}
	if p.actor == nil {
		return nil, fmt.Errorf("%w: no authenticated actor", ErrWrongStep)
	}

	archived, err := p.reg.HandOver(ctx, *p.actor, p.item.ID, rec)
	if err != nil {
		return nil, err
	}
	p.step = StepDone
	return archived, nil
}

// Cancel abandons the protocol from any non-terminal step. Nothing has
// been written before Complete, so there is nothing to roll back.
func (p *Protocol) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.step == StepDone || p.step == StepCancelled {
		return
	}
	p.step = StepCancelled
	p.scanned = ""
}
