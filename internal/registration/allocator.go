package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"regportal/internal/model"
	"regportal/internal/repo"
)

const DefaultMaxAttempts = 5

// Sequence reports the highest store-assigned registration id.
type Sequence interface {
	LastRegistrationID(ctx context.Context) (int64, error)
}

type AllocatorStore interface {
	Sequence
	InsertRegistration(ctx context.Context, reg *model.Registration) error
}

// Allocator assigns REG-#### identifiers. Candidates are derived from the
// current highest row id, so uniqueness rests on the store's reg_id
// constraint and the bounded retry, not on the derivation.
type Allocator struct {
	store       AllocatorStore
	maxAttempts int
	log         *zerolog.Logger
}

func NewAllocator(store AllocatorStore, maxAttempts int, log *zerolog.Logger) *Allocator {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if maxAttempts <= 0 || maxAttempts > DefaultMaxAttempts {
		if maxAttempts > DefaultMaxAttempts {
			log.Warn().Int("max_attempts", maxAttempts).Int("limit", DefaultMaxAttempts).Msg("allocator attempts capped")
		}
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{store: store, maxAttempts: maxAttempts, log: log}
}

// Allocate inserts reg under a fresh RegID. Each attempt is a single insert;
// nothing is written when every attempt collides.
func (a *Allocator) Allocate(ctx context.Context, reg *model.Registration) error {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		last, err := a.store.LastRegistrationID(ctx)
		if err != nil {
			return fmt.Errorf("failed to read registration sequence: %w", err)
		}

		reg.RegID = FormatRegID(last + int64(attempt))
		if reg.QRCode, err = ticketPayload(reg); err != nil {
			return err
		}

		err = a.store.InsertRegistration(ctx, reg)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repo.ErrDuplicateRegID):
			a.log.Debug().
				Str("reg_id", reg.RegID).
				Int("attempt", attempt).
				Msg("registration id taken, retrying")
		case errors.Is(err, repo.ErrDuplicateMobile):
			reg.RegID, reg.QRCode = "", ""
			return ErrDuplicateMobile
		default:
			reg.RegID, reg.QRCode = "", ""
			return fmt.Errorf("failed to insert registration: %w", err)
		}
	}

	a.log.Warn().Int("attempts", a.maxAttempts).Msg("registration id allocation exhausted")
	reg.RegID, reg.QRCode = "", ""
	return ErrAllocationExhausted
}
