package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"regportal/internal/model"
	"regportal/internal/repo"
)

type Outcome string

const (
	OutcomeAdmitted        Outcome = "admitted"
	OutcomeAlreadyAdmitted Outcome = "already_admitted"
)

type AdmitResult struct {
	Outcome      Outcome
	Registration *model.Registration
}

type AdmissionStore interface {
	GetRegistrationByRegID(ctx context.Context, regID string) (*model.Registration, error)
	AdmitRegistration(ctx context.Context, regID string, at time.Time) (bool, error)
}

// AdmissionService moves registrations from pending to admitted. The
// transition is a conditional update in the store, so concurrent scans of
// one ticket admit it once.
type AdmissionService struct {
	store AdmissionStore
	now   func() time.Time
	log   *zerolog.Logger
}

func NewAdmissionService(store AdmissionStore, log *zerolog.Logger) *AdmissionService {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &AdmissionService{store: store, now: time.Now, log: log}
}

// WithClock replaces the admission timestamp source.
func (s *AdmissionService) WithClock(now func() time.Time) *AdmissionService {
	s.now = now
	return s
}

func (s *AdmissionService) Admit(ctx context.Context, regID string) (*AdmitResult, error) {
	regID = strings.TrimSpace(regID)
	if regID == "" {
		return nil, &ValidationError{Field: "reg_id", Reason: "required"}
	}

	admitted, err := s.store.AdmitRegistration(ctx, regID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to admit %s: %w", regID, err)
	}

	reg, err := s.store.GetRegistrationByRegID(ctx, regID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load %s: %w", regID, err)
	}

	if admitted {
		s.log.Info().Str("reg_id", regID).Msg("registration admitted")
		return &AdmitResult{Outcome: OutcomeAdmitted, Registration: reg}, nil
	}
	if !reg.Admitted {
		return nil, fmt.Errorf("registration %s neither admitted nor admittable", regID)
	}
	return &AdmitResult{Outcome: OutcomeAlreadyAdmitted, Registration: reg}, nil
}

// AdmitScan admits the registration named by a scanned QR payload.
func (s *AdmissionService) AdmitScan(ctx context.Context, raw string) (*AdmitResult, error) {
	regID, err := ParseScan(raw)
	if err != nil {
		return nil, err
	}
	return s.Admit(ctx, regID)
}
