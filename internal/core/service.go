// Package core holds the roster service: it owns the loaded document, applies
// officer-side mutations to it and writes the whole document back after each
// one.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"orgroster/pkg/domain"
)

// Operation names reported to logs and metrics.
const (
	OpLoad             = "load"
	OpAcceptApplicant  = "accept_applicant"
	OpDeclineApplicant = "decline_applicant"
	OpEditMember       = "edit_member"
	OpKickMember       = "kick_member"
	OpUpdateOfficer    = "update_officer"
	OpUpdateMetadata   = "update_organization"
	OpReplaceDocument  = "replace_document"
)

// Service applies mutations to the in-memory document and persists it. It is
// not safe for concurrent use.
type Service struct {
	store   domain.DocumentStore
	doc     domain.Document
	now     func() time.Time
	metrics MetricsRecorder
	log     zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock sets the clock used for join dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService constructs a service over store with an empty document. Call
// Load to read the stored one.
func NewService(store domain.DocumentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		doc:     domain.EmptyDocument(),
		now:     time.Now,
		metrics: noopMetrics{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory document with the stored one. When the store
// reports a failure the service keeps the empty document it was handed and
// returns the error, so callers can show an empty listing and a warning.
func (s *Service) Load(ctx context.Context) error {
	start := time.Now()
	doc, err := s.store.Load(ctx)
	doc.Normalize()
	s.doc = doc
	s.observe(ctx, OpLoad, start, err)
	if err != nil {
		s.log.Warn().Err(err).Msg("document load failed; starting empty")
		return err
	}
	s.log.Debug().Int("organizations", len(doc.Organizations)).Msg("document loaded")
	return nil
}

// Document returns a copy of the current document.
func (s *Service) Document() domain.Document { return s.doc.Clone() }

// Organization returns a copy of the organization addressed by ref.
func (s *Service) Organization(ref domain.Ref) (domain.Organization, error) {
	org, err := s.find(ref)
	if err != nil {
		return domain.Organization{}, err
	}
	return org.Clone(), nil
}

// AcceptApplicant moves applicant index of ref into its members, dated today.
func (s *Service) AcceptApplicant(ctx context.Context, ref domain.Ref, index int) (domain.Member, error) {
	var member domain.Member
	err := s.mutate(ctx, OpAcceptApplicant, ref, func(org *domain.Organization) error {
		var err error
		member, err = org.AcceptApplicant(index, s.now())
		return err
	}, func(ev *zerolog.Event) { ev.Int("index", index).Str("member", member.Name) })
	return member, err
}

// DeclineApplicant removes applicant index of ref.
func (s *Service) DeclineApplicant(ctx context.Context, ref domain.Ref, index int) (domain.Applicant, error) {
	var applicant domain.Applicant
	err := s.mutate(ctx, OpDeclineApplicant, ref, func(org *domain.Organization) error {
		var err error
		applicant, err = org.DeclineApplicant(index)
		return err
	}, func(ev *zerolog.Event) { ev.Int("index", index).Str("applicant", applicant.Name) })
	return applicant, err
}

// EditMember sets the position of the first member of ref named key.
func (s *Service) EditMember(ctx context.Context, ref domain.Ref, key, position string) (domain.Member, error) {
	var member domain.Member
	err := s.mutate(ctx, OpEditMember, ref, func(org *domain.Organization) error {
		var err error
		member, err = org.EditMember(key, position)
		return err
	}, func(ev *zerolog.Event) { ev.Str("member", key).Str("position", position) })
	return member, err
}

// KickMember removes the first member of ref named key.
func (s *Service) KickMember(ctx context.Context, ref domain.Ref, key string) (domain.Member, error) {
	var member domain.Member
	err := s.mutate(ctx, OpKickMember, ref, func(org *domain.Organization) error {
		var err error
		member, err = org.KickMember(key)
		return err
	}, func(ev *zerolog.Event) { ev.Str("member", key) })
	return member, err
}

// UpdateOfficer replaces the officer of ref with the same name in the roster
// and in every history bucket, returning how many records changed.
func (s *Service) UpdateOfficer(ctx context.Context, ref domain.Ref, officer domain.Officer) (int, error) {
	var replaced int
	err := s.mutate(ctx, OpUpdateOfficer, ref, func(org *domain.Organization) error {
		var err error
		replaced, err = org.UpdateOfficer(officer)
		return err
	}, func(ev *zerolog.Event) { ev.Str("officer", officer.Name).Int("replaced", replaced) })
	return replaced, err
}

// UpdateOrganizationMetadata overwrites brief, description and logo of ref.
func (s *Service) UpdateOrganizationMetadata(ctx context.Context, ref domain.Ref, brief, description, logoPath string) (domain.Organization, error) {
	var updated domain.Organization
	err := s.mutate(ctx, OpUpdateMetadata, ref, func(org *domain.Organization) error {
		org.UpdateMetadata(brief, description, logoPath)
		updated = org.Clone()
		return nil
	}, func(ev *zerolog.Event) { ev.Str("logo_path", logoPath) })
	return updated, err
}

// ReplaceDocument swaps in doc and saves it.
func (s *Service) ReplaceDocument(ctx context.Context, doc domain.Document) error {
	start := time.Now()
	doc = doc.Clone()
	doc.Normalize()
	s.doc = doc
	err := s.persist(ctx)
	s.observe(ctx, OpReplaceDocument, start, err)
	return err
}

func (s *Service) find(ref domain.Ref) (*domain.Organization, error) {
	org, ok := s.doc.Find(ref)
	if !ok {
		entity := domain.EntityOrganization
		if ref.Branch {
			entity = domain.EntityBranch
		}
		return nil, domain.NotFoundError{Entity: entity, Key: ref.String()}
	}
	return org, nil
}

// mutate looks up ref, applies fn and saves the whole document. A failed
// save leaves the in-memory change in place.
func (s *Service) mutate(ctx context.Context, op string, ref domain.Ref, fn func(*domain.Organization) error, fields func(*zerolog.Event)) error {
	start := time.Now()
	err := s.apply(ctx, ref, fn)
	s.observe(ctx, op, start, err)

	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = s.log.Info()
	case errors.Is(err, domain.ErrPersistence):
		ev = s.log.Error().Err(err)
	default:
		ev = s.log.Warn().Err(err)
	}
	ev = ev.Str("op", op).Str("org", ref.String())
	if fields != nil {
		fields(ev)
	}
	ev.Msg(op)
	return err
}

func (s *Service) apply(ctx context.Context, ref domain.Ref, fn func(*domain.Organization) error) error {
	org, err := s.find(ref)
	if err != nil {
		return err
	}
	if err := fn(org); err != nil {
		return err
	}
	return s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) error {
	err := s.store.Save(ctx, s.doc)
	if err == nil {
		return nil
	}
	var pe *domain.PersistenceError
	if errors.As(err, &pe) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return &domain.PersistenceError{Op: "save", Err: err}
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
}
