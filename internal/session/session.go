// Package session tracks which screen an officer is on, which organization
// is open and which filters are applied, and routes row actions on the
// filtered tables to the roster service.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"orgroster/internal/core"
	"orgroster/internal/query"
	"orgroster/pkg/domain"
)

// State is a screen of the navigation flow.
type State int

// Navigation states in the order they are entered.
const (
	StateListing State = iota
	StateDetail
	StateMembers
	StateApplicants
)

func (s State) String() string {
	switch s {
	case StateListing:
		return "listing"
	case StateDetail:
		return "detail"
	case StateMembers:
		return "members"
	case StateApplicants:
		return "applicants"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RoleAdmin lets an identity manage every organization.
const RoleAdmin = "admin"

var (
	// ErrTransition is returned when a screen is entered from the wrong state.
	ErrTransition = errors.New("invalid screen transition")
	// ErrNotManager is returned when the identity does not manage the open organization.
	ErrNotManager = errors.New("identity does not manage this organization")
	// ErrNoConfirmer is returned by destructive actions when no Confirmer is set.
	ErrNoConfirmer = errors.New("confirmation required but no confirmer configured")
	// ErrCancelled is returned when the Confirmer declines an action.
	ErrCancelled = errors.New("action cancelled")
)

// Identity is the acting user.
type Identity struct {
	Name  string
	Roles []string
}

// HasRole reports whether role is among the identity's roles, ignoring case.
func (id Identity) HasRole(role string) bool {
	return slices.ContainsFunc(id.Roles, func(r string) bool {
		return strings.EqualFold(strings.TrimSpace(r), role)
	})
}

// Manages reports whether the identity may edit org: it must be named on the
// current officer roster or carry RoleAdmin.
func (id Identity) Manages(org domain.Organization) bool {
	if id.HasRole(RoleAdmin) {
		return true
	}
	name := strings.TrimSpace(id.Name)
	return name != "" && org.HasOfficer(name)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Option customizes a Session.
type Option func(*Session)

// WithConfirmer sets the confirmer used before accept, decline and kick.
func WithConfirmer(c Confirmer) Option {
	return func(s *Session) { s.confirm = c }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// Session is the navigation state of one user. It holds a reference to the
// open organization, never a copy, and re-reads it from the service on use.
type Session struct {
	svc     *core.Service
	id      Identity
	confirm Confirmer
	log     zerolog.Logger

	stack         []State
	current       domain.Ref
	memberTerm    string
	applicantTerm string
}

// New starts a session on the listing screen.
func New(svc *core.Service, id Identity, opts ...Option) *Session {
	s := &Session{svc: svc, id: id, log: zerolog.Nop(), stack: []State{StateListing}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current screen.
func (s *Session) State() State { return s.stack[len(s.stack)-1] }

// Identity returns the acting identity.
func (s *Session) Identity() Identity { return s.id }

// Listing returns both listing panes for term.
func (s *Session) Listing(term string, wantBranch bool) query.Panes {
	return query.Listing(s.svc.Document(), term, wantBranch)
}

// Open enters the detail screen of ref from the listing screen.
func (s *Session) Open(ref domain.Ref) (domain.Organization, error) {
	if s.State() != StateListing {
		return domain.Organization{}, s.transitionErr(StateDetail)
	}
	org, err := s.svc.Organization(ref)
	if err != nil {
		return domain.Organization{}, err
	}
	s.current = org.Ref()
	s.memberTerm, s.applicantTerm = "", ""
	s.push(StateDetail)
	return org, nil
}

// Current returns a fresh copy of the open organization.
func (s *Session) Current() (domain.Organization, error) {
	if s.State() == StateListing {
		return domain.Organization{}, fmt.Errorf("no organization open: %w", ErrTransition)
	}
	return s.svc.Organization(s.current)
}

// Managing reports whether the identity manages the open organization.
func (s *Session) Managing() bool {
	org, err := s.Current()
	return err == nil && s.id.Manages(org)
}

// Semesters lists the officer roster labels of the open organization.
func (s *Session) Semesters() ([]string, error) {
	org, err := s.Current()
	if err != nil {
		return nil, err
	}
	return query.Semesters(org), nil
}

// Officers returns the roster selected by label.
func (s *Session) Officers(label string) ([]domain.Officer, error) {
	org, err := s.Current()
	if err != nil {
		return nil, err
	}
	return query.OfficersFor(org, label), nil
}

// ShowMembers enters the member table from the detail screen.
func (s *Session) ShowMembers() error {
	if s.State() != StateDetail {
		return s.transitionErr(StateMembers)
	}
	s.push(StateMembers)
	return nil
}

// ShowApplicants enters the applicant table. It is reachable only from the
// member table and only for managers.
func (s *Session) ShowApplicants() error {
	if s.State() != StateMembers {
		return s.transitionErr(StateApplicants)
	}
	if !s.Managing() {
		return ErrNotManager
	}
	s.push(StateApplicants)
	return nil
}

// Back returns to the previous screen. On the listing screen it does nothing.
func (s *Session) Back() State {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	if s.State() == StateListing {
		s.current = domain.Ref{}
	}
	s.log.Debug().Stringer("state", s.State()).Msg("back")
	return s.State()
}

// Members filters the open organization's members and remembers term so
// later row actions resolve against the same rows.
func (s *Session) Members(term string) (query.Result[domain.Member], error) {
	org, err := s.Current()
	if err != nil {
		return query.Result[domain.Member]{}, err
	}
	s.memberTerm = term
	return query.FilterMembers(org.Members, term), nil
}

// Applicants filters the open organization's applicants and remembers term.
func (s *Session) Applicants(term string) (query.Result[domain.Applicant], error) {
	if s.State() != StateApplicants {
		return query.Result[domain.Applicant]{}, fmt.Errorf("applicants not shown: %w", ErrTransition)
	}
	org, err := s.Current()
	if err != nil {
		return query.Result[domain.Applicant]{}, err
	}
	s.applicantTerm = term
	return query.FilterApplicants(org.Applicants, term), nil
}

// AcceptApplicant accepts the applicant on row of the filtered applicant table.
func (s *Session) AcceptApplicant(ctx context.Context, row int) (domain.Member, error) {
	index, applicant, err := s.applicantRow(row)
	if err != nil {
		return domain.Member{}, err
	}
	if err := s.confirmAction(ctx, fmt.Sprintf("Accept %s?", applicant.Name)); err != nil {
		return domain.Member{}, err
	}
	return s.svc.AcceptApplicant(ctx, s.current, index)
}

// DeclineApplicant declines the applicant on row of the filtered applicant table.
func (s *Session) DeclineApplicant(ctx context.Context, row int) (domain.Applicant, error) {
	index, applicant, err := s.applicantRow(row)
	if err != nil {
		return domain.Applicant{}, err
	}
	if err := s.confirmAction(ctx, fmt.Sprintf("Decline %s?", applicant.Name)); err != nil {
		return domain.Applicant{}, err
	}
	return s.svc.DeclineApplicant(ctx, s.current, index)
}

// EditMember sets the position of the member on row of the filtered member table.
func (s *Session) EditMember(ctx context.Context, row int, position string) (domain.Member, error) {
	member, err := s.memberRow(row)
	if err != nil {
		return domain.Member{}, err
	}
	return s.svc.EditMember(ctx, s.current, member.Name, position)
}

// KickMember removes the member on row of the filtered member table.
func (s *Session) KickMember(ctx context.Context, row int) (domain.Member, error) {
	member, err := s.memberRow(row)
	if err != nil {
		return domain.Member{}, err
	}
	if err := s.confirmAction(ctx, fmt.Sprintf("Kick %s?", member.Name)); err != nil {
		return domain.Member{}, err
	}
	return s.svc.KickMember(ctx, s.current, member.Name)
}

// EditOfficer replaces the officer with the same name in the open organization.
func (s *Session) EditOfficer(ctx context.Context, officer domain.Officer) (int, error) {
	if err := s.requireManager(); err != nil {
		return 0, err
	}
	return s.svc.UpdateOfficer(ctx, s.current, officer)
}

// EditOrganization overwrites brief, description and logo of the open organization.
func (s *Session) EditOrganization(ctx context.Context, brief, description, logoPath string) (domain.Organization, error) {
	if err := s.requireManager(); err != nil {
		return domain.Organization{}, err
	}
	return s.svc.UpdateOrganizationMetadata(ctx, s.current, brief, description, logoPath)
}

func (s *Session) memberRow(row int) (domain.Member, error) {
	if s.State() != StateMembers {
		return domain.Member{}, fmt.Errorf("members not shown: %w", ErrTransition)
	}
	if err := s.requireManager(); err != nil {
		return domain.Member{}, err
	}
	res, err := s.Members(s.memberTerm)
	if err != nil {
		return domain.Member{}, err
	}
	if row < 0 || row >= res.Len() {
		return domain.Member{}, domain.IndexOutOfRangeError{Entity: domain.EntityMember, Index: row, Len: res.Len()}
	}
	return res.Items[row], nil
}

func (s *Session) applicantRow(row int) (int, domain.Applicant, error) {
	if err := s.requireManager(); err != nil {
		return 0, domain.Applicant{}, err
	}
	res, err := s.Applicants(s.applicantTerm)
	if err != nil {
		return 0, domain.Applicant{}, err
	}
	index, ok := res.Source(row)
	if !ok {
		return 0, domain.Applicant{}, domain.IndexOutOfRangeError{Entity: domain.EntityApplicant, Index: row, Len: res.Len()}
	}
	return index, res.Items[row], nil
}

func (s *Session) requireManager() error {
	if _, err := s.Current(); err != nil {
		return err
	}
	if !s.Managing() {
		return ErrNotManager
	}
	return nil
}

func (s *Session) confirmAction(ctx context.Context, prompt string) error {
	if s.confirm == nil {
		return ErrNoConfirmer
	}
	ok, err := s.confirm.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		s.log.Info().Str("prompt", prompt).Msg("action cancelled")
		return ErrCancelled
	}
	return nil
}

func (s *Session) push(next State) {
	s.stack = append(s.stack, next)
	s.log.Debug().Stringer("state", next).Str("org", s.current.String()).Msg("enter")
}

func (s *Session) transitionErr(to State) error {
	return fmt.Errorf("%s -> %s: %w", s.State(), to, ErrTransition)
}
