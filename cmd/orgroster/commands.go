package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"orgroster/internal/core"
	"orgroster/internal/images"
	"orgroster/internal/logger"
	"orgroster/internal/query"
	"orgroster/internal/session"
	"orgroster/pkg/domain"
)

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usageErr("%s", fs.Name())
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
	if len(pos) != want {
		return nil, usageErr("%s expects %d argument(s), got %d", fs.Name(), want, len(pos))
	}
	return pos, nil
}

func parseRow(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, usageErr("row must be a positive number, got %q", s)
	}
	return n - 1, nil
}

func runOrgs(ctx context.Context, a *app, args []string) error {
	return listing(ctx, a, "orgs", args, false)
}

func runBranches(ctx context.Context, a *app, args []string) error {
	return listing(ctx, a, "branches", args, true)
}

func listing(ctx context.Context, a *app, name string, args []string, wantBranch bool) error {
	fs := newFlagSet(a, name)
	term := fs.String("q", "", "case-insensitive name filter")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	s, err := a.session(ctx)
	if err != nil {
		return err
	}
	panes := s.Listing(*term, wantBranch)
	title := "Organizations"
	if wantBranch {
		title = "Branches"
	}
	tw := newTable(a.stdout)
	writeOrgPane(tw, "Joined "+title, panes.Joined)
	fmt.Fprintln(tw)
	writeOrgPane(tw, "College "+title, panes.College)
	return tw.Flush()
}

func writeOrgPane(w io.Writer, title string, res query.Result[domain.Organization]) {
	fmt.Fprintf(w, "%s\n", title)
	if res.Empty() {
		fmt.Fprintf(w, "  %s\n", res.Message())
		return
	}
	for _, org := range res.Items {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", org.Ref(), org.Name, org.Brief)
	}
}

func openOrg(ctx context.Context, a *app, raw string) (*session.Session, domain.Organization, error) {
	ref, err := domain.ParseRef(raw)
	if err != nil {
		return nil, domain.Organization{}, usageErr("%v", err)
	}
	s, err := a.session(ctx)
	if err != nil {
		return nil, domain.Organization{}, err
	}
	org, err := s.Open(ref)
	if err != nil {
		return nil, domain.Organization{}, err
	}
	return s, org, nil
}

func runShow(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "show")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	s, org, err := openOrg(ctx, a, pos[0])
	if err != nil {
		return err
	}
	tw := newTable(a.stdout)
	fmt.Fprintf(tw, "Name:\t%s\n", org.Name)
	fmt.Fprintf(tw, "Ref:\t%s\n", org.Ref())
	fmt.Fprintf(tw, "Joined:\t%s\n", yesNo(org.IsJoined))
	fmt.Fprintf(tw, "Logo:\t%s\n", a.imageLocation(ctx, org.LogoPath))
	fmt.Fprintf(tw, "Brief:\t%s\n", org.Brief)
	fmt.Fprintf(tw, "Description:\t%s\n", org.Description)
	fmt.Fprintf(tw, "Managing:\t%s\n", yesNo(s.Managing()))
	labels, err := s.Semesters()
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "Semesters:\t%s\n", strings.Join(labels, ", "))
	if len(org.Branches) > 0 {
		fmt.Fprintln(tw, "Branches:")
		for _, b := range org.Branches {
			fmt.Fprintf(tw, "  %s\t%s\n", b.Ref(), b.Name)
		}
	}
	fmt.Fprintln(tw, "Events:")
	if len(org.Events) == 0 {
		fmt.Fprintf(tw, "  %s\n", query.EmptyStateMessage)
	}
	for _, ev := range org.Events {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", ev.Date, ev.Name, ev.Description)
	}
	return tw.Flush()
}

// imageLocation renders an image path as a URL when the blob store can give
// one, the bare key otherwise, and the sentinel when there is no image.
func (a *app) imageLocation(ctx context.Context, path string) string {
	r, err := a.resolver(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("image store unavailable")
		return path
	}
	ref, err := r.Resolve(ctx, path)
	if err != nil || !ref.Present {
		return domain.NoPhoto
	}
	url, err := r.URL(ctx, ref.Key)
	if err != nil {
		return ref.Key
	}
	return url
}

func runOfficers(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "officers")
	label := fs.String("semester", domain.CurrentOfficersLabel, "semester label to show")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	s, _, err := openOrg(ctx, a, pos[0])
	if err != nil {
		return err
	}
	offs, err := s.Officers(*label)
	if err != nil {
		return err
	}
	tw := newTable(a.stdout)
	fmt.Fprintf(tw, "%s\n", *label)
	if len(offs) == 0 {
		fmt.Fprintf(tw, "  %s\n", query.EmptyStateMessage)
	}
	for _, o := range offs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", o.Name, o.Position, o.StartDate, a.imageLocation(ctx, o.PhotoPath))
	}
	return tw.Flush()
}

func membersView(ctx context.Context, a *app, raw, term string) (*session.Session, query.Result[domain.Member], error) {
	s, _, err := openOrg(ctx, a, raw)
	if err != nil {
		return nil, query.Result[domain.Member]{}, err
	}
	if err := s.ShowMembers(); err != nil {
		return nil, query.Result[domain.Member]{}, err
	}
	res, err := s.Members(term)
	return s, res, err
}

func applicantsView(ctx context.Context, a *app, raw, term string) (*session.Session, query.Result[domain.Applicant], error) {
	s, _, err := membersView(ctx, a, raw, "")
	if err != nil {
		return nil, query.Result[domain.Applicant]{}, err
	}
	if err := s.ShowApplicants(); err != nil {
		return nil, query.Result[domain.Applicant]{}, err
	}
	res, err := s.Applicants(term)
	return s, res, err
}

func runMembers(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "members")
	term := fs.String("q", "", "case-insensitive member name filter")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	_, res, err := membersView(ctx, a, pos[0], *term)
	if err != nil {
		return err
	}
	tw := newTable(a.stdout)
	fmt.Fprintln(tw, "#\tName\tPosition\tStatus\tJoined")
	if res.Empty() {
		fmt.Fprintf(tw, "\t%s\n", res.Message())
	}
	for i, m := range res.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, m.Name, m.Position, m.Status, m.JoinDate)
	}
	return tw.Flush()
}

func runApplicants(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "applicants")
	term := fs.String("q", "", "case-insensitive applicant name filter")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	_, res, err := applicantsView(ctx, a, pos[0], *term)
	if err != nil {
		return err
	}
	tw := newTable(a.stdout)
	fmt.Fprintln(tw, "#\tName\tPosition")
	if res.Empty() {
		fmt.Fprintf(tw, "\t%s\n", res.Message())
	}
	for i, ap := range res.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, ap.Name, ap.Position)
	}
	return tw.Flush()
}

func runAccept(ctx context.Context, a *app, args []string) error {
	return applicantAction(ctx, a, "accept", args, func(s *session.Session, row int) (string, error) {
		m, err := s.AcceptApplicant(ctx, row)
		return fmt.Sprintf("Accepted %s as %s on %s.", m.Name, m.Position, m.JoinDate), err
	})
}

func runDecline(ctx context.Context, a *app, args []string) error {
	return applicantAction(ctx, a, "decline", args, func(s *session.Session, row int) (string, error) {
		ap, err := s.DeclineApplicant(ctx, row)
		return fmt.Sprintf("Declined %s.", ap.Name), err
	})
}

func applicantAction(ctx context.Context, a *app, name string, args []string, act func(*session.Session, int) (string, error)) error {
	fs := newFlagSet(a, name)
	term := fs.String("q", "", "filter the row refers to")
	pos, err := parseArgs(fs, args, 2)
	if err != nil {
		return err
	}
	row, err := parseRow(pos[1])
	if err != nil {
		return err
	}
	s, _, err := applicantsView(ctx, a, pos[0], *term)
	if err != nil {
		return err
	}
	msg, err := act(s, row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, msg)
	return err
}

func runEditMember(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "edit-member")
	term := fs.String("q", "", "filter the row refers to")
	pos, err := parseArgs(fs, args, 3)
	if err != nil {
		return err
	}
	row, err := parseRow(pos[1])
	if err != nil {
		return err
	}
	s, _, err := membersView(ctx, a, pos[0], *term)
	if err != nil {
		return err
	}
	m, err := s.EditMember(ctx, row, pos[2])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "%s is now %s.\n", m.Name, m.Position)
	return err
}

func runKick(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "kick")
	term := fs.String("q", "", "filter the row refers to")
	pos, err := parseArgs(fs, args, 2)
	if err != nil {
		return err
	}
	row, err := parseRow(pos[1])
	if err != nil {
		return err
	}
	s, _, err := membersView(ctx, a, pos[0], *term)
	if err != nil {
		return err
	}
	m, err := s.KickMember(ctx, row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "Removed %s.\n", m.Name)
	return err
}

// findOfficer returns the officer named name from the current roster, or
// from the first history bucket listing them.
func findOfficer(org domain.Organization, name string) (domain.Officer, error) {
	if off, err := org.Officer(name); err == nil {
		return off, nil
	}
	labels := make([]string, 0, len(org.OfficerHistory))
	for label := range org.OfficerHistory {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		for _, off := range org.OfficerHistory[label] {
			if off.Name == name {
				return off, nil
			}
		}
	}
	return domain.Officer{}, domain.NotFoundError{Entity: domain.EntityOfficer, Key: name}
}

func runEditOfficer(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "edit-officer")
	name := fs.String("name", "", "officer name (required)")
	position := fs.String("position", "", "new position")
	start := fs.String("start-date", "", "new start date")
	photo := fs.String("photo", "", "new photo key")
	card := fs.String("card", "", "new card image key")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return usageErr("-name is required")
	}
	s, org, err := openOrg(ctx, a, pos[0])
	if err != nil {
		return err
	}
	off, err := findOfficer(org, *name)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "position":
			off.Position = *position
		case "start-date":
			off.StartDate = *start
		case "photo":
			off.PhotoPath = *photo
		case "card":
			off.CardImagePath = *card
		}
	})
	n, err := s.EditOfficer(ctx, off)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "Updated %s in %d roster(s).\n", off.Name, n)
	return err
}

func runEditOrg(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "edit-org")
	brief := fs.String("brief", "", "new brief")
	description := fs.String("description", "", "new description")
	logo := fs.String("logo", "", "new logo key")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	s, org, err := openOrg(ctx, a, pos[0])
	if err != nil {
		return err
	}
	b, d, l := org.Brief, org.Description, org.LogoPath
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "brief":
			b = *brief
		case "description":
			d = *description
		case "logo":
			l = *logo
		}
	})
	updated, err := s.EditOrganization(ctx, b, d, l)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "Updated %s.\n", updated.Name)
	return err
}

func runImportLogo(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "import-logo")
	officer := fs.String("officer", "", "store the image as this officer's photo instead of the logo")
	pos, err := parseArgs(fs, args, 2)
	if err != nil {
		return err
	}
	s, org, err := openOrg(ctx, a, pos[0])
	if err != nil {
		return err
	}
	if !s.Managing() {
		return session.ErrNotManager
	}
	var target domain.Officer
	kind := images.KindLogo
	if *officer != "" {
		if target, err = findOfficer(org, *officer); err != nil {
			return err
		}
		kind = images.KindPhoto
	}
	r, err := a.resolver(ctx)
	if err != nil {
		return err
	}
	f, err := os.Open(pos[1]) // #nosec G304: operator-supplied image path
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	key, err := r.Import(ctx, kind, filepath.Base(pos[1]), f)
	if err != nil {
		return err
	}
	if kind == images.KindPhoto {
		target.PhotoPath = key
		if _, err := s.EditOfficer(ctx, target); err != nil {
			return err
		}
	} else if _, err := s.EditOrganization(ctx, org.Brief, org.Description, key); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "Stored %s.\n", key)
	return err
}

// runMigrate copies the current document, including one read from a legacy
// split file, into another storage backend.
func runMigrate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "migrate")
	to := fs.String("to", "", "target driver: json|sqlite|postgres")
	toData := fs.String("to-data", "", "target JSON path")
	toSQLite := fs.String("to-sqlite", "", "target sqlite path")
	toDSN := fs.String("to-dsn", "", "target postgres DSN")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	if *to == "" {
		return usageErr("-to is required")
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	if a.loadErr != nil {
		return fmt.Errorf("read source: %w", a.loadErr)
	}
	target := a.cfg.Storage
	target.Driver = *to
	if *toData != "" {
		target.DataPath = *toData
	}
	if *toSQLite != "" {
		target.SQLitePath = *toSQLite
	}
	if *toDSN != "" {
		target.PostgresDSN = *toDSN
	}
	dst, err := core.OpenDocumentStore(ctx, target, logger.Component(a.log, "store"))
	if err != nil {
		return fmt.Errorf("open target: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("close target store")
		}
	}()
	rec, err := a.metricsRecorder()
	if err != nil {
		return err
	}
	out := core.NewService(dst, core.WithLogger(logger.Component(a.log, "migrate")), core.WithMetrics(rec))
	doc := svc.Document()
	if err := out.ReplaceDocument(ctx, doc); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "Migrated %d organization(s) to %s.\n", len(doc.Organizations), *to)
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
