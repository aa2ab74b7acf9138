package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"finboard/internal/client"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/session"
	"finboard/internal/viewmodel"
)

var errUsage = errors.New("usage")

type command struct {
	summary string
	// public commands run without a signed in session.
	public bool
	run    func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":             {"sign in and store the session", true, (*app).login},
	"register":          {"create an account", true, (*app).register},
	"logout":            {"forget the stored session", true, (*app).logout},
	"status":            {"show the session state", true, (*app).status},
	"theme":             {"show or set the theme preference", true, (*app).theme},
	"commitments":       {"list commitments", false, (*app).commitments},
	"history":           {"list the payments of a commitment", false, (*app).history},
	"pay":               {"record an installment", false, (*app).pay},
	"delete-commitment": {"delete a commitment and its history", false, (*app).deleteCommitment},
	"expenses":          {"list expenses or savings", false, (*app).expenses},
	"dashboard":         {"show dashboard totals", false, (*app).dashboard},
	"upcoming":          {"list installments due soon", false, (*app).upcoming},
	"notes":             {"list notes", false, (*app).notes},
	"note":              {"add a note", false, (*app).addNote},
	"note-edit":         {"change the text or color of a note", false, (*app).editNote},
	"note-rm":           {"delete a note", false, (*app).removeNote},
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		a.usage(a.out)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.usage(a.out)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if !cmd.public {
		s, err := a.gate.Resolve(ctx)
		if err != nil {
			a.logger.DebugContext(ctx, "Session resolve reported an error", log.FieldError, err)
		}
		if a.gate.Guard(true) == session.RedirectLogin {
			return fmt.Errorf("not signed in (state %s), run `finctl login`", s.State)
		}
	}
	return cmd.run(a, ctx, args[1:])
}

func (a *app) usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: finctl <command> [flags]")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, commands[name].summary)
	}
	_ = tw.Flush()
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("finctl "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < positional {
		return nil, fmt.Errorf("%w: %s needs %d argument(s)", errUsage, fs.Name(), positional)
	}
	return fs.Args(), nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("FINBOARD_PASSWORD"), "password (defaults to FINBOARD_PASSWORD or a prompt)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *email == "" {
		*email = a.prompt("Email: ")
	}
	if *password == "" {
		*password = a.prompt("Password: ")
	}

	res, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.gate.Login(res.Token, res.UserID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", res.User.Email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("FINBOARD_PASSWORD"), "password")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	u, err := a.api.Register(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s, now run `finctl login`\n", u.Email)
	return nil
}

func (a *app) logout(context.Context, []string) error {
	if err := a.gate.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) status(ctx context.Context, _ []string) error {
	s, err := a.gate.Resolve(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "warning: %v\n", err)
	}
	fmt.Fprintf(a.out, "state: %s\n", s.State)
	if s.Authenticated() {
		fmt.Fprintf(a.out, "user:  %s\n", s.UserID)
	}
	return nil
}

func (a *app) theme(_ context.Context, args []string) error {
	if len(args) == 0 {
		theme, err := a.gate.Preference(session.KeyTheme)
		if err != nil {
			return err
		}
		if theme == "" {
			theme = "light"
		}
		fmt.Fprintln(a.out, theme)
		return nil
	}
	return a.gate.SetPreference(session.KeyTheme, args[0])
}

func pageFlags(fs *flag.FlagSet) (page, limit *int) {
	page = fs.Int("page", 1, "page number")
	limit = fs.Int("limit", core.DefaultPageSize, "page size (10, 20 or 50)")
	return page, limit
}

func (a *app) commitments(ctx context.Context, args []string) error {
	fs := newFlags("commitments")
	page, limit := pageFlags(fs)
	status := fs.Int("status", 0, "1 ongoing, 2 completed, 3 canceled")
	payType := fs.Int("pay-type", 0, "1 expenses, 2 savings")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	list := viewmodel.NewCommitmentList(a.api, a.gate, nil)
	defer list.Close()
	if err := list.SetFilter(ctx, viewmodel.CommitmentFilter{Status: core.Status(*status), PayType: core.PayType(*payType)}); err != nil {
		return err
	}
	if err := a.applyPage(ctx, list.Page(), *page, *limit, list.SetPageSize, list.SetPage); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "No\tID\tPay for\tEMI\tPaid\tPending\tPending amount\tDue day\tStatus\tCategory")
	for _, r := range list.Rows() {
		pending := r.PendingINR
		if r.Overpaid {
			pending += " (overpaid)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			r.No, r.ID, r.PayFor, r.EmiINR, r.PaidLabel(), r.Pending, pending, r.DueDate, r.Status, r.Category)
	}
	_ = tw.Flush()
	a.footer(list.Page(), list.Info())
	return nil
}

// applyPage changes size then page, fetching only when they differ from
// the current request.
func (a *app) applyPage(ctx context.Context, cur core.PageRequest, page, limit int,
	setSize, setPage func(context.Context, int) error) error {
	if limit != cur.Limit {
		if err := setSize(ctx, limit); err != nil {
			return err
		}
	}
	if page != 1 {
		return setPage(ctx, page)
	}
	return nil
}

func (a *app) footer(page core.PageRequest, info core.PageInfo) {
	total := fmt.Sprint(info.TotalItems)
	if info.Approximate {
		total = "~" + total
	}
	fmt.Fprintf(a.out, "page %d of %d, %s records\n", page.Page, max(info.TotalPages, 1), total)
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := newFlags("history")
	page, limit := pageFlags(fs)
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	list := viewmodel.NewHistoryList(a.api, a.gate, rest[0], nil)
	defer list.Close()
	if err := list.Load(ctx); err != nil {
		return err
	}
	if err := a.applyPage(ctx, list.Page(), *page, *limit, list.SetPageSize, list.SetPage); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "No\tID\tInstallment\tAmount\tPaid on\tRemarks")
	for _, r := range list.Rows() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", r.No, r.ID, r.CurrentEmi, r.AmountINR, r.PaidDate, r.Remarks)
	}
	_ = tw.Flush()
	a.footer(list.Page(), list.Info())
	return nil
}

func (a *app) pay(ctx context.Context, args []string) error {
	fs := newFlags("pay")
	emi := fs.Int("emi", 0, "installment number (default: next)")
	date := fs.String("date", "", "paid date YYYY-MM-DD (default: today)")
	remarks := fs.String("remarks", "", "remarks")
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}

	amount, err := core.ParseAmount(rest[1])
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	in := client.PaymentInput{CommitmentID: rest[0], Amount: amount, CurrentEmi: *emi, Remarks: *remarks}
	if *date != "" {
		d, err := core.ParseDate(*date)
		if err != nil {
			return fmt.Errorf("date: %w", err)
		}
		in.PaidDate = &d
	}

	h, err := a.api.AddPayment(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded installment %d of %s\n", h.CurrentEmi, h.Amount.FormatINR())
	return nil
}

func (a *app) deleteCommitment(ctx context.Context, args []string) error {
	fs := newFlags("delete-commitment")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	confirm := viewmodel.Confirmer(a)
	if *yes {
		confirm = viewmodel.AlwaysConfirm
	}

	c, err := a.api.GetCommitment(ctx, rest[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %d installments of %s\n", c.PayFor, c.TotalEmi, c.EmiAmount.FormatINR())
	ok, err := confirm.Confirm(ctx, "Delete this commitment?")
	if err != nil || !ok {
		return err
	}
	if err := a.api.DeleteCommitment(ctx, c.ID, a.gate.UserID()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

func dateRangeFlags(fs *flag.FlagSet) (from, to *string) {
	return fs.String("from", "", "start date YYYY-MM-DD"), fs.String("to", "", "end date YYYY-MM-DD")
}

func parseRange(from, to string) (core.DateRange, error) {
	var r core.DateRange
	var err error
	if from != "" {
		if r.Start, err = core.ParseDate(from); err != nil {
			return r, fmt.Errorf("from: %w", err)
		}
	}
	if to != "" {
		if r.End, err = core.ParseDate(to); err != nil {
			return r, fmt.Errorf("to: %w", err)
		}
	}
	return r, nil
}

func (a *app) expenses(ctx context.Context, args []string) error {
	fs := newFlags("expenses")
	page, limit := pageFlags(fs)
	savings := fs.Bool("savings", false, "list savings instead of expenses")
	category := fs.Int("category", 0, "expense category 1-7")
	from, to := dateRangeFlags(fs)
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	r, err := parseRange(*from, *to)
	if err != nil {
		return err
	}

	list := viewmodel.NewExpenseList(a.api, a.gate, *savings, nil)
	defer list.Close()
	if err := list.SetFilter(ctx, viewmodel.ExpenseFilter{Category: core.ExpenseCategory(*category), Range: r}); err != nil {
		return err
	}
	if err := a.applyPage(ctx, list.Page(), *page, *limit, list.SetPageSize, list.SetPage); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "No\tID\tName\tAmount\tCategory\tMethod\tPaid on")
	for _, r := range list.Rows() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.No, r.ID, r.Name, r.AmountINR, r.Category, r.SavingMethod, r.PaidOn)
	}
	_ = tw.Flush()
	a.footer(list.Page(), list.Info())
	return nil
}

func (a *app) dashboard(ctx context.Context, args []string) error {
	fs := newFlags("dashboard")
	from, to := dateRangeFlags(fs)
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	r, err := parseRange(*from, *to)
	if err != nil {
		return err
	}
	d, err := a.api.Dashboard(ctx, a.gate.UserID(), r)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Commitments: %d ongoing, %d completed\n", d.Commitments.Ongoing, d.Commitments.Completed)
	fmt.Fprintf(a.out, "Paid %s, pending %s\n", d.Commitments.TotalPaid.FormatINR(), d.Commitments.TotalPending.FormatINR())
	fmt.Fprintf(a.out, "Savings %s\n", d.TotalSavings.FormatINR())
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Month\tTotal")
	for _, m := range d.MonthlyTotals {
		fmt.Fprintf(tw, "%s\t%s\n", m.Month, m.Total.FormatINR())
	}
	return tw.Flush()
}

func (a *app) upcoming(ctx context.Context, args []string) error {
	fs := newFlags("upcoming")
	days := fs.Int("days", 7, "look ahead this many days")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	due, err := a.api.UpcomingPayments(ctx, a.gate.UserID(), *days)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		fmt.Fprintf(a.out, "Nothing due in the next %d days\n", *days)
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Due on\tIn\tPay for\tEMI")
	for _, u := range due {
		fmt.Fprintf(tw, "%s\t%dd\t%s\t%s\n", u.DueOn, u.DueInDays, u.PayFor, u.EmiAmount.FormatINR())
	}
	return tw.Flush()
}

func (a *app) notes(ctx context.Context, _ []string) error {
	notes, err := a.api.ListNotes(ctx, a.gate.UserID())
	if err != nil {
		return err
	}
	for _, n := range viewmodel.NoteRows(notes) {
		fmt.Fprintf(a.out, "%d. [%s] %s  (%s)\n", n.No, n.Color, n.Text, n.ID)
	}
	return nil
}

func (a *app) addNote(ctx context.Context, args []string) error {
	fs := newFlags("note")
	color := fs.String("color", core.NoteColors[0], "note color")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	n, err := a.api.CreateNote(ctx, strings.Join(rest, " "), *color)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added note %s\n", n.ID)
	return nil
}

func (a *app) editNote(ctx context.Context, args []string) error {
	fs := newFlags("note-edit")
	text := fs.String("text", "", "new text")
	color := fs.String("color", "", "new color")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	var patch client.NotePatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "text":
			patch.Text = text
		case "color":
			patch.Color = color
		}
	})
	if patch.Text == nil && patch.Color == nil {
		return fmt.Errorf("%w: note-edit needs -text or -color", errUsage)
	}
	n, err := a.api.PatchNote(ctx, rest[0], patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated note %s [%s] %s\n", n.ID, n.Color, n.Text)
	return nil
}

func (a *app) removeNote(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: note-rm needs a note id", errUsage)
	}
	if err := a.api.DeleteNote(ctx, args[0], a.gate.UserID()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

// Confirm asks on the terminal; only y or yes approves.
func (a *app) Confirm(_ context.Context, prompt string) (bool, error) {
	answer := strings.ToLower(a.prompt(prompt + " [y/N] "))
	return answer == "y" || answer == "yes", nil
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}
