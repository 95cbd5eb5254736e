package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/hostel-out-api/internal/dto"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/workflow"
	"github.com/noah-isme/hostel-out-api/pkg/client"
)

const dateLayout = "2006-01-02"

type command struct {
	usage string
	run   func(c *cli, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":         {"login -role student|teacher|warden -email E -password P", (*cli).login},
	"register":      {"register -name N -reg R -dept D -email E -phone P -guardian G -room R -password P", (*cli).register},
	"logout":        {"logout", (*cli).logout},
	"refresh":       {"refresh", (*cli).refresh},
	"whoami":        {"whoami", (*cli).whoami},
	"leaves":        {"leaves", (*cli).leaves},
	"apply":         {"apply -from YYYY-MM-DD -to YYYY-MM-DD -reason TEXT", (*cli).apply},
	"approve":       {"approve LEAVE_ID", (*cli).approve},
	"reject":        {"reject LEAVE_ID", (*cli).reject},
	"complaints":    {"complaints", (*cli).complaints},
	"complain":      {"complain MESSAGE", (*cli).complain},
	"resolve":       {"resolve COMPLAINT_ID [STATUS]", (*cli).resolve},
	"notices":       {"notices", (*cli).notices},
	"publish":       {"publish -title T -body B", (*cli).publish},
	"delete-notice": {"delete-notice NOTICE_ID", (*cli).deleteNotice},
}

var errUsage = errors.New("usage")

type cli struct {
	api        *client.Client
	out        io.Writer
	persistent bool
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.printUsage()
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		c.printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	err := cmd.run(c, ctx, args[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprintf(c.out, "usage: hostelctl %s\n", cmd.usage)
	}
	return err
}

func (c *cli) printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(c.out, "usage: hostelctl <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s\n", commands[name].usage)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	role := fs.String("role", "student", "student, teacher or warden")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return errUsage
	}
	r := models.UserRole(strings.ToUpper(*role))
	if !r.Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}
	s, err := c.api.Login(ctx, r, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "logged in as %s (%s, %s)\n", s.FullName, s.Role, s.UserID)
	if !c.persistent {
		fmt.Fprintln(c.out, "note: HOSTEL_SESSION_FILE and HOSTEL_SESSION_HASH_KEY are unset, the session ends with this process")
	}
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	var req dto.RegisterStudentRequest
	fs.StringVar(&req.Name, "name", "", "full name")
	fs.StringVar(&req.RegistrationNumber, "reg", "", "registration number")
	fs.StringVar(&req.Department, "dept", "", "department")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Phone, "phone", "", "phone")
	fs.StringVar(&req.GuardianPhone, "guardian", "", "guardian phone")
	fs.StringVar(&req.RoomNumber, "room", "", "room number")
	fs.StringVar(&req.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil || req.Email == "" || req.Password == "" {
		return errUsage
	}
	student, err := c.api.RegisterStudent(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s (%s)\n", student.Name, student.ID)
	return nil
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	if !c.api.Session().IsLoggedIn() {
		fmt.Fprintln(c.out, "not logged in")
		return nil
	}
	if err := c.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "logged out")
	return nil
}

func (c *cli) refresh(ctx context.Context, _ []string) error {
	if err := c.api.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "session refreshed")
	return nil
}

func (c *cli) whoami(ctx context.Context, _ []string) error {
	me, err := c.api.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s> %s %s\n", me.FullName, me.Email, me.Role, me.ID)
	return nil
}

func (c *cli) leaves(ctx context.Context, _ []string) error {
	leaves, err := c.api.Inbox(ctx)
	if err != nil {
		return err
	}
	if len(leaves) == 0 {
		fmt.Fprintln(c.out, "no leave requests")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTUDENT\tFROM\tTO\tSTATUS\tREASON")
	for _, l := range leaves {
		student := l.StudentID
		if l.StudentName != nil {
			student = *l.StudentName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, student,
			l.FromDate.Format(dateLayout), l.ToDate.Format(dateLayout), l.Status, l.Reason)
	}
	return tw.Flush()
}

func (c *cli) apply(ctx context.Context, args []string) error {
	fs := newFlagSet("apply")
	var req dto.ApplyLeaveRequest
	fs.StringVar(&req.FromDate, "from", "", "first day away")
	fs.StringVar(&req.ToDate, "to", "", "last day away")
	fs.StringVar(&req.Reason, "reason", "", "reason")
	if err := fs.Parse(args); err != nil || req.FromDate == "" || req.ToDate == "" || req.Reason == "" {
		return errUsage
	}
	leave, err := c.api.ApplyLeave(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "leave %s submitted: %s\n", leave.ID, leave.Status)
	return nil
}

func (c *cli) approve(ctx context.Context, args []string) error { return c.decide(ctx, args, true) }

func (c *cli) reject(ctx context.Context, args []string) error { return c.decide(ctx, args, false) }

// decide reads the request first so a decision the caller cannot make is
// refused before it reaches the server.
func (c *cli) decide(ctx context.Context, args []string, approve bool) error {
	if len(args) != 1 {
		return errUsage
	}
	s, ok := c.api.Session().Current()
	if !ok {
		return client.ErrNotLoggedIn
	}
	leave, err := c.api.GetLeave(ctx, args[0])
	if err != nil {
		return err
	}
	updated, err := c.api.DecideLeave(ctx, s.Role, *leave, approve)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "leave %s: %s\n", updated.ID, updated.Status)
	return nil
}

func (c *cli) complaints(ctx context.Context, _ []string) error {
	complaints, err := c.api.ListComplaints(ctx)
	if err != nil {
		return err
	}
	if len(complaints) == 0 {
		fmt.Fprintln(c.out, "no complaints")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTUDENT\tSTATUS\tMESSAGE")
	for _, cp := range complaints {
		student := cp.StudentID
		if cp.StudentName != nil {
			student = *cp.StudentName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cp.ID, student, cp.Status, cp.Message)
	}
	return tw.Flush()
}

func (c *cli) complain(ctx context.Context, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return errUsage
	}
	complaint, err := c.api.CreateComplaint(ctx, message)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "complaint %s filed: %s\n", complaint.ID, complaint.Status)
	return nil
}

func (c *cli) resolve(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	status := models.ComplaintStatusResolved
	if len(args) > 1 {
		status = strings.Join(args[1:], " ")
	}
	complaint, err := c.api.UpdateComplaintStatus(ctx, args[0], status)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "complaint %s: %s\n", complaint.ID, complaint.Status)
	return nil
}

func (c *cli) notices(ctx context.Context, _ []string) error {
	notices, err := c.api.ListNotices(ctx)
	if err != nil {
		return err
	}
	if len(notices) == 0 {
		fmt.Fprintln(c.out, "no notices")
		return nil
	}
	for _, n := range notices {
		fmt.Fprintf(c.out, "[%s] %s  (%s)\n    %s\n", n.CreatedAt.Format(dateLayout), n.Title, n.ID, n.Body)
	}
	return nil
}

func (c *cli) publish(ctx context.Context, args []string) error {
	fs := newFlagSet("publish")
	title := fs.String("title", "", "notice title")
	body := fs.String("body", "", "notice body")
	if err := fs.Parse(args); err != nil || *title == "" || *body == "" {
		return errUsage
	}
	notice, err := c.api.PublishNotice(ctx, *title, *body)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "notice %s published\n", notice.ID)
	return nil
}

func (c *cli) deleteNotice(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := c.api.DeleteNotice(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "notice %s deleted\n", args[0])
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// describe turns client errors into a single human readable line.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, workflow.ErrNotActionable):
		return "you cannot act on this leave request in its current status"
	case errors.Is(err, client.ErrNotLoggedIn):
		return "not logged in, run hostelctl login first"
	}
	return err.Error()
}
