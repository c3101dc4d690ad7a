package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/example/resource-booker/internal/application"
	"github.com/example/resource-booker/internal/calendar"
)

// describe turns an operation error into the message shown to the operator.
func describe(err error) string {
	if errors.Is(err, errUsage) {
		return err.Error()
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		fields := make([]string, 0, len(vErr.FieldErrors))
		for field, msg := range vErr.FieldErrors {
			fields = append(fields, field+" "+msg)
		}
		sort.Strings(fields)
		return "invalid input: " + strings.Join(fields, "; ")
	}

	var conflict *application.DateConflictError
	if errors.As(err, &conflict) {
		parts := make([]string, 0, len(conflict.Conflicts))
		for _, c := range conflict.Conflicts {
			days := make([]string, 0, len(c.Dates))
			for _, d := range c.Dates {
				days = append(days, d.String())
			}
			parts = append(parts, fmt.Sprintf("%s by %s", strings.Join(days, ", "), c.WithBooking))
		}
		return fmt.Sprintf("%s is already booked on %s", conflict.Resource, strings.Join(parts, "; "))
	}

	switch application.ErrorKind(err) {
	case "not_found":
		return "no record with that name exists"
	case "duplicate_name":
		return "that name is already taken"
	case "unknown_user":
		return "the referenced user does not exist"
	case "unknown_resource":
		return "the referenced resource does not exist"
	case "auth_failed":
		return "authentication failed; nothing was changed"
	case "resource_unavailable":
		return "the resource is not accepting new bookings"
	case "invalid_range":
		return "the end date must be after the start date"
	case "past_date":
		return "the start date is in the past"
	case "abandoned":
		return "operation abandoned; nothing was changed"
	}
	return "error: " + err.Error()
}

type userView struct {
	Name     string  `json:"name"`
	FullName *string `json:"full_name"`
}

type resourceView struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Available   bool            `json:"available"`
	Owner       *string         `json:"owner"`
	DaysBooked  []calendar.Date `json:"days_booked"`
}

type bookingView struct {
	Name      string        `json:"name"`
	Owner     string        `json:"owner"`
	Resource  string        `json:"resource"`
	StartDate calendar.Date `json:"start_date"`
	EndDate   calendar.Date `json:"end_date"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func renderUsers(w io.Writer, users []application.User, asJSON bool) error {
	if asJSON {
		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, userView{Name: u.Name, FullName: u.FullName})
		}
		return writeJSON(w, views)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFULL NAME")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\n", u.Name, orDash(u.FullName))
	}
	return tw.Flush()
}

func renderResources(w io.Writer, resources []application.Resource, asJSON bool) error {
	if asJSON {
		views := make([]resourceView, 0, len(resources))
		for _, r := range resources {
			days := r.DaysBooked
			if days == nil {
				days = []calendar.Date{}
			}
			views = append(views, resourceView{
				Name:        r.Name,
				Description: r.Description,
				Available:   r.Available,
				Owner:       r.Owner,
				DaysBooked:  days,
			})
		}
		return writeJSON(w, views)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAVAILABLE\tOWNER\tBOOKED DAYS\tDESCRIPTION")
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%s\n", r.Name, r.Available, orDash(r.Owner), len(r.DaysBooked), orDash(r.Description))
	}
	return tw.Flush()
}

func renderBookings(w io.Writer, bookings []application.Booking, asJSON bool) error {
	if asJSON {
		views := make([]bookingView, 0, len(bookings))
		for _, b := range bookings {
			views = append(views, bookingView{
				Name:      b.Name,
				Owner:     b.Owner,
				Resource:  b.Resource,
				StartDate: b.StartDate,
				EndDate:   b.EndDate,
			})
		}
		return writeJSON(w, views)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tOWNER\tRESOURCE\tSTART\tEND")
	for _, b := range bookings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.Name, b.Owner, b.Resource, b.StartDate, b.EndDate)
	}
	return tw.Flush()
}

func renderDates(w io.Writer, dates []calendar.Date, asJSON bool) error {
	if asJSON {
		if dates == nil {
			dates = []calendar.Date{}
		}
		return writeJSON(w, dates)
	}
	for _, d := range dates {
		fmt.Fprintln(w, d.String())
	}
	return nil
}

func renderReport(w io.Writer, report application.AvailabilityReport, asJSON bool) error {
	if asJSON {
		return writeJSON(w, report)
	}
	if report.Consistent() {
		fmt.Fprintln(w, "booked dates match bookings")
		return nil
	}
	for _, d := range report.Drift {
		fmt.Fprintf(w, "%s: %d day(s) missing, %d day(s) stale\n", d.Resource, len(d.Missing), len(d.Extra))
	}
	for _, d := range report.Dangling {
		var missing []string
		if d.MissingOwner {
			missing = append(missing, "owner")
		}
		if d.MissingResource {
			missing = append(missing, "resource")
		}
		fmt.Fprintf(w, "booking %s references a missing %s\n", d.Booking, strings.Join(missing, " and "))
	}
	if report.Repaired {
		fmt.Fprintln(w, "booked dates rebuilt from bookings")
	}
	return nil
}
