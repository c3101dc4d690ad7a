package main

import (
	"context"
	"fmt"

	"github.com/example/resource-booker/internal/application"
)

// ----------------------------- users -----------------------------

func (c *cli) userCreate(ctx context.Context, args []string) error {
	cmd := c.newCommand("user create", false, false)
	name := cmd.fs.String("name", "", "user name")
	fullName := cmd.fs.String("full-name", "", "full name")
	password := cmd.fs.String("password", "", "secret for the new user")
	if err := cmd.parse(args); err != nil {
		return err
	}

	user, err := c.svc.users.CreateUser(ctx, application.CreateUserParams{
		Name:     *name,
		FullName: cmd.optional("full-name", *fullName),
		Password: *password,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "user %s created\n", user.Name)
	return nil
}

func (c *cli) userUpdate(ctx context.Context, args []string) error {
	cmd := c.newCommand("user update", true, false)
	name := cmd.fs.String("name", "", "user name")
	fullName := cmd.fs.String("full-name", "", "new full name")
	clearFullName := cmd.fs.Bool("clear-full-name", false, "remove the full name")
	newPassword := cmd.fs.String("new-password", "", "new secret")
	if err := cmd.parse(args); err != nil {
		return err
	}

	user, err := c.svc.users.UpdateUser(ctx, application.UpdateUserParams{
		Name:          *name,
		FullName:      cmd.optional("full-name", *fullName),
		ClearFullName: *clearFullName,
		NewPassword:   cmd.optional("new-password", *newPassword),
		Secret:        c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "user %s updated\n", user.Name)
	return nil
}

func (c *cli) userRename(ctx context.Context, args []string) error {
	cmd := c.newCommand("user rename", true, false)
	name := cmd.fs.String("name", "", "current user name")
	to := cmd.fs.String("to", "", "new user name")
	if err := cmd.parse(args); err != nil {
		return err
	}

	result, err := c.svc.cascade.RenameUser(ctx, application.RenameUserParams{
		Name:    *name,
		NewName: *to,
		Secret:  c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "user %s renamed to %s (%d resources, %d bookings updated)\n",
		*name, *to, result.ResourcesUpdated, result.BookingsUpdated)
	return nil
}

func (c *cli) userDelete(ctx context.Context, args []string) error {
	cmd := c.newCommand("user delete", true, false)
	name := cmd.fs.String("name", "", "user name")
	replacement := cmd.fs.String("replacement", "", "user who takes over owned resources")
	if err := cmd.parse(args); err != nil {
		return err
	}

	result, err := c.svc.cascade.DeleteUser(ctx, application.DeleteUserParams{
		Name:        *name,
		Replacement: cmd.optional("replacement", *replacement),
		Secret:      c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "user %s deleted (%d resources reassigned, %d bookings removed)\n",
		*name, len(result.ReassignedResources), len(result.RemovedBookings))
	return nil
}

func (c *cli) userList(ctx context.Context, args []string) error {
	cmd := c.newCommand("user list", false, true)
	if err := cmd.parse(args); err != nil {
		return err
	}
	users, err := c.svc.users.ListUsers(ctx)
	if err != nil {
		return err
	}
	return renderUsers(c.stdout, users, cmd.asJSON())
}

func (c *cli) userShow(ctx context.Context, args []string) error {
	cmd := c.newCommand("user show", false, true)
	name := cmd.fs.String("name", "", "user name")
	if err := cmd.parse(args); err != nil {
		return err
	}
	user, err := c.svc.users.GetUser(ctx, *name)
	if err != nil {
		return err
	}
	return renderUsers(c.stdout, []application.User{user}, cmd.asJSON())
}

// --------------------------- resources ---------------------------

func (c *cli) resourceCreate(ctx context.Context, args []string) error {
	cmd := c.newCommand("resource create", true, false)
	name := cmd.fs.String("name", "", "resource name")
	description := cmd.fs.String("description", "", "description")
	available := cmd.fs.Bool("available", true, "accept new bookings")
	owner := cmd.fs.String("owner", "", "owning user")
	if err := cmd.parse(args); err != nil {
		return err
	}

	resource, err := c.svc.resources.CreateResource(ctx, application.CreateResourceParams{
		Name:        *name,
		Description: cmd.optional("description", *description),
		Available:   *available,
		Owner:       cmd.optional("owner", *owner),
		Secret:      c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "resource %s created\n", resource.Name)
	return nil
}

func (c *cli) resourceUpdate(ctx context.Context, args []string) error {
	cmd := c.newCommand("resource update", true, false)
	name := cmd.fs.String("name", "", "resource name")
	description := cmd.fs.String("description", "", "new description")
	clearDescription := cmd.fs.Bool("clear-description", false, "remove the description")
	available := cmd.fs.Bool("available", true, "accept new bookings")
	owner := cmd.fs.String("owner", "", "new owning user")
	clearOwner := cmd.fs.Bool("clear-owner", false, "remove the owner")
	if err := cmd.parse(args); err != nil {
		return err
	}

	params := application.UpdateResourceParams{
		Name:             *name,
		Description:      cmd.optional("description", *description),
		ClearDescription: *clearDescription,
		Owner:            cmd.optional("owner", *owner),
		ClearOwner:       *clearOwner,
		Secret:           c.secretPrompt(cmd),
	}
	if cmd.isSet("available") {
		params.Available = available
	}
	resource, err := c.svc.resources.UpdateResource(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "resource %s updated\n", resource.Name)
	return nil
}

func (c *cli) resourceRename(ctx context.Context, args []string) error {
	cmd := c.newCommand("resource rename", true, false)
	name := cmd.fs.String("name", "", "current resource name")
	to := cmd.fs.String("to", "", "new resource name")
	if err := cmd.parse(args); err != nil {
		return err
	}

	result, err := c.svc.cascade.RenameResource(ctx, application.RenameResourceParams{
		Name:    *name,
		NewName: *to,
		Secret:  c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "resource %s renamed to %s (%d bookings updated)\n", *name, *to, result.BookingsUpdated)
	return nil
}

func (c *cli) resourceDelete(ctx context.Context, args []string) error {
	cmd := c.newCommand("resource delete", true, false)
	name := cmd.fs.String("name", "", "resource name")
	if err := cmd.parse(args); err != nil {
		return err
	}

	result, err := c.svc.cascade.DeleteResource(ctx, application.DeleteResourceParams{
		Name:   *name,
		Secret: c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "resource %s deleted (%d bookings removed)\n", *name, len(result.RemovedBookings))
	return nil
}

func (c *cli) resourceList(ctx context.Context, args []string) error {
	cmd := c.newCommand("resource list", false, true)
	if err := cmd.parse(args); err != nil {
		return err
	}
	resources, err := c.svc.resources.ListResources(ctx)
	if err != nil {
		return err
	}
	return renderResources(c.stdout, resources, cmd.asJSON())
}

func (c *cli) resourceShow(ctx context.Context, args []string) error {
	cmd := c.newCommand("resource show", false, true)
	name := cmd.fs.String("name", "", "resource name")
	if err := cmd.parse(args); err != nil {
		return err
	}
	resource, err := c.svc.resources.GetResource(ctx, *name)
	if err != nil {
		return err
	}
	return renderResources(c.stdout, []application.Resource{resource}, cmd.asJSON())
}

func (c *cli) resourceDates(ctx context.Context, args []string) error {
	cmd := c.newCommand("resource dates", false, true)
	name := cmd.fs.String("name", "", "resource name")
	if err := cmd.parse(args); err != nil {
		return err
	}
	dates, err := c.svc.resources.OccupiedDates(ctx, *name)
	if err != nil {
		return err
	}
	return renderDates(c.stdout, dates, cmd.asJSON())
}

// ---------------------------- bookings ----------------------------

func (c *cli) bookingCreate(ctx context.Context, args []string) error {
	cmd := c.newCommand("booking create", true, false)
	name := cmd.fs.String("name", "", "booking name")
	owner := cmd.fs.String("owner", "", "user making the booking")
	resource := cmd.fs.String("resource", "", "resource to book")
	start := cmd.fs.String("start", "", "first day, YYYY-MM-DD")
	end := cmd.fs.String("end", "", "last day, YYYY-MM-DD")
	if err := cmd.parse(args); err != nil {
		return err
	}
	startDate, err := parseDateFlag("start", *start)
	if err != nil {
		return err
	}
	endDate, err := parseDateFlag("end", *end)
	if err != nil {
		return err
	}

	booking, err := c.svc.reservations.CreateBooking(ctx, application.CreateBookingParams{
		Name:      *name,
		Owner:     *owner,
		Resource:  *resource,
		StartDate: startDate,
		EndDate:   endDate,
		Secret:    c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "booking %s created: %s %s..%s\n", booking.Name, booking.Resource, booking.StartDate, booking.EndDate)
	return nil
}

func (c *cli) bookingEdit(ctx context.Context, args []string) error {
	cmd := c.newCommand("booking edit", true, false)
	name := cmd.fs.String("name", "", "booking name")
	to := cmd.fs.String("to", "", "new booking name")
	resource := cmd.fs.String("resource", "", "move to this resource")
	start := cmd.fs.String("start", "", "new first day, YYYY-MM-DD")
	end := cmd.fs.String("end", "", "new last day, YYYY-MM-DD")
	if err := cmd.parse(args); err != nil {
		return err
	}
	newStart, err := optionalDate(cmd, "start", *start)
	if err != nil {
		return err
	}
	newEnd, err := optionalDate(cmd, "end", *end)
	if err != nil {
		return err
	}

	booking, err := c.svc.reservations.EditBooking(ctx, application.EditBookingParams{
		Name:        *name,
		NewName:     cmd.optional("to", *to),
		NewResource: cmd.optional("resource", *resource),
		NewStart:    newStart,
		NewEnd:      newEnd,
		Secret:      c.secretPrompt(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "booking %s updated: %s %s..%s\n", booking.Name, booking.Resource, booking.StartDate, booking.EndDate)
	return nil
}

func (c *cli) bookingDelete(ctx context.Context, args []string) error {
	cmd := c.newCommand("booking delete", true, false)
	name := cmd.fs.String("name", "", "booking name")
	if err := cmd.parse(args); err != nil {
		return err
	}
	if err := c.svc.reservations.DeleteBooking(ctx, application.DeleteBookingParams{
		Name:   *name,
		Secret: c.secretPrompt(cmd),
	}); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "booking %s deleted\n", *name)
	return nil
}

func (c *cli) bookingList(ctx context.Context, args []string) error {
	cmd := c.newCommand("booking list", false, true)
	owner := cmd.fs.String("owner", "", "only bookings of this user")
	resource := cmd.fs.String("resource", "", "only bookings of this resource")
	if err := cmd.parse(args); err != nil {
		return err
	}
	bookings, err := c.svc.reservations.ListBookings(ctx, application.BookingFilter{Owner: *owner, Resource: *resource})
	if err != nil {
		return err
	}
	return renderBookings(c.stdout, bookings, cmd.asJSON())
}

func (c *cli) bookingShow(ctx context.Context, args []string) error {
	cmd := c.newCommand("booking show", false, true)
	name := cmd.fs.String("name", "", "booking name")
	if err := cmd.parse(args); err != nil {
		return err
	}
	booking, err := c.svc.reservations.GetBooking(ctx, *name)
	if err != nil {
		return err
	}
	return renderBookings(c.stdout, []application.Booking{booking}, cmd.asJSON())
}

// ----------------------------- check -----------------------------

func (c *cli) check(ctx context.Context, args []string) error {
	cmd := c.newCommand("check", false, true)
	repair := cmd.fs.Bool("repair", false, "rewrite booked dates from bookings when they drifted")
	if err := cmd.parse(args); err != nil {
		return err
	}

	var (
		report application.AvailabilityReport
		err    error
	)
	if *repair {
		report, err = c.svc.reservations.RepairAvailability(ctx)
	} else {
		report, err = c.svc.reservations.VerifyAvailability(ctx)
	}
	if err != nil {
		return err
	}
	return renderReport(c.stdout, report, cmd.asJSON())
}
