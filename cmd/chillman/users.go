// ABOUTME: "users" and "audit" subcommands, restricted to administrators
// ABOUTME: Prints account and audit tables with tabwriter

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/generated/Chill-Man/internal/accounts"
	"github.com/generated/Chill-Man/internal/store"
)

func cmdUsers(ctx context.Context, a *app, args []string) error {
	ctx, err := a.adminSession(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return cmdUsersList(ctx, a)
	}

	switch args[0] {
	case "list":
		return cmdUsersList(ctx, a)
	case "add":
		return cmdUsersAdd(ctx, a, args[1:])
	case "role":
		return cmdUsersRole(ctx, a, args[1:])
	case "delete":
		return cmdUsersDelete(ctx, a, args[1:])
	default:
		return fmt.Errorf("unknown users subcommand: %s", args[0])
	}
}

func cmdUsersList(ctx context.Context, a *app) error {
	users, err := a.users.List(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Staff Accounts")
	cyan.Println("  --------------")

	if len(users) == 0 {
		fmt.Println("  (no users)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tUSERNAME\tROLE\tCREATED")
	fmt.Fprintln(w, "  --\t--------\t----\t-------")
	for _, u := range users {
		created := ""
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.Format("02.01.2006 15:04")
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, created)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdUsersAdd(ctx context.Context, a *app, args []string) error {
	p, err := parseArgs(args, []string{"role"})
	if err != nil {
		return err
	}
	if len(p.positional) != 2 {
		return fmt.Errorf("usage: users add <user> <password> [--role admin|worker]")
	}

	role, err := accounts.ParseRole(p.get("role"))
	if err != nil {
		return err
	}

	username := p.positional[0]
	if err := a.users.Create(ctx, username, p.positional[1], role); err != nil {
		if store.IsUniqueness(err) {
			return fmt.Errorf("user %q already exists", username)
		}
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Created user: %s", username)
	fmt.Printf(" (%s)\n", role)
	return nil
}

func cmdUsersRole(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: users role <user> <admin|worker>")
	}
	role, err := accounts.ParseRole(args[1])
	if err != nil {
		return err
	}

	ok, err := a.users.UpdateRole(ctx, args[0], role)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %q not found", args[0])
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ %s is now %s\n", args[0], role)
	return nil
}

func cmdUsersDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: users delete <user>")
	}
	if args[0] == store.ActorFrom(ctx) {
		return fmt.Errorf("refusing to delete the signed-in user")
	}

	ok, err := a.users.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %q not found", args[0])
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Deleted user: %s\n", args[0])
	return nil
}

func cmdAudit(ctx context.Context, a *app, args []string) error {
	ctx, err := a.adminSession(ctx)
	if err != nil {
		return err
	}
	p, err := parseArgs(args, []string{"limit"})
	if err != nil {
		return err
	}

	var filter store.AuditFilter
	if p.has("limit") {
		n, err := parseIntArg(p.get("limit"))
		if err != nil {
			return err
		}
		filter.Limit = int(n)
	}

	entries, err := a.store.ListAuditLog(ctx, filter)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Audit Log")
	cyan.Println("  ---------")

	if len(entries) == 0 {
		fmt.Println("  (no entries)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  WHEN\tACTOR\tACTION\tTARGET\tDETAIL")
	fmt.Fprintln(w, "  ----\t-----\t------\t------\t------")
	for _, e := range entries {
		detail := ""
		if len(e.Detail) > 0 {
			detail = truncate(fmt.Sprint(e.Detail), 48)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s:%s\t%s\n",
			e.Timestamp.Format("02.01.2006 15:04:05"), e.Actor, e.Action, e.TargetType, e.TargetID, detail)
	}
	w.Flush()
	fmt.Println()
	return nil
}
