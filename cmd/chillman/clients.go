// ABOUTME: "clients", "call" and "promotions" subcommands for staff users
// ABOUTME: Client tables are ordered with clientview.Sorter and rendered with tabwriter

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/generated/Chill-Man/internal/clients"
	"github.com/generated/Chill-Man/internal/clientview"
	"github.com/generated/Chill-Man/internal/store"
)

var clientFlags = []string{"last", "first", "middle", "birth", "phone", "email", "address", "tariff", "balance"}

// tableColumns are the columns shown by clients list/search.
var tableColumns = []clientview.Field{
	clientview.FieldID,
	clientview.FieldLastName,
	clientview.FieldFirstName,
	clientview.FieldMiddleName,
	clientview.FieldBirthDate,
	clientview.FieldPhone,
	clientview.FieldTariff,
	clientview.FieldBalance,
	clientview.FieldLastCall,
	clientview.FieldLastCaller,
}

func cmdClients(ctx context.Context, a *app, args []string) error {
	ctx, _, err := a.session(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return cmdClientsList(ctx, a, nil)
	}

	switch args[0] {
	case "list":
		return cmdClientsList(ctx, a, args[1:])
	case "search":
		return cmdClientsSearch(ctx, a, args[1:])
	case "show":
		return cmdClientsShow(ctx, a, args[1:])
	case "add":
		return cmdClientsAdd(ctx, a, args[1:])
	case "edit":
		return cmdClientsEdit(ctx, a, args[1:])
	case "delete":
		return cmdClientsDelete(ctx, a, args[1:])
	default:
		if strings.HasPrefix(args[0], "--") {
			return cmdClientsList(ctx, a, args)
		}
		return fmt.Errorf("unknown clients subcommand: %s", args[0])
	}
}

func cmdClientsList(ctx context.Context, a *app, args []string) error {
	p, err := parseArgs(args, []string{"sort"}, "desc")
	if err != nil {
		return err
	}
	if len(p.positional) > 0 {
		return fmt.Errorf("unexpected argument: %s", p.positional[0])
	}

	cs, err := a.ledger.List(ctx)
	if err != nil {
		return err
	}
	return printClients(cs, p, "Clients")
}

func cmdClientsSearch(ctx context.Context, a *app, args []string) error {
	p, err := parseArgs(args, []string{"sort"}, "desc")
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(p.positional, " "))

	var cs []clients.Client
	if query == "" {
		cs, err = a.ledger.List(ctx)
	} else {
		cs, err = a.ledger.Search(ctx, query)
	}
	if err != nil {
		return err
	}
	return printClients(cs, p, fmt.Sprintf("Clients matching %q", query))
}

func printClients(cs []clients.Client, p *parsedArgs, title string) error {
	if p.has("sort") {
		field, err := clientview.ParseField(p.get("sort"))
		if err != nil {
			return err
		}
		sorter := clientview.NewSorter()
		sorter.Sort(cs, field)
		if p.has("desc") {
			sorter.Sort(cs, field)
		}
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  " + title)
	cyan.Println("  " + strings.Repeat("-", len([]rune(title))))

	if len(cs) == 0 {
		fmt.Println("  (no clients)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := make([]string, len(tableColumns))
	rule := make([]string, len(tableColumns))
	for i, f := range tableColumns {
		header[i] = strings.ToUpper(strings.ReplaceAll(string(f), "_", " "))
		rule[i] = strings.Repeat("-", len(header[i]))
	}
	fmt.Fprintln(w, "  "+strings.Join(header, "\t"))
	fmt.Fprintln(w, "  "+strings.Join(rule, "\t"))

	row := make([]string, len(tableColumns))
	for _, c := range cs {
		for i, f := range tableColumns {
			row[i] = truncate(clientview.Display(c, f), 24)
		}
		fmt.Fprintln(w, "  "+strings.Join(row, "\t"))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdClientsShow(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: clients show <id>")
	}
	id, err := parseIntArg(args[0])
	if err != nil {
		return err
	}

	c, err := a.ledger.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("client %d not found", id)
		}
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  %s\n", c.FullName())
	fmt.Println()
	for _, f := range clientview.Columns {
		if v := clientview.Display(*c, f); v != "" {
			fmt.Printf("  %-12s %s\n", strings.ReplaceAll(string(f), "_", " ")+":", v)
		}
	}

	calls, err := a.ledger.CallHistory(ctx, id, 10)
	if err != nil {
		return err
	}
	if len(calls) > 0 {
		fmt.Println()
		cyan.Println("  Recent Calls")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, e := range calls {
			offer, _ := e.Detail["offer"].(string)
			fmt.Fprintf(w, "  %s\t%s\t%s\n", e.Timestamp.Format("02.01.2006 15:04"), e.Actor, offer)
		}
		w.Flush()
	}
	fmt.Println()
	return nil
}

// applyClientFlags overlays flag values onto p and b. Flags that are absent
// leave the existing value alone.
func applyClientFlags(args *parsedArgs, p *clients.Profile, b *clients.Billing) error {
	set := func(name string, dst *string) {
		if args.has(name) {
			*dst = strings.TrimSpace(args.get(name))
		}
	}
	set("last", &p.LastName)
	set("first", &p.FirstName)
	set("middle", &p.MiddleName)
	set("phone", &p.Phone)
	set("email", &p.Email)
	set("address", &p.Address)
	set("tariff", &b.Tariff)

	if args.has("birth") {
		d, err := parseDateArg(args.get("birth"))
		if err != nil {
			return err
		}
		p.BirthDate = d
	}
	if args.has("balance") {
		bal, err := clients.ParseBalance(args.get("balance"))
		if err != nil {
			return fmt.Errorf("invalid balance %q", args.get("balance"))
		}
		b.Balance = bal
	}
	return nil
}

func cmdClientsAdd(ctx context.Context, a *app, args []string) error {
	parsed, err := parseArgs(args, clientFlags)
	if err != nil {
		return err
	}

	var p clients.Profile
	var b clients.Billing
	if err := applyClientFlags(parsed, &p, &b); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	id, err := a.ledger.Add(ctx, p, b)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Added client %d: %s %s\n", id, p.LastName, p.FirstName)
	return nil
}

func cmdClientsEdit(ctx context.Context, a *app, args []string) error {
	parsed, err := parseArgs(args, clientFlags)
	if err != nil {
		return err
	}
	if len(parsed.positional) != 1 {
		return fmt.Errorf("usage: clients edit <id> [--last L] [--first F] ...")
	}
	id, err := parseIntArg(parsed.positional[0])
	if err != nil {
		return err
	}

	// Update replaces every field, so start from the stored values.
	c, err := a.ledger.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("client %d not found", id)
		}
		return err
	}
	p, b := c.Profile, c.Billing
	if err := applyClientFlags(parsed, &p, &b); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if err := a.ledger.Update(ctx, id, p, b); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Updated client %d\n", id)
	return nil
}

func cmdClientsDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: clients delete <id>")
	}
	id, err := parseIntArg(args[0])
	if err != nil {
		return err
	}
	if err := a.ledger.Delete(ctx, id); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Deleted client %d\n", id)
	return nil
}

func cmdCall(ctx context.Context, a *app, args []string) error {
	ctx, _, err := a.session(ctx)
	if err != nil {
		return err
	}

	p, err := parseArgs(args, []string{"offer"})
	if err != nil {
		return err
	}
	if len(p.positional) != 1 {
		return fmt.Errorf("usage: call <client-id> [--offer N]")
	}
	id, err := parseIntArg(p.positional[0])
	if err != nil {
		return err
	}

	var offer string
	if p.has("offer") {
		promoID, err := parseIntArg(p.get("offer"))
		if err != nil {
			return err
		}
		promo, err := a.catalog.Get(ctx, promoID)
		if err != nil {
			if store.IsNotFound(err) {
				return fmt.Errorf("promotion %d not found", promoID)
			}
			return err
		}
		offer = promo.OfferText
	}

	caller := store.ActorFrom(ctx)
	if err := a.ledger.RecordCall(ctx, id, caller, offer); err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("client %d not found", id)
		}
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Recorded call to client %d by %s\n", id, caller)
	if offer != "" {
		fmt.Printf("  Offer: %s\n", offer)
	}
	return nil
}

func cmdPromotions(ctx context.Context, a *app) error {
	promos, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Promotions")
	cyan.Println("  ----------")

	if len(promos) == 0 {
		fmt.Println("  (no promotions)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tOFFER")
	fmt.Fprintln(w, "  --\t-----")
	for _, p := range promos {
		fmt.Fprintf(w, "  %d\t%s\n", p.ID, p.OfferText)
	}
	w.Flush()
	fmt.Println()
	return nil
}
