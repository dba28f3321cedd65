// ABOUTME: Minimal --flag value parsing shared by the CLI subcommands
// ABOUTME: Accepts "--name value" and "--name=value"; bare words are positional

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parsedArgs separates flags from positional arguments.
type parsedArgs struct {
	flags      map[string]string
	positional []string
}

// parseArgs parses args against the allowed flag names. Names listed in
// boolFlags take no value.
func parseArgs(args []string, allowed []string, boolFlags ...string) (*parsedArgs, error) {
	p := &parsedArgs{flags: make(map[string]string)}
	isAllowed := func(name string) bool {
		for _, a := range allowed {
			if a == name {
				return true
			}
		}
		return false
	}
	isBool := func(name string) bool {
		for _, b := range boolFlags {
			if b == name {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			p.positional = append(p.positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		switch {
		case isBool(name):
			p.flags[name] = "true"
			continue
		case !isAllowed(name):
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		p.flags[name] = value
	}
	return p, nil
}

func (p *parsedArgs) has(name string) bool {
	_, ok := p.flags[name]
	return ok
}

func (p *parsedArgs) get(name string) string {
	return p.flags[name]
}

func parseIntArg(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

// parseDateArg accepts DD.MM.YYYY or YYYY-MM-DD. Empty means unset.
func parseDateArg(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"02.01.2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q (want DD.MM.YYYY)", s)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
