// ABOUTME: Entry point for the chillman client ledger CLI
// ABOUTME: Dispatches subcommands against the SQLite ledger as the acting staff user

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/generated/Chill-Man/internal/accounts"
	"github.com/generated/Chill-Man/internal/clients"
	"github.com/generated/Chill-Man/internal/config"
	"github.com/generated/Chill-Man/internal/promotions"
	"github.com/generated/Chill-Man/internal/store"
)

// Version is set at build time.
var version = "dev"

const banner = `
      _     _ _ _
  ___| |__ (_) | |_ __ ___   __ _ _ __
 / __| '_ \| | | | '_ ' _ \ / _' | '_ \
| (__| | | | | | | | | | | | (_| | | | |
 \___|_| |_|_|_|_|_| |_| |_|\__,_|_| |_|
`

// getConfigPath returns the config file to load, or "" to run on defaults.
// Priority: CHILLMAN_CONFIG env var > XDG_CONFIG_HOME/chillman/config.yaml > ~/.config/chillman/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("CHILLMAN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	path := filepath.Join(configDir, "chillman", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		color.Yellow("Warning: reading .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	a, err := openApp(ctx)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	switch cmd {
	case "init":
		err = cmdInit(ctx, a)
	case "login":
		err = cmdLogin(ctx, a, args)
	case "users":
		err = cmdUsers(ctx, a, args)
	case "clients":
		err = cmdClients(ctx, a, args)
	case "call":
		err = cmdCall(ctx, a, args)
	case "promotions":
		err = cmdPromotions(ctx, a)
	case "audit":
		err = cmdAudit(ctx, a, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		a.close()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		a.close()
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: chillman <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  init                              Create or upgrade the ledger database")
	fmt.Println("  login <user> <password>           Check credentials and show the role")
	fmt.Println("  users                             List staff accounts (admin)")
	fmt.Println("  users add <user> <password> [--role admin|worker]")
	fmt.Println("  users role <user> <role>          Change a user's role (admin)")
	fmt.Println("  users delete <user>               Remove a user (admin)")
	fmt.Println("  clients [list] [--sort COL] [--desc]")
	fmt.Println("  clients search <query> [--sort COL] [--desc]")
	fmt.Println("  clients show <id>                 Show a client and its call history")
	fmt.Println("  clients add --last L --first F [--middle M] [--birth DD.MM.YYYY]")
	fmt.Println("              [--phone P] [--email E] [--address A] [--tariff T] [--balance B]")
	fmt.Println("  clients edit <id> [same flags as add]")
	fmt.Println("  clients delete <id>")
	fmt.Println("  call <client-id> [--offer N]      Record a call, optionally with promotion N")
	fmt.Println("  promotions                        List promotion offers")
	fmt.Println("  audit [--limit N]                 Show recent audit entries (admin)")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  CHILLMAN_USER, CHILLMAN_PASSWORD  Acting staff credentials")
	fmt.Println("  CHILLMAN_CONFIG                   Config file (.yaml or .toml)")
	fmt.Println("  CHILLMAN_DB_PATH                  Database file (default: chillman.db)")
	fmt.Println("  CHILLMAN_LOG_LEVEL                debug, info, warn, error")
	fmt.Println()
}

// app holds the opened ledger components for one CLI invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	users   *accounts.Directory
	ledger  *clients.Ledger
	catalog *promotions.Catalog
	closed  bool
}

func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	if path == "" {
		cfg, err := config.FromEnv()
		return cfg, "", err
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// openApp loads config, opens the store and brings its schema current.
func openApp(ctx context.Context) (*app, error) {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)
	logger.Debug("configuration loaded", "config", configPath, "database", cfg.Database.Path)

	st, err := store.Open(cfg.Database.Path,
		store.WithLogger(logger),
		store.WithBusyTimeout(cfg.Database.BusyTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	seed := store.Seed{Offers: promotions.DefaultOffers}
	if cfg.Bootstrap.AdminUsername != "" {
		seed.Admin, err = accounts.BootstrapAccount(cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword, cfg.Security.BcryptCost)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	if err := st.Bootstrap(ctx, seed); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("preparing schema: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		users:   accounts.NewDirectory(st, accounts.WithBcryptCost(cfg.Security.BcryptCost)),
		ledger:  clients.NewLedger(st),
		catalog: promotions.NewCatalog(st),
	}, nil
}

func (a *app) close() {
	if a.closed {
		return
	}
	a.closed = true
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
}

// session verifies CHILLMAN_USER/CHILLMAN_PASSWORD and returns a context
// carrying that user as the actor.
func (a *app) session(ctx context.Context) (context.Context, accounts.Role, error) {
	username := os.Getenv("CHILLMAN_USER")
	password := os.Getenv("CHILLMAN_PASSWORD")
	if username == "" || password == "" {
		return nil, "", fmt.Errorf("CHILLMAN_USER and CHILLMAN_PASSWORD environment variables are required")
	}

	ok, role, err := a.users.Verify(ctx, username, password)
	if err != nil {
		return nil, "", fmt.Errorf("verifying credentials: %w", err)
	}
	if !ok {
		return nil, "", fmt.Errorf("invalid username or password")
	}
	return store.WithActor(ctx, username), role, nil
}

// adminSession is session restricted to roles that may manage users.
func (a *app) adminSession(ctx context.Context) (context.Context, error) {
	ctx, role, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if !role.CanManageUsers() {
		return nil, fmt.Errorf("this command requires the %s role", accounts.RoleAdmin)
	}
	return ctx, nil
}

func cmdInit(ctx context.Context, a *app) error {
	state, err := a.store.SchemaState(ctx)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", a.store.Path())
	green.Print("    ▶ ")
	fmt.Printf("Schema:    %s\n", state)
	gray.Printf("    version: %s\n", version)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <user> <password>")
	}
	ok, role, err := a.users.Verify(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("invalid username or password")
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Signed in as %s", args[0])
	fmt.Printf(" (%s)\n", role)
	return nil
}
