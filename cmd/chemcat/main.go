package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chemcat/chemcat-cli/internal/bootstrap"
	"github.com/chemcat/chemcat-cli/internal/domain/auth"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	App    *bootstrap.App
}

const defaultCommandTimeout = 2 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	app, err := bootstrap.BuildApp(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "build app", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal wiring failure to shell scripts
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("close app failed", "error", cerr)
		}
	}()

	cmdCtx := &commandContext{
		Ctx:    ctx,
		Logger: logger,
		App:    app,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in to the catalog backend",
			run:         runLogin,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and clear the local identity snapshot",
			run:         runLogout,
		},
		"whoami": {
			name:        "whoami",
			description: "Show the current authenticated identity",
			run:         runWhoAmI,
		},
		"register": {
			name:        "register",
			description: "Create a new account and sign in",
			run:         runRegister,
		},
		"update-profile": {
			name:        "update-profile",
			description: "Update the signed-in account's profile",
			run:         runUpdateProfile,
		},
		"change-password": {
			name:        "change-password",
			description: "Change the signed-in account's password",
			run:         runChangePassword,
		},
		"list": {
			name:        "list",
			description: "List compounds (public by default, --private for your own)",
			run:         runList,
		},
		"get": {
			name:        "get",
			description: "Show a single compound",
			run:         runGet,
		},
		"add": {
			name:        "add",
			description: "Add a compound to the catalog",
			run:         runAdd,
		},
		"update": {
			name:        "update",
			description: "Update an existing compound",
			run:         runUpdate,
		},
		"delete": {
			name:        "delete",
			description: "Delete a compound",
			run:         runDelete,
		},
		"view": {
			name:        "view",
			description: "Render a compound's structure file in the terminal viewer",
			run:         runView,
		},
		"search": {
			name:        "search",
			description: "List compounds refined by a JMESPath expression",
			run:         runSearch,
		},
		"watch": {
			name:        "watch",
			description: "Follow session state changes until interrupted",
			run:         runWatch,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: chemcat <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-18s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var creds auth.Credentials
	fs.StringVar(&creds.Email, "email", "", "Account email (required)")
	fs.StringVar(&creds.Password, "password", "", "Account password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if creds.Email == "" || creds.Password == "" {
		return fmt.Errorf("--email and --password are required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	if err := cmdCtx.App.Session.SignIn(ctx, creds); err != nil {
		return err
	}
	return printIdentity(os.Stdout, cmdCtx.App.Session.State())
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	cmdCtx.App.Session.SignOut(ctx)
	return writeln(os.Stdout, "Signed out.")
}

func runWhoAmI(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	cmdCtx.App.Session.Reconcile(ctx)
	return printIdentity(os.Stdout, cmdCtx.App.Session.State())
}

func runRegister(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var reg auth.Registration
	fs.StringVar(&reg.FullName, "full-name", "", "Full name")
	fs.StringVar(&reg.Email, "email", "", "Account email (required)")
	fs.StringVar(&reg.Password, "password", "", "Account password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if reg.Email == "" || reg.Password == "" {
		return fmt.Errorf("--email and --password are required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	if err := cmdCtx.App.Session.Register(ctx, reg); err != nil {
		return err
	}
	return printIdentity(os.Stdout, cmdCtx.App.Session.State())
}

func runUpdateProfile(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var upd auth.ProfileUpdate
	fs.StringVar(&upd.FullName, "full-name", "", "New full name")
	fs.StringVar(&upd.Email, "email", "", "New email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	if err := cmdCtx.App.Session.UpdateProfile(ctx, upd); err != nil {
		return err
	}
	return printIdentity(os.Stdout, cmdCtx.App.Session.State())
}

func runChangePassword(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("change-password", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var pc auth.PasswordChange
	fs.StringVar(&pc.CurrentPassword, "current", "", "Current password (required)")
	fs.StringVar(&pc.NewPassword, "new", "", "New password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if pc.CurrentPassword == "" || pc.NewPassword == "" {
		return fmt.Errorf("--current and --new are required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	if err := cmdCtx.App.Session.ChangePassword(ctx, pc); err != nil {
		return err
	}
	return writeln(os.Stdout, "Password updated.")
}

func runWatch(cmdCtx *commandContext, _ []string) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	unsubscribe := cmdCtx.App.Session.Subscribe(func(state auth.State) {
		if err := printIdentity(os.Stdout, state); err != nil {
			cmdCtx.Logger.Warn("print identity failed", "error", err)
		}
	})
	defer unsubscribe()

	cmdCtx.App.Session.Reconcile(ctx)

	<-ctx.Done()
	return writeln(os.Stdout, "Stopped.")
}

func printIdentity(w io.Writer, state auth.State) error {
	if state.Loading {
		return writeln(w, "Session: loading")
	}
	if !state.Authenticated() {
		return writeln(w, "Session: signed out")
	}
	u := state.User
	email := stringOr(u.Email, "-")
	name := stringOr(u.FullName, stringOr(u.Username, "-"))
	role := "user"
	if u.Role != nil {
		role = string(*u.Role)
	}
	return writef(w, "Signed in as %s <%s> (role: %s)\n", name, email, role)
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
