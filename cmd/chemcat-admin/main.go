// Command chemcat-admin drives the catalog's administrator console endpoints.
// It requires a signed-in admin session; sign in with the chemcat binary
// first, pointing both tools at the same snapshot path.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/chemcat/chemcat-cli/internal/bootstrap"
	"github.com/chemcat/chemcat-cli/internal/domain/model"
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
		"users": {
			name:        "users",
			description: "List accounts",
			run:         runUsers,
		},
		"set-admin": {
			name:        "set-admin",
			description: "Grant or revoke the admin role for an account",
			run:         runSetAdmin,
		},
		"set-active": {
			name:        "set-active",
			description: "Activate or deactivate an account",
			run:         runSetActive,
		},
		"compounds": {
			name:        "compounds",
			description: "List compounds across all accounts",
			run:         runCompounds,
		},
		"update-compound": {
			name:        "update-compound",
			description: "Update any compound regardless of owner",
			run:         runUpdateCompound,
		},
		"delete-compound": {
			name:        "delete-compound",
			description: "Delete any compound regardless of owner",
			run:         runDeleteCompound,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: chemcat-admin <command> [flags]\n\n"); err != nil {
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

func parseAdminListFlags(name string, args []string) (model.AdminListOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var opts model.AdminListOptions
	fs.StringVar(&opts.Q, "q", "", "Substring filter")
	fs.IntVar(&opts.Limit, "limit", 50, "Page size")
	fs.IntVar(&opts.Offset, "offset", 0, "Page offset")
	if err := fs.Parse(args); err != nil {
		return model.AdminListOptions{}, err
	}
	return opts, nil
}

func runUsers(cmdCtx *commandContext, args []string) error {
	opts, err := parseAdminListFlags("users", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	page, err := cmdCtx.App.Admin.ListUsers(ctx, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "ID\tEMAIL\tNAME\tADMIN\tACTIVE\n"); err != nil {
		return err
	}
	for _, u := range page.Results {
		name := u.FullName
		if name == "" {
			name = u.Username
		}
		if err := writef(w, "%d\t%s\t%s\t%t\t%t\n", u.ID, u.Email, name, u.IsAdmin, u.IsActive); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writef(os.Stdout, "\n%d of %d shown\n", len(page.Results), page.Total)
}

func parseIDBoolFlags(name, boolName, boolUsage string, args []string) (int64, bool, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var id int64
	var value bool
	fs.Int64Var(&id, "id", 0, "Account ID (required)")
	fs.BoolVar(&value, boolName, false, boolUsage)
	if err := fs.Parse(args); err != nil {
		return 0, false, err
	}
	if id == 0 {
		return 0, false, fmt.Errorf("--id is required")
	}
	return id, value, nil
}

func runSetAdmin(cmdCtx *commandContext, args []string) error {
	id, grant, err := parseIDBoolFlags("set-admin", "grant", "Grant rather than revoke", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	if err := cmdCtx.App.Admin.SetAdmin(ctx, id, grant); err != nil {
		return err
	}
	return writef(os.Stdout, "Account %d admin=%t.\n", id, grant)
}

func runSetActive(cmdCtx *commandContext, args []string) error {
	id, active, err := parseIDBoolFlags("set-active", "active", "Activate rather than deactivate", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	if err := cmdCtx.App.Admin.SetActive(ctx, id, active); err != nil {
		return err
	}
	return writef(os.Stdout, "Account %d active=%t.\n", id, active)
}

func runCompounds(cmdCtx *commandContext, args []string) error {
	opts, err := parseAdminListFlags("compounds", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	page, err := cmdCtx.App.Admin.ListCompounds(ctx, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "ID\tNAME\tFORMULA\tOWNER\tPUBLIC\n"); err != nil {
		return err
	}
	for _, c := range page.Results {
		owner := "-"
		if c.Owner != nil {
			owner = c.Owner.Username
		}
		if err := writef(w, "%d\t%s\t%s\t%s\t%t\n", c.ID, c.Name, c.Formula, owner, c.IsPublic); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writef(os.Stdout, "\n%d of %d shown\n", len(page.Results), page.Total)
}

func runUpdateCompound(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("update-compound", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var in model.CompoundInput
	var id int64
	fs.Int64Var(&id, "id", 0, "Compound ID (required)")
	fs.StringVar(&in.Name, "name", "", "Compound name")
	fs.StringVar(&in.Formula, "formula", "", "Molecular formula")
	fs.StringVar(&in.SMILES, "smiles", "", "SMILES string")
	fs.StringVar(&in.MolecularWeight, "weight", "", "Molecular weight (g/mol)")
	fs.StringVar(&in.Description, "description", "", "Free-form description")
	fs.BoolVar(&in.IsPublic, "public", false, "Make the compound publicly visible")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("--id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	c, err := cmdCtx.App.Admin.UpdateCompound(ctx, id, in)
	if err != nil {
		return err
	}
	return writef(os.Stdout, "Updated compound %d (%s).\n", c.ID, c.Name)
}

func runDeleteCompound(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("delete-compound", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var id int64
	var yes bool
	fs.Int64Var(&id, "id", 0, "Compound ID (required)")
	fs.BoolVar(&yes, "yes", false, "Skip confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("--id is required")
	}
	if !yes {
		return fmt.Errorf("refusing to delete compound %d without --yes", id)
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	if err := cmdCtx.App.Admin.DeleteCompound(ctx, id); err != nil {
		return err
	}
	return writef(os.Stdout, "Deleted compound %d.\n", id)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
