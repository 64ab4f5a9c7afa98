package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chemcat/chemcat-cli/internal/adapters/viewer"
	"github.com/chemcat/chemcat-cli/internal/domain/model"
	"github.com/chemcat/chemcat-cli/internal/service"
)

type listFlags struct {
	Q       string
	Limit   int
	Offset  int
	Private bool
}

func parseListFlags(name string, args []string) (listFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var opts listFlags
	fs.StringVar(&opts.Q, "q", "", "Substring filter on name/formula")
	fs.IntVar(&opts.Limit, "limit", 20, "Page size")
	fs.IntVar(&opts.Offset, "offset", 0, "Page offset")
	fs.BoolVar(&opts.Private, "private", false, "List your own compounds (requires sign-in)")
	if err := fs.Parse(args); err != nil {
		return listFlags{}, err
	}
	return opts, nil
}

func fetchPage(ctx context.Context, cmdCtx *commandContext, opts listFlags) (*model.CompoundPage, error) {
	listOpts := model.CompoundListOptions{Q: opts.Q, Limit: opts.Limit, Offset: opts.Offset}
	if opts.Private {
		return cmdCtx.App.Compounds.ListPrivate(ctx, listOpts)
	}
	return cmdCtx.App.Compounds.ListPublic(ctx, listOpts)
}

func runList(cmdCtx *commandContext, args []string) error {
	opts, err := parseListFlags("list", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	page, err := fetchPage(ctx, cmdCtx, opts)
	if err != nil {
		return err
	}
	return renderCompounds(page.Results, page.Total)
}

func runSearch(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var opts listFlags
	var expr string
	fs.StringVar(&opts.Q, "q", "", "Substring filter sent to the backend")
	fs.IntVar(&opts.Limit, "limit", 100, "Page size fetched before refinement")
	fs.IntVar(&opts.Offset, "offset", 0, "Page offset")
	fs.BoolVar(&opts.Private, "private", false, "Search your own compounds")
	fs.StringVar(&expr, "expr", "", "JMESPath expression evaluated per compound (e.g. 'molecular_weight > `100`')")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := service.NewSearchFilter(service.SearchFilterOptions{})
	if err := filter.Validate(expr); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	page, err := fetchPage(ctx, cmdCtx, opts)
	if err != nil {
		return err
	}
	matched, err := filter.Refine(page, expr)
	if err != nil {
		return err
	}
	return renderCompounds(matched, len(matched))
}

func renderCompounds(compounds []model.Compound, total int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "ID\tNAME\tFORMULA\tWEIGHT\tPUBLIC\n"); err != nil {
		return err
	}
	for _, c := range compounds {
		weight := "-"
		if c.MolecularWeight != nil {
			weight = fmt.Sprintf("%.2f", *c.MolecularWeight)
		}
		if err := writef(w, "%d\t%s\t%s\t%s\t%t\n", c.ID, c.Name, c.Formula, weight, c.IsPublic); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writef(os.Stdout, "\n%d of %d shown\n", len(compounds), total)
}

func runGet(cmdCtx *commandContext, args []string) error {
	id, err := parseIDFlag("get", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	c, err := cmdCtx.App.Compounds.Get(ctx, id)
	if err != nil {
		return err
	}
	return renderCompound(c)
}

func renderCompound(c *model.Compound) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"ID", fmt.Sprintf("%d", c.ID)},
		{"Name", c.Name},
		{"Formula", c.Formula},
		{"SMILES", c.SMILES},
		{"Description", c.Description},
		{"Public", fmt.Sprintf("%t", c.IsPublic)},
		{"Structure file", c.StructureFileURL},
	}
	if c.MolecularWeight != nil {
		rows = append(rows, [2]string{"Molecular weight", fmt.Sprintf("%.4g", *c.MolecularWeight)})
	}
	if c.Owner != nil {
		rows = append(rows, [2]string{"Owner", c.Owner.Username})
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		if err := writef(w, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return w.Flush()
}

func parseCompoundInput(name string, args []string) (model.CompoundInput, int64, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var in model.CompoundInput
	var id int64
	fs.Int64Var(&id, "id", 0, "Compound ID")
	fs.StringVar(&in.Name, "name", "", "Compound name")
	fs.StringVar(&in.Formula, "formula", "", "Molecular formula")
	fs.StringVar(&in.SMILES, "smiles", "", "SMILES string")
	fs.StringVar(&in.MolecularWeight, "weight", "", "Molecular weight (g/mol)")
	fs.StringVar(&in.Description, "description", "", "Free-form description")
	fs.BoolVar(&in.IsPublic, "public", false, "Make the compound publicly visible")
	if err := fs.Parse(args); err != nil {
		return model.CompoundInput{}, 0, err
	}
	return in, id, nil
}

func runAdd(cmdCtx *commandContext, args []string) error {
	in, _, err := parseCompoundInput("add", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	c, err := cmdCtx.App.Compounds.Add(ctx, in)
	if err != nil {
		return err
	}
	if err := writef(os.Stdout, "Added compound %d.\n", c.ID); err != nil {
		return err
	}
	return renderCompound(c)
}

func runUpdate(cmdCtx *commandContext, args []string) error {
	in, id, err := parseCompoundInput("update", args)
	if err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("--id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	c, err := cmdCtx.App.Compounds.Update(ctx, id, in)
	if err != nil {
		return err
	}
	if err := writef(os.Stdout, "Updated compound %d.\n", c.ID); err != nil {
		return err
	}
	return renderCompound(c)
}

func runDelete(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
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

	if err := cmdCtx.App.Compounds.Delete(ctx, id); err != nil {
		return err
	}
	return writef(os.Stdout, "Deleted compound %d.\n", id)
}

func runView(cmdCtx *commandContext, args []string) error {
	id, err := parseIDFlag("view", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	c, err := cmdCtx.App.Compounds.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.StructureFileURL == "" {
		return fmt.Errorf("compound %d has no structure file", id)
	}

	target := viewer.NewTermTarget(os.Stdout)
	defer cmdCtx.App.Resolver.Dispose(target)

	return cmdCtx.App.Resolver.Mount(ctx, target, c.StructureFileURL)
}

func parseIDFlag(name string, args []string) (int64, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var id int64
	fs.Int64Var(&id, "id", 0, "Compound ID (required)")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("--id is required")
	}
	return id, nil
}
