package main

import (
	"fmt"
	"strconv"

	"github.com/lawdesk/lawdesk-client/pkg/legal"
	"github.com/spf13/cobra"
)

// listFlags are shared by the list subcommands.
type listFlags struct {
	all      bool
	query    string
	page     int
	pageSize int
}

// newResourceCmd builds "<resource> list|get|delete|restore" for one
// resource service.
func newResourceCmd[Item, Create, Update, Search any](
	opts *rootOptions,
	name, short string,
	resource func(*legal.Services) *legal.Resource[Item, Create, Update, Search],
	search func(listFlags) Search,
) *cobra.Command {
	cmd := &cobra.Command{Use: name, Short: "Manage " + short}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			svc := resource(a.services)

			if lf.all {
				items, err := svc.ListAll(cmd.Context(), search(lf), lf.pageSize)
				if err != nil && len(items) == 0 {
					return err
				}
				if err != nil {
					a.logger.Warn().Err(err).Int("items", len(items)).Msg("Printing partial results")
				}
				return printJSON(cmd, items)
			}

			page, err := svc.List(cmd.Context(), search(lf))
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		},
	}
	list.Flags().BoolVar(&lf.all, "all", false, "fetch every page in parallel")
	list.Flags().StringVarP(&lf.query, "query", "q", "", "free text search")
	list.Flags().IntVar(&lf.page, "page", 1, "page number")
	list.Flags().IntVar(&lf.pageSize, "page-size", 20, "items per page")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a := opts.app
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			item, err := resource(a.services).Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, item)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a := opts.app
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			if err := resource(a.services).Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", name, id)
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a deleted item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a := opts.app
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			if err := resource(a.services).Restore(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s %d\n", name, id)
			return nil
		},
	}

	cmd.AddCommand(list, get, del, restore)
	return cmd
}

func newCasesCmd(opts *rootOptions) *cobra.Command {
	return newResourceCmd(opts, "cases", "court cases",
		func(s *legal.Services) *legal.Cases { return s.Cases },
		func(f listFlags) legal.CaseSearch {
			return legal.CaseSearch{Q: f.query, Page: f.page, PageSize: f.pageSize}
		})
}

func newClientsCmd(opts *rootOptions) *cobra.Command {
	return newResourceCmd(opts, "clients", "clients",
		func(s *legal.Services) *legal.Clients { return s.Clients },
		func(f listFlags) legal.ClientSearch {
			return legal.ClientSearch{Q: f.query, Page: f.page, PageSize: f.pageSize}
		})
}

func newCourtsCmd(opts *rootOptions) *cobra.Command {
	return newResourceCmd(opts, "courts", "courts",
		func(s *legal.Services) *legal.Courts { return s.Courts },
		func(f listFlags) legal.CourtSearch {
			return legal.CourtSearch{Q: f.query, Page: f.page, PageSize: f.pageSize}
		})
}

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	return newResourceCmd(opts, "sessions", "court sessions",
		func(s *legal.Services) *legal.Sessions { return s.Sessions },
		func(f listFlags) legal.SessionSearch {
			return legal.SessionSearch{Q: f.query, Page: f.page, PageSize: f.pageSize}
		})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
