package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/hwlog/internal/core"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/report"
)

// NewRootCmd returns the hwctl command tree. load is called once per
// subcommand that needs the store.
func NewRootCmd(load Loader) *cobra.Command {
	root := &cobra.Command{
		Use:           "hwctl",
		Short:         "Operate the hardware support log from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		sqlCmd(load),
		listCmd(load),
		exportCmd(load),
		summaryCmd(load),
		auditCmd(load),
	)
	return root
}

// run loads the Env, runs fn and closes the store.
func run(cmd *cobra.Command, load Loader, fn func(env *Env) error) error {
	env, err := load(cmd.Context())
	if err != nil {
		return userError(err)
	}
	defer env.Close()

	if b := env.Service.Banner(); b != nil && cmd.Name() != "sql" {
		fmt.Fprintln(cmd.ErrOrStderr(), color.New(color.FgYellow).Sprintf("%s (%s) %s", b.Message, b.Code, b.Action))
	}
	if err := fn(env); err != nil {
		return userError(err)
	}
	return nil
}

// userError replaces err with its analyst-facing text.
func userError(err error) error {
	return fmt.Errorf("%s", core.FormatUserError(err))
}

func sqlCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "sql",
		Short: "Print the script that creates the records and audit tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, load, func(env *Env) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), env.Service.SetupSQL())
				return err
			})
		},
	}
}

func listCmd(load Loader) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, load, func(env *Env) error {
				records, err := env.Service.Search(env.Context(cmd.Context()), search)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nenhum registro encontrado.")
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATA\tTIPO\tANALISTA\tLOCAL\tTASK\tSTATUS")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						r.ID,
						env.Service.FormatDate(r.StartTime),
						report.TypeLabel(r),
						r.AnalystName,
						r.LocationName,
						r.Task,
						statusLabel(r),
					)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d registro(s)\n", len(records))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by task, SR, analyst or location")
	return cmd
}

// statusLabel colors dashboard records by status; others show nothing.
func statusLabel(r record.SupportRecord) string {
	if !r.OnDashboard() {
		return ""
	}
	if r.Status == record.StatusClosed {
		return color.New(color.FgGreen).Sprint(r.Status)
	}
	return color.New(color.FgYellow).Sprint(r.Status)
}

func exportCmd(load Loader) *cobra.Command {
	var (
		filter string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a CSV or XLSX report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFilter(filter)
			if err != nil {
				return err
			}
			return run(cmd, load, func(env *Env) error {
				out, err := env.Service.Export(env.Context(cmd.Context()), f, format)
				if err != nil {
					return err
				}

				if output == "-" {
					_, err := cmd.OutOrStdout().Write(out.Data)
					return err
				}
				path := output
				if path == "" {
					path = out.Filename
				}
				if err := os.WriteFile(path, out.Data, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d registro(s) em %s\n",
					color.New(color.FgGreen).Sprint("OK"), out.Rows, path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", string(report.FilterAll), "ALL, VALIDATED, NOT_VALIDATED or ESCALATED")
	cmd.Flags().StringVar(&format, "format", core.FormatCSV, "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: report name, - for stdout)")
	return cmd
}

func summaryCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Regenerate the summary of a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, load, func(env *Env) error {
				text, err := env.Service.SummaryOf(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}
}

func auditCmd(load Loader) *cobra.Command {
	var (
		action string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, load, func(env *Env) error {
				entries, err := env.Service.AuditLog(env.Context(cmd.Context()), core.AuditFilter{
					Action: core.AuditAction(strings.ToLower(action)),
					Limit:  limit,
				})
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "QUANDO\tACAO\tSEVERIDADE\tREGISTRO\tCAMPO\tQUEM")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						e.Action,
						severityLabel(e.Severity),
						e.RecordID,
						e.Field,
						e.Subject,
					)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "create, update, delete or export")
	cmd.Flags().IntVar(&limit, "limit", core.DefaultAuditLimit, "Maximum entries")
	return cmd
}

func severityLabel(s core.AuditSeverity) string {
	switch s {
	case core.SeverityHigh:
		return color.New(color.FgRed).Sprint(s)
	case core.SeverityLow:
		return color.New(color.FgCyan).Sprint(s)
	}
	return string(s)
}
