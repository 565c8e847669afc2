package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/school-erp/superadmin/internal/form"
	"github.com/school-erp/superadmin/internal/platform"
	"github.com/school-erp/superadmin/pkg/models"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Inspect subscription plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscription plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operator()
		if err != nil {
			return err
		}
		plans, err := op.Plans(cmd.Context())
		if err != nil {
			return formatError(err)
		}

		out := cmd.OutOrStdout()
		if len(plans) == 0 {
			fmt.Fprintln(out, "No plans defined.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPRICE/MONTH\tMAX STUDENTS\tMAX TEACHERS\tFEATURES")
		for _, p := range plans {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%d\t%s\n",
				p.ID, p.Name, p.Price, p.MaxStudents, p.MaxTeachers, orDash(enabledFeatures(p.Features)))
		}
		w.Flush()
		return nil
	},
}

func enabledFeatures(features map[string]bool) string {
	var on []string
	for k, v := range features {
		if v {
			on = append(on, k)
		}
	}
	sort.Strings(on)
	return strings.Join(on, ",")
}

var auditFlags struct {
	action   string
	tenantID string
	from     string
	to       string
	page     int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		var f form.AuditFilter
		errs := form.BindValues(url.Values{
			"action":    {auditFlags.action},
			"tenant_id": {auditFlags.tenantID},
			"date_from": {auditFlags.from},
			"date_to":   {auditFlags.to},
			"page":      {strconv.Itoa(auditFlags.page)},
		}, &f)
		if !errs.Empty() {
			return validationError(errs)
		}

		op, err := operator()
		if err != nil {
			return err
		}
		logs, err := op.AuditLogs(cmd.Context(), max(f.Page, 1), platform.AuditLogsPerPage, f.Filter())
		if err != nil {
			return formatError(err)
		}

		out := cmd.OutOrStdout()
		if len(logs.Items) == 0 {
			fmt.Fprintln(out, "No audit log entries.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tTENANT\tADMIN\tDETAILS")
		for _, e := range logs.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				orDash(e.CreatedAt), e.Action, orDash(e.TenantID), orDash(e.PlatformAdminID), details(e.ExtraData))
		}
		w.Flush()
		fmt.Fprintf(out, "\nPage %d of %d (%d entries)\n", logs.Page, max(logs.Pages, 1), logs.Total)
		return nil
	},
}

func details(extra map[string]any) string {
	if len(extra) == 0 {
		return "-"
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "-"
	}
	return string(b)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect platform settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show platform settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operator()
		if err != nil {
			return err
		}
		settings, err := op.Settings(cmd.Context())
		if err != nil {
			return formatError(err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		for _, k := range models.SettingKeys {
			fmt.Fprintf(w, "%s\t%s\n", k, orDash(settings.Get(k)))
		}
		w.Flush()
		return nil
	},
}

func init() {
	plansCmd.AddCommand(plansListCmd)

	auditListCmd.Flags().StringVar(&auditFlags.action, "action", "", "Filter by action, e.g. tenant.created")
	auditListCmd.Flags().StringVar(&auditFlags.tenantID, "tenant", "", "Filter by tenant ID")
	auditListCmd.Flags().StringVar(&auditFlags.from, "from", "", "Start date (YYYY-MM-DD)")
	auditListCmd.Flags().StringVar(&auditFlags.to, "to", "", "End date (YYYY-MM-DD)")
	auditListCmd.Flags().IntVar(&auditFlags.page, "page", 1, "Page number")
	auditCmd.AddCommand(auditListCmd)

	settingsCmd.AddCommand(settingsGetCmd)
}
