package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/school-erp/superadmin/internal/platform"
)

var tenantsPage int

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operator()
		if err != nil {
			return err
		}
		page, err := op.Tenants(cmd.Context(), tenantsPage, platform.TenantsPerPage)
		if err != nil {
			return formatError(err)
		}

		out := cmd.OutOrStdout()
		if len(page.Items) == 0 {
			fmt.Fprintln(out, "No tenants found.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSUBDOMAIN\tPLAN\tSTUDENTS\tTEACHERS\tSTATUS")
		for _, t := range page.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				t.ID, t.Name, t.Subdomain, orDash(t.Plan), t.StudentsCount, t.TeachersCount, t.Status)
		}
		w.Flush()
		fmt.Fprintf(out, "\nPage %d of %d (%d tenants)\n", page.Page, max(page.TotalPages, 1), page.Total)
		return nil
	},
}

var tenantsGetCmd = &cobra.Command{
	Use:   "get [tenant-id]",
	Short: "Show a tenant and its school admins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operator()
		if err != nil {
			return err
		}
		t, err := op.Tenant(cmd.Context(), args[0])
		if err != nil {
			return formatError(err)
		}
		admins, err := op.TenantAdmins(cmd.Context(), args[0])
		if err != nil {
			return formatError(err)
		}

		out := cmd.OutOrStdout()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID:\t%s\n", t.ID)
		fmt.Fprintf(w, "Name:\t%s\n", t.Name)
		fmt.Fprintf(w, "Subdomain:\t%s\n", t.Subdomain)
		fmt.Fprintf(w, "Status:\t%s\n", t.Status)
		fmt.Fprintf(w, "Plan:\t%s\n", orDash(t.Plan))
		fmt.Fprintf(w, "Contact:\t%s\n", orDash(t.ContactEmail))
		fmt.Fprintf(w, "Phone:\t%s\n", orDash(t.Phone))
		fmt.Fprintf(w, "Address:\t%s\n", orDash(t.Address))
		fmt.Fprintf(w, "Students:\t%d\n", t.StudentsCount)
		fmt.Fprintf(w, "Teachers:\t%d\n", t.TeachersCount)
		fmt.Fprintf(w, "Created:\t%s\n", orDash(t.CreatedAt))
		w.Flush()

		fmt.Fprintln(out, "\nSchool admins:")
		if len(admins) == 0 {
			fmt.Fprintln(out, "  none")
			return nil
		}
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, a := range admins {
			fmt.Fprintf(w, "  %s\t%s\n", a.Email, orDash(a.Name))
		}
		w.Flush()
		return nil
	},
}

func statusCmd(use, short, done string, suspend bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [tenant-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := operator()
			if err != nil {
				return err
			}
			if err := op.SetTenantStatus(cmd.Context(), args[0], suspend); err != nil {
				return formatError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s %s.\n", args[0], done)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	tenantsListCmd.Flags().IntVar(&tenantsPage, "page", 1, "Page number")

	tenantsCmd.AddCommand(tenantsListCmd)
	tenantsCmd.AddCommand(tenantsGetCmd)
	tenantsCmd.AddCommand(statusCmd("suspend", "Suspend a tenant", "suspended", true))
	tenantsCmd.AddCommand(statusCmd("activate", "Reactivate a suspended tenant", "activated", false))
}
