// Package cli implements panelctl, a terminal client for the platform
// operator. It talks to the same backend as the panel and shares its
// platform service and form validation.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/school-erp/superadmin/internal/config"
	"github.com/school-erp/superadmin/internal/platform"
	"github.com/school-erp/superadmin/internal/query"
	"github.com/school-erp/superadmin/pkg/api"
)

var (
	version = "dev"
	apiURL  string
	client  *api.Client
	svc     *platform.Service
)

var errNotLoggedIn = errors.New("not logged in\n\nRun 'panelctl login' first")

var rootCmd = &cobra.Command{
	Use:           "panelctl",
	Short:         "panelctl - Plattform-Administration für Schulmandanten",
	Long:          "CLI for operating tenants, plans and settings of the school platform.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		creds, err := loadCredentials()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		}
		if f := cmd.Flag("api-url"); creds != nil && creds.APIURL != "" && (f == nil || !f.Changed) {
			apiURL = creds.APIURL
		}

		client = api.NewClient(apiURL)
		client.RequestID = uuid.NewString()
		if creds != nil {
			client.Token = creds.Token
		}

		// Der CLI-Prozess ist kurzlebig; der Cache dient nur der Entkopplung.
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if os.Getenv("PANELCTL_DEBUG") != "" {
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		svc = platform.NewService(logger, client, query.New(logger, query.NewMemory(), time.Minute))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// operator returns the platform service bound to the stored credential.
func operator() (*platform.Operator, error) {
	if client.Token == "" {
		return nil, errNotLoggedIn
	}
	return svc.As(client.Token), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", config.Load().APIURL, "Platform API URL")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(tenantsCmd)
	rootCmd.AddCommand(plansCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(settingsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "panelctl version %s\n", version)
	},
}
