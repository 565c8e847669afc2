package cli

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/school-erp/superadmin/internal/form"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as platform operator",
	Long:  "Sign in and store the access token in ~/.config/superadmin/credentials.\nThe password is taken from --password, PANELCTL_PASSWORD or the first line of stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			password = os.Getenv("PANELCTL_PASSWORD")
		}
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		var f form.Login
		if errs := form.BindValues(url.Values{"email": {loginEmail}, "password": {password}}, &f); !errs.Empty() {
			return validationError(errs)
		}

		res, err := client.Login(cmd.Context(), f.Email, f.Password)
		if err != nil {
			return formatError(err)
		}
		if res.AccessToken == "" {
			return fmt.Errorf("login response did not include an access token")
		}

		if err := saveCredentials(&Credentials{APIURL: apiURL, Email: f.Email, Token: res.AccessToken}); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not save credentials: %v\n", err)
		}
		client.Token = res.AccessToken

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", f.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if client.Token != "" {
			if err := client.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: backend logout failed: %v\n", formatError(err))
			}
		}
		if err := removeCredentials(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if client.Token == "" {
			return errNotLoggedIn
		}
		user, err := client.Profile(cmd.Context())
		if err != nil {
			return formatError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Email: %s\n", user.Email)
		if user.Name != "" {
			fmt.Fprintf(out, "Name:  %s\n", user.Name)
		}
		fmt.Fprintf(out, "API:   %s\n", apiURL)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Operator email address")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prefer PANELCTL_PASSWORD or stdin)")
	loginCmd.MarkFlagRequired("email")
}
