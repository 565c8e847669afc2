package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/school-erp/superadmin/internal/form"
	"github.com/school-erp/superadmin/pkg/api"
)

func formatError(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return formatAPIError(apiErr)
	}
	if isConnError(err) {
		return fmt.Errorf("cannot connect to platform API at %s\n\nCheck --api-url or API_URL", apiURL)
	}
	return err
}

func isConnError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "connection refused") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "connection reset")
}

func formatAPIError(err *api.APIError) error {
	switch err.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("session expired or invalid\n\nRun 'panelctl login' again")
	case http.StatusForbidden:
		return fmt.Errorf("access denied: %s", err.Message)
	case http.StatusNotFound:
		return fmt.Errorf("not found: %s", err.Message)
	case http.StatusConflict:
		return fmt.Errorf("conflict: %s", err.Message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("invalid request: %s", err.Message)
	case http.StatusInternalServerError:
		return fmt.Errorf("server error: %s", err.Message)
	default:
		return fmt.Errorf("API error: %s", err.Message)
	}
}

// validationError lists field errors in a stable order.
func validationError(errs form.Errors) error {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, "  "+f+": "+errs[f])
	}
	return fmt.Errorf("invalid input:\n%s", strings.Join(lines, "\n"))
}
