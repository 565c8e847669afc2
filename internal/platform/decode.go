package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/school-erp/superadmin/pkg/models"
)

// Decode policy. Backend payloads differ between versions in naming and
// nullability; every tolerated variant and default is listed here. Anything
// not listed (unknown tenant status, objects where scalars are expected,
// non-numeric strings in numeric fields) is a decode error.
//
//	Tenant.ID              id                              ""
//	Tenant.Plan            plan_name, plan                 ""
//	Tenant.PlanID          plan_id, planId                 ""
//	Tenant.Status          status                          "active" when absent/empty
//	Tenant.StudentsCount   student_count, studentsCount    0
//	Tenant.TeachersCount   teacher_count, teachersCount    0
//	Tenant.ContactEmail    contact_email, contactEmail     ""
//	Tenant.CreatedAt       created_at, createdAt           ""
//	Plan.Price             price, price_monthly            0
//	Plan.MaxStudents       maxStudents, max_students       0
//	Plan.MaxTeachers       maxTeachers, max_teachers       0
//	Plan.Features          features_json, features         nil unless a JSON object (or a string holding one)
//	PlanFeature.Label      label, key                      ""
//	Dashboard metrics      total_tenants ... revenue_monthly  0
//	Growth point           month, count                    "", 0
//	Pagination             page, per_page, total, pages    1, requested size, 0, 0
//	Settings values        any scalar, null                ""

// num accepts a JSON number, a numeric string or null.
type num struct {
	v   float64
	set bool
}

func (n *num) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		if str == "" {
			return nil
		}
		s = str
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	n.v, n.set = f, true
	return nil
}

// text accepts a JSON string, number, bool or null.
type text struct {
	v   string
	set bool
}

func (t *text) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	switch {
	case s == "null":
		return nil
	case strings.HasPrefix(s, `"`):
		if err := json.Unmarshal(b, &t.v); err != nil {
			return err
		}
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return fmt.Errorf("expected scalar, got %.20s", s)
	default:
		t.v = s
	}
	t.set = true
	return nil
}

func firstText(vals ...text) string {
	for _, v := range vals {
		if v.set {
			return v.v
		}
	}
	return ""
}

func firstNum(vals ...num) float64 {
	for _, v := range vals {
		if v.set {
			return v.v
		}
	}
	return 0
}

func firstInt(vals ...num) int {
	return int(firstNum(vals...))
}

// envelope is the backend's {success, data} wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func unwrap(body []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, v)
}

type paginationWire struct {
	Page    num `json:"page"`
	PerPage num `json:"per_page"`
	Total   num `json:"total"`
	Pages   num `json:"pages"`
}

func (p paginationWire) values(perPage int) (page, size, total, pages int) {
	page = firstInt(p.Page)
	if page == 0 {
		page = 1
	}
	size = firstInt(p.PerPage)
	if size == 0 {
		size = perPage
	}
	return page, size, firstInt(p.Total), firstInt(p.Pages)
}

type tenantWire struct {
	ID                text `json:"id"`
	Name              text `json:"name"`
	Subdomain         text `json:"subdomain"`
	PlanName          text `json:"plan_name"`
	Plan              text `json:"plan"`
	PlanID            text `json:"plan_id"`
	PlanIDCamel       text `json:"planId"`
	Status            text `json:"status"`
	StudentCount      num  `json:"student_count"`
	StudentsCount     num  `json:"studentsCount"`
	TeacherCount      num  `json:"teacher_count"`
	TeachersCount     num  `json:"teachersCount"`
	ContactEmail      text `json:"contact_email"`
	ContactEmailCamel text `json:"contactEmail"`
	Phone             text `json:"phone"`
	Address           text `json:"address"`
	CreatedAt         text `json:"created_at"`
	CreatedAtCamel    text `json:"createdAt"`
}

func (w tenantWire) tenant() (models.Tenant, error) {
	t := models.Tenant{
		ID:            w.ID.v,
		Name:          w.Name.v,
		Subdomain:     w.Subdomain.v,
		Plan:          firstText(w.PlanName, w.Plan),
		PlanID:        firstText(w.PlanID, w.PlanIDCamel),
		StudentsCount: firstInt(w.StudentCount, w.StudentsCount),
		TeachersCount: firstInt(w.TeacherCount, w.TeachersCount),
		ContactEmail:  firstText(w.ContactEmail, w.ContactEmailCamel),
		Phone:         w.Phone.v,
		Address:       w.Address.v,
		CreatedAt:     firstText(w.CreatedAt, w.CreatedAtCamel),
	}
	switch models.TenantStatus(w.Status.v) {
	case "", models.TenantStatusActive:
		t.Status = models.TenantStatusActive
	case models.TenantStatusSuspended:
		t.Status = models.TenantStatusSuspended
	default:
		return t, fmt.Errorf("tenant %s: unknown status %q", t.ID, w.Status.v)
	}
	return t, nil
}

func decodeTenant(body []byte) (*models.Tenant, error) {
	var w tenantWire
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode tenant: %w", err)
	}
	t, err := w.tenant()
	if err != nil {
		return nil, fmt.Errorf("decode tenant: %w", err)
	}
	return &t, nil
}

func decodeTenantPage(body []byte, perPage int) (*models.TenantPage, error) {
	var w struct {
		Items      []tenantWire   `json:"items"`
		Pagination paginationWire `json:"pagination"`
	}
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode tenants: %w", err)
	}

	page := &models.TenantPage{Items: make([]models.Tenant, 0, len(w.Items))}
	for _, item := range w.Items {
		t, err := item.tenant()
		if err != nil {
			return nil, fmt.Errorf("decode tenants: %w", err)
		}
		page.Items = append(page.Items, t)
	}
	page.Page, page.PerPage, page.Total, page.TotalPages = w.Pagination.values(perPage)
	return page, nil
}

func decodeTenantAdmins(body []byte) ([]models.TenantAdmin, error) {
	var w struct {
		Admins []struct {
			ID    text `json:"id"`
			Email text `json:"email"`
			Name  text `json:"name"`
		} `json:"admins"`
	}
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode tenant admins: %w", err)
	}
	admins := make([]models.TenantAdmin, 0, len(w.Admins))
	for _, a := range w.Admins {
		admins = append(admins, models.TenantAdmin{ID: a.ID.v, Email: a.Email.v, Name: a.Name.v})
	}
	return admins, nil
}

type planWire struct {
	ID               text            `json:"id"`
	Name             text            `json:"name"`
	Price            num             `json:"price"`
	PriceMonthly     num             `json:"price_monthly"`
	MaxStudents      num             `json:"maxStudents"`
	MaxStudentsSnake num             `json:"max_students"`
	MaxTeachers      num             `json:"maxTeachers"`
	MaxTeachersSnake num             `json:"max_teachers"`
	FeaturesJSON     json.RawMessage `json:"features_json"`
	Features         json.RawMessage `json:"features"`
}

func decodePlans(body []byte) ([]models.Plan, error) {
	var w []planWire
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	plans := make([]models.Plan, 0, len(w))
	for _, p := range w {
		raw := p.FeaturesJSON
		if isNull(raw) {
			raw = p.Features
		}
		plans = append(plans, models.Plan{
			ID:          p.ID.v,
			Name:        p.Name.v,
			Price:       firstNum(p.Price, p.PriceMonthly),
			MaxStudents: firstInt(p.MaxStudents, p.MaxStudentsSnake),
			MaxTeachers: firstInt(p.MaxTeachers, p.MaxTeachersSnake),
			Features:    featureMap(raw),
		})
	}
	return plans, nil
}

func isNull(raw json.RawMessage) bool {
	s := string(bytes.TrimSpace(raw))
	return s == "" || s == "null"
}

// featureMap accepts an object or a string holding an object; everything
// else yields nil.
func featureMap(raw json.RawMessage) map[string]bool {
	if isNull(raw) {
		return nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	var m map[string]bool
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func decodePlanFeatures(body []byte) ([]models.PlanFeature, error) {
	var w []struct {
		Key   text `json:"key"`
		Label text `json:"label"`
	}
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode plan features: %w", err)
	}
	features := make([]models.PlanFeature, 0, len(w))
	for _, f := range w {
		features = append(features, models.PlanFeature{Key: f.Key.v, Label: firstText(f.Label, f.Key)})
	}
	return features, nil
}

func decodeDashboard(body []byte) (*models.Dashboard, error) {
	var w struct {
		TotalTenants     num `json:"total_tenants"`
		ActiveTenants    num `json:"active_tenants"`
		SuspendedTenants num `json:"suspended_tenants"`
		TotalStudents    num `json:"total_students"`
		TotalTeachers    num `json:"total_teachers"`
		RevenueMonthly   num `json:"revenue_monthly"`
		Growth           []struct {
			Month text `json:"month"`
			Count num  `json:"count"`
		} `json:"tenant_growth_by_month"`
	}
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}

	d := &models.Dashboard{
		Metrics: models.DashboardMetrics{
			TotalTenants:     firstInt(w.TotalTenants),
			ActiveTenants:    firstInt(w.ActiveTenants),
			SuspendedTenants: firstInt(w.SuspendedTenants),
			TotalStudents:    firstInt(w.TotalStudents),
			TotalTeachers:    firstInt(w.TotalTeachers),
			MonthlyRevenue:   firstNum(w.RevenueMonthly),
		},
		Growth: make([]models.MonthCount, 0, len(w.Growth)),
	}
	for _, g := range w.Growth {
		d.Growth = append(d.Growth, models.MonthCount{Month: g.Month.v, Count: firstInt(g.Count)})
	}
	return d, nil
}

func decodeSettings(body []byte) (models.PlatformSettings, error) {
	var w map[string]text
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	s := make(models.PlatformSettings, len(models.SettingKeys))
	for _, k := range models.SettingKeys {
		s[k] = ""
	}
	for k, v := range w {
		s[k] = v.v
	}
	return s, nil
}

func decodeAuditLogs(body []byte, perPage int) (*models.AuditLogPage, error) {
	var w struct {
		Items []struct {
			ID              text            `json:"id"`
			Action          text            `json:"action"`
			TenantID        text            `json:"tenant_id"`
			PlatformAdminID text            `json:"platform_admin_id"`
			ExtraData       json.RawMessage `json:"extra_data"`
			CreatedAt       text            `json:"created_at"`
		} `json:"items"`
		Pagination paginationWire `json:"pagination"`
	}
	if err := unwrap(body, &w); err != nil {
		return nil, fmt.Errorf("decode audit logs: %w", err)
	}

	page := &models.AuditLogPage{Items: make([]models.AuditLogEntry, 0, len(w.Items))}
	for _, it := range w.Items {
		entry := models.AuditLogEntry{
			ID:              it.ID.v,
			Action:          it.Action.v,
			TenantID:        it.TenantID.v,
			PlatformAdminID: it.PlatformAdminID.v,
			CreatedAt:       it.CreatedAt.v,
		}
		if !isNull(it.ExtraData) {
			if err := json.Unmarshal(it.ExtraData, &entry.ExtraData); err != nil {
				return nil, fmt.Errorf("decode audit logs: extra_data of %s: %w", entry.ID, err)
			}
		}
		page.Items = append(page.Items, entry)
	}
	page.Page, page.PerPage, page.Total, page.Pages = w.Pagination.values(perPage)
	return page, nil
}
