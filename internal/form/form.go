// Package form binds submitted HTML forms to typed structs and validates them
// with struct tags. Each field names its form key with `form:"..."` and its
// user-facing message with `msg:"..."` or, per rule, `msg_<rule>:"..."`.
package form

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/school-erp/superadmin/pkg/models"
)

// FormField is the key used for errors that belong to no single field.
const FormField = "_form"

// Errors maps form keys to messages. The first message per key wins.
type Errors map[string]string

// Add records msg for field unless the field already has one.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Get returns the message for field or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Empty reports whether there are no errors.
func (e Errors) Empty() bool {
	return len(e) == 0
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "subdomain", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, r := range s {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return false
			}
		}
		return s != ""
	})
	mustRegister(v, "between", func(fl validator.FieldLevel) bool {
		lo, hi, ok := strings.Cut(fl.Param(), ":")
		if !ok {
			return false
		}
		n, err := strconv.Atoi(fl.Field().String())
		if err != nil {
			return false
		}
		low, err1 := strconv.Atoi(lo)
		high, err2 := strconv.Atoi(hi)
		return err1 == nil && err2 == nil && n >= low && n <= high
	})
	mustRegister(v, "audit_action", func(fl validator.FieldLevel) bool {
		return models.AuditAction(fl.Field().String()).Valid()
	})
	// Tenant ids are opaque backend strings; only reject what cannot be one.
	mustRegister(v, "tenant_id", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Bind parses the request form into dst and validates it.
func Bind(r *http.Request, dst any) Errors {
	if err := r.ParseForm(); err != nil {
		return Errors{FormField: "Invalid form submission"}
	}
	return BindValues(r.Form, dst)
}

// BindValues decodes values into dst (a pointer to struct) and validates it.
// Conversion errors take precedence over rule violations for the same field.
func BindValues(values url.Values, dst any) Errors {
	errs := decode(values, dst)

	err := validate.Struct(dst)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		t := reflect.TypeOf(dst).Elem()
		for _, fe := range verrs {
			sf, _ := t.FieldByName(fe.StructField())
			errs.Add(fe.Field(), message(sf, fe.Tag()))
		}
	} else if err != nil {
		errs.Add(FormField, err.Error())
	}
	return errs
}

func message(sf reflect.StructField, rule string) string {
	if m := sf.Tag.Get("msg_" + rule); m != "" {
		return m
	}
	if m := sf.Tag.Get("msg"); m != "" {
		return m
	}
	return "Invalid value"
}

// decode fills string, int, float64 and map[string]bool fields. Strings are
// trimmed unless the tag carries ",raw". Empty numbers decode as zero. A
// map field "features" collects checkboxes named "features.<key>".
func decode(values url.Values, dst any) Errors {
	errs := Errors{}
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opt, _ := strings.Cut(sf.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			continue
		}
		fv := v.Field(i)
		raw := values.Get(name)
		if opt != "raw" {
			raw = strings.TrimSpace(raw)
		}

		switch fv.Kind() {
		case reflect.String:
			fv.SetString(raw)
		case reflect.Int:
			if raw == "" {
				fv.SetInt(0)
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs.Add(name, message(sf, "number"))
				continue
			}
			fv.SetInt(int64(n))
		case reflect.Float64:
			if raw == "" {
				fv.SetFloat(0)
				continue
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				errs.Add(name, message(sf, "number"))
				continue
			}
			fv.SetFloat(f)
		case reflect.Map:
			if fv.Type() != reflect.TypeOf(map[string]bool(nil)) {
				continue
			}
			m := map[string]bool{}
			for key, vals := range values {
				k, ok := strings.CutPrefix(key, name+".")
				if !ok || k == "" || len(vals) == 0 {
					continue
				}
				m[k] = checked(vals[len(vals)-1])
			}
			fv.Set(reflect.ValueOf(m))
		}
	}
	return errs
}

// checked interprets a checkbox value. Hidden "false" inputs precede the
// checkbox so the last value wins.
func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
