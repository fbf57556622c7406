// Package validate checks directory records before they are sent to the API
// and normalises their text fields.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/hierarchy"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[\d\s\-()]{7,20}$`)
	whitespace   = regexp.MustCompile(`\s+`)
)

var (
	required     = validation.Required.Error("is required")
	notNil       = validation.NotNil.Error("is required")
	validEmail   = validation.Match(emailPattern).Error("invalid email format")
	validPhone   = validation.Match(phonePattern).Error("invalid phone number format")
	someUserType = validation.Required.Error("must have at least one userType")
)

// User validates a user record. The returned error, if any, is a
// validation.Errors keyed by JSON field name; use Messages to flatten it.
func User(u directory.User) error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ExternalID, required),
		validation.Field(&u.Email, required, validEmail),
		validation.Field(&u.FirstName, required),
		validation.Field(&u.LastName, required),
		validation.Field(&u.Active, notNil),
		validation.Field(&u.UserTypes, someUserType, validation.Each(validation.By(userType))),
		validation.Field(&u.PhoneNumber, validPhone),
	)
}

func userType(value any) error {
	ut, ok := value.(directory.UserType)
	if !ok {
		return fmt.Errorf("unexpected user type %T", value)
	}
	return validation.ValidateStruct(&ut,
		validation.Field(&ut.DepartmentExternalID, required),
		validation.Field(&ut.UserTypeID, required),
	)
}

// Department validates a department record.
func Department(d directory.Department) error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ExternalID, required),
		validation.Field(&d.DepartmentName, required),
		validation.Field(&d.Active, notNil),
	)
}

// Messages flattens a validation error into sorted "path: message" lines.
// Nested errors use paths such as "userTypes[0].userTypeId".
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	flatten("", err, &out)
	return out
}

func flatten(prefix string, err error, out *[]string) {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		if prefix == "" {
			*out = append(*out, err.Error())
		} else {
			*out = append(*out, prefix+": "+err.Error())
		}
		return
	}

	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if errs[k] == nil {
			continue
		}
		flatten(joinPath(prefix, k), errs[k], out)
	}
}

func joinPath(prefix, key string) string {
	if _, err := strconv.Atoi(key); err == nil {
		return prefix + "[" + key + "]"
	}
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// RecordError lists the problems with one record of a payload.
type RecordError struct {
	Index      int
	ExternalID string
	Email      string
	Errors     []string
}

// Report is the result of validating a sync payload.
type Report struct {
	DepartmentErrors []RecordError
	UserErrors       []RecordError
	GeneralErrors    []string
}

// Valid reports whether no errors were found.
func (r Report) Valid() bool {
	return len(r.DepartmentErrors) == 0 && len(r.UserErrors) == 0 && len(r.GeneralErrors) == 0
}

// Err returns every problem in the report as a multierror, or nil.
func (r Report) Err() error {
	var result *multierror.Error
	for _, msg := range r.GeneralErrors {
		result = multierror.Append(result, errors.New(msg))
	}
	for _, e := range r.DepartmentErrors {
		result = multierror.Append(result,
			fmt.Errorf("department %d (%s): %s", e.Index, e.ExternalID, strings.Join(e.Errors, "; ")))
	}
	for _, e := range r.UserErrors {
		result = multierror.Append(result,
			fmt.Errorf("user %d (%s): %s", e.Index, e.ExternalID, strings.Join(e.Errors, "; ")))
	}
	return result.ErrorOrNil()
}

// SyncData validates every record of a payload.
func SyncData(data directory.SyncData) Report {
	var r Report

	if len(data.Departments) == 0 && len(data.Users) == 0 {
		r.GeneralErrors = append(r.GeneralErrors, "Must provide either departments or users data")
		return r
	}

	for i, d := range data.Departments {
		if msgs := Messages(Department(d)); len(msgs) > 0 {
			r.DepartmentErrors = append(r.DepartmentErrors, RecordError{
				Index:      i,
				ExternalID: orUnknown(d.ExternalID),
				Errors:     msgs,
			})
		}
	}

	for i, u := range data.Users {
		if msgs := Messages(User(u)); len(msgs) > 0 {
			r.UserErrors = append(r.UserErrors, RecordError{
				Index:      i,
				ExternalID: orUnknown(u.ExternalID),
				Email:      orUnknown(u.Email),
				Errors:     msgs,
			})
		}
	}

	return r
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// HierarchyReport holds the structural problems of a department set. Cycles
// are errors; dangling parents and duplicate ids are warnings.
type HierarchyReport struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether no cycle was found.
func (r HierarchyReport) Valid() bool {
	return len(r.Errors) == 0
}

// Hierarchy checks departments for parent cycles, dangling parents and
// duplicate external ids.
func Hierarchy(depts []directory.Department) HierarchyReport {
	a := hierarchy.Analyze(depts)

	var r HierarchyReport
	for _, c := range a.Cycles {
		r.Errors = append(r.Errors, "Circular dependency detected: "+hierarchy.FormatPath(c))
	}
	for _, o := range a.Orphans {
		r.Warnings = append(r.Warnings, "Department "+o.String())
	}
	for _, id := range a.Duplicates {
		r.Warnings = append(r.Warnings, fmt.Sprintf("Duplicate department externalId %q", id))
	}
	return r
}

// AuthConfig checks the connection settings of a client.
func AuthConfig(baseURL, tenantID, apiToken string) error {
	return validation.Errors{
		"baseUrl":  validation.Validate(baseURL, required, validation.By(httpURL)),
		"tenantId": validation.Validate(tenantID, required),
		"apiToken": validation.Validate(apiToken, required),
	}.Filter()
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an http or https URL")
	}
	return nil
}

// Pagination checks listing parameters supplied by a caller. pageSize must be
// between 1 and 1000.
func Pagination(page, pageSize int) error {
	return validation.Errors{
		"page":     validation.Validate(page, validation.Min(0).Error("must be a non-negative integer")),
		"pageSize": validation.Validate(pageSize, validation.By(pageSizeRange)),
	}.Filter()
}

// pageSizeRange rejects zero too; ozzo's Min and Max skip empty values.
func pageSizeRange(value any) error {
	n, _ := value.(int)
	if n < 1 || n > 1000 {
		return errors.New("must be between 1 and 1000")
	}
	return nil
}

// CleanUser trims text fields, lower-cases the email and strips whitespace
// from the phone number.
func CleanUser(u directory.User) directory.User {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.MiddleName = strings.TrimSpace(u.MiddleName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.ExternalID = strings.TrimSpace(u.ExternalID)
	u.PhoneNumber = whitespace.ReplaceAllString(u.PhoneNumber, "")
	if u.UserTypes != nil {
		types := make([]directory.UserType, len(u.UserTypes))
		for i, ut := range u.UserTypes {
			types[i] = directory.UserType{
				DepartmentExternalID: strings.TrimSpace(ut.DepartmentExternalID),
				UserTypeID:           strings.TrimSpace(ut.UserTypeID),
			}
		}
		u.UserTypes = types
	}
	return u
}

// CleanDepartment trims the id, name and parent id.
func CleanDepartment(d directory.Department) directory.Department {
	d.ExternalID = strings.TrimSpace(d.ExternalID)
	d.DepartmentName = strings.TrimSpace(d.DepartmentName)
	d.ParentExternalID = strings.TrimSpace(d.ParentExternalID)
	return d
}

// Clean applies CleanDepartment and CleanUser to every record.
func Clean(data directory.SyncData) directory.SyncData {
	out := directory.SyncData{}
	if data.Departments != nil {
		out.Departments = make([]directory.Department, len(data.Departments))
		for i, d := range data.Departments {
			out.Departments[i] = CleanDepartment(d)
		}
	}
	if data.Users != nil {
		out.Users = make([]directory.User, len(data.Users))
		for i, u := range data.Users {
			out.Users[i] = CleanUser(u)
		}
	}
	return out
}
