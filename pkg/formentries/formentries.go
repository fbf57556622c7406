// Package formentries retrieves recent form entries and expands the ids they
// reference into full records.
package formentries

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

const (
	DefaultCaseTypeID = "1"
	DefaultVisibility = "DEPARTMENT_AND_CHILDREN"
	DefaultWindow     = 60 * 24 * time.Hour

	lookupConcurrency = 4
)

// Requester is the part of directory.Client the fetcher needs.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, result any) error
}

var _ Requester = (*directory.Client)(nil)

// FormVersionRef identifies the form an entry was filed against.
type FormVersionRef struct {
	FormVersionID string `mapstructure:"formVersionId"`
	FormTypeID    string `mapstructure:"formTypeId"`
}

// CategoryRef is a category assigned to an entry.
type CategoryRef struct {
	CategoryVersionID string `mapstructure:"categoryVersionId"`
	CategoryGroupID   string `mapstructure:"categoryGroupId"`
}

// FormEntry is the subset of an entry used for lookups. Other fields are kept
// in Extra.
type FormEntry struct {
	ID                  string         `mapstructure:"id"`
	FormVersion         FormVersionRef `mapstructure:"formVersion"`
	Categories          []CategoryRef  `mapstructure:"categories"`
	WorkflowID          string         `mapstructure:"workflowId"`
	DepartmentIDs       []string       `mapstructure:"departmentIds"`
	RiskVersionModelIDs []string       `mapstructure:"riskVersionModelIds"`
	PriorityIDs         []string       `mapstructure:"priorityId"`
	Extra               map[string]any `mapstructure:",remain"`
}

// Query selects form entries.
type Query struct {
	DepartmentID string
	CaseTypeID   string
	Visibility   string
	Since        time.Time
}

func (q Query) withDefaults(now time.Time) Query {
	if q.CaseTypeID == "" {
		q.CaseTypeID = DefaultCaseTypeID
	}
	if q.Visibility == "" {
		q.Visibility = DefaultVisibility
	}
	if q.Since.IsZero() {
		q.Since = now.Add(-DefaultWindow)
	}
	return q
}

// pipeline builds the expression body for the entry search.
func (q Query) pipeline() map[string]any {
	return map[string]any{
		"pipeline": []any{
			map[string]any{
				"$select": map[string]any{
					"caseTypeId": map[string]any{"$eq": q.CaseTypeID},
					"visibility": q.Visibility,
					"registeredOnDate": map[string]any{
						"preset": "CUSTOM",
						"start": map[string]any{
							"$gte": q.Since.UTC().Format("2006-01-02T15:04:05.000Z"),
						},
					},
				},
			},
		},
	}
}

// Lookup is a kind of record referenced from entries.
type Lookup struct {
	Name string
	Path string
	IDs  func(FormEntry) []string
}

// Lookups are expanded in this order.
var Lookups = []Lookup{
	{Name: "formVersions", Path: "/form/versions", IDs: func(e FormEntry) []string {
		return []string{e.FormVersion.FormVersionID}
	}},
	{Name: "categoryVersions", Path: "/categoryversions/ids", IDs: func(e FormEntry) []string {
		ids := make([]string, len(e.Categories))
		for i, c := range e.Categories {
			ids[i] = c.CategoryVersionID
		}
		return ids
	}},
	{Name: "categoryGroups", Path: "/categorygroups/ids", IDs: func(e FormEntry) []string {
		ids := make([]string, len(e.Categories))
		for i, c := range e.Categories {
			ids[i] = c.CategoryGroupID
		}
		return ids
	}},
	{Name: "formTypes", Path: "/formtype", IDs: func(e FormEntry) []string {
		return []string{e.FormVersion.FormTypeID}
	}},
	{Name: "workflows", Path: "/workflow/ids", IDs: func(e FormEntry) []string {
		return []string{e.WorkflowID}
	}},
	{Name: "departments", Path: "/department/ids", IDs: func(e FormEntry) []string {
		return e.DepartmentIDs
	}},
	{Name: "riskModelVersions", Path: "/riskmodel/version/ids", IDs: func(e FormEntry) []string {
		return e.RiskVersionModelIDs
	}},
	{Name: "priorities", Path: "/priority", IDs: func(e FormEntry) []string {
		return e.PriorityIDs
	}},
}

// UniqueIDs collects the non-empty ids of entries in first-seen order.
func UniqueIDs(entries []FormEntry, ids func(FormEntry) []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range entries {
		for _, id := range ids(e) {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Report is a set of entries with their referenced records.
type Report struct {
	Query   Query
	Entries []FormEntry
	Raw     []map[string]any
	Lookups map[string][]map[string]any
}

// Count returns the number of records fetched for a lookup.
func (r *Report) Count(name string) int {
	return len(r.Lookups[name])
}

// Fetcher queries form entries.
type Fetcher struct {
	api    Requester
	logger hclog.Logger
	now    func() time.Time
}

// NewFetcher creates a Fetcher that sends requests through api.
func NewFetcher(api Requester, logger hclog.Logger) *Fetcher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Fetcher{api: api, logger: logger, now: time.Now}
}

// FetchEntries runs the entry search and decodes the results.
func (f *Fetcher) FetchEntries(ctx context.Context, q Query) ([]FormEntry, []map[string]any, error) {
	return f.fetchEntries(ctx, q.withDefaults(f.now()))
}

// fetchEntries expects q to have its defaults applied.
func (f *Fetcher) fetchEntries(ctx context.Context, q Query) ([]FormEntry, []map[string]any, error) {
	if q.DepartmentID == "" {
		return nil, nil, fmt.Errorf("department id is required")
	}

	f.logger.Info("fetching form entries",
		"department_id", q.DepartmentID,
		"case_type_id", q.CaseTypeID,
		"since", q.Since.Format(time.RFC3339),
	)

	var raw []map[string]any
	query := url.Values{"departmentId": {q.DepartmentID}}
	if err := f.api.Do(ctx, http.MethodPost, "/expression/execute", query, q.pipeline(), &raw); err != nil {
		return nil, nil, fmt.Errorf("error executing entry search: %w", err)
	}

	entries, err := Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	return entries, raw, nil
}

// Decode converts raw entries into FormEntry values. Numeric ids are
// converted to strings and single ids are accepted where lists are expected.
func Decode(raw []map[string]any) ([]FormEntry, error) {
	entries := make([]FormEntry, 0, len(raw))
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &entries,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("error decoding form entries: %w", err)
	}
	return entries, nil
}

// FetchLookup retrieves records by id. No request is made for an empty id
// list.
func (f *Fetcher) FetchLookup(ctx context.Context, l Lookup, ids []string) ([]map[string]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var resp struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := f.api.Do(ctx, http.MethodGet, l.Path, url.Values{"ids": ids}, nil, &resp); err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", l.Name, err)
	}

	f.logger.Debug("fetched lookup", "lookup", l.Name, "ids", len(ids), "entries", len(resp.Entries))
	return resp.Entries, nil
}

// Report fetches entries and expands every lookup.
func (f *Fetcher) Report(ctx context.Context, q Query) (*Report, error) {
	q = q.withDefaults(f.now())
	entries, raw, err := f.fetchEntries(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([][]map[string]any, len(Lookups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, l := range Lookups {
		ids := UniqueIDs(entries, l.IDs)
		g.Go(func() error {
			records, err := f.FetchLookup(gctx, l, ids)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Query:   q,
		Entries: entries,
		Raw:     raw,
		Lookups: make(map[string][]map[string]any, len(Lookups)),
	}
	for i, l := range Lookups {
		report.Lookups[l.Name] = results[i]
	}
	return report, nil
}
