package cmd

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/internal/output"
	"github.com/addls/scout/pkg/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	wheres  []string
	ops     []string
	ors     []string
	ins     []string
	sorts   []string
	limit   int
	page    int
	perPage int
	driver  string
	index   string
	json    bool
	explain bool
}

// explainer is implemented by engines that can show the backend request
// for a spec without running it.
type explainer interface {
	Explain(ctx context.Context, spec *search.Spec) ([]byte, error)
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search the indexed records",
		Long: `Search the indexed records with an optional free-text term.

The term matches as a substring. Conditions narrow the result; --or and
--in conditions require at least one of them to match.`,
		Example: `  scout search alice
  scout search --where city=Berlin --op "age>=30" --sort age:desc
  scout search --in status=active,pending --page 2 --per-page 20
  scout search bob --driver elasticsearch --explain`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.wheres, "where", "w", nil, "Exact match col=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.ops, "op", nil, `Condition such as "age>=30" or "name like ali" (repeatable)`)
	cmd.Flags().StringArrayVar(&opts.ors, "or", nil, "Alternative condition, same syntax as --op (repeatable)")
	cmd.Flags().StringArrayVar(&opts.ins, "in", nil, "Any-of match col=a,b,c (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.sorts, "sort", "s", nil, "Sort col[:asc|desc] (repeatable)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of hits")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 0, "Page number, 1-based (enables pagination)")
	cmd.Flags().IntVar(&opts.perPage, "per-page", 0, "Page size (default from config)")
	cmd.Flags().StringVarP(&opts.driver, "driver", "d", "", "Search driver (default from config)")
	cmd.Flags().StringVar(&opts.index, "index", "", "Search this index instead of the configured one")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Print the backend request instead of running it")

	return cmd
}

func runSearch(cmd *cobra.Command, a *app, term string, opts searchOptions) error {
	if err := a.load(); err != nil {
		return err
	}
	ctx := cmd.Context()

	driver := opts.driver
	if driver == "" {
		driver = a.registry.DefaultDriver()
	}
	engine, err := a.registry.Engine(ctx, driver)
	if err != nil {
		return err
	}
	repo, err := a.repository()
	if err != nil {
		return err
	}

	spec, err := buildSpec(search.NewBuilder(repo, term), opts)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())

	if opts.explain {
		ex, ok := engine.(explainer)
		if !ok {
			return scerrors.ValidationError("driver cannot explain queries", nil).
				WithDetail("driver", driver)
		}
		body, err := ex.Explain(ctx, spec)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return err
	}

	result := searchResult{}
	if opts.page > 0 {
		perPage := opts.perPage
		if perPage <= 0 {
			perPage = a.cfg.Search.PerPage
		}
		page, err := search.PaginateRecords(ctx, engine, spec, perPage, opts.page)
		if err != nil {
			return err
		}
		result = searchResult{
			Total:     page.Total,
			Page:      page.Page,
			PerPage:   page.PerPage,
			PageCount: page.PageCount,
			Records:   page.Records,
		}
	} else {
		res, err := engine.Search(ctx, spec)
		if err != nil {
			return err
		}
		records, err := engine.Map(ctx, res, repo)
		if err != nil {
			return err
		}
		result = searchResult{Total: engine.TotalCount(res), Records: records}
	}

	if opts.json {
		return out.JSON(result.jsonView())
	}
	result.render(out)
	return nil
}

// buildSpec applies the parsed flags to b.
func buildSpec(b *search.Builder, opts searchOptions) (*search.Spec, error) {
	for _, w := range opts.wheres {
		col, val, ok := strings.Cut(w, "=")
		if !ok || col == "" {
			return nil, scerrors.ValidationError(fmt.Sprintf("invalid --where %q, want col=value", w), nil)
		}
		b.Where(strings.TrimSpace(col), strings.TrimSpace(val))
	}
	for _, o := range opts.ops {
		col, op, val, err := parseCondition(o)
		if err != nil {
			return nil, err
		}
		b.WhereOp(col, op, val)
	}
	for _, o := range opts.ors {
		col, op, val, err := parseCondition(o)
		if err != nil {
			return nil, err
		}
		b.OrWhere(col, op, val)
	}
	for _, in := range opts.ins {
		col, vals, ok := strings.Cut(in, "=")
		if !ok || col == "" {
			return nil, scerrors.ValidationError(fmt.Sprintf("invalid --in %q, want col=a,b", in), nil)
		}
		b.WhereIn(strings.TrimSpace(col), vals)
	}
	for _, s := range opts.sorts {
		col, dir, _ := strings.Cut(s, ":")
		if dir == "" {
			dir = "asc"
		}
		b.OrderBy(col, dir)
	}
	if opts.limit > 0 {
		b.Take(opts.limit)
	}
	if opts.index != "" {
		b.Within(opts.index)
	}
	return b.Build(), nil
}

// conditionOperators is ordered so two-character operators are tried
// before their one-character prefixes.
var conditionOperators = []string{">=", "<=", "!=", "<>", "=", ">", "<"}

// parseCondition splits "col<op>value" or "col like value".
func parseCondition(s string) (col, op, val string, err error) {
	lower := strings.ToLower(s)
	if i := strings.Index(lower, " like "); i > 0 {
		return strings.TrimSpace(s[:i]), "like", strings.TrimSpace(s[i+len(" like "):]), nil
	}

	best := -1
	for _, candidate := range conditionOperators {
		i := strings.Index(s, candidate)
		if i <= 0 {
			continue
		}
		if best == -1 || i < best || (i == best && len(candidate) > len(op)) {
			best, op = i, candidate
		}
	}
	if best == -1 {
		return "", "", "", scerrors.ValidationError(fmt.Sprintf("invalid condition %q, want col<op>value", s), nil).
			WithSuggestion("operators: = != <> > >= < <= like")
	}
	return strings.TrimSpace(s[:best]), op, strings.TrimSpace(s[best+len(op):]), nil
}

// searchResult is what search prints.
type searchResult struct {
	Total     int
	Page      int
	PerPage   int
	PageCount float64
	Records   []search.Record
}

func (r searchResult) jsonView() map[string]any {
	records := make([]map[string]any, 0, len(r.Records))
	for _, rec := range r.Records {
		records = append(records, rec.SearchableFields())
	}
	view := map[string]any{
		"total":   r.Total,
		"records": records,
	}
	if r.Page > 0 {
		view["page"] = r.Page
		view["per_page"] = r.PerPage
		view["page_count"] = r.PageCount
	}
	return view
}

func (r searchResult) render(out *output.Writer) {
	if len(r.Records) == 0 {
		out.Warning("No records found")
		return
	}

	fields := map[string]struct{}{}
	for _, rec := range r.Records {
		for k := range rec.SearchableFields() {
			fields[k] = struct{}{}
		}
	}
	columns := slices.Sorted(maps.Keys(fields))

	headers := append([]string{"KEY"}, columns...)
	rows := make([][]string, 0, len(r.Records))
	for _, rec := range r.Records {
		row := []string{rec.Key()}
		for _, c := range columns {
			v := rec.SearchableFields()[c]
			if v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprint(v))
		}
		rows = append(rows, row)
	}
	out.Table(headers, rows)
	out.Newline()

	if r.Page > 0 {
		out.Dim(fmt.Sprintf("%d of %d matches, page %d of %.2f", len(r.Records), r.Total, r.Page, r.PageCount))
		return
	}
	out.Dim(fmt.Sprintf("%d of %d matches", len(r.Records), r.Total))
}
