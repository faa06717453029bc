package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"chileadicto/internal/adapters/observability"
	"chileadicto/internal/domain"
)

// Table names as exposed by the PostgREST schema.
const (
	tPosts        = "posts"
	tTranslations = "post_translations"
	tImages       = "post_images"
	tLocations    = "post_locations"
	tPostCats     = "post_categories"
	tCategories   = "categories"
)

const postSelect = "*,post_translations(*),post_images(*),post_locations(*),post_categories(category:categories(*))"

// Each retry can reveal a different missing column, so the bound is the
// number of optional columns we could plausibly lose, not a transient-fault
// retry count.
const maxDriftRetries = 8

type Repo struct {
	c    *Client
	cols *columnMap
}

func NewRepo(c *Client) *Repo {
	return &Repo{c: c, cols: newColumnMap(nil)}
}

// NewRepoWithMissingColumns pre-seeds the capability map for deployments whose
// schema gaps are already known, skipping the first-write probe entirely.
func NewRepoWithMissingColumns(c *Client, missing map[string][]string) *Repo {
	return &Repo{c: c, cols: newColumnMap(missing)}
}

/********** write path **********/

func (r *Repo) FindPostID(ctx context.Context, slug string) (int64, bool, error) {
	if !r.c.Configured() {
		return 0, false, nil
	}
	var rows []idRow
	q := url.Values{"select": {"id"}, "slug": {"eq." + slug}}
	if err := r.c.Get(ctx, tPosts, q, &rows); err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].ID, true, nil
}

func (r *Repo) InsertPostBase(ctx context.Context, p domain.Post) (int64, error) {
	var out []idRow
	err := r.writeRows(ctx, http.MethodPost, tPosts, nil,
		[]map[string]any{basePostRow(p)}, &out, "return=representation")
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("insert into %s returned no representation", tPosts)
	}
	return out[0].ID, nil
}

func (r *Repo) UpdatePostBase(ctx context.Context, id int64, p domain.Post) error {
	row := basePostRow(p)
	delete(row, "slug") // the slug is the immutable lookup key
	return r.writeRows(ctx, http.MethodPatch, tPosts, eqID("id", id),
		[]map[string]any{row}, nil, "")
}

func (r *Repo) InsertTranslations(ctx context.Context, id int64, p domain.Post) error {
	rows := []map[string]any{
		translationRowFor(id, "es", p.ES),
		translationRowFor(id, "en", p.EN),
	}
	return r.writeRows(ctx, http.MethodPost, tTranslations, nil, rows, nil, "")
}

func (r *Repo) DeleteTranslations(ctx context.Context, id int64) error {
	return r.c.Write(ctx, http.MethodDelete, tTranslations, eqID("post_id", id), nil, nil, "")
}

func (r *Repo) InsertImages(ctx context.Context, id int64, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(urls))
	for i, u := range urls {
		rows = append(rows, map[string]any{"post_id": id, "url": u, "position": i})
	}
	return r.writeRows(ctx, http.MethodPost, tImages, nil, rows, nil, "")
}

func (r *Repo) DeleteImages(ctx context.Context, id int64) error {
	return r.c.Write(ctx, http.MethodDelete, tImages, eqID("post_id", id), nil, nil, "")
}

func (r *Repo) InsertLocations(ctx context.Context, id int64, locs []domain.Location) error {
	if len(locs) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(locs))
	for i, l := range locs {
		rows = append(rows, locationRowFor(id, i, l))
	}
	return r.writeRows(ctx, http.MethodPost, tLocations, nil, rows, nil, "")
}

func (r *Repo) DeleteLocations(ctx context.Context, id int64) error {
	return r.c.Write(ctx, http.MethodDelete, tLocations, eqID("post_id", id), nil, nil, "")
}

// LinkCategories matches labels against the canonical category table by
// uppercased label or slug. Labels that match nothing are dropped, not errors:
// the admin UI sends free text.
func (r *Repo) LinkCategories(ctx context.Context, id int64, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	cats, err := r.fetchCategories(ctx)
	if err != nil {
		return err
	}
	byLabel := make(map[string]int64, len(cats)*3)
	for _, c := range cats {
		byLabel[strings.ToUpper(c.Slug)] = c.ID
		if c.LabelES != nil {
			byLabel[strings.ToUpper(*c.LabelES)] = c.ID
		}
		if c.LabelEN != nil {
			byLabel[strings.ToUpper(*c.LabelEN)] = c.ID
		}
	}

	seen := make(map[int64]struct{}, len(labels))
	var rows []map[string]any
	for _, label := range labels {
		cid, ok := byLabel[strings.ToUpper(label)]
		if !ok {
			continue
		}
		if _, dup := seen[cid]; dup {
			continue
		}
		seen[cid] = struct{}{}
		rows = append(rows, map[string]any{"post_id": id, "category_id": cid})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.writeRows(ctx, http.MethodPost, tPostCats, nil, rows, nil, "")
}

func (r *Repo) UnlinkCategories(ctx context.Context, id int64) error {
	return r.c.Write(ctx, http.MethodDelete, tPostCats, eqID("post_id", id), nil, nil, "")
}

// writeRows sends rows, degrading on schema drift: when the remote rejects a
// column the payload is stripped of it and resent, and the capability map
// remembers so later writes skip the probe.
func (r *Repo) writeRows(ctx context.Context, method, table string, q url.Values, rows []map[string]any, out any, prefer string) error {
	var lastErr error
	for attempt := 0; attempt < maxDriftRetries; attempt++ {
		stripped := r.cols.strip(table, rows)
		var body any = stripped
		if method == http.MethodPatch {
			body = stripped[0]
		}
		err := r.c.Write(ctx, method, table, q, body, out, prefer)
		if err == nil {
			return nil
		}
		if col, ok := missingColumn(err); ok {
			r.cols.markMissing(table, col)
			observability.ObserveDriftRetry(table)
			log.Warn().Str("table", table).Str("column", col).Msg("remote schema missing column; retrying without it")
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func eqID(col string, id int64) url.Values {
	return url.Values{col: {fmt.Sprintf("eq.%d", id)}}
}

/********** read path **********/

func (r *Repo) GetPost(ctx context.Context, slug string) (domain.Post, error) {
	if !r.c.Configured() {
		return domain.Post{}, domain.ErrNotFound
	}
	var rows []postRow
	q := url.Values{"select": {postSelect}, "slug": {"eq." + slug}}
	if err := r.c.Get(ctx, tPosts, q, &rows); err != nil {
		return domain.Post{}, err
	}
	if len(rows) == 0 {
		return domain.Post{}, domain.ErrNotFound
	}
	return mapPostRow(rows[0]), nil
}

// ListPosts pushes the q/category filters into the datastore query instead of
// scanning the whole table in memory: free text becomes an or=(...ilike...)
// disjunction over base columns plus a translation-match id set, and category
// filters resolve to a post-id set via the link table.
func (r *Repo) ListPosts(ctx context.Context, pq domain.PostsQuery) ([]domain.Post, error) {
	if !r.c.Configured() {
		return []domain.Post{}, nil
	}

	q := url.Values{"select": {postSelect}, "order": {"id.asc"}}

	if pq.Category != "" || pq.CategorySlug != "" {
		ids, err := r.postIDsForCategory(ctx, pq.Category, pq.CategorySlug)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []domain.Post{}, nil
		}
		q.Set("id", "in.("+joinInt64(ids)+")")
	}

	if pq.Q != "" {
		pat := likePattern(pq.Q)
		clauses := []string{
			"slug.ilike." + pat,
			"address.ilike." + pat,
			"website_display.ilike." + pat,
			"instagram_display.ilike." + pat,
		}
		ids, err := r.postIDsForText(ctx, pat)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			clauses = append(clauses, "id.in.("+joinInt64(ids)+")")
		}
		q.Set("or", "("+strings.Join(clauses, ",")+")")
	}

	var rows []postRow
	if err := r.c.Get(ctx, tPosts, q, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapPostRow(row))
	}
	return out, nil
}

// ListCategories returns the distinct display labels (label_es preferred,
// slug as fallback), sorted.
func (r *Repo) ListCategories(ctx context.Context) ([]string, error) {
	if !r.c.Configured() {
		return []string{}, nil
	}
	cats, err := r.fetchCategories(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cats))
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		label := c.Slug
		if c.LabelES != nil && *c.LabelES != "" {
			label = *c.LabelES
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Repo) fetchCategories(ctx context.Context) ([]categoryRow, error) {
	var cats []categoryRow
	q := url.Values{"select": {"id,slug,label_es,label_en"}}
	if err := r.c.Get(ctx, tCategories, q, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// postIDsForCategory resolves a label or slug filter to the linked post ids.
func (r *Repo) postIDsForCategory(ctx context.Context, label, slug string) ([]int64, error) {
	q := url.Values{"select": {"id"}}
	switch {
	case slug != "":
		q.Set("slug", "eq."+strings.ToLower(slug))
	default:
		// ilike without wildcards is a case-insensitive equality match
		pat := quoteOperand(label)
		q.Set("or", fmt.Sprintf("(slug.ilike.%s,label_es.ilike.%s,label_en.ilike.%s)", pat, pat, pat))
	}
	var cats []idRow
	if err := r.c.Get(ctx, tCategories, q, &cats); err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, nil
	}
	cids := make([]int64, 0, len(cats))
	for _, c := range cats {
		cids = append(cids, c.ID)
	}

	var links []postIDRow
	lq := url.Values{"select": {"post_id"}, "category_id": {"in.(" + joinInt64(cids) + ")"}}
	if err := r.c.Get(ctx, tPostCats, lq, &links); err != nil {
		return nil, err
	}
	return uniquePostIDs(links), nil
}

// postIDsForText finds posts whose translations match the pattern on
// name/subtitle.
func (r *Repo) postIDsForText(ctx context.Context, pat string) ([]int64, error) {
	q := url.Values{
		"select": {"post_id"},
		"or":     {fmt.Sprintf("(name.ilike.%s,subtitle.ilike.%s)", pat, pat)},
	}
	var rows []postIDRow
	if err := r.c.Get(ctx, tTranslations, q, &rows); err != nil {
		return nil, err
	}
	return uniquePostIDs(rows), nil
}

func uniquePostIDs(rows []postIDRow) []int64 {
	seen := make(map[int64]struct{}, len(rows))
	var out []int64
	for _, r := range rows {
		if _, dup := seen[r.PostID]; dup {
			continue
		}
		seen[r.PostID] = struct{}{}
		out = append(out, r.PostID)
	}
	return out
}

func joinInt64(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// quoteOperand renders s as a double-quoted PostgREST operand, which keeps
// commas and parentheses literal inside an or=() tree. Quote and backslash
// characters have no representation inside the quoted form, so they are
// dropped.
func quoteOperand(s string) string {
	return `"` + strings.NewReplacer(`"`, "", `\`, "").Replace(s) + `"`
}

// likePattern builds a quoted case-insensitive substring pattern from user
// input, escaping LIKE wildcards so they match literally.
func likePattern(s string) string {
	s = strings.NewReplacer(`"`, "", `\`, "", `%`, `\%`, `_`, `\_`, `*`, `\*`).Replace(s)
	return `"*` + s + `*"`
}
