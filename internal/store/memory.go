package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/serroba/ringtones/internal/catalog"
)

// CatalogMemoryStore is an in-memory implementation of catalog.Repository.
type CatalogMemoryStore struct {
	mu           sync.RWMutex
	nextID       int64
	ringtones    map[int64]*catalog.Ringtone
	numericIDs   map[string]int64 // numeric id -> id
	ringtoneTags map[int64][]int64
	categories   map[int64]*catalog.Category
	tags         map[int64]*catalog.Tag
	placements   map[string]*catalog.Placement // slug -> placement
	ads          map[int64]*catalog.Advertisement
	downloads    []catalog.DownloadLog
	settings     map[string]string
	now          func() time.Time
}

// NewCatalogMemoryStore creates an empty in-memory catalog.
func NewCatalogMemoryStore() *CatalogMemoryStore {
	return &CatalogMemoryStore{
		ringtones:    make(map[int64]*catalog.Ringtone),
		numericIDs:   make(map[string]int64),
		ringtoneTags: make(map[int64][]int64),
		categories:   make(map[int64]*catalog.Category),
		tags:         make(map[int64]*catalog.Tag),
		placements:   make(map[string]*catalog.Placement),
		ads:          make(map[int64]*catalog.Advertisement),
		settings:     make(map[string]string),
		now:          time.Now,
	}
}

func (m *CatalogMemoryStore) GetRingtone(_ context.Context, ref string) (*catalog.Ringtone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.lookup(ref)
	if r == nil || !r.Active {
		return nil, catalog.ErrNotFound
	}

	return m.hydrate(r), nil
}

func (m *CatalogMemoryStore) Search(_ context.Context, q catalog.SearchQuery) (*catalog.SearchPage, error) {
	q = q.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []catalog.Ringtone

	for _, r := range m.ringtones {
		if !r.Active && !q.IncludeInactive {
			continue
		}

		h := m.hydrate(r)
		if m.matches(h, q) {
			matches = append(matches, *h)
		}
	}

	slices.SortFunc(matches, ringtoneOrder(q.Sort))

	total := int64(len(matches))
	start := min(q.Offset(), len(matches))
	end := min(start+q.Limit, len(matches))

	return catalog.NewSearchPage(q, matches[start:end], total), nil
}

func (m *CatalogMemoryStore) Autocomplete(_ context.Context, q string, limit int) ([]catalog.Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(q)

	var hits []*catalog.Ringtone

	for _, r := range m.ringtones {
		if !r.Active {
			continue
		}

		if strings.Contains(strings.ToLower(r.Name), needle) || strings.HasPrefix(r.NumericID, q) {
			hits = append(hits, r)
		}
	}

	slices.SortFunc(hits, func(a, b *catalog.Ringtone) int {
		if c := cmp.Compare(b.DownloadCount, a.DownloadCount); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]catalog.Suggestion, 0, len(hits))
	for _, r := range hits {
		out = append(out, catalog.Suggestion{
			ID:           r.ID,
			NumericID:    r.NumericID,
			Name:         r.Name,
			CategoryName: m.categoryName(r.CategoryID),
		})
	}

	return out, nil
}

func (m *CatalogMemoryStore) CreateRingtone(_ context.Context, r *catalog.Ringtone, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.numericIDs[r.NumericID]; ok {
		return catalog.ErrDuplicateNumericID
	}

	if err := m.checkRefs(r.CategoryID, tagIDs); err != nil {
		return err
	}

	m.nextID++
	r.ID = m.nextID

	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.now().UTC()
		r.UpdatedAt = r.CreatedAt
	}

	stored := *r
	stored.Tags = nil
	m.ringtones[r.ID] = &stored
	m.numericIDs[r.NumericID] = r.ID
	m.ringtoneTags[r.ID] = slices.Clone(tagIDs)

	return nil
}

func (m *CatalogMemoryStore) DeleteRingtone(_ context.Context, id int64) (*catalog.Ringtone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.ringtones[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}

	deleted := m.hydrate(r)

	delete(m.ringtones, id)
	delete(m.numericIDs, r.NumericID)
	delete(m.ringtoneTags, id)

	return deleted, nil
}

func (m *CatalogMemoryStore) FindRingtone(_ context.Context, id int64) (*catalog.Ringtone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.ringtones[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}

	return m.hydrate(r), nil
}

func (m *CatalogMemoryStore) UpdateRingtone(_ context.Context, r *catalog.Ringtone, tagIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.ringtones[r.ID]
	if !ok {
		return catalog.ErrNotFound
	}

	if err := m.checkRefs(r.CategoryID, tagIDs); err != nil {
		return err
	}

	stored.Name = r.Name
	stored.Slug = r.Slug
	stored.Description = r.Description
	stored.FileKey = r.FileKey
	stored.FileSize = r.FileSize
	stored.ThumbnailKey = r.ThumbnailKey
	stored.CategoryID = r.CategoryID
	stored.Active = r.Active
	stored.UpdatedAt = r.UpdatedAt
	m.ringtoneTags[r.ID] = slices.Clone(tagIDs)

	return nil
}

func (m *CatalogMemoryStore) ListCategories(_ context.Context) ([]catalog.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[int64]int64)

	for _, r := range m.ringtones {
		if r.Active && r.CategoryID != nil {
			counts[*r.CategoryID]++
		}
	}

	out := make([]catalog.Category, 0, len(m.categories))
	for _, c := range m.categories {
		cat := *c
		cat.RingtoneCount = counts[c.ID]
		out = append(out, cat)
	}

	slices.SortFunc(out, func(a, b catalog.Category) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})

	return out, nil
}

func (m *CatalogMemoryStore) ListTags(_ context.Context) ([]catalog.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[int64]int64)

	for _, ids := range m.ringtoneTags {
		for _, id := range ids {
			counts[id]++
		}
	}

	out := make([]catalog.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		tag := *t
		tag.RingtoneCount = counts[t.ID]
		out = append(out, tag)
	}

	slices.SortFunc(out, func(a, b catalog.Tag) int { return cmp.Compare(a.Name, b.Name) })

	return out, nil
}

func (m *CatalogMemoryStore) UpsertCategory(_ context.Context, c *catalog.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if existing.Slug == c.Slug {
			c.ID = existing.ID

			return nil
		}
	}

	m.nextID++
	c.ID = m.nextID
	stored := *c
	m.categories[c.ID] = &stored

	return nil
}

func (m *CatalogMemoryStore) UpsertTag(_ context.Context, t *catalog.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tags {
		if existing.Slug == t.Slug {
			t.ID = existing.ID

			return nil
		}
	}

	m.nextID++
	t.ID = m.nextID
	stored := *t
	m.tags[t.ID] = &stored

	return nil
}

func (m *CatalogMemoryStore) CreateTag(_ context.Context, t *catalog.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.tags {
		if existing.Slug == t.Slug {
			return catalog.ErrDuplicateSlug
		}
	}

	m.nextID++
	t.ID = m.nextID
	stored := *t
	m.tags[t.ID] = &stored

	return nil
}

func (m *CatalogMemoryStore) DeleteTag(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tags[id]; !ok {
		return catalog.ErrNotFound
	}

	delete(m.tags, id)

	for ringtoneID, ids := range m.ringtoneTags {
		m.ringtoneTags[ringtoneID] = slices.DeleteFunc(ids, func(tagID int64) bool { return tagID == id })
	}

	return nil
}

func (m *CatalogMemoryStore) UpsertPlacement(_ context.Context, p *catalog.Placement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.placements[p.Slug]; ok {
		p.ID = existing.ID

		return nil
	}

	m.nextID++
	p.ID = m.nextID
	stored := *p
	m.placements[p.Slug] = &stored

	return nil
}

func (m *CatalogMemoryStore) ListPlacements(_ context.Context) ([]catalog.Placement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.Placement, 0, len(m.placements))
	for _, p := range m.placements {
		out = append(out, *p)
	}

	slices.SortFunc(out, func(a, b catalog.Placement) int { return cmp.Compare(a.ID, b.ID) })

	return out, nil
}

func (m *CatalogMemoryStore) CreateAdvertisement(_ context.Context, ad *catalog.Advertisement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.placements[ad.PlacementSlug]; !ok {
		return fmt.Errorf("placement %q: %w", ad.PlacementSlug, catalog.ErrNotFound)
	}

	m.nextID++
	ad.ID = m.nextID

	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = m.now().UTC()
	}

	stored := *ad
	m.ads[ad.ID] = &stored

	return nil
}

func (m *CatalogMemoryStore) ListAdvertisements(_ context.Context) ([]catalog.Advertisement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.Advertisement, 0, len(m.ads))
	for _, ad := range m.ads {
		out = append(out, *ad)
	}

	slices.SortFunc(out, func(a, b catalog.Advertisement) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})

	return out, nil
}

func (m *CatalogMemoryStore) GetAdvertisement(_ context.Context, id int64) (*catalog.Advertisement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ad, ok := m.ads[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}

	out := *ad

	return &out, nil
}

// UpdateAdvertisement keeps the stored impression count and creation time.
func (m *CatalogMemoryStore) UpdateAdvertisement(_ context.Context, ad *catalog.Advertisement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.ads[ad.ID]
	if !ok {
		return catalog.ErrNotFound
	}

	if _, ok := m.placements[ad.PlacementSlug]; !ok {
		return fmt.Errorf("placement %q: %w", ad.PlacementSlug, catalog.ErrNotFound)
	}

	stored.Name = ad.Name
	stored.Code = ad.Code
	stored.PlacementSlug = ad.PlacementSlug
	stored.Active = ad.Active

	ad.Impressions = stored.Impressions
	ad.CreatedAt = stored.CreatedAt

	return nil
}

func (m *CatalogMemoryStore) DeleteAdvertisement(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ads[id]; !ok {
		return catalog.ErrNotFound
	}

	delete(m.ads, id)

	return nil
}

func (m *CatalogMemoryStore) ActiveAd(_ context.Context, placement string) (*catalog.Advertisement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var newest *catalog.Advertisement

	for _, ad := range m.ads {
		if !ad.Active || ad.PlacementSlug != placement {
			continue
		}

		if newest == nil || ad.CreatedAt.After(newest.CreatedAt) ||
			(ad.CreatedAt.Equal(newest.CreatedAt) && ad.ID > newest.ID) {
			newest = ad
		}
	}

	if newest == nil {
		return nil, catalog.ErrNotFound
	}

	out := *newest

	return &out, nil
}

func (m *CatalogMemoryStore) RecordImpression(_ context.Context, adID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ad, ok := m.ads[adID]
	if !ok {
		return catalog.ErrNotFound
	}

	ad.Impressions++

	return nil
}

func (m *CatalogMemoryStore) RecordDownload(_ context.Context, log catalog.DownloadLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.ringtones[log.RingtoneID]
	if !ok {
		return catalog.ErrNotFound
	}

	if log.CreatedAt.IsZero() {
		log.CreatedAt = m.now().UTC()
	}

	r.DownloadCount++
	m.downloads = append(m.downloads, log)

	return nil
}

func (m *CatalogMemoryStore) CountDownloads(_ context.Context, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64

	for _, d := range m.downloads {
		if !d.CreatedAt.Before(since) {
			n++
		}
	}

	return n, nil
}

func (m *CatalogMemoryStore) DailyDownloads(_ context.Context, since time.Time) ([]catalog.DailyDownloads, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)

	for _, d := range m.downloads {
		if !d.CreatedAt.Before(since) {
			counts[d.CreatedAt.UTC().Format(time.DateOnly)]++
		}
	}

	out := make([]catalog.DailyDownloads, 0, len(counts))
	for date, n := range counts {
		out = append(out, catalog.DailyDownloads{Date: date, Downloads: n})
	}

	slices.SortFunc(out, func(a, b catalog.DailyDownloads) int { return cmp.Compare(a.Date, b.Date) })

	return out, nil
}

func (m *CatalogMemoryStore) Settings(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.settings), nil
}

func (m *CatalogMemoryStore) SaveSettings(_ context.Context, settings map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	maps.Copy(m.settings, settings)

	return nil
}

// Downloads returns a copy of the recorded download logs.
func (m *CatalogMemoryStore) Downloads() []catalog.DownloadLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.downloads)
}

// checkRefs must be called with mu held.
func (m *CatalogMemoryStore) checkRefs(categoryID *int64, tagIDs []int64) error {
	if categoryID != nil {
		if _, ok := m.categories[*categoryID]; !ok {
			return fmt.Errorf("category %d: %w", *categoryID, catalog.ErrNotFound)
		}
	}

	for _, id := range tagIDs {
		if _, ok := m.tags[id]; !ok {
			return fmt.Errorf("tag %d: %w", id, catalog.ErrNotFound)
		}
	}

	return nil
}

// lookup must be called with mu held.
func (m *CatalogMemoryStore) lookup(ref string) *catalog.Ringtone {
	if id, ok := m.numericIDs[ref]; ok {
		return m.ringtones[id]
	}

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil
	}

	return m.ringtones[id]
}

// hydrate returns a copy of r with its category and tags filled in.
func (m *CatalogMemoryStore) hydrate(r *catalog.Ringtone) *catalog.Ringtone {
	out := *r
	out.CategoryName, out.CategorySlug = "", ""

	if r.CategoryID != nil {
		if c, ok := m.categories[*r.CategoryID]; ok {
			out.CategoryName = c.Name
			out.CategorySlug = c.Slug
		}
	}

	out.Tags = make([]catalog.Tag, 0, len(m.ringtoneTags[r.ID]))
	for _, id := range m.ringtoneTags[r.ID] {
		if t, ok := m.tags[id]; ok {
			out.Tags = append(out.Tags, *t)
		}
	}

	return &out
}

func (m *CatalogMemoryStore) categoryName(id *int64) string {
	if id == nil {
		return ""
	}

	if c, ok := m.categories[*id]; ok {
		return c.Name
	}

	return ""
}

func (m *CatalogMemoryStore) matches(r *catalog.Ringtone, q catalog.SearchQuery) bool {
	if q.Category != "" && r.CategorySlug != q.Category {
		return false
	}

	if q.Tag != "" && !slices.ContainsFunc(r.Tags, func(t catalog.Tag) bool { return t.Slug == q.Tag }) {
		return false
	}

	if q.Query == "" {
		return true
	}

	if catalog.IsNumericID(q.Query) {
		return r.NumericID == q.Query
	}

	needle := strings.ToLower(q.Query)

	if strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle) {
		return true
	}

	return slices.ContainsFunc(r.Tags, func(t catalog.Tag) bool {
		return strings.Contains(strings.ToLower(t.Name), needle)
	})
}

func ringtoneOrder(s catalog.Sort) func(a, b catalog.Ringtone) int {
	return func(a, b catalog.Ringtone) int {
		var c int

		switch s {
		case catalog.SortPopular:
			c = cmp.Compare(b.DownloadCount, a.DownloadCount)
		case catalog.SortName:
			c = cmp.Compare(a.Name, b.Name)
		case catalog.SortOldest:
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}

		if c != 0 {
			return c
		}

		if s == catalog.SortOldest {
			return cmp.Compare(a.ID, b.ID)
		}

		return cmp.Compare(b.ID, a.ID)
	}
}

var _ catalog.Repository = (*CatalogMemoryStore)(nil)
