package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mozillazg/go-unidecode"

	"presetwave/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrPresetNotFound     = errors.New("preset not found")
	ErrNameRequired       = errors.New("preset name is required")
	ErrInvalidCategory    = errors.New("invalid preset category")
	ErrSlugExists         = errors.New("a preset with this name already exists")
)

// SortOrder selects how catalog listings are ordered.
type SortOrder string

const (
	SortPopular SortOrder = "popular"
	SortNewest  SortOrder = "newest"
	SortRating  SortOrder = "rating"
	SortName    SortOrder = "name"
)

// Filter narrows a catalog listing.
type Filter struct {
	Search   string
	Category models.PresetCategory
	Tag      string
	Sort     SortOrder
	Offset   int
	Limit    int
}

// Service manages the preset catalog.
type Service struct {
	mu      sync.RWMutex
	path    string
	presets map[string]models.Preset
}

// NewService creates a presets service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create presets dir: %w", err)
	}

	svc := &Service{
		path:    filepath.Join(storageDir, "presets.json"),
		presets: make(map[string]models.Preset),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	if err := svc.ensureSeedCatalog(); err != nil {
		return nil, err
	}

	return svc, nil
}

// List returns catalog entries matching the filter, plus the total match
// count before pagination.
func (s *Service) List(f Filter) ([]models.Preset, int) {
	s.mu.RLock()
	matched := make([]models.Preset, 0, len(s.presets))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, p := range s.presets {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Tag != "" && !hasTag(p, f.Tag) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.RUnlock()

	sortPresets(matched, f.Sort)
	total := len(matched)

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []models.Preset{}, total
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}

	return matched, total
}

// Featured returns the presets highlighted on the storefront landing page.
func (s *Service) Featured() []models.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	featured := make([]models.Preset, 0)
	for _, p := range s.presets {
		if p.Featured {
			featured = append(featured, p)
		}
	}
	sortPresets(featured, SortPopular)
	return featured
}

// Categories returns each category with its preset count.
func (s *Service) Categories() map[models.PresetCategory]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.PresetCategory]int)
	for _, p := range s.presets {
		counts[p.Category]++
	}
	return counts
}

// Get returns a preset by ID or slug.
func (s *Service) Get(idOrSlug string) (models.Preset, bool) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return models.Preset{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.presets[idOrSlug]; ok {
		return p, true
	}
	for _, p := range s.presets {
		if p.Slug == idOrSlug {
			return p, true
		}
	}
	return models.Preset{}, false
}

// Input carries the editable fields for create/update operations.
type Input struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Category    models.PresetCategory `json:"category"`
	PriceCents  int                   `json:"priceCents"`
	Tags        []string              `json:"tags"`
	ImageURL    string                `json:"imageUrl"`
	Featured    bool                  `json:"featured"`
}

// Create adds a preset to the catalog.
func (s *Service) Create(in Input) (models.Preset, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.Preset{}, ErrNameRequired
	}
	if in.Category != models.CategoryPremium && in.Category != models.CategoryFree {
		return models.Preset{}, ErrInvalidCategory
	}

	slug := Slugify(in.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.presets {
		if p.Slug == slug {
			return models.Preset{}, ErrSlugExists
		}
	}

	now := time.Now().UTC()
	preset := models.Preset{
		ID:          uuid.NewString(),
		Slug:        slug,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		PriceCents:  in.PriceCents,
		Tags:        normalizeTags(in.Tags),
		ImageURL:    in.ImageURL,
		Featured:    in.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if preset.Category == models.CategoryFree {
		preset.PriceCents = 0
	}

	s.presets[preset.ID] = preset

	if err := s.saveLocked(); err != nil {
		delete(s.presets, preset.ID)
		return models.Preset{}, err
	}

	return preset, nil
}

// Update replaces the editable fields of a preset. Renaming regenerates the
// slug; download counts and rating are untouched.
func (s *Service) Update(id string, in Input) (models.Preset, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.Preset{}, ErrNameRequired
	}
	if in.Category != models.CategoryPremium && in.Category != models.CategoryFree {
		return models.Preset{}, ErrInvalidCategory
	}

	slug := Slugify(in.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	preset, ok := s.presets[id]
	if !ok {
		return models.Preset{}, ErrPresetNotFound
	}

	for _, p := range s.presets {
		if p.ID != id && p.Slug == slug {
			return models.Preset{}, ErrSlugExists
		}
	}

	preset.Name = in.Name
	preset.Slug = slug
	preset.Description = strings.TrimSpace(in.Description)
	preset.Category = in.Category
	preset.PriceCents = in.PriceCents
	if preset.Category == models.CategoryFree {
		preset.PriceCents = 0
	}
	preset.Tags = normalizeTags(in.Tags)
	preset.ImageURL = in.ImageURL
	preset.Featured = in.Featured
	preset.UpdatedAt = time.Now().UTC()
	s.presets[id] = preset

	if err := s.saveLocked(); err != nil {
		return models.Preset{}, err
	}

	return preset, nil
}

// Delete removes a preset from the catalog.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.presets[id]; !ok {
		return ErrPresetNotFound
	}

	delete(s.presets, id)

	return s.saveLocked()
}

// RecordDownload bumps the download counter for a preset.
func (s *Service) RecordDownload(id string) (models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preset, ok := s.presets[id]
	if !ok {
		return models.Preset{}, ErrPresetNotFound
	}

	preset.Downloads++
	preset.UpdatedAt = time.Now().UTC()
	s.presets[id] = preset

	if err := s.saveLocked(); err != nil {
		return models.Preset{}, err
	}

	return preset, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a preset name into a URL-safe slug. Non-ASCII names are
// transliterated first so international preset names still get usable slugs.
func Slugify(name string) string {
	slug := strings.ToLower(unidecode.Unidecode(name))
	slug = slugStrip.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func hasTag(p models.Preset, tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func sortPresets(list []models.Preset, order SortOrder) {
	switch order {
	case SortNewest:
		sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	case SortRating:
		sort.Slice(list, func(i, j int) bool { return list[i].Rating > list[j].Rating })
	case SortName:
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	default: // popular
		sort.Slice(list, func(i, j int) bool { return list[i].Downloads > list[j].Downloads })
	}
}

// seedPreset describes a catalog entry created on first run. The set mirrors
// the storefront's demo catalog.
type seedPreset struct {
	name        string
	description string
	category    models.PresetCategory
	priceCents  int
	rating      float64
	downloads   int64
	tags        []string
	featured    bool
}

var demoCatalog = []seedPreset{
	{"Summer Vibes", "Perfect for beach and outdoor summer photos", models.CategoryPremium, 1999, 4.8, 1243, []string{"Summer", "Outdoor", "Vibrant"}, true},
	{"Moody Portrait", "Create dramatic and moody portrait effects", models.CategoryPremium, 2499, 4.9, 2156, []string{"Portrait", "Moody", "Dark"}, true},
	{"Vintage Film", "Classic film look with authentic grain and colors", models.CategoryPremium, 1499, 4.7, 987, []string{"Vintage", "Film", "Retro"}, true},
	{"Clean Minimal", "Clean and minimal look for product photography", models.CategoryFree, 0, 4.5, 3421, []string{"Minimal", "Clean", "Product"}, true},
	{"Urban Street", "Gritty urban tones for street photography", models.CategoryFree, 0, 4.6, 645, []string{"Urban", "Street", "Gritty"}, false},
	{"Golden Hour", "Warm golden tones for sunset and sunrise shots", models.CategoryPremium, 1799, 4.8, 1532, []string{"Warm", "Sunset", "Outdoor"}, false},
	{"Arctic Blue", "Cool blue tones for winter landscapes", models.CategoryFree, 0, 4.4, 876, []string{"Winter", "Cool", "Landscape"}, false},
	{"Cinematic Teal", "Teal and orange blockbuster color grade", models.CategoryPremium, 2299, 4.9, 1921, []string{"Cinematic", "Teal", "Orange"}, false},
}

func (s *Service) ensureSeedCatalog() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.presets) > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, seed := range demoCatalog {
		preset := models.Preset{
			ID:          uuid.NewString(),
			Slug:        Slugify(seed.name),
			Name:        seed.name,
			Description: seed.description,
			Category:    seed.category,
			PriceCents:  seed.priceCents,
			Rating:      seed.rating,
			Downloads:   seed.downloads,
			Tags:        seed.tags,
			ImageURL:    "/static/presets/" + Slugify(seed.name) + ".jpg",
			Featured:    seed.featured,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.presets[preset.ID] = preset
	}

	return s.saveLocked()
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open presets file: %w", err)
	}
	defer file.Close()

	var stored []models.Preset
	dec := json.NewDecoder(file)
	if err := dec.Decode(&stored); err != nil {
		return fmt.Errorf("decode presets: %w", err)
	}

	s.presets = make(map[string]models.Preset, len(stored))
	for _, p := range stored {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		s.presets[p.ID] = p
	}

	return nil
}

func (s *Service) saveLocked() error {
	stored := make([]models.Preset, 0, len(s.presets))
	for _, p := range s.presets {
		stored = append(stored, p)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].CreatedAt.Before(stored[j].CreatedAt) })

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create presets temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stored); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode presets: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync presets: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close presets temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace presets file: %w", err)
	}

	return nil
}
