package app

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// SliderService backs the homepage/category carousel endpoints. Images come
// from a public directory (one subdirectory per section) unless the manifest
// file overrides a section with an explicit URL list. Reads never fail: any
// error degrades to an empty slice so the public site keeps rendering.
type SliderService struct {
	dir          string
	manifestPath string

	mu sync.Mutex // serializes manifest rewrites
}

func NewSliderService(dir, manifestPath string) *SliderService {
	return &SliderService{dir: dir, manifestPath: manifestPath}
}

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}, ".avif": {},
}

// Images lists a section's carousel, manifest override first.
func (s *SliderService) Images(section string) []string {
	if urls, ok := s.Manifest()[section]; ok && len(urls) > 0 {
		return urls
	}
	return s.listDir(section)
}

// Manifest returns the override map; missing or broken file means no overrides.
func (s *SliderService) Manifest() map[string][]string {
	out := map[string][]string{}
	b, err := os.ReadFile(s.manifestPath)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		log.Warn().Err(err).Str("path", s.manifestPath).Msg("slider manifest unreadable")
		return map[string][]string{}
	}
	return out
}

// SetSection replaces one section's override list and rewrites the manifest
// atomically.
func (s *SliderService) SetSection(section string, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.Manifest()
	if len(urls) == 0 {
		delete(m, section)
	} else {
		m[section] = urls
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.manifestPath), 0o755); err != nil {
		return err
	}
	tmp := s.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.manifestPath)
}

func (s *SliderService) listDir(section string) []string {
	// Section names come from the URL; keep them inside the slider root.
	if section == "" || strings.ContainsAny(section, "/\\") || section == ".." {
		return []string{}
	}
	ents, err := os.ReadDir(filepath.Join(s.dir, section))
	if err != nil {
		return []string{}
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		out = append(out, path.Join("/", filepath.Base(s.dir), section, e.Name()))
	}
	sort.Strings(out)
	if out == nil {
		return []string{}
	}
	return out
}
