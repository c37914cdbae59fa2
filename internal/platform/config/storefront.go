package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const defaultReloadDebounce = 150 * time.Millisecond

// StorefrontSettings is the merchandising file: promo codes and curated home categories.
type StorefrontSettings struct {
	Promotions     []PromotionSetting `yaml:"promotions"`
	HomeCategories []CategorySetting  `yaml:"homeCategories"`
}

// PromotionSetting is one fixed-amount promo code.
type PromotionSetting struct {
	Code   string  `yaml:"code"`
	Amount float64 `yaml:"amount"`
	Label  string  `yaml:"label"`
}

// CategorySetting is one curated home category tile.
type CategorySetting struct {
	Name  string `yaml:"name"`
	Slug  string `yaml:"slug"`
	Image string `yaml:"image"`
}

// ParseStorefrontSettings decodes and validates a storefront YAML document. Unknown keys are rejected.
func ParseStorefrontSettings(r io.Reader) (StorefrontSettings, error) {
	var settings StorefrontSettings
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return StorefrontSettings{}, fmt.Errorf("storefront config: decode: %w", err)
	}
	return normalizeStorefrontSettings(settings)
}

// LoadStorefrontFile reads path. An empty path yields empty settings.
func LoadStorefrontFile(path string) (StorefrontSettings, error) {
	if strings.TrimSpace(path) == "" {
		return StorefrontSettings{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return StorefrontSettings{}, fmt.Errorf("storefront config: %w", err)
	}
	return ParseStorefrontSettings(bytes.NewReader(raw))
}

func normalizeStorefrontSettings(in StorefrontSettings) (StorefrontSettings, error) {
	var (
		out     StorefrontSettings
		invalid []string
		seen    = make(map[string]struct{}, len(in.Promotions))
	)
	for i, promo := range in.Promotions {
		code := strings.ToUpper(strings.TrimSpace(promo.Code))
		switch {
		case code == "":
			invalid = append(invalid, fmt.Sprintf("promotions[%d].code", i))
			continue
		case promo.Amount <= 0:
			invalid = append(invalid, fmt.Sprintf("promotions[%d].amount", i))
			continue
		}
		if _, dup := seen[code]; dup {
			invalid = append(invalid, fmt.Sprintf("promotions[%d].code", i))
			continue
		}
		seen[code] = struct{}{}
		out.Promotions = append(out.Promotions, PromotionSetting{
			Code:   code,
			Amount: promo.Amount,
			Label:  strings.TrimSpace(promo.Label),
		})
	}
	for i, category := range in.HomeCategories {
		slug := strings.ToLower(strings.TrimSpace(category.Slug))
		if slug == "" {
			invalid = append(invalid, fmt.Sprintf("homeCategories[%d].slug", i))
			continue
		}
		out.HomeCategories = append(out.HomeCategories, CategorySetting{
			Name:  strings.TrimSpace(category.Name),
			Slug:  slug,
			Image: strings.TrimSpace(category.Image),
		})
	}
	if len(invalid) > 0 {
		return StorefrontSettings{}, &ValidationError{fields: invalid}
	}
	return out, nil
}

// StorefrontSource holds the current storefront settings and can follow file changes.
type StorefrontSource struct {
	path     string
	debounce time.Duration
	onReload func(StorefrontSettings, error)

	mu      sync.RWMutex
	current StorefrontSettings
}

// SourceOption customises a StorefrontSource.
type SourceOption func(*StorefrontSource)

// WithReloadHook is called after every reload attempt. A failed reload keeps the previous settings.
func WithReloadHook(fn func(StorefrontSettings, error)) SourceOption {
	return func(s *StorefrontSource) {
		s.onReload = fn
	}
}

// WithReloadDebounce coalesces bursts of file events.
func WithReloadDebounce(d time.Duration) SourceOption {
	return func(s *StorefrontSource) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// NewStorefrontSource loads path once. An empty path gives a source that never changes.
func NewStorefrontSource(path string, opts ...SourceOption) (*StorefrontSource, error) {
	s := &StorefrontSource{path: strings.TrimSpace(path), debounce: defaultReloadDebounce}
	for _, opt := range opts {
		opt(s)
	}
	settings, err := LoadStorefrontFile(s.path)
	if err != nil {
		return nil, err
	}
	s.current = settings
	return s, nil
}

// Current returns the last successfully loaded settings.
func (s *StorefrontSource) Current() StorefrontSettings {
	if s == nil {
		return StorefrontSettings{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the file now.
func (s *StorefrontSource) Reload() error {
	settings, err := LoadStorefrontFile(s.path)
	if err == nil {
		s.mu.Lock()
		s.current = settings
		s.mu.Unlock()
	}
	if s.onReload != nil {
		s.onReload(settings, err)
	}
	return err
}

// Watch reloads on changes to the file until ctx is cancelled. The parent directory is watched so
// editors that replace the file by rename are followed.
func (s *StorefrontSource) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storefront config: watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("storefront config: watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(s.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if s.onReload != nil {
				s.onReload(s.Current(), err)
			}
		case <-timer.C:
			_ = s.Reload()
		}
	}
}
