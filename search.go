package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"imgsx/engines"
)

var (
	errEmptyReference = errors.New("no image reference given")
	errLocalFile      = errors.New("local files are not supported, pass an image URL")
)

// validateReference checks that ref is something the engines can look up.
// References are passed through verbatim; only local paths are rejected
// since nothing can upload them.
func validateReference(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return errEmptyReference
	}

	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		return nil
	}

	if _, err := os.Stat(ref); err == nil {
		return fmt.Errorf("%s: %w", ref, errLocalFile)
	}
	if strings.HasPrefix(ref, "file:") {
		return fmt.Errorf("%s: %w", ref, errLocalFile)
	}
	return nil
}

// performSearch runs ref through every configured engine.
func performSearch(ctx context.Context, ref string, config *Config) ([]engines.Outcome, error) {
	if err := validateReference(ref); err != nil {
		return nil, err
	}

	cfg, err := config.engineConfig()
	if err != nil {
		return nil, err
	}

	d, err := engines.New(cfg)
	if err != nil {
		return nil, err
	}

	return d.Run(ctx, ref)
}

// filterPriority drops priority engines that are not enabled. It is applied
// when only the engine list was overridden, so the default priority does not
// make a narrowed search invalid.
func filterPriority(priority, enabled []string) ([]string, error) {
	tags, err := engines.ParseTagList(enabled)
	if err != nil {
		return nil, err
	}
	mask := engines.Mask(tags)

	var kept []string
	for _, name := range priority {
		tag, err := engines.ParseTag(name)
		if err != nil {
			return nil, err
		}
		if mask.Has(tag) {
			kept = append(kept, name)
		}
	}
	return kept, nil
}
