// Package config loads ingestion run settings from json5 or yaml files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	"schooldir/internal/pipeline"
	"schooldir/internal/school"
	"schooldir/internal/sources"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

func unmarshal(ext string, data []byte, out any) error {
	switch strings.ToLower(ext) {
	case "yaml", "yml":
		return yaml.Unmarshal(data, out)
	default:
		return json5.Unmarshal(data, out)
	}
}

// ReadConfig reads name and merges <name>.local.<ext> over it when present.
// Zero values in the local file leave the base value alone, so settings a
// local file must be able to switch off are pointers in T. It returns
// os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	dirname := filepath.Dir(name)
	prefixname, ext := splitExt(filepath.Base(name))

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		if err := unmarshal(ext, defaultFile, &out); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		allNotFound = false
	}

	localFilepath := filepath.Join(dirname, fmt.Sprintf("%s.local.%s", prefixname, ext))
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		if err := unmarshal(ext, localFile, &override); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", localFilepath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localFilepath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Run is the on-disk form of an ingestion run. Durations use
// time.ParseDuration syntax.
type Run struct {
	Source string `json:"source" yaml:"source"`
	// Trust overrides the source's trust level: manual, directory or
	// registry.
	Trust string `json:"trust" yaml:"trust"`
	// Districts limits the source's default units to these districts,
	// matched by name or page slug.
	Districts []string       `json:"districts" yaml:"districts"`
	Units     []sources.Unit `json:"units" yaml:"units"`

	Region  string `json:"region" yaml:"region"`
	Country string `json:"country" yaml:"country"`
	City    string `json:"city" yaml:"city"`

	// Delay may not be below pipeline.MinDelay.
	Delay   string `json:"delay" yaml:"delay"`
	Timeout string `json:"timeout" yaml:"timeout"`
	// Pointers so a local file can turn them back off.
	InsecureSkipVerify *bool `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Force              *bool `json:"force" yaml:"force"`

	Attempts        int     `json:"attempts" yaml:"attempts"`
	RetryWait       string  `json:"retry_wait" yaml:"retry_wait"`
	RejectThreshold float64 `json:"reject_threshold" yaml:"reject_threshold"`
}

// Pipeline validates the settings and converts them to a run config.
func (r Run) Pipeline() (pipeline.Config, error) {
	profile, err := sources.Lookup(r.Source)
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.Config{
		SourceID:           r.Source,
		Region:             r.Region,
		Country:            r.Country,
		City:               r.City,
		Delay:              pipeline.DefaultDelay,
		InsecureSkipVerify: r.InsecureSkipVerify != nil && *r.InsecureSkipVerify,
		Force:              r.Force != nil && *r.Force,
		Attempts:           r.Attempts,
		RejectThreshold:    r.RejectThreshold,
	}

	if r.Trust != "" {
		trust, err := school.ParseTrust(r.Trust)
		if err != nil {
			return pipeline.Config{}, err
		}
		cfg.Trust = &trust
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"delay", r.Delay, &cfg.Delay},
		{"timeout", r.Timeout, &cfg.Timeout},
		{"retry_wait", r.RetryWait, &cfg.RetryWait},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("invalid %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = v
	}
	if cfg.Delay < pipeline.MinDelay {
		return pipeline.Config{}, fmt.Errorf("delay %s is below the minimum of %s", cfg.Delay, pipeline.MinDelay)
	}

	cfg.Units = r.Units
	if len(cfg.Units) == 0 && len(r.Districts) > 0 {
		cfg.Units, err = selectUnits(profile.Units(), r.Districts)
		if err != nil {
			return pipeline.Config{}, err
		}
	}
	return cfg, nil
}

func selectUnits(all []sources.Unit, districts []string) ([]sources.Unit, error) {
	var out []sources.Unit
	for _, want := range districts {
		key := school.NormalizeKey(want)
		found := false
		for _, u := range all {
			if school.NormalizeKey(u.District) == key || strings.HasSuffix(u.URL, "-"+key+".html") {
				out = append(out, u)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown district %q", want)
		}
	}
	return out, nil
}
