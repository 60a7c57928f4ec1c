package crops

import (
	"fmt"
	"io"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxProfileFileSize = 1024 * 1024

// LoadTable merges crop ranges from a YAML file over the built-in profiles.
//
// Expected layout:
//
//	fallback: corn
//	crops:
//	  sorghum:
//	    n: {min: 90, max: 140}
//	    moisture: {min: 35, max: 55}
//
// A crop already present in the defaults keeps any nutrient the file omits.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open crop profiles: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxProfileFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read crop profiles: %w", err)
	}
	if len(content) > maxProfileFileSize {
		return nil, fmt.Errorf("crop profiles file %s exceeds %d bytes", path, maxProfileFileSize)
	}
	return ParseTable(content)
}

func ParseTable(content []byte) (*Table, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse crop profiles: %w", err)
	}

	var raw map[string]map[string]Range
	if err := k.Unmarshal("crops", &raw); err != nil {
		return nil, fmt.Errorf("decode crop profiles: %w", err)
	}

	merged := make(map[string]Profile)
	for _, profile := range DefaultProfiles() {
		merged[profile.Crop] = profile
	}
	for crop, ranges := range raw {
		key := NormalizeCrop(crop)
		profile, ok := merged[key]
		if !ok {
			profile = Profile{Crop: key, Ranges: make(map[Nutrient]Range, len(ranges))}
		}
		for nutrient, r := range ranges {
			profile.Ranges[Nutrient(NormalizeCrop(nutrient))] = r
		}
		merged[key] = profile
	}

	profiles := make([]Profile, 0, len(merged))
	for _, profile := range merged {
		profiles = append(profiles, profile)
	}

	fallback := k.String("fallback")
	if fallback == "" {
		fallback = DefaultCrop
	}
	return NewTable(profiles, fallback)
}
