package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vulnradar/vulnradar/internal/errors"
	"github.com/vulnradar/vulnradar/internal/types"
)

// VendorSeed is the vendors.yml file: the vendor catalog the feed
// downloader walks and users subscribe to. The file is upserted into the
// store at startup so the catalog survives redeployments.
type VendorSeed struct {
	Vendors []VendorEntry `yaml:"vendors"`
}

// VendorEntry is one catalog row in vendors.yml.
type VendorEntry struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Keyword     string `yaml:"keyword"`
}

// ParseVendorSeed reads and parses a vendors.yml catalog file. A missing
// file yields an empty catalog so a fresh checkout boots without one.
func ParseVendorSeed(path string) (*VendorSeed, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &VendorSeed{}, nil
	}
	if err != nil {
		return nil, errors.NewTransientf("failed to read vendor seed file: %w", err)
	}

	var seed VendorSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.NewPermanentf("failed to parse vendor seed YAML: %w", err)
	}

	for i := range seed.Vendors {
		if seed.Vendors[i].Name == "" {
			return nil, errors.NewPermanentf("vendor entry %d has no name", i)
		}
		if seed.Vendors[i].Keyword == "" {
			// The feed keyword defaults to the vendor name.
			seed.Vendors[i].Keyword = seed.Vendors[i].Name
		}
		if seed.Vendors[i].Type == "" {
			seed.Vendors[i].Type = string(types.VendorSoftware)
		}
	}

	return &seed, nil
}

// ToVendors converts the seed entries into store vendors.
func (s *VendorSeed) ToVendors() []types.Vendor {
	vendors := make([]types.Vendor, 0, len(s.Vendors))
	for _, e := range s.Vendors {
		vendors = append(vendors, types.Vendor{
			Name:        e.Name,
			Type:        types.VendorType(e.Type),
			Description: e.Description,
			FeedKeyword: e.Keyword,
		})
	}
	return vendors
}
