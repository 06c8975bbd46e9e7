package ledger

import (
	"blockRewards/domain"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Rewards []catalogEntry `yaml:"rewards"`
}

type catalogEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Cost        int64  `yaml:"cost"`
	Stock       int64  `yaml:"stock"`
	Active      *bool  `yaml:"active"`
}

// LoadCatalogFile reads a demo catalog. Entries get ids in file order and
// default to active.
//
//	rewards:
//	  - name: Free Coffee
//	    description: Any size, any blend
//	    cost: 100
//	    stock: 25
func LoadCatalogFile(path string) ([]domain.Reward, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog(raw)
}

func ParseCatalog(raw []byte) ([]domain.Reward, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: catalog file: %v", domain.ErrValidation, err)
	}

	rewards := make([]domain.Reward, 0, len(file.Rewards))
	for i, e := range file.Rewards {
		if err := validateReward(e.Name, e.Cost, e.Stock); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i+1, err)
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		rewards = append(rewards, domain.Reward{
			ID:          int64(i + 1),
			Name:        e.Name,
			Description: e.Description,
			Cost:        e.Cost,
			Stock:       e.Stock,
			IsActive:    active,
		})
	}

	return rewards, nil
}
