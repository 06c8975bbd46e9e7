package domain

// Reward is one catalog entry. ID is the catalog position, starting at 1.
type Reward struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Cost        int64  `json:"cost" yaml:"cost"`
	Stock       int64  `json:"stock" yaml:"stock"`
	IsActive    bool   `json:"is_active" yaml:"is_active"`
}
