package registry

import (
	"time"

	"devconnect/internal/developer/models"
)

// SeedDevelopers returns the sample records every new workspace starts with.
func SeedDevelopers() []models.Developer {
	return []models.Developer{
		{
			ID:          "1",
			Name:        "Haripriya Tripathi",
			Role:        models.RoleFrontend,
			TechStack:   []string{"React"},
			Experience:  2,
			Description: "Frontend developer specializing in React and modern JavaScript frameworks.",
			JoiningDate: models.NewDate(2025, time.December, 1),
			Email:       "haripriya@example.com",
		},
		{
			ID:          "2",
			Name:        "Krishna Pratap Singh",
			Role:        models.RoleFrontend,
			TechStack:   []string{"AI Engineer"},
			Experience:  9,
			Description: "Experienced developer with expertise in AI and frontend technologies.",
			JoiningDate: models.NewDate(2025, time.December, 1),
			Email:       "krishna@example.com",
		},
	}
}

// NewSeeded returns a registry holding the given records in order.
func NewSeeded(ids IDGenerator, seed []models.Developer) (*Registry, error) {
	r := New(ids)
	for _, dev := range seed {
		if err := r.insert(dev); err != nil {
			return nil, err
		}
	}
	return r, nil
}
