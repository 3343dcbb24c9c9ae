package registry

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"devconnect/internal/developer/models"
	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/platform/sentinel"
)

type RegistrySuite struct {
	suite.Suite
	reg *Registry
	ctx context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	reg, err := NewSeeded(NewSequenceGenerator(1), SeedDevelopers())
	s.Require().NoError(err)
	s.reg = reg
	s.ctx = context.Background()
}

func goDraft() models.Draft {
	return models.Draft{
		Name:        "A",
		Role:        models.RoleBackend,
		TechStack:   []string{"Go"},
		Experience:  3,
		JoiningDate: models.NewDate(2024, time.January, 1),
	}
}

func (s *RegistrySuite) TestAdd() {
	s.Run("assigns a fresh id and stores the record unchanged", func() {
		added, err := s.reg.Add(s.ctx, goDraft())
		s.Require().NoError(err)
		s.NotEmpty(added.ID)
		s.NotEqual(id.DeveloperID("1"), added.ID)
		s.NotEqual(id.DeveloperID("2"), added.ID)

		got, err := s.reg.Get(s.ctx, added.ID)
		s.Require().NoError(err)
		s.Equal(added, got)
		s.Equal("A", got.Name)
		s.Equal(models.RoleBackend, got.Role)
		s.Equal([]string{"Go"}, got.TechStack)
		s.Equal(3, got.Experience)
		s.Equal("2024-01-01", got.JoiningDate.String())
	})

	s.Run("appends in insertion order", func() {
		before := s.reg.Len()
		added, err := s.reg.Add(s.ctx, goDraft())
		s.Require().NoError(err)

		all := s.reg.List(s.ctx)
		s.Len(all, before+1)
		s.Equal(added.ID, all[len(all)-1].ID)
	})

	s.Run("sequence generator skips ids already present", func() {
		reg, err := NewSeeded(NewSequenceGenerator(1), SeedDevelopers())
		s.Require().NoError(err)
		added, err := reg.Add(s.ctx, goDraft())
		s.Require().NoError(err)
		s.Equal(id.DeveloperID("3"), added.ID)
	})

	s.Run("invalid draft leaves registry unchanged", func() {
		before := s.reg.List(s.ctx)
		draft := goDraft()
		draft.Name = "  "
		_, err := s.reg.Add(s.ctx, draft)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(before, s.reg.List(s.ctx))
	})

	s.Run("large but well-formed records are stored", func() {
		draft := goDraft()
		draft.Name = strings.Repeat("n", 129)
		draft.Experience = 81
		draft.TechStack = []string{strings.Repeat("g", 51)}
		for i := 0; i < 32; i++ {
			draft.TechStack = append(draft.TechStack, "tag"+strconv.Itoa(i))
		}

		added, err := s.reg.Add(s.ctx, draft)
		s.Require().NoError(err)
		got, err := s.reg.Get(s.ctx, added.ID)
		s.Require().NoError(err)
		s.Equal(81, got.Experience)
		s.Len(got.TechStack, 33)
	})

	s.Run("generator that only collides is reported", func() {
		reg, err := NewSeeded(GeneratorFunc(func() id.DeveloperID { return "1" }), SeedDevelopers())
		s.Require().NoError(err)
		_, err = reg.Add(s.ctx, goDraft())
		s.ErrorIs(err, ErrIDExhausted)
		s.Equal(2, reg.Len())
	})
}

func (s *RegistrySuite) TestGet() {
	s.Run("returns seeded record", func() {
		dev, err := s.reg.Get(s.ctx, "1")
		s.Require().NoError(err)
		s.Equal("Haripriya Tripathi", dev.Name)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.reg.Get(s.ctx, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned record is a copy", func() {
		dev, err := s.reg.Get(s.ctx, "1")
		s.Require().NoError(err)
		dev.TechStack[0] = "Mutated"

		again, err := s.reg.Get(s.ctx, "1")
		s.Require().NoError(err)
		s.Equal([]string{"React"}, again.TechStack)
	})
}

func (s *RegistrySuite) TestUpdate() {
	s.Run("merges the patch", func() {
		exp := 4
		updated, err := s.reg.Update(s.ctx, "1", models.Patch{Experience: &exp})
		s.Require().NoError(err)
		s.Equal(4, updated.Experience)
		s.Equal("Haripriya Tripathi", updated.Name)

		got, err := s.reg.Get(s.ctx, "1")
		s.Require().NoError(err)
		s.Equal(4, got.Experience)
	})

	s.Run("unknown id is not found and nothing changes", func() {
		before := s.reg.List(s.ctx)
		name := "Ghost"
		_, err := s.reg.Update(s.ctx, "missing", models.Patch{Name: &name})
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Equal(before, s.reg.List(s.ctx))
	})

	s.Run("invalid patch leaves record unchanged", func() {
		before, err := s.reg.Get(s.ctx, "2")
		s.Require().NoError(err)
		neg := -1
		_, err = s.reg.Update(s.ctx, "2", models.Patch{Experience: &neg})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		after, err := s.reg.Get(s.ctx, "2")
		s.Require().NoError(err)
		s.Equal(before, after)
	})

	s.Run("preserves position", func() {
		name := "Renamed"
		_, err := s.reg.Update(s.ctx, "1", models.Patch{Name: &name})
		s.Require().NoError(err)
		s.Equal(id.DeveloperID("1"), s.reg.List(s.ctx)[0].ID)
	})
}

func (s *RegistrySuite) TestDelete() {
	s.Run("removes the record", func() {
		before := s.reg.Len()
		s.Require().NoError(s.reg.Delete(s.ctx, "1"))
		s.Equal(before-1, s.reg.Len())

		_, err := s.reg.Get(s.ctx, "1")
		s.ErrorIs(err, sentinel.ErrNotFound)

		// later records stay addressable after the index shifts
		dev, err := s.reg.Get(s.ctx, "2")
		s.Require().NoError(err)
		s.Equal("Krishna Pratap Singh", dev.Name)
	})

	s.Run("unknown id is not found", func() {
		before := s.reg.List(s.ctx)
		s.ErrorIs(s.reg.Delete(s.ctx, "missing"), sentinel.ErrNotFound)
		s.Equal(before, s.reg.List(s.ctx))
	})
}

func TestNewSeededRejectsDuplicateIDs(t *testing.T) {
	seed := SeedDevelopers()
	seed[1].ID = seed[0].ID
	_, err := NewSeeded(nil, seed)
	require.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestRegistryConcurrentAdds(t *testing.T) {
	reg := New(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Add(ctx, goDraft())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 50, reg.Len())
	seen := make(map[id.DeveloperID]struct{})
	for _, dev := range reg.List(ctx) {
		seen[dev.ID] = struct{}{}
	}
	require.Len(t, seen, 50)
}
