package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"devconnect/pkg/platform/sentinel"
)

type InMemoryTRLSuite struct {
	suite.Suite
	trl *InMemoryTRL
	ctx context.Context
}

func TestInMemoryTRLSuite(t *testing.T) {
	suite.Run(t, new(InMemoryTRLSuite))
}

func (s *InMemoryTRLSuite) SetupTest() {
	s.trl = NewInMemoryTRL()
	s.ctx = context.Background()
}

func (s *InMemoryTRLSuite) TestRevoke() {
	s.Run("revoked token is reported", func() {
		s.Require().NoError(s.trl.RevokeToken(s.ctx, "jti-1", time.Minute))
		revoked, err := s.trl.IsRevoked(s.ctx, "jti-1")
		s.Require().NoError(err)
		s.True(revoked)
	})

	s.Run("unknown token is not revoked", func() {
		revoked, err := s.trl.IsRevoked(s.ctx, "jti-unknown")
		s.Require().NoError(err)
		s.False(revoked)
	})

	s.Run("entry expires with the token", func() {
		s.Require().NoError(s.trl.RevokeToken(s.ctx, "jti-short", 10*time.Millisecond))
		s.Eventually(func() bool {
			revoked, _ := s.trl.IsRevoked(s.ctx, "jti-short")
			return !revoked
		}, time.Second, 5*time.Millisecond)
	})

	s.Run("non-positive ttl rejected", func() {
		err := s.trl.RevokeToken(s.ctx, "jti-2", 0)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})
}
