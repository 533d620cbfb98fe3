package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"marketplace-service/internal/repository/storetest"
)

type memoryStoreSuite struct {
	storetest.Suite
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(memoryStoreSuite))
}

func (s *memoryStoreSuite) SetupTest() {
	s.Store = NewStore()
}
