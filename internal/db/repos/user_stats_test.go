package repos

func (s *RepositoryTestSuite) TestUserStatsCountersGrowMonotonically() {
	stats, err := s.statsRepo.AddPagesSucceed(s.ctx, "user-1", 24)
	s.Require().NoError(err)
	s.Equal(int64(24), stats.PagesSucceed)
	s.Equal(int64(0), stats.PagesFailed)

	stats, err = s.statsRepo.AddPagesFailed(s.ctx, "user-1", 7)
	s.Require().NoError(err)
	s.Equal(int64(24), stats.PagesSucceed)
	s.Equal(int64(7), stats.PagesFailed)

	stats, err = s.statsRepo.AddPagesSucceed(s.ctx, "user-1", 6)
	s.Require().NoError(err)
	s.Equal(int64(30), stats.PagesSucceed)
}

func (s *RepositoryTestSuite) TestUserStatsGetWithoutRecord() {
	stats, err := s.statsRepo.Get(s.ctx, "fresh-user")
	s.Require().NoError(err)
	s.Equal(int64(0), stats.PagesSucceed)
	s.Equal(int64(0), stats.PagesFailed)
}

func (s *RepositoryTestSuite) TestUserStatsRejectNegativeAmount() {
	_, err := s.statsRepo.AddPagesFailed(s.ctx, "user-1", -1)
	s.Error(err)
}
