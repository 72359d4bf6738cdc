package repos

import (
	"github.com/ocrforge/hpcbroker/internal/db/models"
)

func (s *RepositoryTestSuite) TestWorkspaceStateTransitions() {
	workspace := s.createTestWorkspace("user-1", 10)

	s.Require().NoError(s.workspaceRepo.UpdateState(s.ctx, workspace.WorkspaceID, models.WorkspaceStateTransferringToHPC))
	got, err := s.workspaceRepo.GetByWorkspaceID(s.ctx, workspace.WorkspaceID)
	s.Require().NoError(err)
	s.Equal(models.WorkspaceStateTransferringToHPC, got.State)
	s.Equal(10, got.PagesAmount)
}

func (s *RepositoryTestSuite) TestWorkspaceSetReadyKeepsFileGroups() {
	workspace := s.createTestWorkspace("user-1", 5)

	s.Require().NoError(s.workspaceRepo.SetReady(s.ctx, workspace.WorkspaceID, nil))
	got, err := s.workspaceRepo.GetByWorkspaceID(s.ctx, workspace.WorkspaceID)
	s.Require().NoError(err)
	s.Equal(models.WorkspaceStateReady, got.State)
	s.Equal([]string{"DEFAULT"}, got.FileGroups)
}

func (s *RepositoryTestSuite) TestWorkspaceSetReadyReplacesFileGroups() {
	workspace := s.createTestWorkspace("user-1", 5)

	groups := []string{"DEFAULT", "OCR-D-BIN", "OCR-D-OCR"}
	s.Require().NoError(s.workspaceRepo.SetReady(s.ctx, workspace.WorkspaceID, groups))
	got, err := s.workspaceRepo.GetByWorkspaceID(s.ctx, workspace.WorkspaceID)
	s.Require().NoError(err)
	s.Equal(models.WorkspaceStateReady, got.State)
	s.Equal(groups, got.FileGroups)
}

func (s *RepositoryTestSuite) TestWorkspaceMetsPathFallback() {
	workspace := &models.Workspace{WorkspaceDir: "/data/ws"}
	s.Equal("/data/ws/mets.xml", workspace.MetsPath())

	workspace.MetsBasename = "custom.xml"
	s.Equal("/data/ws/custom.xml", workspace.MetsPath())
}
