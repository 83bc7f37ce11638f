package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pokernights/poker-tracker/models"
	"github.com/pokernights/poker-tracker/repositories"
	"github.com/pokernights/poker-tracker/storage"
	"golang.org/x/sync/errgroup"
)

type CreateGroupInput struct {
	Name      string `json:"name"`
	OwnerID   *int   `json:"ownerId,omitempty"`
	MemberIDs []int  `json:"memberIds"`
}

// GroupService управляет группами игроков и их составом.
type GroupService struct {
	db        *sql.DB
	groupRepo repositories.GroupRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewGroupService(db *sql.DB, groupRepo repositories.GroupRepository, uploader storage.FileUploader, logger *slog.Logger) *GroupService {
	return &GroupService{db: db, groupRepo: groupRepo, uploader: uploader, logger: logger}
}

// CreateGroup создаёт группу и записи участников одной транзакцией.
func (s *GroupService) CreateGroup(ctx context.Context, input CreateGroupInput) (*models.Group, error) {
	if input.Name == "" {
		return nil, ErrGroupNameRequired
	}

	group := &models.Group{Name: input.Name, OwnerID: input.OwnerID}
	err := runInTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if err := s.groupRepo.Create(ctx, tx, group); err != nil {
			return s.translateRepoError(err)
		}
		return s.translateRepoError(s.groupRepo.AddMembers(ctx, tx, group.ID, input.MemberIDs))
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) GetGroupsByUser(ctx context.Context, userID int) ([]models.Group, error) {
	groups, err := s.groupRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		s.populateLogoURL(&groups[i])
	}
	return groups, nil
}

func (s *GroupService) GetGroupMembers(ctx context.Context, groupID int) ([]models.User, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return nil, s.translateRepoError(err)
	}
	return s.groupRepo.ListMembers(ctx, groupID)
}

// GetGroupGames возвращает игры группы с порядковым номером внутри группы.
func (s *GroupService) GetGroupGames(ctx context.Context, groupID int) ([]models.GroupGame, error) {
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return nil, s.translateRepoError(err)
	}
	return s.groupRepo.ListGames(ctx, groupID)
}

// GetGroupOverview собирает сводку по группе; участники и игры читаются
// параллельно.
func (s *GroupService) GetGroupOverview(ctx context.Context, groupID int) (*models.GroupOverview, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	s.populateLogoURL(group)

	overview := &models.GroupOverview{Group: *group}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview.Members, err = s.groupRepo.ListMembers(gCtx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		overview.Games, err = s.groupRepo.ListGames(gCtx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// UploadGroupLogo загружает логотип группы в объектное хранилище и сохраняет
// ключ. Старый файл удаляется по принципу best effort.
func (s *GroupService) UploadGroupLogo(ctx context.Context, groupID int, contentType string, file io.Reader) (*models.Group, error) {
	if s.uploader == nil {
		return nil, errors.New("file uploads are not configured")
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	key := fmt.Sprintf("groups/%d/logo", groupID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload group logo: %w", err)
	}

	oldKey := group.LogoKey
	if err := s.groupRepo.UpdateLogoKey(ctx, groupID, &result.Key); err != nil {
		return nil, s.translateRepoError(err)
	}
	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.log().Warn("failed to delete previous group logo",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	group.LogoKey = &result.Key
	s.populateLogoURL(group)
	return group, nil
}

func (s *GroupService) populateLogoURL(group *models.Group) {
	if s.uploader == nil || group.LogoKey == nil || *group.LogoKey == "" {
		return
	}
	url := s.uploader.GetPublicURL(*group.LogoKey)
	group.LogoURL = &url
}

func (s *GroupService) translateRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrGroupNotFound):
		return ErrGroupNotFound
	case errors.Is(err, repositories.ErrGroupInvalidOwner),
		errors.Is(err, repositories.ErrGroupInvalidMember):
		return fmt.Errorf("%w: %s", ErrUserNotFound, err)
	}
	return err
}

func (s *GroupService) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
