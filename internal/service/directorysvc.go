package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skillswap/internal/domain"
)

const (
	defaultDirectoryPageSize = 12
	maxDirectoryPageSize     = 50
	maxDirectoryPage         = 10000
)

type DirectoryStore interface {
	SearchDirectory(ctx context.Context, q domain.DirectoryQuery) ([]domain.User, int, error)
}

type DirectoryService struct {
	Store DirectoryStore
	Users UserReader
}

// Search lists public, non-banned users other than viewerID. Email
// addresses are never included.
func (s *DirectoryService) Search(ctx context.Context, viewerID string, q domain.DirectoryQuery) (domain.DirectoryPage, error) {
	q.Availability = strings.ToLower(strings.TrimSpace(q.Availability))
	if q.Availability != "" && !domain.Availability(q.Availability).Valid() {
		return domain.DirectoryPage{}, domain.NewValidationError(map[string]string{"availability": "unknown availability"})
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > maxDirectoryPage {
		return domain.DirectoryPage{}, domain.NewValidationError(map[string]string{"page": fmt.Sprintf("must be at most %d", maxDirectoryPage)})
	}
	if q.Limit <= 0 {
		q.Limit = defaultDirectoryPageSize
	}
	if q.Limit > maxDirectoryPageSize {
		q.Limit = maxDirectoryPageSize
	}
	q.ExcludeUserID = viewerID

	users, total, err := s.Store.SearchDirectory(ctx, q)
	if err != nil {
		return domain.DirectoryPage{}, err
	}
	for i := range users {
		users[i].Email = ""
	}
	return domain.DirectoryPage{
		Users: users,
		Total: total,
		Page:  q.Page,
		Pages: (total + q.Limit - 1) / q.Limit,
	}, nil
}

// PublicProfile returns userID as seen by viewer. Private or banned users
// are only visible to themselves and admins.
func (s *DirectoryService) PublicProfile(ctx context.Context, userID string, viewer domain.Principal) (domain.User, error) {
	u, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	self := viewer.ID == u.ID
	if !u.Available() && !self && !viewer.IsAdmin {
		return domain.User{}, domain.ErrNotFound
	}
	if !self && !viewer.IsAdmin {
		u.Email = ""
	}
	return u, nil
}
