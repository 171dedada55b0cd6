package store

import (
	"context"

	"github.com/sjournalfx-cmyk/teamhub/internal/domain"
)

func userIndex(st *domain.AppState, id string) int {
	for i := range st.Users {
		if st.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// AddUser invites a new roster member.
func (s *Store) AddUser(ctx context.Context, actor Actor, user domain.User) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		if user.ID == "" {
			user.ID = "u-" + s.newID()
		}
		st.Users = append(st.Users, user)
		s.logActivity(st, actor, "authorized new node", user.Name)
		return true
	})
}

// UpdateUser replaces a roster record, keeping the denormalized current
// user in sync on self-edit.
func (s *Store) UpdateUser(ctx context.Context, actor Actor, user domain.User) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := userIndex(st, user.ID)
		if i < 0 {
			return false
		}
		st.Users[i] = user
		if st.CurrentUser.ID == user.ID {
			st.CurrentUser = user
		}
		return true
	})
}

// DeleteUser removes a member from the roster. Activity entries that
// reference them by name and id are kept.
func (s *Store) DeleteUser(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := userIndex(st, id)
		if i < 0 {
			return false
		}
		st.Users = append(st.Users[:i], st.Users[i+1:]...)
		return true
	})
}

// UpdateUserStatus sets the current user's presence status in both the
// roster and the denormalized copy.
func (s *Store) UpdateUserStatus(ctx context.Context, actor Actor, emoji, text string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := userIndex(st, st.CurrentUser.ID)
		if i >= 0 {
			st.Users[i].StatusEmoji = emoji
			st.Users[i].StatusText = text
		}
		st.CurrentUser.StatusEmoji = emoji
		st.CurrentUser.StatusText = text
		s.logActivity(st, actor, "updated status to", emoji+" "+text)
		return true
	})
}

// SetCurrentUser switches the denormalized current user to another
// roster member.
func (s *Store) SetCurrentUser(ctx context.Context, actor Actor, id string) error {
	return s.apply(ctx, func(st *domain.AppState) bool {
		i := userIndex(st, id)
		if i < 0 {
			return false
		}
		st.CurrentUser = st.Users[i]
		return true
	})
}
