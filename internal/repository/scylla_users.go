package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/gocql/gocql"

	"tienda_perfumes/internal/models"
)

type ScyllaUsers struct {
	session *gocql.Session
}

func NewScyllaUsers(session *gocql.Session) *ScyllaUsers {
	return &ScyllaUsers{session: session}
}

func (r *ScyllaUsers) CreateUser(ctx context.Context, u *models.User) error {
	applied, err := r.session.Query(`INSERT INTO users_by_username (username, user_id) VALUES (?, ?) IF NOT EXISTS`,
		strings.ToLower(u.Username), u.ID).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}
	return r.session.Query(`INSERT INTO users (user_id, username, name, email, password, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, u.Email, u.Password, u.Role, u.CreatedAt).WithContext(ctx).Exec()
}

func (r *ScyllaUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.session.Query(`SELECT user_id, username, name, email, password, role, created_at FROM users WHERE user_id = ?`, id).
		WithContext(ctx).Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *ScyllaUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var id string
	err := r.session.Query(`SELECT user_id FROM users_by_username WHERE username = ?`, strings.ToLower(username)).
		WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, id)
}
