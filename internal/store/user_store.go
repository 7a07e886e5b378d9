package store

import (
	"context"
	"errors"
	"log"

	"WorkBridge/server/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

var userColumns = []string{"id", "email", "username", "password_hash", "user_type", "full_name", "created_at"}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.UserType, &user.FullName, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Postgres) CreateUser(ctx context.Context, user *models.User) (int, error) {
	query := psql.Insert("users").
		Columns("email", "username", "password_hash", "user_type", "full_name").
		Values(user.Email, user.Username, user.PasswordHash, user.UserType, user.FullName).
		Suffix("RETURNING id, created_at")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	if err := s.q.QueryRow(ctx, sqlStr, args...).Scan(&user.ID, &user.CreatedAt); err != nil {
		log.Printf("Error creating user %s: %v", user.Username, err)
		return 0, err
	}
	return user.ID, nil
}

func (s *Postgres) UserByID(ctx context.Context, id int) (*models.User, error) {
	query := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(s.q.QueryRow(ctx, sqlStr, args...))
}

func (s *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"email": email})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(s.q.QueryRow(ctx, sqlStr, args...))
}

func (s *Postgres) UsersByIDs(ctx context.Context, ids []int) (map[int]*models.User, error) {
	users := make(map[int]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": ids})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching users by ids: %v", err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
			&user.UserType, &user.FullName, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users[user.ID] = &user
	}
	return users, rows.Err()
}

func (s *Postgres) UsersByType(ctx context.Context, userType string) ([]models.User, error) {
	query := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"user_type": userType}).
		OrderBy("username")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.q.Query(ctx, sqlStr, args...)
	if err != nil {
		log.Printf("Error fetching %s users: %v", userType, err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
			&user.UserType, &user.FullName, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Postgres) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "users", squirrel.Eq{"email": email})
}

func (s *Postgres) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "users", squirrel.Eq{"username": username})
}

func (s *Postgres) exists(ctx context.Context, table string, where squirrel.Eq) (bool, error) {
	query := psql.Select("COUNT(*)").From(table).Where(where)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := s.q.QueryRow(ctx, sqlStr, args...).Scan(&count); err != nil {
		log.Printf("Error checking existence in %s: %v", table, err)
		return false, err
	}
	return count > 0, nil
}
