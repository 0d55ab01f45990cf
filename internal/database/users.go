package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crypto-deposit-reconcile-go/internal/models"
	"crypto-deposit-reconcile-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateUser(ctx context.Context, name string) (*models.User, error) {
	if name == "" {
		return nil, fmt.Errorf("user name cannot be empty")
	}

	userId := uuid.New().String()
	if _, err := s.db.ExecContext(ctx, queryInsertUser, userId, name); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	zap.L().Info("User created", zap.String("user_id", userId), zap.String("name", name))
	return s.GetUserById(ctx, userId)
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, queryGetUserById, userId)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) StoreAddress(ctx context.Context, userId, network, address string) (*models.Address, error) {
	if address == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	addr := &models.Address{
		Id:      uuid.New().String(),
		UserId:  userId,
		Network: network,
		Address: address,
	}
	if _, err := s.db.ExecContext(ctx, queryInsertAddress, addr.Id, addr.UserId, addr.Network, addr.Address); err != nil {
		return nil, fmt.Errorf("failed to insert address: %w", err)
	}

	zap.L().Info("Deposit address stored",
		zap.String("user_id", userId),
		zap.String("network", network),
		zap.String("address", address))
	return addr, nil
}

func (s *Service) GetUserAddresses(ctx context.Context, userId string) ([]models.Address, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserAddresses, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var addresses []models.Address
	for rows.Next() {
		var addr models.Address
		if err := rows.Scan(&addr.Id, &addr.UserId, &addr.Network, &addr.Address, &addr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address rows: %w", err)
	}

	return addresses, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var balanceStr string
	if err := row.Scan(&user.Id, &user.Name, &balanceStr, &user.Version, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}
	user.TopUpAmount = balance
	return &user, nil
}
