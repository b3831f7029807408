// Package bank exposes the in-game currency account: balance, transfer
// history and transfers to other players. Every operation requires a
// linked Discord account; the gate is checked before any network call.
package bank

import (
	"context"
	"errors"
	"fmt"

	"horizon/internal/api"
	"horizon/internal/models"
	"horizon/internal/notify"
)

const requiredProvider = "discord"

var (
	ErrProviderRequired = errors.New("a linked discord account is required")
	ErrInvalidAmount    = errors.New("transfer amount must be a positive integer")
)

type Service struct {
	client *api.Client
	hub    *notify.Hub

	// currentUser supplies the account whose linked providers gate access.
	currentUser func() *models.User
}

func New(client *api.Client, hub *notify.Hub, currentUser func() *models.User) *Service {
	return &Service{client: client, hub: hub, currentUser: currentUser}
}

func (s *Service) gate() error {
	user := s.currentUser()
	if user == nil || !user.HasProvider(requiredProvider) {
		return ErrProviderRequired
	}
	return nil
}

func (s *Service) Balance(ctx context.Context) (models.Balance, error) {
	if err := s.gate(); err != nil {
		return models.Balance{}, err
	}
	balance, err := s.client.Balance(ctx)
	if err != nil {
		return models.Balance{}, fmt.Errorf("failed to fetch balance: %w", err)
	}
	return balance, nil
}

func (s *Service) Transactions(ctx context.Context) ([]models.Transaction, error) {
	if err := s.gate(); err != nil {
		return nil, err
	}
	history, err := s.client.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return history, nil
}

// Transfer sends a positive integer amount to another player by username.
func (s *Service) Transfer(ctx context.Context, toUsername string, amount int64) error {
	if err := s.gate(); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := s.client.Transfer(ctx, toUsername, amount); err != nil {
		s.hub.Error("перевод не выполнен")
		return fmt.Errorf("failed to transfer %d to %s: %w", amount, toUsername, err)
	}
	s.hub.Success(fmt.Sprintf("переведено %d игроку %s", amount, toUsername))
	return nil
}
