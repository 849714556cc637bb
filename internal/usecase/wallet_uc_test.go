//go:build !integration

// File: internal/usecase/wallet_uc_test.go
package usecase_test

import (
	"context"
	"errors"
	"testing"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/usecase"
)

func TestWallet_RequestWithdrawal(t *testing.T) {
	ctx := context.Background()
	repo := NewMockWalletRepo()
	uc := usecase.NewWalletUseCase(NewMockTxManager(), repo, newTestLogger())
	repo.Put(&model.Customer{ID: "user-1", WalletBalanceCents: 50000})

	req, err := uc.RequestWithdrawal(ctx, "user-1", 20000, "bank", "iban-1")
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	if req.Status != model.WithdrawalPending {
		t.Fatalf("want pending request, got %s", req.Status)
	}

	balance, _ := uc.Balance(ctx, "user-1")
	if balance != 30000 {
		t.Fatalf("balance must be deducted atomically, got %d", balance)
	}
	if got := repo.Withdrawals("user-1"); len(got) != 1 || got[0].AmountCents != 20000 {
		t.Fatalf("withdrawal not recorded: %v", got)
	}
}

func TestWallet_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	repo := NewMockWalletRepo()
	uc := usecase.NewWalletUseCase(NewMockTxManager(), repo, newTestLogger())
	repo.Put(&model.Customer{ID: "user-2", WalletBalanceCents: 1500})

	_, err := uc.RequestWithdrawal(ctx, "user-2", 2000, "tap", "dest-1")
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}

	balance, _ := uc.Balance(ctx, "user-2")
	if balance != 1500 {
		t.Fatalf("failed request must not touch the balance, got %d", balance)
	}
	if got := repo.Withdrawals("user-2"); len(got) != 0 {
		t.Fatalf("failed request must not be recorded: %v", got)
	}
}

func TestWallet_Validation(t *testing.T) {
	ctx := context.Background()
	repo := NewMockWalletRepo()
	uc := usecase.NewWalletUseCase(NewMockTxManager(), repo, newTestLogger())
	repo.Put(&model.Customer{ID: "user-3", WalletBalanceCents: 50000})

	cases := []struct {
		name        string
		amount      int64
		method      string
		destination string
	}{
		{"below minimum", usecase.MinWithdrawalCents - 1, "bank", "iban"},
		{"unknown method", 5000, "paypal", "dest"},
		{"missing destination", 5000, "bank", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.RequestWithdrawal(ctx, "user-3", tc.amount, tc.method, tc.destination)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument, got %v", err)
			}
		})
	}
}
