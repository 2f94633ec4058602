package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

func TestAccountService_Open(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	account, err := h.core.OpenAccount(ctx, alice, alice.ID, domain.AccountTypeCurrent)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, account.Status)
	assert.True(t, account.Balance.IsZero())
	assert.Equal(t, []domain.NotificationCategory{domain.NotificationAccount}, h.notifier.Categories(alice.ID))

	_, err = h.core.OpenAccount(ctx, alice, bob.ID, domain.AccountTypeCurrent)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	_, err = h.core.OpenAccount(ctx, alice, alice.ID, "CHECKING")
	assert.ErrorIs(t, err, domain.ErrInvalidAccountType)

	forBob, err := h.core.OpenAccount(ctx, teller, bob.ID, domain.AccountTypeSavings)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, forBob.CustomerID)
	assert.NotEqual(t, account.ID, forBob.ID)

	got, err := h.core.GetAccount(ctx, bob, forBob.ID)
	require.NoError(t, err)
	assert.Equal(t, forBob.ID, got.ID)
	_, err = h.core.GetAccount(ctx, alice, forBob.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestAccountService_SetStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)

	_, err := h.core.Accounts.SetStatus(ctx, alice, account.ID, domain.AccountStatusInactive)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	_, err = h.core.Accounts.SetStatus(ctx, teller, account.ID, domain.AccountStatusClosed)
	assert.ErrorIs(t, err, domain.ErrInvalidAccountStatus)

	inactive, err := h.core.Accounts.SetStatus(ctx, teller, account.ID, domain.AccountStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusInactive, inactive.Status)

	active, err := h.core.Accounts.SetStatus(ctx, teller, account.ID, domain.AccountStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, active.Status)
}

func TestAccountService_Close(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)
	h.fund(t, account.ID, "10")

	_, err := h.core.CloseAccount(ctx, alice, account.ID)
	assert.ErrorIs(t, err, domain.ErrAccountBalanceNotZero)

	_, err = h.core.Withdraw(ctx, alice, account.ID, money("10"))
	require.NoError(t, err)

	loan, err := h.core.ApplyLoan(ctx, alice, account.ID, money("100"), money("5"), 12)
	require.NoError(t, err)
	_, err = h.core.CloseAccount(ctx, alice, account.ID)
	assert.ErrorIs(t, err, domain.ErrAccountHasActiveLoans)

	_, err = h.core.RejectLoan(ctx, teller, loan.ID)
	require.NoError(t, err)
	closed, err := h.core.CloseAccount(ctx, alice, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusClosed, closed.Status)

	_, err = h.core.Deposit(ctx, alice, account.ID, money("1"))
	assert.ErrorIs(t, err, domain.ErrAccountNotActive)
	_, err = h.core.Accounts.SetStatus(ctx, teller, account.ID, domain.AccountStatusActive)
	assert.ErrorIs(t, err, domain.ErrAccountClosed)
}
