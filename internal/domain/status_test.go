package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithdrawalTransitions(t *testing.T) {
	allowed := map[WithdrawalStatus][]WithdrawalStatus{
		WithdrawalPending:  {WithdrawalAccepted, WithdrawalRejected},
		WithdrawalAccepted: {WithdrawalCompleted},
	}
	all := []WithdrawalStatus{WithdrawalPending, WithdrawalAccepted, WithdrawalRejected, WithdrawalCompleted}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, WithdrawalStatus("archived").Valid())
}

func TestWithdrawalDeletable(t *testing.T) {
	assert.True(t, WithdrawalPending.Deletable())
	assert.True(t, WithdrawalRejected.Deletable())
	assert.False(t, WithdrawalAccepted.Deletable())
	assert.False(t, WithdrawalCompleted.Deletable())
}

func TestSaleTransitions(t *testing.T) {
	assert.True(t, SalePending.CanTransition(SaleCompleted))
	assert.True(t, SalePending.CanTransition(SaleFailed))
	assert.False(t, SalePending.CanTransition(SalePending))
	assert.False(t, SaleCompleted.CanTransition(SaleFailed))
	assert.False(t, SaleFailed.CanTransition(SaleCompleted))
	assert.False(t, SaleStatus("refunded").Valid())
}

func TestUserPublic(t *testing.T) {
	u := User{ID: 3, Email: "a@b.c", FullName: "Reem", Role: RoleAdmin}
	assert.True(t, u.IsAdmin())
	assert.Equal(t, PublicUser{ID: 3, FullName: "Reem"}, u.Public())
}
