package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jointvault/backend/internal/holdings"
)

func newTestLedger(t *testing.T) (*JointLedger, *holdings.Memory) {
	t.Helper()
	h := holdings.NewMemory()
	return NewJointLedger(h, 1), h
}

func TestJointLedger_CreateAccount(t *testing.T) {
	l, _ := newTestLedger(t)

	t.Run("single owner", func(t *testing.T) {
		id, err := l.CreateAccount("alice", nil, 0)
		assert.NoError(t, err)

		accts := l.AccountsFor("alice")
		assert.Len(t, accts, 1)
		assert.Equal(t, id, accts[0].ID)
		assert.Equal(t, []string{"alice"}, accts[0].Owners)
		assert.Equal(t, int64(0), accts[0].Balance)
	})

	t.Run("four owners enumerate the account", func(t *testing.T) {
		id, err := l.CreateAccount("bob", []string{"carol", "dave", "erin"}, 0)
		assert.NoError(t, err)

		for _, owner := range []string{"bob", "carol", "dave", "erin"} {
			accts := l.AccountsFor(owner)
			assert.Len(t, accts, 1, "owner %s", owner)
			assert.Equal(t, id, accts[0].ID)
		}
	})

	t.Run("five owners rejected", func(t *testing.T) {
		_, err := l.CreateAccount("bob", []string{"carol", "dave", "erin", "frank"}, 0)
		assert.ErrorIs(t, err, ErrInvalidOwnerCount)
	})

	t.Run("creator listed again rejected", func(t *testing.T) {
		_, err := l.CreateAccount("alice", []string{"alice"}, 0)
		assert.ErrorIs(t, err, ErrDuplicateOwner)
	})

	t.Run("duplicate co-owner rejected", func(t *testing.T) {
		_, err := l.CreateAccount("alice", []string{"bob", "bob"}, 0)
		assert.ErrorIs(t, err, ErrDuplicateOwner)
	})

	t.Run("quorum out of range rejected", func(t *testing.T) {
		_, err := l.CreateAccount("alice", []string{"bob"}, 4)
		assert.ErrorIs(t, err, ErrInvalidQuorum)
	})

	t.Run("ids are sequential", func(t *testing.T) {
		first, err := l.CreateAccount("gina", nil, 0)
		assert.NoError(t, err)
		second, err := l.CreateAccount("gina", nil, 0)
		assert.NoError(t, err)
		assert.Equal(t, first+1, second)
	})

	t.Run("unknown principal owns nothing", func(t *testing.T) {
		assert.Empty(t, l.AccountsFor("nobody"))
	})
}

func TestJointLedger_Deposit(t *testing.T) {
	l, h := newTestLedger(t)
	id, err := l.CreateAccount("alice", []string{"bob"}, 0)
	assert.NoError(t, err)
	h.Seed("alice", 1_000)

	t.Run("owner deposit credits balance", func(t *testing.T) {
		assert.NoError(t, l.Deposit("alice", id, 600))

		acct, err := l.Account(id)
		assert.NoError(t, err)
		assert.Equal(t, int64(600), acct.Balance)
		assert.Equal(t, int64(400), h.Balance("alice"))
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		assert.ErrorIs(t, l.Deposit("mallory", id, 100), ErrNotOwner)
	})

	t.Run("unknown account rejected", func(t *testing.T) {
		assert.ErrorIs(t, l.Deposit("alice", 999, 100), ErrInvalidAccount)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		assert.ErrorIs(t, l.Deposit("alice", id, 0), ErrInvalidAmount)
		assert.ErrorIs(t, l.Deposit("alice", id, -5), ErrInvalidAmount)
	})

	t.Run("holding debit failure mutates nothing", func(t *testing.T) {
		before, err := l.Account(id)
		assert.NoError(t, err)

		err = l.Deposit("alice", id, 5_000)
		assert.ErrorIs(t, err, ErrTransferFailed)

		after, err := l.Account(id)
		assert.NoError(t, err)
		assert.Equal(t, before.Balance, after.Balance)
	})
}

func TestJointLedger_RequestWithdraw(t *testing.T) {
	l, h := newTestLedger(t)
	id, _ := l.CreateAccount("alice", []string{"bob"}, 0)
	h.Seed("alice", 100_000_000)
	assert.NoError(t, l.Deposit("alice", id, 100_000_000))

	t.Run("owner can request", func(t *testing.T) {
		reqID, err := l.RequestWithdraw("alice", id, 1_000_000)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), reqID)
	})

	t.Run("request ids are sequential per account", func(t *testing.T) {
		reqID, err := l.RequestWithdraw("bob", id, 1_000_000)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), reqID)
	})

	t.Run("amount over balance rejected and no request created", func(t *testing.T) {
		_, err := l.RequestWithdraw("alice", id, 1_000_000_000)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		_, err = l.Request(id, 2)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		_, err := l.RequestWithdraw("mallory", id, 1_000)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := l.RequestWithdraw("alice", id, 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestJointLedger_ApproveWithdraw(t *testing.T) {
	l, h := newTestLedger(t)
	id, _ := l.CreateAccount("alice", []string{"bob", "carol"}, 0)
	h.Seed("alice", 1_000)
	assert.NoError(t, l.Deposit("alice", id, 1_000))
	reqID, err := l.RequestWithdraw("alice", id, 500)
	assert.NoError(t, err)

	t.Run("co-owner approval counted", func(t *testing.T) {
		assert.NoError(t, l.ApproveWithdraw("bob", id, reqID))

		n, err := l.ApprovalCount(id, reqID)
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("re-approval is a no-op", func(t *testing.T) {
		assert.NoError(t, l.ApproveWithdraw("bob", id, reqID))

		n, err := l.ApprovalCount(id, reqID)
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("distinct approvers accumulate", func(t *testing.T) {
		assert.NoError(t, l.ApproveWithdraw("carol", id, reqID))

		n, err := l.ApprovalCount(id, reqID)
		assert.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("self approval rejected", func(t *testing.T) {
		assert.ErrorIs(t, l.ApproveWithdraw("alice", id, reqID), ErrSelfApproval)
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		assert.ErrorIs(t, l.ApproveWithdraw("mallory", id, reqID), ErrNotOwner)
	})

	t.Run("unknown request rejected", func(t *testing.T) {
		assert.ErrorIs(t, l.ApproveWithdraw("bob", id, 42), ErrInvalidRequest)
	})

	t.Run("approval after execution rejected", func(t *testing.T) {
		assert.NoError(t, l.Withdraw("alice", id, reqID))
		assert.ErrorIs(t, l.ApproveWithdraw("carol", id, reqID), ErrAlreadyExecuted)
	})
}

func TestJointLedger_Withdraw(t *testing.T) {
	l, h := newTestLedger(t)
	id, _ := l.CreateAccount("alice", []string{"bob"}, 0)
	h.Seed("alice", 200_000_000)
	assert.NoError(t, l.Deposit("alice", id, 200_000_000))

	reqID, err := l.RequestWithdraw("alice", id, 100_000_000)
	assert.NoError(t, err)

	t.Run("unapproved request cannot execute", func(t *testing.T) {
		assert.ErrorIs(t, l.Withdraw("alice", id, reqID), ErrNotApproved)
	})

	t.Run("only requester may execute", func(t *testing.T) {
		assert.NoError(t, l.ApproveWithdraw("bob", id, reqID))
		assert.ErrorIs(t, l.Withdraw("bob", id, reqID), ErrNotRequester)
	})

	t.Run("approved request pays out once", func(t *testing.T) {
		assert.NoError(t, l.Withdraw("alice", id, reqID))

		acct, err := l.Account(id)
		assert.NoError(t, err)
		assert.Equal(t, int64(100_000_000), acct.Balance)
		assert.Equal(t, int64(100_000_000), h.Balance("alice"))

		req, err := l.Request(id, reqID)
		assert.NoError(t, err)
		assert.True(t, req.Executed)
	})

	t.Run("second execute fails and balance is unchanged", func(t *testing.T) {
		assert.ErrorIs(t, l.Withdraw("alice", id, reqID), ErrAlreadyExecuted)

		acct, err := l.Account(id)
		assert.NoError(t, err)
		assert.Equal(t, int64(100_000_000), acct.Balance)
		assert.Equal(t, int64(100_000_000), h.Balance("alice"))
	})

	t.Run("execution re-validates funds", func(t *testing.T) {
		// Queue two requests against the same balance, drain it with the
		// first, then the second must fail at execution time.
		first, err := l.RequestWithdraw("alice", id, 100_000_000)
		assert.NoError(t, err)
		second, err := l.RequestWithdraw("alice", id, 60_000_000)
		assert.NoError(t, err)

		assert.NoError(t, l.ApproveWithdraw("bob", id, first))
		assert.NoError(t, l.ApproveWithdraw("bob", id, second))
		assert.NoError(t, l.Withdraw("alice", id, first))

		assert.ErrorIs(t, l.Withdraw("alice", id, second), ErrInsufficientFunds)
	})
}

func TestJointLedger_QuorumOfTwo(t *testing.T) {
	l, h := newTestLedger(t)
	id, err := l.CreateAccount("alice", []string{"bob", "carol"}, 2)
	assert.NoError(t, err)
	h.Seed("alice", 1_000)
	assert.NoError(t, l.Deposit("alice", id, 1_000))

	reqID, err := l.RequestWithdraw("alice", id, 400)
	assert.NoError(t, err)

	assert.NoError(t, l.ApproveWithdraw("bob", id, reqID))
	assert.ErrorIs(t, l.Withdraw("alice", id, reqID), ErrNotApproved)

	assert.NoError(t, l.ApproveWithdraw("carol", id, reqID))
	assert.NoError(t, l.Withdraw("alice", id, reqID))
}

func TestJointLedger_BalanceConservation(t *testing.T) {
	l, h := newTestLedger(t)
	id, _ := l.CreateAccount("alice", []string{"bob"}, 0)
	h.Seed("alice", 10_000)

	deposits := []int64{1_000, 2_500, 4_000}
	var total int64
	for _, d := range deposits {
		assert.NoError(t, l.Deposit("alice", id, d))
		total += d
	}

	withdrawals := []int64{500, 1_500}
	for _, wd := range withdrawals {
		reqID, err := l.RequestWithdraw("alice", id, wd)
		assert.NoError(t, err)
		assert.NoError(t, l.ApproveWithdraw("bob", id, reqID))
		assert.NoError(t, l.Withdraw("alice", id, reqID))
		total -= wd
	}

	acct, err := l.Account(id)
	assert.NoError(t, err)
	assert.Equal(t, total, acct.Balance)
	assert.GreaterOrEqual(t, acct.Balance, int64(0))
}

func TestJointLedger_ConcurrentExecuteOnce(t *testing.T) {
	l, h := newTestLedger(t)
	id, _ := l.CreateAccount("alice", []string{"bob"}, 0)
	h.Seed("alice", 1_000)
	assert.NoError(t, l.Deposit("alice", id, 1_000))

	reqID, err := l.RequestWithdraw("alice", id, 700)
	assert.NoError(t, err)
	assert.NoError(t, l.ApproveWithdraw("bob", id, reqID))

	const callers = 16
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Withdraw("alice", id, reqID)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, alreadyExecuted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			assert.ErrorIs(t, err, ErrAlreadyExecuted)
			alreadyExecuted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, alreadyExecuted)

	acct, err := l.Account(id)
	assert.NoError(t, err)
	assert.Equal(t, int64(300), acct.Balance)
	assert.Equal(t, int64(700), h.Balance("alice"))
}

func TestJointLedger_ConcurrentDeposits(t *testing.T) {
	l, h := newTestLedger(t)
	id, _ := l.CreateAccount("alice", []string{"bob"}, 0)
	h.Seed("alice", 100_000)
	h.Seed("bob", 100_000)

	const perOwner = 50
	var wg sync.WaitGroup
	for _, owner := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for i := 0; i < perOwner; i++ {
				assert.NoError(t, l.Deposit(owner, id, 10))
			}
		}(owner)
	}
	wg.Wait()

	acct, err := l.Account(id)
	assert.NoError(t, err)
	assert.Equal(t, int64(2*perOwner*10), acct.Balance)
}
