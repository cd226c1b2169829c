package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/playerbank/internal/domain"
	"github.com/iho/playerbank/internal/usecase"
	"github.com/iho/playerbank/tests/testutil"
)

func TestConcurrent_ModifiesAgainstRealStoreDoNotLoseUpdates(t *testing.T) {
	env := testutil.NewEnv(t, testutil.Options{})
	ctx := context.Background()

	const workers = 25
	delta := decimal.RequireFromString("5")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Ledger.Modify(ctx, "shared", domain.LaneBank, delta)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := env.Ledger.Balance(ctx, "shared", domain.LaneBank)
	require.NoError(t, err)
	// 100 starting + 25 * 5
	require.True(t, balance.Equal(decimal.RequireFromString("225")), "got %s", balance)
}

func TestConcurrent_TransfersConserveTotal(t *testing.T) {
	env := testutil.NewEnv(t, testutil.Options{})
	ctx := context.Background()

	players := []string{"p1", "p2", "p3", "p4"}
	for _, p := range players {
		_, err := env.Ledger.Balance(ctx, p, domain.LaneBank)
		require.NoError(t, err)
	}

	// Hammer transfers in both directions; rejected ones are fine, lost or
	// duplicated money is not.
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		from := players[i%len(players)]
		to := players[(i+1)%len(players)]
		wg.Add(1)
		go func(from, to string) {
			defer wg.Done()
			env.Transfer.Transfer(ctx, usecase.TransferInput{
				FromID: from,
				ToID:   to,
				Lane:   domain.LaneBank,
				Amount: decimal.RequireFromString("7"),
			})
		}(from, to)
	}
	wg.Wait()

	total := decimal.Zero
	for _, p := range players {
		balance, err := env.Ledger.Balance(ctx, p, domain.LaneBank)
		require.NoError(t, err)
		require.True(t, balance.GreaterThanOrEqual(decimal.Zero), "%s went negative: %s", p, balance)
		total = total.Add(balance)
	}

	// 4 players x 100 starting balance.
	require.True(t, total.Equal(decimal.RequireFromString("400")), "total drifted to %s", total)
}
