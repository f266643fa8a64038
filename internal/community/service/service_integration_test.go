//go:build integration

package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	"github.com/SoftwareFuze/ScrapBook/internal/common/dbtest"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/community/cache"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/community/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/community/service"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

func setupPgService(t *testing.T) (*service.Service, *repository.PgRepository, *pgxpool.Pool) {
	t.Helper()
	pool := dbtest.StartPostgres(t)
	log := logger.NewWithWriter(io.Discard, "test", "error")
	repo := repository.NewPgRepository(pool, log)
	svc := service.NewService(
		repo,
		nil,
		cache.NewTitleIndex(time.Minute),
		nil,
		commoncrypto.NewUUIDGenerator(),
		clock.NewRealClock(),
		log,
	)
	return svc, repo, pool
}

func countMembers(t *testing.T, pool *pgxpool.Pool, communityID string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM community_members WHERE community_id = $1`, communityID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestPgService_ConcurrentJoin_Integration(t *testing.T) {
	svc, _, pool := setupPgService(t)
	ctx := context.Background()
	owner := dbtest.CreateAccount(t, pool, "alice")
	joiner := dbtest.CreateAccount(t, pool, "bob")

	created, err := svc.Create(ctx, owner, service.CreateInput{Title: "gophers", Interests: []string{"go"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.Version)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Join(ctx, joiner, created.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 2, countMembers(t, pool, created.ID))

	current, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Version, "only the first join changes the aggregate")
	assert.Equal(t, []string{string(owner.ID), string(joiner.ID)}, current.Members)
}

func TestPgRepository_AddMemberConflict_Integration(t *testing.T) {
	svc, repo, pool := setupPgService(t)
	ctx := context.Background()
	owner := dbtest.CreateAccount(t, pool, "alice")
	joiner := dbtest.CreateAccount(t, pool, "bob")

	created, err := svc.Create(ctx, owner, service.CreateInput{Title: "gophers", Interests: []string{"go"}})
	require.NoError(t, err)

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.AddMember(ctx, pool, created.ID, string(joiner.ID))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	assert.Equal(t, 2, countMembers(t, pool, created.ID))
}

func TestPgService_LeaveNotAMember_Integration(t *testing.T) {
	svc, _, pool := setupPgService(t)
	ctx := context.Background()
	owner := dbtest.CreateAccount(t, pool, "alice")
	stranger := dbtest.CreateAccount(t, pool, "carol")

	created, err := svc.Create(ctx, owner, service.CreateInput{Title: "gophers", Interests: []string{"go"}})
	require.NoError(t, err)

	_, err = svc.Leave(ctx, stranger, created.ID)
	assert.True(t, errors.Is(err, domain.ErrNotAMember), "got %v", err)

	current, err := svc.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Version, current.Version)
	assert.Equal(t, []string{string(owner.ID)}, current.Members)
}

func TestPgService_MembersMatchMembersUser_Integration(t *testing.T) {
	svc, _, pool := setupPgService(t)
	ctx := context.Background()
	owner := dbtest.CreateAccount(t, pool, "alice")
	others := []userdomain.Account{
		dbtest.CreateAccount(t, pool, "bob"),
		dbtest.CreateAccount(t, pool, "carol"),
	}

	created, err := svc.Create(ctx, owner, service.CreateInput{Title: "gophers", Interests: []string{"go"}})
	require.NoError(t, err)
	for _, account := range others {
		_, err := svc.Join(ctx, account, created.ID)
		require.NoError(t, err)
	}
	community, err := svc.Leave(ctx, others[0], created.ID)
	require.NoError(t, err)

	require.Len(t, community.MembersUser, len(community.Members))
	for i, summary := range community.MembersUser {
		assert.Equal(t, community.Members[i], string(summary.ID))
	}
	assert.Equal(t, []string{string(owner.ID), string(others[1].ID)}, community.Members)
	assert.Equal(t, "carol", community.MembersUser[1].Username)
	assert.Equal(t, int64(4), community.Version)
}
