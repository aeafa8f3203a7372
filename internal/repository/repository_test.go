package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fizanakara/membership-engine/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPQErrorHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	fk := &pq.Error{Code: "23503"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

// openTestDB connects to TEST_DATABASE_URL and resets all tables, skipping when it is unset.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))
	_, err = db.ExecContext(ctx, `
		TRUNCATE payments, contributions, persons, districts, tributes,
			refresh_tokens, password_reset_tokens, admins, contribution_sequences
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	return db
}

type fixture struct {
	persons       PersonRepository
	contributions ContributionRepository
	payments      PaymentRepository
	sequences     SequenceRepository
	district      *domain.Reference
	tribute       *domain.Reference
}

func newFixture(t *testing.T, db *sqlx.DB) *fixture {
	ctx := context.Background()

	district, err := NewDistrictRepository(db).Create(ctx, "Antananarivo")
	require.NoError(t, err)
	tribute, err := NewTributeRepository(db).Create(ctx, "Merina")
	require.NoError(t, err)

	return &fixture{
		persons:       NewPersonRepository(db),
		contributions: NewContributionRepository(db),
		payments:      NewPaymentRepository(db),
		sequences:     NewSequenceRepository(db),
		district:      district,
		tribute:       tribute,
	}
}

func (f *fixture) person(t *testing.T, id string, parentID *string, birth domain.Date) *domain.Person {
	now := time.Now()
	p := &domain.Person{
		ID: id,
		Profile: domain.Profile{
			FirstName:   "First" + id,
			LastName:    "Last",
			BirthDate:   birth,
			Gender:      domain.GenderFemale,
			PhoneNumber: id[len(id)-8:],
		},
		Status:     domain.MemberStatusWorker,
		DistrictID: f.district.ID,
		TributeID:  f.tribute.ID,
		ParentID:   parentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.persons.Create(context.Background(), p))
	return p
}

func (f *fixture) contribution(t *testing.T, id, memberID string, amount int64) *domain.Contribution {
	now := time.Now()
	c := &domain.Contribution{
		ID:             id,
		Year:           2026,
		Amount:         decimal.NewFromInt(amount),
		Status:         domain.ContributionStatusPending,
		DueDate:        domain.DueDateForYear(2026),
		MemberID:       memberID,
		SequenceSuffix: id[len(id)-3:],
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.contributions.Create(context.Background(), c))
	return c
}

func strPtr(s string) *string { return &s }

func TestPersonRepositoryFamily(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	root := f.person(t, "MBR00000001", nil, domain.NewDate(1970, time.January, 1))
	child := f.person(t, "MBR00000002", strPtr(root.ID), domain.NewDate(2000, time.May, 5))
	f.person(t, "MBR00000003", strPtr(child.ID), domain.NewDate(2020, time.May, 5))

	loaded, err := f.persons.GetByID(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Antananarivo", loaded.DistrictName)
	require.NotNil(t, loaded.ParentName)
	assert.Equal(t, "FirstMBR00000001 Last", *loaded.ParentName)
	assert.Equal(t, 1, loaded.ChildrenCount)

	ancestors, err := f.persons.GetAncestorIDs(ctx, "MBR00000003")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"MBR00000003", "MBR00000002", "MBR00000001"}, ancestors)

	tree, err := f.persons.GetFamilyTree(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, tree, 3)
	assert.Equal(t, 0, tree[0].Depth)
	assert.Equal(t, 2, tree[2].Depth)

	eligible, err := f.persons.ListEligibleForYear(ctx, 2026, 18)
	require.NoError(t, err)
	assert.Len(t, eligible, 2)

	// deleting the middle generation re-parents the grandchild
	f.contribution(t, "COT2026-001", child.ID, 40000)
	require.NoError(t, f.persons.Delete(ctx, child.ID))

	grandchild, err := f.persons.GetByID(ctx, "MBR00000003")
	require.NoError(t, err)
	require.NotNil(t, grandchild.ParentID)
	assert.Equal(t, root.ID, *grandchild.ParentID)

	_, err = f.contributions.GetByID(ctx, "COT2026-001")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.ErrorIs(t, f.persons.Delete(ctx, "MBR99999999"), sql.ErrNoRows)
}

func TestContributionRepositoryDuplicateKey(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	member := f.person(t, "MBR00000001", nil, domain.NewDate(1990, time.January, 1))
	f.contribution(t, "COT2026-001", member.ID, 40000)

	exists, err := f.contributions.ExistsForMemberYear(ctx, member.ID, 2026, nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.contributions.ExistsForMemberYear(ctx, member.ID, 2026, strPtr(member.ID))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = f.contributions.ExistsForMemberYear(ctx, member.ID, 2027, nil)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestContributionRepositoryUpdateMovesChild(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	minor := f.person(t, "MBR00000001", nil, domain.NewDate(2010, time.January, 1))
	adult := f.person(t, "MBR00000002", nil, domain.NewDate(1990, time.January, 1))
	c := f.contribution(t, "COT2026-001", minor.ID, 40000)
	c.ChildID = strPtr(minor.ID)
	require.NoError(t, f.contributions.Update(ctx, c))

	c.MemberID = adult.ID
	c.ChildID = nil
	require.NoError(t, f.contributions.Update(ctx, c))

	stored, err := f.contributions.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, adult.ID, stored.MemberID)
	assert.Nil(t, stored.ChildID)

	// the old member no longer owns it
	require.NoError(t, f.persons.Delete(ctx, minor.ID))
	_, err = f.contributions.GetByID(ctx, c.ID)
	require.NoError(t, err)
}

func TestPaymentRepositoryBalance(t *testing.T) {
	db := openTestDB(t)
	f := newFixture(t, db)
	ctx := context.Background()

	member := f.person(t, "MBR00000001", nil, domain.NewDate(1990, time.January, 1))
	c := f.contribution(t, "COT2026-001", member.ID, 40000)

	payment := func(id string, amount int64) *domain.Payment {
		return &domain.Payment{
			ID:             id,
			AmountPaid:     decimal.NewFromInt(amount),
			PaymentDate:    time.Now(),
			Status:         domain.PaymentStatusCompleted,
			ContributionID: c.ID,
			CreatedAt:      time.Now(),
		}
	}

	first := payment("PAY1", 30000)
	require.NoError(t, f.payments.CreateWithinBalance(ctx, first))
	assert.ErrorIs(t, f.payments.CreateWithinBalance(ctx, payment("PAY2", 20000)), ErrBalanceExceeded)
	require.NoError(t, f.payments.CreateWithinBalance(ctx, payment("PAY3", 10000)))

	// the payment being updated is excluded from the running total
	first.AmountPaid = decimal.NewFromInt(25000)
	require.NoError(t, f.payments.UpdateWithinBalance(ctx, first))
	first.AmountPaid = decimal.NewFromInt(31000)
	assert.ErrorIs(t, f.payments.UpdateWithinBalance(ctx, first), ErrBalanceExceeded)

	total, err := f.payments.GetTotalPaid(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(35000)))

	byIDs, err := f.payments.GetByContributionIDs(ctx, []string{c.ID})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	assert.ErrorIs(t, f.payments.CreateWithinBalance(ctx, &domain.Payment{
		ID: "PAY4", AmountPaid: decimal.NewFromInt(1), ContributionID: "COT1999-001", PaymentDate: time.Now(),
		Status: domain.PaymentStatusCompleted, CreatedAt: time.Now(),
	}), sql.ErrNoRows)
}

func TestSequenceRepositoryConcurrentContributionSuffixes(t *testing.T) {
	db := openTestDB(t)
	seq := NewSequenceRepository(db)
	ctx := context.Background()

	const workers = 20
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.NextContributionSequence(ctx, 2026)
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)

	first, err := seq.NextContributionSequence(ctx, 2030)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
}

func createAdmin(t *testing.T, admins AdminRepository) *domain.Admin {
	now := time.Now()
	admin := &domain.Admin{
		ID:             domain.AdminID(2),
		SequenceNumber: 2,
		Profile: domain.Profile{
			FirstName: "Rija", LastName: "Rakoto", BirthDate: domain.NewDate(1985, time.March, 3),
			Gender: domain.GenderMale, PhoneNumber: "0340000000",
		},
		Email:        "rija@example.org",
		PasswordHash: "hash",
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, admins.Create(context.Background(), admin))
	return admin
}

func TestPasswordChangeRevokesRefreshTokens(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	admins := NewAdminRepository(db)
	tokens := NewTokenRepository(db)
	admin := createAdmin(t, admins)

	session := func(token string) {
		now := time.Now()
		require.NoError(t, tokens.CreateRefreshToken(ctx, &domain.RefreshToken{
			Token: token, AdminID: admin.ID, ExpiryDate: now.Add(time.Hour), CreatedAt: now,
		}))
	}

	// profile edits keep sessions alive
	session("refresh-profile")
	admin.FirstName = "Hery"
	require.NoError(t, admins.Update(ctx, admin))
	_, err := tokens.GetRefreshToken(ctx, "refresh-profile")
	require.NoError(t, err)

	// a new password through the admin update ends them
	admin.PasswordHash = "hash-2"
	require.NoError(t, admins.UpdateWithNewPassword(ctx, admin))
	_, err = tokens.GetRefreshToken(ctx, "refresh-profile")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	stored, err := admins.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", stored.PasswordHash)

	// so does redeeming a reset token
	session("refresh-reset")
	require.NoError(t, tokens.ReplaceResetToken(ctx, &domain.PasswordResetToken{
		Token: "reset-1", AdminID: admin.ID, ExpiryDate: time.Now().Add(time.Hour),
	}))
	require.NoError(t, tokens.RedeemResetToken(ctx, "reset-1", admin.ID, "hash-3"))

	_, err = tokens.GetRefreshToken(ctx, "refresh-reset")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = tokens.GetResetToken(ctx, "reset-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAdminRepositoryDeleteRemovesTokens(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	admins := NewAdminRepository(db)
	tokens := NewTokenRepository(db)

	now := time.Now()
	admin := createAdmin(t, admins)
	require.NoError(t, tokens.CreateRefreshToken(ctx, &domain.RefreshToken{
		Token: "refresh-1", AdminID: admin.ID, ExpiryDate: now.Add(time.Hour), CreatedAt: now,
	}))
	require.NoError(t, tokens.ReplaceResetToken(ctx, &domain.PasswordResetToken{
		Token: "reset-1", AdminID: admin.ID, ExpiryDate: now.Add(time.Hour),
	}))
	require.NoError(t, tokens.ReplaceResetToken(ctx, &domain.PasswordResetToken{
		Token: "reset-2", AdminID: admin.ID, ExpiryDate: now.Add(time.Hour),
	}))

	_, err := tokens.GetResetToken(ctx, "reset-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, admins.Delete(ctx, admin.ID))

	_, err = tokens.GetRefreshToken(ctx, "refresh-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = tokens.GetResetToken(ctx, "reset-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReferenceRepositoryUniqueName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	districts := NewDistrictRepository(db)

	created, err := districts.Create(ctx, "Fianarantsoa")
	require.NoError(t, err)

	exists, err := districts.ExistsByName(ctx, "fianarantsoa", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = districts.ExistsByName(ctx, "Fianarantsoa", created.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = districts.Create(ctx, "Fianarantsoa")
	assert.True(t, IsUniqueViolation(err))
}
