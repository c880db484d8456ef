package leads

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepository_Validate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &CreateLeadRequest{Source: SourceQuiz, Phone: "+79990000000"})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = repo.Create(ctx, &CreateLeadRequest{Source: SourceQuiz, Name: "Анна"})
	assert.ErrorIs(t, err, ErrMissingPhone)
	_, err = repo.Create(ctx, &CreateLeadRequest{Source: "fax", Name: "Анна", Phone: "+79990000000"})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestInMemoryRepository_ListNewestFirst(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()
	var ids []string
	for i, src := range []string{SourceQuiz, SourceCallback, SourceQuiz} {
		lead, err := repo.Create(ctx, &CreateLeadRequest{Source: src, Name: "Анна", Phone: "+7999000000" + string(rune('0'+i))})
		require.NoError(t, err)
		ids = append(ids, lead.ID)
	}

	all, err := repo.List(ctx, ListLeadsFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	quizOnly, err := repo.List(ctx, ListLeadsFilter{Source: SourceQuiz, Limit: 1})
	require.NoError(t, err)
	require.Len(t, quizOnly, 1)
	assert.Equal(t, ids[2], quizOnly[0].ID)

	page, err := repo.List(ctx, ListLeadsFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestCreateLeadRequest_ExtrasAreCopied(t *testing.T) {
	repo := NewInMemoryRepository()
	extras := []string{"oven"}
	lead, err := repo.Create(context.Background(), &CreateLeadRequest{Source: SourceQuiz, Name: "Анна", Phone: "+79990000000", Extras: extras})
	require.NoError(t, err)
	extras[0] = "fridge"
	assert.Equal(t, []string{"oven"}, lead.Extras)
}
