package refdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FairForge/heritageload/internal/archive"
	"github.com/FairForge/heritageload/internal/metrics"
)

type fakeLister struct {
	units      []archive.ReferenceItem
	categories []archive.ReferenceItem
	err        error

	unitCalls     int
	categoryCalls int
	pageSizes     []int
}

func (f *fakeLister) ListUnits(_ context.Context, _, pageSize int) ([]archive.ReferenceItem, error) {
	f.unitCalls++
	f.pageSizes = append(f.pageSizes, pageSize)
	return f.units, f.err
}

func (f *fakeLister) ListCategories(_ context.Context, _, pageSize int) ([]archive.ReferenceItem, error) {
	f.categoryCalls++
	f.pageSizes = append(f.pageSizes, pageSize)
	return f.categories, f.err
}

func TestCache_FetchesOnce(t *testing.T) {
	deleted := time.Now()
	lister := &fakeLister{
		units: []archive.ReferenceItem{
			{ID: "u1", IsActive: true},
			{ID: "u2", IsActive: false},
			{ID: "u3", IsActive: true, DeletedAt: &deleted},
			{ID: "u4", IsActive: true},
		},
	}
	c := New(lister, ReaderPageSizes, nil, nil)
	ctx := context.Background()

	first, err := c.Units(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Units(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.Equal(t, 1, lister.unitCalls)
	assert.Equal(t, []int{50}, lister.pageSizes)
	require.Len(t, first, 2)
	for _, u := range first {
		assert.True(t, u.IsActive)
		assert.Nil(t, u.DeletedAt)
	}
}

func TestCache_EmptyResultIsCached(t *testing.T) {
	lister := &fakeLister{categories: []archive.ReferenceItem{{ID: "c1", IsActive: false}}}
	c := New(lister, ContributorPageSizes, nil, nil)

	for i := 0; i < 3; i++ {
		cats, err := c.Categories(context.Background())
		require.NoError(t, err)
		assert.Empty(t, cats)
	}
	assert.Equal(t, 1, lister.categoryCalls)
	assert.Equal(t, []int{10}, lister.pageSizes)
}

func TestCache_FailureIsNotCached(t *testing.T) {
	lister := &fakeLister{err: &archive.FetchError{Op: "list units", Kind: archive.KindStatus, Status: 500}}
	rec := metrics.NewRecorder()
	c := New(lister, ContributorPageSizes, rec, nil)
	ctx := context.Background()

	units, err := c.Units(ctx)
	require.Error(t, err)
	assert.True(t, archive.IsKind(err, archive.KindStatus))
	assert.NotNil(t, units)
	assert.Empty(t, units)

	lister.err = nil
	lister.units = []archive.ReferenceItem{{ID: "u1", IsActive: true}}
	units, err = c.Units(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 1)
	assert.Equal(t, 2, lister.unitCalls)

	failed, ok := rec.Stats("api_fetch_failed")
	require.True(t, ok)
	assert.InDelta(t, 0.5, failed.Rate, 0.0001)
	dur, _ := rec.Stats("api_fetch_duration")
	assert.Equal(t, int64(2), dur.Count)
}

func TestCache_ListsAreIndependent(t *testing.T) {
	lister := &fakeLister{
		units:      []archive.ReferenceItem{{ID: "u1", IsActive: true}},
		categories: []archive.ReferenceItem{{ID: "c1", IsActive: true}},
	}
	c := New(lister, ContributorPageSizes, nil, nil)
	ctx := context.Background()

	_, _ = c.Units(ctx)
	assert.Equal(t, 0, lister.categoryCalls)
	_, _ = c.Categories(ctx)
	_, _ = c.Categories(ctx)
	assert.Equal(t, 1, lister.categoryCalls)
	assert.Equal(t, 1, lister.unitCalls)
}

func TestEligible(t *testing.T) {
	deleted := time.Now()
	assert.Empty(t, Eligible(nil))
	got := Eligible([]archive.ReferenceItem{
		{ID: "a", IsActive: true},
		{ID: "b", IsActive: true, DeletedAt: &deleted},
	})
	require.Len(t, got, 1)
	assert.Equal(t, archive.ID("a"), got[0].ID)
}
