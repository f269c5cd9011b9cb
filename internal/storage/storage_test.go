package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Epistemic-Technology/vetrecords/internal/config"
	"github.com/Epistemic-Technology/vetrecords/models"
)

func sampleResult(id string, created time.Time) *models.ExtractionResult {
	date := "2023-03-15"
	source := "rex.pdf"
	return &models.ExtractionResult{
		ID: id,
		Documents: []models.DocumentInfo{
			{DocumentID: id, Label: "rex.pdf", SHA256: "abc", Pages: 2, Bytes: 1024, Model: "openai:gpt-5-mini"},
		},
		Patient:  models.Patient{Name: "Rex", Species: "dog"},
		Vaccines: []models.Vaccine{{Name: "Rabies", DateAdministered: "2023-03-15", Source: "rex.pdf"}},
		CategorizedDates: []models.CategorizedDate{
			{Date: "2021-01-10", Category: models.CategorySurgery, SpecificType: "Neuter", Source: "rex.pdf"},
			{Date: "2023-03-15", Category: models.CategoryVaccine, SpecificType: "Rabies 3yr", Source: "rex.pdf"},
			{Date: "2022-05-01", Category: models.CategoryVaccine, SpecificType: "DHPP", Source: "rex.pdf", Notes: "booster"},
		},
		FAQs:      models.FAQs{LastRabiesVaccine: models.FAQEntry{Date: &date, Source: &source}},
		CreatedAt: created,
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisStore, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
		"redis":  redisStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			in := sampleResult("rec_0001", created)
			require.NoError(t, store.SaveExtraction(ctx, in))

			exists, err := store.ExtractionExists(ctx, "rec_0001")
			require.NoError(t, err)
			assert.True(t, exists)

			out, err := store.GetExtraction(ctx, "rec_0001")
			require.NoError(t, err)
			assert.Equal(t, in.Patient, out.Patient)
			assert.Equal(t, in.CategorizedDates, out.CategorizedDates)
			assert.Equal(t, in.Documents, out.Documents)
			require.NotNil(t, out.FAQs.LastRabiesVaccine.Date)
			assert.Equal(t, "2023-03-15", *out.FAQs.LastRabiesVaccine.Date)
			assert.Nil(t, out.FAQs.LastDHPPVaccine.Date)
			assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetExtraction(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			err = store.DeleteExtraction(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			exists, err := store.ExtractionExists(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveExtraction(ctx, sampleResult("rec_old", base)))
			require.NoError(t, store.SaveExtraction(ctx, sampleResult("rec_new", base.Add(time.Hour))))

			list, err := store.ListExtractions(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "rec_new", list[0].ID)
			assert.Equal(t, "rec_old", list[1].ID)
			assert.Equal(t, "Rex", list[0].PatientName)
			assert.Equal(t, []string{"rex.pdf"}, list[0].Labels)
			assert.Equal(t, 1, list[0].DocumentCount)
			assert.Equal(t, 3, list[0].DateCount)

			require.NoError(t, store.DeleteExtraction(ctx, "rec_old"))
			list, err = store.ListExtractions(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "rec_new", list[0].ID)
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := sampleResult("rec_same", time.Now().UTC())
			require.NoError(t, store.SaveExtraction(ctx, first))

			second := sampleResult("rec_same", time.Now().UTC())
			second.CategorizedDates = second.CategorizedDates[:1]
			require.NoError(t, store.SaveExtraction(ctx, second))

			out, err := store.GetExtraction(ctx, "rec_same")
			require.NoError(t, err)
			assert.Len(t, out.CategorizedDates, 1)

			list, err := store.ListExtractions(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	in := sampleResult("rec_iso", time.Now())
	require.NoError(t, store.SaveExtraction(ctx, in))

	in.Patient.Name = "changed"
	out, err := store.GetExtraction(ctx, "rec_iso")
	require.NoError(t, err)
	assert.Equal(t, "Rex", out.Patient.Name)

	out.CategorizedDates[0].Date = "1999-01-01"
	again, err := store.GetExtraction(ctx, "rec_iso")
	require.NoError(t, err)
	assert.Equal(t, "2021-01-10", again.CategorizedDates[0].Date)
}

func TestSQLiteStore_Timeline(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveExtraction(ctx, sampleResult("rec_tl", time.Now())))

	all, err := store.Timeline(ctx, "rec_tl", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"2023-03-15", "2022-05-01", "2021-01-10"}, []string{all[0].Date, all[1].Date, all[2].Date})
	assert.Equal(t, "booster", all[1].Notes)

	vaccines, err := store.Timeline(ctx, "rec_tl", models.CategoryVaccine)
	require.NoError(t, err)
	assert.Len(t, vaccines, 2)

	_, err = store.Timeline(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteExtraction(ctx, "rec_tl"))
	var orphans int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM categorized_dates`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(ctx, RedisOptions{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveExtraction(ctx, sampleResult("rec_ttl", time.Now())))
	assert.Equal(t, time.Minute, mr.TTL(redisKey("rec_ttl")))

	mr.FastForward(2 * time.Minute)

	_, err = store.GetExtraction(ctx, "rec_ttl")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := store.ListExtractions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	members, err := mr.ZMembers(redisIndexKey)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.StorageConfig{Backend: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(ctx, config.StorageConfig{Backend: "postgres"})
	assert.Error(t, err)
}

func TestIDs(t *testing.T) {
	sha := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	id := DocumentID(sha)
	assert.Equal(t, "rec_ba7816bf8f01cfea", id)

	assert.Equal(t, id, CombinedID([]string{id}))

	combined := CombinedID([]string{"rec_a", "rec_b"})
	assert.NotEqual(t, combined, CombinedID([]string{"rec_b", "rec_a"}))
	assert.Equal(t, combined, CombinedID([]string{"rec_a", "rec_b"}))
	assert.Len(t, combined, len("rec_")+16)
}

func TestCalculateResourcePaths(t *testing.T) {
	result := sampleResult("rec_1", time.Now())
	paths := CalculateResourcePaths("rec_1", result)
	assert.Equal(t, []string{
		"vetrecord://rec_1",
		"vetrecord://rec_1/faqs",
		"vetrecord://rec_1/patient",
		"vetrecord://rec_1/vaccines",
		"vetrecord://rec_1/timeline",
	}, paths)

	empty := CalculateResourcePaths("rec_2", &models.ExtractionResult{})
	assert.Len(t, empty, 3)
}
