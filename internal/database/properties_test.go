package database

import (
	"context"
	"database/sql"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/server/internal/apperr"
	"realestate/server/internal/models"
	"realestate/server/internal/search"
)

var descriptionWords = []string{
	"garden", "sea", "view", "quiet", "street", "modern", "kitchen", "pool",
	"garage", "balcony", "50%off", "top_floor", "renovated", "bright",
	"élégant", "ÉTÉ", "château", "Fenêtre", "île",
}

func randomCase(r *rand.Rand, s string) string {
	switch r.Intn(3) {
	case 0:
		return strings.ToLower(s)
	case 1:
		return strings.ToUpper(s)
	default:
		return s
	}
}

func randomProperty(r *rand.Rand, ownerID uint) *models.Property {
	words := make([]string, 3+r.Intn(4))
	for i := range words {
		words[i] = descriptionWords[r.Intn(len(descriptionWords))]
	}
	return &models.Property{
		OwnerID:      ownerID,
		Title:        "listing",
		Description:  strings.Join(words, " "),
		Price:        float64(r.Intn(80)) * 10000,
		Bedrooms:     r.Intn(8),
		Bathrooms:    r.Intn(8),
		AdvertType:   models.AdvertType(randomCase(r, string(models.AdvertTypes[r.Intn(len(models.AdvertTypes))]))),
		PropertyType: models.PropertyType(randomCase(r, string(models.PropertyTypes[r.Intn(len(models.PropertyTypes))]))),
		Published:    r.Intn(4) != 0,
	}
}

func randomRequest(r *rand.Rand) search.Request {
	pick := func(options []string) string { return options[r.Intn(len(options))] }

	req := search.Request{
		PriceTier:     pick(search.PriceTiers()),
		BedroomsTier:  pick(search.RoomTiers()),
		BathroomsTier: pick(search.RoomTiers()),
	}
	if r.Intn(2) == 0 {
		req.AdvertType = randomCase(r, string(models.AdvertTypes[r.Intn(len(models.AdvertTypes))]))
	}
	if r.Intn(2) == 0 {
		req.PropertyType = randomCase(r, string(models.PropertyTypes[r.Intn(len(models.PropertyTypes))]))
	}
	switch r.Intn(4) {
	case 0:
		req.Phrase = randomCase(r, pick(descriptionWords))
	case 1:
		req.Phrase = pick([]string{"%", "_", "sea view", "p_ol"})
	}
	return req
}

func ids(properties []models.Property) []uint {
	out := make([]uint, 0, len(properties))
	for _, p := range properties {
		out = append(out, p.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestFindPublishedAgreesWithMatches(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner, _ := createUser(t, db, "owner")

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 150; i++ {
		require.NoError(t, db.CreateProperty(ctx, randomProperty(r, owner.ID)))
	}

	var all []models.Property
	require.NoError(t, db.GetDB().Find(&all).Error)
	require.Len(t, all, 150)

	for i := 0; i < 200; i++ {
		req := randomRequest(r)
		f, err := search.Compile(req)
		require.NoError(t, err)

		got, err := db.FindPublished(ctx, f)
		require.NoError(t, err)

		var want []models.Property
		for _, p := range all {
			if f.Matches(p) {
				want = append(want, p)
			}
		}
		assert.Equal(t, ids(want), ids(got), "request %+v", req)
	}
}

func TestFindPublished_UnicodePhrase(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner, _ := createUser(t, db, "owner")

	villa := &models.Property{
		OwnerID: owner.ID, Title: "villa", Description: "Élégant ÉTÉ villa near the sea", Published: true,
		AdvertType: models.AdvertForSale, PropertyType: models.PropertyHouse,
	}
	require.NoError(t, db.CreateProperty(ctx, villa))
	require.NoError(t, db.CreateProperty(ctx, &models.Property{
		OwnerID: owner.ID, Title: "flat", Description: "Maison À Vendre", Published: true,
		AdvertType: models.AdvertForSale, PropertyType: models.PropertyApartment,
	}))

	for _, phrase := range []string{"élégant", "ÉLÉGANT", "été villa", "Été"} {
		f, err := search.Compile(search.Request{PriceTier: "$0+", BedroomsTier: "0+", BathroomsTier: "0+", Phrase: phrase})
		require.NoError(t, err)

		got, err := db.FindPublished(ctx, f)
		require.NoError(t, err)
		require.Len(t, got, 1, phrase)
		assert.Equal(t, villa.ID, got[0].ID)
		assert.True(t, f.Matches(got[0]))
	}

	f, err := search.Compile(search.Request{PriceTier: "Any", BedroomsTier: "0+", BathroomsTier: "0+", Phrase: "à vendre"})
	require.NoError(t, err)
	got, err := db.FindPublished(ctx, f)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUnicodeLower(t *testing.T) {
	db := setupTestDB(t)

	var lowered string
	require.NoError(t, db.GetDB().Raw("SELECT LOWER(?)", "Élégant ÉTÉ À").Scan(&lowered).Error)
	assert.Equal(t, "élégant été à", lowered)

	var null sql.NullString
	require.NoError(t, db.GetDB().Raw("SELECT LOWER(NULL)").Scan(&null).Error)
	assert.False(t, null.Valid)
}

func TestFindPublished_Sorting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner, _ := createUser(t, db, "owner")

	for _, price := range []float64{300, 100, 200} {
		require.NoError(t, db.CreateProperty(ctx, &models.Property{
			OwnerID: owner.ID, Title: "p", Price: price, Published: true,
			AdvertType: models.AdvertForSale, PropertyType: models.PropertyHouse,
		}))
	}

	prices := func(sortOrder string) []float64 {
		f, err := search.Compile(search.Request{PriceTier: "Any", BedroomsTier: "0+", BathroomsTier: "0+", Sort: sortOrder})
		require.NoError(t, err)
		got, err := db.FindPublished(ctx, f)
		require.NoError(t, err)
		out := make([]float64, 0, len(got))
		for _, p := range got {
			out = append(out, p.Price)
		}
		return out
	}

	assert.Equal(t, []float64{300, 100, 200}, prices(""))
	assert.Equal(t, []float64{100, 200, 300}, prices("price_asc"))
	assert.Equal(t, []float64{300, 200, 100}, prices("price_desc"))
}

func TestPropertyCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner, _ := createUser(t, db, "owner")

	p := &models.Property{
		OwnerID:      owner.ID,
		Title:        "lovely cottage",
		Description:  "close to the river",
		Price:        100000,
		Tax:          0.15,
		AdvertType:   models.AdvertForSale,
		PropertyType: models.PropertyHouse,
	}
	require.NoError(t, db.CreateProperty(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Regexp(t, `^REF-[A-Z0-9]{10}$`, p.RefCode)

	got, err := db.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lovely Cottage", got.Title)
	assert.Equal(t, "Close to the river", got.Description)
	assert.False(t, got.Published)
	assert.Equal(t, 115000.0, got.FinalPrice())

	got.Title = "renamed cottage"
	got.Views = 99
	got.Published = true
	require.NoError(t, db.UpdateProperty(ctx, got))

	reloaded, err := db.GetProperty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Cottage", reloaded.Title)
	assert.Zero(t, reloaded.Views)
	assert.False(t, reloaded.Published)

	published, err := db.SetPublished(ctx, p.ID, true)
	require.NoError(t, err)
	assert.True(t, published.Published)

	require.NoError(t, db.GetDB().Create(&models.PropertyView{PropertyID: p.ID, IP: "1.1.1.1"}).Error)
	views, err := db.ListPropertyViews(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	require.NoError(t, db.DeleteProperty(ctx, p.ID))
	_, err = db.GetProperty(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPropertyNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	views, err = db.ListPropertyViews(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, views)

	assert.ErrorIs(t, db.DeleteProperty(ctx, p.ID), ErrPropertyNotFound)
	_, err = db.SetPublished(ctx, p.ID, false)
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestListProperties(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice, _ := createUser(t, db, "alice")
	bob, _ := createUser(t, db, "bob")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.CreateProperty(ctx, &models.Property{OwnerID: alice.ID, Title: "a", AdvertType: models.AdvertForSale, PropertyType: models.PropertyHouse}))
	}
	require.NoError(t, db.CreateProperty(ctx, &models.Property{OwnerID: bob.ID, Title: "b", AdvertType: models.AdvertForRent, PropertyType: models.PropertyOffice}))

	all, total, err := db.ListProperties(ctx, nil, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)
	assert.Equal(t, bob.ID, all[0].OwnerID, "newest first")

	own, total, err := db.ListProperties(ctx, &alice.ID, Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, own, 1)
	assert.Equal(t, alice.ID, own[0].OwnerID)
}

func TestListPublishedByOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	agent, _ := createUser(t, db, "agent")

	draft := &models.Property{OwnerID: agent.ID, Title: "draft", AdvertType: models.AdvertForSale, PropertyType: models.PropertyHouse}
	live := &models.Property{OwnerID: agent.ID, Title: "live", AdvertType: models.AdvertForSale, PropertyType: models.PropertyHouse}
	require.NoError(t, db.CreateProperty(ctx, draft))
	require.NoError(t, db.CreateProperty(ctx, live))
	_, err := db.SetPublished(ctx, live.ID, true)
	require.NoError(t, err)

	got, total, err := db.ListPublishedByOwner(ctx, agent.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, live.ID, got[0].ID)
}
