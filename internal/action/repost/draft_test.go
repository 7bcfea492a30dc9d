package repost_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/bulkr/internal/action/repost"
	"github.com/slok/bulkr/internal/marketplace"
)

func int64p(i int64) *int64 { return &i }

func TestBuildDraft(t *testing.T) {
	tests := map[string]struct {
		listing  marketplace.Listing
		photoIDs []string
		expDraft marketplace.DraftPayload
	}{
		"A listing should be projected into a draft without id.": {
			listing: marketplace.Listing{
				ID:                    "11",
				Title:                 "Jacket",
				Description:           "Blue jacket",
				SizeID:                int64p(206),
				CatalogID:             int64p(1206),
				IsUnisex:              json.RawMessage(`1`),
				DomesticShipmentPrice: json.RawMessage(`"2.5"`),
				StatusID:              int64p(2),
				Currency:              "EUR",
				Price:                 marketplace.Price{Amount: 12.5, CurrencyCode: "EUR"},
				BrandDTO:              &marketplace.Brand{ID: "53", Title: "Acme"},
				Color1ID:              int64p(1),
				Color2ID:              int64p(7),
				Photos:                []marketplace.Photo{{ID: "1", FullSizeURL: "https://img/1"}},
			},
			photoIDs: []string{"100", "101"},
			expDraft: marketplace.DraftPayload{
				Draft: marketplace.Draft{
					Title:          "Jacket",
					Description:    "Blue jacket",
					SizeID:         int64p(206),
					CatalogID:      int64p(1206),
					IsUnisex:       true,
					ShipmentPrices: marketplace.ShipmentPrices{Domestic: json.RawMessage(`"2.5"`)},
					StatusID:       int64p(2),
					Currency:       "EUR",
					Price:          12.5,
					Brand:          "Acme",
					ColorIDs:       []int64{1, 7},
					AssignedPhotos: []marketplace.AssignedPhoto{{ID: "100"}, {ID: "101"}},
					TempUUID:       "tok",
				},
			},
		},

		"Missing colors, brand and photos should be empty but present.": {
			listing:  marketplace.Listing{ID: "11", Title: "Jacket", Color2ID: int64p(4)},
			photoIDs: nil,
			expDraft: marketplace.DraftPayload{
				Draft: marketplace.Draft{
					Title:          "Jacket",
					ColorIDs:       []int64{4},
					AssignedPhotos: []marketplace.AssignedPhoto{},
					TempUUID:       "tok",
				},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := repost.BuildDraft(test.listing, test.photoIDs, "tok")
			assert.Equal(t, test.expDraft, got)
		})
	}
}

func TestBuildDraftIsDeterministic(t *testing.T) {
	require := require.New(t)

	l := marketplace.Listing{
		ID:       "11",
		Title:    "Jacket",
		Price:    marketplace.Price{Amount: 3},
		BrandDTO: &marketplace.Brand{Title: "Acme"},
		Color1ID: int64p(3),
	}

	d1, err := json.Marshal(repost.BuildDraft(l, []string{"1", "2"}, "tok"))
	require.NoError(err)
	d2, err := json.Marshal(repost.BuildDraft(l, []string{"1", "2"}, "tok"))
	require.NoError(err)
	assert.Equal(t, d1, d2)

	var raw map[string]map[string]any
	require.NoError(json.Unmarshal(d1, &raw))
	assert.Nil(t, raw["draft"]["id"])
	assert.Equal(t, []any{float64(3)}, raw["draft"]["color_ids"])
	assert.Equal(t, "tok", raw["draft"]["temp_uuid"])
	assert.Contains(t, string(d1), `"feedback_id":null`)
}

func TestBuildCompletion(t *testing.T) {
	draft := marketplace.Listing{
		ID:     "500",
		Title:  "Jacket",
		Price:  marketplace.Price{Amount: 9},
		Photos: []marketplace.Photo{{ID: "100"}, {ID: "101"}},
	}

	got := repost.BuildCompletion(draft, "tok")

	exp := marketplace.CompletionPayload{
		Draft: marketplace.Draft{
			ID:             "500",
			Title:          "Jacket",
			Price:          9,
			ColorIDs:       []int64{},
			AssignedPhotos: []marketplace.AssignedPhoto{{ID: "100"}, {ID: "101"}},
			TempUUID:       "tok",
		},
	}
	assert.Equal(t, exp, got)
}
