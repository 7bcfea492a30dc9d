package repost

import (
	"github.com/slok/bulkr/internal/marketplace"
)

// BuildDraft builds the draft creation payload from the source listing.
// It's a pure function, the same inputs always produce the same payload.
func BuildDraft(src marketplace.Listing, photoIDs []string, correlationToken string) marketplace.DraftPayload {
	draft := baseDraft(src, correlationToken)
	draft.ID = ""

	draft.AssignedPhotos = make([]marketplace.AssignedPhoto, 0, len(photoIDs))
	for _, id := range photoIDs {
		draft.AssignedPhotos = append(draft.AssignedPhotos, marketplace.AssignedPhoto{ID: marketplace.ID(id)})
	}

	return marketplace.DraftPayload{Draft: draft}
}

// BuildCompletion builds the draft completion payload from the draft listing
// as stored remotely. The photos are the ones the draft has assigned.
func BuildCompletion(draft marketplace.Listing, correlationToken string) marketplace.CompletionPayload {
	d := baseDraft(draft, correlationToken)

	d.AssignedPhotos = make([]marketplace.AssignedPhoto, 0, len(draft.Photos))
	for _, p := range draft.Photos {
		d.AssignedPhotos = append(d.AssignedPhotos, marketplace.AssignedPhoto{ID: p.ID})
	}

	return marketplace.CompletionPayload{Draft: d}
}

func baseDraft(l marketplace.Listing, correlationToken string) marketplace.Draft {
	brand := ""
	if l.BrandDTO != nil {
		brand = l.BrandDTO.Title
	}

	colors := []int64{}
	for _, c := range []*int64{l.Color1ID, l.Color2ID} {
		if c != nil {
			colors = append(colors, *c)
		}
	}

	return marketplace.Draft{
		ID:            l.ID,
		Title:         l.Title,
		SizeID:        l.SizeID,
		CatalogID:     l.CatalogID,
		IsUnisex:      l.Unisex(),
		PackageSizeID: l.PackageSizeID,
		ShipmentPrices: marketplace.ShipmentPrices{
			Domestic:      l.DomesticShipmentPrice,
			International: l.InternationalShipmentPrice,
		},
		BrandID:               l.BrandID,
		StatusID:              l.StatusID,
		Description:           l.Description,
		Currency:              l.Currency,
		Price:                 float64(l.Price.Amount),
		ISBN:                  l.ISBN,
		MeasurementWidth:      l.MeasurementWidth,
		MeasurementLength:     l.MeasurementLength,
		Model:                 l.Model,
		VideoGameRatingID:     l.VideoGameRatingID,
		ItemAttributes:        l.ItemAttributes,
		Manufacturer:          l.Manufacturer,
		ManufacturerLabelling: l.ManufacturerLabelling,
		Brand:                 brand,
		ColorIDs:              colors,
		TempUUID:              correlationToken,
	}
}
