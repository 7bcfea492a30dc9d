package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a marketplace identifier.
// The API uses numeric ids, but they are opaque for us, so they are kept as strings
// and encoded back as numbers when possible.
type ID string

func (i ID) MarshalJSON() ([]byte, error) {
	if i == "" {
		return []byte("null"), nil
	}

	if _, err := strconv.ParseInt(string(i), 10, 64); err == nil {
		return []byte(i), nil
	}

	return json.Marshal(string(i))
}

func (i *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*i = ID(n.String())

	return nil
}

// Amount is a money amount, the API sends it as a string or as a number.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	*a = Amount(f)

	return nil
}

// Photo is a photo stored on a listing.
type Photo struct {
	ID          ID     `json:"id"`
	FullSizeURL string `json:"full_size_url"`
}

// Price is the listing price.
type Price struct {
	Amount       Amount `json:"amount"`
	CurrencyCode string `json:"currency_code,omitempty"`
}

// Brand is the listing brand.
type Brand struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// Listing is a listing (or draft) as returned by the item upload API.
// Fields we only pass through, and whose shape we don't care about, are kept raw.
type Listing struct {
	ID                         ID              `json:"id"`
	Title                      string          `json:"title"`
	Description                string          `json:"description"`
	SizeID                     *int64          `json:"size_id"`
	CatalogID                  *int64          `json:"catalog_id"`
	IsUnisex                   json.RawMessage `json:"is_unisex"`
	PackageSizeID              *int64          `json:"package_size_id"`
	DomesticShipmentPrice      json.RawMessage `json:"domestic_shipment_price"`
	InternationalShipmentPrice json.RawMessage `json:"international_shipment_price"`
	BrandID                    *int64          `json:"brand_id"`
	StatusID                   *int64          `json:"status_id"`
	Currency                   string          `json:"currency"`
	Price                      Price           `json:"price"`
	ISBN                       json.RawMessage `json:"isbn"`
	MeasurementWidth           json.RawMessage `json:"measurement_width"`
	MeasurementLength          json.RawMessage `json:"measurement_length"`
	Model                      json.RawMessage `json:"model"`
	VideoGameRatingID          *int64          `json:"video_game_rating_id"`
	ItemAttributes             json.RawMessage `json:"item_attributes"`
	Manufacturer               json.RawMessage `json:"manufacturer"`
	ManufacturerLabelling      json.RawMessage `json:"manufacturer_labelling"`
	BrandDTO                   *Brand          `json:"brand_dto"`
	Color1ID                   *int64          `json:"color1_id"`
	Color2ID                   *int64          `json:"color2_id"`
	Photos                     []Photo         `json:"photos"`
}

// Unisex returns the unisex flag, the API is loose about its type.
func (l Listing) Unisex() bool {
	s := strings.Trim(string(bytes.TrimSpace(l.IsUnisex)), `"`)
	switch s {
	case "", "null", "false", "0":
		return false
	default:
		return true
	}
}

// ShipmentPrices are the draft shipment prices.
type ShipmentPrices struct {
	Domestic      json.RawMessage `json:"domestic"`
	International json.RawMessage `json:"international"`
}

// AssignedPhoto is a photo reference inside a draft.
type AssignedPhoto struct {
	ID          ID  `json:"id"`
	Orientation int `json:"orientation"`
}

// Draft is the draft body used both to create and to complete a draft.
type Draft struct {
	ID                    ID              `json:"id"`
	Title                 string          `json:"title"`
	SizeID                *int64          `json:"size_id"`
	CatalogID             *int64          `json:"catalog_id"`
	IsUnisex              bool            `json:"is_unisex"`
	PackageSizeID         *int64          `json:"package_size_id"`
	ShipmentPrices        ShipmentPrices  `json:"shipment_prices"`
	BrandID               *int64          `json:"brand_id"`
	StatusID              *int64          `json:"status_id"`
	Description           string          `json:"description"`
	Currency              string          `json:"currency"`
	Price                 float64         `json:"price"`
	ISBN                  json.RawMessage `json:"isbn"`
	MeasurementWidth      json.RawMessage `json:"measurement_width"`
	MeasurementLength     json.RawMessage `json:"measurement_length"`
	Model                 json.RawMessage `json:"model"`
	VideoGameRatingID     *int64          `json:"video_game_rating_id"`
	ItemAttributes        json.RawMessage `json:"item_attributes"`
	Manufacturer          json.RawMessage `json:"manufacturer"`
	ManufacturerLabelling json.RawMessage `json:"manufacturer_labelling"`
	Brand                 string          `json:"brand"`
	ColorIDs              []int64         `json:"color_ids"`
	AssignedPhotos        []AssignedPhoto `json:"assigned_photos"`
	TempUUID              string          `json:"temp_uuid"`
}

// DraftPayload is the body used to create a draft.
type DraftPayload struct {
	Draft      Draft   `json:"draft"`
	FeedbackID *string `json:"feedback_id"`
}

// CompletionPayload is the body used to publish a draft.
type CompletionPayload struct {
	Draft Draft `json:"draft"`
}
