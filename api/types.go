package api

import "time"

// User is the backend's user representation. Roles are plain role names
// ("user", "admin").
type User struct {
	ID             int      `json:"id"`
	Username       string   `json:"username"`
	Email          *string  `json:"email,omitempty"`
	Fullname       *string  `json:"fullname,omitempty"`
	ProfilePicture *string  `json:"profile_picture,omitempty"`
	Disabled       bool     `json:"disabled"`
	Roles          []string `json:"roles"`
}

// HasRole reports whether the user carries the named role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserList is a paginated user listing (admin only).
type UserList struct {
	Users    []User `json:"users"`
	Skip     int    `json:"skip"`
	PageSize int    `json:"page_size"`
	Total    int    `json:"total"`
}

// PublicRegistration is the self-service signup payload.
type PublicRegistration struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email,omitempty"`
	Fullname *string `json:"fullname,omitempty"`
}

// AdminRegistration is the admin-side account creation payload. The backend
// names the password field hashed_password even though it receives plaintext
// and hashes server-side.
type AdminRegistration struct {
	Username string   `json:"username"`
	Password string   `json:"hashed_password"`
	Email    *string  `json:"email,omitempty"`
	Fullname *string  `json:"fullname,omitempty"`
	Disabled bool     `json:"disabled"`
	Roles    []string `json:"roles,omitempty"`
}

// UserUpdate is a partial update of a user record (admin only).
type UserUpdate struct {
	Email    *string  `json:"email,omitempty"`
	Fullname *string  `json:"fullname,omitempty"`
	Password *string  `json:"password,omitempty"`
	Disabled *bool    `json:"disabled,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// ProfilePicture is the response to a profile picture upload.
type ProfilePicture struct {
	ProfilePicture string `json:"profile_picture"`
}

// Market is a store/merchant a receipt belongs to.
type Market struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	TaxNumber string `json:"tax_number"`
}

// MarketCreate is a new market.
type MarketCreate struct {
	Name      string `json:"name"`
	TaxNumber string `json:"tax_number"`
}

// MarketUpdate is a partial market update.
type MarketUpdate struct {
	Name      *string `json:"name,omitempty"`
	TaxNumber *string `json:"tax_number,omitempty"`
}

// ReceiptItem is a line item on a receipt. Price is the extended price
// (unit price times quantity) as reported by the backend.
type ReceiptItem struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
}

// Receipt is a captured receipt with its market, address, and items.
type Receipt struct {
	ID               int           `json:"id"`
	Date             time.Time     `json:"date"`
	ReceiptNumber    string        `json:"receipt_number"`
	ImagePath        string        `json:"image_path"`
	OriginalFilename string        `json:"original_filename"`
	User             User          `json:"user"`
	Market           Market        `json:"market"`
	PostalCode       string        `json:"postal_code"`
	City             string        `json:"city"`
	StreetName       string        `json:"street_name"`
	StreetNumber     string        `json:"street_number"`
	Items            []ReceiptItem `json:"items"`
	Total            float64       `json:"total"`
}

// ReceiptList is a paginated receipt listing.
type ReceiptList struct {
	Receipts    []Receipt `json:"receipts"`
	Skip        int       `json:"skip"`
	Limit       int       `json:"limit"`
	Total       int       `json:"total"`
	HasNext     bool      `json:"has_next"`
	HasPrevious bool      `json:"has_previous"`
}

// ReceiptItemUpdate is a line item inside a receipt update. Items without an
// ID are created; omitted items are removed by the backend.
type ReceiptItemUpdate struct {
	ID        *int    `json:"id,omitempty"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit,omitempty"`
}

// ReceiptUpdate is a partial receipt update.
type ReceiptUpdate struct {
	Date          *time.Time          `json:"date,omitempty"`
	ReceiptNumber *string             `json:"receipt_number,omitempty"`
	MarketID      *int                `json:"market_id,omitempty"`
	PostalCode    *string             `json:"postal_code,omitempty"`
	City          *string             `json:"city,omitempty"`
	StreetName    *string             `json:"street_name,omitempty"`
	StreetNumber  *string             `json:"street_number,omitempty"`
	Items         []ReceiptItemUpdate `json:"items,omitempty"`
}

// ReceiptCreate is a manually entered receipt.
type ReceiptCreate struct {
	Date             time.Time `json:"date"`
	ReceiptNumber    string    `json:"receipt_number"`
	MarketID         int       `json:"market_id"`
	ImagePath        string    `json:"image_path,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty"`
}

// TotalSpent is the total-spent KPI.
type TotalSpent struct {
	TotalSpent float64 `json:"total_spent"`
}

// TotalReceipts is the receipt-count KPI.
type TotalReceipts struct {
	TotalReceipts int `json:"total_receipts"`
}

// AverageReceiptValue is the average-receipt-value KPI.
type AverageReceiptValue struct {
	AverageReceiptValue float64 `json:"average_receipt_value"`
}

// TopItem is one entry of the top-items KPI.
type TopItem struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	TotalSpent float64 `json:"total_spent"`
}

// TopItems is the top-items KPI.
type TopItems struct {
	Items []TopItem `json:"items"`
}

// TimeSeriesPoint is one bucket of a time series.
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// WordCloudItem is one entry of the purchased-items word cloud. Value is the
// purchase count driving the rendered size.
type WordCloudItem struct {
	Text       string  `json:"text"`
	Value      int     `json:"value"`
	TotalSpent float64 `json:"total_spent"`
}

// MarketTotalSpent is the per-market total-spent breakdown entry.
type MarketTotalSpent struct {
	MarketName string  `json:"market_name"`
	TotalSpent float64 `json:"total_spent"`
}

// MarketTotalSpentList is the per-market total-spent breakdown.
type MarketTotalSpentList struct {
	Markets []MarketTotalSpent `json:"markets"`
}

// MarketTotalReceipts is the per-market purchase-count breakdown entry.
type MarketTotalReceipts struct {
	MarketName    string `json:"market_name"`
	TotalReceipts int    `json:"total_receipts"`
}

// MarketTotalReceiptsList is the per-market purchase-count breakdown.
type MarketTotalReceiptsList struct {
	Markets []MarketTotalReceipts `json:"markets"`
}

// MarketAverageSpent is the per-market average-spent breakdown entry.
type MarketAverageSpent struct {
	MarketName   string  `json:"market_name"`
	AverageSpent float64 `json:"average_spent"`
}

// MarketAverageSpentList is the per-market average-spent breakdown.
type MarketAverageSpentList struct {
	Markets []MarketAverageSpent `json:"markets"`
}
