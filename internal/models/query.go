package models

// Named filters.
const (
	FilterReasonablePrice  = "reasonable-price"
	FilterRecentlyReleased = "recently-released"
)

// Named sorts.
const (
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortDateAsc   = "date-asc"
	SortDateDesc  = "date-desc"
)

// Query is a read request against a catalog. It is passed by value and
// never mutated by the engine.
type Query struct {
	Page   int    `json:"page"`
	Size   int    `json:"size"`
	Brand  string `json:"brand,omitempty"`
	Filter string `json:"filter,omitempty"`
	Sort   string `json:"sort,omitempty"`
}

type Page struct {
	Items       []Product `json:"items"`
	CurrentPage int       `json:"currentPage"`
	PageCount   int       `json:"pageCount"`
	PageSize    int       `json:"pageSize"`
	Count       int       `json:"count"`
}

// Meta is the pagination block of the response envelope.
func (p Page) Meta() PageMeta {
	return PageMeta{
		CurrentPage: p.CurrentPage,
		PageCount:   p.PageCount,
		PageSize:    p.PageSize,
		Count:       p.Count,
	}
}

type PageMeta struct {
	CurrentPage int `json:"currentPage"`
	PageCount   int `json:"pageCount"`
	PageSize    int `json:"pageSize"`
	Count       int `json:"count"`
}

type Statistics struct {
	TotalCount       int  `json:"totalCount"`
	MatchedCount     int  `json:"matchedCount"`
	BrandCount       int  `json:"brandCount"`
	NewCount         int  `json:"newCount"`
	P50              int  `json:"p50"`
	P90              int  `json:"p90"`
	P95              int  `json:"p95"`
	LastReleasedDate Date `json:"lastReleasedDate"`
}

type ProductsData struct {
	Result []Product   `json:"result"`
	Meta   PageMeta    `json:"meta"`
	Stats  Statistics  `json:"stats"`
	Query  Query       `json:"query"`
	Source CatalogInfo `json:"catalog"`
}

type CatalogInfo struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
}

// ProductsResponse is the envelope returned by the read path.
type ProductsResponse struct {
	Success  bool         `json:"success"`
	Data     ProductsData `json:"data"`
	Duration string       `json:"duration,omitempty"`
	Cached   bool         `json:"cached,omitempty"`
}
