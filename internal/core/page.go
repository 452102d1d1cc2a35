package core

// Page is one slice of an ordered transaction listing.
type Page struct {
	Items       []Transaction `json:"items"`
	Page        int           `json:"page"`
	TotalPages  int           `json:"total_pages"`
	Total       int           `json:"total"`
	RowsPerPage int           `json:"rows_per_page"`
}

// ClampPage returns a valid 1-based page number and the matching offset.
// There is always at least one page, even when total is zero.
func ClampPage(page, total, perPage int) (int, int, int) {
	if perPage <= 0 {
		perPage = DefaultRowsPerPage
	}
	pages := (total + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return page, pages, (page - 1) * perPage
}
