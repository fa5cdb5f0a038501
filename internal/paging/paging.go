// Package paging provides the page-boundary arithmetic shared by the store
// queries and the renderer. The helpers are independent of any storage or
// transport concern.
package paging

// TotalPages returns the number of pages needed to show total items at
// perPage items per page. An empty result set still occupies one page, so
// the result is never below 1.
func TotalPages(total int64, perPage int) int {
	if perPage < 1 {
		perPage = 1
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		return 1
	}
	return pages
}

// Offset returns the zero-based row offset of the given 1-based page.
// Pages below 1 are treated as page 1.
func Offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}
