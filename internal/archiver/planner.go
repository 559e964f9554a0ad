package archiver

import "fmt"

// DefaultPageSize is how many articles one listing page shows.
const DefaultPageSize = 20

// PageCount returns how many listing pages to visit for totalArticles.
//
// It is floor(total/size)+1, so an exact multiple of pageSize plans one
// trailing empty page (40 articles -> 3 pages).
// TODO: confirm with the box owners whether the trailing empty page at exact
// multiples is wanted before switching to ceiling division.
func PageCount(totalArticles, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if totalArticles < 0 {
		totalArticles = 0
	}
	return totalArticles/pageSize + 1
}

// BoxURL returns the box page of a writer.
func BoxURL(baseURL string, boxID int64) string {
	return fmt.Sprintf("%s/boxes/%d", baseURL, boxID)
}

// PlanPages returns the listing pages of writer in page order.
func PlanPages(baseURL string, writer Writer, pageSize int) []ListingPage {
	count := PageCount(writer.ArticleCount, pageSize)
	pages := make([]ListingPage, 0, count)
	box := BoxURL(baseURL, writer.ID)
	for order := 1; order <= count; order++ {
		pages = append(pages, ListingPage{
			Order: order,
			URL:   fmt.Sprintf("%s?page=%d", box, order),
		})
	}
	return pages
}
