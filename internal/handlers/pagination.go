package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"corpsite/internal/models"

	"github.com/gin-gonic/gin"
)

// Feedback list query keys
const (
	filterSearch   = "search"
	filterType     = "type"
	filterStatus   = "status"
	filterDateFrom = "date_from"
	filterDateTo   = "date_to"
)

// ParsePage reads the 1-based page query parameter, falling back to 1 for
// missing or invalid values.
func ParsePage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ParseFilters returns a map of non-empty trimmed query params for the given keys.
func ParseFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, key := range keys {
		if val := strings.TrimSpace(c.Query(key)); val != "" {
			filters[key] = val
		}
	}
	return filters
}

// ParseFeedbackFilter builds the list filter shared by the feedback page and
// the export endpoint.
func ParseFeedbackFilter(c *gin.Context) models.FeedbackFilter {
	f := ParseFilters(c, filterSearch, filterType, filterStatus, filterDateFrom, filterDateTo)
	return models.FeedbackFilter{
		Search:   f[filterSearch],
		Type:     f[filterType],
		Status:   f[filterStatus],
		DateFrom: f[filterDateFrom],
		DateTo:   f[filterDateTo],
	}
}

// PageNumbers lists the pages shown by the pager, at most window wide and
// centred on current where possible.
func PageNumbers(current, total, window int) []int {
	if total < 1 {
		return nil
	}
	start := max(1, current-window/2)
	end := min(total, start+window-1)
	start = max(1, end-window+1)
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// FilterQuery encodes the non-empty filters so pager and export links keep them
func FilterQuery(f models.FeedbackFilter) string {
	v := url.Values{}
	for key, val := range map[string]string{
		filterSearch:   f.Search,
		filterType:     f.Type,
		filterStatus:   f.Status,
		filterDateFrom: f.DateFrom,
		filterDateTo:   f.DateTo,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v.Encode()
}
