package normalization

import (
	"sort"

	"regime-tier-lab/internal/domain"
)

// SortBars orders bars by date ASC. Bars sharing a date keep their input order,
// so the later delivery of a day stays last.
func SortBars(bars []domain.PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return compareBars(bars[i], bars[j]) < 0
	})
}

// compareBars returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareBars(a, b domain.PriceBar) int {
	da, db := domain.Day(a.Date), domain.Day(b.Date)
	if !da.Equal(db) {
		if da.Before(db) {
			return -1
		}
		return 1
	}
	return 0
}
