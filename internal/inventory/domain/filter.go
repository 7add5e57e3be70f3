package domain

// BatchFilter narrows batch listings. Zero values match everything; a zero
// Limit returns every matching batch.
type BatchFilter struct {
	Status          Status
	BrandType       BrandType
	StorageLocation StorageLocation
	IsLowStock      *bool
	Search          string
	Page            int
	Limit           int
}

// Offset is the number of rows skipped for the requested page
func (f BatchFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
