package shared

// ListFilters carries the standard list page filters for master data.
type ListFilters struct {
	Search   string
	SortBy   string
	SortDir  string
	IsActive *bool

	CategoryID *int64
	Approval   string

	Page  int
	Limit int
}

// Offset converts page/limit into a SQL offset.
func (f ListFilters) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
