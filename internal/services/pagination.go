package services

const MaxPageSize = 100

// PageRequest is a 1-based page plus a page size, already validated by the
// caller. Zero values fall back to the listing's defaults.
type PageRequest struct {
	Page int
	Size int
}

func (p PageRequest) normalize(defaultSize int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = defaultSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}
