package engine

// Viewer is the identity a request runs as. The zero value is an anonymous viewer.
type Viewer struct {
	ID      uint
	IsAdmin bool
}

// Anonymous reports whether the viewer is not authenticated.
func (v Viewer) Anonymous() bool {
	return v.ID == 0
}

// Page selects a window of a list.
type Page struct {
	Limit  int
	Offset int
}
