package category

type Category struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_id"`
	Name     string `json:"name"`
	NameKK   string `json:"name_kk"`
	Slug     string `json:"slug"`
	Image    string `json:"image"`
}
