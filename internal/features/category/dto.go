package category

import (
	"database/sql"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
)

// CategoryForm is the admin create/edit form after parsing.
type CategoryForm struct {
	Name     string        `json:"name" validate:"required"`
	NameKK   string        `json:"name_kk"`
	Slug     string        `json:"slug" validate:"required"`
	ParentID sql.NullInt64 `json:"parent_id"`

	// Image is the URL kept on edit; an upload replaces it.
	Image string `json:"-"`
}

type DeleteCategoryRequest struct {
	ID    handlerutils.ID `json:"id"`
	Image string          `json:"image"`
}
