package product

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type Visibility int

const (
	// VisibilityCustomer lists only products in stock.
	VisibilityCustomer Visibility = iota
	// VisibilityAdmin lists every product.
	VisibilityAdmin
)

const listingPageSize = 100

const productColumns = `id, name, name_kk, price, old_price, unit, image, description, description_kk, stock, category_id`

// buildListingQuery assembles the catalog listing query. Filter values only
// ever travel as bound parameters; the query text depends solely on which
// filters are present. Recognized filters: categoryId / category_id (integer)
// and q (free text over name, name_kk and description). Others are ignored.
func buildListingQuery(visibility Visibility, filters url.Values) (string, []any) {
	query := `SELECT ` + productColumns + ` FROM products`

	whereClauses := []string{"stock > 0"}
	if visibility == VisibilityAdmin {
		whereClauses = []string{"1=1"}
	}
	queryParams := []any{}

	for _, key := range [...]string{"categoryId", "category_id"} {
		for _, v := range filters[key] {
			id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				continue
			}

			whereClauses = append(
				whereClauses,
				fmt.Sprintf(
					"category_id = $%d",
					len(queryParams)+1,
				),
			)
			queryParams = append(queryParams, id)
		}
	}

	for _, term := range filters["q"] {
		if term == "" {
			continue
		}

		whereClauses = append(
			whereClauses,
			fmt.Sprintf(
				"(name ILIKE $%d OR name_kk ILIKE $%d OR description ILIKE $%d)",
				len(queryParams)+1, len(queryParams)+2, len(queryParams)+3,
			),
		)

		pattern := "%" + term + "%"
		queryParams = append(queryParams, pattern, pattern, pattern)
	}

	query += " WHERE " + strings.Join(whereClauses, " AND ")
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT %d", listingPageSize)

	return query, queryParams
}
