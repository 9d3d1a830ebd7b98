package cart

import cartsvc "github.com/angelmondragon/bakery-backend/internal/cart"

type RefreshResponse struct {
	Cart    *cartsvc.Cart `json:"cart"`
	Changed bool          `json:"changed"`
}

type ValidateResponse struct {
	Valid  bool            `json:"valid"`
	Issues []cartsvc.Issue `json:"issues"`
}

func newValidateResponse(issues []cartsvc.Issue) ValidateResponse {
	if issues == nil {
		issues = []cartsvc.Issue{}
	}
	return ValidateResponse{Valid: len(issues) == 0, Issues: issues}
}
