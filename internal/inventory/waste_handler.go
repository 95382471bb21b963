package inventory

import (
	"strings"

	"stok-takip/internal/auth"
	"stok-takip/internal/database"

	"github.com/gofiber/fiber/v2"
)

type WasteRequest struct {
	ProductID uint    `json:"productId" validate:"required"`
	Quantity  float64 `json:"quantity"`
	Reason    string  `json:"reason" validate:"max=200"`
}

// POST /api/stock/waste
// Records spoiled, broken or expired stock as a waste movement.
func CreateWasteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body WasteRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		res, err := RecordWaste(database.DB, auth.TenantID(c), actorFrom(c), StockOutInput{
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			Reason:    strings.TrimSpace(body.Reason),
		})
		if err != nil {
			return ledgerError(c, err)
		}
		return movementCreated(c, "Waste recorded", res)
	}
}
