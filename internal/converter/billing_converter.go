package converter

import (
	"clinicflow/internal/delivery/dto"
	"clinicflow/internal/domain/entity"
)

// BillingToResponse converts a Billing entity to BillingResponse DTO
func BillingToResponse(billing *entity.Billing) *dto.BillingResponse {
	if billing == nil {
		return nil
	}

	items := make([]dto.BillingItemResponse, len(billing.Items))
	for i, item := range billing.Items {
		items[i] = dto.BillingItemResponse{
			ID:       item.ID,
			ItemID:   item.ItemID,
			Name:     item.Name,
			Amount:   item.Amount,
			Quantity: item.Quantity,
		}
	}

	return &dto.BillingResponse{
		ID:            billing.ID,
		AppointmentID: billing.AppointmentID,
		Status:        string(billing.Status),
		Subtotal:      billing.Subtotal,
		Tax:           billing.Tax,
		Discount:      billing.Discount,
		Total:         billing.Total,
		PaymentMethod: billing.PaymentMethod,
		PaidAt:        billing.PaidAt,
		Items:         items,
		CreatedAt:     billing.CreatedAt,
		UpdatedAt:     billing.UpdatedAt,
	}
}
