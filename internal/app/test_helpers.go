package app

import "github.com/vladislavdragonenkov/kitchenops/internal/domain"

// orderFixture возвращает валидный заказ для тестов пакета.
func orderFixture() domain.Order {
	return domain.Order{
		ClientName:    "Ana",
		Product:       "pepperoni",
		Size:          "mediana",
		Qty:           1,
		PaymentMethod: "efectivo",
	}
}
