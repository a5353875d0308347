package whatsapp

// newOrderPayload is the body of a proveedores_orden_compra message
type newOrderPayload struct {
	Phone        string `json:"numero_telefonico" validate:"required"`
	ProviderName string `json:"proveedor" validate:"required"`
	URL          string `json:"url" validate:"required,url"`
	OrderNumber  string `json:"orden_numero" validate:"required"`
}

// decisionPayload is the body of the confirmed and rejected messages
type decisionPayload struct {
	OrderNumber  string `json:"orden_compra" validate:"required"`
	ProviderName string `json:"proveedor" validate:"required"`
	URL          string `json:"url" validate:"required,url"`
	Phone        string `json:"numero_telefonico" validate:"required"`
}
