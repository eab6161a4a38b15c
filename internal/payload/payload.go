package payload

import "encoding/json"

// FlutterwaveMeta holds the custom fields attached at checkout time.
type FlutterwaveMeta struct {
	OrderID string `json:"order_id"`
}

type FlutterwaveData struct {
	ID     json.Number     `json:"id"`
	TxRef  string          `json:"tx_ref"`
	Status string          `json:"status"`
	Meta   FlutterwaveMeta `json:"meta"`
}

type FlutterwaveWebhook struct {
	Event string           `json:"event"`
	Data  *FlutterwaveData `json:"data"`
}

type FlutterwaveVerifyData struct {
	ID     json.Number `json:"id"`
	TxRef  string      `json:"tx_ref"`
	Status string      `json:"status"`
}

type FlutterwaveVerifyResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    *FlutterwaveVerifyData `json:"data"`
}
