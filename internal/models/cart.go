package models

// CartItem est une ligne du panier envoyé par le client au checkout (jamais persistée).
type CartItem struct {
	PerfumeID string `json:"perfumeId"`
	Quantity  int    `json:"quantity"`
}
