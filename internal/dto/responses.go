package dto

import (
	"github.com/testerwork/backend/internal/models"
)

// AuthResponse represents the result of register/login
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// WalletResponse represents a wallet with its spendable total
type WalletResponse struct {
	*models.Wallet
	Spendable float64 `json:"spendable"`
}

// PurchaseResponse represents the result of a purchase
type PurchaseResponse struct {
	Order *models.MarketOrder `json:"order"`
	Token *TokenIssued        `json:"download_token,omitempty"`
}

// TokenIssued exposes the issued token without the hidden download URL
type TokenIssued struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// RedeemResponse carries the download URL after a successful redeem
type RedeemResponse struct {
	DownloadURL string `json:"download_url"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
