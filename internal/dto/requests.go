package dto

// RegisterRequest represents the request to register a new account
type RegisterRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	ReferralCode string `json:"referral_code"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateDepositRequest represents the request to open a deposit negotiation
type CreateDepositRequest struct {
	RequestedAmount float64 `json:"requested_amount" binding:"required"`
	Comment         *string `json:"comment"`
}

// ProposeTermsRequest represents admin-proposed deposit terms
type ProposeTermsRequest struct {
	Method         string  `json:"method" binding:"required"`
	AgreedAmount   float64 `json:"agreed_amount" binding:"required"`
	FeeRate        float64 `json:"fee_rate"`
	PaymentDetails *string `json:"payment_details"`
}

// AttachProofRequest represents a payment proof reference
type AttachProofRequest struct {
	ProofURL string `json:"proof_url" binding:"required"`
}

// RejectDepositRequest represents the request to reject a deposit
type RejectDepositRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateJobRequest represents the request to create a testing job
type CreateJobRequest struct {
	Title         string  `json:"title" binding:"required"`
	Description   *string `json:"description"`
	Bounty        float64 `json:"bounty" binding:"required"`
	MaxApplicants int     `json:"max_applicants" binding:"required"`
}

// CreateListingRequest represents the request to publish a listing
type CreateListingRequest struct {
	Title                   string   `json:"title" binding:"required"`
	Price                   float64  `json:"price" binding:"required"`
	ProductType             string   `json:"product_type" binding:"required"`
	DownloadURL             *string  `json:"download_url"`
	AutoDeliver             bool     `json:"auto_deliver"`
	AffiliateCommissionRate *float64 `json:"affiliate_commission_rate"`
}

// PurchaseRequest represents the request to buy a listing
type PurchaseRequest struct {
	ListingID string  `json:"listing_id" binding:"required"`
	Ref       *string `json:"ref"`
}

// GrantBonusRequest represents an admin bonus grant
type GrantBonusRequest struct {
	UserID   string  `json:"user_id" binding:"required"`
	Role     string  `json:"role" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
	TTLHours int     `json:"ttl_hours"`
	Comment  *string `json:"comment"`
}

// AdminCreditRequest represents a manual balance adjustment by an admin
type AdminCreditRequest struct {
	UserID  string  `json:"user_id" binding:"required"`
	Role    string  `json:"role" binding:"required"`
	Amount  float64 `json:"amount" binding:"required"`
	Comment *string `json:"comment"`
}

// ReleaseEarningsRequest represents an admin release of pending earnings
type ReleaseEarningsRequest struct {
	UserID string  `json:"user_id" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
}
