package models

import "time"

// Listing is a directory entry for a game server community
type Listing struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	InviteURL   string `json:"inviteUrl"`   // Chat invite registered for the community
	ConnectCode string `json:"connectCode"` // cfx.re join code used for live status
	Website     string `json:"website,omitempty"`
	BannerKey   string `json:"bannerKey,omitempty"`
	Status      string `json:"status"` // pending, approved, rejected
	SubmittedBy string `json:"submittedBy"`

	// Claim state. The pending PIN never leaves the server.
	ClaimedByUserID    *string    `json:"claimedByUserId,omitempty"`
	Pin                *string    `json:"-"`
	PinExpiresAt       *time.Time `json:"-"`
	PinRequesterUserID *string    `json:"-"`

	ForumThreadID string    `json:"forumThreadId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Status constants shared by listings and MLOs
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// IsClaimed reports whether ownership has been transferred
func (l *Listing) IsClaimed() bool {
	return l.ClaimedByUserID != nil && *l.ClaimedByUserID != ""
}

// OwnedBy reports whether userID may edit the listing. The claimant owns a
// claimed listing; the submitter owns it until then.
func (l *Listing) OwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	if l.IsClaimed() {
		return *l.ClaimedByUserID == userID
	}
	return l.SubmittedBy == userID
}

// CreateListingRequest is the body of POST /api/v1/listings
type CreateListingRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=4000"`
	InviteURL   string `json:"inviteUrl" binding:"omitempty,max=200"`
	ConnectCode string `json:"connectCode" binding:"omitempty,alphanum,max=16"`
	Website     string `json:"website" binding:"omitempty,url,max=300"`
}

// UpdateListingRequest is the body of PUT /api/v1/listings/:id
type UpdateListingRequest = CreateListingRequest

// StatusRequest is the body of the moderation status endpoints
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved rejected"`
}

// RequestPinRequest is the body of POST /api/v1/listings/:id/claim/request-pin.
// The URL is checked by the claim service after the listing checks.
type RequestPinRequest struct {
	WebhookURL string `json:"webhookUrl"`
}

// VerifyPinRequest is the body of POST /api/v1/listings/:id/claim/verify.
// Pin is free text; everything but digits is stripped before comparison.
type VerifyPinRequest struct {
	Pin string `json:"pin"`
}

// PinIssued is returned after a PIN has been delivered
type PinIssued struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// ListingFilter represents filter parameters for querying listings
type ListingFilter struct {
	Query    string `form:"q"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// ServerStatus is the live state reported by the game-server API
type ServerStatus struct {
	Online     bool   `json:"online"`
	Hostname   string `json:"hostname,omitempty"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
}
