package models

import "time"

// SuperAdminLoginRequest is the body of POST /api/auth/super-admin.
type SuperAdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SuperAdminLoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateAdminCodeRequest is the body of POST /api/admin/create.
type CreateAdminCodeRequest struct {
	AdminCode string `json:"adminCode" binding:"required,min=4,max=32,alphanum"`
	MaxRooms  int    `json:"maxRooms" binding:"omitempty,min=1,max=100"`
}

// VerifyAdminCodeRequest is the body of POST /api/admin/verify.
type VerifyAdminCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type VerifyAdminCodeResponse struct {
	Valid          bool `json:"valid"`
	RemainingQuota int  `json:"remainingQuota"`
}

type ResultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
