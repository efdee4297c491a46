package auth

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// "2006-01-02"
	BirthDate     string  `json:"birthDate"`
	GuardianName  *string `json:"guardianName,omitempty"`
	GuardianPhone *string `json:"guardianPhone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserSummary struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type TokenResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}
