package model

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateTaskRequest struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type SessionResponse struct {
	User  PublicUser `json:"user"`
	Token string     `json:"token"`
}
