package httpapi

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

const dateLayout = "2006-01-02"

// Emptiness is checked by the service so that the messages stay
// "email is required" and "password is required".
type credentialsRequest struct {
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"max=72"`
}

type refreshRequest struct {
	AuthToken    string `json:"auth_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type profileRequest struct {
	FullName    string `json:"full_name" validate:"max=200"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

type tokensResponse struct {
	AuthToken    string `json:"auth_token"`
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	FullName    string          `json:"full_name,omitempty"`
	DateOfBirth string          `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	Tokens      *tokensResponse `json:"tokens,omitempty"`
}

func newUserResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	}
	if u.DateOfBirth != nil {
		resp.DateOfBirth = u.DateOfBirth.Format(dateLayout)
	}
	return resp
}

func newTokensResponse(p models.TokenPair) *tokensResponse {
	return &tokensResponse{AuthToken: p.AccessToken, RefreshToken: p.RefreshToken}
}

func (r profileRequest) toProfile() (models.Profile, error) {
	p := models.Profile{FullName: r.FullName}
	if r.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, r.DateOfBirth)
		if err != nil {
			return models.Profile{}, err
		}
		p.DateOfBirth = &dob
	}
	return p, nil
}
