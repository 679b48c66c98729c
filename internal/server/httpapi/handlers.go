package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var errBodyRequired = fmt.Errorf("%w: body is required", common.ErrValidation)

// UserService is the account API consumed by the handlers.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, models.TokenPair, error)
	Refresh(ctx context.Context, headerAccess, bodyAccess, bodyRefresh string) (models.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, p models.Profile) (*models.User, error)
}

// UsersHandler serves /api/users.
type UsersHandler struct {
	users     UserService
	logger    logging.Logger
	validator *validator.Validate
}

func NewUsersHandler(users UserService, logger logging.Logger) *UsersHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &UsersHandler{users: users, logger: logger, validator: v}
}

func (h *UsersHandler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(u))
}

func (h *UsersHandler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, pair, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := newUserResponse(u)
	resp.Tokens = newTokensResponse(pair)
	writeJSON(w, http.StatusOK, resp)
}

func (h *UsersHandler) profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	u, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (h *UsersHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := req.toProfile()
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", common.ErrValidation))
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	u, err := h.users.UpdateProfile(r.Context(), userID, p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (h *UsersHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.users.Refresh(r.Context(), AccessTokenFromContext(r.Context()), req.AuthToken, req.RefreshToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newTokensResponse(pair))
}

func (h *UsersHandler) logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := h.users.Logout(r.Context(), userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the response and returns false.
func (h *UsersHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, r, h.logger, errBodyRequired)
			return false
		}
		writeError(w, r, h.logger, fmt.Errorf("%w: malformed JSON body", common.ErrValidation))
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		writeError(w, r, h.logger, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
}
