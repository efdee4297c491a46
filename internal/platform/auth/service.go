package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError marks a malformed registration/login request.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store  *Store
	secret []byte
	clock  Clock
}

func NewService(db *sql.DB, secret []byte) *Service {
	return &Service{store: NewStore(db), secret: secret, clock: realClock{}}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	if req.Name == "" {
		return nil, invalid("missing field: name")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, invalid("invalid email")
	}
	if len(req.Password) < 6 {
		return nil, invalid("password must be at least 6 chars")
	}
	if req.BirthDate == "" {
		return nil, invalid("missing field: birthDate")
	}

	birth, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, invalid("invalid birthDate")
	}

	now := s.clock.Now()
	if ageAt(birth, now) < 18 && (req.GuardianPhone == nil || *req.GuardianPhone == "") {
		return nil, invalid("minors must register a guardian phone number")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		UserID:       ulid.Make().String(),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		BirthDate:    birth,
		Role:         RoleStudent,
		CreatedAt:    now,
	}
	if ageAt(birth, now) < 18 {
		if req.GuardianName != nil {
			u.GuardianName = sql.NullString{String: *req.GuardianName, Valid: true}
		}
		u.GuardianPhone = sql.NullString{String: *req.GuardianPhone, Valid: true}
	}

	if err := s.store.Insert(ctx, u); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.tokenFor(u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, invalid("missing credentials")
	}

	u, err := s.store.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.tokenFor(u)
}

func (s *Service) tokenFor(u *User) (*TokenResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.UserID,
		"role": u.Role,
		"exp":  s.clock.Now().Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		Token: signed,
		User:  UserSummary{UserID: u.UserID, Name: u.Name, Role: u.Role},
	}, nil
}

// ageAt computes whole years between birth and now, calendar-accurate.
func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
