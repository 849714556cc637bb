// File: internal/usecase/membership_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"membership-marketplace/internal/domain"
	"membership-marketplace/internal/domain/model"
	"membership-marketplace/internal/domain/ports/repository"
)

// Compile-time check
var _ MembershipUseCase = (*membershipUC)(nil)

// cardTokenTTL bounds how long a presented card QR stays scannable.
const cardTokenTTL = 2 * time.Minute

// MembershipCard is the QR payload presented at a provider's door.
type MembershipCard struct {
	Token     string
	ExpiresAt time.Time
	PlanID    string
	EndDate   time.Time
}

// ScanResult reports a validated scan back to the provider terminal.
type ScanResult struct {
	UserID  string
	PlanID  string
	EndDate time.Time
}

// MembershipUseCase issues and verifies short-lived membership card tokens.
// The token is a signed JWT rather than a DB code: scans are frequent and
// read-mostly, so validation must not hit the voucher code machinery.
type MembershipUseCase interface {
	Plans(ctx context.Context) ([]*model.MembershipPlan, error)
	Card(ctx context.Context, userID string) (*MembershipCard, error)
	Scan(ctx context.Context, token string) (*ScanResult, error)
}

type membershipUC struct {
	memberships repository.UserMembershipRepository
	plans       repository.MembershipPlanRepository
	jwtSecret   []byte
	log         *zerolog.Logger
}

func NewMembershipUseCase(
	memberships repository.UserMembershipRepository,
	plans repository.MembershipPlanRepository,
	jwtSecret []byte,
	logger *zerolog.Logger,
) *membershipUC {
	l := logger.With().Str("component", "membership").Logger()
	return &membershipUC{memberships: memberships, plans: plans, jwtSecret: jwtSecret, log: &l}
}

func (u *membershipUC) Plans(ctx context.Context) ([]*model.MembershipPlan, error) {
	return u.plans.ListAll(ctx, nil)
}

type cardClaims struct {
	MembershipID string `json:"mid"`
	jwt.RegisteredClaims
}

func (u *membershipUC) Card(ctx context.Context, userID string) (*MembershipCard, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	m, err := u.memberships.FindByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if !m.Valid(now) {
		return nil, fmt.Errorf("%w: membership expired or inactive", domain.ErrConflict)
	}

	expiresAt := now.Add(cardTokenTTL)
	claims := cardClaims{
		MembershipID: m.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &MembershipCard{
		Token:     token,
		ExpiresAt: expiresAt,
		PlanID:    m.PlanID,
		EndDate:   m.EndDate,
	}, nil
}

func (u *membershipUC) Scan(ctx context.Context, token string) (*ScanResult, error) {
	if token == "" {
		return nil, domain.ErrInvalidArgument
	}
	var claims cardClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return u.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrCodeExpired
		}
		return nil, domain.ErrCodeNotFound
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrCodeNotFound
	}

	m, err := u.memberships.FindByUser(ctx, nil, claims.Subject)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if !m.Valid(now) {
		return nil, fmt.Errorf("%w: membership expired or inactive", domain.ErrConflict)
	}
	if err := u.memberships.TouchScan(ctx, nil, m.ID); err != nil {
		u.log.Error().Err(err).Str("membership_id", m.ID).Msg("record scan time")
	}
	return &ScanResult{UserID: m.UserID, PlanID: m.PlanID, EndDate: m.EndDate}, nil
}
