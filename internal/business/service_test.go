package business

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
	"roamly/pkg/requestcontext"
)

type BusinessServiceSuite struct {
	suite.Suite

	store *InMemoryStore
	svc   *Service

	now     time.Time
	ownerID id.UserID
}

func TestBusinessServiceSuite(t *testing.T) {
	suite.Run(t, new(BusinessServiceSuite))
}

func (s *BusinessServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	s.ownerID = id.NewUserID()
	s.store = NewInMemoryStore()
	s.svc = NewService(s.store, nil, slog.Default())
}

func (s *BusinessServiceSuite) ctxAs(userID id.UserID, role id.Role) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *BusinessServiceSuite) create(reg string) *Business {
	b, err := s.svc.Create(s.ctxAs(s.ownerID, id.RoleUser), CreateParams{
		OwnerID:            s.ownerID,
		Name:               "Atlantic Tours",
		RegistrationNumber: reg,
		Banking:            BankingInfo{IBAN: "PT50000201231234567890154"},
	})
	s.Require().NoError(err)
	return b
}

func (s *BusinessServiceSuite) TestCreate() {
	s.Run("starts pending verification", func() {
		b := s.create("REG-001")
		s.Equal(VerificationPending, b.Verification.Status)
		s.True(b.Active)
	})

	s.Run("registration numbers are unique", func() {
		_, err := s.svc.Create(s.ctxAs(id.NewUserID(), id.RoleUser), CreateParams{
			OwnerID:            id.NewUserID(),
			Name:               "Copycat Tours",
			RegistrationNumber: "reg-001",
		})
		s.True(domerrors.HasCode(err, domerrors.CodeConflict))
	})
}

func (s *BusinessServiceSuite) TestBankingNeverSerialized() {
	b := s.create("REG-BANK")

	raw, err := json.Marshal(b)
	s.Require().NoError(err)
	s.NotContains(string(raw), "PT50000201231234567890154")
	s.NotContains(string(raw), "iban")
}

func (s *BusinessServiceSuite) TestVerify() {
	b := s.create("REG-VER")
	adminCtx := s.ctxAs(id.NewUserID(), id.RoleAdmin)

	s.Run("owners cannot verify their own business", func() {
		_, err := s.svc.Verify(s.ctxAs(s.ownerID, id.RoleUser), b.ID, VerificationVerified, "")
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})

	s.Run("pending cannot be reset via verify", func() {
		_, err := s.svc.Verify(adminCtx, b.ID, VerificationPending, "")
		s.True(domerrors.HasCode(err, domerrors.CodeValidation))
	})

	s.Run("admin verifies and the decision is stamped", func() {
		got, err := s.svc.Verify(adminCtx, b.ID, VerificationVerified, "docs checked")
		s.Require().NoError(err)
		s.Equal(VerificationVerified, got.Verification.Status)
		s.Equal("docs checked", got.Verification.Notes)
		s.Require().NotNil(got.Verification.VerifiedAt)
		s.False(got.Verification.VerifiedBy.IsNil())
	})

	s.Run("a decided business cannot be decided again", func() {
		_, err := s.svc.Verify(adminCtx, b.ID, VerificationRejected, "")
		s.True(domerrors.HasCode(err, domerrors.CodeConflict))
	})
}

func (s *BusinessServiceSuite) TestUpdatePermissions() {
	b := s.create("REG-UPD")
	name := "Renamed Tours"

	s.Run("owner updates", func() {
		got, err := s.svc.Update(s.ctxAs(s.ownerID, id.RoleUser), b.ID, Update{Name: &name})
		s.Require().NoError(err)
		s.Equal("Renamed Tours", got.Name)
	})

	s.Run("strangers are forbidden", func() {
		_, err := s.svc.Update(s.ctxAs(id.NewUserID(), id.RoleUser), b.ID, Update{Name: &name})
		s.True(domerrors.HasCode(err, domerrors.CodeForbidden))
	})
}

func (s *BusinessServiceSuite) TestDeleteHidesFromPublic() {
	b := s.create("REG-DEL")
	ownerCtx := s.ctxAs(s.ownerID, id.RoleUser)
	s.Require().NoError(s.svc.Delete(ownerCtx, b.ID))

	s.Run("public lookups miss", func() {
		_, err := s.svc.GetByID(s.ctxAs(id.NewUserID(), id.RoleUser), b.ID)
		s.True(domerrors.HasCode(err, domerrors.CodeNotFound))
	})

	s.Run("owner still sees it", func() {
		got, err := s.svc.GetByID(ownerCtx, b.ID)
		s.Require().NoError(err)
		s.False(got.Active)
	})
}

func (s *BusinessServiceSuite) TestPlanCountNeverNegative() {
	b := s.create("REG-CNT")
	ownerCtx := s.ctxAs(s.ownerID, id.RoleUser)

	s.Require().NoError(s.svc.IncrementPlanCount(ownerCtx, b.ID, 2))
	s.Require().NoError(s.svc.IncrementPlanCount(ownerCtx, b.ID, -5))

	got, err := s.svc.GetByID(ownerCtx, b.ID)
	s.Require().NoError(err)
	s.Equal(0, got.Stats.TotalPlans)
}
