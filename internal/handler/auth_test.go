package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stygo/stygo-backend/internal/config"
	"github.com/stygo/stygo-backend/internal/queue"
	"github.com/stygo/stygo-backend/internal/repository"
	"github.com/stygo/stygo-backend/internal/utils"
)

// ----- in-memory fakes -----

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]repository.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, byID: map[uint64]repository.User{}}
}

func (s *fakeUserStore) Create(ctx context.Context, phone, email, password string, cost int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Phone == phone {
			return 0, repository.ErrPhoneExists
		}
		if u.Email.Valid && u.Email.String == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := s.nextID
	s.nextID++
	s.byID[id] = repository.User{
		ID:           id,
		Phone:        phone,
		Email:        sql.NullString{String: email, Valid: email != ""},
		PasswordHash: sql.NullString{String: hash, Valid: true},
	}
	return id, nil
}

func (s *fakeUserStore) GetOrCreateByPhone(ctx context.Context, phone string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Phone == phone {
			return u, nil
		}
	}
	id := s.nextID
	s.nextID++
	u := repository.User{ID: id, Phone: phone}
	s.byID[id] = u
	return u, nil
}

func (s *fakeUserStore) GetByPhone(ctx context.Context, phone string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Phone == phone {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email.Valid && u.Email.String == email {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uint64) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *fakeUserStore) PhoneExists(ctx context.Context, phone string) (bool, error) {
	_, err := s.GetByPhone(ctx, phone)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, userID uint64, password string, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return sql.ErrNoRows
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = sql.NullString{String: hash, Valid: true}
	s.byID[userID] = u
	return nil
}

// fakeOTPStore keeps one live code per phone, like the unique key does in
// MySQL.
type fakeOTPStore struct {
	mu    sync.Mutex
	now   func() time.Time
	codes map[string]repository.OTPCode
}

func newFakeOTPStore(now func() time.Time) *fakeOTPStore {
	return &fakeOTPStore{now: now, codes: map[string]repository.OTPCode{}}
}

func (s *fakeOTPStore) Upsert(ctx context.Context, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = repository.OTPCode{
		ID:        uint64(len(s.codes) + 1),
		Phone:     phone,
		Code:      code,
		CreatedAt: s.now().UTC(),
	}
	return nil
}

func (s *fakeOTPStore) FindValid(ctx context.Context, phone, code string, cutoff time.Time) (repository.OTPCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.codes[phone]
	if !ok || rec.Code != code || rec.CreatedAt.Before(cutoff) {
		return repository.OTPCode{}, sql.ErrNoRows
	}
	return rec, nil
}

type fakeResetStore struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID uint64
	byUser map[uint64]repository.PasswordReset
}

func newFakeResetStore(now func() time.Time) *fakeResetStore {
	return &fakeResetStore{now: now, nextID: 1, byUser: map[uint64]repository.PasswordReset{}}
}

func (s *fakeResetStore) Upsert(ctx context.Context, userID uint64, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.byUser[userID] = repository.PasswordReset{
		ID:        id,
		UserID:    userID,
		Code:      code,
		CreatedAt: s.now().UTC(),
	}
	return nil
}

func (s *fakeResetStore) FindLive(ctx context.Context, userID uint64, code string, cutoff time.Time) (repository.PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byUser[userID]
	if !ok || rec.Used || rec.Code != code || rec.CreatedAt.Before(cutoff) {
		return repository.PasswordReset{}, sql.ErrNoRows
	}
	return rec, nil
}

func (s *fakeResetStore) MarkUsed(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, rec := range s.byUser {
		if rec.ID == id && !rec.Used {
			rec.Used = true
			s.byUser[userID] = rec
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeShops struct {
	mu    sync.Mutex
	owned map[uint64]bool
}

func (s *fakeShops) ExistsByUser(ctx context.Context, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned[userID], nil
}

// fakeDispatcher swallows events; delivery runs on its own goroutine, so
// tests read issued codes from the code stores instead.
type fakeDispatcher struct {
	mu     sync.Mutex
	events []queue.CodeDispatchEvent
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, ev queue.CodeDispatchEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return nil
}

// ----- harness -----

type authFixture struct {
	h      *AuthHandler
	users  *fakeUserStore
	codes  *fakeOTPStore
	resets *fakeResetStore
	shops  *fakeShops
	now    time.Time
	code   string
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		code: "123456",
	}
	clock := func() time.Time { return f.now }
	f.users = newFakeUserStore()
	f.codes = newFakeOTPStore(clock)
	f.resets = newFakeResetStore(clock)
	f.shops = &fakeShops{owned: map[uint64]bool{}}

	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
		CountryCode:    "+91",
		OTPTTLMin:      5,
		ResetTTLMin:    10,
	}
	f.h = NewAuthHandler(cfg, f.users, f.codes, f.resets, f.shops, &fakeDispatcher{})
	f.h.GenCode = func() string { return f.code }
	f.h.Now = clock
	return f
}

func (f *authFixture) do(t *testing.T, fn echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := fn(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

// ----- tests -----

func TestSendOTPReissueInvalidatesPreviousCode(t *testing.T) {
	f := newAuthFixture()

	f.code = "111111"
	if rec := f.do(t, f.h.SendOTP, `{"phone":"9876543210"}`); rec.Code != http.StatusOK {
		t.Fatalf("first send: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	f.code = "222222"
	if rec := f.do(t, f.h.SendOTP, `{"phone":"9876543210"}`); rec.Code != http.StatusOK {
		t.Fatalf("second send: got %d, want 200", rec.Code)
	}

	// The first code was overwritten and no longer authenticates.
	rec := f.do(t, f.h.VerifyOTP, `{"phone":"9876543210","otp":"111111"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("stale code: got %d, want 400: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, f.h.VerifyOTP, `{"phone":"9876543210","otp":"222222"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("live code: got %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestSendOTPRejectsBadPhone(t *testing.T) {
	f := newAuthFixture()
	rec := f.do(t, f.h.SendOTP, `{"phone":"12345"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
	if _, ok := decodeBody(t, rec)["errors"]; !ok {
		t.Fatalf("expected field errors, got %s", rec.Body.String())
	}
}

func TestVerifyOTPExpiredCode(t *testing.T) {
	f := newAuthFixture()
	f.do(t, f.h.SendOTP, `{"phone":"9876543210"}`)

	f.now = f.now.Add(6 * time.Minute)
	rec := f.do(t, f.h.VerifyOTP, `{"phone":"9876543210","otp":"123456"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["error"]; got != "invalid or expired OTP" {
		t.Fatalf("got error %q", got)
	}
}

func TestVerifyOTPCreatesAccountOnce(t *testing.T) {
	f := newAuthFixture()

	f.do(t, f.h.SendOTP, `{"phone":"9876543210"}`)
	rec := f.do(t, f.h.VerifyOTP, `{"phone":"9876543210","otp":"123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first verify: got %d: %s", rec.Code, rec.Body.String())
	}
	first := decodeBody(t, rec)

	// A later login through the same phone resolves to the same account.
	f.do(t, f.h.SendOTP, `{"phone":"+91 98765 43210"}`)
	rec = f.do(t, f.h.VerifyOTP, `{"phone":"+91 98765 43210","otp":"123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("second verify: got %d: %s", rec.Code, rec.Body.String())
	}
	second := decodeBody(t, rec)

	if first["user_id"] != second["user_id"] {
		t.Fatalf("user id changed between verifications: %v vs %v", first["user_id"], second["user_id"])
	}
	if first["phone"] != "+919876543210" {
		t.Fatalf("stored phone not normalized: %v", first["phone"])
	}
	if first["has_shop"] != false {
		t.Fatalf("fresh user should not own a shop")
	}
	if first["access"] == "" || first["refresh"] == "" {
		t.Fatalf("missing tokens in %v", first)
	}
}

func TestSignupConflictsReportedPerField(t *testing.T) {
	f := newAuthFixture()

	body := `{"phone":"9876543210","email":"ravi@example.com","password":"secret","is_signup":true}`
	rec := f.do(t, f.h.Login, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, f.h.Login, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: got %d", rec.Code)
	}
	errs, ok := decodeBody(t, rec)["errors"].(map[string]any)
	if !ok {
		t.Fatalf("expected errors map, got %s", rec.Body.String())
	}
	if errs["phone"] != "phone already exists" || errs["email"] != "email already exists" {
		t.Fatalf("expected both conflicts reported, got %v", errs)
	}
}

func TestLoginResolvesEmailThenPhone(t *testing.T) {
	f := newAuthFixture()
	f.do(t, f.h.Login, `{"phone":"9876543210","email":"ravi@example.com","password":"secret","is_signup":true}`)

	rec := f.do(t, f.h.Login, `{"email":"Ravi@Example.com","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("email login: got %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, f.h.Login, `{"phone":"98765 43210","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("phone login: got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, f.h.Login, `{"email":"ravi@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got %d, want 401", rec.Code)
	}
	rec = f.do(t, f.h.Login, `{"email":"nobody@example.com","password":"secret"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: got %d, want 404", rec.Code)
	}
}

func TestLoginRejectsOTPOnlyAccountPassword(t *testing.T) {
	f := newAuthFixture()
	f.do(t, f.h.SendOTP, `{"phone":"9876543210"}`)
	f.do(t, f.h.VerifyOTP, `{"phone":"9876543210","otp":"123456"}`)

	// The account exists but has no password; any guess fails closed.
	rec := f.do(t, f.h.Login, `{"phone":"9876543210","password":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty password: got %d, want 400", rec.Code)
	}
	rec = f.do(t, f.h.Login, `{"phone":"9876543210","password":"guess"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestRequestResetDoesNotLeakAccounts(t *testing.T) {
	f := newAuthFixture()
	f.do(t, f.h.Login, `{"phone":"9876543210","email":"ravi@example.com","password":"secret","is_signup":true}`)

	known := f.do(t, f.h.RequestReset, `{"email":"ravi@example.com"}`)
	unknown := f.do(t, f.h.RequestReset, `{"email":"nobody@example.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("got %d and %d, want 200 for both", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("responses differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}
}

func TestConfirmResetUpdatesPasswordAndBurnsCode(t *testing.T) {
	f := newAuthFixture()
	f.do(t, f.h.Login, `{"phone":"9876543210","email":"ravi@example.com","password":"old-secret","is_signup":true}`)

	f.code = "654321"
	f.do(t, f.h.RequestReset, `{"email":"ravi@example.com"}`)

	rec := f.do(t, f.h.ConfirmReset, `{"email":"ravi@example.com","code":"654321","new_password":"new-secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: got %d: %s", rec.Code, rec.Body.String())
	}

	// Old password is gone, the new one works.
	if rec := f.do(t, f.h.Login, `{"email":"ravi@example.com","password":"old-secret"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still valid: %d", rec.Code)
	}
	if rec := f.do(t, f.h.Login, `{"email":"ravi@example.com","password":"new-secret"}`); rec.Code != http.StatusOK {
		t.Fatalf("new password rejected: %d: %s", rec.Code, rec.Body.String())
	}

	// The code was burned on first use.
	rec = f.do(t, f.h.ConfirmReset, `{"email":"ravi@example.com","code":"654321","new_password":"another"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("replayed code: got %d, want 400", rec.Code)
	}
}

func TestConfirmResetExpiredCode(t *testing.T) {
	f := newAuthFixture()
	f.do(t, f.h.Login, `{"phone":"9876543210","email":"ravi@example.com","password":"secret","is_signup":true}`)
	f.do(t, f.h.RequestReset, `{"email":"ravi@example.com"}`)

	f.now = f.now.Add(11 * time.Minute)
	rec := f.do(t, f.h.ConfirmReset, `{"email":"ravi@example.com","code":"123456","new_password":"fresh"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["error"]; got != "invalid or expired code" {
		t.Fatalf("got error %q", got)
	}
}

// alreadyClaimedResets simulates losing the burn race to a concurrent
// confirmation with the same code.
type alreadyClaimedResets struct {
	*fakeResetStore
}

func (s alreadyClaimedResets) MarkUsed(ctx context.Context, id uint64) error {
	return sql.ErrNoRows
}

func TestConfirmResetLosingClaimLeavesPasswordUnchanged(t *testing.T) {
	f := newAuthFixture()
	f.do(t, f.h.Login, `{"phone":"9876543210","email":"ravi@example.com","password":"old-secret","is_signup":true}`)
	f.do(t, f.h.RequestReset, `{"email":"ravi@example.com"}`)
	f.h.Resets = alreadyClaimedResets{f.resets}

	rec := f.do(t, f.h.ConfirmReset, `{"email":"ravi@example.com","code":"123456","new_password":"new-secret"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("lost claim: got %d, want 400: %s", rec.Code, rec.Body.String())
	}

	// The code was never claimed by this request, so the password stayed.
	if rec := f.do(t, f.h.Login, `{"email":"ravi@example.com","password":"old-secret"}`); rec.Code != http.StatusOK {
		t.Fatalf("old password rejected after failed claim: %d", rec.Code)
	}
	if rec := f.do(t, f.h.Login, `{"email":"ravi@example.com","password":"new-secret"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("new password applied despite failed claim: %d", rec.Code)
	}
}

func TestConfirmResetUnknownIdentity(t *testing.T) {
	f := newAuthFixture()
	rec := f.do(t, f.h.ConfirmReset, `{"email":"nobody@example.com","code":"123456","new_password":"fresh"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestRefreshAccessRejectsAccessToken(t *testing.T) {
	f := newAuthFixture()
	rec := f.do(t, f.h.Login, `{"phone":"9876543210","email":"ravi@example.com","password":"secret","is_signup":true}`)
	body := decodeBody(t, rec)

	good := `{"refresh_token":"` + body["refresh"].(string) + `"}`
	if rec := f.do(t, f.h.RefreshAccess, good); rec.Code != http.StatusOK {
		t.Fatalf("refresh: got %d: %s", rec.Code, rec.Body.String())
	}

	// An access token must never pass as a refresh token.
	bad := `{"refresh_token":"` + body["access"].(string) + `"}`
	if rec := f.do(t, f.h.RefreshAccess, bad); rec.Code != http.StatusUnauthorized {
		t.Fatalf("access-as-refresh: got %d, want 401", rec.Code)
	}
}
