package handler

import (
    "context"
    "database/sql"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/stygo/stygo-backend/internal/config"
    "github.com/stygo/stygo-backend/internal/queue"
    "github.com/stygo/stygo-backend/internal/repository"
    "github.com/stygo/stygo-backend/internal/utils"
)

// UserStore is the slice of user persistence the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, phone, email, password string, cost int) (uint64, error)
	GetOrCreateByPhone(ctx context.Context, phone string) (repository.User, error)
	GetByPhone(ctx context.Context, phone string) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uint64) (repository.User, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, userID uint64, password string, cost int) error
}

// OTPStore is the single-live-code ledger keyed by phone.
type OTPStore interface {
	Upsert(ctx context.Context, phone, code string) error
	FindValid(ctx context.Context, phone, code string, cutoff time.Time) (repository.OTPCode, error)
}

// ResetStore is the single-live-code ledger keyed by user.
type ResetStore interface {
	Upsert(ctx context.Context, userID uint64, code string) error
	FindLive(ctx context.Context, userID uint64, code string, cutoff time.Time) (repository.PasswordReset, error)
	MarkUsed(ctx context.Context, id uint64) error
}

// ShopChecker answers the has_shop flag returned with every credential pair.
type ShopChecker interface {
	ExistsByUser(ctx context.Context, userID uint64) (bool, error)
}

// CodeDispatcher delivers one-time codes out of band. Delivery is
// fire-and-forget: a failure is logged and never fails the request.
type CodeDispatcher interface {
	Dispatch(ctx context.Context, ev queue.CodeDispatchEvent) error
}

// AuthHandler bundles dependencies for the auth endpoints. GenCode and Now
// are injected so tests can pin issued codes and the clock.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Codes    OTPStore
	Resets   ResetStore
	Shops    ShopChecker
	Dispatch CodeDispatcher
	GenCode  utils.CodeFunc
	Now      func() time.Time
}

func NewAuthHandler(cfg config.Config, users UserStore, codes OTPStore, resets ResetStore, shops ShopChecker, dispatch CodeDispatcher) *AuthHandler {
	return &AuthHandler{
		Cfg:      cfg,
		Users:    users,
		Codes:    codes,
		Resets:   resets,
		Shops:    shops,
		Dispatch: dispatch,
		GenCode:  utils.RandomCode,
		Now:      time.Now,
	}
}

// ----- DTOs -----

type sendOTPReq struct {
	Phone string `json:"phone"`
}
type verifyOTPReq struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}
type loginReq struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsSignup bool   `json:"is_signup"`
}
type resetRequestReq struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}
type resetConfirmReq struct {
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type authResp struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	UserID  uint64 `json:"user_id"`
	Phone   string `json:"phone"`
	HasShop bool   `json:"has_shop"`
}

// resetSentMsg is returned by RequestReset whether or not the identity
// resolves to an account, so callers cannot probe for registered users.
const resetSentMsg = "If the account exists, a reset code has been sent"

// SendOTP: issue (or reissue) the single live code for a phone and hand it
// to the dispatch queue.
func (h *AuthHandler) SendOTP(c echo.Context) error {
	var req sendOTPReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	phone := utils.NormalizePhone(req.Phone, h.Cfg.CountryCode)
	if !utils.ValidPhone(phone, h.Cfg.CountryCode) {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"phone": "a valid 10-digit phone number is required"}})
	}

	code := h.GenCode()

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	if err := h.Codes.Upsert(ctx, phone, code); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue OTP"})
	}
	h.dispatchCode(queue.PurposeLoginOTP, phone, code)

	return c.JSON(http.StatusOK, echo.Map{"message": "OTP sent"})
}

// VerifyOTP: check the live code within its validity window and log the
// caller in, creating the account on first contact.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req verifyOTPReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	phone := utils.NormalizePhone(req.Phone, h.Cfg.CountryCode)
	fieldErrs := echo.Map{}
	if !utils.ValidPhone(phone, h.Cfg.CountryCode) {
		fieldErrs["phone"] = "a valid 10-digit phone number is required"
	}
	if !validCode(req.OTP) {
		fieldErrs["otp"] = "a 6-digit code is required"
	}
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fieldErrs})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	cutoff := h.Now().UTC().Add(-time.Duration(h.Cfg.OTPTTLMin) * time.Minute)
	if _, err := h.Codes.FindValid(ctx, phone, req.OTP, cutoff); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired OTP"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	// A verified code is authentication: first contact creates the account.
	u, err := h.Users.GetOrCreateByPhone(ctx, phone)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return h.respondWithPair(c, http.StatusOK, u)
}

// Login handles password signup and login in one endpoint, switched by the
// is_signup flag.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"password": "password is required"}})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	if req.IsSignup {
		return h.signup(ctx, c, req)
	}

	// Resolve email first, then phone, using only the supplied fields.
	var (
		u   repository.User
		err error = sql.ErrNoRows
	)
	if req.Email != "" {
		u, err = h.Users.GetByEmail(ctx, req.Email)
		if err != nil && err != sql.ErrNoRows {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}
	if err == sql.ErrNoRows && req.Phone != "" {
		phone := utils.NormalizePhone(req.Phone, h.Cfg.CountryCode)
		u, err = h.Users.GetByPhone(ctx, phone)
		if err != nil && err != sql.ErrNoRows {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if !utils.VerifyPassword(u.PasswordHash.String, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.respondWithPair(c, http.StatusOK, u)
}

func (h *AuthHandler) signup(ctx context.Context, c echo.Context, req loginReq) error {
	phone := utils.NormalizePhone(req.Phone, h.Cfg.CountryCode)
	fieldErrs := echo.Map{}
	if !utils.ValidPhone(phone, h.Cfg.CountryCode) {
		fieldErrs["phone"] = "a valid 10-digit phone number is required"
	}
	if !validEmail(req.Email) {
		fieldErrs["email"] = "a valid email is required"
	}
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fieldErrs})
	}

	// Collisions are checked per field so the client can flag both inputs
	// at once.
	if exists, err := h.Users.PhoneExists(ctx, phone); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if exists {
		fieldErrs["phone"] = "phone already exists"
	}
	if exists, err := h.Users.EmailExists(ctx, req.Email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if exists {
		fieldErrs["email"] = "email already exists"
	}
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fieldErrs})
	}

	uid, err := h.Users.Create(ctx, phone, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		// The existence checks above can lose a race to a concurrent
		// signup; the unique keys are the source of truth.
		switch err {
		case repository.ErrPhoneExists:
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"phone": "phone already exists"}})
		case repository.ErrEmailExists:
			return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"email": "email already exists"}})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	pair, err := utils.NewCredentialPair(h.Cfg.JWTSecret, uid, h.Cfg.AccessTTLMin, h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusCreated, authResp{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		UserID:  uid,
		Phone:   phone,
		HasShop: false,
	})
}

// RequestReset issues a reset code when the identity resolves to a user.
// The response is identical either way so the endpoint cannot be used to
// enumerate accounts.
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	u, identity, err := h.resolveIdentity(ctx, req.Phone, req.Email)
	if err == errNoIdentity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone or email is required"})
	}
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusOK, echo.Map{"message": resetSentMsg})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	code := h.GenCode()
	if err := h.Resets.Upsert(ctx, u.ID, code); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue reset code"})
	}
	h.dispatchCode(queue.PurposePasswordReset, identity, code)

	return c.JSON(http.StatusOK, echo.Map{"message": resetSentMsg})
}

// ConfirmReset validates the live reset code, updates the password and
// burns the code so it can never be replayed.
func (h *AuthHandler) ConfirmReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	fieldErrs := echo.Map{}
	if !validCode(req.Code) {
		fieldErrs["code"] = "a 6-digit code is required"
	}
	if len(req.NewPassword) < 4 {
		fieldErrs["new_password"] = "password must be at least 4 characters"
	}
	if len(fieldErrs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fieldErrs})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	u, _, err := h.resolveIdentity(ctx, req.Phone, req.Email)
	if err == errNoIdentity {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone or email is required"})
	}
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	cutoff := h.Now().UTC().Add(-time.Duration(h.Cfg.ResetTTLMin) * time.Minute)
	rec, err := h.Resets.FindLive(ctx, u.ID, req.Code, cutoff)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	// Claim the code before touching the password: the one-row burn keeps a
	// concurrent confirm with the same code from changing the password
	// twice, and a failed claim leaves the account untouched.
	if err := h.Resets.MarkUsed(ctx, rec.ID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update password failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password updated"})
}

// RefreshAccess exchanges a valid refresh token for a fresh access token
// without rotating the pair. The check is stateless: nothing about the
// refresh token is stored server side.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	uid, err := utils.ParseRefresh(h.Cfg.JWTSecret, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, uid); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	access, exp, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"access": access, "expires": exp})
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get("user_id")})
}

// ----- shared plumbing -----

var errNoIdentity = errNoIdentityType{}

type errNoIdentityType struct{}

func (errNoIdentityType) Error() string { return "no identity supplied" }

// resolveIdentity finds a user by email first, then phone, mirroring the
// login resolution order. It returns the normalized identity the lookup
// succeeded (or would have succeeded) on.
func (h *AuthHandler) resolveIdentity(ctx context.Context, phone, email string) (repository.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)
	if email != "" {
		u, err := h.Users.GetByEmail(ctx, email)
		if err == nil || err != sql.ErrNoRows || phone == "" {
			return u, email, err
		}
	}
	if phone == "" {
		return repository.User{}, "", errNoIdentity
	}
	normalized := utils.NormalizePhone(phone, h.Cfg.CountryCode)
	u, err := h.Users.GetByPhone(ctx, normalized)
	return u, normalized, err
}

// respondWithPair issues a credential pair and reports has_shop for an
// authenticated user.
func (h *AuthHandler) respondWithPair(c echo.Context, status int, u repository.User) error {
	pair, err := utils.NewCredentialPair(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin, h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSecs*time.Second)
	defer cancel()
	hasShop, err := h.Shops.ExistsByUser(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(status, authResp{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		UserID:  u.ID,
		Phone:   u.Phone,
		HasShop: hasShop,
	})
}

// dispatchCode hands a code to the delivery queue without blocking the
// request. The code itself never goes through the process log.
func (h *AuthHandler) dispatchCode(purpose, identity, code string) {
	ev := queue.CodeDispatchEvent{
		Purpose:  purpose,
		Identity: identity,
		Code:     code,
		IssuedAt: h.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Dispatch.Dispatch(ctx, ev); err != nil {
			log.Printf("auth: code dispatch failed for %s: %v", identity, err)
		}
	}()
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
