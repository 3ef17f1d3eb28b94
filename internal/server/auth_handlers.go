package server

import (
	"fmt"
	"strconv"
	"time"

	"astramentor/internal/models"
	"astramentor/internal/session"
	"astramentor/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new teacher or student account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string,role=string,registration_number=string} true "Signup request"
// @Success 201 {object} object{token=string,profile=models.Profile}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Name               string `json:"name"`
		Email              string `json:"email"`
		Password           string `json:"password"`
		Role               string `json:"role"`
		RegistrationNumber string `json:"registration_number"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name, email, and password are required"))
	}

	if err := validation.ValidateName(req.Name); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	role := models.RoleStudent
	if req.Role != "" {
		role = models.Role(req.Role)
		if !role.Valid() {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Role must be teacher or student"))
		}
	}

	if req.RegistrationNumber != "" {
		if err := validation.ValidateRegistrationNumber(req.RegistrationNumber); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}

	// Check if a profile already exists for this email
	existing, err := s.profileRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if existing != nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("An account with this email already exists"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	profile := &models.Profile{
		Name:               req.Name,
		Email:              req.Email,
		Password:           string(hashedPassword),
		Role:               role,
		RegistrationNumber: req.RegistrationNumber,
	}

	if createErr := s.profileRepo.Create(c.Context(), profile); createErr != nil {
		return models.RespondWithError(c, mapServiceError(createErr), createErr)
	}

	token, err := s.generateToken(profile)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":   token,
		"profile": profile,
	})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,profile=models.Profile}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.profileRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if profile == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	token, err := s.generateToken(profile)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"profile": profile,
	})
}

// Refresh handles POST /api/auth/refresh. The presented token must still be
// valid; a fresh one is issued from the stored profile so role changes take
// effect on refresh.
func (s *Server) Refresh(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profile, err := s.profileRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	token, err := s.generateToken(profile)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"profile": profile,
	})
}

// Logout handles POST /api/auth/logout. The token's jti is blacklisted until
// its natural expiry; without Redis the logout is client-side only.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("claims").(jwt.MapClaims)

	if s.redis != nil && claims != nil {
		jti, _ := claims["jti"].(string)
		if jti != "" {
			ttl := 7 * 24 * time.Hour
			if exp, ok := claims["exp"].(float64); ok {
				if until := time.Until(time.Unix(int64(exp), 0)); until > 0 {
					ttl = until
				}
			}
			if err := s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl).Err(); err != nil {
				return models.RespondWithError(c, fiber.StatusInternalServerError,
					models.NewInternalError(err))
			}
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetSession handles GET /api/auth/session. It resolves the caller's identity
// from the profile store; if that store is unavailable the identity is
// synthesized from the token claims and marked as a fallback instead of
// failing the request.
func (s *Server) GetSession(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	claims, _ := c.Locals("claims").(jwt.MapClaims)

	profile, err := s.profileRepo.GetByID(c.Context(), userID)
	if err != nil {
		identity := session.IdentityFromClaims(userID, claims)
		return c.JSON(fiber.Map{
			"state":    session.StateResolvedFallback.String(),
			"identity": identity,
		})
	}

	return c.JSON(fiber.Map{
		"state": session.StateResolved.String(),
		"identity": session.Identity{
			ID:                 profile.ID,
			Name:               profile.Name,
			Email:              profile.Email,
			Role:               profile.Role,
			RegistrationNumber: profile.RegistrationNumber,
			Avatar:             profile.Avatar,
		},
	})
}

// generateToken creates a JWT token carrying the profile fields a client needs
// to build a fallback identity when the profile store is unreachable.
func (s *Server) generateToken(profile *models.Profile) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                 strconv.FormatUint(uint64(profile.ID), 10),
		"name":                profile.Name,
		"email":               profile.Email,
		"role":                string(profile.Role),
		"registration_number": profile.RegistrationNumber,
		"iss":                 "astramentor-api",
		"aud":                 "astramentor-client",
		"exp":                 now.Add(time.Hour * 24 * 7).Unix(),
		"iat":                 now.Unix(),
		"nbf":                 now.Unix(),
		"jti":                 s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID so individual tokens can be revoked
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
