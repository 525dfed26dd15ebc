package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	authdomain "jobtrail-backend/internal/auth/domain"
	authdto "jobtrail-backend/internal/auth/dto"
	"jobtrail-backend/internal/auth/repository"
	credentialdomain "jobtrail-backend/internal/credentials/domain"
	credentialusecase "jobtrail-backend/internal/credentials/usecase"
	"jobtrail-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// New users without an explicit start date are scanned 90 days back.
const defaultStartDateLookback = 90 * 24 * time.Hour

var oauthScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/gmail.readonly",
}

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo repository.UserRepository
	creds    *credentialusecase.Store
	config   *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, creds *credentialusecase.Store, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		creds:    creds,
		config:   cfg,
	}
}

func (u *authUsecase) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     u.config.GoogleClientID,
		ClientSecret: u.config.GoogleClientSecret,
		RedirectURL:  u.config.GoogleRedirectURI,
		Scopes:       oauthScopes,
		Endpoint:     google.Endpoint,
	}
}

func (u *authUsecase) AuthorizationURL(userID, credentialType string) (string, error) {
	if credentialType == "" {
		credentialType = credentialdomain.TypePrimary
	}
	if credentialType == credentialdomain.TypeEmailSync && userID == "" {
		return "", errors.New("linking a sync account requires an authenticated user")
	}

	state, err := u.signState(userID, credentialType)
	if err != nil {
		return "", err
	}

	// Google only returns a refresh token on a full consent grant. Once we
	// hold one, re-prompting for consent would just annoy the user.
	prompt := "consent"
	if userID != "" && u.creds.HasRefreshToken(userID) {
		prompt = "select_account"
	}

	url := u.oauthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", prompt),
	)
	return url, nil
}

func (u *authUsecase) HandleCallback(ctx context.Context, code, state string) (*authdto.TokenResponse, error) {
	stateUserID, credentialType, err := u.verifyState(state)
	if err != nil {
		return nil, err
	}

	token, err := u.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, errors.New("failed to exchange authorization code: " + err.Error())
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("google response missing id_token")
	}

	tokenInfo, err := verifyGoogleIDToken(idToken)
	if err != nil {
		return nil, err
	}

	user, err := u.resolveUser(stateUserID, credentialType, tokenInfo)
	if err != nil {
		return nil, err
	}

	bundle := &credentialdomain.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry.UTC(),
		Scopes:       oauthScopes,
		ClientID:     u.config.GoogleClientID,
		TokenURI:     credentialdomain.DefaultTokenURI,
	}
	if err := u.creds.Save(user.ID, credentialType, bundle); err != nil {
		// A missing refresh token is survivable for this session; the user
		// just cannot run background syncs until they re-consent.
		if !errors.Is(err, credentialusecase.ErrNoRefreshToken) {
			return nil, err
		}
	}

	accessToken, err := u.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken: accessToken,
		User:        user,
	}, nil
}

// resolveUser maps a verified Google identity onto a user record. Sync
// account linking attaches to the already-authenticated user; sign-in
// finds or creates by email.
func (u *authUsecase) resolveUser(stateUserID, credentialType string, tokenInfo *googleTokenInfo) (*authdomain.User, error) {
	if credentialType == credentialdomain.TypeEmailSync {
		user, err := u.userRepo.FindByID(stateUserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, errors.New("user not found")
		}
		return user, nil
	}

	user, err := u.userRepo.FindByEmail(tokenInfo.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		startDate := time.Now().UTC().Add(-defaultStartDateLookback)
		user = &authdomain.User{
			ID:        tokenInfo.Sub,
			Email:     tokenInfo.Email,
			Name:      tokenInfo.Name,
			Provider:  "google",
			StartDate: &startDate,
			IsNewUser: true,
			SyncTier:  authdomain.SyncTierNone,
			IsActive:  true,
		}
		if err := u.userRepo.Create(user); err != nil {
			return nil, err
		}
		return user, nil
	}

	user.Name = tokenInfo.Name
	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// googleTokenInfo represents the response from Google's tokeninfo endpoint
type googleTokenInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified string `json:"email_verified"` // Google returns this as string "true" or "false"
	Sub           string `json:"sub"`
}

func verifyGoogleIDToken(idToken string) (*googleTokenInfo, error) {
	url := fmt.Sprintf("https://oauth2.googleapis.com/tokeninfo?id_token=%s", idToken)

	resp, err := http.Get(url)
	if err != nil {
		return nil, errors.New("failed to verify Google token: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to verify Google token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenInfo googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.New("failed to decode Google token info: " + err.Error())
	}

	if tokenInfo.EmailVerified != "true" {
		return nil, errors.New("google email is not verified")
	}

	return &tokenInfo, nil
}

// signState packs the OAuth state parameter as a short-lived signed token
// so the callback can trust the credential type and user binding.
func (u *authUsecase) signState(userID, credentialType string) (string, error) {
	claims := jwt.MapClaims{
		"nonce":           uuid.New().String(),
		"credential_type": credentialType,
		"exp":             time.Now().Add(10 * time.Minute).Unix(),
		"iat":             time.Now().Unix(),
	}
	if userID != "" {
		claims["user_id"] = userID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) verifyState(state string) (userID, credentialType string, err error) {
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", errors.New("invalid oauth state")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errors.New("invalid oauth state claims")
	}

	credentialType, _ = claims["credential_type"].(string)
	if credentialType == "" {
		credentialType = credentialdomain.TypePrimary
	}
	userID, _ = claims["user_id"].(string)

	return userID, credentialType, nil
}

func (u *authUsecase) generateAccessToken(user *authdomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, errors.New("user not found")
	}

	return user, nil
}

func (u *authUsecase) GetUser(userID string) (*authdomain.User, error) {
	return u.userRepo.FindByID(userID)
}

func (u *authUsecase) UpdateStartDate(userID string, startDate time.Time) error {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}

	normalized := startDate.UTC()
	user.StartDate = &normalized
	// The next fetch rescans from the new start date instead of resuming
	// from the last stored email.
	user.IsNewUser = true
	return u.userRepo.Update(user)
}
