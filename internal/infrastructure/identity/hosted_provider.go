package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/you/verifysvc/domain"
)

// HostedProvider talks to a hosted GoTrue-compatible identity API. The
// service key is attached to every request; user tokens ride in the
// Authorization header.
type HostedProvider struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

var _ domain.IdentityProvider = (*HostedProvider)(nil)

// NewHostedProvider creates a client for the hosted identity API
func NewHostedProvider(baseURL, anonKey string) *HostedProvider {
	return &HostedProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type hostedUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type hostedSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         hostedUser `json:"user"`
}

type hostedError struct {
	Code             int    `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e *hostedError) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	default:
		return e.Message
	}
}

// SignInWithPassword implements domain.IdentityProvider
func (p *HostedProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, error) {
	var session hostedSession
	err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &session)
	if err != nil {
		return nil, p.mapSignInError(err)
	}
	return accountFromSession(&session), nil
}

// SignInWithEmailLink implements domain.IdentityProvider
func (p *HostedProvider) SignInWithEmailLink(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/otp"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	err := p.do(ctx, http.MethodPost, path, "", map[string]interface{}{
		"email":       email,
		"create_user": true,
	}, nil)
	if err != nil {
		if isStatus(err, http.StatusTooManyRequests) {
			return domain.ErrRateLimited
		}
		return err
	}
	return nil
}

// SignUp implements domain.IdentityProvider
func (p *HostedProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Account, error) {
	data := map[string]interface{}{}
	for k, v := range metadata {
		data[k] = v
	}

	var session hostedSession
	err := p.do(ctx, http.MethodPost, "/auth/v1/signup", "", map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     data,
	}, &session)
	if err != nil {
		var apiErr *apiError
		if asAPIError(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.body.text()), "already registered") {
			return nil, domain.ErrAccountAlreadyExists
		}
		if isStatus(err, http.StatusUnprocessableEntity) {
			return nil, domain.ErrAccountAlreadyExists
		}
		return nil, err
	}
	return accountFromSession(&session), nil
}

// SendPhoneOTP implements domain.IdentityProvider
func (p *HostedProvider) SendPhoneOTP(ctx context.Context, phone string, createUser bool) error {
	err := p.do(ctx, http.MethodPost, "/auth/v1/otp", "", map[string]interface{}{
		"phone":       phone,
		"create_user": createUser,
		"channel":     "sms",
	}, nil)
	if err != nil {
		if isStatus(err, http.StatusTooManyRequests) {
			return domain.ErrRateLimited
		}
		return err
	}
	return nil
}

// VerifyPhoneOTP implements domain.IdentityProvider
func (p *HostedProvider) VerifyPhoneOTP(ctx context.Context, phone, code string) (*domain.Account, error) {
	var session hostedSession
	err := p.do(ctx, http.MethodPost, "/auth/v1/verify", "", map[string]string{
		"type":  "sms",
		"phone": phone,
		"token": code,
	}, &session)
	if err != nil {
		if isStatus(err, http.StatusUnauthorized) || isStatus(err, http.StatusBadRequest) || isStatus(err, http.StatusForbidden) {
			return nil, domain.ErrCodeRejected
		}
		return nil, err
	}
	return accountFromSession(&session), nil
}

// OAuthRedirectURL implements domain.IdentityProvider
func (p *HostedProvider) OAuthRedirectURL(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", domain.ErrInvalidInputFormat
	}
	return fmt.Sprintf("%s/auth/v1/authorize?provider=%s&redirect_to=%s",
		p.baseURL, url.QueryEscape(provider), url.QueryEscape(redirectTo)), nil
}

// CurrentAccount implements domain.IdentityProvider
func (p *HostedProvider) CurrentAccount(ctx context.Context, accessToken string) (*domain.Account, error) {
	var user hostedUser
	err := p.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user)
	if err != nil {
		if isStatus(err, http.StatusUnauthorized) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	return &domain.Account{
		ID:          user.ID,
		Email:       user.Email,
		Phone:       user.Phone,
		AccessToken: accessToken,
	}, nil
}

// SignOut implements domain.IdentityProvider
func (p *HostedProvider) SignOut(ctx context.Context, accessToken string) error {
	err := p.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
	if err != nil && !isStatus(err, http.StatusUnauthorized) {
		return err
	}
	return nil
}

func (p *HostedProvider) mapSignInError(err error) error {
	if isStatus(err, http.StatusBadRequest) || isStatus(err, http.StatusUnauthorized) {
		return domain.ErrCredentialRejected
	}
	return err
}

// apiError carries a non-2xx response from the hosted API.
type apiError struct {
	status int
	body   hostedError
}

func (e *apiError) Error() string {
	if text := e.body.text(); text != "" {
		return fmt.Sprintf("identity api status %d: %s", e.status, text)
	}
	return fmt.Sprintf("identity api status %d", e.status)
}

func isStatus(err error, status int) bool {
	var apiErr *apiError
	return asAPIError(err, &apiErr) && apiErr.status == status
}

func asAPIError(err error, target **apiError) bool {
	if e, ok := err.(*apiError); ok {
		*target = e
		return true
	}
	return false
}

func (p *HostedProvider) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.anonKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{status: resp.StatusCode}
		_ = json.Unmarshal(payload, &apiErr.body)
		return apiErr
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func accountFromSession(session *hostedSession) *domain.Account {
	return &domain.Account{
		ID:           session.User.ID,
		Email:        session.User.Email,
		Phone:        session.User.Phone,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}
}
