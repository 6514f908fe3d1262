package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/you/verifysvc/domain"
	"github.com/you/verifysvc/internal/infrastructure/auth"
)

// LocalProvider is the embedded identity provider. It keeps accounts in the
// database, challenges in Redis and mints its own session tokens, so the
// whole flow runs without a hosted backend.
type LocalProvider struct {
	accounts      *AccountRepository
	challenges    *ChallengeStore
	passwords     *auth.PasswordService
	tokens        domain.TokenService
	notifications domain.NotificationService
}

var _ domain.IdentityProvider = (*LocalProvider)(nil)

// NewLocalProvider creates the embedded identity provider
func NewLocalProvider(
	accounts *AccountRepository,
	challenges *ChallengeStore,
	passwords *auth.PasswordService,
	tokens domain.TokenService,
	notifications domain.NotificationService,
) *LocalProvider {
	return &LocalProvider{
		accounts:      accounts,
		challenges:    challenges,
		passwords:     passwords,
		tokens:        tokens,
		notifications: notifications,
	}
}

// SignInWithPassword implements domain.IdentityProvider. A missing account
// and a wrong password are indistinguishable to the caller.
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrCredentialRejected
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if !p.passwords.Verify(account.PasswordHash, password) {
		return nil, domain.ErrCredentialRejected
	}

	return p.issueTokens(account)
}

// SignInWithEmailLink implements domain.IdentityProvider. The link carries a
// short-lived access token; following it signs the account in.
func (p *LocalProvider) SignInWithEmailLink(ctx context.Context, email, redirectTo string) error {
	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("failed to look up account: %w", err)
		}
		// Passwordless accounts are created on first link request.
		account = &DBAccount{
			ID:    uuid.NewString(),
			Email: email,
		}
		if err := p.accounts.Create(ctx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
	}

	token, err := p.tokens.GenerateAccessToken(account.ID, account.Email)
	if err != nil {
		return fmt.Errorf("failed to generate link token: %w", err)
	}

	link := fmt.Sprintf("%s?token=%s", redirectTo, url.QueryEscape(token))
	body := fmt.Sprintf("Follow this link to sign in: %s", link)
	if err := p.notifications.SendEmail(email, "Your sign-in link", body); err != nil {
		return fmt.Errorf("failed to deliver sign-in link: %w", err)
	}
	return nil
}

// SignUp implements domain.IdentityProvider. The phone passed in metadata is
// stored on the account so later challenges can be matched against it.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Account, error) {
	if _, err := p.accounts.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrAccountAlreadyExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	hash, err := p.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &DBAccount{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        metadata["phone"],
		PasswordHash: hash,
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return p.issueTokens(account)
}

// SendPhoneOTP implements domain.IdentityProvider. With createUser false the
// phone must already belong to an account.
func (p *LocalProvider) SendPhoneOTP(ctx context.Context, phone string, createUser bool) error {
	if !createUser {
		if _, err := p.accounts.FindByPhone(ctx, phone); err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("failed to look up account: %w", err)
		}
	}

	code, err := p.challenges.Issue(ctx, phone)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.",
		code, int(p.challenges.config.TTL/time.Minute))
	if err := p.notifications.SendSMS(phone, message); err != nil {
		p.challenges.Drop(ctx, phone)
		return fmt.Errorf("failed to deliver code: %w", err)
	}
	return nil
}

// VerifyPhoneOTP implements domain.IdentityProvider
func (p *LocalProvider) VerifyPhoneOTP(ctx context.Context, phone, code string) (*domain.Account, error) {
	if err := p.challenges.Verify(ctx, phone, code); err != nil {
		return nil, err
	}

	account, err := p.accounts.FindByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("failed to look up account: %w", err)
		}
		// Phone-only challenge with no matching account yet.
		account = &DBAccount{
			ID:    uuid.NewString(),
			Phone: phone,
		}
		if err := p.accounts.Create(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
	}

	return p.issueTokens(account)
}

// OAuthRedirectURL implements domain.IdentityProvider. The embedded provider
// has no upstream OAuth broker.
func (p *LocalProvider) OAuthRedirectURL(provider, redirectTo string) (string, error) {
	return "", fmt.Errorf("oauth provider %q: %w", provider, domain.ErrProviderUnavailable)
}

// CurrentAccount implements domain.IdentityProvider
func (p *LocalProvider) CurrentAccount(ctx context.Context, accessToken string) (*domain.Account, error) {
	claims, err := p.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	account, err := p.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &domain.Account{
		ID:          account.ID,
		Email:       account.Email,
		Phone:       account.Phone,
		AccessToken: accessToken,
		CreatedAt:   account.CreatedAt,
	}, nil
}

// SignOut implements domain.IdentityProvider. Tokens are stateless, so there
// is nothing to revoke beyond rejecting malformed input.
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	if _, err := p.tokens.ValidateAccessToken(accessToken); err != nil {
		return err
	}
	return nil
}

func (p *LocalProvider) issueTokens(account *DBAccount) (*domain.Account, error) {
	accessToken, err := p.tokens.GenerateAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := p.tokens.GenerateRefreshToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.Account{
		ID:           account.ID,
		Email:        account.Email,
		Phone:        account.Phone,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    account.CreatedAt,
	}, nil
}
