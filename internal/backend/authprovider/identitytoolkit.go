package authprovider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultIdentityToolkitEndpoint is the public identity toolkit REST API.
const DefaultIdentityToolkitEndpoint = "https://identitytoolkit.googleapis.com/v1"

// toolkitTokenTTL is the lifetime of ID tokens minted by the hosted toolkit.
const toolkitTokenTTL = time.Hour

// IdentityToolkit talks to a hosted identity toolkit over REST.
type IdentityToolkit struct {
	session

	client  *resty.Client
	apiKey  string
	revoked RevocationList
}

type ToolkitOption func(*IdentityToolkit)

// WithToolkitRevocations shares signed-out tokens through list.
func WithToolkitRevocations(list RevocationList) ToolkitOption {
	return func(p *IdentityToolkit) {
		if list != nil {
			p.revoked = list
		}
	}
}

// NewIdentityToolkit builds a client for endpoint authenticated with apiKey.
// An empty endpoint selects DefaultIdentityToolkitEndpoint.
func NewIdentityToolkit(endpoint, apiKey string, opts ...ToolkitOption) *IdentityToolkit {
	if endpoint == "" {
		endpoint = DefaultIdentityToolkitEndpoint
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	p := &IdentityToolkit{client: client, apiKey: apiKey}
	for _, opt := range opts {
		opt(p)
	}
	if p.revoked == nil {
		p.revoked = NewMemoryRevocations(nil)
	}
	return p
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type accountResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type updateRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		Disabled    bool   `json:"disabled"`
	} `json:"users"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *IdentityToolkit) SignIn(ctx context.Context, email, password string) (User, error) {
	var out accountResponse
	if err := p.post(ctx, "/accounts:signInWithPassword", passwordRequest{
		Email: email, Password: password, ReturnSecureToken: true,
	}, &out); err != nil {
		return User{}, err
	}
	u := User{UID: out.LocalID, Email: out.Email, DisplayName: out.DisplayName, IDToken: out.IDToken}
	p.remember(u)
	return u, nil
}

func (p *IdentityToolkit) CreateAccount(ctx context.Context, email, password string) (User, error) {
	var out accountResponse
	if err := p.post(ctx, "/accounts:signUp", passwordRequest{
		Email: email, Password: password, ReturnSecureToken: true,
	}, &out); err != nil {
		return User{}, err
	}
	u := User{UID: out.LocalID, Email: out.Email, DisplayName: out.DisplayName, IDToken: out.IDToken}
	p.remember(u)
	return u, nil
}

// UpdateDisplayName renames account. The REST API authorizes profile updates
// with the account's own ID token.
func (p *IdentityToolkit) UpdateDisplayName(ctx context.Context, account User, name string) error {
	if account.IDToken == "" {
		return newError(CodeInvalidCredential, errors.New("missing id token"))
	}
	if err := p.post(ctx, "/accounts:update", updateRequest{
		IDToken: account.IDToken, DisplayName: name,
	}, nil); err != nil {
		return err
	}
	p.renamed(account.UID, name)
	return nil
}

// SignOut revokes idToken on this side: the hosted toolkit has no endpoint to
// revoke a single ID token, so the token is kept on the revocation list for
// the longest lifetime the toolkit grants.
func (p *IdentityToolkit) SignOut(ctx context.Context, idToken string) error {
	if idToken == "" {
		p.forget()
		return nil
	}
	p.forgetToken(idToken)
	if err := p.revoked.Revoke(ctx, tokenDigest(idToken), toolkitTokenTTL); err != nil {
		return newError(CodeNetworkRequestFailed, fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

func (p *IdentityToolkit) VerifyIDToken(ctx context.Context, token string) (User, error) {
	revoked, err := p.revoked.IsRevoked(ctx, tokenDigest(token))
	if err != nil {
		return User{}, newError(CodeNetworkRequestFailed, fmt.Errorf("check revocation: %w", err))
	}
	if revoked {
		return User{}, newError(CodeInvalidCredential, errors.New("token revoked"))
	}

	var out lookupResponse
	if err := p.post(ctx, "/accounts:lookup", lookupRequest{IDToken: token}, &out); err != nil {
		return User{}, err
	}
	if len(out.Users) == 0 {
		return User{}, newError(CodeUserNotFound, nil)
	}
	found := out.Users[0]
	if found.Disabled {
		return User{}, newError(CodeUserDisabled, nil)
	}
	return User{UID: found.LocalID, Email: found.Email, DisplayName: found.DisplayName, IDToken: token}, nil
}

func (p *IdentityToolkit) post(ctx context.Context, path string, body, result any) error {
	var failure apiError
	req := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(body).
		SetError(&failure)
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Post(path)
	if err != nil {
		return newError(CodeNetworkRequestFailed, fmt.Errorf("identity toolkit %s: %w", path, err))
	}
	if resp.IsError() {
		msg := failure.Error.Message
		return newError(codeForAPIMessage(msg), fmt.Errorf("identity toolkit %s: status %d: %s", path, resp.StatusCode(), msg))
	}
	return nil
}

// tokenDigest keys the revocation list without storing bearer tokens verbatim.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// codeForAPIMessage maps REST error messages such as "WEAK_PASSWORD : Password
// should be at least 6 characters" onto provider codes.
func codeForAPIMessage(msg string) string {
	key := strings.TrimSpace(msg)
	if i := strings.Index(key, ":"); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	switch key {
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD":
		return CodeWrongPassword
	case "USER_DISABLED":
		return CodeUserDisabled
	case "EMAIL_EXISTS":
		return CodeEmailAlreadyInUse
	case "WEAK_PASSWORD":
		return CodeWeakPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyRequests
	case "INVALID_LOGIN_CREDENTIALS", "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return CodeInvalidCredential
	default:
		return CodeInternalError
	}
}
