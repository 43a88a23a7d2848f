package authprovider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"custodia/internal/backend/docstore"
	"custodia/pkg/platform/sentinel"
)

// AccountsCollection holds the credentials managed by Local.
const AccountsCollection = "contas"

const (
	defaultTokenTTL          = time.Hour
	defaultIssuer            = "custodia"
	defaultMaxFailedAttempts = 5
	defaultLockout           = 15 * time.Minute
)

// Local is a self-hosted provider: accounts live in the document store, passwords
// are bcrypt hashed and ID tokens are HS256 JWTs.
type Local struct {
	session

	accounts docstore.Collection
	tokens   *tokenIssuer
	revoked  RevocationList
	validate *validator.Validate
	clock    func() time.Time

	bcryptCost  int
	maxFailures int
	lockout     time.Duration

	createMu sync.Mutex
	failMu   sync.Mutex
	failures map[string]*failureWindow
}

type failureWindow struct {
	count int
	until time.Time
}

type localConfig struct {
	ttl         time.Duration
	issuer      string
	clock       func() time.Time
	revoked     RevocationList
	bcryptCost  int
	maxFailures int
	lockout     time.Duration
}

// LocalOption configures a Local provider.
type LocalOption func(*localConfig)

// WithTokenTTL sets the lifetime of issued ID tokens.
func WithTokenTTL(ttl time.Duration) LocalOption {
	return func(c *localConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithIssuer(issuer string) LocalOption {
	return func(c *localConfig) {
		if issuer != "" {
			c.issuer = issuer
		}
	}
}

func WithLocalClock(clock func() time.Time) LocalOption {
	return func(c *localConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRevocations shares signed-out tokens through list. The default list is
// local to the process.
func WithRevocations(list RevocationList) LocalOption {
	return func(c *localConfig) {
		if list != nil {
			c.revoked = list
		}
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) LocalOption {
	return func(c *localConfig) {
		c.bcryptCost = cost
	}
}

// WithLockout sets how many consecutive wrong passwords lock an email and for how long.
func WithLockout(maxFailures int, d time.Duration) LocalOption {
	return func(c *localConfig) {
		if maxFailures > 0 {
			c.maxFailures = maxFailures
		}
		if d > 0 {
			c.lockout = d
		}
	}
}

// NewLocal builds a Local provider over the accounts collection of store.
func NewLocal(store docstore.Store, signingKey string, opts ...LocalOption) *Local {
	cfg := localConfig{
		ttl:         defaultTokenTTL,
		issuer:      defaultIssuer,
		clock:       time.Now,
		bcryptCost:  bcrypt.DefaultCost,
		maxFailures: defaultMaxFailedAttempts,
		lockout:     defaultLockout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.revoked == nil {
		cfg.revoked = NewMemoryRevocations(cfg.clock)
	}
	return &Local{
		accounts:    store.Collection(AccountsCollection),
		tokens:      newTokenIssuer(signingKey, cfg.issuer, cfg.ttl, cfg.clock),
		revoked:     cfg.revoked,
		validate:    validator.New(),
		clock:       cfg.clock,
		bcryptCost:  cfg.bcryptCost,
		maxFailures: cfg.maxFailures,
		lockout:     cfg.lockout,
		failures:    make(map[string]*failureWindow),
	}
}

type account struct {
	UID          string
	Email        string
	DisplayName  string
	PasswordHash string
	Disabled     bool
}

func accountFromDocument(id string, doc docstore.Document) account {
	return account{
		UID:          id,
		Email:        docstore.String(doc["email"]),
		DisplayName:  docstore.String(doc["displayName"]),
		PasswordHash: docstore.String(doc["passwordHash"]),
		Disabled:     docstore.Bool(doc["disabled"]),
	}
}

func (l *Local) SignIn(ctx context.Context, email, password string) (User, error) {
	email, err := l.normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if l.lockedOut(email) {
		return User{}, newError(CodeTooManyRequests, nil)
	}

	acct, found, err := l.findByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, newError(CodeUserNotFound, nil)
	}
	if acct.Disabled {
		return User{}, newError(CodeUserDisabled, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			l.recordFailure(email)
			return User{}, newError(CodeWrongPassword, nil)
		}
		return User{}, newError(CodeInternalError, fmt.Errorf("verify password: %w", err))
	}
	l.clearFailures(email)

	return l.startSession(acct)
}

func (l *Local) CreateAccount(ctx context.Context, email, password string) (User, error) {
	email, err := l.normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if len(password) < MinPasswordLength {
		return User{}, newError(CodeWeakPassword, nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return User{}, newError(CodeWeakPassword, err)
		}
		return User{}, newError(CodeInternalError, fmt.Errorf("hash password: %w", err))
	}

	// Serializes the lookup and the write so two registrations in this process
	// cannot claim the same email.
	l.createMu.Lock()
	defer l.createMu.Unlock()

	_, found, err := l.findByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if found {
		return User{}, newError(CodeEmailAlreadyInUse, nil)
	}

	acct := account{UID: l.accounts.NewID(), Email: email, PasswordHash: string(hash)}
	if err := l.accounts.Set(ctx, acct.UID, docstore.Document{
		"email":        acct.Email,
		"displayName":  "",
		"passwordHash": acct.PasswordHash,
		"disabled":     false,
		"createdAt":    docstore.ServerTimestamp,
	}); err != nil {
		return User{}, newError(CodeNetworkRequestFailed, fmt.Errorf("save account: %w", err))
	}
	return l.startSession(acct)
}

func (l *Local) UpdateDisplayName(ctx context.Context, account User, name string) error {
	uid := account.UID
	if err := l.accounts.Update(ctx, uid, docstore.Document{"displayName": name}); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return newError(CodeUserNotFound, err)
		}
		return newError(CodeNetworkRequestFailed, fmt.Errorf("update account: %w", err))
	}
	l.renamed(uid, name)
	return nil
}

// SignOut revokes idToken until it would have expired anyway. A token that no
// longer verifies has nothing left to revoke.
func (l *Local) SignOut(ctx context.Context, idToken string) error {
	if idToken == "" {
		l.forget()
		return nil
	}
	l.forgetToken(idToken)

	tok, err := l.tokens.parse(idToken)
	if err != nil {
		return nil
	}
	if err := l.revoked.Revoke(ctx, tok.ID, tok.ExpiresAt.Sub(l.clock())); err != nil {
		return newError(CodeNetworkRequestFailed, fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

// VerifyIDToken validates the signature and expiry of token, rejects revoked
// tokens and checks the account still exists and is enabled.
func (l *Local) VerifyIDToken(ctx context.Context, token string) (User, error) {
	tok, err := l.tokens.parse(token)
	if err != nil {
		return User{}, err
	}
	revoked, err := l.revoked.IsRevoked(ctx, tok.ID)
	if err != nil {
		return User{}, newError(CodeNetworkRequestFailed, fmt.Errorf("check revocation: %w", err))
	}
	if revoked {
		return User{}, newError(CodeInvalidCredential, errors.New("token revoked"))
	}
	u := tok.User
	doc, err := l.accounts.Get(ctx, u.UID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return User{}, newError(CodeUserNotFound, err)
		}
		return User{}, newError(CodeNetworkRequestFailed, fmt.Errorf("load account: %w", err))
	}
	acct := accountFromDocument(u.UID, doc)
	if acct.Disabled {
		return User{}, newError(CodeUserDisabled, nil)
	}
	u.DisplayName = acct.DisplayName
	return u, nil
}

func (l *Local) startSession(acct account) (User, error) {
	u := User{UID: acct.UID, Email: acct.Email, DisplayName: acct.DisplayName}
	token, err := l.tokens.issue(u)
	if err != nil {
		return User{}, newError(CodeInternalError, fmt.Errorf("sign id token: %w", err))
	}
	u.IDToken = token
	l.remember(u)
	return u, nil
}

func (l *Local) normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := l.validate.Var(email, "required,email"); err != nil {
		return "", newError(CodeInvalidEmail, err)
	}
	return email, nil
}

func (l *Local) findByEmail(ctx context.Context, email string) (account, bool, error) {
	recs, err := l.accounts.Query(ctx, docstore.Where("email", email))
	if err != nil {
		return account{}, false, newError(CodeNetworkRequestFailed, fmt.Errorf("find account: %w", err))
	}
	if len(recs) == 0 {
		return account{}, false, nil
	}
	return accountFromDocument(recs[0].ID, recs[0].Data), true, nil
}

func (l *Local) lockedOut(email string) bool {
	l.failMu.Lock()
	defer l.failMu.Unlock()
	w, ok := l.failures[email]
	if !ok {
		return false
	}
	if w.count < l.maxFailures {
		return false
	}
	if l.clock().After(w.until) {
		delete(l.failures, email)
		return false
	}
	return true
}

func (l *Local) recordFailure(email string) {
	l.failMu.Lock()
	defer l.failMu.Unlock()
	w, ok := l.failures[email]
	if !ok {
		w = &failureWindow{}
		l.failures[email] = w
	}
	w.count++
	w.until = l.clock().Add(l.lockout)
}

func (l *Local) clearFailures(email string) {
	l.failMu.Lock()
	defer l.failMu.Unlock()
	delete(l.failures, email)
}
