// Package preview keeps unsaved landing page configurations per curator
// session. The browser only holds a signed cookie with a session id; the
// drafts themselves live in a TTL store (Redis or in-process).
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/MrSnakeDoc/landing/internal/logger"
)

const sessionIDKey = "preview_sid"

var (
	// ErrNoDraft is returned when the session holds no draft for a resource.
	ErrNoDraft = errors.New("no preview draft in session")
	// ErrWeakKey is returned for a short signing key with secure cookies.
	ErrWeakKey = errors.New("session key is too weak; provide >= 32 random chars")
)

// Store is the TTL key/value backend for drafts.
type Store interface {
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Remove(ctx context.Context, key string) error
}

// Draft is an unsaved template/ftp_url pair.
type Draft struct {
	Template string    `json:"template"`
	FtpURL   *string   `json:"ftp_url"`
	SavedAt  time.Time `json:"saved_at"`
}

type Options struct {
	Key    string        // cookie signing key
	Name   string        // cookie name, defaults to "landing-session"
	Secure bool          // Secure cookie, requires a strong key
	TTL    time.Duration // draft lifetime, defaults to 1h
	// KeyFunc builds the storage key, defaults to DefaultKey.
	KeyFunc func(sessionID string, resourceID int64) string
	Now     func() time.Time
}

type Manager struct {
	cookies *sessions.CookieStore
	name    string
	store   Store
	ttl     time.Duration
	keyFunc func(string, int64) string
	now     func() time.Time
	log     logger.Logger
}

// DefaultKey is landing:preview:{sid}:{resourceID}.
func DefaultKey(sessionID string, resourceID int64) string {
	return "landing:preview:" + sessionID + ":" + strconv.FormatInt(resourceID, 10)
}

func NewManager(opts Options, store Store, log logger.Logger) (*Manager, error) {
	if opts.Key == "" {
		return nil, ErrWeakKey
	}
	if len(opts.Key) < 32 {
		if opts.Secure {
			return nil, ErrWeakKey
		}
		log.Warn("session key is weak; 32+ random chars required in production",
			logger.Int("length", len(opts.Key)))
	}
	if opts.Name == "" {
		opts.Name = "landing-session"
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = DefaultKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cookies := sessions.NewCookieStore([]byte(opts.Key))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.TTL.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		cookies: cookies,
		name:    opts.Name,
		store:   store,
		ttl:     opts.TTL,
		keyFunc: opts.KeyFunc,
		now:     opts.Now,
		log:     log,
	}, nil
}

// Save stores d for resourceID, creating the session cookie when needed.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, resourceID int64, d Draft) error {
	sid, err := m.sessionID(w, r, true)
	if err != nil {
		return err
	}

	d.SavedAt = m.now().UTC()
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal preview draft: %w", err)
	}
	return m.store.Save(ctx, m.keyFunc(sid, resourceID), data, m.ttl)
}

// Load returns the draft of resourceID, or ErrNoDraft.
func (m *Manager) Load(ctx context.Context, r *http.Request, resourceID int64) (*Draft, error) {
	sid, err := m.sessionID(nil, r, false)
	if err != nil {
		return nil, err
	}
	if sid == "" {
		return nil, ErrNoDraft
	}

	data, ok, err := m.store.Load(ctx, m.keyFunc(sid, resourceID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoDraft
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preview draft: %w", err)
	}
	return &d, nil
}

// Clear drops the draft of resourceID. Clearing nothing is not an error.
func (m *Manager) Clear(ctx context.Context, r *http.Request, resourceID int64) error {
	sid, err := m.sessionID(nil, r, false)
	if err != nil || sid == "" {
		return err
	}
	return m.store.Remove(ctx, m.keyFunc(sid, resourceID))
}

// sessionID reads the preview session id from the cookie. With create set,
// a missing or unreadable cookie is replaced by a fresh session.
func (m *Manager) sessionID(w http.ResponseWriter, r *http.Request, create bool) (string, error) {
	sess, err := m.cookies.Get(r, m.name)
	if err != nil {
		m.log.Debug("preview session cookie rejected",
			logger.String("reason", classify(err)))
		sess, _ = m.cookies.New(r, m.name)
	}

	if sid, ok := sess.Values[sessionIDKey].(string); ok && sid != "" {
		return sid, nil
	}
	if !create {
		return "", nil
	}

	sid := uuid.NewString()
	sess.Values[sessionIDKey] = sid
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save preview session: %w", err)
	}
	return sid, nil
}

func classify(err error) string {
	var scErr securecookie.Error
	if !errors.As(err, &scErr) {
		return "unknown"
	}
	if !scErr.IsDecode() {
		return "backend"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired timestamp"):
		return "expired"
	case strings.Contains(msg, "mac") || strings.Contains(msg, "hash"):
		return "mac_invalid"
	default:
		return "decode_failed"
	}
}
