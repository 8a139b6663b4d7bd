package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-copilot/core"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	maxProfileResponseBytes = 1 << 20 // 1 MiB
	slackUsersInfoURL       = "https://slack.com/api/users.info"
	githubUsersURL          = "https://api.github.com/users"
)

var ErrProfileNotFound = errors.New("identity: profile not found")

type ProfileNotFoundError struct {
	Cause error
}

func (e *ProfileNotFoundError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrProfileNotFound.Error()
	}
	return ErrProfileNotFound.Error() + ": " + e.Cause.Error()
}

func (e *ProfileNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrProfileNotFound
	}
	return errors.Join(ErrProfileNotFound, e.Cause)
}

func (e *ProfileNotFoundError) ToCopilotError() *goerrors.Error {
	message := ErrProfileNotFound.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.CopilotErrorNotFound)
}

func profileNotFound(cause error) error {
	return &ProfileNotFoundError{Cause: cause}
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Profile is a connector user profile fetched from the provider's directory
// API. It enriches identity bindings with a human-readable name so tasks and
// notifications can show who asked instead of a raw external id.
type Profile struct {
	Provider    string
	ExternalID  string
	DisplayName string
	Email       string
	AvatarURL   string
	TimeZone    string
	Raw         map[string]any
}

// BindInput shapes the profile into the identity-store bind payload for a
// known internal user.
func (p Profile) BindInput(userID string) core.BindIdentityInput {
	metadata := map[string]any{
		"email":      strings.TrimSpace(p.Email),
		"avatar_url": strings.TrimSpace(p.AvatarURL),
		"time_zone":  strings.TrimSpace(p.TimeZone),
	}
	return core.BindIdentityInput{
		Provider:    strings.TrimSpace(strings.ToLower(p.Provider)),
		ExternalID:  strings.TrimSpace(p.ExternalID),
		UserID:      strings.TrimSpace(userID),
		DisplayName: strings.TrimSpace(p.DisplayName),
		Metadata:    metadata,
	}
}

type ProfileNormalizer func(provider string, externalID string, payload map[string]any) (Profile, error)

type RequestBuilder func(baseURL string, externalID string) string

type ProviderProfileConfig struct {
	URL        string
	Normalizer ProfileNormalizer
	RequestURL RequestBuilder
}

type Config struct {
	HTTPClient      HTTPDoer
	RequestTimeout  time.Duration
	ProviderProfile map[string]ProviderProfileConfig
}

// Resolver fetches connector user profiles over HTTP. Slack and GitHub are
// wired by default; hosts add providers through Config.ProviderProfile.
type Resolver struct {
	httpClient      HTTPDoer
	requestTimeout  time.Duration
	providerProfile map[string]ProviderProfileConfig
}

func NewResolver(cfg Config) *Resolver {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	providerProfile := defaultProviderProfileConfigs()
	for key, value := range cfg.ProviderProfile {
		normalizedID := normalizeProvider(key)
		if normalizedID == "" {
			continue
		}
		providerProfile[normalizedID] = ProviderProfileConfig{
			URL:        strings.TrimSpace(value.URL),
			Normalizer: value.Normalizer,
			RequestURL: value.RequestURL,
		}
	}

	return &Resolver{
		httpClient:      httpClient,
		requestTimeout:  requestTimeout,
		providerProfile: providerProfile,
	}
}

func DefaultResolver() *Resolver {
	return NewResolver(Config{})
}

func (r *Resolver) Resolve(ctx context.Context, provider string, externalID string, accessToken string) (Profile, error) {
	if r == nil {
		return Profile{}, profileNotFound(nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	normalizedProvider := normalizeProvider(provider)
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return Profile{}, profileNotFound(fmt.Errorf("identity: external id is required"))
	}

	config, ok := r.providerProfile[normalizedProvider]
	if !ok || strings.TrimSpace(config.URL) == "" {
		return Profile{}, profileNotFound(fmt.Errorf("identity: no profile endpoint for provider %q", normalizedProvider))
	}

	endpoint := config.URL
	if config.RequestURL != nil {
		endpoint = config.RequestURL(config.URL, externalID)
	}
	payload, fetchErr := r.fetchProfile(ctx, endpoint, accessToken)
	if fetchErr != nil {
		return Profile{}, profileNotFound(fetchErr)
	}

	normalizer := config.Normalizer
	if normalizer == nil {
		normalizer = normalizeGenericProfile
	}
	profile, err := normalizer(normalizedProvider, externalID, payload)
	if err != nil {
		return Profile{}, profileNotFound(err)
	}
	if strings.TrimSpace(profile.ExternalID) == "" {
		return Profile{}, profileNotFound(nil)
	}
	return profile, nil
}

func defaultProviderProfileConfigs() map[string]ProviderProfileConfig {
	return map[string]ProviderProfileConfig{
		"slack": {
			URL:        slackUsersInfoURL,
			Normalizer: normalizeSlackProfile,
			RequestURL: func(baseURL string, externalID string) string {
				return baseURL + "?user=" + url.QueryEscape(externalID)
			},
		},
		"github": {
			URL:        githubUsersURL,
			Normalizer: normalizeGitHubProfile,
			RequestURL: func(baseURL string, externalID string) string {
				return strings.TrimSuffix(baseURL, "/") + "/" + url.PathEscape(externalID)
			},
		},
	}
}

func (r *Resolver) fetchProfile(ctx context.Context, endpoint string, accessToken string) (map[string]any, error) {
	requestCtx := ctx
	cancel := func() {}
	if r.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := strings.TrimSpace(accessToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxProfileResponseBytes+1))
	if readErr != nil {
		return nil, fmt.Errorf("identity: read profile response: %w", readErr)
	}
	if int64(len(body)) > maxProfileResponseBytes {
		return nil, fmt.Errorf("identity: profile response exceeds %d bytes", maxProfileResponseBytes)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("identity: profile endpoint returned status %d", res.StatusCode)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("identity: decode profile response: %w", err)
	}
	return payload, nil
}

func normalizeSlackProfile(provider string, externalID string, payload map[string]any) (Profile, error) {
	if !readBool(payload["ok"]) {
		reason := readString(payload["error"])
		if reason == "" {
			reason = "unknown error"
		}
		return Profile{}, fmt.Errorf("identity: slack users.info failed: %s", reason)
	}
	user, _ := payload["user"].(map[string]any)
	if user == nil {
		return Profile{}, fmt.Errorf("identity: slack response has no user")
	}
	inner, _ := user["profile"].(map[string]any)

	displayName := ""
	email := ""
	avatar := ""
	if inner != nil {
		displayName = readString(inner["display_name"])
		if displayName == "" {
			displayName = readString(inner["real_name"])
		}
		email = readString(inner["email"])
		avatar = readString(inner["image_192"])
	}
	if displayName == "" {
		displayName = readString(user["real_name"])
	}
	if displayName == "" {
		displayName = readString(user["name"])
	}

	id := readString(user["id"])
	if id == "" {
		id = externalID
	}
	return Profile{
		Provider:    provider,
		ExternalID:  id,
		DisplayName: displayName,
		Email:       email,
		AvatarURL:   avatar,
		TimeZone:    readString(user["tz"]),
		Raw:         copyMap(user),
	}, nil
}

func normalizeGitHubProfile(provider string, externalID string, payload map[string]any) (Profile, error) {
	login := readString(payload["login"])
	if login == "" {
		login = externalID
	}
	name := readString(payload["name"])
	if name == "" {
		name = login
	}
	return Profile{
		Provider:    provider,
		ExternalID:  login,
		DisplayName: name,
		Email:       readString(payload["email"]),
		AvatarURL:   readString(payload["avatar_url"]),
		Raw:         copyMap(payload),
	}, nil
}

func normalizeGenericProfile(provider string, externalID string, payload map[string]any) (Profile, error) {
	return Profile{
		Provider:    provider,
		ExternalID:  externalID,
		DisplayName: readString(payload["name"]),
		Email:       readString(payload["email"]),
		Raw:         copyMap(payload),
	}, nil
}

func normalizeProvider(value string) string {
	return strings.TrimSpace(strings.ToLower(value))
}

func copyMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	case json.Number:
		parsed, err := typed.Int64()
		return err == nil && parsed != 0
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return false
	}
}
