// Package verifier checks that a social handle exists on its platform.
//
// Verification fails closed: any lookup error yields Verified=false with the
// cause attached, never a Go error return.
package verifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/socialpulse/internal/metrics"
	"github.com/sakif/socialpulse/internal/model"
	"github.com/sakif/socialpulse/internal/platform/instagram"
)

var (
	// ErrEmptyHandle is attached when the handle is blank.
	ErrEmptyHandle = errors.New("verifier: empty handle")
	// ErrUnknownPlatform is attached for platforms the verifier cannot check.
	ErrUnknownPlatform = errors.New("verifier: unknown platform")
	// ErrMissingCredentials is attached when the platform has no credentials configured.
	ErrMissingCredentials = errors.New("verifier: platform credentials not configured")
)

// ChannelResolver resolves a YouTube handle to a channel id.
type ChannelResolver interface {
	ChannelIDForHandle(ctx context.Context, handle string) (string, error)
}

// AccountDiscoverer looks up an Instagram business or creator account.
type AccountDiscoverer interface {
	BusinessDiscovery(ctx context.Context, username string) (*instagram.Account, error)
}

// Verification is the outcome of one check.
type Verification struct {
	Platform model.Platform
	Handle   string
	Verified bool
	// Err explains a negative result; nil when Verified.
	Err error
}

// Verifier checks handles against the live platforms.
type Verifier struct {
	youtube   ChannelResolver
	instagram AccountDiscoverer
	logger    *slog.Logger
}

// New creates a Verifier. Either client may be nil, in which case handles on
// that platform never verify.
func New(youtube ChannelResolver, instagram AccountDiscoverer, logger *slog.Logger) *Verifier {
	return &Verifier{youtube: youtube, instagram: instagram, logger: logger}
}

// Verify reports whether handle exists on platform. It makes exactly one
// lookup and never retries.
func (v *Verifier) Verify(ctx context.Context, platform model.Platform, handle string) Verification {
	handle = strings.TrimSpace(handle)
	result := Verification{Platform: platform, Handle: handle}

	switch {
	case handle == "":
		result.Err = ErrEmptyHandle
	case platform == model.PlatformYouTube:
		result.Err = v.verifyYouTube(ctx, handle)
	case platform == model.PlatformInstagram:
		result.Err = v.verifyInstagram(ctx, handle)
	default:
		result.Err = ErrUnknownPlatform
	}
	result.Verified = result.Err == nil

	metrics.RecordVerification(string(platform), result.Verified)
	if !result.Verified {
		v.logger.Debug("handle not verified",
			slog.String("platform", string(platform)),
			slog.String("handle", handle),
			slog.String("reason", result.Err.Error()),
		)
	}
	return result
}

func (v *Verifier) verifyYouTube(ctx context.Context, handle string) error {
	if v.youtube == nil {
		return ErrMissingCredentials
	}
	_, err := v.youtube.ChannelIDForHandle(ctx, handle)
	return err
}

func (v *Verifier) verifyInstagram(ctx context.Context, handle string) error {
	if v.instagram == nil {
		return ErrMissingCredentials
	}
	_, err := v.instagram.BusinessDiscovery(ctx, handle)
	if errors.Is(err, instagram.ErrMissingCredentials) {
		return errors.Join(ErrMissingCredentials, err)
	}
	return err
}
